package alias

import (
	"regexp"
	"strings"
)

var (
	// Foo.Bar.baz(1, 2) -> Foo.Bar
	trailingCallPattern = regexp.MustCompile(`\.[a-z_][a-zA-Z0-9_]*.*$`)
	moduleNamePattern   = regexp.MustCompile(`^[A-Z][A-Za-z0-9_.]*$`)
)

// CleanModuleName reduces raw selected text to a module name, stripping a
// trailing dotted function call. It returns ErrInvalidModuleName when the
// remainder does not start with an uppercase letter or contains other
// characters than letters, digits, underscores and dots.
func CleanModuleName(raw string) (string, error) {
	cleaned := trailingCallPattern.ReplaceAllString(strings.TrimSpace(raw), "")
	if !moduleNamePattern.MatchString(cleaned) {
		return "", ErrInvalidModuleName
	}
	return cleaned, nil
}

// WordAt returns the dotted identifier surrounding the UTF-16 character
// offset on line, or "" when the cursor is not on one.
func WordAt(line string, character int) string {
	offset, ok := utf16ToByteOffset(line, character)
	if !ok {
		offset = len(line)
	}
	start := offset
	for start > 0 && isWordByte(line[start-1]) {
		start--
	}
	end := offset
	for end < len(line) && isWordByte(line[end]) {
		end++
	}
	return strings.Trim(line[start:end], ".")
}

func isWordByte(b byte) bool {
	return b == '_' || b == '.' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

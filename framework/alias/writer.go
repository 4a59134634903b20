package alias

import (
	"regexp"
	"strings"
)

// AliasLine is the exact text inserted for fullName.
func AliasLine(fullName string) string {
	return "  alias " + fullName + "\n"
}

// AliasExists reports whether text already declares an alias for fullName.
// The name is escaped so regexp metacharacters match literally.
func AliasExists(text, fullName string) bool {
	pattern := regexp.MustCompile(`(?m)alias\s+` + regexp.QuoteMeta(fullName) + `(?:\s|$|,)`)
	return pattern.MatchString(text)
}

// InsertionEdit builds the edit placing the alias on the line after
// headerLine. When the header is the last line and has no trailing newline,
// the alias is appended after a newline at the end of the header line.
func InsertionEdit(text string, headerLine int, fullName string) TextEdit {
	lines := Lines(text)
	if headerLine+1 < len(lines) {
		return TextEdit{
			Position: Position{Line: headerLine + 1, Character: 0},
			NewText:  AliasLine(fullName),
		}
	}
	last := ""
	if headerLine >= 0 && headerLine < len(lines) {
		last = lines[headerLine]
	}
	return TextEdit{
		Position: Position{Line: headerLine, Character: UTF16Len(last)},
		NewText:  "\n" + strings.TrimSuffix(AliasLine(fullName), "\n"),
	}
}

package alias

import (
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Document is the read-only view of an editor buffer.
type Document interface {
	URI() string
	// Path is the filesystem path backing the buffer, if any.
	Path() string
	LanguageID() string
	Text() string
}

// TextDocument is an in-memory Document.
type TextDocument struct {
	DocURI   string
	FilePath string
	Language string
	Content  string
}

func (d *TextDocument) URI() string        { return d.DocURI }
func (d *TextDocument) Path() string       { return d.FilePath }
func (d *TextDocument) LanguageID() string { return d.Language }
func (d *TextDocument) Text() string       { return d.Content }

// Position is a zero-based line and a UTF-16 character offset, matching the
// convention editors use on the wire.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// TextEdit is a pure insertion of NewText at Position.
type TextEdit struct {
	Position Position `json:"position"`
	NewText  string   `json:"newText"`
}

// Apply returns text with the insertion performed.
func (e TextEdit) Apply(text string) (string, error) {
	offset, err := Offset(text, e.Position)
	if err != nil {
		return "", err
	}
	return text[:offset] + e.NewText + text[offset:], nil
}

// Lines splits text on "\n". A trailing newline yields a final empty line.
func Lines(text string) []string {
	return strings.Split(text, "\n")
}

// LineAt returns the given zero-based line, or "" when out of range.
func LineAt(text string, line int) string {
	lines := Lines(text)
	if line < 0 || line >= len(lines) {
		return ""
	}
	return strings.TrimSuffix(lines[line], "\r")
}

// Offset converts a position into a byte offset within text.
func Offset(text string, pos Position) (int, error) {
	if pos.Line < 0 || pos.Character < 0 {
		return 0, fmt.Errorf("invalid position %d:%d", pos.Line, pos.Character)
	}
	start := 0
	for i := 0; i < pos.Line; i++ {
		idx := strings.IndexByte(text[start:], '\n')
		if idx < 0 {
			return 0, fmt.Errorf("line %d beyond end of document", pos.Line)
		}
		start += idx + 1
	}
	end := len(text)
	if idx := strings.IndexByte(text[start:], '\n'); idx >= 0 {
		end = start + idx
	}
	byteCol, ok := utf16ToByteOffset(text[start:end], pos.Character)
	if !ok {
		return 0, fmt.Errorf("character %d beyond end of line %d", pos.Character, pos.Line)
	}
	return start + byteCol, nil
}

func utf16ToByteOffset(line string, units int) (int, bool) {
	count := 0
	for i, r := range line {
		if count >= units {
			return i, count == units
		}
		count += utf16.RuneLen(r)
	}
	return len(line), count == units
}

// UTF16Len returns the length of s in UTF-16 code units.
func UTF16Len(s string) int {
	n := 0
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		n += utf16.RuneLen(r)
		s = s[size:]
	}
	return n
}

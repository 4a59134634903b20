package alias

import "context"

// Editor is the host integration surface: the focused buffer, the user's
// selection, edits and messages. Implementations live in the LSP server and
// in the command line tool.
type Editor interface {
	Picker
	// ActiveDocument returns the focused document, if any.
	ActiveDocument() (Document, bool)
	// Selection returns the selected text, or "" when the selection is empty.
	Selection() string
	// Cursor returns the active cursor position.
	Cursor() Position
	// Apply performs a pure insertion in doc.
	Apply(ctx context.Context, doc Document, edit TextEdit) error
	Info(message string)
	Error(message string)
}

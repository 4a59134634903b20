package cliutils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"go.lsp.dev/uri"

	"github.com/romsahel/aliasex/cmd/internal/picker"
	"github.com/romsahel/aliasex/framework/alias"
	"github.com/romsahel/aliasex/framework/ast"
)

var (
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

// FileEditor is an alias.Editor over a file on disk. Edits are written back
// in place.
type FileEditor struct {
	path      string
	selection string
	cursor    alias.Position
	picker    alias.Picker
	out       io.Writer
	errOut    io.Writer
	detector  *ast.LanguageDetector
}

// NewFileEditor returns an editor positioned at cursor in path.
func NewFileEditor(path string, cursor alias.Position, selection string, p alias.Picker, out, errOut io.Writer) *FileEditor {
	return &FileEditor{
		path:      path,
		selection: selection,
		cursor:    cursor,
		picker:    p,
		out:       out,
		errOut:    errOut,
		detector:  ast.NewLanguageDetector(),
	}
}

func (e *FileEditor) ActiveDocument() (alias.Document, bool) {
	if e.path == "" {
		return nil, false
	}
	absPath, err := filepath.Abs(e.path)
	if err != nil {
		return nil, false
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, false
	}
	return &alias.TextDocument{
		DocURI:   string(uri.File(absPath)),
		FilePath: absPath,
		Language: e.detector.Detect(absPath),
		Content:  string(data),
	}, true
}

func (e *FileEditor) Selection() string { return e.selection }

func (e *FileEditor) Cursor() alias.Position { return e.cursor }

// Apply writes the edit, refusing when the file changed since doc was read.
func (e *FileEditor) Apply(ctx context.Context, doc alias.Document, edit alias.TextEdit) error {
	info, err := os.Stat(doc.Path())
	if err != nil {
		return err
	}
	current, err := os.ReadFile(doc.Path())
	if err != nil {
		return err
	}
	if string(current) != doc.Text() {
		return errors.New("file changed on disk")
	}
	updated, err := edit.Apply(doc.Text())
	if err != nil {
		return err
	}
	return os.WriteFile(doc.Path(), []byte(updated), info.Mode().Perm())
}

func (e *FileEditor) Pick(ctx context.Context, prompt string, items []string) (string, bool, error) {
	if e.picker == nil {
		return "", false, errors.New("several modules match; pass --pick to choose one")
	}
	return e.picker.Pick(ctx, prompt, items)
}

func (e *FileEditor) Info(message string) {
	fmt.Fprintln(e.out, infoStyle.Render(message))
}

func (e *FileEditor) Error(message string) {
	fmt.Fprintln(e.errOut, errorStyle.Render(message))
}

// IndexPicker chooses the Nth (1-based) candidate without prompting.
type IndexPicker int

func (n IndexPicker) Pick(ctx context.Context, prompt string, items []string) (string, bool, error) {
	if int(n) < 1 || int(n) > len(items) {
		return "", false, fmt.Errorf("--pick %d out of range (1-%d)", int(n), len(items))
	}
	return items[n-1], true, nil
}

// TerminalPicker prompts with an interactive list.
type TerminalPicker struct {
	In  io.Reader
	Out io.Writer
}

func (p TerminalPicker) Pick(ctx context.Context, prompt string, items []string) (string, bool, error) {
	return picker.Run(ctx, prompt, items, p.In, p.Out)
}

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/romsahel/aliasex/cmd/internal/cliutils"
	"github.com/romsahel/aliasex/framework/alias"
)

// cursorFlags holds 1-based editor coordinates from the command line.
type cursorFlags struct {
	line      int
	col       int
	selection string
}

func (c cursorFlags) position() alias.Position {
	pos := alias.Position{}
	if c.line > 0 {
		pos.Line = c.line - 1
	}
	if c.col > 0 {
		pos.Character = c.col - 1
	}
	return pos
}

func newCLIEditor(cmd *cobra.Command, file string, cursor cursorFlags, picker alias.Picker) *cliutils.FileEditor {
	return cliutils.NewFileEditor(file, cursor.position(), cursor.selection, picker, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

func newAddCmd() *cobra.Command {
	var file string
	var cursor cursorFlags
	var pick int
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Insert an alias for the module selected or under the cursor",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return errors.New("--file is required")
			}
			if cursor.line < 1 {
				return errors.New("--line must be 1 or greater")
			}
			session, err := openSession()
			if err != nil {
				return err
			}
			defer session.Close()
			if _, err := session.EnsureIndex(cmd.Context()); err != nil {
				return err
			}

			var picker alias.Picker
			switch {
			case pick > 0:
				picker = cliutils.IndexPicker(pick)
			case isatty.IsTerminal(os.Stdin.Fd()):
				picker = cliutils.TerminalPicker{In: cmd.InOrStdin(), Out: cmd.ErrOrStderr()}
			}
			editor := newCLIEditor(cmd, file, cursor, picker)
			outcome, err := session.Service.AddAlias(cmd.Context(), editor)
			if err != nil {
				// already shown by the editor
				return errSilent{err}
			}
			if outcome == alias.OutcomeCancelled {
				fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Elixir file to edit")
	cmd.Flags().IntVar(&cursor.line, "line", 0, "Cursor line (1-based)")
	cmd.Flags().IntVar(&cursor.col, "col", 1, "Cursor column (1-based, UTF-16 units)")
	cmd.Flags().StringVar(&cursor.selection, "selection", "", "Selected text; defaults to the word under the cursor")
	cmd.Flags().IntVar(&pick, "pick", 0, "Choose the Nth candidate (1-based) when several modules match")
	return cmd
}

// errSilent marks errors that were already reported to the user.
type errSilent struct{ err error }

func (e errSilent) Error() string { return e.err.Error() }
func (e errSilent) Unwrap() error { return e.err }

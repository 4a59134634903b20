package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/romsahel/aliasex/cmd/internal/cliutils"
	"github.com/romsahel/aliasex/framework/alias"
	"github.com/romsahel/aliasex/framework/ast"
)

func newScopeCmd() *cobra.Command {
	var file string
	var line int
	cmd := &cobra.Command{
		Use:   "scope",
		Short: "Print the module enclosing a line",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" || line < 1 {
				return errors.New("--file and --line are required")
			}
			cfg, err := loadConfig(flagWorkspace)
			if err != nil {
				return err
			}
			locate, closer, err := cliutils.BuildLocator(cfg, newLogger(cfg))
			if err != nil {
				return err
			}
			if closer != nil {
				defer closer.Close()
			}
			editor := newCLIEditor(cmd, file, cursorFlags{line: line}, nil)
			doc, ok := editor.ActiveDocument()
			if !ok {
				return fmt.Errorf("cannot read %s", file)
			}
			header, err := locate(cmd.Context(), doc, line-1)
			if errors.Is(err, alias.ErrScopeNotFound) {
				editor.Error("Could not find defmodule in current file")
				return errSilent{err}
			}
			if err != nil {
				editor.Error(fmt.Sprintf("Structural parse failed: %v", err))
				return errSilent{err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d: %s\n", header+1, headerName(doc.Text(), header))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Elixir file")
	cmd.Flags().IntVar(&line, "line", 0, "Cursor line (1-based)")
	return cmd
}

// headerName names the module declared on line, or returns the line itself
// when its header spans lines the scanner does not match.
func headerName(text string, line int) string {
	for _, header := range ast.NewHeaderScanner().ScanHeaders(text) {
		if header.Line == line {
			return header.Name
		}
	}
	return strings.TrimSpace(alias.LineAt(text, line))
}

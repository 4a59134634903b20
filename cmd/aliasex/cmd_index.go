package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/romsahel/aliasex/framework/alias"
)

func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Rebuild the module index and save the snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := openSession()
			if err != nil {
				return err
			}
			defer session.Close()
			editor := newCLIEditor(cmd, "", cursorFlags{}, nil)
			_, err = session.Service.RefreshIndex(cmd.Context(), editor)
			return err
		},
	}
}

func newLookupCmd() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "lookup <Name>",
		Short: "List the fully-qualified modules matching a short or dotted name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := openSession()
			if err != nil {
				return err
			}
			defer session.Close()
			if refresh {
				_, err = session.Index.Rebuild(cmd.Context())
			} else {
				_, err = session.EnsureIndex(cmd.Context())
			}
			if err != nil {
				return err
			}
			name := strings.TrimSpace(args[0])
			candidates := alias.CandidatesFor(session.Index.Lookup, name)
			if len(candidates) == 0 {
				return fmt.Errorf("module '%s' not found in cache", name)
			}
			for _, candidate := range candidates {
				fmt.Fprintln(cmd.OutOrStdout(), candidate)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Rebuild the index before looking up")
	return cmd
}

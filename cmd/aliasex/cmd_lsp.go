package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/romsahel/aliasex/cmd/internal/cliutils"
	"github.com/romsahel/aliasex/framework"
	"github.com/romsahel/aliasex/server"
)

func newLSPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Serve the alias commands over the Language Server Protocol on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			level := flagLogLevel
			if level == "" {
				level = "info"
			}
			logger := framework.NewLogger(os.Stderr, level, "aliasex-lsp")
			loader := func(root string) (*server.Workspace, error) {
				cfg, err := loadConfig(root)
				if err != nil {
					return nil, err
				}
				session, err := cliutils.OpenSession(cfg, logger)
				if err != nil {
					return nil, err
				}
				return &server.Workspace{Index: session.Index, Service: session.Service, Close: session.Close}, nil
			}
			srv := server.NewLSPServer(loader, logger)
			return srv.Serve(cmd.Context(), stdio{in: os.Stdin, out: os.Stdout})
		},
	}
}

type stdio struct {
	in  io.ReadCloser
	out io.WriteCloser
}

func (s stdio) Read(p []byte) (int, error)  { return s.in.Read(p) }
func (s stdio) Write(p []byte) (int, error) { return s.out.Write(p) }
func (s stdio) Close() error {
	_ = s.in.Close()
	return s.out.Close()
}

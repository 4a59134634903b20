package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/romsahel/aliasex/cmd/internal/cliutils"
	"github.com/romsahel/aliasex/cmd/internal/workspacecfg"
	"github.com/romsahel/aliasex/framework"
)

var (
	flagWorkspace string
	flagConfig    string
	flagLogLevel  string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		var silent errSilent
		if !errors.As(err, &silent) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "aliasex",
		Short:         "Insert Elixir alias declarations from a workspace module index",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagWorkspace, "workspace", ".", "Workspace root")
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default <workspace>/"+workspacecfg.FileName+")")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(newIndexCmd(), newLookupCmd(), newAddCmd(), newScopeCmd(), newLSPCmd())
	return root
}

// loadConfig reads the workspace config and applies flag overrides.
func loadConfig(workspace string) (*workspacecfg.Config, error) {
	path := flagConfig
	if path == "" {
		path = workspacecfg.ConfigFile(workspace)
	}
	cfg, err := workspacecfg.LoadFile(workspace, path)
	if err != nil {
		return nil, err
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	return cfg, nil
}

func newLogger(cfg *workspacecfg.Config) *log.Logger {
	return framework.NewLogger(os.Stderr, cfg.LogLevel, "aliasex")
}

func openSession() (*cliutils.Session, error) {
	cfg, err := loadConfig(flagWorkspace)
	if err != nil {
		return nil, err
	}
	return cliutils.OpenSession(cfg, newLogger(cfg))
}

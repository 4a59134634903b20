package cliutils

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/romsahel/aliasex/cmd/internal/workspacecfg"
	"github.com/romsahel/aliasex/framework"
	"github.com/romsahel/aliasex/framework/alias"
	"github.com/romsahel/aliasex/tools"
)

// LocatorFactory builds the scope locator for a strategy. The returned
// closer releases any helper process and may be nil.
type LocatorFactory func(cfg *workspacecfg.Config, logger *log.Logger) (alias.Locator, io.Closer, error)

var locatorFactories = map[string]LocatorFactory{}

func init() {
	addLocatorFactory([]string{workspacecfg.StrategyTextual, "regex"}, textualLocator)
	addLocatorFactory([]string{workspacecfg.StrategyStructural, "command"}, structuralLocator)
	addLocatorFactory([]string{workspacecfg.StrategyLSP, "elixir-ls"}, lspLocator)
}

func addLocatorFactory(keys []string, factory LocatorFactory) {
	for _, key := range keys {
		locatorFactories[strings.ToLower(key)] = factory
	}
}

// LookupLocatorFactory finds the factory for a strategy name or alias.
func LookupLocatorFactory(strategy string) (LocatorFactory, bool) {
	factory, ok := locatorFactories[strings.ToLower(strategy)]
	return factory, ok
}

// SupportedStrategies lists known strategy names and aliases.
func SupportedStrategies() []string {
	keys := make([]string, 0, len(locatorFactories))
	for key := range locatorFactories {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// BuildLocator resolves the configured strategy.
func BuildLocator(cfg *workspacecfg.Config, logger *log.Logger) (alias.Locator, io.Closer, error) {
	factory, ok := LookupLocatorFactory(cfg.Locator.Strategy)
	if !ok {
		return nil, nil, fmt.Errorf("unsupported locator strategy %s (known: %s)",
			cfg.Locator.Strategy, strings.Join(SupportedStrategies(), ", "))
	}
	return factory(cfg, logger)
}

func textualLocator(*workspacecfg.Config, *log.Logger) (alias.Locator, io.Closer, error) {
	return alias.TextualLocator, nil, nil
}

func structuralLocator(cfg *workspacecfg.Config, logger *log.Logger) (alias.Locator, io.Closer, error) {
	if len(cfg.Locator.Command) == 0 {
		return nil, nil, fmt.Errorf("locator.command is required for the %s strategy", cfg.Locator.Strategy)
	}
	runner, err := framework.NewLocalCommandRunner(cfg.Workspace, logger)
	if err != nil {
		return nil, nil, err
	}
	provider := &tools.CommandSpanProvider{
		Runner:  runner,
		Command: cfg.Locator.Command,
		Timeout: cfg.Locator.Timeout,
	}
	return alias.StructuralLocator(provider), nil, nil
}

func lspLocator(cfg *workspacecfg.Config, logger *log.Logger) (alias.Locator, io.Closer, error) {
	if len(cfg.Locator.LSPCommand) == 0 {
		return nil, nil, fmt.Errorf("locator.lsp_command is required for the %s strategy", cfg.Locator.Strategy)
	}
	provider := tools.NewLSPSpanProvider(tools.ProcessLSPConfig{
		Command: cfg.Locator.LSPCommand,
		RootDir: cfg.Workspace,
		Timeout: cfg.Locator.Timeout,
	}, logger)
	return alias.StructuralLocator(provider), provider, nil
}

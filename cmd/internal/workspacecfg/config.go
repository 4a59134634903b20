package workspacecfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/romsahel/aliasex/framework/ast"
)

// FileName is the per-workspace configuration file.
const FileName = ".aliasex.yaml"

// Locator strategies.
const (
	StrategyTextual    = "textual"
	StrategyStructural = "structural"
	StrategyLSP        = "lsp"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultIndexCache = ".aliasex/index.db"
	defaultLogLevel   = "info"
)

var defaultIgnore = []string{"_build", ".elixir_ls"}

// Config models the workspace settings.
type Config struct {
	Workspace       string        `yaml:"-"`
	SourceDirs      []string      `yaml:"source_dirs,omitempty"`
	Extensions      []string      `yaml:"extensions,omitempty"`
	Ignore          []string      `yaml:"ignore,omitempty"`
	ParallelWorkers int           `yaml:"parallel_workers,omitempty"`
	Locator         LocatorConfig `yaml:"locator"`
	IndexCache      string        `yaml:"index_cache,omitempty"`
	LogLevel        string        `yaml:"log_level,omitempty"`
}

// LocatorConfig selects how the enclosing module is found.
type LocatorConfig struct {
	Strategy   string        `yaml:"strategy,omitempty"`
	Command    []string      `yaml:"command,omitempty"`
	LSPCommand []string      `yaml:"lsp_command,omitempty"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default(workspace string) *Config {
	cfg := &Config{Workspace: workspace}
	cfg.applyDefaults()
	return cfg
}

// ConfigFile returns the default configuration path for workspace.
func ConfigFile(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// Load reads the workspace configuration. A missing file yields defaults.
func Load(workspace string) (*Config, error) {
	return LoadFile(workspace, ConfigFile(workspace))
}

// LoadFile reads the configuration at path for workspace. Keys absent from
// the file keep their defaults.
func LoadFile(workspace, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(workspace), nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Workspace = workspace
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes the configuration to the workspace file.
func Save(cfg *Config) error {
	if cfg == nil {
		return errors.New("workspace config missing")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(ConfigFile(cfg.Workspace), data, 0o644)
}

func (c *Config) applyDefaults() {
	if c.Workspace == "" {
		c.Workspace = "."
	}
	if len(c.SourceDirs) == 0 {
		c.SourceDirs = append([]string(nil), ast.DefaultSourceDirs...)
	}
	if len(c.Extensions) == 0 {
		c.Extensions = append([]string(nil), ast.DefaultExtensions...)
	}
	if c.Ignore == nil {
		c.Ignore = append([]string(nil), defaultIgnore...)
	}
	if c.ParallelWorkers <= 0 {
		c.ParallelWorkers = 1
	}
	if c.Locator.Strategy == "" {
		c.Locator.Strategy = StrategyTextual
	}
	if c.Locator.Timeout <= 0 {
		c.Locator.Timeout = defaultTimeout
	}
	if c.IndexCache == "" {
		c.IndexCache = defaultIndexCache
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
}

// Validate checks the locator settings.
func (c *Config) Validate() error {
	switch c.Locator.Strategy {
	case StrategyTextual:
	case StrategyStructural:
		if len(c.Locator.Command) == 0 {
			return errors.New("locator.command is required for the structural strategy")
		}
	case StrategyLSP:
		if len(c.Locator.LSPCommand) == 0 {
			return errors.New("locator.lsp_command is required for the lsp strategy")
		}
	default:
		return fmt.Errorf("unknown locator strategy %q", c.Locator.Strategy)
	}
	return nil
}

// IndexCachePath resolves the snapshot database path. An empty result means
// persistence is disabled ("none" in the file).
func (c *Config) IndexCachePath() string {
	if c.IndexCache == "none" {
		return ""
	}
	if filepath.IsAbs(c.IndexCache) {
		return c.IndexCache
	}
	return filepath.Join(c.Workspace, c.IndexCache)
}

// IndexConfig converts the settings for ast.IndexManager.
func (c *Config) IndexConfig() ast.IndexConfig {
	return ast.IndexConfig{
		WorkspacePath:   c.Workspace,
		SourceDirs:      c.SourceDirs,
		Extensions:      c.Extensions,
		IgnorePatterns:  c.Ignore,
		ParallelWorkers: c.ParallelWorkers,
	}
}

package workspacecfg

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models the persisted workspace settings.
type Config struct {
	Workspace       string   `yaml:"-"`
	TabWidth        int      `yaml:"tab_width"`
	DeepDetail      bool     `yaml:"deep_detail"`
	Ignore          []string `yaml:"ignore,omitempty"`
	Extensions      []string `yaml:"extensions,omitempty"`
	IndexDB         string   `yaml:"index_db,omitempty"`
	LogLevel        string   `yaml:"log_level"`
	LogPath         string   `yaml:"log_path,omitempty"`
	ParallelWorkers int      `yaml:"parallel_workers"`
}

// ConfigDir resolves the directory storing workspace settings.
func ConfigDir(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, ".lplsense")
}

// ConfigFile returns the settings file path.
func ConfigFile(workspace string) string {
	return filepath.Join(ConfigDir(workspace), "config.yaml")
}

// DefaultConfig returns the settings used when no file exists.
func DefaultConfig(workspace string) Config {
	return Config{
		Workspace:       workspace,
		TabWidth:        4,
		Extensions:      []string{".busclass", ".keyfield"},
		LogLevel:        "info",
		ParallelWorkers: 4,
	}
}

// Normalize makes paths absolute and fills zero values with defaults.
func (c *Config) Normalize() error {
	if c.Workspace == "" {
		return errors.New("workspace path required")
	}
	abs, err := filepath.Abs(c.Workspace)
	if err != nil {
		return fmt.Errorf("resolve workspace: %w", err)
	}
	c.Workspace = abs
	if c.TabWidth <= 0 {
		c.TabWidth = 4
	}
	if len(c.Extensions) == 0 {
		c.Extensions = []string{".busclass", ".keyfield"}
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.ParallelWorkers <= 0 {
		c.ParallelWorkers = 1
	}
	if c.IndexDB != "" && !filepath.IsAbs(c.IndexDB) {
		c.IndexDB = filepath.Join(c.Workspace, c.IndexDB)
	}
	if c.LogPath != "" && !filepath.IsAbs(c.LogPath) {
		c.LogPath = filepath.Join(c.Workspace, c.LogPath)
	}
	return nil
}

// Load reads the workspace settings. A missing file yields the defaults.
func Load(workspace string) (*Config, error) {
	cfg := DefaultConfig(workspace)
	data, err := os.ReadFile(ConfigFile(workspace))
	if errors.Is(err, os.ErrNotExist) {
		if err := cfg.Normalize(); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ConfigFile(workspace), err)
	}
	cfg.Workspace = workspace
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the settings back to disk.
func Save(cfg *Config) error {
	if cfg == nil {
		return errors.New("workspace config missing")
	}
	if cfg.Workspace == "" {
		return errors.New("workspace path missing")
	}
	if err := os.MkdirAll(ConfigDir(cfg.Workspace), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(ConfigFile(cfg.Workspace), data, 0o644)
}

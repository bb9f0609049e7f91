package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// CurrentVersion is the config schema version written by this build.
const CurrentVersion = 2

// Config represents the complete callmap configuration
type Config struct {
	Version       int    `json:"version" mapstructure:"version"`
	WorkspaceRoot string `json:"workspaceRoot" mapstructure:"workspaceRoot"`

	Graph   GraphConfig   `json:"graph" mapstructure:"graph"`
	Lsp     LspConfig     `json:"lsp" mapstructure:"lsp"`
	Scip    ScipConfig    `json:"scip" mapstructure:"scip"`
	Store   StoreConfig   `json:"store" mapstructure:"store"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// GraphConfig contains call graph build defaults
type GraphConfig struct {
	DefaultDirection string `json:"defaultDirection" mapstructure:"defaultDirection"`
	MaxDepth         int    `json:"maxDepth" mapstructure:"maxDepth"`
	MaxNodes         int    `json:"maxNodes" mapstructure:"maxNodes"`
}

// LspConfig contains language server configuration
type LspConfig struct {
	Enabled          bool                    `json:"enabled" mapstructure:"enabled"`
	Servers          map[string]LspServerCfg `json:"servers" mapstructure:"servers"`
	RequestTimeoutMs int                     `json:"requestTimeoutMs" mapstructure:"requestTimeoutMs"`
	Supervisor       SupervisorConfig        `json:"supervisor" mapstructure:"supervisor"`
}

// LspServerCfg contains configuration for a single language server.
// Entries here override declarations from SERVERS.toml.
type LspServerCfg struct {
	Command string   `json:"command" mapstructure:"command"`
	Args    []string `json:"args" mapstructure:"args"`
}

// SupervisorConfig contains process supervisor limits
type SupervisorConfig struct {
	MaxProcesses   int `json:"maxProcesses" mapstructure:"maxProcesses"`
	QueueSize      int `json:"queueSize" mapstructure:"queueSize"`
	MaxQueueWaitMs int `json:"maxQueueWaitMs" mapstructure:"maxQueueWaitMs"`
}

// ScipConfig contains SCIP index provider configuration
type ScipConfig struct {
	Enabled   bool   `json:"enabled" mapstructure:"enabled"`
	IndexPath string `json:"indexPath" mapstructure:"indexPath"`
}

// StoreConfig contains graph store configuration
type StoreConfig struct {
	Path        string `json:"path" mapstructure:"path"`
	Compression bool   `json:"compression" mapstructure:"compression"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:       CurrentVersion,
		WorkspaceRoot: ".",
		Graph: GraphConfig{
			DefaultDirection: "both",
			MaxDepth:         2,
			MaxNodes:         100,
		},
		Lsp: LspConfig{
			Enabled:          true,
			Servers:          map[string]LspServerCfg{},
			RequestTimeoutMs: 30000,
			Supervisor: SupervisorConfig{
				MaxProcesses:   4,
				QueueSize:      10,
				MaxQueueWaitMs: 200,
			},
		},
		Scip: ScipConfig{
			Enabled:   true,
			IndexPath: "index.scip",
		},
		Store: StoreConfig{
			Path:        ".callmap/callmap.db",
			Compression: true,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from .callmap/config.json under the
// workspace root, falling back to defaults when no file exists.
func LoadConfig(workspaceRoot string) (*Config, error) {
	v := viper.New()

	v.SetDefault("version", CurrentVersion)
	v.SetDefault("workspaceRoot", ".")

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(workspaceRoot, ".callmap"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			cfg := DefaultConfig()
			cfg.WorkspaceRoot = workspaceRoot
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.WorkspaceRoot = workspaceRoot
	applyDefaults(&cfg)

	return &cfg, nil
}

// applyDefaults fills zero values with defaults so partial config files work
func applyDefaults(cfg *Config) {
	def := DefaultConfig()

	if cfg.Graph.DefaultDirection == "" {
		cfg.Graph.DefaultDirection = def.Graph.DefaultDirection
	}
	if cfg.Graph.MaxDepth == 0 {
		cfg.Graph.MaxDepth = def.Graph.MaxDepth
	}
	if cfg.Graph.MaxNodes == 0 {
		cfg.Graph.MaxNodes = def.Graph.MaxNodes
	}
	if cfg.Lsp.RequestTimeoutMs == 0 {
		cfg.Lsp.RequestTimeoutMs = def.Lsp.RequestTimeoutMs
	}
	if cfg.Lsp.Supervisor.MaxProcesses == 0 {
		cfg.Lsp.Supervisor.MaxProcesses = def.Lsp.Supervisor.MaxProcesses
	}
	if cfg.Lsp.Supervisor.QueueSize == 0 {
		cfg.Lsp.Supervisor.QueueSize = def.Lsp.Supervisor.QueueSize
	}
	if cfg.Lsp.Supervisor.MaxQueueWaitMs == 0 {
		cfg.Lsp.Supervisor.MaxQueueWaitMs = def.Lsp.Supervisor.MaxQueueWaitMs
	}
	if cfg.Scip.IndexPath == "" {
		cfg.Scip.IndexPath = def.Scip.IndexPath
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = def.Store.Path
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
}

// Save writes the configuration to .callmap/config.json
func (c *Config) Save(workspaceRoot string) error {
	dir := filepath.Join(workspaceRoot, ".callmap")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0o644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}

	switch c.Graph.DefaultDirection {
	case "both", "callers", "callees":
	default:
		return &ConfigError{Field: "graph.defaultDirection", Message: "must be both, callers, or callees"}
	}

	if c.Graph.MaxDepth < 1 || c.Graph.MaxDepth > 4 {
		return &ConfigError{Field: "graph.maxDepth", Message: "must be between 1 and 4"}
	}

	if c.Graph.MaxNodes < 1 {
		return &ConfigError{Field: "graph.maxNodes", Message: "must be positive"}
	}

	for id, srv := range c.Lsp.Servers {
		if srv.Command == "" {
			return &ConfigError{Field: "lsp.servers." + id + ".command", Message: "command is required"}
		}
	}

	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

// Package config handles configuration loading and management for openswarm.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for openswarm.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Defaults  DefaultsConfig  `mapstructure:"defaults"`
	Optimizer OptimizerConfig `mapstructure:"optimizer"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// DefaultsConfig holds default values for swarm sessions.
type DefaultsConfig struct {
	QueenType          string        `mapstructure:"queen_type"`
	MaxWorkers         int           `mapstructure:"max_workers"`
	ConsensusAlgorithm string        `mapstructure:"consensus_algorithm"`
	AutosaveInterval   time.Duration `mapstructure:"autosave_interval"`
	AgentCommand       string        `mapstructure:"agent_command"`
}

// OptimizerConfig holds execution optimizer tuning parameters.
type OptimizerConfig struct {
	MaxConcurrency   int           `mapstructure:"max_concurrency"`
	MaxBatchSize     int           `mapstructure:"max_batch_size"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
	TuneInterval     time.Duration `mapstructure:"tune_interval"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY)
// 2. Project config (.openswarm.yaml in current directory or parent)
// 3. User config (~/.config/openswarm/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			// Project config takes precedence over the user config
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("")
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("anthropic.use_bedrock", "CLAUDE_CODE_USE_BEDROCK")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.use_bedrock", cfg.Anthropic.UseBedrock)
	v.Set("anthropic.aws_region", cfg.Anthropic.AWSRegion)
	v.Set("anthropic.aws_profile", cfg.Anthropic.AWSProfile)
	v.Set("defaults.queen_type", cfg.Defaults.QueenType)
	v.Set("defaults.max_workers", cfg.Defaults.MaxWorkers)
	v.Set("defaults.consensus_algorithm", cfg.Defaults.ConsensusAlgorithm)
	v.Set("defaults.autosave_interval", cfg.Defaults.AutosaveInterval.String())
	v.Set("defaults.agent_command", cfg.Defaults.AgentCommand)
	v.Set("optimizer.max_concurrency", cfg.Optimizer.MaxConcurrency)
	v.Set("optimizer.max_batch_size", cfg.Optimizer.MaxBatchSize)
	v.Set("optimizer.operation_timeout", cfg.Optimizer.OperationTimeout.String())
	v.Set("optimizer.tune_interval", cfg.Optimizer.TuneInterval.String())
	v.Set("optimizer.cache_ttl", cfg.Optimizer.CacheTTL.String())

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	// Anthropic defaults
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.use_bedrock", false)

	// Session defaults
	v.SetDefault("defaults.queen_type", "strategic")
	v.SetDefault("defaults.max_workers", 5)
	v.SetDefault("defaults.consensus_algorithm", "majority")
	v.SetDefault("defaults.autosave_interval", "30s")
	v.SetDefault("defaults.agent_command", "claude")

	// Optimizer defaults
	v.SetDefault("optimizer.max_concurrency", 10)
	v.SetDefault("optimizer.max_batch_size", 10)
	v.SetDefault("optimizer.operation_timeout", "30s")
	v.SetDefault("optimizer.tune_interval", "10s")
	v.SetDefault("optimizer.cache_ttl", "30s")
}

// getUserConfigDir returns the XDG config directory for openswarm.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "openswarm")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "openswarm")
	}
	return filepath.Join(home, ".config", "openswarm")
}

// findProjectConfig searches for .openswarm.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".openswarm.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Defaults: DefaultsConfig{
			QueenType:          "strategic",
			MaxWorkers:         5,
			ConsensusAlgorithm: "majority",
			AutosaveInterval:   30 * time.Second,
			AgentCommand:       "claude",
		},
		Optimizer: OptimizerConfig{
			MaxConcurrency:   10,
			MaxBatchSize:     10,
			OperationTimeout: 30 * time.Second,
			TuneInterval:     10 * time.Second,
			CacheTTL:         30 * time.Second,
		},
	}
}

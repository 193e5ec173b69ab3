package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Defaults.QueenType != "strategic" {
		t.Errorf("expected default queen type 'strategic', got %q", cfg.Defaults.QueenType)
	}

	if cfg.Defaults.MaxWorkers != 5 {
		t.Errorf("expected default max workers 5, got %d", cfg.Defaults.MaxWorkers)
	}

	if cfg.Defaults.ConsensusAlgorithm != "majority" {
		t.Errorf("expected default consensus algorithm 'majority', got %q", cfg.Defaults.ConsensusAlgorithm)
	}

	if cfg.Defaults.AutosaveInterval != 30*time.Second {
		t.Errorf("expected autosave interval 30s, got %v", cfg.Defaults.AutosaveInterval)
	}

	if cfg.Optimizer.MaxConcurrency != 10 {
		t.Errorf("expected max concurrency 10, got %d", cfg.Optimizer.MaxConcurrency)
	}

	if cfg.Optimizer.OperationTimeout != 30*time.Second {
		t.Errorf("expected operation timeout 30s, got %v", cfg.Optimizer.OperationTimeout)
	}
}

func TestLoadFromPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
anthropic:
  api_key: test-key
defaults:
  queen_type: tactical
  max_workers: 8
  consensus_algorithm: weighted
  autosave_interval: 1m
optimizer:
  max_concurrency: 20
  operation_timeout: 45s
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Anthropic.APIKey != "test-key" {
		t.Errorf("expected api_key 'test-key', got %q", cfg.Anthropic.APIKey)
	}

	if cfg.Defaults.QueenType != "tactical" {
		t.Errorf("expected queen type 'tactical', got %q", cfg.Defaults.QueenType)
	}

	if cfg.Defaults.MaxWorkers != 8 {
		t.Errorf("expected max workers 8, got %d", cfg.Defaults.MaxWorkers)
	}

	if cfg.Defaults.AutosaveInterval != time.Minute {
		t.Errorf("expected autosave interval 1m, got %v", cfg.Defaults.AutosaveInterval)
	}

	if cfg.Optimizer.MaxConcurrency != 20 {
		t.Errorf("expected max concurrency 20, got %d", cfg.Optimizer.MaxConcurrency)
	}

	if cfg.Optimizer.OperationTimeout != 45*time.Second {
		t.Errorf("expected operation timeout 45s, got %v", cfg.Optimizer.OperationTimeout)
	}

	// Values not set in the file keep their defaults
	if cfg.Optimizer.MaxBatchSize != 10 {
		t.Errorf("expected default max batch size 10, got %d", cfg.Optimizer.MaxBatchSize)
	}

	if cfg.Defaults.AgentCommand != "claude" {
		t.Errorf("expected default agent command 'claude', got %q", cfg.Defaults.AgentCommand)
	}
}

func TestLoadFromPath_MissingFile(t *testing.T) {
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestExpandEnv(t *testing.T) {
	os.Setenv("OPENSWARM_TEST_KEY", "expanded-value")
	defer os.Unsetenv("OPENSWARM_TEST_KEY")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := `
anthropic:
  api_key: ${OPENSWARM_TEST_KEY}
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Anthropic.APIKey != "expanded-value" {
		t.Errorf("expected expanded api key, got %q", cfg.Anthropic.APIKey)
	}
}

func TestGetUserConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")

	got := GetUserConfigPath()
	want := filepath.Join("/custom/config", "openswarm", "config.yaml")
	if got != want {
		t.Errorf("GetUserConfigPath() = %q, want %q", got, want)
	}
}

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yte121/openswarm/internal/store"
)

// CheckAgentCLI verifies that the configured agent CLI is available in PATH.
// Returns an error with installation instructions if not found.
func CheckAgentCLI(command string) error {
	if command == "" {
		command = "claude"
	}
	_, err := exec.LookPath(command)
	if err != nil {
		return fmt.Errorf("%s CLI not found in PATH\n\n"+
			"openswarm spawns coding agents through an external CLI.\n\n"+
			"For the default Claude Code CLI, install it with:\n"+
			"  npm install -g @anthropic-ai/claude-code\n\n"+
			"Or point defaults.agent_command at a different binary.", command)
	}
	return nil
}

var rootCmd = &cobra.Command{
	Use:   "openswarm",
	Short: "Swarm orchestrator for coding agents",
	Long: `openswarm coordinates a queen-led swarm of coding agents on a shared
objective. The queen decomposes the objective into tasks, workers pick
them up in priority order, and everything the swarm learns lands in a
persistent collective memory.

Sessions survive process restarts: pause a swarm, come back later, and
resume exactly where it left off from the last checkpoint.

Core capabilities:
- Decomposes objectives into prioritized, parallelizable tasks
- Spawns worker agents as external CLI processes
- Batches and paces agent operations through an execution optimizer
- Records consensus decisions across agents
- Checkpoints session state for pause/resume`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(spawnCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(versionCmd)
}

// openStore opens the project database when one exists, falling back to
// the global database, and brings the schema up to date.
func openStore() (*store.DB, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	dbPath := store.ProjectDBPath(cwd)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		dbPath = store.GlobalDBPath()
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

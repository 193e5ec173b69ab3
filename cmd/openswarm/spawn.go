package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yte121/openswarm/internal/api"
	"github.com/yte121/openswarm/internal/config"
	"github.com/yte121/openswarm/internal/coordinator"
	"github.com/yte121/openswarm/internal/optimizer"
	"github.com/yte121/openswarm/internal/session"
	"github.com/yte121/openswarm/internal/store"
)

var (
	spawnName       string
	spawnQueenType  string
	spawnMaxWorkers int
	spawnConsensus  string
	spawnAutoScale  bool
	spawnWorkers    bool
	spawnWait       bool
)

var spawnCmd = &cobra.Command{
	Use:   "spawn <objective>",
	Short: "Spawn a swarm on an objective",
	Long: `Spawn a queen-led swarm to work on an objective.

The queen decomposes the objective into prioritized tasks and assigns
them to worker agents. With --workers, each worker is launched as a
real agent CLI process; without it, tasks are staged in the database
for later execution.

With --wait, the command stays in the foreground and watches for
control signals: Ctrl+C pauses the session with a checkpoint, a second
Ctrl+C stops it and kills the workers.

Examples:
  openswarm spawn "add rate limiting to the API"
  openswarm spawn "migrate auth to OAuth" --name auth --max-workers 3
  openswarm spawn "fix flaky tests" --workers --wait`,
	Args: cobra.ExactArgs(1),
	RunE: runSpawn,
}

func init() {
	spawnCmd.Flags().StringVar(&spawnName, "name", "", "Swarm name (defaults to a truncated objective)")
	spawnCmd.Flags().StringVar(&spawnQueenType, "queen-type", "", "Queen type: strategic or tactical")
	spawnCmd.Flags().IntVar(&spawnMaxWorkers, "max-workers", 0, "Maximum worker agents")
	spawnCmd.Flags().StringVar(&spawnConsensus, "consensus", "", "Consensus algorithm: majority, weighted, or byzantine")
	spawnCmd.Flags().BoolVar(&spawnAutoScale, "auto-scale", true, "Auto-tune optimizer concurrency and batch size")
	spawnCmd.Flags().BoolVar(&spawnWorkers, "workers", false, "Launch real agent CLI processes")
	spawnCmd.Flags().BoolVar(&spawnWait, "wait", false, "Stay attached and watch for pause/kill signals")
}

func runSpawn(cmd *cobra.Command, args []string) error {
	objective := args[0]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if spawnWorkers {
		if err := CheckAgentCLI(cfg.Defaults.AgentCommand); err != nil {
			return err
		}
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	opt := optimizer.New(optimizer.Config{
		MaxConcurrency:   cfg.Optimizer.MaxConcurrency,
		MaxBatchSize:     cfg.Optimizer.MaxBatchSize,
		OperationTimeout: cfg.Optimizer.OperationTimeout,
		TuneInterval:     cfg.Optimizer.TuneInterval,
		DisableAutoTune:  !spawnAutoScale,
	})
	defer opt.Stop()

	runner := buildRunner(cfg)

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	consensus := cfg.Defaults.ConsensusAlgorithm
	if spawnConsensus != "" {
		consensus = spawnConsensus
	}
	algorithm, err := store.ParseConsensusAlgorithm(consensus)
	if err != nil {
		return err
	}

	opts := coordinator.Options{
		QueenType:        cfg.Defaults.QueenType,
		MaxWorkers:       cfg.Defaults.MaxWorkers,
		Consensus:        algorithm,
		AutosaveInterval: cfg.Defaults.AutosaveInterval,
		AgentCommand:     cfg.Defaults.AgentCommand,
		WorkDir:          cwd,
		SpawnProcesses:   spawnWorkers,
	}
	if spawnQueenType != "" {
		opts.QueenType = spawnQueenType
	}
	if spawnMaxWorkers > 0 {
		opts.MaxWorkers = spawnMaxWorkers
	}

	name := spawnName
	if name == "" {
		name = truncateName(objective, 40)
	}

	coord := coordinator.New(db, opt, runner, opts)
	swarm, err := coord.Spawn(cmd.Context(), name, objective)
	if err != nil {
		return fmt.Errorf("spawn swarm: %w", err)
	}

	fmt.Printf("\n%s Swarm %s spawned\n", color.GreenString("✓"), color.CyanString(shortID(swarm.ID)))

	tasks, err := db.ListTasksBySwarm(swarm.ID)
	if err == nil {
		fmt.Printf("\nTasks (%d):\n", len(tasks))
		for _, t := range tasks {
			fmt.Printf("  [p%d] %s\n", t.Priority, t.Description)
		}
	}

	if !spawnWait {
		fmt.Println("\nTrack progress with 'openswarm status', stop with 'openswarm stop'.")
		return nil
	}

	return waitForSession(cmd.Context(), db, coord.Session(), cwd)
}

// buildRunner creates the API runner when credentials are available.
// A nil runner falls back to static task decomposition.
func buildRunner(cfg *config.Config) *api.Runner {
	key, err := config.GetAPIKey(cfg)
	if err != nil && errors.Is(err, config.ErrNoAPIKey) {
		return nil
	}

	client, err := api.NewClient(api.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        key,
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		fmt.Printf("%s API client unavailable, using static decomposition: %v\n",
			color.YellowString("⚠"), err)
		return nil
	}
	return api.NewRunner(client)
}

// waitForSession blocks until the session leaves the active and paused
// states, reacting to interrupt and signal-file control. The first
// interrupt pauses with a checkpoint; the second stops the session.
func waitForSession(ctx context.Context, db *store.DB, manager *session.Manager, projectRoot string) error {
	watcher, err := session.NewSignalWatcher(manager, projectRoot)
	if err != nil {
		return fmt.Errorf("start signal watcher: %w", err)
	}
	defer watcher.Close()

	interrupts := make(chan os.Signal, 2)
	signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupts)

	fmt.Println("\nAttached. Ctrl+C to pause, twice to stop.")

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	paused := false
	for {
		select {
		case <-ctx.Done():
			return manager.Stop()
		case <-interrupts:
			if paused {
				fmt.Printf("\n%s Stopping session\n", color.YellowString("⚠"))
				return manager.Stop()
			}
			if err := manager.Pause(); err != nil {
				return fmt.Errorf("pause session: %w", err)
			}
			paused = true
			fmt.Printf("\n%s Session paused. Ctrl+C again to stop, or resume with 'openswarm resume %s'.\n",
				color.YellowString("⚠"), shortID(manager.SessionID()))
		case <-ticker.C:
			sess, err := db.GetSession(manager.SessionID())
			if err != nil {
				return err
			}
			if sess.Status == store.SessionStopped {
				fmt.Printf("%s Session stopped\n", color.GreenString("✓"))
				return nil
			}
		}
	}
}

// truncateName shortens an objective into a display name.
func truncateName(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// shortID truncates an ID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yte121/openswarm/internal/config"
	"github.com/yte121/openswarm/internal/session"
	"github.com/yte121/openswarm/internal/store"
)

var stopSignal bool

var stopCmd = &cobra.Command{
	Use:   "stop [session-id]",
	Short: "Stop a session and its workers",
	Long: `Stop a session: checkpoint it, kill its worker processes, and mark
it and its swarm stopped. The session id is terminal after stopping;
resuming it later restarts the swarm under a fresh session.

Without an argument, stops the most recent active or paused session.

With --signal, a kill file is written for an attached 'spawn --wait'
process to pick up instead of stopping directly. Use this when the
spawning process is still running in another terminal.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStop,
}

func init() {
	stopCmd.Flags().BoolVar(&stopSignal, "signal", false, "Signal an attached process instead of stopping directly")
}

func runStop(cmd *cobra.Command, args []string) error {
	if stopSignal {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
		if err := session.SendKill(cwd); err != nil {
			return fmt.Errorf("write kill signal: %w", err)
		}
		fmt.Printf("%s Kill signal written\n", color.GreenString("✓"))
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	var sess *store.Session
	if len(args) > 0 {
		sess, err = resolveSession(db, args[0])
		if err != nil {
			return err
		}
	} else {
		sess, err = latestStoppableSession(db)
		if err != nil {
			return err
		}
		if sess == nil {
			fmt.Println("No active or paused session to stop.")
			return nil
		}
	}

	manager := session.NewManager(db, cfg.Defaults.AutosaveInterval)
	if _, err := manager.Attach(sess.ID); err != nil {
		return err
	}
	if err := manager.Stop(); err != nil {
		return err
	}

	fmt.Printf("%s Session %s stopped\n", color.GreenString("✓"), shortID(sess.ID))
	return nil
}

// latestStoppableSession returns the newest active or paused session.
func latestStoppableSession(db *store.DB) (*store.Session, error) {
	sessions, err := db.ListSessions(nil)
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		if sessions[i].Status == store.SessionActive || sessions[i].Status == store.SessionPaused {
			return &sessions[i], nil
		}
	}
	return nil, nil
}

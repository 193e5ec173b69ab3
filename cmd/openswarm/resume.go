package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yte121/openswarm/internal/config"
	"github.com/yte121/openswarm/internal/session"
	"github.com/yte121/openswarm/internal/store"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <session-id>",
	Short: "Resume a session",
	Long: `Resume a session from its last checkpoint.

Accepts a full session ID or the short prefix shown by
'openswarm sessions'. The session's aggregates are recomputed from the
database, so resuming works across process restarts. Resuming a
stopped session restarts the swarm under a fresh session.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func runResume(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	sess, err := resolveSession(db, args[0])
	if err != nil {
		return err
	}

	manager := session.NewManager(db, cfg.Defaults.AutosaveInterval)
	if _, err := manager.Attach(sess.ID); err != nil {
		return err
	}

	stats, err := manager.Resume()
	if err != nil {
		return err
	}

	fmt.Printf("%s Session %s resumed\n", color.GreenString("✓"), shortID(sess.ID))
	fmt.Printf("  Agents: %d active / %d total\n", stats.ActiveAgents, stats.TotalAgents)
	fmt.Printf("  Tasks: %d done, %d running, %d pending (%.1f%%)\n",
		stats.Tasks.Completed, stats.Tasks.InProgress, stats.Tasks.Pending,
		stats.CompletionPercent)
	return nil
}

// resolveSession finds a session by full ID or unique short prefix.
func resolveSession(db *store.DB, ref string) (*store.Session, error) {
	if sess, err := db.GetSession(ref); err == nil {
		return sess, nil
	}

	sessions, err := db.ListSessions(nil)
	if err != nil {
		return nil, err
	}

	var match *store.Session
	for i := range sessions {
		if strings.HasPrefix(sessions[i].ID, ref) {
			if match != nil {
				return nil, fmt.Errorf("session prefix %q is ambiguous", ref)
			}
			match = &sessions[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("session %q not found", ref)
	}
	return match, nil
}

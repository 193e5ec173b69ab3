package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yte121/openswarm/internal/store"
)

var sessionsStatus string

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List swarm sessions",
	Long: `List all sessions, newest first.

Each line shows the session ID, its swarm, status, and when it started.
Paused sessions can be resumed with 'openswarm resume <session-id>'.`,
	RunE: runSessions,
}

func init() {
	sessionsCmd.Flags().StringVar(&sessionsStatus, "status", "", "Filter by status: active, paused, or stopped")
}

func runSessions(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	var filter *store.SessionStatus
	if sessionsStatus != "" {
		status, err := store.ParseSessionStatus(sessionsStatus)
		if err != nil {
			return err
		}
		filter = &status
	}

	sessions, err := db.ListSessions(filter)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions. Run 'openswarm spawn <objective>' to start.")
		return nil
	}

	fmt.Printf("%-10s %-24s %-8s %s\n", "SESSION", "SWARM", "STATUS", "STARTED")
	for _, s := range sessions {
		swarmName := shortID(s.SwarmID)
		if swarm, err := db.GetSwarm(s.SwarmID); err == nil && swarm != nil {
			swarmName = swarm.Name
		}
		if len(swarmName) > 24 {
			swarmName = swarmName[:21] + "..."
		}
		fmt.Printf("%-10s %-24s %-8s %s ago\n",
			shortID(s.ID), swarmName, s.Status, formatDuration(time.Since(s.CreatedAt)))
	}
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	return fmt.Sprintf("%dd", days)
}

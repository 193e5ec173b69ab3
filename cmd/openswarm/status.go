package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yte121/openswarm/internal/session"
	"github.com/yte121/openswarm/internal/store"
	"github.com/yte121/openswarm/internal/tui"
)

var (
	statusSwarmID string
	statusWatch   bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current swarm state",
	Long: `Display the current state of the most recent swarm.

Shows:
  - Session status and progress
  - Agent and task counts
  - Collective memory and consensus decision totals

With --watch, a live terminal view refreshes every second.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusSwarmID, "swarm", "", "Swarm ID (defaults to the most recent)")
	statusCmd.Flags().BoolVar(&statusWatch, "watch", false, "Live terminal view")
}

func runStatus(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	swarm, err := pickSwarm(db, statusSwarmID)
	if err != nil {
		return err
	}
	if swarm == nil {
		fmt.Println("No swarms yet. Run 'openswarm spawn <objective>' to start.")
		return nil
	}

	if statusWatch {
		return tui.Run(func() (tui.Snapshot, error) {
			return fetchSnapshot(db, swarm.ID)
		}, time.Second)
	}

	snap, err := fetchSnapshot(db, swarm.ID)
	if err != nil {
		return err
	}
	displayStatus(swarm, snap)
	return nil
}

// pickSwarm resolves the swarm to display: an explicit ID, or the most
// recently created one.
func pickSwarm(db *store.DB, id string) (*store.Swarm, error) {
	if id != "" {
		swarm, err := db.GetSwarm(id)
		if err != nil {
			return nil, err
		}
		if swarm == nil {
			return nil, fmt.Errorf("swarm %s not found", id)
		}
		return swarm, nil
	}

	swarms, err := db.ListSwarms(nil)
	if err != nil {
		return nil, err
	}
	if len(swarms) == 0 {
		return nil, nil
	}
	return &swarms[0], nil
}

// fetchSnapshot assembles the state a status view needs in one call.
func fetchSnapshot(db *store.DB, swarmID string) (tui.Snapshot, error) {
	swarm, err := db.GetSwarm(swarmID)
	if err != nil {
		return tui.Snapshot{}, err
	}
	if swarm == nil {
		return tui.Snapshot{}, fmt.Errorf("swarm %s not found", swarmID)
	}

	stats, err := session.ComputeStats(db, swarmID)
	if err != nil {
		return tui.Snapshot{}, err
	}

	snap := tui.Snapshot{
		SwarmName: swarm.Name,
		Stats:     *stats,
	}

	sess, err := db.GetActiveSessionForSwarm(swarmID)
	if err != nil {
		return tui.Snapshot{}, err
	}
	if sess != nil {
		snap.SessionID = sess.ID
		snap.SessionStatus = sess.Status
	} else {
		snap.SessionStatus = store.SessionStopped
	}

	return snap, nil
}

// displayStatus prints a one-shot status report.
func displayStatus(swarm *store.Swarm, snap tui.Snapshot) {
	stats := snap.Stats

	fmt.Printf("Swarm: %s (%s)\n", swarm.Name, shortID(swarm.ID))
	fmt.Printf("  Objective: %s\n", swarm.Objective)
	fmt.Printf("  Status: %s\n", colorSwarmStatus(swarm.Status))
	if snap.SessionID != "" {
		fmt.Printf("  Session: %s (%s)\n", shortID(snap.SessionID), snap.SessionStatus)
	} else {
		fmt.Println("  Session: none")
	}
	fmt.Printf("  Agents: %d active / %d total\n", stats.ActiveAgents, stats.TotalAgents)
	fmt.Printf("  Tasks: %d done, %d running, %d pending, %d failed (%.1f%%)\n",
		stats.Tasks.Completed, stats.Tasks.InProgress, stats.Tasks.Pending,
		stats.Tasks.Failed, stats.CompletionPercent)
	fmt.Printf("  Memory: %d entries\n", stats.MemoryEntries)
	fmt.Printf("  Decisions: %d\n", stats.Decisions)
}

// colorSwarmStatus renders a swarm status with color.
func colorSwarmStatus(status store.SwarmStatus) string {
	switch status {
	case store.SwarmActive:
		return color.GreenString(string(status))
	case store.SwarmPaused:
		return color.YellowString(string(status))
	default:
		return color.RedString(string(status))
	}
}

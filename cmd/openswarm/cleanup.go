package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var cleanupOlderThan time.Duration

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Purge old swarms and their data",
	Long: `Delete swarms older than the cutoff, along with their agents,
tasks, collective memory, decisions, sessions, and checkpoints.

This is the only operation that hard-deletes rows. Stale collective
memory inside a live swarm is never deleted, only reported.`,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().DurationVar(&cleanupOlderThan, "older-than", 30*24*time.Hour, "Purge swarms created before this cutoff")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	purged, err := db.PurgeOldSwarms(cleanupOlderThan)
	if err != nil {
		return fmt.Errorf("purge old swarms: %w", err)
	}

	if purged == 0 {
		fmt.Println("Nothing to purge.")
		return nil
	}
	fmt.Printf("%s Purged %d swarm(s) older than %s\n",
		color.GreenString("✓"), purged, cleanupOlderThan)
	return nil
}

package session

import (
	"fmt"

	"github.com/yte121/openswarm/internal/store"
)

// Stats summarizes a swarm's progress for display and checkpointing.
// All fields are plain counts and percentages; formatting is the caller's job.
type Stats struct {
	SwarmID           string              `json:"swarm_id"`
	SwarmStatus       store.SwarmStatus   `json:"swarm_status"`
	TotalAgents       int                 `json:"total_agents"`
	ActiveAgents      int                 `json:"active_agents"`
	Tasks             store.TaskBreakdown `json:"tasks"`
	CompletionPercent float64             `json:"completion_percent"`
	MemoryEntries     int                 `json:"memory_entries"`
	Decisions         int                 `json:"decisions"`
}

// ComputeStats recomputes swarm aggregates from the store. It is used for
// checkpoint payloads and again on resume, so a restarted process rebuilds
// the same numbers from rows alone.
func ComputeStats(db store.Store, swarmID string) (*Stats, error) {
	swarm, err := db.GetSwarm(swarmID)
	if err != nil {
		return nil, err
	}
	if swarm == nil {
		return nil, fmt.Errorf("swarm %s not found", swarmID)
	}

	agentCounts, err := db.CountAgentsByStatus(swarmID)
	if err != nil {
		return nil, err
	}
	breakdown, err := db.TaskBreakdownBySwarm(swarmID)
	if err != nil {
		return nil, err
	}
	memory, err := db.ListMemoryBySwarm(swarmID)
	if err != nil {
		return nil, err
	}
	decisions, err := db.ListDecisionsBySwarm(swarmID)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		SwarmID:       swarmID,
		SwarmStatus:   swarm.Status,
		Tasks:         breakdown,
		MemoryEntries: len(memory),
		Decisions:     len(decisions),
	}
	for status, n := range agentCounts {
		stats.TotalAgents += n
		if status == store.AgentActive || status == store.AgentBusy {
			stats.ActiveAgents += n
		}
	}
	if total := breakdown.Total(); total > 0 {
		stats.CompletionPercent = float64(breakdown.Completed) / float64(total) * 100
	}
	return stats, nil
}

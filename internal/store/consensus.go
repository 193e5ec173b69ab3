package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// VoteRecord holds both views of a decision's ballot: the tallied score
// per option (weights under the weighted algorithm, plain counts
// otherwise) and the per-voter detail.
type VoteRecord struct {
	Counts map[string]float64 `json:"counts"`
	Voters map[string]string  `json:"voters"`
}

// ConsensusDecision is an immutable record of a settled vote. Decisions are
// only ever inserted and listed; there is no update path.
type ConsensusDecision struct {
	ID         string             `json:"id"`
	SwarmID    string             `json:"swarm_id"`
	Topic      string             `json:"topic"`
	Decision   string             `json:"decision"`
	Votes      VoteRecord         `json:"votes"`
	Algorithm  ConsensusAlgorithm `json:"algorithm"`
	Confidence float64            `json:"confidence"`
	CreatedAt  time.Time          `json:"created_at"`
}

// RecordDecision persists a consensus decision. Votes are stored as a JSON
// object carrying the per-option counts and the per-voter choices.
func (db *DB) RecordDecision(d *ConsensusDecision) error {
	if _, err := ParseConsensusAlgorithm(string(d.Algorithm)); err != nil {
		return err
	}
	votes, _ := json.Marshal(d.Votes)

	_, err := db.Exec(`
		INSERT INTO consensus_decisions (id, swarm_id, topic, decision, votes, algorithm, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, d.ID, d.SwarmID, d.Topic, d.Decision, string(votes), string(d.Algorithm), d.Confidence, formatTime(d.CreatedAt))
	if err != nil {
		return fmt.Errorf("record decision: %w", err)
	}
	return nil
}

// ListDecisionsBySwarm lists consensus decisions for a swarm, newest first.
func (db *DB) ListDecisionsBySwarm(swarmID string) ([]ConsensusDecision, error) {
	rows, err := db.Query(`
		SELECT id, swarm_id, topic, decision, votes, algorithm, confidence, created_at
		FROM consensus_decisions WHERE swarm_id = ? ORDER BY created_at DESC
	`, swarmID)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var decisions []ConsensusDecision
	for rows.Next() {
		var d ConsensusDecision
		var votes, createdAt string
		if err := rows.Scan(&d.ID, &d.SwarmID, &d.Topic, &d.Decision, &votes, &d.Algorithm, &d.Confidence, &createdAt); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		if votes != "" {
			json.Unmarshal([]byte(votes), &d.Votes)
		}
		d.CreatedAt, _ = parseTime(createdAt)
		decisions = append(decisions, d)
	}
	return decisions, nil
}

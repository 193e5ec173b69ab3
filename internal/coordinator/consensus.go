package coordinator

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yte121/openswarm/internal/store"
)

// Vote is one agent's choice on a topic. Weight only matters under the
// weighted algorithm; it defaults to 1.
type Vote struct {
	AgentID string
	Option  string
	Weight  float64
}

// Decide tallies votes under the given algorithm, records the outcome as
// an immutable decision row, and returns it. An empty algorithm uses the
// coordinator's configured default. Byzantine tallying falls back to a
// majority count; the stored row still names the requested algorithm.
func (c *Coordinator) Decide(topic string, votes []Vote, algorithm store.ConsensusAlgorithm) (*store.ConsensusDecision, error) {
	if algorithm == "" {
		algorithm = c.opts.Consensus
	}
	if _, err := store.ParseConsensusAlgorithm(string(algorithm)); err != nil {
		return nil, err
	}
	if len(votes) == 0 {
		return nil, fmt.Errorf("no votes for topic %q", topic)
	}

	tally := make(map[string]float64)
	var total float64
	for _, v := range votes {
		weight := 1.0
		if algorithm == store.ConsensusWeighted && v.Weight > 0 {
			weight = v.Weight
		}
		tally[v.Option] += weight
		total += weight
	}

	var winner string
	var best float64
	for option, score := range tally {
		if score > best || (score == best && option < winner) {
			winner = option
			best = score
		}
	}

	voters := make(map[string]string, len(votes))
	for _, v := range votes {
		voters[v.AgentID] = v.Option
	}

	decision := &store.ConsensusDecision{
		ID:         uuid.New().String(),
		SwarmID:    c.swarmID,
		Topic:      topic,
		Decision:   winner,
		Votes:      store.VoteRecord{Counts: tally, Voters: voters},
		Algorithm:  algorithm,
		Confidence: best / total,
		CreatedAt:  time.Now(),
	}
	if err := c.db.RecordDecision(decision); err != nil {
		return nil, err
	}
	return decision, nil
}

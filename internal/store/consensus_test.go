package store

import (
	"testing"
	"time"
)

func TestRecordAndListDecisions(t *testing.T) {
	db := setupTestDB(t)
	makeSwarm(t, db, "sw1")

	d := &ConsensusDecision{
		ID:       "dec-1",
		SwarmID:  "sw1",
		Topic:    "storage engine",
		Decision: "sqlite",
		Votes: VoteRecord{
			Counts: map[string]float64{"sqlite": 2, "postgres": 1},
			Voters: map[string]string{
				"agent-1": "sqlite",
				"agent-2": "sqlite",
				"agent-3": "postgres",
			},
		},
		Algorithm:  ConsensusMajority,
		Confidence: 0.67,
		CreatedAt:  time.Now(),
	}
	if err := db.RecordDecision(d); err != nil {
		t.Fatalf("RecordDecision failed: %v", err)
	}

	decisions, err := db.ListDecisionsBySwarm("sw1")
	if err != nil {
		t.Fatalf("ListDecisionsBySwarm failed: %v", err)
	}
	if len(decisions) != 1 {
		t.Fatalf("decisions = %d, want 1", len(decisions))
	}

	got := decisions[0]
	if got.Decision != "sqlite" || got.Algorithm != ConsensusMajority {
		t.Errorf("decision mismatch: %+v", got)
	}
	if len(got.Votes.Voters) != 3 || got.Votes.Voters["agent-3"] != "postgres" {
		t.Errorf("voters mismatch: %v", got.Votes.Voters)
	}
	if got.Votes.Counts["sqlite"] != 2 || got.Votes.Counts["postgres"] != 1 {
		t.Errorf("counts mismatch: %v", got.Votes.Counts)
	}
}

func TestRecordDecision_InvalidAlgorithm(t *testing.T) {
	db := setupTestDB(t)
	makeSwarm(t, db, "sw1")

	d := &ConsensusDecision{
		ID: "dec-bad", SwarmID: "sw1", Topic: "t", Decision: "d",
		Algorithm: "quorum", CreatedAt: time.Now(),
	}
	if err := db.RecordDecision(d); err == nil {
		t.Error("expected error for invalid algorithm")
	}
}

func TestListDecisions_NewestFirst(t *testing.T) {
	db := setupTestDB(t)
	makeSwarm(t, db, "sw1")

	base := time.Now().Add(-time.Minute)
	for i, id := range []string{"dec-1", "dec-2"} {
		d := &ConsensusDecision{
			ID: id, SwarmID: "sw1", Topic: "t", Decision: "d",
			Algorithm: ConsensusWeighted, Confidence: 1,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := db.RecordDecision(d); err != nil {
			t.Fatalf("RecordDecision failed: %v", err)
		}
	}

	decisions, err := db.ListDecisionsBySwarm("sw1")
	if err != nil {
		t.Fatalf("ListDecisionsBySwarm failed: %v", err)
	}
	if decisions[0].ID != "dec-2" {
		t.Errorf("first = %s, want dec-2", decisions[0].ID)
	}
}

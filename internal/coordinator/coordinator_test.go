package coordinator

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yte121/openswarm/internal/api"
	"github.com/yte121/openswarm/internal/optimizer"
	"github.com/yte121/openswarm/internal/store"
)

func setupCoordinator(t *testing.T) (*Coordinator, *store.DB) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store failed: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	opt := optimizer.New(optimizer.Config{TuneInterval: time.Hour})
	t.Cleanup(opt.Stop)

	c := New(db, opt, nil, Options{
		QueenType:        "strategic",
		MaxWorkers:       5,
		AutosaveInterval: time.Hour,
	})
	return c, db
}

func TestSpawn(t *testing.T) {
	c, db := setupCoordinator(t)

	swarm, err := c.Spawn(context.Background(), "widgets", "build the widget service")
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}
	if swarm.Status != store.SwarmActive {
		t.Errorf("swarm status = %s, want active", swarm.Status)
	}

	agents, err := db.ListAgentsBySwarm(swarm.ID)
	if err != nil {
		t.Fatalf("ListAgentsBySwarm failed: %v", err)
	}
	// static decomposition: 1 queen + 3 workers
	if len(agents) != 4 {
		t.Fatalf("agents = %d, want 4", len(agents))
	}
	queens := 0
	for _, a := range agents {
		if a.Role == store.RoleQueen {
			queens++
		}
	}
	if queens != 1 {
		t.Errorf("queens = %d, want exactly 1", queens)
	}

	tasks, err := db.ListTasksBySwarm(swarm.ID)
	if err != nil {
		t.Fatalf("ListTasksBySwarm failed: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("tasks = %d, want 3", len(tasks))
	}
	for _, task := range tasks {
		if task.Status != store.TaskInProgress || task.AgentID == "" {
			t.Errorf("task %s not assigned: status=%s agent=%q", task.ID, task.Status, task.AgentID)
		}
	}

	sess, err := db.GetActiveSessionForSwarm(swarm.ID)
	if err != nil {
		t.Fatalf("GetActiveSessionForSwarm failed: %v", err)
	}
	if sess == nil || sess.Status != store.SessionActive {
		t.Errorf("session = %+v, want active", sess)
	}
}

func TestSpawn_MaxWorkersCap(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store failed: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	opt := optimizer.New(optimizer.Config{TuneInterval: time.Hour})
	t.Cleanup(opt.Stop)

	c := New(db, opt, nil, Options{MaxWorkers: 2, AutosaveInterval: time.Hour})
	swarm, err := c.Spawn(context.Background(), "small", "do a thing")
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}

	tasks, _ := db.ListTasksBySwarm(swarm.ID)
	if len(tasks) != 2 {
		t.Errorf("tasks = %d, want capped at 2", len(tasks))
	}
}

// brokenStatusStore rejects every agent status update.
type brokenStatusStore struct {
	store.Store
}

func (s *brokenStatusStore) UpdateAgentStatus(id string, status store.AgentStatus) error {
	return errors.New("status update rejected")
}

func TestSpawn_StatusUpdateFailurePropagates(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store failed: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	opt := optimizer.New(optimizer.Config{TuneInterval: time.Hour})
	t.Cleanup(opt.Stop)

	c := New(&brokenStatusStore{Store: db}, opt, nil, Options{AutosaveInterval: time.Hour})
	if _, err := c.Spawn(context.Background(), "s", "obj"); err == nil {
		t.Fatal("Spawn succeeded though every agent status update failed")
	}
}

func TestSpawnWorkers_SameTierFlushesAsOneBatch(t *testing.T) {
	c, db := setupCoordinator(t)

	swarm := &store.Swarm{
		ID: uuid.New().String(), Name: "s", Objective: "obj",
		Status: store.SwarmActive, QueenType: "strategic",
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	if err := db.CreateSwarm(swarm); err != nil {
		t.Fatalf("CreateSwarm failed: %v", err)
	}

	specs := []api.TaskSpec{
		{Description: "write handler", AgentType: "coder", Priority: 3},
		{Description: "write tests", AgentType: "tester", Priority: 2},
		{Description: "review diff", AgentType: "reviewer", Priority: 1},
	}
	for _, spec := range specs {
		task := &store.Task{
			ID: uuid.New().String(), SwarmID: swarm.ID,
			Description: spec.Description, Status: store.TaskPending,
			Priority: spec.Priority, CreatedAt: time.Now(),
		}
		if err := db.CreateTask(task); err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}
	}

	if err := c.spawnWorkers(context.Background(), swarm, specs); err != nil {
		t.Fatalf("spawnWorkers failed: %v", err)
	}

	// All three agent types are medium tier, so one flush does the work.
	m := c.Metrics().Batch
	if m.BatchesProcessed != 1 {
		t.Errorf("batches = %d, want 1", m.BatchesProcessed)
	}
	if m.ItemsProcessed != 3 {
		t.Errorf("items = %d, want 3", m.ItemsProcessed)
	}

	agents, err := db.ListAgentsBySwarm(swarm.ID)
	if err != nil {
		t.Fatalf("ListAgentsBySwarm failed: %v", err)
	}
	if len(agents) != 3 {
		t.Fatalf("agents = %d, want 3", len(agents))
	}
	for _, a := range agents {
		if a.Status != store.AgentBusy {
			t.Errorf("agent %s status = %s, want busy", a.Name, a.Status)
		}
	}
}

func TestDecide_Majority(t *testing.T) {
	c, db := setupCoordinator(t)
	swarm, err := c.Spawn(context.Background(), "s", "obj")
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}

	votes := []Vote{
		{AgentID: "a1", Option: "rest"},
		{AgentID: "a2", Option: "rest"},
		{AgentID: "a3", Option: "grpc"},
	}
	d, err := c.Decide("transport", votes, store.ConsensusMajority)
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if d.Decision != "rest" {
		t.Errorf("decision = %s, want rest", d.Decision)
	}
	if d.Confidence < 0.66 || d.Confidence > 0.67 {
		t.Errorf("confidence = %v, want ~2/3", d.Confidence)
	}
	if d.Votes.Counts["rest"] != 2 || d.Votes.Counts["grpc"] != 1 {
		t.Errorf("counts = %v, want rest:2 grpc:1", d.Votes.Counts)
	}
	if d.Votes.Voters["a3"] != "grpc" {
		t.Errorf("voters = %v, want a3 on grpc", d.Votes.Voters)
	}

	recorded, err := db.ListDecisionsBySwarm(swarm.ID)
	if err != nil {
		t.Fatalf("ListDecisionsBySwarm failed: %v", err)
	}
	if len(recorded) != 1 || recorded[0].Decision != "rest" {
		t.Errorf("recorded = %+v", recorded)
	}
}

func TestDecide_Weighted(t *testing.T) {
	c, _ := setupCoordinator(t)
	if _, err := c.Spawn(context.Background(), "s", "obj"); err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}

	votes := []Vote{
		{AgentID: "a1", Option: "rest", Weight: 1},
		{AgentID: "a2", Option: "grpc", Weight: 3},
	}
	d, err := c.Decide("transport", votes, store.ConsensusWeighted)
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if d.Decision != "grpc" {
		t.Errorf("decision = %s, want grpc (weighted)", d.Decision)
	}
	if d.Confidence != 0.75 {
		t.Errorf("confidence = %v, want 0.75", d.Confidence)
	}
	if d.Votes.Counts["grpc"] != 3 || d.Votes.Counts["rest"] != 1 {
		t.Errorf("counts = %v, want weighted grpc:3 rest:1", d.Votes.Counts)
	}
}

func TestDecide_ByzantineFallsBackToMajority(t *testing.T) {
	c, _ := setupCoordinator(t)
	if _, err := c.Spawn(context.Background(), "s", "obj"); err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}

	votes := []Vote{
		{AgentID: "a1", Option: "x", Weight: 9},
		{AgentID: "a2", Option: "y"},
		{AgentID: "a3", Option: "y"},
	}
	d, err := c.Decide("topic", votes, store.ConsensusByzantine)
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	// Weights are ignored outside the weighted algorithm
	if d.Decision != "y" {
		t.Errorf("decision = %s, want y", d.Decision)
	}
	if d.Algorithm != store.ConsensusByzantine {
		t.Errorf("algorithm = %s, want the requested byzantine", d.Algorithm)
	}
}

func TestDecide_NoVotes(t *testing.T) {
	c, _ := setupCoordinator(t)
	if _, err := c.Spawn(context.Background(), "s", "obj"); err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}
	if _, err := c.Decide("topic", nil, store.ConsensusMajority); err == nil {
		t.Error("expected error for empty vote set")
	}
}

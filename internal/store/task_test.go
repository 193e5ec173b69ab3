package store

import (
	"testing"
	"time"
)

func makeTask(t *testing.T, db *DB, id, swarmID string, priority int) *Task {
	t.Helper()
	task := &Task{
		ID:          id,
		SwarmID:     swarmID,
		Description: "do something",
		Status:      TaskPending,
		Priority:    priority,
		CreatedAt:   time.Now(),
	}
	if err := db.CreateTask(task); err != nil {
		t.Fatalf("setup task failed: %v", err)
	}
	return task
}

func TestCreateAndGetTask(t *testing.T) {
	db := setupTestDB(t)
	makeSwarm(t, db, "sw1")
	makeTask(t, db, "t1", "sw1", 3)

	got, err := db.GetTask("t1")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetTask returned nil")
	}
	if got.Status != TaskPending || got.Priority != 3 {
		t.Errorf("task mismatch: %+v", got)
	}
	if got.AgentID != "" {
		t.Errorf("AgentID = %q, want empty for unassigned task", got.AgentID)
	}
	if got.CompletedAt != nil {
		t.Error("CompletedAt should be nil for a pending task")
	}
}

func TestCreateTask_InvalidStatus(t *testing.T) {
	db := setupTestDB(t)
	makeSwarm(t, db, "sw1")

	task := &Task{ID: "bad", SwarmID: "sw1", Description: "x", Status: "running", CreatedAt: time.Now()}
	if err := db.CreateTask(task); err == nil {
		t.Error("expected error for invalid status")
	}
}

func TestTaskLifecycle(t *testing.T) {
	db := setupTestDB(t)
	makeSwarm(t, db, "sw1")
	makeTask(t, db, "t1", "sw1", 1)

	if err := db.AssignTask("t1", "agent-1"); err != nil {
		t.Fatalf("AssignTask failed: %v", err)
	}
	got, _ := db.GetTask("t1")
	if got.Status != TaskInProgress || got.AgentID != "agent-1" {
		t.Errorf("after assign: status=%s agent=%s", got.Status, got.AgentID)
	}

	if err := db.CompleteTask("t1", "all done"); err != nil {
		t.Fatalf("CompleteTask failed: %v", err)
	}
	got, _ = db.GetTask("t1")
	if got.Status != TaskCompleted || got.Result != "all done" {
		t.Errorf("after complete: status=%s result=%q", got.Status, got.Result)
	}
	if got.CompletedAt == nil {
		t.Error("CompletedAt not set on completion")
	}
}

func TestTaskTransition_RejectsBackward(t *testing.T) {
	db := setupTestDB(t)
	makeSwarm(t, db, "sw1")
	makeTask(t, db, "t1", "sw1", 1)

	// pending may not jump straight to completed
	if err := db.CompleteTask("t1", "x"); err == nil {
		t.Error("expected error completing a pending task")
	}

	if err := db.AssignTask("t1", "agent-1"); err != nil {
		t.Fatalf("AssignTask failed: %v", err)
	}
	if err := db.FailTask("t1", "boom"); err != nil {
		t.Fatalf("FailTask failed: %v", err)
	}

	// failed is terminal
	if err := db.AssignTask("t1", "agent-2"); err == nil {
		t.Error("expected error assigning a failed task")
	}
	if err := db.CompleteTask("t1", "x"); err == nil {
		t.Error("expected error completing a failed task")
	}

	got, _ := db.GetTask("t1")
	if got.Status != TaskFailed || got.Result != "boom" {
		t.Errorf("rejected transitions must not mutate: status=%s result=%q", got.Status, got.Result)
	}
}

func TestListTasksBySwarm_PriorityOrder(t *testing.T) {
	db := setupTestDB(t)
	makeSwarm(t, db, "sw1")
	makeTask(t, db, "low", "sw1", 1)
	makeTask(t, db, "high", "sw1", 5)
	makeTask(t, db, "mid", "sw1", 3)

	tasks, err := db.ListTasksBySwarm("sw1")
	if err != nil {
		t.Fatalf("ListTasksBySwarm failed: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("len = %d, want 3", len(tasks))
	}
	wantOrder := []string{"high", "mid", "low"}
	for i, want := range wantOrder {
		if tasks[i].ID != want {
			t.Errorf("tasks[%d] = %s, want %s", i, tasks[i].ID, want)
		}
	}
}

func TestTaskBreakdownBySwarm(t *testing.T) {
	db := setupTestDB(t)
	makeSwarm(t, db, "sw1")
	makeTask(t, db, "t1", "sw1", 1)
	makeTask(t, db, "t2", "sw1", 1)
	makeTask(t, db, "t3", "sw1", 1)

	if err := db.AssignTask("t2", "a1"); err != nil {
		t.Fatalf("AssignTask failed: %v", err)
	}
	if err := db.AssignTask("t3", "a1"); err != nil {
		t.Fatalf("AssignTask failed: %v", err)
	}
	if err := db.CompleteTask("t3", "done"); err != nil {
		t.Fatalf("CompleteTask failed: %v", err)
	}

	b, err := db.TaskBreakdownBySwarm("sw1")
	if err != nil {
		t.Fatalf("TaskBreakdownBySwarm failed: %v", err)
	}
	if b.Pending != 1 || b.InProgress != 1 || b.Completed != 1 || b.Failed != 0 {
		t.Errorf("breakdown = %+v", b)
	}
	if b.Total() != 3 {
		t.Errorf("Total() = %d, want 3", b.Total())
	}
}

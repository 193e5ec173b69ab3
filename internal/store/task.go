package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Task represents a unit of work within a swarm. AgentID is set only after
// the task has been assigned.
type Task struct {
	ID          string     `json:"id"`
	SwarmID     string     `json:"swarm_id"`
	AgentID     string     `json:"agent_id"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Priority    int        `json:"priority"`
	Result      string     `json:"result"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// TaskBreakdown summarizes task counts by status for one swarm.
type TaskBreakdown struct {
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// Total returns the total number of tasks in the breakdown.
func (b TaskBreakdown) Total() int {
	return b.Pending + b.InProgress + b.Completed + b.Failed
}

// CreateTask creates a new task.
func (db *DB) CreateTask(t *Task) error {
	if _, err := ParseTaskStatus(string(t.Status)); err != nil {
		return err
	}
	var agentID *string
	if t.AgentID != "" {
		agentID = &t.AgentID
	}

	_, err := db.Exec(`
		INSERT INTO tasks (id, swarm_id, agent_id, description, status, priority, result, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.SwarmID, agentID, t.Description, string(t.Status), t.Priority, t.Result, formatTime(t.CreatedAt), nil)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID. Returns nil if not found.
func (db *DB) GetTask(id string) (*Task, error) {
	row := db.QueryRow(`
		SELECT id, swarm_id, agent_id, description, status, priority, result, created_at, completed_at
		FROM tasks WHERE id = ?
	`, id)

	t, err := scanTask(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// AssignTask sets the agent for a task and moves it to in_progress.
func (db *DB) AssignTask(taskID, agentID string) error {
	return db.transitionTask(taskID, TaskInProgress, func(t *Task) {
		t.AgentID = agentID
	})
}

// CompleteTask moves a task to completed and records its result.
func (db *DB) CompleteTask(taskID, result string) error {
	return db.transitionTask(taskID, TaskCompleted, func(t *Task) {
		t.Result = result
	})
}

// FailTask moves a task to failed and records the failure reason.
func (db *DB) FailTask(taskID, reason string) error {
	return db.transitionTask(taskID, TaskFailed, func(t *Task) {
		t.Result = reason
	})
}

// transitionTask applies a forward-only status transition. Backward or
// skipping transitions are rejected before any write happens.
func (db *DB) transitionTask(taskID string, next TaskStatus, mutate func(*Task)) error {
	t, err := db.GetTask(taskID)
	if err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("task %s not found", taskID)
	}
	if !t.Status.CanTransitionTo(next) {
		return fmt.Errorf("task %s cannot transition from %s to %s", taskID, t.Status, next)
	}

	if mutate != nil {
		mutate(t)
	}
	t.Status = next

	var agentID *string
	if t.AgentID != "" {
		agentID = &t.AgentID
	}
	var completedAt *string
	if next == TaskCompleted || next == TaskFailed {
		s := formatTime(time.Now())
		completedAt = &s
	}

	_, err = db.Exec(`
		UPDATE tasks SET agent_id = ?, status = ?, result = ?, completed_at = ? WHERE id = ?
	`, agentID, string(t.Status), t.Result, completedAt, t.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// ListTasksBySwarm lists all tasks for a swarm, highest priority first and
// oldest first within one priority.
func (db *DB) ListTasksBySwarm(swarmID string) ([]Task, error) {
	rows, err := db.Query(`
		SELECT id, swarm_id, agent_id, description, status, priority, result, created_at, completed_at
		FROM tasks WHERE swarm_id = ? ORDER BY priority DESC, created_at
	`, swarmID)
	if err != nil {
		return nil, fmt.Errorf("list tasks by swarm: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, nil
}

// TaskBreakdownBySwarm returns task counts by status for a swarm.
func (db *DB) TaskBreakdownBySwarm(swarmID string) (TaskBreakdown, error) {
	rows, err := db.Query(`
		SELECT status, COUNT(*) FROM tasks WHERE swarm_id = ? GROUP BY status
	`, swarmID)
	if err != nil {
		return TaskBreakdown{}, fmt.Errorf("task breakdown: %w", err)
	}
	defer rows.Close()

	var b TaskBreakdown
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return TaskBreakdown{}, fmt.Errorf("scan task count: %w", err)
		}
		switch TaskStatus(status) {
		case TaskPending:
			b.Pending = n
		case TaskInProgress:
			b.InProgress = n
		case TaskCompleted:
			b.Completed = n
		case TaskFailed:
			b.Failed = n
		}
	}
	return b, nil
}

// scanTask scans one task row from either *sql.Row or *sql.Rows.
func scanTask(scan func(...any) error) (*Task, error) {
	var t Task
	var agentID, result sql.NullString
	var createdAt string
	var completedAt sql.NullString
	if err := scan(&t.ID, &t.SwarmID, &agentID, &t.Description, &t.Status, &t.Priority, &result, &createdAt, &completedAt); err != nil {
		return nil, err
	}
	if agentID.Valid {
		t.AgentID = agentID.String
	}
	if result.Valid {
		t.Result = result.String
	}
	t.CreatedAt, _ = parseTime(createdAt)
	t.CompletedAt = parseNullableTime(completedAt)
	return &t, nil
}

package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrSessionNotFound is returned when a session lookup by ID finds nothing.
var ErrSessionNotFound = errors.New("session not found")

// Session is the runtime handle for a swarm run. ChildPIDs tracks spawned
// agent processes so a later stop can reap them; CheckpointData holds the
// most recent serialized checkpoint for fast resume.
type Session struct {
	ID             string        `json:"id"`
	SwarmID        string        `json:"swarm_id"`
	Status         SessionStatus `json:"status"`
	ChildPIDs      []int         `json:"child_pids"`
	CheckpointData string        `json:"checkpoint_data"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	PausedAt       *time.Time    `json:"paused_at"`
}

// Checkpoint is an append-only snapshot of session state. Checkpoints are
// never updated or deleted while the session exists.
type Checkpoint struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Label     string    `json:"label"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateSession creates a new session.
func (db *DB) CreateSession(s *Session) error {
	if _, err := ParseSessionStatus(string(s.Status)); err != nil {
		return err
	}
	pids, _ := json.Marshal(s.ChildPIDs)

	_, err := db.Exec(`
		INSERT INTO sessions (id, swarm_id, status, child_pids, checkpoint_data, created_at, updated_at, paused_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULL)
	`, s.ID, s.SwarmID, string(s.Status), string(pids), s.CheckpointData, formatTime(s.CreatedAt), formatTime(s.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID. Returns ErrSessionNotFound if it
// does not exist.
func (db *DB) GetSession(id string) (*Session, error) {
	row := db.QueryRow(`
		SELECT id, swarm_id, status, child_pids, checkpoint_data, created_at, updated_at, paused_at
		FROM sessions WHERE id = ?
	`, id)

	s, err := scanSession(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

// GetActiveSessionForSwarm returns the swarm's active or paused session,
// or nil if the swarm has none.
func (db *DB) GetActiveSessionForSwarm(swarmID string) (*Session, error) {
	row := db.QueryRow(`
		SELECT id, swarm_id, status, child_pids, checkpoint_data, created_at, updated_at, paused_at
		FROM sessions WHERE swarm_id = ? AND status IN ('active', 'paused')
		ORDER BY created_at DESC LIMIT 1
	`, swarmID)

	s, err := scanSession(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active session: %w", err)
	}
	return s, nil
}

// ListSessions lists all sessions newest-first, optionally filtered by status.
func (db *DB) ListSessions(status *SessionStatus) ([]Session, error) {
	var rows *sql.Rows
	var err error

	if status != nil {
		rows, err = db.Query(`
			SELECT id, swarm_id, status, child_pids, checkpoint_data, created_at, updated_at, paused_at
			FROM sessions WHERE status = ? ORDER BY created_at DESC
		`, string(*status))
	} else {
		rows, err = db.Query(`
			SELECT id, swarm_id, status, child_pids, checkpoint_data, created_at, updated_at, paused_at
			FROM sessions ORDER BY created_at DESC
		`)
	}
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		s, err := scanSession(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	return sessions, nil
}

// UpdateSessionStatus moves a session to a new status, enforcing the
// lifecycle transitions. Pausing stamps paused_at; resuming clears it.
func (db *DB) UpdateSessionStatus(id string, status SessionStatus) error {
	s, err := db.GetSession(id)
	if err != nil {
		return err
	}
	if s.Status == status {
		return nil
	}
	if !s.Status.CanTransitionTo(status) {
		return fmt.Errorf("session %s cannot transition from %s to %s", id, s.Status, status)
	}

	now := formatTime(time.Now())
	var pausedAt *string
	if status == SessionPaused {
		pausedAt = &now
	}

	_, err = db.Exec(`
		UPDATE sessions SET status = ?, updated_at = ?, paused_at = ? WHERE id = ?
	`, string(status), now, pausedAt, id)
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	return nil
}

// UpdateSessionPIDs replaces the session's tracked child process IDs.
func (db *DB) UpdateSessionPIDs(id string, pids []int) error {
	encoded, _ := json.Marshal(pids)
	_, err := db.Exec(`
		UPDATE sessions SET child_pids = ?, updated_at = ? WHERE id = ?
	`, string(encoded), formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("update session pids: %w", err)
	}
	return nil
}

// UpdateSessionCheckpointData stores the latest serialized checkpoint on the
// session row for fast access on resume.
func (db *DB) UpdateSessionCheckpointData(id, data string) error {
	_, err := db.Exec(`
		UPDATE sessions SET checkpoint_data = ?, updated_at = ? WHERE id = ?
	`, data, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("update session checkpoint data: %w", err)
	}
	return nil
}

// SaveCheckpoint appends a checkpoint for a session and mirrors its payload
// onto the session row.
func (db *DB) SaveCheckpoint(c *Checkpoint) error {
	_, err := db.Exec(`
		INSERT INTO checkpoints (id, session_id, label, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.ID, c.SessionID, c.Label, c.Payload, formatTime(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return db.UpdateSessionCheckpointData(c.SessionID, c.Payload)
}

// LatestCheckpoint returns the most recent checkpoint for a session, or nil
// if none exist.
func (db *DB) LatestCheckpoint(sessionID string) (*Checkpoint, error) {
	row := db.QueryRow(`
		SELECT id, session_id, label, payload, created_at
		FROM checkpoints WHERE session_id = ? ORDER BY created_at DESC, id DESC LIMIT 1
	`, sessionID)

	c, err := scanCheckpoint(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest checkpoint: %w", err)
	}
	return c, nil
}

// ListCheckpoints lists all checkpoints for a session, oldest first.
func (db *DB) ListCheckpoints(sessionID string) ([]Checkpoint, error) {
	rows, err := db.Query(`
		SELECT id, session_id, label, payload, created_at
		FROM checkpoints WHERE session_id = ? ORDER BY created_at, id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	var checkpoints []Checkpoint
	for rows.Next() {
		c, err := scanCheckpoint(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		checkpoints = append(checkpoints, *c)
	}
	return checkpoints, nil
}

func scanSession(scan func(...any) error) (*Session, error) {
	var s Session
	var pids, checkpointData sql.NullString
	var createdAt, updatedAt string
	var pausedAt sql.NullString
	if err := scan(&s.ID, &s.SwarmID, &s.Status, &pids, &checkpointData, &createdAt, &updatedAt, &pausedAt); err != nil {
		return nil, err
	}
	if pids.Valid && pids.String != "" {
		json.Unmarshal([]byte(pids.String), &s.ChildPIDs)
	}
	if checkpointData.Valid {
		s.CheckpointData = checkpointData.String
	}
	s.CreatedAt, _ = parseTime(createdAt)
	s.UpdatedAt, _ = parseTime(updatedAt)
	s.PausedAt = parseNullableTime(pausedAt)
	return &s, nil
}

func scanCheckpoint(scan func(...any) error) (*Checkpoint, error) {
	var c Checkpoint
	var payload sql.NullString
	var createdAt string
	if err := scan(&c.ID, &c.SessionID, &c.Label, &payload, &createdAt); err != nil {
		return nil, err
	}
	if payload.Valid {
		c.Payload = payload.String
	}
	c.CreatedAt, _ = parseTime(createdAt)
	return &c, nil
}

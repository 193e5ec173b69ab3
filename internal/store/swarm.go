package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Swarm is the root aggregate grouping agents, tasks, shared memory, and
// consensus decisions under one objective.
type Swarm struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Objective string      `json:"objective"`
	Status    SwarmStatus `json:"status"`
	QueenType string      `json:"queen_type"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// CreateSwarm creates a new swarm.
func (db *DB) CreateSwarm(s *Swarm) error {
	if _, err := ParseSwarmStatus(string(s.Status)); err != nil {
		return err
	}
	_, err := db.Exec(`
		INSERT INTO swarms (id, name, objective, status, queen_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.Name, s.Objective, string(s.Status), s.QueenType, formatTime(s.CreatedAt), formatTime(s.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create swarm: %w", err)
	}
	return nil
}

// GetSwarm retrieves a swarm by ID. Returns nil if not found.
func (db *DB) GetSwarm(id string) (*Swarm, error) {
	row := db.QueryRow(`
		SELECT id, name, objective, status, queen_type, created_at, updated_at
		FROM swarms WHERE id = ?
	`, id)

	var s Swarm
	var createdAt, updatedAt string
	err := row.Scan(&s.ID, &s.Name, &s.Objective, &s.Status, &s.QueenType, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get swarm: %w", err)
	}

	s.CreatedAt, _ = parseTime(createdAt)
	s.UpdatedAt, _ = parseTime(updatedAt)
	return &s, nil
}

// UpdateSwarmStatus updates a swarm's status and its updated_at timestamp.
func (db *DB) UpdateSwarmStatus(id string, status SwarmStatus) error {
	if _, err := ParseSwarmStatus(string(status)); err != nil {
		return err
	}
	_, err := db.Exec(`
		UPDATE swarms SET status = ?, updated_at = ? WHERE id = ?
	`, string(status), formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("update swarm status: %w", err)
	}
	return nil
}

// ListSwarms lists all swarms newest-first, optionally filtered by status.
func (db *DB) ListSwarms(status *SwarmStatus) ([]Swarm, error) {
	var rows *sql.Rows
	var err error

	if status != nil {
		rows, err = db.Query(`
			SELECT id, name, objective, status, queen_type, created_at, updated_at
			FROM swarms WHERE status = ? ORDER BY created_at DESC
		`, string(*status))
	} else {
		rows, err = db.Query(`
			SELECT id, name, objective, status, queen_type, created_at, updated_at
			FROM swarms ORDER BY created_at DESC
		`)
	}
	if err != nil {
		return nil, fmt.Errorf("list swarms: %w", err)
	}
	defer rows.Close()

	var swarms []Swarm
	for rows.Next() {
		var s Swarm
		var createdAt, updatedAt string
		if err := rows.Scan(&s.ID, &s.Name, &s.Objective, &s.Status, &s.QueenType, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan swarm: %w", err)
		}
		s.CreatedAt, _ = parseTime(createdAt)
		s.UpdatedAt, _ = parseTime(updatedAt)
		swarms = append(swarms, s)
	}
	return swarms, nil
}

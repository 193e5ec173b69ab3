package store

import (
	"database/sql"
	"fmt"
	"time"
)

// MemoryEntry is a single key/value record in a swarm's collective memory.
// Keys are unique per swarm; writing an existing key replaces the value.
type MemoryEntry struct {
	ID          string     `json:"id"`
	SwarmID     string     `json:"swarm_id"`
	Key         string     `json:"key"`
	Value       string     `json:"value"`
	Type        string     `json:"type"`
	Confidence  float64    `json:"confidence"`
	CreatedBy   string     `json:"created_by"`
	AccessCount int        `json:"access_count"`
	CreatedAt   time.Time  `json:"created_at"`
	AccessedAt  *time.Time `json:"accessed_at"`
}

// StoreMemory inserts a memory entry, or replaces the value, type,
// confidence, and author when the swarm already holds the key. A replaced
// entry keeps its ID and access count.
func (db *DB) StoreMemory(e *MemoryEntry) error {
	_, err := db.Exec(`
		INSERT INTO collective_memory (id, swarm_id, key, value, type, confidence, created_by, access_count, created_at, accessed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, NULL)
		ON CONFLICT(swarm_id, key) DO UPDATE SET
			value = excluded.value,
			type = excluded.type,
			confidence = excluded.confidence,
			created_by = excluded.created_by,
			created_at = excluded.created_at
	`, e.ID, e.SwarmID, e.Key, e.Value, e.Type, e.Confidence, e.CreatedBy, formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("store memory: %w", err)
	}
	return nil
}

// GetMemory retrieves a memory entry by swarm and key, bumping its access
// count and access timestamp. Returns nil if not found.
func (db *DB) GetMemory(swarmID, key string) (*MemoryEntry, error) {
	row := db.QueryRow(`
		SELECT id, swarm_id, key, value, type, confidence, created_by, access_count, created_at, accessed_at
		FROM collective_memory WHERE swarm_id = ? AND key = ?
	`, swarmID, key)

	e, err := scanMemoryEntry(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get memory: %w", err)
	}

	now := time.Now()
	_, err = db.Exec(`
		UPDATE collective_memory SET access_count = access_count + 1, accessed_at = ? WHERE id = ?
	`, formatTime(now), e.ID)
	if err != nil {
		return nil, fmt.Errorf("touch memory: %w", err)
	}
	e.AccessCount++
	e.AccessedAt = &now
	return e, nil
}

// SearchMemory returns entries whose key, value, or type contains the
// pattern, case-insensitively, newest first, at most limit rows.
// Searching does not count as access.
func (db *DB) SearchMemory(swarmID, pattern string, limit int) ([]MemoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	like := "%" + pattern + "%"
	rows, err := db.Query(`
		SELECT id, swarm_id, key, value, type, confidence, created_by, access_count, created_at, accessed_at
		FROM collective_memory
		WHERE swarm_id = ? AND (key LIKE ? OR value LIKE ? OR type LIKE ?)
		ORDER BY created_at DESC LIMIT ?
	`, swarmID, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("search memory: %w", err)
	}
	defer rows.Close()

	var entries []MemoryEntry
	for rows.Next() {
		e, err := scanMemoryEntry(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan memory entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, nil
}

// ListMemoryBySwarm lists all memory entries for a swarm, newest first.
func (db *DB) ListMemoryBySwarm(swarmID string) ([]MemoryEntry, error) {
	rows, err := db.Query(`
		SELECT id, swarm_id, key, value, type, confidence, created_by, access_count, created_at, accessed_at
		FROM collective_memory WHERE swarm_id = ? ORDER BY created_at DESC
	`, swarmID)
	if err != nil {
		return nil, fmt.Errorf("list memory: %w", err)
	}
	defer rows.Close()

	var entries []MemoryEntry
	for rows.Next() {
		e, err := scanMemoryEntry(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan memory entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, nil
}

// StaleMemory returns entries last accessed (or, if never accessed, created)
// before the cutoff. It only identifies candidates; nothing is deleted.
func (db *DB) StaleMemory(swarmID string, cutoff time.Time) ([]MemoryEntry, error) {
	rows, err := db.Query(`
		SELECT id, swarm_id, key, value, type, confidence, created_by, access_count, created_at, accessed_at
		FROM collective_memory
		WHERE swarm_id = ? AND COALESCE(accessed_at, created_at) < ?
		ORDER BY created_at
	`, swarmID, formatTime(cutoff))
	if err != nil {
		return nil, fmt.Errorf("stale memory: %w", err)
	}
	defer rows.Close()

	var entries []MemoryEntry
	for rows.Next() {
		e, err := scanMemoryEntry(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan memory entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, nil
}

func scanMemoryEntry(scan func(...any) error) (*MemoryEntry, error) {
	var e MemoryEntry
	var createdAt string
	var accessedAt sql.NullString
	if err := scan(&e.ID, &e.SwarmID, &e.Key, &e.Value, &e.Type, &e.Confidence, &e.CreatedBy, &e.AccessCount, &createdAt, &accessedAt); err != nil {
		return nil, err
	}
	e.CreatedAt, _ = parseTime(createdAt)
	e.AccessedAt = parseNullableTime(accessedAt)
	return &e, nil
}

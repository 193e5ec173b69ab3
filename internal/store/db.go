// Package store provides SQLite-based persistence for openswarm.
// It handles both global state (~/.local/share/openswarm/openswarm.db) and
// project-local state (.openswarm/hive.db).
package store

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps an SQLite database connection with openswarm-specific operations.
type DB struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// GlobalDBPath returns the path to the global openswarm database.
func GlobalDBPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "openswarm", "openswarm.db")
}

// ProjectDBPath returns the path to the project-local database.
func ProjectDBPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".openswarm", "hive.db")
}

// Open opens an SQLite database at the given path.
// It creates the parent directories if they don't exist.
// WAL mode is enabled for concurrent reads. If the file exists but fails an
// integrity check, it is moved aside and a fresh database is created in its
// place; the caller's request is never silently dropped.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := open(path)
	if err == nil {
		return &DB{conn: conn, path: path}, nil
	}

	// The file may be corrupt rather than merely absent. Move it aside and
	// retry with a fresh database so the command can still proceed.
	if _, statErr := os.Stat(path); statErr != nil {
		return nil, err
	}
	quarantine := fmt.Sprintf("%s.corrupt-%d", path, time.Now().Unix())
	if mvErr := os.Rename(path, quarantine); mvErr != nil {
		return nil, fmt.Errorf("quarantine corrupt database: %v (original error: %w)", mvErr, err)
	}
	log.Printf("[store] WARNING: database failed integrity check, moved to %s and recreated", quarantine)

	conn, err = open(path)
	if err != nil {
		return nil, fmt.Errorf("recreate database: %w", err)
	}
	return &DB{conn: conn, path: path}, nil
}

// open establishes a connection and verifies the file is a usable database.
func open(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for concurrent reads
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	var result string
	row := conn.QueryRow("PRAGMA integrity_check")
	if err := row.Scan(&result); err != nil || result != "ok" {
		conn.Close()
		if err == nil {
			err = fmt.Errorf("integrity check returned %q", result)
		}
		return nil, fmt.Errorf("integrity check: %w", err)
	}

	return conn, nil
}

// OpenGlobal opens the global openswarm database.
func OpenGlobal() (*DB, error) {
	return Open(GlobalDBPath())
}

// OpenProject opens the project-local database.
func OpenProject(projectRoot string) (*DB, error) {
	return Open(ProjectDBPath(projectRoot))
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the path to the database file.
func (db *DB) Path() string {
	return db.path
}

// Migrate applies all pending schema migrations.
func (db *DB) Migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	// Create schema version table
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	// Apply migrations
	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Swarms},
		{2, migrationV2AgentsTasks},
		{3, migrationV3Memory},
		{4, migrationV4Sessions},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Migration SQL statements
const migrationV1Swarms = `
CREATE TABLE IF NOT EXISTS swarms (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	objective TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'active',
	queen_type TEXT NOT NULL DEFAULT 'strategic',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_swarms_status ON swarms(status);
`

const migrationV2AgentsTasks = `
CREATE TABLE IF NOT EXISTS agents (
	id TEXT PRIMARY KEY,
	swarm_id TEXT NOT NULL,
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'worker',
	status TEXT NOT NULL DEFAULT 'idle',
	capabilities TEXT,
	FOREIGN KEY (swarm_id) REFERENCES swarms(id)
);

CREATE INDEX IF NOT EXISTS idx_agents_swarm_id ON agents(swarm_id);
CREATE INDEX IF NOT EXISTS idx_agents_status ON agents(status);

CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	swarm_id TEXT NOT NULL,
	agent_id TEXT,
	description TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	priority INTEGER NOT NULL DEFAULT 0,
	result TEXT,
	created_at DATETIME NOT NULL,
	completed_at DATETIME,
	FOREIGN KEY (swarm_id) REFERENCES swarms(id)
);

CREATE INDEX IF NOT EXISTS idx_tasks_swarm_id ON tasks(swarm_id);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
`

const migrationV3Memory = `
CREATE TABLE IF NOT EXISTS collective_memory (
	id TEXT PRIMARY KEY,
	swarm_id TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	type TEXT NOT NULL DEFAULT 'knowledge',
	confidence REAL NOT NULL DEFAULT 1.0,
	created_by TEXT,
	access_count INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	accessed_at DATETIME,
	FOREIGN KEY (swarm_id) REFERENCES swarms(id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_memory_swarm_key ON collective_memory(swarm_id, key);

CREATE TABLE IF NOT EXISTS consensus_decisions (
	id TEXT PRIMARY KEY,
	swarm_id TEXT NOT NULL,
	topic TEXT NOT NULL,
	decision TEXT NOT NULL,
	votes TEXT,
	algorithm TEXT NOT NULL DEFAULT 'majority',
	confidence REAL NOT NULL DEFAULT 0.0,
	created_at DATETIME NOT NULL,
	FOREIGN KEY (swarm_id) REFERENCES swarms(id)
);

CREATE INDEX IF NOT EXISTS idx_consensus_swarm_id ON consensus_decisions(swarm_id);
`

const migrationV4Sessions = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	swarm_id TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'active',
	child_pids TEXT,
	checkpoint_data TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	paused_at DATETIME,
	FOREIGN KEY (swarm_id) REFERENCES swarms(id)
);

CREATE INDEX IF NOT EXISTS idx_sessions_swarm_id ON sessions(swarm_id);
CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);

CREATE TABLE IF NOT EXISTS checkpoints (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	label TEXT NOT NULL,
	payload TEXT,
	created_at DATETIME NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(id)
);

CREATE INDEX IF NOT EXISTS idx_checkpoints_session_id ON checkpoints(session_id);
`

// Exec executes a query that doesn't return rows.
func (db *DB) Exec(query string, args ...any) (sql.Result, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Exec(query, args...)
}

// Query executes a query that returns rows.
func (db *DB) Query(query string, args ...any) (*sql.Rows, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.conn.Query(query, args...)
}

// QueryRow executes a query that returns at most one row.
func (db *DB) QueryRow(query string, args ...any) *sql.Row {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.conn.QueryRow(query, args...)
}

// Transaction runs the given function within a transaction.
func (db *DB) Transaction(fn func(tx *sql.Tx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// formatTime formats a time.Time for SQLite storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime parses a time string from SQLite.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// parseNullableTime parses a nullable time string from SQLite.
func parseNullableTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil
	}
	return &t
}

// PurgeOldSwarms deletes swarms (and their dependent rows) older than the
// specified duration. Returns the number of swarms deleted.
func (db *DB) PurgeOldSwarms(olderThan time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().Add(-olderThan))

	var count int64
	err := db.Transaction(func(tx *sql.Tx) error {
		rows, err := tx.Query("SELECT id FROM swarms WHERE created_at < ?", cutoff)
		if err != nil {
			return fmt.Errorf("list old swarms: %w", err)
		}
		var ids []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("scan swarm id: %w", err)
			}
			ids = append(ids, id)
		}
		rows.Close()

		for _, id := range ids {
			for _, stmt := range []string{
				"DELETE FROM checkpoints WHERE session_id IN (SELECT id FROM sessions WHERE swarm_id = ?)",
				"DELETE FROM sessions WHERE swarm_id = ?",
				"DELETE FROM consensus_decisions WHERE swarm_id = ?",
				"DELETE FROM collective_memory WHERE swarm_id = ?",
				"DELETE FROM tasks WHERE swarm_id = ?",
				"DELETE FROM agents WHERE swarm_id = ?",
				"DELETE FROM swarms WHERE id = ?",
			} {
				if _, err := tx.Exec(stmt, id); err != nil {
					return fmt.Errorf("purge swarm %s: %w", id, err)
				}
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

package store

import (
	"database/sql"
	"time"
)

// SwarmStore manages swarm records.
type SwarmStore interface {
	CreateSwarm(s *Swarm) error
	GetSwarm(id string) (*Swarm, error)
	UpdateSwarmStatus(id string, status SwarmStatus) error
	ListSwarms(status *SwarmStatus) ([]Swarm, error)
	PurgeOldSwarms(olderThan time.Duration) (int64, error)
}

// AgentStore manages agent records.
type AgentStore interface {
	CreateAgent(a *Agent) error
	GetAgent(id string) (*Agent, error)
	UpdateAgentStatus(id string, status AgentStatus) error
	ListAgentsBySwarm(swarmID string) ([]Agent, error)
	CountAgentsByStatus(swarmID string) (map[AgentStatus]int, error)
}

// TaskStore manages task records and their status transitions.
type TaskStore interface {
	CreateTask(t *Task) error
	GetTask(id string) (*Task, error)
	AssignTask(taskID, agentID string) error
	CompleteTask(taskID, result string) error
	FailTask(taskID, reason string) error
	ListTasksBySwarm(swarmID string) ([]Task, error)
	TaskBreakdownBySwarm(swarmID string) (TaskBreakdown, error)
}

// MemoryStore manages a swarm's collective memory entries.
type MemoryStore interface {
	StoreMemory(e *MemoryEntry) error
	GetMemory(swarmID, key string) (*MemoryEntry, error)
	SearchMemory(swarmID, pattern string, limit int) ([]MemoryEntry, error)
	ListMemoryBySwarm(swarmID string) ([]MemoryEntry, error)
	StaleMemory(swarmID string, cutoff time.Time) ([]MemoryEntry, error)
}

// ConsensusStore records settled votes.
type ConsensusStore interface {
	RecordDecision(d *ConsensusDecision) error
	ListDecisionsBySwarm(swarmID string) ([]ConsensusDecision, error)
}

// SessionStore manages sessions and their checkpoints.
type SessionStore interface {
	CreateSession(s *Session) error
	GetSession(id string) (*Session, error)
	GetActiveSessionForSwarm(swarmID string) (*Session, error)
	ListSessions(status *SessionStatus) ([]Session, error)
	UpdateSessionStatus(id string, status SessionStatus) error
	UpdateSessionPIDs(id string, pids []int) error
	UpdateSessionCheckpointData(id, data string) error
	SaveCheckpoint(c *Checkpoint) error
	LatestCheckpoint(sessionID string) (*Checkpoint, error)
	ListCheckpoints(sessionID string) ([]Checkpoint, error)
}

// Store is the full persistence surface. Callers receive an explicit handle
// rather than reaching for package-level state.
type Store interface {
	SwarmStore
	AgentStore
	TaskStore
	MemoryStore
	ConsensusStore
	SessionStore

	Migrate() error
	Transaction(fn func(tx *sql.Tx) error) error
	Path() string
	Close() error
}

var _ Store = (*DB)(nil)

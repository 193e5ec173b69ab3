package session

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yte121/openswarm/internal/store"
)

// Manager drives one session's lifecycle against the persistent store.
// All durable state lives in store rows, so a Manager can be rebuilt for
// an existing session after a process restart.
type Manager struct {
	db      store.Store
	emitter *EventEmitter

	mu        sync.Mutex
	sessionID string
	swarmID   string

	autosaveInterval time.Duration
	stopAutosave     chan struct{}
	autosaveOnce     sync.Once
}

// NewManager creates a manager bound to a store.
func NewManager(db store.Store, autosaveInterval time.Duration) *Manager {
	if autosaveInterval <= 0 {
		autosaveInterval = 30 * time.Second
	}
	return &Manager{
		db:               db,
		emitter:          NewEventEmitter(64),
		autosaveInterval: autosaveInterval,
		stopAutosave:     make(chan struct{}),
	}
}

// Events returns the session lifecycle event stream.
func (m *Manager) Events() <-chan Event {
	return m.emitter.Events()
}

// Start creates a new session for a swarm and begins auto-saving.
func (m *Manager) Start(swarmID string) (*store.Session, error) {
	swarm, err := m.db.GetSwarm(swarmID)
	if err != nil {
		return nil, err
	}
	if swarm == nil {
		return nil, fmt.Errorf("swarm %s not found", swarmID)
	}

	now := time.Now()
	sess := &store.Session{
		ID:        uuid.New().String(),
		SwarmID:   swarmID,
		Status:    store.SessionActive,
		ChildPIDs: []int{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.db.CreateSession(sess); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessionID = sess.ID
	m.swarmID = swarmID
	m.mu.Unlock()

	go m.autosaveLoop()

	log.Printf("[session] started %s for swarm %s", shortID(sess.ID), shortID(swarmID))
	m.emitter.Emit(Event{
		Type: EventSessionStarted, SessionID: sess.ID, SwarmID: swarmID,
		Message: "session started", Timestamp: now,
	})
	return sess, nil
}

// Attach binds the manager to an existing session, typically after a
// process restart, and begins auto-saving.
func (m *Manager) Attach(sessionID string) (*store.Session, error) {
	sess, err := m.db.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessionID = sess.ID
	m.swarmID = sess.SwarmID
	m.mu.Unlock()

	go m.autosaveLoop()
	return sess, nil
}

// SessionID returns the ID of the managed session.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// Checkpoint snapshots current swarm aggregates into an append-only
// checkpoint row under the given label.
func (m *Manager) Checkpoint(label string) (*store.Checkpoint, error) {
	m.mu.Lock()
	sessionID, swarmID := m.sessionID, m.swarmID
	m.mu.Unlock()

	if sessionID == "" {
		return nil, fmt.Errorf("no session attached")
	}

	stats, err := ComputeStats(m.db, swarmID)
	if err != nil {
		return nil, fmt.Errorf("compute checkpoint stats: %w", err)
	}
	payload, err := json.Marshal(stats)
	if err != nil {
		return nil, fmt.Errorf("marshal checkpoint: %w", err)
	}

	cp := &store.Checkpoint{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Label:     label,
		Payload:   string(payload),
		CreatedAt: time.Now(),
	}
	if err := m.db.SaveCheckpoint(cp); err != nil {
		return nil, err
	}

	m.emitter.Emit(Event{
		Type: EventCheckpointSaved, SessionID: sessionID, SwarmID: swarmID,
		Message: label, Timestamp: cp.CreatedAt,
	})
	return cp, nil
}

// Pause checkpoints the session and then marks it paused. The checkpoint
// is written first so its timestamp never trails paused_at. Pausing an
// already-paused session is a no-op.
func (m *Manager) Pause() error {
	m.mu.Lock()
	sessionID, swarmID := m.sessionID, m.swarmID
	m.mu.Unlock()

	sess, err := m.db.GetSession(sessionID)
	if err != nil {
		return err
	}
	if sess.Status == store.SessionPaused {
		return nil
	}
	if sess.Status == store.SessionStopped {
		return fmt.Errorf("session %s is stopped", shortID(sessionID))
	}

	if _, err := m.Checkpoint("pause"); err != nil {
		return fmt.Errorf("checkpoint before pause: %w", err)
	}
	if err := m.db.UpdateSessionStatus(sessionID, store.SessionPaused); err != nil {
		return err
	}
	if err := m.db.UpdateSwarmStatus(swarmID, store.SwarmPaused); err != nil {
		return err
	}

	log.Printf("[session] paused %s", shortID(sessionID))
	m.emitter.Emit(Event{
		Type: EventSessionPaused, SessionID: sessionID, SwarmID: swarmID,
		Message: "session paused", Timestamp: time.Now(),
	})
	return nil
}

// Resume reactivates the session and recomputes swarm aggregates from
// store rows. Resuming an active session is a no-op. A stopped session
// id is terminal, so resuming one is a restart: a fresh session is
// created for the same swarm and the manager rebinds to it.
func (m *Manager) Resume() (*Stats, error) {
	m.mu.Lock()
	sessionID, swarmID := m.sessionID, m.swarmID
	m.mu.Unlock()

	sess, err := m.db.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	switch sess.Status {
	case store.SessionStopped:
		now := time.Now()
		fresh := &store.Session{
			ID:        uuid.New().String(),
			SwarmID:   swarmID,
			Status:    store.SessionActive,
			ChildPIDs: []int{},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := m.db.CreateSession(fresh); err != nil {
			return nil, fmt.Errorf("restart stopped session: %w", err)
		}
		m.mu.Lock()
		m.sessionID = fresh.ID
		sessionID = fresh.ID
		m.mu.Unlock()
		if err := m.db.UpdateSwarmStatus(swarmID, store.SwarmActive); err != nil {
			return nil, err
		}
		log.Printf("[session] restarted stopped session as %s", shortID(fresh.ID))
	case store.SessionPaused:
		if err := m.db.UpdateSessionStatus(sessionID, store.SessionActive); err != nil {
			return nil, err
		}
		if err := m.db.UpdateSwarmStatus(swarmID, store.SwarmActive); err != nil {
			return nil, err
		}
	}

	stats, err := ComputeStats(m.db, swarmID)
	if err != nil {
		return nil, fmt.Errorf("recompute stats on resume: %w", err)
	}

	log.Printf("[session] resumed %s: %d/%d tasks complete", shortID(sessionID),
		stats.Tasks.Completed, stats.Tasks.Total())
	m.emitter.Emit(Event{
		Type: EventSessionResumed, SessionID: sessionID, SwarmID: swarmID,
		Message: "session resumed", Timestamp: time.Now(),
	})
	return stats, nil
}

// Stop checkpoints, kills tracked child processes, and marks the session
// stopped. Stopping an already-stopped session is a no-op.
func (m *Manager) Stop() error {
	m.mu.Lock()
	sessionID, swarmID := m.sessionID, m.swarmID
	m.mu.Unlock()

	sess, err := m.db.GetSession(sessionID)
	if err != nil {
		return err
	}
	if sess.Status == store.SessionStopped {
		return nil
	}

	if _, err := m.Checkpoint("stop"); err != nil {
		log.Printf("[session] WARNING: checkpoint before stop failed: %v", err)
	}

	for _, pid := range sess.ChildPIDs {
		killProcess(pid)
	}
	if len(sess.ChildPIDs) > 0 {
		if err := m.db.UpdateSessionPIDs(sessionID, []int{}); err != nil {
			log.Printf("[session] WARNING: clear pids: %v", err)
		}
	}

	if err := m.db.UpdateSessionStatus(sessionID, store.SessionStopped); err != nil {
		return err
	}
	if err := m.db.UpdateSwarmStatus(swarmID, store.SwarmStopped); err != nil {
		return err
	}

	m.autosaveOnce.Do(func() { close(m.stopAutosave) })

	log.Printf("[session] stopped %s (%d child processes reaped)", shortID(sessionID), len(sess.ChildPIDs))
	m.emitter.Emit(Event{
		Type: EventSessionStopped, SessionID: sessionID, SwarmID: swarmID,
		Message: "session stopped", Timestamp: time.Now(),
	})
	return nil
}

// AddChildPID records a spawned child process on the session.
func (m *Manager) AddChildPID(pid int) error {
	m.mu.Lock()
	sessionID := m.sessionID
	m.mu.Unlock()

	sess, err := m.db.GetSession(sessionID)
	if err != nil {
		return err
	}
	for _, existing := range sess.ChildPIDs {
		if existing == pid {
			return nil
		}
	}
	return m.db.UpdateSessionPIDs(sessionID, append(sess.ChildPIDs, pid))
}

// RemoveChildPID drops an exited child process from the session.
func (m *Manager) RemoveChildPID(pid int) error {
	m.mu.Lock()
	sessionID := m.sessionID
	m.mu.Unlock()

	sess, err := m.db.GetSession(sessionID)
	if err != nil {
		return err
	}
	pids := make([]int, 0, len(sess.ChildPIDs))
	for _, existing := range sess.ChildPIDs {
		if existing != pid {
			pids = append(pids, existing)
		}
	}
	return m.db.UpdateSessionPIDs(sessionID, pids)
}

// autosaveLoop checkpoints on the interval while the session is active.
func (m *Manager) autosaveLoop() {
	ticker := time.NewTicker(m.autosaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopAutosave:
			return
		case <-ticker.C:
			m.mu.Lock()
			sessionID := m.sessionID
			m.mu.Unlock()

			sess, err := m.db.GetSession(sessionID)
			if err != nil || sess.Status != store.SessionActive {
				continue
			}
			if _, err := m.Checkpoint("auto-save"); err != nil {
				log.Printf("[session] WARNING: auto-save failed: %v", err)
			}
		}
	}
}

// killProcess sends SIGKILL to a child. A missing process is fine; it
// already exited.
func killProcess(pid int) {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return
	}
	if err := proc.Kill(); err != nil {
		log.Printf("[session] kill pid %d: %v", pid, err)
	}
}

// shortID returns the 8-character display prefix of an ID.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Package memory exposes a swarm's collective memory as a small facade
// over the persistent store: typed writes, access-counted reads, pattern
// search, and stale-entry reporting.
package memory

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yte121/openswarm/internal/store"
)

// EntryType classifies what a memory entry holds.
type EntryType string

const (
	TypeKnowledge EntryType = "knowledge"
	TypeDecision  EntryType = "decision"
	TypeResult    EntryType = "result"
	TypeContext   EntryType = "context"
)

// ParseEntryType validates and converts a raw entry type string.
func ParseEntryType(s string) (EntryType, error) {
	switch EntryType(s) {
	case TypeKnowledge, TypeDecision, TypeResult, TypeContext:
		return EntryType(s), nil
	}
	return "", fmt.Errorf("invalid memory entry type %q", s)
}

// Collective is the shared memory of one swarm.
type Collective struct {
	db      store.Store
	swarmID string
}

// NewCollective creates a facade bound to a swarm.
func NewCollective(db store.Store, swarmID string) *Collective {
	return &Collective{db: db, swarmID: swarmID}
}

// Store writes a key/value entry. An existing key is overwritten; the
// last write wins.
func (c *Collective) Store(key, value string, entryType EntryType, confidence float64, createdBy string) error {
	if _, err := ParseEntryType(string(entryType)); err != nil {
		return err
	}
	if confidence < 0 || confidence > 1 {
		return fmt.Errorf("confidence %v out of range [0,1]", confidence)
	}
	return c.db.StoreMemory(&store.MemoryEntry{
		ID:         uuid.New().String(),
		SwarmID:    c.swarmID,
		Key:        key,
		Value:      value,
		Type:       string(entryType),
		Confidence: confidence,
		CreatedBy:  createdBy,
		CreatedAt:  time.Now(),
	})
}

// Get reads an entry by key, counting the access. Returns nil when the
// key is unknown.
func (c *Collective) Get(key string) (*store.MemoryEntry, error) {
	return c.db.GetMemory(c.swarmID, key)
}

// Search returns up to limit entries matching pattern, newest first.
func (c *Collective) Search(pattern string, limit int) ([]store.MemoryEntry, error) {
	return c.db.SearchMemory(c.swarmID, pattern, limit)
}

// All lists every entry for the swarm, newest first.
func (c *Collective) All() ([]store.MemoryEntry, error) {
	return c.db.ListMemoryBySwarm(c.swarmID)
}

// Stale reports entries not touched since the cutoff. Cleanup is a
// report, not a deletion; callers decide what to do with the list.
func (c *Collective) Stale(olderThan time.Duration) ([]store.MemoryEntry, error) {
	return c.db.StaleMemory(c.swarmID, time.Now().Add(-olderThan))
}

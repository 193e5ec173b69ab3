package store

import (
	"testing"
	"time"
)

func storeEntry(t *testing.T, db *DB, id, swarmID, key, value string) {
	t.Helper()
	e := &MemoryEntry{
		ID: id, SwarmID: swarmID, Key: key, Value: value,
		Type: "knowledge", Confidence: 0.9, CreatedBy: "agent-1",
		CreatedAt: time.Now(),
	}
	if err := db.StoreMemory(e); err != nil {
		t.Fatalf("StoreMemory failed: %v", err)
	}
}

func TestStoreAndGetMemory(t *testing.T) {
	db := setupTestDB(t)
	makeSwarm(t, db, "sw1")
	storeEntry(t, db, "m1", "sw1", "api-style", "use REST")

	got, err := db.GetMemory("sw1", "api-style")
	if err != nil {
		t.Fatalf("GetMemory failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetMemory returned nil")
	}
	if got.Value != "use REST" || got.CreatedBy != "agent-1" {
		t.Errorf("entry mismatch: %+v", got)
	}
}

func TestGetMemory_BumpsAccessCount(t *testing.T) {
	db := setupTestDB(t)
	makeSwarm(t, db, "sw1")
	storeEntry(t, db, "m1", "sw1", "k", "v")

	for i := 1; i <= 3; i++ {
		got, err := db.GetMemory("sw1", "k")
		if err != nil {
			t.Fatalf("GetMemory failed: %v", err)
		}
		if got.AccessCount != i {
			t.Errorf("AccessCount = %d, want %d", got.AccessCount, i)
		}
		if got.AccessedAt == nil {
			t.Error("AccessedAt not set after read")
		}
	}
}

func TestGetMemory_NotFound(t *testing.T) {
	db := setupTestDB(t)
	makeSwarm(t, db, "sw1")

	got, err := db.GetMemory("sw1", "missing")
	if err != nil {
		t.Fatalf("GetMemory failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing key, got %+v", got)
	}
}

func TestStoreMemory_LastWriteWins(t *testing.T) {
	db := setupTestDB(t)
	makeSwarm(t, db, "sw1")
	storeEntry(t, db, "m1", "sw1", "k", "first")

	// Bump the count so we can check it survives the overwrite
	if _, err := db.GetMemory("sw1", "k"); err != nil {
		t.Fatalf("GetMemory failed: %v", err)
	}

	second := &MemoryEntry{
		ID: "m2", SwarmID: "sw1", Key: "k", Value: "second",
		Type: "decision", Confidence: 0.5, CreatedBy: "agent-2",
		CreatedAt: time.Now(),
	}
	if err := db.StoreMemory(second); err != nil {
		t.Fatalf("StoreMemory overwrite failed: %v", err)
	}

	got, err := db.GetMemory("sw1", "k")
	if err != nil {
		t.Fatalf("GetMemory failed: %v", err)
	}
	if got.Value != "second" || got.Type != "decision" || got.CreatedBy != "agent-2" {
		t.Errorf("overwrite did not take: %+v", got)
	}
	if got.ID != "m1" {
		t.Errorf("ID = %s, want original m1", got.ID)
	}
	if got.AccessCount != 2 {
		t.Errorf("AccessCount = %d, want 2 (1 before overwrite + this read)", got.AccessCount)
	}

	entries, err := db.ListMemoryBySwarm("sw1")
	if err != nil {
		t.Fatalf("ListMemoryBySwarm failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("entries = %d, want 1 after overwrite", len(entries))
	}
}

func TestStoreMemory_KeysScopedPerSwarm(t *testing.T) {
	db := setupTestDB(t)
	makeSwarm(t, db, "sw1")
	makeSwarm(t, db, "sw2")
	storeEntry(t, db, "m1", "sw1", "k", "one")
	storeEntry(t, db, "m2", "sw2", "k", "two")

	got, err := db.GetMemory("sw2", "k")
	if err != nil {
		t.Fatalf("GetMemory failed: %v", err)
	}
	if got.Value != "two" {
		t.Errorf("Value = %q, want %q", got.Value, "two")
	}
}

func TestSearchMemory(t *testing.T) {
	db := setupTestDB(t)
	makeSwarm(t, db, "sw1")
	storeEntry(t, db, "m1", "sw1", "api-design", "prefer REST endpoints")
	storeEntry(t, db, "m2", "sw1", "db-choice", "sqlite for local state")
	storeEntry(t, db, "m3", "sw1", "rest-notes", "misc")

	entries, err := db.SearchMemory("sw1", "REST", 10)
	if err != nil {
		t.Fatalf("SearchMemory failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("matches = %d, want 2 (case-insensitive key and value match)", len(entries))
	}

	// Search must not count as access
	got, err := db.GetMemory("sw1", "api-design")
	if err != nil {
		t.Fatalf("GetMemory failed: %v", err)
	}
	if got.AccessCount != 1 {
		t.Errorf("AccessCount = %d, want 1 (search should not bump)", got.AccessCount)
	}
}

func TestSearchMemory_Limit(t *testing.T) {
	db := setupTestDB(t)
	makeSwarm(t, db, "sw1")
	storeEntry(t, db, "m1", "sw1", "note-a", "x")
	storeEntry(t, db, "m2", "sw1", "note-b", "x")
	storeEntry(t, db, "m3", "sw1", "note-c", "x")

	entries, err := db.SearchMemory("sw1", "note", 2)
	if err != nil {
		t.Fatalf("SearchMemory failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("matches = %d, want 2", len(entries))
	}
}

func TestStaleMemory_IdentifiesWithoutDeleting(t *testing.T) {
	db := setupTestDB(t)
	makeSwarm(t, db, "sw1")

	old := &MemoryEntry{
		ID: "m-old", SwarmID: "sw1", Key: "old", Value: "v",
		Type: "knowledge", Confidence: 1, CreatedBy: "a",
		CreatedAt: time.Now().Add(-48 * time.Hour),
	}
	if err := db.StoreMemory(old); err != nil {
		t.Fatalf("StoreMemory failed: %v", err)
	}
	storeEntry(t, db, "m-new", "sw1", "new", "v")

	stale, err := db.StaleMemory("sw1", time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("StaleMemory failed: %v", err)
	}
	if len(stale) != 1 || stale[0].Key != "old" {
		t.Errorf("stale = %+v, want just the old entry", stale)
	}

	// Identification only; nothing was removed
	entries, err := db.ListMemoryBySwarm("sw1")
	if err != nil {
		t.Fatalf("ListMemoryBySwarm failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("entries = %d, want 2", len(entries))
	}
}

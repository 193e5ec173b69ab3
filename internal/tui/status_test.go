package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yte121/openswarm/internal/optimizer"
	"github.com/yte121/openswarm/internal/session"
	"github.com/yte121/openswarm/internal/store"
)

func testSnapshot() Snapshot {
	return Snapshot{
		SwarmName:     "widgets",
		SessionID:     "abcdef1234567890",
		SessionStatus: store.SessionActive,
		Stats: session.Stats{
			TotalAgents:       4,
			ActiveAgents:      3,
			Tasks:             store.TaskBreakdown{Pending: 1, InProgress: 1, Completed: 2},
			CompletionPercent: 50,
			MemoryEntries:     7,
			Decisions:         2,
		},
		Metrics: optimizer.Metrics{
			Queue: optimizer.QueueMetrics{Running: 2, Queued: 5, MaxConcurrency: 10, Processed: 40, Failed: 1},
		},
	}
}

func TestStatusApp_LoadingThenLoaded(t *testing.T) {
	app := NewStatusApp(func() (Snapshot, error) { return testSnapshot(), nil }, time.Second)

	view := app.View()
	if !strings.Contains(view, "loading") {
		t.Errorf("expected loading view before first snapshot, got %q", view)
	}

	model, _ := app.Update(SnapshotMsg{Snapshot: testSnapshot()})
	app = model.(*StatusApp)

	view = app.View()
	for _, want := range []string{
		"widgets",
		"abcdef12",
		"active",
		"3 active / 4 total",
		"2 done, 1 running, 1 pending",
		"50.0%",
		"7 entries",
		"2 running / 5 queued (cap 10)",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestStatusApp_FetchError(t *testing.T) {
	app := NewStatusApp(func() (Snapshot, error) {
		return Snapshot{}, errors.New("db unreachable")
	}, time.Second)

	model, _ := app.Update(SnapshotMsg{Err: errors.New("db unreachable")})
	app = model.(*StatusApp)

	if !strings.Contains(app.View(), "db unreachable") {
		t.Error("expected error to be rendered")
	}
}

func TestStatusApp_QuitKey(t *testing.T) {
	app := NewStatusApp(func() (Snapshot, error) { return testSnapshot(), nil }, time.Second)

	model, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	app = model.(*StatusApp)

	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.Quit")
	}
	if app.View() != "" {
		t.Error("expected empty view after quit")
	}
}

func TestRenderProgressBar_Clamped(t *testing.T) {
	app := NewStatusApp(nil, time.Second)

	over := app.renderProgressBar(150, 10)
	if strings.Count(over, "█") != 10 {
		t.Errorf("expected full bar at >100%%, got %q", over)
	}

	under := app.renderProgressBar(-5, 10)
	if strings.Count(under, "░") != 10 {
		t.Errorf("expected empty bar at <0%%, got %q", under)
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID(abc) = %q", got)
	}
	if got := shortID("0123456789"); got != "01234567" {
		t.Errorf("shortID = %q, want 8 chars", got)
	}
}

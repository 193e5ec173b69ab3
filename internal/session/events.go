// Package session manages the lifecycle of a swarm coordination session:
// creation, checkpointing, pause, resume, and stop, all backed by the
// persistent store so a session survives process restarts.
package session

import (
	"log"
	"sync/atomic"
	"time"
)

// EventType identifies a session lifecycle event.
type EventType string

const (
	EventSessionStarted  EventType = "session_started"
	EventCheckpointSaved EventType = "checkpoint_saved"
	EventSessionPaused   EventType = "session_paused"
	EventSessionResumed  EventType = "session_resumed"
	EventSessionStopped  EventType = "session_stopped"
)

// Event is one session lifecycle notification.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	SwarmID   string    `json:"swarm_id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// EventEmitter fans session events out to a single subscriber over a
// buffered channel, dropping with accounting when the receiver lags.
type EventEmitter struct {
	events       chan Event
	droppedCount atomic.Uint64
}

// NewEventEmitter creates an emitter with the given buffer size.
func NewEventEmitter(bufferSize int) *EventEmitter {
	return &EventEmitter{
		events: make(chan Event, bufferSize),
	}
}

// Emit sends an event, waiting briefly before dropping it if the
// subscriber is not keeping up.
func (e *EventEmitter) Emit(event Event) {
	select {
	case e.events <- event:
		return
	default:
	}

	select {
	case e.events <- event:
	case <-time.After(100 * time.Millisecond):
		count := e.droppedCount.Add(1)
		if count%10 == 1 {
			log.Printf("[session] WARNING: event channel full, dropped event (total dropped: %d): type=%s", count, event.Type)
		}
	}
}

// DroppedCount returns the total number of dropped events.
func (e *EventEmitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Events returns the read side of the event channel.
func (e *EventEmitter) Events() <-chan Event {
	return e.events
}

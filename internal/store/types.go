package store

import "fmt"

// SwarmStatus represents the status of a swarm.
type SwarmStatus string

const (
	SwarmActive    SwarmStatus = "active"
	SwarmPaused    SwarmStatus = "paused"
	SwarmStopped   SwarmStatus = "stopped"
	SwarmCompleted SwarmStatus = "completed"
)

// ParseSwarmStatus validates and converts a raw status string.
func ParseSwarmStatus(s string) (SwarmStatus, error) {
	switch SwarmStatus(s) {
	case SwarmActive, SwarmPaused, SwarmStopped, SwarmCompleted:
		return SwarmStatus(s), nil
	}
	return "", fmt.Errorf("invalid swarm status %q", s)
}

// AgentRole represents the role of an agent within a swarm.
type AgentRole string

const (
	RoleQueen  AgentRole = "queen"
	RoleWorker AgentRole = "worker"
)

// ParseAgentRole validates and converts a raw role string.
func ParseAgentRole(s string) (AgentRole, error) {
	switch AgentRole(s) {
	case RoleQueen, RoleWorker:
		return AgentRole(s), nil
	}
	return "", fmt.Errorf("invalid agent role %q", s)
}

// AgentStatus represents the status of an agent.
type AgentStatus string

const (
	AgentIdle    AgentStatus = "idle"
	AgentActive  AgentStatus = "active"
	AgentBusy    AgentStatus = "busy"
	AgentStopped AgentStatus = "stopped"
)

// ParseAgentStatus validates and converts a raw status string.
func ParseAgentStatus(s string) (AgentStatus, error) {
	switch AgentStatus(s) {
	case AgentIdle, AgentActive, AgentBusy, AgentStopped:
		return AgentStatus(s), nil
	}
	return "", fmt.Errorf("invalid agent status %q", s)
}

// TaskStatus represents the status of a task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// ParseTaskStatus validates and converts a raw status string.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch TaskStatus(s) {
	case TaskPending, TaskInProgress, TaskCompleted, TaskFailed:
		return TaskStatus(s), nil
	}
	return "", fmt.Errorf("invalid task status %q", s)
}

// CanTransitionTo reports whether a task may move from its current status
// to the given one. Transitions only move forward: pending -> in_progress
// -> completed/failed. Terminal states never transition.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	switch s {
	case TaskPending:
		return next == TaskInProgress
	case TaskInProgress:
		return next == TaskCompleted || next == TaskFailed
	}
	return false
}

// SessionStatus represents the status of a coordination session.
type SessionStatus string

const (
	SessionActive  SessionStatus = "active"
	SessionPaused  SessionStatus = "paused"
	SessionStopped SessionStatus = "stopped"
)

// ParseSessionStatus validates and converts a raw status string.
func ParseSessionStatus(s string) (SessionStatus, error) {
	switch SessionStatus(s) {
	case SessionActive, SessionPaused, SessionStopped:
		return SessionStatus(s), nil
	}
	return "", fmt.Errorf("invalid session status %q", s)
}

// CanTransitionTo reports whether a session may move from its current
// status to the given one. Active and paused flip back and forth, either
// may stop, and stopped is terminal.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	switch s {
	case SessionActive:
		return next == SessionPaused || next == SessionStopped
	case SessionPaused:
		return next == SessionActive || next == SessionStopped
	}
	return false
}

// ConsensusAlgorithm identifies the vote tally algorithm used for a decision.
type ConsensusAlgorithm string

const (
	ConsensusMajority  ConsensusAlgorithm = "majority"
	ConsensusWeighted  ConsensusAlgorithm = "weighted"
	ConsensusByzantine ConsensusAlgorithm = "byzantine"
)

// ParseConsensusAlgorithm validates and converts a raw algorithm string.
func ParseConsensusAlgorithm(s string) (ConsensusAlgorithm, error) {
	switch ConsensusAlgorithm(s) {
	case ConsensusMajority, ConsensusWeighted, ConsensusByzantine:
		return ConsensusAlgorithm(s), nil
	}
	return "", fmt.Errorf("invalid consensus algorithm %q", s)
}

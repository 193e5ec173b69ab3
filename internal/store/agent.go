package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// Agent represents a logical worker or coordinator belonging to a swarm.
// Exactly one agent per swarm carries the queen role by convention; the
// schema does not enforce it.
type Agent struct {
	ID           string      `json:"id"`
	SwarmID      string      `json:"swarm_id"`
	Name         string      `json:"name"`
	Type         string      `json:"type"`
	Role         AgentRole   `json:"role"`
	Status       AgentStatus `json:"status"`
	Capabilities []string    `json:"capabilities"`
}

// CreateAgent creates a new agent.
func (db *DB) CreateAgent(a *Agent) error {
	if _, err := ParseAgentRole(string(a.Role)); err != nil {
		return err
	}
	if _, err := ParseAgentStatus(string(a.Status)); err != nil {
		return err
	}
	capabilities, _ := json.Marshal(a.Capabilities)

	_, err := db.Exec(`
		INSERT INTO agents (id, swarm_id, name, type, role, status, capabilities)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.SwarmID, a.Name, a.Type, string(a.Role), string(a.Status), string(capabilities))
	if err != nil {
		return fmt.Errorf("create agent: %w", err)
	}
	return nil
}

// GetAgent retrieves an agent by ID. Returns nil if not found.
func (db *DB) GetAgent(id string) (*Agent, error) {
	row := db.QueryRow(`
		SELECT id, swarm_id, name, type, role, status, capabilities
		FROM agents WHERE id = ?
	`, id)

	a, err := scanAgent(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get agent: %w", err)
	}
	return a, nil
}

// UpdateAgentStatus updates an agent's status.
func (db *DB) UpdateAgentStatus(id string, status AgentStatus) error {
	if _, err := ParseAgentStatus(string(status)); err != nil {
		return err
	}
	_, err := db.Exec("UPDATE agents SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return fmt.Errorf("update agent status: %w", err)
	}
	return nil
}

// ListAgentsBySwarm lists all agents belonging to a swarm.
func (db *DB) ListAgentsBySwarm(swarmID string) ([]Agent, error) {
	rows, err := db.Query(`
		SELECT id, swarm_id, name, type, role, status, capabilities
		FROM agents WHERE swarm_id = ?
	`, swarmID)
	if err != nil {
		return nil, fmt.Errorf("list agents by swarm: %w", err)
	}
	defer rows.Close()

	var agents []Agent
	for rows.Next() {
		a, err := scanAgent(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, *a)
	}
	return agents, nil
}

// CountAgentsByStatus returns the number of agents in a swarm per status.
func (db *DB) CountAgentsByStatus(swarmID string) (map[AgentStatus]int, error) {
	rows, err := db.Query(`
		SELECT status, COUNT(*) FROM agents WHERE swarm_id = ? GROUP BY status
	`, swarmID)
	if err != nil {
		return nil, fmt.Errorf("count agents by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[AgentStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan agent count: %w", err)
		}
		counts[AgentStatus(status)] = n
	}
	return counts, nil
}

// scanAgent scans one agent row from either *sql.Row or *sql.Rows.
func scanAgent(scan func(...any) error) (*Agent, error) {
	var a Agent
	var capabilities sql.NullString
	if err := scan(&a.ID, &a.SwarmID, &a.Name, &a.Type, &a.Role, &a.Status, &capabilities); err != nil {
		return nil, err
	}
	if capabilities.Valid {
		json.Unmarshal([]byte(capabilities.String), &a.Capabilities)
	}
	return &a, nil
}

package agent

import (
	"strings"
	"testing"
)

func TestBuildWorkerPrompt(t *testing.T) {
	prompt := BuildWorkerPrompt(WorkerPromptContext{
		AgentName:   "worker-1",
		AgentType:   "coder",
		Objective:   "build the widget service",
		Task:        "implement the HTTP handlers",
		SharedNotes: []string{"api-style: REST", "db: sqlite"},
	})

	for _, want := range []string{
		"worker-1", "coder",
		"build the widget service",
		"implement the HTTP handlers",
		"api-style: REST",
		"Scope Guidance",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildWorkerPrompt_ProtectedAreas(t *testing.T) {
	prompt := BuildWorkerPrompt(WorkerPromptContext{
		AgentName: "w", AgentType: "coder",
		Objective: "obj", Task: "task",
		ProtectedAreas: []string{"**/auth/**", "**/secrets/**"},
	})
	for _, want := range []string{"Protected Areas", "**/auth/**", "**/secrets/**"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildWorkerPrompt_NoNotes(t *testing.T) {
	prompt := BuildWorkerPrompt(WorkerPromptContext{
		AgentName: "w", AgentType: "tester",
		Objective: "obj", Task: "task",
	})
	if strings.Contains(prompt, "Shared Swarm Knowledge") {
		t.Error("notes section should be omitted when empty")
	}
}

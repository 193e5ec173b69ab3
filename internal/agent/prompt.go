package agent

import (
	"fmt"
	"strings"
)

// WorkerPromptContext carries what a worker needs to know about its task
// and the swarm it belongs to.
type WorkerPromptContext struct {
	AgentName      string
	AgentType      string
	Objective      string
	Task           string
	SharedNotes    []string
	ProtectedAreas []string
}

// BuildWorkerPrompt renders the prompt handed to a spawned worker process.
func BuildWorkerPrompt(ctx WorkerPromptContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a %s agent in a coding swarm.\n\n", ctx.AgentName, ctx.AgentType)
	fmt.Fprintf(&b, "## Swarm Objective\n\n%s\n\n", ctx.Objective)
	fmt.Fprintf(&b, "## Your Task\n\n%s\n\n", ctx.Task)

	if len(ctx.SharedNotes) > 0 {
		b.WriteString("## Shared Swarm Knowledge\n\n")
		for _, note := range ctx.SharedNotes {
			fmt.Fprintf(&b, "- %s\n", note)
		}
		b.WriteString("\n")
	}

	b.WriteString(`## Scope Guidance

Stay focused on this task. If you discover unrelated improvements, note
them but do not implement them in this session.

Do NOT:
- Expand scope with unrelated refactoring
- Fix unrelated bugs you encounter
- Add features not specified in the task

DO:
- Complete the assigned task
- Stay within the task boundaries
`)

	if len(ctx.ProtectedAreas) > 0 {
		b.WriteString("\n## Protected Areas\n\nDo not modify files matching these patterns without explicit approval:\n\n")
		for _, pattern := range ctx.ProtectedAreas {
			fmt.Fprintf(&b, "- %s\n", pattern)
		}
	}
	return b.String()
}

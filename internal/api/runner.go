package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

// Runner provides text-in/text-out Claude API calls for objective
// decomposition and other non-tool tasks.
type Runner struct {
	client *Client
}

// NewRunner creates a new API runner.
func NewRunner(client *Client) *Runner {
	return &Runner{client: client}
}

// Run executes a prompt and returns the text response.
func (r *Runner) Run(ctx context.Context, prompt string) (string, error) {
	resp, err := r.client.sdk().Messages.New(ctx, anthropic.MessageNewParams{
		Model:     r.client.Model(),
		MaxTokens: 8192,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("API call failed: %w", err)
	}

	r.client.Tracker().Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var result strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			result.WriteString(variant.Text)
		}
	}
	return result.String(), nil
}

// RunWithSystem executes a prompt with a system message.
func (r *Runner) RunWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := r.client.sdk().Messages.New(ctx, anthropic.MessageNewParams{
		Model:     r.client.Model(),
		MaxTokens: 8192,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("API call failed: %w", err)
	}

	r.client.Tracker().Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var result strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			result.WriteString(variant.Text)
		}
	}
	return result.String(), nil
}

// RunJSON executes a prompt and parses the JSON response into the target.
func (r *Runner) RunJSON(ctx context.Context, prompt string, target interface{}) error {
	response, err := r.Run(ctx, prompt)
	if err != nil {
		return err
	}

	jsonStart := strings.Index(response, "{")
	if jsonStart == -1 {
		jsonStart = strings.Index(response, "[")
	}
	jsonEnd := strings.LastIndex(response, "}")
	if jsonEnd == -1 {
		jsonEnd = strings.LastIndex(response, "]")
	}

	if jsonStart == -1 || jsonEnd == -1 || jsonEnd <= jsonStart {
		return fmt.Errorf("no valid JSON found in response: %s", truncate(response, 200))
	}

	jsonStr := response[jsonStart : jsonEnd+1]
	if err := json.Unmarshal([]byte(jsonStr), target); err != nil {
		return fmt.Errorf("parse JSON: %w (response: %s)", err, truncate(jsonStr, 200))
	}
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// TaskSpec is one task produced by objective decomposition.
type TaskSpec struct {
	Description string `json:"description"`
	AgentType   string `json:"agent_type"`
	Priority    int    `json:"priority"`
}

const decompositionPrompt = `You are the queen agent of a coding swarm. Break the objective below into 3-8 independent tasks that worker agents can execute in parallel.

OBJECTIVE:
%s

Return ONLY a JSON array with this exact structure (no other text):
[
  {"description": "what the worker should do", "agent_type": "coder|tester|reviewer|researcher|documenter", "priority": 1}
]

Higher priority numbers run first. Use priority 1-10.`

// DecomposeObjective breaks a swarm objective into worker tasks.
func (r *Runner) DecomposeObjective(ctx context.Context, objective string) ([]TaskSpec, error) {
	var tasks []TaskSpec
	if err := r.RunJSON(ctx, fmt.Sprintf(decompositionPrompt, objective), &tasks); err != nil {
		return nil, fmt.Errorf("decompose objective: %w", err)
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("empty task list returned")
	}
	return tasks, nil
}

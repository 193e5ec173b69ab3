// Package agent launches and tracks external coding-agent processes for
// swarm workers.
package agent

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
)

// Process wraps one spawned agent subprocess.
type Process struct {
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	cmd     *exec.Cmd
	agentID string
	started bool
}

// SpawnOptions controls how a worker process is launched.
type SpawnOptions struct {
	// Command is the agent binary to run. Defaults to "claude".
	Command string
	// Model passes a model override to the agent CLI.
	Model string
	// WorkDir is the working directory for the subprocess.
	WorkDir string
}

// NewProcess creates a process handle for an agent. The context cancels
// the subprocess when it is done.
func NewProcess(ctx context.Context, agentID string) *Process {
	ctx, cancel := context.WithCancel(ctx)
	return &Process{
		ctx:     ctx,
		cancel:  cancel,
		agentID: agentID,
	}
}

// Start launches the agent subprocess with the given prompt. If the launch
// fails, the prompt is written to a file under the work directory so the
// task is not lost and can be run by hand.
func (p *Process) Start(prompt string, opts SpawnOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("process already started")
	}

	command := opts.Command
	if command == "" {
		command = "claude"
	}

	args := []string{"--print"}
	if opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}
	args = append(args, "-p", prompt)

	p.cmd = exec.CommandContext(p.ctx, command, args...)
	if opts.WorkDir != "" {
		p.cmd.Dir = opts.WorkDir
	}

	if err := p.cmd.Start(); err != nil {
		if fallbackErr := writePromptFallback(opts.WorkDir, p.agentID, prompt); fallbackErr != nil {
			log.Printf("[agent] WARNING: prompt fallback for %s failed: %v", p.agentID, fallbackErr)
		} else {
			log.Printf("[agent] launch failed for %s, prompt saved for manual run", p.agentID)
		}
		return fmt.Errorf("start agent process: %w", err)
	}

	p.started = true
	log.Printf("[agent] spawned %s (pid %d)", p.agentID, p.cmd.Process.Pid)
	return nil
}

// writePromptFallback saves a prompt that could not be handed to a live
// process.
func writePromptFallback(workDir, agentID, prompt string) error {
	dir := workDir
	if dir == "" {
		dir = "."
	}
	dir = filepath.Join(dir, ".openswarm", "prompts")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, agentID+".md"), []byte(prompt), 0644)
}

// PID returns the subprocess PID, or 0 before a successful start.
func (p *Process) PID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd != nil && p.cmd.Process != nil {
		return p.cmd.Process.Pid
	}
	return 0
}

// Wait blocks until the subprocess exits.
func (p *Process) Wait() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return fmt.Errorf("process not started")
	}
	cmd := p.cmd
	p.mu.Unlock()
	return cmd.Wait()
}

// Kill terminates the subprocess.
func (p *Process) Kill() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancel()
	if !p.started || p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}

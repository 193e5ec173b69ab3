// Package coordinator wires swarm creation together: store rows for the
// swarm, its queen and workers, decomposed tasks, a live session, and the
// execution optimizer that paces worker spawning.
package coordinator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/yte121/openswarm/internal/agent"
	"github.com/yte121/openswarm/internal/api"
	"github.com/yte121/openswarm/internal/memory"
	"github.com/yte121/openswarm/internal/optimizer"
	"github.com/yte121/openswarm/internal/protect"
	"github.com/yte121/openswarm/internal/session"
	"github.com/yte121/openswarm/internal/store"
)

// Options controls how a swarm is spawned.
type Options struct {
	QueenType        string                   // "strategic" or "tactical"
	MaxWorkers       int                      // cap on worker agents
	Consensus        store.ConsensusAlgorithm // default algorithm for Decide
	AutosaveInterval time.Duration            // session checkpoint cadence
	AgentCommand     string                   // worker binary, defaults to "claude"
	WorkDir          string                   // project root for workers and signals
	SpawnProcesses   bool                     // launch real worker processes
}

// Coordinator manages one swarm end to end.
type Coordinator struct {
	db      store.Store
	opt     *optimizer.Optimizer
	manager *session.Manager
	mem     *memory.Collective
	runner  *api.Runner // nil when no API access is configured

	swarmID string
	opts    Options
}

// New creates a coordinator. runner may be nil; objectives are then
// decomposed with the static fallback.
func New(db store.Store, opt *optimizer.Optimizer, runner *api.Runner, opts Options) *Coordinator {
	if opts.QueenType == "" {
		opts.QueenType = "strategic"
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 5
	}
	if opts.Consensus == "" {
		opts.Consensus = store.ConsensusMajority
	}
	return &Coordinator{
		db:      db,
		opt:     opt,
		manager: session.NewManager(db, opts.AutosaveInterval),
		runner:  runner,
		opts:    opts,
	}
}

// SwarmID returns the ID of the managed swarm, empty before Spawn.
func (c *Coordinator) SwarmID() string {
	return c.swarmID
}

// Session returns the session manager for the managed swarm.
func (c *Coordinator) Session() *session.Manager {
	return c.manager
}

// Memory returns the swarm's collective memory facade.
func (c *Coordinator) Memory() *memory.Collective {
	return c.mem
}

// Metrics returns the optimizer's combined metrics snapshot.
func (c *Coordinator) Metrics() optimizer.Metrics {
	return c.opt.Metrics()
}

// Spawn creates the swarm: its row, queen agent, decomposed tasks, worker
// agents grouped by complexity tier, and an active session.
func (c *Coordinator) Spawn(ctx context.Context, name, objective string) (*store.Swarm, error) {
	now := time.Now()
	swarm := &store.Swarm{
		ID:        uuid.New().String(),
		Name:      name,
		Objective: objective,
		Status:    store.SwarmActive,
		QueenType: c.opts.QueenType,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.db.CreateSwarm(swarm); err != nil {
		return nil, err
	}
	c.swarmID = swarm.ID
	c.mem = memory.NewCollective(c.db, swarm.ID)

	queen := &store.Agent{
		ID:           uuid.New().String(),
		SwarmID:      swarm.ID,
		Name:         "queen",
		Type:         c.opts.QueenType,
		Role:         store.RoleQueen,
		Status:       store.AgentActive,
		Capabilities: []string{"decompose", "coordinate", "consensus"},
	}
	if err := c.db.CreateAgent(queen); err != nil {
		return nil, err
	}

	specs := c.decompose(ctx, objective)
	if len(specs) > c.opts.MaxWorkers {
		specs = specs[:c.opts.MaxWorkers]
	}

	for _, spec := range specs {
		task := &store.Task{
			ID:          uuid.New().String(),
			SwarmID:     swarm.ID,
			Description: spec.Description,
			Status:      store.TaskPending,
			Priority:    spec.Priority,
			CreatedAt:   time.Now(),
		}
		if err := c.db.CreateTask(task); err != nil {
			return nil, err
		}
	}

	// The session must exist before workers launch so child PIDs have a
	// row to land on.
	if _, err := c.manager.Start(swarm.ID); err != nil {
		return nil, err
	}

	if err := c.spawnWorkers(ctx, swarm, specs); err != nil {
		return nil, err
	}

	log.Printf("[coordinator] spawned swarm %s: %d tasks, %d workers",
		swarm.ID[:8], len(specs), len(specs))
	return swarm, nil
}

// decompose asks the queen's API runner to break down the objective, and
// falls back to a static breakdown when no API is available or the call
// fails.
func (c *Coordinator) decompose(ctx context.Context, objective string) []api.TaskSpec {
	if c.runner != nil {
		specs, err := c.runner.DecomposeObjective(ctx, objective)
		if err == nil {
			return specs
		}
		log.Printf("[coordinator] WARNING: API decomposition failed, using static breakdown: %v", err)
	}
	return staticDecompose(objective)
}

// staticDecompose produces a fixed research/implement/test breakdown.
func staticDecompose(objective string) []api.TaskSpec {
	return []api.TaskSpec{
		{Description: "Research the approach for: " + objective, AgentType: "researcher", Priority: 5},
		{Description: "Implement: " + objective, AgentType: "coder", Priority: 3},
		{Description: "Write tests for: " + objective, AgentType: "tester", Priority: 1},
	}
}

// spawnItem is one worker spawn queued into a per-tier batch.
type spawnItem struct {
	spec api.TaskSpec
	name string
}

// spawnWorkers creates one worker agent per task spec. Spawns of the same
// complexity tier flush through the aggregator as a single batch, so cheap
// spawns do not queue behind expensive ones. The agent row, the task
// assignment, and the optional process launch all happen inside the batch
// processor; a failed spawn fails its whole tier batch and propagates.
func (c *Coordinator) spawnWorkers(ctx context.Context, swarm *store.Swarm, specs []api.TaskSpec) error {
	tasks, err := c.db.ListTasksBySwarm(swarm.ID)
	if err != nil {
		return err
	}
	taskByDescription := make(map[string]store.Task, len(tasks))
	for _, t := range tasks {
		taskByDescription[t.Description] = t
	}

	processor := func(batchCtx context.Context, items []any) ([]any, error) {
		results := make([]any, len(items))
		for j, raw := range items {
			item := raw.(spawnItem)
			worker, err := c.spawnWorker(ctx, swarm, item, taskByDescription)
			if err != nil {
				return nil, fmt.Errorf("spawn %s: %w", item.name, err)
			}
			results[j] = worker.ID
		}
		return results, nil
	}

	var waiters []<-chan optimizer.Result
	for i, spec := range specs {
		tier := optimizer.TierForAgentType(spec.AgentType)
		item := spawnItem{spec: spec, name: fmt.Sprintf("worker-%d", i+1)}
		waiters = append(waiters, c.opt.AddToBatch("spawn:"+string(tier), item, processor))
	}

	for _, w := range waiters {
		if res := <-w; res.Err != nil {
			return res.Err
		}
	}
	return nil
}

// spawnWorker performs one spawn inside a flushed batch: the agent row, the
// task assignment on the priority queue, and the subprocess when enabled.
func (c *Coordinator) spawnWorker(ctx context.Context, swarm *store.Swarm, item spawnItem, taskByDescription map[string]store.Task) (*store.Agent, error) {
	worker := &store.Agent{
		ID:           uuid.New().String(),
		SwarmID:      swarm.ID,
		Name:         item.name,
		Type:         item.spec.AgentType,
		Role:         store.RoleWorker,
		Status:       store.AgentIdle,
		Capabilities: []string{item.spec.AgentType},
	}
	if err := c.db.CreateAgent(worker); err != nil {
		return nil, err
	}

	if task, ok := taskByDescription[item.spec.Description]; ok {
		res := <-c.opt.Submit(item.spec.Priority, func(opCtx context.Context) (any, error) {
			if err := c.db.AssignTask(task.ID, worker.ID); err != nil {
				return nil, err
			}
			return nil, c.db.UpdateAgentStatus(worker.ID, store.AgentBusy)
		})
		if res.Err != nil {
			return nil, fmt.Errorf("assign task: %w", res.Err)
		}
	}

	if c.opts.SpawnProcesses {
		c.launchWorker(ctx, swarm, worker, item.spec)
	}
	return worker, nil
}

// launchWorker starts a real agent subprocess and tracks its PID on the
// session. Launch failure is not fatal; the prompt file fallback keeps
// the task runnable by hand.
func (c *Coordinator) launchWorker(ctx context.Context, swarm *store.Swarm, worker *store.Agent, spec api.TaskSpec) {
	var notes []string
	if entries, err := c.mem.All(); err == nil {
		for _, e := range entries {
			notes = append(notes, e.Key+": "+e.Value)
		}
	}

	guard := protect.ForProject(c.opts.WorkDir)
	prompt := agent.BuildWorkerPrompt(agent.WorkerPromptContext{
		AgentName:      worker.Name,
		AgentType:      worker.Type,
		Objective:      swarm.Objective,
		Task:           spec.Description,
		SharedNotes:    notes,
		ProtectedAreas: guard.Patterns(),
	})

	proc := agent.NewProcess(ctx, worker.ID)
	if err := proc.Start(prompt, agent.SpawnOptions{
		Command: c.opts.AgentCommand,
		WorkDir: c.opts.WorkDir,
	}); err != nil {
		log.Printf("[coordinator] WARNING: worker %s did not launch: %v", worker.Name, err)
		return
	}
	if err := c.manager.AddChildPID(proc.PID()); err != nil {
		log.Printf("[coordinator] WARNING: track pid %d: %v", proc.PID(), err)
	}
}

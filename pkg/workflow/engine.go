package workflow

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/orchestr8/taskflow/internal/errs"
	"github.com/orchestr8/taskflow/pkg/checkpoint"
	"github.com/orchestr8/taskflow/pkg/eventbus"
	"github.com/orchestr8/taskflow/pkg/executor"
	"github.com/orchestr8/taskflow/pkg/router"
)

// Config configures the Engine.
type Config struct {
	MaxConcurrentAgents int
	CancelGracePeriod   time.Duration
}

// SetDefaults fills zero-valued fields with documented defaults.
func (c *Config) SetDefaults() {
	if c.MaxConcurrentAgents <= 0 {
		c.MaxConcurrentAgents = 5
	}
	if c.CancelGracePeriod <= 0 {
		c.CancelGracePeriod = 5 * time.Second
	}
}

// Engine walks a Workflow's DAG wave by wave, routing each runnable step to
// an executor, persisting checkpoints, and emitting lifecycle events.
//
// Grounded on pkg/agent/workflowagent/parallel.go for the bounded fan-out
// used to dispatch a wave: a semaphore caps concurrency and a
// sync.WaitGroup waits for the wave to finish.
type Engine struct {
	agents      *executor.Registry
	router      *router.Router
	checkpoints *checkpoint.Store
	bus         *eventbus.Bus
	logger      *slog.Logger
	cfg         Config
	clock       func() time.Time
}

// NewEngine wires the four collaborators the engine requires.
func NewEngine(cfg Config, agents *executor.Registry, rtr *router.Router, checkpoints *checkpoint.Store, bus *eventbus.Bus, logger *slog.Logger) *Engine {
	cfg.SetDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		agents:      agents,
		router:      rtr,
		checkpoints: checkpoints,
		bus:         bus,
		logger:      logger,
		cfg:         cfg,
		clock:       time.Now,
	}
}

// RegisterAgent adds agent to both the executor pool and the router's
// capability table, then publishes agent_registered.
func (e *Engine) RegisterAgent(agent executor.Agent) error {
	if err := e.agents.Register(agent); err != nil {
		return err
	}
	if err := e.router.RegisterAgent(agent.Name(), router.TypeGeneralist, agent.Capabilities(), agent.MaxConcurrent()); err != nil {
		return err
	}
	e.bus.Publish(eventbus.Event{Type: eventbus.AgentRegistered, Source: "workflow.Engine", Data: map[string]any{"agent_name": agent.Name()}})
	return nil
}

// UnregisterAgent removes agent from both the executor pool and the router.
func (e *Engine) UnregisterAgent(name string) {
	e.agents.Unregister(name)
	e.router.UnregisterAgent(name)
	e.bus.Publish(eventbus.Event{Type: eventbus.AgentUnregistered, Source: "workflow.Engine", Data: map[string]any{"agent_name": name}})
}

// resolver adapts the engine's executor registry to the AgentResolver
// interface admission validation needs.
type resolver struct{ agents *executor.Registry }

func (r resolver) CanResolve(name string) bool {
	_, ok := r.agents.Get(name)
	return ok
}

// ExecuteWorkflow validates, resumes from any existing checkpoint, and runs
// w to a terminal state.
func (e *Engine) ExecuteWorkflow(ctx context.Context, w *Workflow) (*Workflow, error) {
	if err := Validate(w, resolver{agents: e.agents}); err != nil {
		w.Status = WorkflowFailed
		e.bus.Publish(eventbus.Event{Type: eventbus.WorkflowFailed, Source: "workflow.Engine", Data: map[string]any{"workflow_id": w.ID, "error": err.Error()}})
		return w, err
	}

	if err := e.resume(w); err != nil {
		e.logger.Warn("checkpoint resume failed, starting fresh", "workflow_id", w.ID, "error", err)
	}

	now := e.clock()
	w.Status = WorkflowRunning
	w.StartedAt = &now
	e.bus.Publish(eventbus.Event{Type: eventbus.WorkflowStarted, Source: "workflow.Engine", Data: map[string]any{"workflow_id": w.ID}})

	err := e.run(ctx, w)

	completedAt := e.clock()
	w.CompletedAt = &completedAt

	switch {
	case ctx.Err() != nil:
		w.Status = WorkflowCancelled
	case err != nil || w.anyFailed():
		w.Status = WorkflowFailed
	default:
		w.Status = WorkflowCompleted
	}

	if w.Status == WorkflowCompleted {
		e.bus.Publish(eventbus.Event{Type: eventbus.WorkflowCompleted, Source: "workflow.Engine", Data: map[string]any{"workflow_id": w.ID}})
	} else {
		e.bus.Publish(eventbus.Event{Type: eventbus.WorkflowFailed, Source: "workflow.Engine", Data: map[string]any{"workflow_id": w.ID, "status": string(w.Status)}})
	}

	// Terminal in every case: completed, failed, or cancelled all delete the
	// checkpoint, per the "deleted on terminal workflow status" contract.
	if cerr := e.checkpoints.Delete(w.ID); cerr != nil {
		e.logger.Warn("checkpoint delete failed", "workflow_id", w.ID, "error", cerr)
	}

	return w, err
}

// resume loads any existing checkpoint for w.ID and reconstructs step
// statuses from it. A completed step is never re-executed.
func (e *Engine) resume(w *Workflow) error {
	state, ok, err := e.checkpoints.Load(w.ID)
	if err != nil || !ok {
		return err
	}
	byID := make(map[string]checkpoint.StepState, len(state.Steps))
	for _, s := range state.Steps {
		byID[s.ID] = s
	}
	for _, step := range w.Steps {
		if saved, ok := byID[step.ID]; ok {
			step.Status = StepStatus(saved.Status)
			step.RetryCount = saved.RetryCount
			step.Error = saved.Error
			step.StartedAt = saved.StartedAt
			step.CompletedAt = saved.CompletedAt
		}
	}
	return nil
}

// run executes the wave-scheduling loop until the workflow reaches a
// terminal state or stalls.
func (e *Engine) run(ctx context.Context, w *Workflow) error {
	consecutiveNoProgress := 0
	lastCompletedCount := -1

	for {
		if ctx.Err() != nil {
			e.cancelInFlight(w)
			return ctx.Err()
		}
		if w.allTerminal() {
			return nil
		}

		frontier := runnableFrontier(w)
		if len(frontier) == 0 {
			completedCount := len(w.completedStepIDs())
			if completedCount == lastCompletedCount && !anyRunning(w) {
				consecutiveNoProgress++
			} else {
				consecutiveNoProgress = 0
			}
			lastCompletedCount = completedCount

			if consecutiveNoProgress >= 2 {
				return e.fail(w, "deadlock")
			}
			continue
		}

		e.dispatchWave(ctx, w, frontier)
	}
}

func (e *Engine) fail(w *Workflow, reason string) error {
	blocked, cycleErr := detectBlockedAndCycles(w)
	msg := reason + ", blocked steps: " + strings.Join(blocked, ",")
	if cycleErr != nil {
		msg += "; " + cycleErr.Error()
	}
	return errs.New("workflow.Engine", "run", errs.KindDeadlock, msg, nil)
}

// dispatchWave runs every step in frontier concurrently, bounded by
// cfg.MaxConcurrentAgents.
func (e *Engine) dispatchWave(ctx context.Context, w *Workflow, frontier []*WorkflowStep) {
	sem := semaphore.NewWeighted(int64(e.cfg.MaxConcurrentAgents))
	var wg sync.WaitGroup

	for _, step := range frontier {
		step := step
		if err := sem.Acquire(ctx, 1); err != nil {
			return // context cancelled while waiting for a slot
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			e.runStep(ctx, w, step)
		}()
	}
	wg.Wait()
}

// runStep transitions step through running -> (completed|pending|failed),
// invoking the executor with a per-attempt timeout and checkpointing after
// every completed transition.
func (e *Engine) runStep(ctx context.Context, w *Workflow, step *WorkflowStep) {
	agent, decision, err := e.selectAgent(step)
	if err != nil {
		// NoEligibleAgent is a retryable step failure, gated by max_retries
		// like any other executor failure.
		e.retryOrFail(w, step, err.Error())
		return
	}

	startedAt := e.clock()
	step.Status = StepRunning
	step.StartedAt = &startedAt
	e.bus.Publish(eventbus.Event{Type: eventbus.StepStarted, Source: "workflow.Engine", Data: map[string]any{"step_id": step.ID, "agent": decision}})

	timeout := time.Duration(step.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, execErr := agent.Execute(stepCtx, step.Task)
	duration := e.clock().Sub(startedAt)

	if stepCtx.Err() == context.DeadlineExceeded {
		e.router.RecordTaskCompletion(agent.Name(), step.Task.ID, false)
		e.bus.Publish(eventbus.Event{Type: eventbus.StepTimeout, Source: "workflow.Engine", Data: map[string]any{"step_id": step.ID}})
		e.retryOrFail(w, step, "timeout")
		return
	}

	if execErr != nil || !result.Success {
		e.router.RecordTaskCompletion(agent.Name(), step.Task.ID, false)
		reason := "executor failure"
		if execErr != nil {
			reason = execErr.Error()
		} else if result.Error != nil {
			reason = result.Error.Error()
		}
		if result.Permanent {
			// A permanent-failure signal bypasses retries entirely, even if
			// the step has retries remaining.
			e.recordFailure(w, step, reason)
			return
		}
		e.retryOrFail(w, step, reason)
		return
	}

	e.router.RecordTaskCompletion(agent.Name(), step.Task.ID, true)

	completedAt := e.clock()
	step.Status = StepCompleted
	step.CompletedAt = &completedAt
	step.Result = &result

	e.saveCheckpoint(w)
	e.bus.Publish(eventbus.Event{Type: eventbus.StepCompleted, Source: "workflow.Engine",
		Data: map[string]any{"step_id": step.ID, "success": true, "duration_seconds": duration.Seconds()}})
}

// selectAgent resolves step's target executor: a pinned AgentName is looked
// up directly; otherwise the router picks a candidate by capability.
func (e *Engine) selectAgent(step *WorkflowStep) (executor.Agent, string, error) {
	if step.AgentName != "" {
		agent, ok := e.agents.Get(step.AgentName)
		if !ok {
			return nil, "", errs.New("workflow.Engine", "selectAgent", errs.KindNoEligibleAgent,
				"pinned agent not registered: "+step.AgentName+" (registered: "+strings.Join(e.agents.Names(), ", ")+")", nil)
		}
		return agent, step.AgentName, nil
	}

	decision, err := e.router.Route(router.Task{
		ID:                   step.Task.ID,
		Description:          step.Task.Description,
		Type:                 step.Task.Type,
		Priority:             step.Task.Priority,
		RequiredCapabilities: step.Task.RequiredCapabilities,
		Complexity:           step.Task.Complexity,
	})
	if err != nil {
		return nil, "", err
	}
	agent, ok := e.agents.Get(decision.AgentName)
	if !ok {
		return nil, "", errs.New("workflow.Engine", "selectAgent", errs.KindNoEligibleAgent,
			"router selected unregistered agent: "+decision.AgentName, nil)
	}
	return agent, decision.AgentName, nil
}

// retryOrFail schedules a retry (status back to pending) if the step has
// retries remaining, otherwise marks it terminally failed.
func (e *Engine) retryOrFail(w *Workflow, step *WorkflowStep, reason string) {
	step.Error = reason
	if step.RetryCount < step.MaxRetries {
		step.RetryCount++
		step.Status = StepPending
		step.StartedAt = nil
		e.bus.Publish(eventbus.Event{Type: eventbus.StepRetrying, Source: "workflow.Engine",
			Data: map[string]any{"step_id": step.ID, "retry_count": step.RetryCount, "reason": reason}})
		return
	}
	e.recordFailure(w, step, reason)
}

func (e *Engine) recordFailure(w *Workflow, step *WorkflowStep, reason string) {
	completedAt := e.clock()
	step.Status = StepFailed
	step.Error = reason
	step.CompletedAt = &completedAt
	e.bus.Publish(eventbus.Event{Type: eventbus.StepCompleted, Source: "workflow.Engine",
		Data: map[string]any{"step_id": step.ID, "success": false, "error": reason}})
}

// cancelInFlight marks every non-terminal step cancelled after the engine's
// grace period, preserving the invariant that a cancelled workflow's
// checkpoint is deleted only after every in-flight step has observed
// cancellation.
func (e *Engine) cancelInFlight(w *Workflow) {
	time.Sleep(e.cfg.CancelGracePeriod)
	for _, s := range w.Steps {
		if s.Status == StepPending || s.Status == StepRunning {
			s.Status = StepCancelled
		}
	}
}

func (e *Engine) saveCheckpoint(w *Workflow) {
	steps := make([]checkpoint.StepState, len(w.Steps))
	for i, s := range w.Steps {
		status := s.Status
		if status == StepRunning {
			// A step still in flight is recorded as pending, so a resume
			// re-dispatches it instead of restoring it as running.
			status = StepPending
		}
		steps[i] = checkpoint.StepState{
			ID:          s.ID,
			Name:        s.Name,
			Status:      checkpoint.StepStatus(status),
			RetryCount:  s.RetryCount,
			Error:       s.Error,
			StartedAt:   s.StartedAt,
			CompletedAt: s.CompletedAt,
		}
	}
	err := e.checkpoints.Save(checkpoint.State{
		WorkflowID:     w.ID,
		WorkflowName:   w.Name,
		CompletedSteps: w.completedStepIDs(),
		Steps:          steps,
	})
	if err != nil {
		// CheckpointIOError is logged, not fatal: the step already succeeded.
		e.logger.Warn("checkpoint save failed", "workflow_id", w.ID, "error", err)
	}
}

// CreateParallelWorkflow builds a Workflow whose steps share no
// dependencies and may all run in the same wave.
func CreateParallelWorkflow(name string, tasks []executor.Task, agentForTask func(executor.Task) string) *Workflow {
	steps := make([]*WorkflowStep, len(tasks))
	for i, task := range tasks {
		agentName := ""
		if agentForTask != nil {
			agentName = agentForTask(task)
		}
		steps[i] = &WorkflowStep{
			ID:         uuid.NewString(),
			Name:       task.Type,
			AgentName:  agentName,
			Task:       task,
			Status:     StepPending,
			MaxRetries: 3,
		}
	}
	return newWorkflow(name, steps)
}

// CreateSequentialWorkflow builds a Workflow where each step depends on the
// one before it, running the tasks one after another.
func CreateSequentialWorkflow(name string, sequence []executor.Task, agentForTask func(executor.Task) string) *Workflow {
	steps := make([]*WorkflowStep, len(sequence))
	var prevID string
	for i, task := range sequence {
		agentName := ""
		if agentForTask != nil {
			agentName = agentForTask(task)
		}
		var deps []string
		if prevID != "" {
			deps = []string{prevID}
		}
		steps[i] = &WorkflowStep{
			ID:         uuid.NewString(),
			Name:       task.Type,
			AgentName:  agentName,
			Task:       task,
			DependsOn:  deps,
			Status:     StepPending,
			MaxRetries: 3,
		}
		prevID = steps[i].ID
	}
	return newWorkflow(name, steps)
}

func newWorkflow(name string, steps []*WorkflowStep) *Workflow {
	return &Workflow{
		ID:        uuid.NewString(),
		Name:      name,
		Steps:     steps,
		Status:    WorkflowPending,
		CreatedAt: time.Now(),
	}
}

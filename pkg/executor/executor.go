// Package executor defines the contract the workflow engine requires of any
// task-handling unit. The engine never introspects an executor's internals:
// any LLM call, CLI invocation, or remote dispatch is the executor's own
// business.
package executor

import (
	"context"
	"time"
)

// AgentType is a closed sum type describing an executor's role, replacing
// the open class hierarchies of dynamically-typed agent frameworks.
type AgentType string

const (
	TypeSpecialist   AgentType = "specialist"
	TypeGeneralist   AgentType = "generalist"
	TypeOrchestrator AgentType = "orchestrator"
	TypeAny          AgentType = "any"
)

// Task is the opaque payload handed to an executor: description, type,
// context slice, and the capabilities required to run it.
type Task struct {
	ID                   string
	Description          string
	Type                 string
	Priority             int
	RequiredCapabilities []string
	Complexity           string
	EstimatedDuration    time.Duration
	Context              string
	Metadata             map[string]any
}

// Result is what an executor hands back to the engine.
type Result struct {
	Success   bool
	Output    string
	Artifacts map[string][]byte
	Error     error
	Duration  time.Duration

	// Permanent marks a failed Result as non-retryable: the engine records
	// the step as terminally failed immediately instead of consuming a
	// retry attempt. Ignored when Success is true.
	Permanent bool
}

// Agent is the capability set the core requires of any task-handling unit.
type Agent interface {
	// Name uniquely identifies the agent within the registry.
	Name() string

	// Capabilities returns the agent's case-insensitive capability set.
	Capabilities() []string

	// MaxConcurrent returns how many tasks this agent can run at once.
	MaxConcurrent() int

	// Execute runs the task to completion. It must honor ctx cancellation:
	// once ctx is done, Execute should return promptly with ctx.Err() (or a
	// best-effort partial Result) rather than blocking indefinitely.
	Execute(ctx context.Context, task Task) (Result, error)

	// Think returns a best-effort, non-essential trace of the agent's
	// reasoning, consumed only for observability.
	Think(ctx context.Context, task Task) []string
}

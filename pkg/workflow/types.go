// Package workflow implements DAG-based task scheduling: admission
// validation (dangling dependencies, cycles, unresolvable agents), a
// wave-based concurrent scheduler with stall/deadlock detection, per-step
// retry and timeout handling, and checkpoint-backed resume.
//
// Grounded on the teacher's root workflow/ package for the DAG type shapes
// (types.go, interfaces.go) — whose executor was a sequential stub —
// generalized here into a real dependency-aware wave scheduler, and on
// pkg/agent/workflowagent/parallel.go for the semaphore-bounded fan-out
// pattern used to dispatch a wave.
package workflow

import (
	"time"

	"github.com/orchestr8/taskflow/pkg/executor"
)

// StepStatus is a WorkflowStep's position in its state machine:
// pending -> running -> (completed | failed). A failed attempt with retries
// left goes from running straight back to pending, so failed is terminal.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepCancelled StepStatus = "cancelled"
)

// WorkflowStatus is a Workflow's aggregate status.
type WorkflowStatus string

const (
	WorkflowPending   WorkflowStatus = "pending"
	WorkflowRunning   WorkflowStatus = "running"
	WorkflowCompleted WorkflowStatus = "completed"
	WorkflowFailed    WorkflowStatus = "failed"
	WorkflowCancelled WorkflowStatus = "cancelled"
)

// WorkflowStep is a single unit of work in the DAG.
type WorkflowStep struct {
	ID             string
	Name           string
	AgentName      string
	Task           executor.Task
	DependsOn      []string
	TimeoutSeconds int
	MaxRetries     int

	// Mutable runtime fields.
	Status      StepStatus
	RetryCount  int
	Result      *executor.Result
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// Workflow is an ordered DAG of WorkflowSteps plus aggregate run state.
type Workflow struct {
	ID          string
	Name        string
	Description string
	Steps       []*WorkflowStep
	Status      WorkflowStatus
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	Metadata    map[string]any
}

// stepByID returns the step with the given ID, or nil.
func (w *Workflow) stepByID(id string) *WorkflowStep {
	for _, s := range w.Steps {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// completedStepIDs returns the IDs of all steps currently marked completed.
func (w *Workflow) completedStepIDs() []string {
	var out []string
	for _, s := range w.Steps {
		if s.Status == StepCompleted {
			out = append(out, s.ID)
		}
	}
	return out
}

// allTerminal reports whether every step has reached completed, failed, or
// cancelled.
func (w *Workflow) allTerminal() bool {
	for _, s := range w.Steps {
		if s.Status != StepCompleted && s.Status != StepFailed && s.Status != StepCancelled {
			return false
		}
	}
	return true
}

// anyFailed reports whether any step reached terminal failure.
func (w *Workflow) anyFailed() bool {
	for _, s := range w.Steps {
		if s.Status == StepFailed {
			return true
		}
	}
	return false
}

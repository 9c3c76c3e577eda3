package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct{ known map[string]struct{} }

func (s stubResolver) CanResolve(name string) bool {
	_, ok := s.known[name]
	return ok
}

func step(id string, deps ...string) *WorkflowStep {
	return &WorkflowStep{ID: id, Name: id, DependsOn: deps, Status: StepPending, AgentName: "agent-a"}
}

func TestValidate_PassesForAcyclicWorkflow(t *testing.T) {
	w := &Workflow{Steps: []*WorkflowStep{step("a"), step("b", "a"), step("c", "b")}}
	err := Validate(w, stubResolver{known: map[string]struct{}{"agent-a": {}}})
	require.NoError(t, err)
}

func TestValidate_DetectsDanglingDependency(t *testing.T) {
	w := &Workflow{Steps: []*WorkflowStep{step("a", "ghost")}}
	err := Validate(w, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dangling")
}

func TestValidate_DetectsCycle(t *testing.T) {
	w := &Workflow{Steps: []*WorkflowStep{step("a", "b"), step("b", "a")}}
	err := Validate(w, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestValidate_DetectsUnresolvableAgent(t *testing.T) {
	w := &Workflow{Steps: []*WorkflowStep{step("a")}}
	err := Validate(w, stubResolver{known: map[string]struct{}{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unresolvable")
}

func TestDetectBlockedAndCycles_ReportsBlockedSetOnResidualGraph(t *testing.T) {
	a := step("a")
	a.Status = StepCompleted
	b := step("b", "a")
	c := step("c", "missing-dep")

	w := &Workflow{Steps: []*WorkflowStep{a, b, c}}
	blocked, cycleErr := detectBlockedAndCycles(w)

	assert.Contains(t, blocked, "c")
	assert.NoError(t, cycleErr)
}

package workflow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/orchestr8/taskflow/internal/errs"
)

// color marks a node's DFS visitation state for cycle detection.
type color int

const (
	white color = iota // unvisited
	gray               // on the current recursion stack
	black              // fully explored
)

// AgentResolver answers whether an agent name will be resolvable at
// dispatch time — either already registered or expected to register before
// its dependent step runs.
type AgentResolver interface {
	CanResolve(agentName string) bool
}

// Validate runs admission checks before any step executes: every dependency
// ID resolves within the workflow, the dependency graph is acyclic, and
// every referenced agent name is resolvable. The checks run in that order
// and the first one that fails is returned as a single ValidationError
// listing every violation of its own kind; later checks are not run.
func Validate(w *Workflow, resolver AgentResolver) error {
	if err := validateDanglingDependencies(w); err != nil {
		return err
	}
	if err := validateAcyclic(w); err != nil {
		return err
	}
	if err := validateAgentsResolvable(w, resolver); err != nil {
		return err
	}
	return nil
}

func validateDanglingDependencies(w *Workflow) error {
	ids := make(map[string]struct{}, len(w.Steps))
	for _, s := range w.Steps {
		ids[s.ID] = struct{}{}
	}

	var dangling []string
	for _, s := range w.Steps {
		for _, dep := range s.DependsOn {
			if _, ok := ids[dep]; !ok {
				dangling = append(dangling, fmt.Sprintf("%s->%s", s.ID, dep))
			}
		}
	}
	if len(dangling) > 0 {
		return errs.New("workflow.Validate", "validateDanglingDependencies", errs.KindValidation,
			"dangling dependencies: "+strings.Join(dangling, ", "), nil)
	}
	return nil
}

// validateAcyclic runs a three-color DFS over the dependency graph.
func validateAcyclic(w *Workflow) error {
	marks := make(map[string]color, len(w.Steps))
	for _, s := range w.Steps {
		marks[s.ID] = white
	}

	var cyclePath []string
	var visit func(id string) bool
	visit = func(id string) bool {
		marks[id] = gray
		cyclePath = append(cyclePath, id)

		step := w.stepByID(id)
		for _, dep := range step.DependsOn {
			if _, inGraph := marks[dep]; !inGraph {
				continue // dependency outside this subgraph (e.g. already completed)
			}
			switch marks[dep] {
			case gray:
				cyclePath = append(cyclePath, dep)
				return true
			case white:
				if visit(dep) {
					return true
				}
			}
		}

		marks[id] = black
		cyclePath = cyclePath[:len(cyclePath)-1]
		return false
	}

	ids := stepIDsSorted(w)
	for _, id := range ids {
		if marks[id] == white {
			cyclePath = nil
			if visit(id) {
				return errs.New("workflow.Validate", "validateAcyclic", errs.KindValidation,
					"cycle detected: "+strings.Join(cyclePath, "->"), nil)
			}
		}
	}
	return nil
}

func validateAgentsResolvable(w *Workflow, resolver AgentResolver) error {
	if resolver == nil {
		return nil
	}
	var unresolvable []string
	seen := map[string]struct{}{}
	for _, s := range w.Steps {
		if s.AgentName == "" {
			continue
		}
		if _, dup := seen[s.AgentName]; dup {
			continue
		}
		seen[s.AgentName] = struct{}{}
		if !resolver.CanResolve(s.AgentName) {
			unresolvable = append(unresolvable, s.AgentName)
		}
	}
	if len(unresolvable) > 0 {
		sort.Strings(unresolvable)
		return errs.New("workflow.Validate", "validateAgentsResolvable", errs.KindValidation,
			"unresolvable agents: "+strings.Join(unresolvable, ", "), nil)
	}
	return nil
}

func stepIDsSorted(w *Workflow) []string {
	ids := make([]string, len(w.Steps))
	for i, s := range w.Steps {
		ids[i] = s.ID
	}
	sort.Strings(ids)
	return ids
}

// detectBlockedAndCycles re-runs cycle detection on the residual subgraph
// (steps not yet completed) and reports the blocked set for a
// WorkflowDeadlock error: a step is blocked if it has at least one unmet
// dependency.
func detectBlockedAndCycles(w *Workflow) (blocked []string, cycleErr error) {
	residual := &Workflow{Steps: nil}
	completed := map[string]struct{}{}
	for _, s := range w.Steps {
		if s.Status == StepCompleted {
			completed[s.ID] = struct{}{}
		}
	}
	for _, s := range w.Steps {
		if s.Status == StepCompleted {
			continue
		}
		residual.Steps = append(residual.Steps, s)
		for _, dep := range s.DependsOn {
			if _, ok := completed[dep]; !ok {
				blocked = append(blocked, s.ID)
				break
			}
		}
	}
	sort.Strings(blocked)
	cycleErr = validateAcyclic(residual)
	return blocked, cycleErr
}

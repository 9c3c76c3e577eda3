// Package router implements capability-aware, load-aware task dispatch.
//
// A Router tracks a table of AgentCapabilities, scores candidates for each
// incoming Task, and returns a RoutingDecision. Success rate is tracked as
// an exponentially smoothed moving average, updated only when the caller
// reports task completion — grounded on the teacher's team/workflow
// registries (single RWMutex-guarded table) and on the reference
// implementation's TaskRouter (capability/workload/performance scoring).
package router

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/orchestr8/taskflow/internal/errs"
)

// AgentType is a closed sum type for an agent's role in routing decisions.
type AgentType string

const (
	TypeSpecialist   AgentType = "specialist"
	TypeGeneralist   AgentType = "generalist"
	TypeOrchestrator AgentType = "orchestrator"
	TypeAny          AgentType = "any"
)

// successRateAlpha is the EWMA smoothing factor for success-rate tracking.
const successRateAlpha = 0.2

// AgentCapabilities is the router's view of a registered executor.
type AgentCapabilities struct {
	Name         string
	AgentType    AgentType
	Capabilities map[string]struct{} // case-folded capability set
	CurrentTasks int
	MaxTasks     int
	AvgTaskTime  float64
	SuccessRate  float64
}

// Available reports whether the agent can accept another task.
func (a *AgentCapabilities) Available() bool {
	return a.CurrentTasks < a.MaxTasks
}

// Utilization is the fraction of capacity currently in use.
func (a *AgentCapabilities) Utilization() float64 {
	if a.MaxTasks <= 0 {
		return 1.0
	}
	return float64(a.CurrentTasks) / float64(a.MaxTasks)
}

// canHandle reports whether the agent has the full required capability set.
func (a *AgentCapabilities) canHandle(required map[string]struct{}) bool {
	if len(required) == 0 {
		return true
	}
	for cap := range required {
		if _, ok := a.Capabilities[cap]; !ok {
			return false
		}
	}
	return true
}

// matchCount returns how many of the required capabilities the agent has.
func (a *AgentCapabilities) matchCount(required map[string]struct{}) int {
	n := 0
	for cap := range required {
		if _, ok := a.Capabilities[cap]; ok {
			n++
		}
	}
	return n
}

// Task is the router's view of a unit of work to be dispatched.
type Task struct {
	ID                   string
	Description          string
	Type                 string
	Priority             int // 1..10
	RequiredCapabilities []string
	Complexity           string
	EstimatedDuration    float64
	Metadata             map[string]any
}

func normalizeSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[strings.ToLower(it)] = struct{}{}
	}
	return set
}

// RoutingDecision is the result of routing a Task.
type RoutingDecision struct {
	AgentName         string
	Confidence        float64
	Reasoning         string
	AlternativeAgents []string
}

// Router dispatches tasks to capability-matched, load-balanced agents.
type Router struct {
	mu     sync.RWMutex
	agents map[string]*AgentCapabilities
	// history keeps a bounded log of (agent, taskID, success) for statistics.
	history []completionRecord
}

type completionRecord struct {
	agentName string
	taskID    string
	success   bool
}

const maxHistory = 1000

// New creates an empty Router.
func New() *Router {
	return &Router{agents: make(map[string]*AgentCapabilities)}
}

// RegisterAgent adds an agent to the routing table. Re-registering a known
// name replaces its entry entirely: current load resets to zero and
// success rate to 1.0.
func (r *Router) RegisterAgent(name string, agentType AgentType, capabilities []string, maxTasks int) error {
	if name == "" {
		return errs.New("router.Router", "RegisterAgent", errs.KindValidation, "agent name cannot be empty", nil)
	}
	if maxTasks <= 0 {
		maxTasks = 5
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[name] = &AgentCapabilities{
		Name:         name,
		AgentType:    agentType,
		Capabilities: normalizeSet(capabilities),
		MaxTasks:     maxTasks,
		SuccessRate:  1.0,
	}
	return nil
}

// UnregisterAgent removes an agent from the routing table.
func (r *Router) UnregisterAgent(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, name)
}

// Route selects the best available agent for task, or returns
// errs.ErrNoEligibleAgent if no candidate exists.
func (r *Router) Route(task Task) (RoutingDecision, error) {
	required := normalizeSet(task.RequiredCapabilities)

	r.mu.Lock()
	candidates := r.candidates(required)
	scored := r.scoreCandidates(task, required, candidates)
	// Reserve the winning agent's slot under the same lock so a concurrent
	// Route call observes updated load.
	if len(scored) > 0 {
		r.agents[scored[0].name].CurrentTasks++
	}
	r.mu.Unlock()

	if len(scored) == 0 {
		return RoutingDecision{}, errs.New("router.Router", "Route", errs.KindNoEligibleAgent,
			"no eligible agent for required capabilities "+strings.Join(task.RequiredCapabilities, ","), nil)
	}

	best := scored[0]
	confidence := best.score / 100.0
	if confidence > 1.0 {
		confidence = 1.0
	}

	alts := make([]string, 0, 3)
	for _, c := range scored[1:] {
		if len(alts) == 3 {
			break
		}
		alts = append(alts, c.name)
	}

	return RoutingDecision{
		AgentName:         best.name,
		Confidence:        confidence,
		Reasoning:         reasoning(task, best.name, best.score),
		AlternativeAgents: alts,
	}, nil
}

type scoredCandidate struct {
	name  string
	score float64
	full  bool // holds every required capability
}

// candidates must be called with r.mu held.
func (r *Router) candidates(required map[string]struct{}) []*AgentCapabilities {
	var out []*AgentCapabilities
	for _, a := range r.agents {
		if !a.Available() {
			continue
		}
		if len(required) == 0 {
			out = append(out, a)
			continue
		}
		if a.matchCount(required) > 0 || a.canHandle(required) {
			out = append(out, a)
		}
	}
	return out
}

// scoreCandidates must be called with r.mu held.
func (r *Router) scoreCandidates(task Task, required map[string]struct{}, candidates []*AgentCapabilities) []scoredCandidate {
	scored := make([]scoredCandidate, 0, len(candidates))
	for _, a := range candidates {
		scored = append(scored, scoredCandidate{name: a.Name, score: score(a, required), full: a.canHandle(required)})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].full != scored[j].full {
			return scored[i].full // full-subset matches rank above partial ones
		}
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].name < scored[j].name // deterministic tie-break
	})
	return scored
}

func score(a *AgentCapabilities, required map[string]struct{}) float64 {
	var s float64
	if len(required) > 0 {
		s += 40.0 * float64(a.matchCount(required)) / float64(len(required))
	} else {
		s += 20.0
	}
	util := a.Utilization()
	s += 30.0 * (1 - util)
	s += 20.0 * a.SuccessRate
	s += 10.0 * (1 - util)
	return s
}

func reasoning(task Task, agentName string, score float64) string {
	var b strings.Builder
	b.WriteString("Selected ")
	b.WriteString(agentName)
	b.WriteString(" (score: ")
	b.WriteString(formatScore(score))
	b.WriteString("/100).")
	if len(task.RequiredCapabilities) > 0 {
		b.WriteString(" Required capabilities: ")
		b.WriteString(strings.Join(task.RequiredCapabilities, ", "))
		b.WriteString(".")
	}
	if task.Complexity != "" {
		b.WriteString(" Complexity: ")
		b.WriteString(task.Complexity)
		b.WriteString(".")
	}
	return b.String()
}

func formatScore(score float64) string {
	// one decimal place, matching the reference "%.1f" reasoning text
	return strconv.FormatFloat(score, 'f', 1, 64)
}

// RecordTaskCompletion decrements the agent's load, updates its EWMA
// success rate, and appends to the bounded completion history.
func (r *Router) RecordTaskCompletion(agentName, taskID string, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.history = append(r.history, completionRecord{agentName: agentName, taskID: taskID, success: success})
	if len(r.history) > maxHistory {
		r.history = r.history[len(r.history)-maxHistory:]
	}

	a, ok := r.agents[agentName]
	if !ok {
		return
	}
	if a.CurrentTasks > 0 {
		a.CurrentTasks--
	}
	outcome := 0.0
	if success {
		outcome = 1.0
	}
	a.SuccessRate = successRateAlpha*outcome + (1-successRateAlpha)*a.SuccessRate
}

// Statistics summarizes router state for observability.
type Statistics struct {
	TotalAgents         int
	AvailableAgents     int
	TotalTasksProcessed int
	AgentStatus         map[string]AgentStatus
}

// AgentStatus is a point-in-time snapshot of one agent's routing state.
type AgentStatus struct {
	Available    bool
	Utilization  float64
	CurrentTasks int
	SuccessRate  float64
}

// GetStatistics returns a snapshot of the router's current state.
func (r *Router) GetStatistics() Statistics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Statistics{
		TotalAgents:         len(r.agents),
		TotalTasksProcessed: len(r.history),
		AgentStatus:         make(map[string]AgentStatus, len(r.agents)),
	}
	for name, a := range r.agents {
		if a.Available() {
			stats.AvailableAgents++
		}
		stats.AgentStatus[name] = AgentStatus{
			Available:    a.Available(),
			Utilization:  a.Utilization(),
			CurrentTasks: a.CurrentTasks,
			SuccessRate:  a.SuccessRate,
		}
	}
	return stats
}

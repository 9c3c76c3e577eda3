// Package eventbus is the thin, in-process lifecycle event publisher for
// the workflow engine. Publication is fire-and-forget from the engine's
// perspective: a slow or panicking subscriber must never affect workflow
// progress, so each subscriber callback runs in its own recovered
// goroutine.
package eventbus

import (
	"log/slog"
	"sync"
	"time"
)

// Type identifies a lifecycle event kind emitted by the core.
type Type string

const (
	WorkflowStarted   Type = "workflow_started"
	WorkflowCompleted Type = "workflow_completed"
	WorkflowFailed    Type = "workflow_failed"
	StepStarted       Type = "step_started"
	StepCompleted     Type = "step_completed"
	StepRetrying      Type = "step_retrying"
	StepTimeout       Type = "step_timeout"
	AgentRegistered   Type = "agent_registered"
	AgentUnregistered Type = "agent_unregistered"
)

// Event is the wire shape described by the external event contract.
type Event struct {
	Type      Type
	Timestamp time.Time
	Source    string
	Data      map[string]any
}

// Subscriber receives events published to a Bus. Implementations must not
// block for long; the bus does not wait for them.
type Subscriber func(Event)

// Metrics is the observability sink a Bus reports to. A nil Metrics
// disables metrics silently, so the core never requires a scrape endpoint.
type Metrics interface {
	ObserveEvent(eventType Type)
	ObserveStepDuration(seconds float64)
}

// Bus publishes lifecycle events to subscribers without blocking the
// caller's control flow.
type Bus struct {
	mu          sync.RWMutex
	subscribers []Subscriber
	metrics     Metrics
	logger      *slog.Logger
}

// New creates a Bus. metrics and logger may be nil; a nil logger falls back
// to slog.Default().
func New(metrics Metrics, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{metrics: metrics, logger: logger}
}

// Subscribe registers a subscriber that receives every published event.
func (b *Bus) Subscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, sub)
}

// Publish fans an event out to all subscribers. Each subscriber runs in its
// own goroutine with a recover guard, so a panicking or failing subscriber
// cannot affect the publisher or other subscribers.
func (b *Bus) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	if b.metrics != nil {
		b.metrics.ObserveEvent(evt.Type)
		if evt.Type == StepCompleted {
			if d, ok := evt.Data["duration_seconds"].(float64); ok {
				b.metrics.ObserveStepDuration(d)
			}
		}
	}

	b.mu.RLock()
	subs := make([]Subscriber, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.RUnlock()

	for _, sub := range subs {
		sub := sub
		go func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("event subscriber panicked", "event", evt.Type, "panic", r)
				}
			}()
			sub(evt)
		}()
	}
}

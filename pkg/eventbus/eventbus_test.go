package eventbus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPublish_DeliversToAllSubscribers(t *testing.T) {
	bus := New(nil, nil)

	var mu sync.Mutex
	var got []Type
	done := make(chan struct{}, 2)

	sub := func(e Event) {
		mu.Lock()
		got = append(got, e.Type)
		mu.Unlock()
		done <- struct{}{}
	}
	bus.Subscribe(sub)
	bus.Subscribe(sub)

	bus.Publish(Event{Type: WorkflowStarted, Source: "test"})

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for subscriber delivery")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, got, 2)
	assert.Equal(t, WorkflowStarted, got[0])
}

func TestPublish_SurvivesPanickingSubscriber(t *testing.T) {
	bus := New(nil, nil)

	done := make(chan struct{}, 1)
	bus.Subscribe(func(e Event) { panic("boom") })
	bus.Subscribe(func(e Event) { done <- struct{}{} })

	bus.Publish(Event{Type: StepCompleted})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("panicking subscriber blocked a healthy one")
	}
}

func TestPublish_FillsZeroTimestamp(t *testing.T) {
	bus := New(nil, nil)
	done := make(chan Event, 1)
	bus.Subscribe(func(e Event) { done <- e })

	bus.Publish(Event{Type: StepStarted})

	e := <-done
	assert.False(t, e.Timestamp.IsZero())
}

// Package logs provides real-time event streaming for build, run and
// workflow log entries.
package logs

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event names published by the build, run and workflow services.
const (
	EventWorkflowLog        = "workflow_log"
	EventWorkflowStepStatus = "workflow_step_status"
	EventWorkflowStatus     = "workflow_status"
	EventBuildLog           = "build_log"
	EventRunLog             = "run_log"
	EventRunStatus          = "run_status"
)

// Event is a named payload delivered to subscribers.
type Event struct {
	Name    string `json:"event"`
	Payload any    `json:"data"`
}

// Emitter publishes named events. Emission is best-effort: implementations
// must never block indefinitely or surface errors to the caller.
type Emitter interface {
	Emit(event string, payload any)
}

// NopEmitter discards all events.
type NopEmitter struct{}

// Emit implements Emitter.
func (NopEmitter) Emit(string, any) {}

// Subscriber receives events from a Broker.
type Subscriber struct {
	ID        string
	Ch        chan Event
	CreatedAt time.Time
}

// Broker manages event subscriptions and publishing. It implements Emitter.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	logger      *slog.Logger
}

// NewBroker creates a new event broker.
func NewBroker(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		subscribers: make(map[string]*Subscriber),
		logger:      logger,
	}
}

// Subscribe creates a new subscription receiving every published event.
func (b *Broker) Subscribe() *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscriber{
		ID:        uuid.NewString(),
		Ch:        make(chan Event, 256),
		CreatedAt: time.Now(),
	}
	b.subscribers[sub.ID] = sub
	b.logger.Debug("subscriber added", "subscriber_id", sub.ID)
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broker) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[sub.ID]; exists {
		close(sub.Ch)
		delete(b.subscribers, sub.ID)
		b.logger.Debug("subscriber removed", "subscriber_id", sub.ID)
	}
}

// Emit sends an event to all subscribers. Slow subscribers have the event
// dropped rather than blocking the publisher.
func (b *Broker) Emit(event string, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		select {
		case sub.Ch <- Event{Name: event, Payload: payload}:
		default:
			b.logger.Warn("subscriber channel full, dropping event",
				"subscriber_id", sub.ID,
				"event", event,
			)
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

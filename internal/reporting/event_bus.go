package reporting

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"specrun/pkg/logging"
)

// EventHandler is a function that processes events
type EventHandler func(Event)

// EventFilter is a function that determines if an event should be processed
type EventFilter func(Event) bool

// EventSubscription represents a subscription to run events
type EventSubscription struct {
	ID      string
	Filter  EventFilter
	Handler EventHandler
	Channel chan Event
	Closed  bool
	mu      sync.RWMutex
}

// Close closes the subscription
func (s *EventSubscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.Closed {
		if s.Channel != nil {
			close(s.Channel)
		}
		s.Closed = true
	}
}

// IsClosed returns whether the subscription is closed
func (s *EventSubscription) IsClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Closed
}

// EventBus provides publish/subscribe functionality for run events.
//
// Handler subscriptions are invoked synchronously and never drop events:
// the collector and the ordered console reporter depend on seeing every
// scenario result. Channel subscriptions trade that guarantee for
// non-blocking delivery and drop events when the buffer is full, which
// suits display-only consumers like the TUI.
type EventBus interface {
	// Publish delivers an event to all matching subscriptions. Safe for
	// concurrent use; handlers of a single subscription are never invoked
	// concurrently with each other for events published from one
	// goroutine, but events from concurrent publishers interleave.
	Publish(event Event)

	// Subscribe creates a subscription with a handler function
	Subscribe(filter EventFilter, handler EventHandler) *EventSubscription

	// SubscribeChannel creates a subscription with a buffered channel
	SubscribeChannel(filter EventFilter, bufferSize int) *EventSubscription

	// Unsubscribe removes a subscription
	Unsubscribe(subscription *EventSubscription)

	// GetMetrics returns event bus metrics
	GetMetrics() EventBusMetrics

	// Close closes the event bus and all subscriptions
	Close()
}

// EventBusMetrics tracks event bus activity
type EventBusMetrics struct {
	TotalSubscriptions  int
	ActiveSubscriptions int
	EventsPublished     int64
	EventsDelivered     int64
	EventsDropped       int64
	LastEventTime       time.Time
	EventsByType        map[EventType]int64
}

// DefaultEventBus is the default implementation of EventBus
type DefaultEventBus struct {
	subscriptions map[string]*EventSubscription
	order         []string
	metrics       EventBusMetrics
	mu            sync.RWMutex
	closed        bool
}

// NewEventBus creates a new event bus
func NewEventBus() EventBus {
	return &DefaultEventBus{
		subscriptions: make(map[string]*EventSubscription),
		metrics: EventBusMetrics{
			EventsByType: make(map[EventType]int64),
		},
	}
}

// Publish delivers an event to all matching subscriptions
func (eb *DefaultEventBus) Publish(event Event) {
	eb.mu.RLock()
	if eb.closed {
		eb.mu.RUnlock()
		return
	}
	subs := make([]*EventSubscription, 0, len(eb.order))
	for _, id := range eb.order {
		if sub, ok := eb.subscriptions[id]; ok {
			subs = append(subs, sub)
		}
	}
	eb.mu.RUnlock()

	delivered := 0
	dropped := 0

	for _, subscription := range subs {
		if subscription.IsClosed() {
			eb.remove(subscription.ID)
			continue
		}

		if subscription.Filter != nil && !subscription.Filter(event) {
			continue
		}

		// Handlers run synchronously so no event is ever lost.
		if subscription.Handler != nil {
			invokeHandler(subscription.Handler, event)
			delivered++
		}

		// Channels never block the run; a full buffer drops the event.
		if subscription.Channel != nil {
			select {
			case subscription.Channel <- event:
				delivered++
			default:
				dropped++
			}
		}
	}

	eb.mu.Lock()
	eb.metrics.EventsPublished++
	eb.metrics.EventsByType[event.Type()]++
	eb.metrics.LastEventTime = event.Timestamp()
	eb.metrics.EventsDelivered += int64(delivered)
	eb.metrics.EventsDropped += int64(dropped)
	eb.mu.Unlock()
}

// invokeHandler shields the bus from panicking subscribers.
func invokeHandler(handler EventHandler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Reporter", nil, "Event handler panicked on %s: %v", event.Type(), r)
		}
	}()
	handler(event)
}

// Subscribe creates a subscription with a handler function
func (eb *DefaultEventBus) Subscribe(filter EventFilter, handler EventHandler) *EventSubscription {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return nil
	}

	subscription := &EventSubscription{
		ID:      uuid.NewString(),
		Filter:  filter,
		Handler: handler,
	}

	eb.subscriptions[subscription.ID] = subscription
	eb.order = append(eb.order, subscription.ID)
	eb.metrics.TotalSubscriptions++
	eb.metrics.ActiveSubscriptions++

	return subscription
}

// SubscribeChannel creates a subscription with a buffered channel
func (eb *DefaultEventBus) SubscribeChannel(filter EventFilter, bufferSize int) *EventSubscription {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return nil
	}

	subscription := &EventSubscription{
		ID:      uuid.NewString(),
		Filter:  filter,
		Channel: make(chan Event, bufferSize),
	}

	eb.subscriptions[subscription.ID] = subscription
	eb.order = append(eb.order, subscription.ID)
	eb.metrics.TotalSubscriptions++
	eb.metrics.ActiveSubscriptions++

	return subscription
}

// Unsubscribe removes a subscription
func (eb *DefaultEventBus) Unsubscribe(subscription *EventSubscription) {
	if subscription == nil {
		return
	}
	subscription.Close()
	eb.remove(subscription.ID)
}

func (eb *DefaultEventBus) remove(id string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if _, exists := eb.subscriptions[id]; exists {
		delete(eb.subscriptions, id)
		for i, other := range eb.order {
			if other == id {
				eb.order = append(eb.order[:i], eb.order[i+1:]...)
				break
			}
		}
		eb.metrics.ActiveSubscriptions--
	}
}

// GetMetrics returns event bus metrics
func (eb *DefaultEventBus) GetMetrics() EventBusMetrics {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	metrics := eb.metrics
	metrics.EventsByType = make(map[EventType]int64, len(eb.metrics.EventsByType))
	for k, v := range eb.metrics.EventsByType {
		metrics.EventsByType[k] = v
	}
	return metrics
}

// Close closes the event bus and all subscriptions
func (eb *DefaultEventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.closed = true
	for _, subscription := range eb.subscriptions {
		subscription.Close()
	}
	eb.subscriptions = make(map[string]*EventSubscription)
	eb.order = nil
	eb.metrics.ActiveSubscriptions = 0
}

// Common event filters

// FilterByType creates a filter that matches events of specific types
func FilterByType(eventTypes ...EventType) EventFilter {
	typeMap := make(map[EventType]bool)
	for _, t := range eventTypes {
		typeMap[t] = true
	}

	return func(event Event) bool {
		return typeMap[event.Type()]
	}
}

// FilterBySeverity creates a filter that matches events with minimum severity
func FilterBySeverity(minSeverity EventSeverity) EventFilter {
	minLevel := severityRank[minSeverity]

	return func(event Event) bool {
		level, exists := severityRank[event.Severity()]
		return exists && level >= minLevel
	}
}

// FilterByRun creates a filter that matches events of one run
func FilterByRun(runID string) EventFilter {
	return func(event Event) bool {
		return event.RunID() == runID
	}
}

// CombineFilters combines multiple filters with AND logic
func CombineFilters(filters ...EventFilter) EventFilter {
	return func(event Event) bool {
		for _, filter := range filters {
			if !filter(event) {
				return false
			}
		}
		return true
	}
}

// AnyFilter combines multiple filters with OR logic
func AnyFilter(filters ...EventFilter) EventFilter {
	return func(event Event) bool {
		for _, filter := range filters {
			if filter(event) {
				return true
			}
		}
		return false
	}
}

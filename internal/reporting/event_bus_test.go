package reporting

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"specrun/internal/results"
)

func passedScenarioEvent(name string, fi, si int) ScenarioFinishedEvent {
	return NewScenarioFinishedEvent("run-1", results.ScenarioResult{
		FeatureIndex:  fi,
		ScenarioIndex: si,
		FeaturePath:   "features/demo.feature",
		FeatureName:   "Demo",
		Name:          name,
		Status:        results.ScenarioPassed,
	})
}

func failedScenarioEvent(name string, fi, si int) ScenarioFinishedEvent {
	return NewScenarioFinishedEvent("run-1", results.ScenarioResult{
		FeatureIndex:  fi,
		ScenarioIndex: si,
		FeaturePath:   "features/demo.feature",
		FeatureName:   "Demo",
		Name:          name,
		Status:        results.ScenarioFailed,
		Reason:        "boom",
	})
}

func TestNewEventBus(t *testing.T) {
	bus := NewEventBus()
	assert.NotNil(t, bus)

	metrics := bus.GetMetrics()
	assert.Equal(t, 0, metrics.TotalSubscriptions)
	assert.Equal(t, 0, metrics.ActiveSubscriptions)
	assert.Equal(t, int64(0), metrics.EventsPublished)
	assert.Equal(t, int64(0), metrics.EventsDelivered)
	assert.Equal(t, int64(0), metrics.EventsDropped)
}

func TestEventBusPublishToHandlerIsSynchronousAndLossless(t *testing.T) {
	bus := NewEventBus()

	var received []Event
	subscription := bus.Subscribe(FilterByType(EventTypeScenarioFinished), func(event Event) {
		received = append(received, event)
	})
	require.NotNil(t, subscription)

	// Handlers run inline, so events are visible immediately after Publish
	// returns, with no sleep or synchronization needed here.
	bus.Publish(passedScenarioEvent("first", 0, 0))
	bus.Publish(NewRunStartedEvent("run-1", nil, 4)) // filtered out
	bus.Publish(failedScenarioEvent("second", 0, 1))

	require.Len(t, received, 2)
	assert.Equal(t, EventTypeScenarioFinished, received[0].Type())
	assert.Equal(t, EventTypeScenarioFinished, received[1].Type())

	metrics := bus.GetMetrics()
	assert.Equal(t, int64(3), metrics.EventsPublished)
	assert.Equal(t, int64(2), metrics.EventsDelivered)
	assert.Equal(t, int64(0), metrics.EventsDropped)
}

func TestEventBusHandlerPanicDoesNotStopDelivery(t *testing.T) {
	bus := NewEventBus()

	var delivered int
	bus.Subscribe(nil, func(Event) { panic("handler exploded") })
	bus.Subscribe(nil, func(Event) { delivered++ })

	bus.Publish(passedScenarioEvent("s", 0, 0))
	assert.Equal(t, 1, delivered)
}

func TestEventBusPublishToChannel(t *testing.T) {
	bus := NewEventBus()

	subscription := bus.SubscribeChannel(FilterByType(EventTypeScenarioFinished), 5)
	require.NotNil(t, subscription)
	require.NotNil(t, subscription.Channel)

	event := passedScenarioEvent("first", 0, 0)
	bus.Publish(event)

	select {
	case receivedEvent := <-subscription.Channel:
		assert.Equal(t, event.Type(), receivedEvent.Type())
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected to receive event from channel")
	}

	bus.Unsubscribe(subscription)
}

func TestEventBusChannelBufferOverflowDrops(t *testing.T) {
	bus := NewEventBus()

	subscription := bus.SubscribeChannel(FilterByType(EventTypeScenarioFinished), 2)

	for i := 0; i < 5; i++ {
		bus.Publish(passedScenarioEvent("s", 0, i))
	}

	metrics := bus.GetMetrics()
	assert.Equal(t, int64(5), metrics.EventsPublished)
	assert.Equal(t, int64(2), metrics.EventsDelivered)
	assert.Equal(t, int64(3), metrics.EventsDropped)

	bus.Unsubscribe(subscription)
}

func TestEventBusUnsubscribe(t *testing.T) {
	bus := NewEventBus()

	subscription := bus.Subscribe(nil, func(Event) {})
	metrics := bus.GetMetrics()
	assert.Equal(t, 1, metrics.ActiveSubscriptions)

	bus.Unsubscribe(subscription)
	assert.True(t, subscription.IsClosed())

	metrics = bus.GetMetrics()
	assert.Equal(t, 0, metrics.ActiveSubscriptions)
	assert.Equal(t, 1, metrics.TotalSubscriptions) // Total doesn't decrease
}

func TestEventBusClose(t *testing.T) {
	bus := NewEventBus()

	sub1 := bus.Subscribe(nil, func(Event) {})
	sub2 := bus.SubscribeChannel(nil, 5)

	bus.Close()

	assert.True(t, sub1.IsClosed())
	assert.True(t, sub2.IsClosed())

	metrics := bus.GetMetrics()
	assert.Equal(t, 0, metrics.ActiveSubscriptions)

	// Publishing after close should not crash.
	bus.Publish(passedScenarioEvent("s", 0, 0))
}

func TestEventSubscriptionCloseIsIdempotent(t *testing.T) {
	subscription := &EventSubscription{
		ID:      "test",
		Channel: make(chan Event, 1),
	}

	assert.False(t, subscription.IsClosed())
	subscription.Close()
	assert.True(t, subscription.IsClosed())
	subscription.Close()
	assert.True(t, subscription.IsClosed())
}

func TestFilterByType(t *testing.T) {
	filter := FilterByType(EventTypeScenarioFinished, EventTypeRunFinished)

	assert.True(t, filter(passedScenarioEvent("s", 0, 0)))
	assert.False(t, filter(NewRunStartedEvent("run-1", nil, 1)))
}

func TestFilterBySeverity(t *testing.T) {
	filter := FilterBySeverity(SeverityWarn)

	failed := failedScenarioEvent("s", 0, 0) // error severity
	passed := passedScenarioEvent("s", 0, 0) // info severity

	assert.True(t, filter(failed))
	assert.False(t, filter(passed))
}

func TestFilterByRun(t *testing.T) {
	filter := FilterByRun("run-1")

	assert.True(t, filter(passedScenarioEvent("s", 0, 0)))
	assert.False(t, filter(NewRunStartedEvent("run-2", nil, 1)))
}

func TestCombineFilters(t *testing.T) {
	combined := CombineFilters(
		FilterByType(EventTypeScenarioFinished),
		FilterBySeverity(SeverityError),
	)

	assert.True(t, combined(failedScenarioEvent("s", 0, 0)))
	assert.False(t, combined(passedScenarioEvent("s", 0, 0)))
	assert.False(t, combined(NewRunStartedEvent("run-1", nil, 1)))
}

func TestAnyFilter(t *testing.T) {
	either := AnyFilter(
		FilterByType(EventTypeRunStarted),
		FilterBySeverity(SeverityError),
	)

	assert.True(t, either(NewRunStartedEvent("run-1", nil, 1)))
	assert.True(t, either(failedScenarioEvent("s", 0, 0)))
	assert.False(t, either(passedScenarioEvent("s", 0, 0)))
}

func TestEventBusConcurrentPublish(t *testing.T) {
	bus := NewEventBus()

	var mu sync.Mutex
	var count int
	for i := 0; i < 5; i++ {
		bus.Subscribe(FilterByType(EventTypeScenarioFinished), func(Event) {
			mu.Lock()
			count++
			mu.Unlock()
		})
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			bus.Publish(passedScenarioEvent("s", 0, n))
		}(i)
	}
	wg.Wait()

	mu.Lock()
	finalCount := count
	mu.Unlock()
	assert.Equal(t, 50, finalCount)

	metrics := bus.GetMetrics()
	assert.Equal(t, int64(10), metrics.EventsPublished)
	assert.Equal(t, int64(50), metrics.EventsDelivered)
}

package engine

import (
	"context"

	"specrun/internal/stepdef"
)

// WorldFactory builds and releases the per-scenario World. Exactly one
// World exists per scenario: Setup runs before the scenario's hooks and
// steps, Dispose runs after them. Dispose is called exactly once for every
// World that Setup returned, even when hooks or steps fail, and receives a
// fresh context so teardown still happens when the run was cancelled.
//
// Factories must be safe for concurrent use; the Runner calls Setup and
// Dispose from multiple scenario goroutines at once.
type WorldFactory interface {
	Setup(ctx context.Context, sc *stepdef.ScenarioContext) (interface{}, error)
	Dispose(ctx context.Context, world interface{}) error
}

// MapWorldFactory is the default factory: every scenario gets a fresh empty
// map as scratch state, and teardown is a no-op. Step handlers sharing a
// scenario read and write the map directly; the Runner serializes the steps
// of one scenario, so no locking is needed.
type MapWorldFactory struct{}

// Setup returns a new empty map.
func (MapWorldFactory) Setup(ctx context.Context, sc *stepdef.ScenarioContext) (interface{}, error) {
	return map[string]interface{}{}, nil
}

// Dispose does nothing.
func (MapWorldFactory) Dispose(ctx context.Context, world interface{}) error { return nil }

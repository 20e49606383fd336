// Package lifecycle maps app foreground/background transitions onto the
// proximity engine's attach and detach.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vbonduro/nearby/internal/location"
	"github.com/vbonduro/nearby/internal/notify"
	"github.com/vbonduro/nearby/internal/proximity"
)

type State string

const (
	StateActive     State = "active"
	StateBackground State = "background"
	StateInactive   State = "inactive"
)

// ParseState accepts the three app states reported by the UI.
func ParseState(s string) (State, error) {
	switch st := State(s); st {
	case StateActive, StateBackground, StateInactive:
		return st, nil
	default:
		return "", fmt.Errorf("unknown app state %q", s)
	}
}

// Engine is the part of the proximity engine the controller drives.
type Engine interface {
	Attach(ctx context.Context, src location.Source, points proximity.PointSupplier, sink notify.Sink) error
	Detach()
}

// Controller attaches the engine while the app is in the foreground and
// detaches it on every other state, which clears all live notifications.
type Controller struct {
	engine Engine
	source location.Source
	points proximity.PointSupplier
	sink   notify.Sink
	logger *slog.Logger

	mu    sync.Mutex
	state State
}

func NewController(engine Engine, source location.Source, points proximity.PointSupplier, sink notify.Sink, logger *slog.Logger) *Controller {
	return &Controller{
		engine: engine,
		source: source,
		points: points,
		sink:   sink,
		logger: logger,
		state:  StateInactive,
	}
}

// SetState records the new app state and attaches or detaches the engine.
// Transitions are serialized. A failed attach leaves the recorded state
// unchanged so the next "active" report retries.
func (c *Controller) SetState(ctx context.Context, state State) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if state == StateActive {
		if err := c.engine.Attach(ctx, c.source, c.points, c.sink); err != nil {
			return fmt.Errorf("failed to attach proximity engine: %w", err)
		}
	} else {
		c.engine.Detach()
	}

	if c.state != state {
		c.logger.Info("app state changed", "from", string(c.state), "to", string(state))
	}
	c.state = state
	return nil
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

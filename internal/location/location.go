// Package location defines the contract between a producer of position fixes
// and the components that consume them.
package location

import (
	"context"
	"time"

	"github.com/vbonduro/nearby/internal/domain"
	"github.com/vbonduro/nearby/internal/geo"
)

// Options bound how often a subscription delivers samples. A sample is
// delivered only once both MinInterval has elapsed and the position moved by
// at least MinDistance meters since the last delivered sample. Zero disables
// the respective bound.
type Options struct {
	MinInterval time.Duration
	MinDistance float64
}

// DefaultOptions matches the cadence used by the mobile client.
var DefaultOptions = Options{MinInterval: 5 * time.Second, MinDistance: 5}

// Handler receives samples in arrival order.
type Handler func(domain.LocationSample)

// Subscription releases a Subscribe registration.
type Subscription interface {
	// Unsubscribe stops delivery. It is idempotent and must not block on an
	// in-flight Handler call, so it is safe to call while holding a lock the
	// handler also takes.
	Unsubscribe()
}

type Source interface {
	// RequestPermission asks the user for location access and blocks until
	// they answer.
	RequestPermission(ctx context.Context) (bool, error)
	// Subscribe starts delivering samples to h. It fails with
	// domain.ErrPermissionDenied when access has not been granted.
	Subscribe(ctx context.Context, opts Options, h Handler) (Subscription, error)
}

// Throttle applies Options to a stream of samples. It is not safe for
// concurrent use.
type Throttle struct {
	opts Options
	last domain.LocationSample
	seen bool
}

func NewThrottle(opts Options) *Throttle {
	return &Throttle{opts: opts}
}

// Allow reports whether s should be delivered and, if so, records it as the
// last delivered sample.
func (t *Throttle) Allow(s domain.LocationSample) bool {
	if t.seen {
		if t.opts.MinInterval > 0 && s.Timestamp.Sub(t.last.Timestamp) < t.opts.MinInterval {
			return false
		}
		if t.opts.MinDistance > 0 &&
			geo.DistanceMeters(t.last.Latitude, t.last.Longitude, s.Latitude, s.Longitude) < t.opts.MinDistance {
			return false
		}
	}
	t.last = s
	t.seen = true
	return true
}

// Package proximity raises a notification when the user comes within a
// threshold distance of a stored point and retracts it when they leave.
//
// The engine's only mutable state is a table from point id to the handle of
// the live notification for that point. An entry exists exactly while the
// point is "notified"; it is added only after a successful raise and removed
// on exit, on point deletion and on detach. All state is guarded by one
// mutex, so location samples and point-set changes are applied one at a time
// in the order they take the lock.
package proximity

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/vbonduro/nearby/internal/domain"
	"github.com/vbonduro/nearby/internal/geo"
	"github.com/vbonduro/nearby/internal/location"
	"github.com/vbonduro/nearby/internal/notify"
)

const (
	DefaultThreshold   = 40.0
	DefaultSinkTimeout = 5 * time.Second
)

type Status int

const (
	// StatusIdle means not attached to a location source.
	StatusIdle Status = iota
	// StatusActive means consuming samples.
	StatusActive
	// StatusUnavailable means a permission was refused; nothing is notified
	// until the next attach.
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "idle"
	}
}

// PointSupplier provides the current point set at attach time.
type PointSupplier interface {
	ListPoints(ctx context.Context) ([]domain.Point, error)
}

type Config struct {
	// Threshold is the proximity radius in meters.
	Threshold float64
	// Location bounds the sample rate requested from the source.
	Location location.Options
	// SinkTimeout bounds each raise or cancel call.
	SinkTimeout time.Duration
}

type Engine struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	status Status
	// gen changes on every attach and detach. Subscription callbacks and
	// in-flight attaches carry the generation they were started under and
	// become no-ops once it moves on.
	gen uint64
	// pointsVersion changes on every point-set update so an attach can tell
	// whether the set it loaded is already stale.
	pointsVersion uint64
	sub           location.Subscription
	sink          notify.Sink
	baseCtx       context.Context
	points        []domain.Point
	active        map[int64]notify.Handle
}

// New returns an idle engine. Zero config fields take their defaults.
func New(cfg Config, logger *slog.Logger) *Engine {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = DefaultSinkTimeout
	}
	return &Engine{
		cfg:    cfg,
		logger: logger,
		active: make(map[int64]notify.Handle),
	}
}

// Attach requests permissions, loads the point set and subscribes to src.
// A refused permission is not an error: the engine enters
// StatusUnavailable and returns nil. Attaching an already active engine is a
// no-op.
func (e *Engine) Attach(ctx context.Context, src location.Source, points PointSupplier, sink notify.Sink) error {
	e.mu.Lock()
	if e.status == StatusActive {
		e.mu.Unlock()
		return nil
	}
	gen := e.gen
	e.mu.Unlock()

	granted, err := src.RequestPermission(ctx)
	if err != nil {
		return fmt.Errorf("failed to request location permission: %w", err)
	}
	if !granted {
		e.markUnavailable(gen, "location")
		return nil
	}

	if pr, ok := sink.(notify.PermissionRequester); ok {
		granted, err := pr.RequestPermission(ctx)
		if err != nil {
			return fmt.Errorf("failed to request notification permission: %w", err)
		}
		if !granted {
			e.markUnavailable(gen, "notification")
			return nil
		}
	}

	e.mu.Lock()
	version := e.pointsVersion
	e.mu.Unlock()

	loaded, err := points.ListPoints(ctx)
	if err != nil {
		return fmt.Errorf("failed to load points: %w", err)
	}

	e.mu.Lock()
	if e.gen != gen || e.status == StatusActive {
		// Detached or attached by someone else while we waited.
		e.mu.Unlock()
		return nil
	}
	if e.pointsVersion == version {
		e.points = slices.Clone(loaded)
	}
	e.gen++
	gen = e.gen
	e.status = StatusActive
	e.sink = sink
	e.baseCtx = context.WithoutCancel(ctx)
	e.active = make(map[int64]notify.Handle)
	e.mu.Unlock()

	// Subscribe without the lock: a source may deliver synchronously.
	sub, err := src.Subscribe(ctx, e.cfg.Location, func(s domain.LocationSample) {
		e.onSample(gen, s)
	})

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		if e.gen == gen {
			e.gen++
			e.status = StatusIdle
			e.sink = nil
		}
		return fmt.Errorf("failed to subscribe to location updates: %w", err)
	}
	if e.gen != gen {
		// Detach ran while we were subscribing.
		sub.Unsubscribe()
		return nil
	}
	e.sub = sub
	e.logger.Info("proximity engine attached", "points", len(e.points), "threshold_m", e.cfg.Threshold)
	return nil
}

func (e *Engine) markUnavailable(gen uint64, which string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gen != gen || e.status == StatusActive {
		return
	}
	e.status = StatusUnavailable
	e.logger.Warn("notifications unavailable", "reason", "permission denied", "permission", which)
}

// Run attaches, blocks until ctx is done and detaches. The subscription is
// released on every return path.
func (e *Engine) Run(ctx context.Context, src location.Source, points PointSupplier, sink notify.Sink) error {
	defer e.Detach()
	if err := e.Attach(ctx, src, points, sink); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// Detach unsubscribes from the location source and cancels every live
// notification. When it returns the table is empty and no further sink calls
// will be made. It is idempotent.
func (e *Engine) Detach() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.gen++
	if e.sub != nil {
		e.sub.Unsubscribe()
		e.sub = nil
	}
	for id, h := range e.active {
		e.cancelLocked(id, h)
	}
	if e.status == StatusActive {
		e.logger.Info("proximity engine detached")
	}
	e.status = StatusIdle
	e.sink = nil
}

// OnPointSetChanged replaces the point set. Any notified point that is no
// longer present has its notification cancelled. New points are evaluated
// from the next sample on.
func (e *Engine) OnPointSetChanged(points []domain.Point) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.points = slices.Clone(points)
	e.pointsVersion++

	if len(e.active) == 0 {
		return
	}
	present := make(map[int64]struct{}, len(points))
	for _, p := range points {
		present[p.ID] = struct{}{}
	}
	for id, h := range e.active {
		if _, ok := present[id]; !ok {
			e.cancelLocked(id, h)
		}
	}
}

// OnPointDeleted drops a single point without needing the whole new set.
func (e *Engine) OnPointDeleted(id int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.points = slices.DeleteFunc(e.points, func(p domain.Point) bool { return p.ID == id })
	e.pointsVersion++
	if h, ok := e.active[id]; ok {
		e.cancelLocked(id, h)
	}
}

func (e *Engine) onSample(gen uint64, s domain.LocationSample) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() {
		// A misbehaving sink must not take the location subscription down.
		if r := recover(); r != nil {
			e.logger.Error("panic while processing location sample", "panic", r)
		}
	}()

	if e.status != StatusActive || e.gen != gen {
		return
	}

	for _, p := range e.points {
		d := geo.DistanceMeters(s.Latitude, s.Longitude, p.Latitude, p.Longitude)
		h, notified := e.active[p.ID]
		switch {
		case d <= e.cfg.Threshold && !notified:
			e.raiseLocked(p, d)
		case d > e.cfg.Threshold && notified:
			e.cancelLocked(p.ID, h)
		}
	}
}

// raiseLocked records the handle only when the sink succeeded, so a failed
// raise is retried on the next sample that is still in range.
func (e *Engine) raiseLocked(p domain.Point, distance float64) {
	ctx, cancel := context.WithTimeout(e.baseCtx, e.cfg.SinkTimeout)
	defer cancel()

	title, body := notify.ProximityContent(p)
	h, err := e.sink.Raise(ctx, title, body)
	if err != nil {
		e.logger.Warn("failed to raise proximity notification",
			"point_id", p.ID, "error", &domain.SinkError{Op: "raise", Err: err})
		return
	}
	e.active[p.ID] = h
	e.logger.Info("entered point proximity", "point_id", p.ID, "distance_m", distance, "handle", h)
}

// cancelLocked always removes the entry: a stray notification is preferable
// to a stuck entry that would block the next enter.
func (e *Engine) cancelLocked(id int64, h notify.Handle) {
	delete(e.active, id)
	if e.sink == nil {
		return
	}

	ctx, cancel := context.WithTimeout(e.baseCtx, e.cfg.SinkTimeout)
	defer cancel()

	if err := e.sink.Cancel(ctx, h); err != nil {
		e.logger.Warn("failed to cancel proximity notification",
			"point_id", id, "error", &domain.SinkError{Op: "cancel", Handle: string(h), Err: err})
		return
	}
	e.logger.Info("left point proximity", "point_id", id, "handle", h)
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Active returns the ids of currently notified points in ascending order.
func (e *Engine) Active() []int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]int64, 0, len(e.active))
	for id := range e.active {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (e *Engine) Threshold() float64 {
	return e.cfg.Threshold
}

package location

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vbonduro/nearby/internal/domain"
)

// PushSource is a Source fed from outside the process, e.g. by an HTTP
// endpoint receiving fixes from a phone. Permission is a host setting.
type PushSource struct {
	// pushMu serializes Push so samples reach handlers in arrival order.
	pushMu sync.Mutex

	mu      sync.Mutex
	granted bool
	subs    map[uint64]*pushSub
	nextID  uint64
	now     func() time.Time
}

type pushSub struct {
	id       uint64
	src      *PushSource
	handler  Handler
	throttle *Throttle
	live     atomic.Bool
}

func NewPushSource(granted bool) *PushSource {
	return &PushSource{
		granted: granted,
		subs:    make(map[uint64]*pushSub),
		now:     time.Now,
	}
}

// SetPermission changes the answer future RequestPermission calls give.
// Existing subscriptions are not affected.
func (s *PushSource) SetPermission(granted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.granted = granted
}

func (s *PushSource) RequestPermission(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.granted, nil
}

func (s *PushSource) Subscribe(ctx context.Context, opts Options, h Handler) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.granted {
		return nil, domain.ErrPermissionDenied
	}

	s.nextID++
	sub := &pushSub{id: s.nextID, src: s, handler: h, throttle: NewThrottle(opts)}
	sub.live.Store(true)
	s.subs[sub.id] = sub
	return sub, nil
}

// Push delivers sample to every subscriber whose throttle admits it and
// returns how many received it. A zero Timestamp is replaced with the current
// time. Handlers run on the caller's goroutine and must not call Push.
func (s *PushSource) Push(sample domain.LocationSample) int {
	s.pushMu.Lock()
	defer s.pushMu.Unlock()

	if sample.Timestamp.IsZero() {
		sample.Timestamp = s.now()
	}

	s.mu.Lock()
	targets := make([]*pushSub, 0, len(s.subs))
	for _, sub := range s.subs {
		if sub.throttle.Allow(sample) {
			targets = append(targets, sub)
		}
	}
	s.mu.Unlock()

	delivered := 0
	for _, sub := range targets {
		if !sub.live.Load() {
			continue
		}
		sub.handler(sample)
		delivered++
	}
	return delivered
}

// Subscribers returns the number of live subscriptions.
func (s *PushSource) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (p *pushSub) Unsubscribe() {
	if !p.live.CompareAndSwap(true, false) {
		return
	}
	p.src.mu.Lock()
	delete(p.src.subs, p.id)
	p.src.mu.Unlock()
}

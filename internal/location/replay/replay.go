// Package replay implements a location.Source that plays back a recorded
// track, one JSON object per line.
package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/vbonduro/nearby/internal/domain"
	"github.com/vbonduro/nearby/internal/location"
)

// Source replays samples with their recorded spacing divided by speed. A
// speed of zero or less replays without delay.
type Source struct {
	samples []domain.LocationSample
	speed   float64
	logger  *slog.Logger
}

func New(samples []domain.LocationSample, speed float64, logger *slog.Logger) *Source {
	return &Source{samples: samples, speed: speed, logger: logger}
}

// Open reads a track file.
func Open(path string, speed float64, logger *slog.Logger) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open track: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logger.Error("failed to close track file", "path", path, "error", cerr)
		}
	}()

	samples, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse track %s: %w", path, err)
	}
	return New(samples, speed, logger), nil
}

// Parse decodes JSON-lines samples. Blank lines and lines starting with '#'
// are skipped.
func Parse(r io.Reader) ([]domain.LocationSample, error) {
	var samples []domain.LocationSample
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var s domain.LocationSample
		if err := json.Unmarshal([]byte(text), &s); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if !domain.ValidCoordinates(s.Latitude, s.Longitude) {
			return nil, fmt.Errorf("line %d: coordinates out of range", line)
		}
		samples = append(samples, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

// RequestPermission always grants: a recorded track needs no user consent.
func (s *Source) RequestPermission(ctx context.Context) (bool, error) {
	return true, ctx.Err()
}

// Subscribe starts playback on a new goroutine. Playback ends when the track
// is exhausted or the subscription is released; ctx only guards the call
// itself, since playback outlives the request that attached it.
func (s *Source) Subscribe(ctx context.Context, opts location.Options, h location.Handler) (location.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sub := &subscription{stop: make(chan struct{}), done: make(chan struct{})}
	go s.play(sub, location.NewThrottle(opts), h)
	return sub, nil
}

func (s *Source) play(sub *subscription, throttle *location.Throttle, h location.Handler) {
	defer close(sub.done)

	delivered := 0
	for i, sample := range s.samples {
		if i > 0 {
			if !s.wait(sub, s.delay(s.samples[i-1], sample)) {
				return
			}
		}
		select {
		case <-sub.stop:
			return
		default:
		}
		if throttle.Allow(sample) {
			h(sample)
			delivered++
		}
	}
	s.logger.Info("track replay finished", "samples", len(s.samples), "delivered", delivered)
}

func (s *Source) delay(prev, next domain.LocationSample) time.Duration {
	if s.speed <= 0 || prev.Timestamp.IsZero() || next.Timestamp.IsZero() {
		return 0
	}
	gap := next.Timestamp.Sub(prev.Timestamp)
	if gap <= 0 {
		return 0
	}
	return time.Duration(float64(gap) / s.speed)
}

// wait sleeps for d and reports whether playback should continue.
func (s *Source) wait(sub *subscription, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-sub.stop:
		return false
	}
}

type subscription struct {
	once sync.Once
	stop chan struct{}
	done chan struct{}
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() { close(s.stop) })
}

// Done is closed once playback has stopped.
func (s *subscription) Done() <-chan struct{} {
	return s.done
}

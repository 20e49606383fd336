// Package logsink is a notify.Sink that writes notifications to the
// structured log. It is the default when no push backend is configured.
package logsink

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/vbonduro/nearby/internal/notify"
)

type Notification struct {
	Handle notify.Handle
	Title  string
	Body   string
}

type Sink struct {
	logger *slog.Logger

	mu   sync.Mutex
	live map[notify.Handle]Notification
}

func New(logger *slog.Logger) *Sink {
	return &Sink{logger: logger, live: make(map[notify.Handle]Notification)}
}

func (s *Sink) Raise(ctx context.Context, title, body string) (notify.Handle, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	n := Notification{Handle: notify.Handle(uuid.NewString()), Title: title, Body: body}

	s.mu.Lock()
	s.live[n.Handle] = n
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "notification raised", "handle", n.Handle, "title", title, "body", body)
	return n.Handle, nil
}

func (s *Sink) Cancel(ctx context.Context, h notify.Handle) error {
	s.mu.Lock()
	_, ok := s.live[h]
	delete(s.live, h)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("notification %s not found", h)
	}
	s.logger.InfoContext(ctx, "notification cancelled", "handle", h)
	return nil
}

// Live returns the notifications raised and not yet cancelled, ordered by
// body for stable output.
func (s *Sink) Live() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, 0, len(s.live))
	for _, n := range s.live {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Body < out[j].Body })
	return out
}

// Package redisnotify is a notify.Sink that hands notifications to a device
// push gateway through Redis. Each live notification is a hash under
// KeyPrefix+handle, and every raise or cancel is also published on a channel
// so the gateway can react without polling.
package redisnotify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vbonduro/nearby/internal/notify"
)

const KeyPrefix = "nearby:notification:"

const (
	EventRaise  = "raise"
	EventCancel = "cancel"
)

// Event is the JSON payload published on the channel.
type Event struct {
	Type   string        `json:"type"`
	Handle notify.Handle `json:"handle"`
	Title  string        `json:"title,omitempty"`
	Body   string        `json:"body,omitempty"`
	At     time.Time     `json:"at"`
}

type Sink struct {
	client  redis.Cmdable
	channel string
	now     func() time.Time
}

func New(client redis.Cmdable, channel string) *Sink {
	return &Sink{client: client, channel: channel, now: time.Now}
}

func (s *Sink) Raise(ctx context.Context, title, body string) (notify.Handle, error) {
	h := notify.Handle(uuid.NewString())
	ev := Event{Type: EventRaise, Handle: h, Title: title, Body: body, At: s.now().UTC()}
	payload, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("failed to encode raise event: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, KeyPrefix+string(h),
			"title", title,
			"body", body,
			"raised_at", ev.At.Format(time.RFC3339Nano),
		)
		pipe.Publish(ctx, s.channel, payload)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to raise notification: %w", err)
	}
	return h, nil
}

func (s *Sink) Cancel(ctx context.Context, h notify.Handle) error {
	payload, err := json.Marshal(Event{Type: EventCancel, Handle: h, At: s.now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode cancel event: %w", err)
	}

	var del *redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, KeyPrefix+string(h))
		pipe.Publish(ctx, s.channel, payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to cancel notification: %w", err)
	}
	if del.Val() == 0 {
		return fmt.Errorf("notification %s not found", h)
	}
	return nil
}

// RequestPermission reports whether the gateway is reachable; without it no
// notification can be delivered.
func (s *Sink) RequestPermission(ctx context.Context) (bool, error) {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return false, fmt.Errorf("failed to reach redis: %w", err)
	}
	return true, nil
}

// Package notify defines the notification sink the proximity engine drives.
package notify

import (
	"context"

	"github.com/vbonduro/nearby/internal/domain"
)

// Handle identifies a raised notification. It is opaque to callers.
type Handle string

// Sink raises and cancels user-visible notifications. Raise and Cancel may
// fail independently of each other.
type Sink interface {
	Raise(ctx context.Context, title, body string) (Handle, error)
	Cancel(ctx context.Context, h Handle) error
}

// PermissionRequester is implemented by sinks that need the user's consent
// before they can show anything.
type PermissionRequester interface {
	RequestPermission(ctx context.Context) (bool, error)
}

const (
	ProximityTitle = "You are near a point!"
	unknownPoint   = "Unknown point"
)

// ProximityContent returns the title and body announcing that the user is
// near p.
func ProximityContent(p domain.Point) (title, body string) {
	if p.Label == "" {
		return ProximityTitle, unknownPoint
	}
	return ProximityTitle, "Point: " + p.Label
}

// Package imagestore stores the bytes of uploaded point images. Rows in the
// images table refer to stored bytes through a "local:<key>" URI; any other
// URI is an external reference and is never resolved here.
package imagestore

import (
	"context"
	"errors"
	"io"
	"strings"
)

const LocalScheme = "local:"

var ErrNotFound = errors.New("image content not found")

type Store interface {
	Save(ctx context.Context, prefix, mimeType string, r io.Reader) (key string, err error)
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}

// LocalURI returns the image URI for content saved under key.
func LocalURI(key string) string {
	return LocalScheme + key
}

// KeyFromURI returns the storage key of a local URI. ok is false for
// external URIs.
func KeyFromURI(uri string) (key string, ok bool) {
	key, ok = strings.CutPrefix(uri, LocalScheme)
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

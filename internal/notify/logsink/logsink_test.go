package logsink

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSinkRaiseAndCancel(t *testing.T) {
	var buf bytes.Buffer
	sink := New(slog.New(slog.NewJSONHandler(&buf, nil)))
	ctx := context.Background()

	h, err := sink.Raise(ctx, "title", "Point: Bakery")
	require.NoError(t, err)
	assert.NotEmpty(t, h)

	live := sink.Live()
	require.Len(t, live, 1)
	assert.Equal(t, h, live[0].Handle)
	assert.Contains(t, buf.String(), "notification raised")

	require.NoError(t, sink.Cancel(ctx, h))
	assert.Empty(t, sink.Live())
	assert.Contains(t, buf.String(), "notification cancelled")
}

func TestSinkHandlesAreUnique(t *testing.T) {
	sink := New(slog.Default())
	ctx := context.Background()

	a, err := sink.Raise(ctx, "t", "a")
	require.NoError(t, err)
	b, err := sink.Raise(ctx, "t", "b")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, sink.Live(), 2)
}

func TestSinkCancelUnknown(t *testing.T) {
	sink := New(slog.Default())
	assert.Error(t, sink.Cancel(context.Background(), "nope"))
}

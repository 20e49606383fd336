package replay

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/nearby/internal/domain"
	"github.com/vbonduro/nearby/internal/location"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const track = `# morning walk
{"latitude": 58.0, "longitude": 56.0, "timestamp": "2025-06-01T12:00:00Z"}

{"latitude": 58.0001, "longitude": 56.0, "accuracy": 4.5, "timestamp": "2025-06-01T12:00:10Z"}
{"latitude": 58.0002, "longitude": 56.0, "timestamp": "2025-06-01T12:00:20Z"}
`

type doner interface{ Done() <-chan struct{} }

type recorder struct {
	mu      sync.Mutex
	samples []domain.LocationSample
}

func (r *recorder) handle(s domain.LocationSample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, s)
}

func (r *recorder) got() []domain.LocationSample {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.LocationSample(nil), r.samples...)
}

func waitDone(t *testing.T, sub location.Subscription) {
	t.Helper()
	d, ok := sub.(doner)
	require.True(t, ok)
	select {
	case <-d.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("replay did not stop")
	}
}

func TestParse(t *testing.T) {
	samples, err := Parse(strings.NewReader(track))
	require.NoError(t, err)

	want := []domain.LocationSample{
		{Latitude: 58.0, Longitude: 56.0, Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		{Latitude: 58.0001, Longitude: 56.0, Accuracy: 4.5, Timestamp: time.Date(2025, 6, 1, 12, 0, 10, 0, time.UTC)},
		{Latitude: 58.0002, Longitude: 56.0, Timestamp: time.Date(2025, 6, 1, 12, 0, 20, 0, time.UTC)},
	}
	if diff := cmp.Diff(want, samples); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse(strings.NewReader("{not json}\n"))
	assert.ErrorContains(t, err, "line 1")

	_, err = Parse(strings.NewReader(`{"latitude": 91, "longitude": 0}` + "\n"))
	assert.ErrorContains(t, err, "out of range")
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(track), 0o600))

	src, err := Open(path, 0, slog.Default())
	require.NoError(t, err)
	assert.Len(t, src.samples, 3)

	_, err = Open(filepath.Join(t.TempDir(), "missing.jsonl"), 0, slog.Default())
	assert.Error(t, err)
}

func TestSubscribe_ReplaysAllSamples(t *testing.T) {
	samples, err := Parse(strings.NewReader(track))
	require.NoError(t, err)
	src := New(samples, 0, slog.Default())

	granted, err := src.RequestPermission(context.Background())
	require.NoError(t, err)
	assert.True(t, granted)

	rec := &recorder{}
	sub, err := src.Subscribe(context.Background(), location.Options{}, rec.handle)
	require.NoError(t, err)
	waitDone(t, sub)
	sub.Unsubscribe()

	assert.Equal(t, samples, rec.got())
}

func TestSubscribe_AppliesThrottle(t *testing.T) {
	samples, err := Parse(strings.NewReader(track))
	require.NoError(t, err)
	src := New(samples, 0, slog.Default())

	rec := &recorder{}
	// Samples are ~11 m apart; only every other one clears 15 m.
	sub, err := src.Subscribe(context.Background(), location.Options{MinDistance: 15}, rec.handle)
	require.NoError(t, err)
	waitDone(t, sub)

	got := rec.got()
	require.Len(t, got, 2)
	assert.Equal(t, 58.0, got[0].Latitude)
	assert.Equal(t, 58.0002, got[1].Latitude)
}

func TestSubscribe_UnsubscribeStopsPlayback(t *testing.T) {
	samples, err := Parse(strings.NewReader(track))
	require.NoError(t, err)
	// Real-time playback: 10 s between samples.
	src := New(samples, 1, slog.Default())

	rec := &recorder{}
	sub, err := src.Subscribe(context.Background(), location.Options{}, rec.handle)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(rec.got()) == 1 }, 5*time.Second, 5*time.Millisecond)
	sub.Unsubscribe()
	waitDone(t, sub)

	assert.Len(t, rec.got(), 1)
}

func TestSubscribe_CancelledContext(t *testing.T) {
	src := New(nil, 0, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.Subscribe(ctx, location.Options{}, func(domain.LocationSample) {})
	assert.ErrorIs(t, err, context.Canceled)
}

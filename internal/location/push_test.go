package location

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/nearby/internal/domain"
)

func TestPushSource_PermissionDenied(t *testing.T) {
	src := NewPushSource(false)
	ctx := context.Background()

	granted, err := src.RequestPermission(ctx)
	require.NoError(t, err)
	assert.False(t, granted)

	_, err = src.Subscribe(ctx, Options{}, func(domain.LocationSample) {})
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
}

func TestPushSource_SetPermission(t *testing.T) {
	src := NewPushSource(false)
	src.SetPermission(true)

	granted, err := src.RequestPermission(context.Background())
	require.NoError(t, err)
	assert.True(t, granted)
}

func TestPushSource_DeliversInOrder(t *testing.T) {
	src := NewPushSource(true)
	var got []float64
	sub, err := src.Subscribe(context.Background(), Options{}, func(s domain.LocationSample) {
		got = append(got, s.Latitude)
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	for _, lat := range []float64{1, 2, 3} {
		assert.Equal(t, 1, src.Push(domain.LocationSample{Latitude: lat}))
	}
	assert.Equal(t, []float64{1, 2, 3}, got)
}

func TestPushSource_FillsTimestamp(t *testing.T) {
	src := NewPushSource(true)
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	src.now = func() time.Time { return fixed }

	var got domain.LocationSample
	sub, err := src.Subscribe(context.Background(), Options{}, func(s domain.LocationSample) { got = s })
	require.NoError(t, err)
	defer sub.Unsubscribe()

	src.Push(domain.LocationSample{Latitude: 1})
	assert.Equal(t, fixed, got.Timestamp)
}

func TestPushSource_AppliesThrottlePerSubscriber(t *testing.T) {
	src := NewPushSource(true)
	ctx := context.Background()

	var throttled, unthrottled int
	a, err := src.Subscribe(ctx, Options{MinInterval: time.Minute}, func(domain.LocationSample) { throttled++ })
	require.NoError(t, err)
	defer a.Unsubscribe()
	b, err := src.Subscribe(ctx, Options{}, func(domain.LocationSample) { unthrottled++ })
	require.NoError(t, err)
	defer b.Unsubscribe()

	src.Push(sampleAt(0, 0, 0))
	src.Push(sampleAt(0, 0, time.Second))

	assert.Equal(t, 1, throttled)
	assert.Equal(t, 2, unthrottled)
}

func TestPushSource_UnsubscribeStopsDelivery(t *testing.T) {
	src := NewPushSource(true)
	calls := 0
	sub, err := src.Subscribe(context.Background(), Options{}, func(domain.LocationSample) { calls++ })
	require.NoError(t, err)

	src.Push(domain.LocationSample{})
	sub.Unsubscribe()
	sub.Unsubscribe()
	assert.Equal(t, 0, src.Push(domain.LocationSample{}))

	assert.Equal(t, 1, calls)
	assert.Zero(t, src.Subscribers())
}

func TestPushSource_UnsubscribeFromHandler(t *testing.T) {
	src := NewPushSource(true)
	var sub Subscription
	calls := 0
	sub, err := src.Subscribe(context.Background(), Options{}, func(domain.LocationSample) {
		calls++
		sub.Unsubscribe()
	})
	require.NoError(t, err)

	src.Push(domain.LocationSample{})
	src.Push(domain.LocationSample{})
	assert.Equal(t, 1, calls)
}

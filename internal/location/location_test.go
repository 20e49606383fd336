package location

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vbonduro/nearby/internal/domain"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func sampleAt(lat, lng float64, offset time.Duration) domain.LocationSample {
	return domain.LocationSample{Latitude: lat, Longitude: lng, Timestamp: t0.Add(offset)}
}

func TestThrottle_FirstSampleAlwaysAllowed(t *testing.T) {
	th := NewThrottle(Options{MinInterval: time.Hour, MinDistance: 1000})
	assert.True(t, th.Allow(sampleAt(0, 0, 0)))
}

func TestThrottle_MinInterval(t *testing.T) {
	th := NewThrottle(Options{MinInterval: 5 * time.Second})

	assert.True(t, th.Allow(sampleAt(0, 0, 0)))
	assert.False(t, th.Allow(sampleAt(1, 1, 4*time.Second)))
	assert.True(t, th.Allow(sampleAt(1, 1, 5*time.Second)))
	assert.False(t, th.Allow(sampleAt(1, 1, 9*time.Second)), "interval counts from the last delivered sample")
}

func TestThrottle_MinDistance(t *testing.T) {
	th := NewThrottle(Options{MinDistance: 5})

	assert.True(t, th.Allow(sampleAt(58.0, 56.0, 0)))
	// ~1.1 m north.
	assert.False(t, th.Allow(sampleAt(58.00001, 56.0, time.Second)))
	// ~11 m north.
	assert.True(t, th.Allow(sampleAt(58.0001, 56.0, 2*time.Second)))
}

func TestThrottle_BothBoundsRequired(t *testing.T) {
	th := NewThrottle(DefaultOptions)

	assert.True(t, th.Allow(sampleAt(58.0, 56.0, 0)))
	assert.False(t, th.Allow(sampleAt(58.001, 56.0, time.Second)), "moved far but too soon")
	assert.False(t, th.Allow(sampleAt(58.0, 56.0, time.Minute)), "waited long but did not move")
	assert.True(t, th.Allow(sampleAt(58.001, 56.0, time.Minute)))
}

func TestThrottle_ZeroOptionsAllowEverything(t *testing.T) {
	th := NewThrottle(Options{})
	for i := 0; i < 3; i++ {
		assert.True(t, th.Allow(sampleAt(0, 0, 0)))
	}
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "/data/nearby.db", cfg.DBPath)
	assert.Equal(t, 40.0, cfg.ProximityThreshold)
	assert.Equal(t, 5*time.Second, cfg.LocationMinInterval)
	assert.Equal(t, 5.0, cfg.LocationMinDistance)
	assert.True(t, cfg.LocationGranted())
	assert.Equal(t, NotifyLog, cfg.NotifyBackend)
	assert.Equal(t, "nearby:notifications", cfg.RedisChannel)
	assert.Equal(t, 5*time.Second, cfg.NotifyTimeout)
	assert.Empty(t, cfg.ReplayFile)
}

func TestLoadCustomValues(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("DB_PATH", "/custom/db.sqlite")
	t.Setenv("PROXIMITY_THRESHOLD_METERS", "75.5")
	t.Setenv("LOCATION_MIN_INTERVAL", "250ms")
	t.Setenv("LOCATION_PERMISSION", "denied")
	t.Setenv("NOTIFY_BACKEND", "redis")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("NOTIFY_TIMEOUT", "750ms")
	t.Setenv("REPLAY_FILE", "/tracks/commute.jsonl")
	t.Setenv("REPLAY_SPEED", "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "/custom/db.sqlite", cfg.DBPath)
	assert.Equal(t, 75.5, cfg.ProximityThreshold)
	assert.Equal(t, 250*time.Millisecond, cfg.LocationMinInterval)
	assert.False(t, cfg.LocationGranted())
	assert.Equal(t, NotifyRedis, cfg.NotifyBackend)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 750*time.Millisecond, cfg.NotifyTimeout)
	assert.Equal(t, "/tracks/commute.jsonl", cfg.ReplayFile)
	assert.Equal(t, 10.0, cfg.ReplaySpeed)
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "zero threshold", key: "PROXIMITY_THRESHOLD_METERS", value: "0"},
		{name: "negative threshold", key: "PROXIMITY_THRESHOLD_METERS", value: "-1"},
		{name: "unparseable threshold", key: "PROXIMITY_THRESHOLD_METERS", value: "near"},
		{name: "bad interval", key: "LOCATION_MIN_INTERVAL", value: "often"},
		{name: "negative distance", key: "LOCATION_MIN_DISTANCE_METERS", value: "-5"},
		{name: "unknown permission", key: "LOCATION_PERMISSION", value: "maybe"},
		{name: "unknown backend", key: "NOTIFY_BACKEND", value: "smoke-signals"},
		{name: "zero notify timeout", key: "NOTIFY_TIMEOUT", value: "0s"},
		{name: "negative replay speed", key: "REPLAY_SPEED", value: "-2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	NotifyLog   = "log"
	NotifyRedis = "redis"
)

type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	DBPath     string `env:"DB_PATH" envDefault:"/data/nearby.db"`
	ImagePath  string `env:"IMAGE_PATH" envDefault:"/data/images"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile    string `env:"LOG_FILE"`

	ProximityThreshold  float64       `env:"PROXIMITY_THRESHOLD_METERS" envDefault:"40"`
	LocationMinInterval time.Duration `env:"LOCATION_MIN_INTERVAL" envDefault:"5s"`
	LocationMinDistance float64       `env:"LOCATION_MIN_DISTANCE_METERS" envDefault:"5"`
	LocationPermission  string        `env:"LOCATION_PERMISSION" envDefault:"granted"`

	NotifyBackend string `env:"NOTIFY_BACKEND" envDefault:"log"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisChannel  string `env:"REDIS_CHANNEL" envDefault:"nearby:notifications"`
	// NotifyTimeout bounds each raise or cancel. Point deletes wait for the
	// cancel, so a slow backend is felt by every mutation up to this long.
	NotifyTimeout time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"5s"`

	// ReplayFile, when set, replaces the HTTP-fed location source with a
	// recorded track.
	ReplayFile  string  `env:"REPLAY_FILE"`
	ReplaySpeed float64 `env:"REPLAY_SPEED" envDefault:"1.0"`
}

// Load reads configuration from the environment, after merging in a .env
// file from the working directory if there is one. Variables already set in
// the environment win over .env.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LocationGranted reports whether the host has granted location access.
func (c *Config) LocationGranted() bool {
	return c.LocationPermission == "granted"
}

func (c *Config) validate() error {
	if c.ProximityThreshold <= 0 {
		return fmt.Errorf("PROXIMITY_THRESHOLD_METERS must be positive, got %v", c.ProximityThreshold)
	}
	if c.LocationMinInterval < 0 {
		return fmt.Errorf("LOCATION_MIN_INTERVAL must not be negative, got %v", c.LocationMinInterval)
	}
	if c.LocationMinDistance < 0 {
		return fmt.Errorf("LOCATION_MIN_DISTANCE_METERS must not be negative, got %v", c.LocationMinDistance)
	}
	switch c.LocationPermission {
	case "granted", "denied":
	default:
		return fmt.Errorf("LOCATION_PERMISSION must be granted or denied, got %q", c.LocationPermission)
	}
	switch c.NotifyBackend {
	case NotifyLog, NotifyRedis:
	default:
		return fmt.Errorf("unknown NOTIFY_BACKEND %q", c.NotifyBackend)
	}
	if c.NotifyTimeout <= 0 {
		return fmt.Errorf("NOTIFY_TIMEOUT must be positive, got %v", c.NotifyTimeout)
	}
	if c.ReplaySpeed < 0 {
		return fmt.Errorf("REPLAY_SPEED must not be negative, got %v", c.ReplaySpeed)
	}
	return nil
}

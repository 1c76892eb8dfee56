// Package config holds the single immutable configuration shared by the
// server, the client session and every simulation component. Build it once
// at startup with Default, overlay the environment with FromEnv, validate it
// and pass the pointer around.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/automoto/rollback-mp/shared/gamemath"
	"github.com/automoto/rollback-mp/shared/netconfig"
)

var ErrInvalidConfig = eris.New("invalid config")

// Config contains every tunable of the simulation and its networking.
type Config struct {
	// Timing
	TickRate            int           // simulation ticks per second
	ReplicationInterval time.Duration // server snapshot period

	// Networking
	ServerAddr      string
	InputLeadTicks  int // how far the client simulates ahead of the last confirmed tick
	InputRedundancy int // previous snapshots repeated in every input message

	// Movement
	Speed        float64
	MovementMode netconfig.MovementMode
	PlayerSize   float64

	// Bullets
	BulletVelocity gamemath.Vec2
	BulletSize     float64

	// Prediction
	HistoryDepth       int
	InputBufferDepth   int
	PositionThreshold  float64
	RotationThreshold  float64 // radians
	VelocityThreshold  float64
	CorrectionDuration time.Duration // visual smoothing after a rollback

	// Interpolation
	InterpolationDelay time.Duration

	// Pre-spawn
	PreSpawnWindow time.Duration

	// Level
	LevelPath string // TMX file; empty uses the built-in arena

	// Logging
	LogLevel  string
	LogPretty bool
}

// Default returns the reference configuration.
func Default() Config {
	return Config{
		TickRate:            64,
		ReplicationInterval: 100 * time.Millisecond,

		ServerAddr:      "127.0.0.1:5000",
		InputLeadTicks:  6,
		InputRedundancy: 4,

		Speed:        150,
		MovementMode: netconfig.MovementVelocity,
		PlayerSize:   20,

		BulletVelocity: gamemath.Vec2{X: 20, Y: 0},
		BulletSize:     10, // circle of radius 50 at scale 0.1

		HistoryDepth:       64,
		InputBufferDepth:   64,
		PositionThreshold:  0.01,
		RotationThreshold:  0.01,
		VelocityThreshold:  0.01,
		CorrectionDuration: 100 * time.Millisecond,

		InterpolationDelay: 100 * time.Millisecond,

		PreSpawnWindow: time.Second,

		LogLevel:  "info",
		LogPretty: true,
	}
}

// FromEnv overlays ROLLBACK_* environment variables on base. Unparseable
// values are reported rather than ignored.
func FromEnv(base Config) (Config, error) {
	c := base
	var err error

	c.ServerAddr = getEnv("ROLLBACK_SERVER_ADDR", c.ServerAddr)
	c.LevelPath = getEnv("ROLLBACK_LEVEL", c.LevelPath)
	c.LogLevel = getEnv("ROLLBACK_LOG_LEVEL", c.LogLevel)

	if c.TickRate, err = getEnvInt("ROLLBACK_TICK_RATE", c.TickRate); err != nil {
		return base, err
	}
	if c.ReplicationInterval, err = getEnvDuration("ROLLBACK_REPLICATION_INTERVAL", c.ReplicationInterval); err != nil {
		return base, err
	}
	if c.InputLeadTicks, err = getEnvInt("ROLLBACK_INPUT_LEAD", c.InputLeadTicks); err != nil {
		return base, err
	}
	if c.Speed, err = getEnvFloat("ROLLBACK_SPEED", c.Speed); err != nil {
		return base, err
	}
	if c.HistoryDepth, err = getEnvInt("ROLLBACK_HISTORY_DEPTH", c.HistoryDepth); err != nil {
		return base, err
	}
	if c.PositionThreshold, err = getEnvFloat("ROLLBACK_POSITION_THRESHOLD", c.PositionThreshold); err != nil {
		return base, err
	}
	if c.RotationThreshold, err = getEnvFloat("ROLLBACK_ROTATION_THRESHOLD", c.RotationThreshold); err != nil {
		return base, err
	}
	if c.PreSpawnWindow, err = getEnvDuration("ROLLBACK_PRESPAWN_WINDOW", c.PreSpawnWindow); err != nil {
		return base, err
	}
	if c.LogPretty, err = getEnvBool("ROLLBACK_LOG_PRETTY", c.LogPretty); err != nil {
		return base, err
	}

	return c, nil
}

// Validate rejects configurations the simulation cannot run with. A zero or
// negative divergence threshold would never report a match, and a missing
// one would never report divergence.
func (c *Config) Validate() error {
	switch {
	case c.TickRate <= 0:
		return eris.Wrapf(ErrInvalidConfig, "tick rate must be positive, got %d", c.TickRate)
	case c.ReplicationInterval <= 0:
		return eris.Wrapf(ErrInvalidConfig, "replication interval must be positive, got %s", c.ReplicationInterval)
	case c.ServerAddr == "":
		return eris.Wrap(ErrInvalidConfig, "server address is empty")
	case c.InputLeadTicks < 0:
		return eris.Wrapf(ErrInvalidConfig, "input lead must not be negative, got %d", c.InputLeadTicks)
	case c.InputRedundancy < 0:
		return eris.Wrapf(ErrInvalidConfig, "input redundancy must not be negative, got %d", c.InputRedundancy)
	case c.Speed <= 0:
		return eris.Wrapf(ErrInvalidConfig, "speed must be positive, got %g", c.Speed)
	case c.PlayerSize <= 0 || c.BulletSize <= 0:
		return eris.Wrap(ErrInvalidConfig, "collider sizes must be positive")
	case c.HistoryDepth <= 0:
		return eris.Wrapf(ErrInvalidConfig, "history depth must be positive, got %d", c.HistoryDepth)
	case c.InputBufferDepth < c.HistoryDepth:
		return eris.Wrapf(ErrInvalidConfig, "input buffer depth %d is shorter than history depth %d",
			c.InputBufferDepth, c.HistoryDepth)
	case c.InputLeadTicks >= c.HistoryDepth:
		return eris.Wrapf(ErrInvalidConfig, "input lead %d does not fit in history depth %d",
			c.InputLeadTicks, c.HistoryDepth)
	case c.PositionThreshold <= 0 || c.RotationThreshold <= 0 || c.VelocityThreshold <= 0:
		return eris.Wrap(ErrInvalidConfig, "divergence thresholds must be positive")
	case c.CorrectionDuration < 0 || c.InterpolationDelay < 0:
		return eris.Wrap(ErrInvalidConfig, "durations must not be negative")
	case c.PreSpawnWindow <= 0:
		return eris.Wrapf(ErrInvalidConfig, "pre-spawn window must be positive, got %s", c.PreSpawnWindow)
	}
	return nil
}

// Dt returns the fixed simulation step in seconds.
func (c *Config) Dt() float64 {
	return 1 / float64(c.TickRate)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, eris.Wrapf(ErrInvalidConfig, "%s=%q is not an integer", key, v)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback, eris.Wrapf(ErrInvalidConfig, "%s=%q is not a number", key, v)
	}
	return f, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, eris.Wrapf(ErrInvalidConfig, "%s=%q is not a duration", key, v)
	}
	return d, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback, eris.Wrapf(ErrInvalidConfig, "%s=%q is not a boolean", key, v)
	}
	return b, nil
}

package config

import (
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, 64, c.TickRate)
	assert.Equal(t, 100*time.Millisecond, c.ReplicationInterval)
	assert.Equal(t, "127.0.0.1:5000", c.ServerAddr)
	assert.InDelta(t, 1.0/64, c.Dt(), 1e-12)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero tick rate", func(c *Config) { c.TickRate = 0 }},
		{"zero replication interval", func(c *Config) { c.ReplicationInterval = 0 }},
		{"empty address", func(c *Config) { c.ServerAddr = "" }},
		{"zero speed", func(c *Config) { c.Speed = 0 }},
		{"zero history", func(c *Config) { c.HistoryDepth = 0 }},
		{"input buffer shorter than history", func(c *Config) { c.InputBufferDepth = c.HistoryDepth - 1 }},
		{"lead beyond history", func(c *Config) { c.InputLeadTicks = c.HistoryDepth }},
		{"zero position threshold", func(c *Config) { c.PositionThreshold = 0 }},
		{"negative rotation threshold", func(c *Config) { c.RotationThreshold = -1 }},
		{"zero velocity threshold", func(c *Config) { c.VelocityThreshold = 0 }},
		{"zero prespawn window", func(c *Config) { c.PreSpawnWindow = 0 }},
		{"negative correction", func(c *Config) { c.CorrectionDuration = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.True(t, eris.Is(err, ErrInvalidConfig))
		})
	}
}

func TestFromEnvOverlays(t *testing.T) {
	t.Setenv("ROLLBACK_SERVER_ADDR", "10.0.0.1:6000")
	t.Setenv("ROLLBACK_TICK_RATE", "30")
	t.Setenv("ROLLBACK_PRESPAWN_WINDOW", "250ms")
	t.Setenv("ROLLBACK_POSITION_THRESHOLD", "0.5")
	t.Setenv("ROLLBACK_LOG_PRETTY", "false")

	c, err := FromEnv(Default())
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:6000", c.ServerAddr)
	assert.Equal(t, 30, c.TickRate)
	assert.Equal(t, 250*time.Millisecond, c.PreSpawnWindow)
	assert.InDelta(t, 0.5, c.PositionThreshold, 1e-12)
	assert.False(t, c.LogPretty)
	assert.Equal(t, Default().Speed, c.Speed, "unset keys keep the base value")
}

func TestFromEnvRejectsGarbage(t *testing.T) {
	t.Setenv("ROLLBACK_TICK_RATE", "fast")

	c, err := FromEnv(Default())
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInvalidConfig))
	assert.Equal(t, Default().TickRate, c.TickRate)
}

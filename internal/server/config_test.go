package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, []string{"http://localhost:8080"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(1024), cfg.MaxMessageSize)
	assert.Equal(t, 20, cfg.RateLimit.Burst)
	assert.Equal(t, time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, time.Second, cfg.TickInterval)
	assert.Equal(t, 256, cfg.SendBufferSize)
	assert.Equal(t, int64(2<<20), cfg.MaxIconSize)
	assert.Empty(t, cfg.AdminToken)
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9090")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("MAX_MESSAGE_SIZE", "4096")
	t.Setenv("RATE_LIMIT_BURST", "3")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2")
	t.Setenv("ADMIN_TOKEN", "hunter2")
	t.Setenv("TICK_INTERVAL", "5")
	t.Setenv("SEND_BUFFER_SIZE", "64")
	t.Setenv("ICON_DIR", "/tmp/icons")
	t.Setenv("MAX_ICON_SIZE", "1000")

	cfg := NewConfigFromEnv()

	assert.Equal(t, ":9090", cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(4096), cfg.MaxMessageSize)
	assert.Equal(t, 3, cfg.RateLimit.Burst)
	assert.Equal(t, 2*time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, "hunter2", cfg.AdminToken)
	assert.Equal(t, 5*time.Second, cfg.TickInterval)
	assert.Equal(t, 64, cfg.SendBufferSize)
	assert.Equal(t, "/tmp/icons", cfg.IconDir)
	assert.Equal(t, int64(1000), cfg.MaxIconSize)
}

func TestNewConfigFromEnvIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("MAX_MESSAGE_SIZE", "lots")
	t.Setenv("RATE_LIMIT_BURST", "-1")
	t.Setenv("TICK_INTERVAL", "0")
	t.Setenv("SEND_BUFFER_SIZE", "x")

	cfg := NewConfigFromEnv()
	defaults := NewConfig()

	assert.Equal(t, defaults.MaxMessageSize, cfg.MaxMessageSize)
	assert.Equal(t, defaults.RateLimit.Burst, cfg.RateLimit.Burst)
	assert.Equal(t, defaults.TickInterval, cfg.TickInterval)
	assert.Equal(t, defaults.SendBufferSize, cfg.SendBufferSize)
}

func TestSanitizeConfigFillsZeroValues(t *testing.T) {
	origins := []string{"https://a.example"}
	cfg := sanitizeConfig(Config{AllowedOrigins: origins})

	assert.Equal(t, defaultPort, cfg.Port)
	assert.Equal(t, int64(defaultMaxMessageSize), cfg.MaxMessageSize)
	assert.Equal(t, defaultBurst, cfg.RateLimit.Burst)
	assert.Equal(t, time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, defaultTickInterval, cfg.TickInterval)
	assert.Equal(t, defaultSendBufferSize, cfg.SendBufferSize)
	assert.Equal(t, defaultIconDir, cfg.IconDir)
	assert.Equal(t, int64(defaultMaxIconSize), cfg.MaxIconSize)

	cfg.AllowedOrigins[0] = "changed"
	assert.Equal(t, "https://a.example", origins[0], "sanitized config must not alias the input slice")
}

// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the tapwars service.
package server

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the server configuration settings including security controls.
type Config struct {
	Port           string
	AllowedOrigins []string
	MaxMessageSize int64
	RateLimit      RateLimitConfig

	// AdminToken is the shared secret required to claim the administrator
	// identity. An empty token disables administrator login.
	AdminToken string
	// TickInterval is the auto-income period.
	TickInterval time.Duration
	// SendBufferSize bounds the outbound queue of each connection; a
	// connection whose queue is full when a message arrives is dropped.
	SendBufferSize int

	IconDir     string
	MaxIconSize int64
}

const (
	defaultPort           = ":8080"
	defaultMaxMessageSize = 1024
	defaultBurst          = 20
	defaultTickInterval   = time.Second
	defaultSendBufferSize = 256
	defaultIconDir        = "data/icons"
	defaultMaxIconSize    = 2 << 20
)

func defaultConfig() Config {
	return Config{
		Port: defaultPort,
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		MaxMessageSize: defaultMaxMessageSize,
		RateLimit: RateLimitConfig{
			Burst:          defaultBurst,
			RefillInterval: time.Second,
		},
		TickInterval:   defaultTickInterval,
		SendBufferSize: defaultSendBufferSize,
		IconDir:        defaultIconDir,
		MaxIconSize:    defaultMaxIconSize,
	}
}

// sanitizeConfig replaces unusable values with defaults and returns a copy
// that shares no slices with the input.
func sanitizeConfig(cfg Config) Config {
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}

	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}

	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = defaultBurst
	}

	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = time.Second
	}

	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}

	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = defaultSendBufferSize
	}

	if cfg.IconDir == "" {
		cfg.IconDir = defaultIconDir
	}

	if cfg.MaxIconSize <= 0 {
		cfg.MaxIconSize = defaultMaxIconSize
	}

	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Falls back to default values if environment variables are not set.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}

	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.MaxMessageSize = parseInt64Value(maxSize, cfg.MaxMessageSize)
	}

	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		cfg.RateLimit.Burst = parseIntValue(burst, cfg.RateLimit.Burst)
	}

	if interval := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		cfg.RateLimit.RefillInterval = parseSeconds(interval, cfg.RateLimit.RefillInterval)
	}

	cfg.AdminToken = os.Getenv("ADMIN_TOKEN")

	if interval := os.Getenv("TICK_INTERVAL"); interval != "" {
		cfg.TickInterval = parseSeconds(interval, cfg.TickInterval)
	}

	if size := os.Getenv("SEND_BUFFER_SIZE"); size != "" {
		cfg.SendBufferSize = parseIntValue(size, cfg.SendBufferSize)
	}

	if dir := os.Getenv("ICON_DIR"); dir != "" {
		cfg.IconDir = dir
	}

	if size := os.Getenv("MAX_ICON_SIZE"); size != "" {
		cfg.MaxIconSize = parseInt64Value(size, cfg.MaxIconSize)
	}

	return &cfg
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseInt64Value(value string, defaultValue int64) int64 {
	if size, err := strconv.ParseInt(value, 10, 64); err == nil && size > 0 {
		return size
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseSeconds(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

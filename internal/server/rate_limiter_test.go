package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllowsBurstThenBlocks(t *testing.T) {
	limiter := newRateLimiter(3, time.Hour)

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow(), "message %d within burst", i)
	}
	assert.False(t, limiter.Allow())
}

func TestRateLimiterRefills(t *testing.T) {
	limiter := newRateLimiter(2, 100*time.Millisecond)
	start := time.Now()

	assert.True(t, limiter.AllowN(start, 2))
	assert.False(t, limiter.AllowN(start, 1))
	assert.True(t, limiter.AllowN(start.Add(150*time.Millisecond), 2))
}

func TestRateLimiterDefaultsInvalidInput(t *testing.T) {
	limiter := newRateLimiter(0, 0)

	assert.Equal(t, 1, limiter.Burst())
	assert.True(t, limiter.Allow())
}

func TestClientCheckRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = RateLimitConfig{Burst: 2, RefillInterval: time.Hour}
	e := newTestEnvWithConfig(t, cfg)
	c := NewClient(nil, e.hub, "192.0.2.1:5000")

	assert.True(t, c.checkRateLimit())
	assert.True(t, c.checkRateLimit())
	assert.False(t, c.checkRateLimit())
}

package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIPRateLimiterBurstThenDeny(t *testing.T) {
	limiter := newIPRateLimiter(time.Minute, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.allow("10.0.0.1"), "request %d within burst", i)
	}
	assert.False(t, limiter.allow("10.0.0.1"))
}

func TestIPRateLimiterIsolatesClients(t *testing.T) {
	limiter := newIPRateLimiter(time.Minute, 1)

	assert.True(t, limiter.allow("10.0.0.1"))
	assert.False(t, limiter.allow("10.0.0.1"))
	assert.True(t, limiter.allow("10.0.0.2"))
}

func TestIPRateLimiterPrunesIdleBuckets(t *testing.T) {
	limiter := newIPRateLimiter(time.Minute, 1)

	limiter.allow("10.0.0.1")
	limiter.buckets["10.0.0.1"].lastSeen = time.Now().Add(-2 * idleBucketAge)

	limiter.allow("10.0.0.2")
	_, ok := limiter.buckets["10.0.0.1"]
	assert.False(t, ok)
}

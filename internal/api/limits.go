package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// idleBucketAge is how long an IP's bucket may sit untouched before the next
// allow() call prunes it.
const idleBucketAge = 10 * time.Minute

// IPRateLimiter applies a token bucket per client IP.
type IPRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucket
	rate    time.Duration
	burst   int
}

type tokenBucket struct {
	tokens   float64
	lastSeen time.Time
}

func newIPRateLimiter(rate time.Duration, burst int) *IPRateLimiter {
	return &IPRateLimiter{
		buckets: make(map[string]*tokenBucket),
		rate:    rate,
		burst:   burst,
	}
}

// allow refills the IP's bucket continuously by elapsed time and spends one
// token when available.
func (l *IPRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	bucket, ok := l.buckets[ip]
	if !ok {
		l.prune(now)
		l.buckets[ip] = &tokenBucket{tokens: float64(l.burst) - 1, lastSeen: now}
		return true
	}

	refill := float64(now.Sub(bucket.lastSeen)) / float64(l.rate)
	bucket.tokens = min(float64(l.burst), bucket.tokens+refill)
	bucket.lastSeen = now

	if bucket.tokens < 1 {
		return false
	}
	bucket.tokens--
	return true
}

// prune drops buckets that have been idle long enough to be full again.
// Called with the mutex held.
func (l *IPRateLimiter) prune(now time.Time) {
	for ip, bucket := range l.buckets {
		if now.Sub(bucket.lastSeen) > idleBucketAge {
			delete(l.buckets, ip)
		}
	}
}

func rateLimitMiddleware(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": limiter.rate.String(),
			})
			return
		}
		c.Next()
	}
}

// bodyLimitMiddleware caps request body size; oversized reads fail inside the
// handler's bind call.
func bodyLimitMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		}
		c.Next()
	}
}

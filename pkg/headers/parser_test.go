package headers

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHasNextPage(t *testing.T) {
	tests := []struct {
		name     string
		link     string
		wantNext bool
		wantOK   bool
	}{
		{
			name:   "absent header",
			link:   "",
			wantOK: false,
		},
		{
			name:     "next and last",
			link:     `<https://api.github.com/user/repos?page=2>; rel="next", <https://api.github.com/user/repos?page=9>; rel="last"`,
			wantNext: true,
			wantOK:   true,
		},
		{
			name:     "only prev on final page",
			link:     `<https://api.github.com/user/repos?page=8>; rel="prev", <https://api.github.com/user/repos?page=1>; rel="first"`,
			wantNext: false,
			wantOK:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.link != "" {
				h.Set("Link", tt.link)
			}
			gotNext, gotOK := HasNextPage(h)
			assert.Equal(t, tt.wantNext, gotNext)
			assert.Equal(t, tt.wantOK, gotOK)
		})
	}
}

func TestRateLimitRemaining(t *testing.T) {
	h := http.Header{}
	assert.Equal(t, -1, RateLimitRemaining(h))

	h.Set("X-RateLimit-Remaining", "42")
	assert.Equal(t, 42, RateLimitRemaining(h))

	h.Set("X-RateLimit-Remaining", "zero")
	assert.Equal(t, -1, RateLimitRemaining(h))
}

func TestRetryAfter(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	h := http.Header{}
	assert.Equal(t, time.Duration(0), RetryAfter(h, now))

	h.Set("X-RateLimit-Reset", "1700000090")
	assert.Equal(t, 90*time.Second, RetryAfter(h, now))

	// Retry-After takes precedence over the reset epoch
	h.Set("Retry-After", "30")
	assert.Equal(t, 30*time.Second, RetryAfter(h, now))

	// reset already in the past yields zero
	h = http.Header{}
	h.Set("X-RateLimit-Reset", "1699999990")
	assert.Equal(t, time.Duration(0), RetryAfter(h, now))
}

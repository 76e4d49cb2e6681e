// Package headers provides parsing of GitHub response headers for pagination
// and rate-limit information.
package headers

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HasNextPage reports whether the Link header advertises a rel="next" page.
// The second return value is false when no Link header is present, so callers
// can fall back to a previously stored value.
func HasNextPage(h http.Header) (hasNext bool, ok bool) {
	link := h.Get("Link")
	if link == "" {
		return false, false
	}

	for _, part := range strings.Split(link, ",") {
		sections := strings.Split(part, ";")
		if len(sections) < 2 {
			continue
		}
		for _, section := range sections[1:] {
			if strings.TrimSpace(section) == `rel="next"` {
				return true, true
			}
		}
	}
	return false, true
}

// RateLimitRemaining returns the X-RateLimit-Remaining value, or -1 when the
// header is absent or unparsable.
func RateLimitRemaining(h http.Header) int {
	raw := h.Get("X-RateLimit-Remaining")
	if raw == "" {
		return -1
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return n
}

// RetryAfter derives a client-facing cooldown from rate-limit headers.
// Retry-After wins when present; otherwise the X-RateLimit-Reset epoch is
// compared against now. Returns zero when neither header yields a duration.
func RetryAfter(h http.Header, now time.Time) time.Duration {
	if raw := h.Get("Retry-After"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}

	if raw := h.Get("X-RateLimit-Reset"); raw != "" {
		if epoch, err := strconv.ParseInt(raw, 10, 64); err == nil {
			reset := time.Unix(epoch, 0)
			if d := reset.Sub(now); d > 0 {
				return d
			}
		}
	}

	return 0
}

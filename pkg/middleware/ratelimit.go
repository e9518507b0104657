// Package middleware carries the HTTP-boundary concerns: request logging
// and per-client rate limiting.
package middleware

import (
	"sync"
	"time"
)

// RateLimiter tracks a sliding window of request timestamps per client.
// Constructed once and injected; safe for concurrent use.
type RateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	hits   map[string][]time.Time
	now    func() time.Time
}

func NewRateLimiter(window time.Duration, max int) *RateLimiter {
	return &RateLimiter{
		window: window,
		max:    max,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow records one request for the client and reports whether it fits in
// the window. Entries older than the window are pruned before the check,
// so capacity is restored one slot at a time as old requests age out.
func (l *RateLimiter) Allow(clientID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	recent := l.hits[clientID][:0]
	for _, t := range l.hits[clientID] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	if len(recent) >= l.max {
		l.hits[clientID] = recent
		return false
	}
	l.hits[clientID] = append(recent, now)
	return true
}

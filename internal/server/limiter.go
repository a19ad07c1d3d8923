package server

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrRateLimitExceeded is returned by ClientLimiter.Allow when a client is over budget.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// idleAfter is how long a client limiter may go unused before it is dropped.
const idleAfter = 10 * time.Minute

// ClientLimiter keeps one token bucket per client.
type ClientLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*clientEntry
	lastGC   time.Time
	now      func() time.Time
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewClientLimiter allows rpm requests per minute per client, with a burst
// of one tenth of a minute's worth (at least 1). rpm <= 0 disables limiting.
func NewClientLimiter(rpm int) *ClientLimiter {
	if rpm <= 0 {
		return nil
	}
	burst := rpm / 10
	if burst < 1 {
		burst = 1
	}
	return &ClientLimiter{
		limit:    rate.Limit(float64(rpm) / 60),
		burst:    burst,
		limiters: make(map[string]*clientEntry),
		now:      time.Now,
	}
}

// Allow reports whether client may make a request now.
func (l *ClientLimiter) Allow(client string) error {
	now := l.now()

	l.mu.Lock()
	e, ok := l.limiters[client]
	if !ok {
		e = &clientEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[client] = e
	}
	e.lastSeen = now
	if now.Sub(l.lastGC) > idleAfter {
		for k, v := range l.limiters {
			if now.Sub(v.lastSeen) > idleAfter {
				delete(l.limiters, k)
			}
		}
		l.lastGC = now
	}
	l.mu.Unlock()

	if !e.limiter.AllowN(now, 1) {
		return ErrRateLimitExceeded
	}
	return nil
}

// Clients returns the number of tracked clients.
func (l *ClientLimiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

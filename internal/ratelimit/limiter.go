// Package ratelimit throttles inbound intents per connection.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultStaleAfter is how long past one window an idle entry is kept.
const DefaultStaleAfter = 60 * time.Second

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter allows at most max intents per window for each key. The budget refills
// continuously, so a key that went quiet for a full window has its whole burst back.
type Limiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	idle    time.Duration
	entries map[string]*entry
	now     func() time.Time
}

// New creates a limiter allowing max intents per window
func New(window time.Duration, max int) *Limiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &Limiter{
		limit:   rate.Every(window / time.Duration(max)),
		burst:   max,
		idle:    window + DefaultStaleAfter,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Allow reports whether key may perform one more intent now
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Forget drops the state for key, e.g. when its connection closes
func (l *Limiter) Forget(key string) {
	l.mu.Lock()
	delete(l.entries, key)
	l.mu.Unlock()
}

// Purge removes entries idle for longer than the stale threshold and returns how many
// were removed.
func (l *Limiter) Purge() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.idle)
	removed := 0
	for key, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Run purges stale entries every interval until ctx is cancelled
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Purge()
		}
	}
}

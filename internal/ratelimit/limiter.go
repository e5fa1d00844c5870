// Package ratelimit protects the public verification endpoints with a
// per-client sliding window. In-memory only: limits are per process, which
// is enough for a single-instance deployment.
package ratelimit

import (
	"sync"
	"time"
)

// Result reports the outcome of one limit check.
type Result struct {
	Allowed   bool
	Remaining int
	Limit     int
	ResetAt   time.Time
}

// slidingWindow tracks request timestamps inside the window. The sliding
// algorithm avoids the double-burst a fixed window allows at its boundary.
type slidingWindow struct {
	timestamps []time.Time
	window     time.Duration
}

func (sw *slidingWindow) cleanup(now time.Time) {
	cutoff := now.Add(-sw.window)
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}

// Limiter keys sliding windows by caller identity (client IP).
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*slidingWindow
	limit   int
	window  time.Duration
	now     func() time.Time
}

func NewLimiter(limit int, window time.Duration) *Limiter {
	return &Limiter{
		buckets: make(map[string]*slidingWindow),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Allow checks and counts one request for key.
func (l *Limiter) Allow(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	sw := l.buckets[key]
	if sw == nil {
		sw = &slidingWindow{window: l.window}
		l.buckets[key] = sw
	}
	sw.cleanup(now)

	if len(sw.timestamps) >= l.limit {
		return Result{
			Allowed: false,
			Limit:   l.limit,
			ResetAt: sw.timestamps[0].Add(l.window),
		}
	}

	sw.timestamps = append(sw.timestamps, now)
	return Result{
		Allowed:   true,
		Remaining: l.limit - len(sw.timestamps),
		Limit:     l.limit,
		ResetAt:   sw.timestamps[0].Add(l.window),
	}
}

// Reset clears the window for a key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

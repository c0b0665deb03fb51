package ratelimit

import (
	"sync"
	"time"
)

type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter is a per-key token bucket. Every key shares the same capacity and
// refill rate.
type Limiter struct {
	mu       sync.Mutex
	m        map[string]*bucket
	capacity float64
	refill   float64 // tokens per second
	now      func() time.Time
	swept    time.Time
}

func New(capacity, refillPerSec float64) *Limiter {
	return &Limiter{
		m:        make(map[string]*bucket),
		capacity: capacity,
		refill:   refillPerSec,
		now:      time.Now,
	}
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)
	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: l.capacity, last: now}
		l.m[key] = b
	}
	// refill
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens += elapsed * l.refill
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// sweep drops buckets that have refilled completely since their last use.
// Such a bucket is indistinguishable from a new one. Runs at most once per
// full refill period.
func (l *Limiter) sweep(now time.Time) {
	if l.refill <= 0 {
		return
	}
	fill := time.Duration(l.capacity / l.refill * float64(time.Second))
	if now.Sub(l.swept) < fill {
		return
	}
	l.swept = now
	for k, b := range l.m {
		if b.tokens+now.Sub(b.last).Seconds()*l.refill >= l.capacity {
			delete(l.m, k)
		}
	}
}

// Len reports how many keys are tracked.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

// Reset forgets key, restoring its full capacity.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	delete(l.m, key)
	l.mu.Unlock()
}

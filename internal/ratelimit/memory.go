package ratelimit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"webcore/internal/models"
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter keeps one golang.org/x/time/rate bucket per key. Buckets idle
// for two cleanup intervals are dropped by a background goroutine.
type MemoryLimiter struct {
	every           rate.Limit
	burst           int
	perMinute       int
	cleanupInterval time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
	done    chan struct{}
	closed  bool
}

// NewMemoryLimiter creates a limiter from the rate limit configuration and
// starts its cleanup goroutine. Zero values fall back to 60 requests per
// minute, a burst of 10 and a one minute cleanup interval.
func NewMemoryLimiter(cfg models.RateLimitConfig) *MemoryLimiter {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = 10
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}
	m := &MemoryLimiter{
		every:           rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute)),
		burst:           cfg.BurstSize,
		perMinute:       cfg.RequestsPerMinute,
		cleanupInterval: cfg.CleanupInterval,
		buckets:         make(map[string]*bucket),
		done:            make(chan struct{}),
	}
	go m.cleanup()
	return m
}

func (m *MemoryLimiter) bucketFor(key string, now time.Time) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(m.every, m.burst)}
		m.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

// Allow takes one token from key's bucket if available.
func (m *MemoryLimiter) Allow(key string) (bool, Info) {
	now := time.Now()
	l := m.bucketFor(key, now)

	allowed := l.AllowN(now, 1)
	tokens := l.TokensAt(now)

	info := Info{
		Limit:     m.perMinute,
		Remaining: int(math.Max(0, math.Floor(tokens))),
		ResetAt:   now,
	}
	if missing := float64(m.burst) - tokens; missing > 0 {
		info.ResetAt = now.Add(time.Duration(missing / float64(m.every) * float64(time.Second)))
	}
	if !allowed {
		info.RetryAfter = time.Duration((1 - tokens) / float64(m.every) * float64(time.Second))
	}
	return allowed, info
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (m *MemoryLimiter) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
}

// Len returns the number of tracked keys.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}

func (m *MemoryLimiter) cleanup() {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.evictIdle(time.Now())
		}
	}
}

func (m *MemoryLimiter) evictIdle(now time.Time) {
	cutoff := now.Add(-2 * m.cleanupInterval)
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, b := range m.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(m.buckets, key)
		}
	}
}

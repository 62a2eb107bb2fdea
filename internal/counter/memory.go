package counter

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// entry is a counter record and the instant it expires.
type entry struct {
	count     int64
	expiresAt time.Time
}

// MemoryCounter is an in-process counter store. Records are evicted lazily on
// access and by a background goroutine running every cleanup interval.
// It suits single-instance deployments and tests; counts are lost on restart.
type MemoryCounter struct {
	cleanupInterval time.Duration
	now             func() time.Time

	mu      sync.Mutex
	entries map[uuid.UUID]*entry
	done    chan struct{}
	closed  bool
}

// MemoryOption configures a MemoryCounter.
type MemoryOption func(*MemoryCounter)

// WithClock replaces time.Now, letting tests move through windows.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryCounter) { m.now = now }
}

// NewMemoryCounter creates an in-memory counter store and starts its
// eviction goroutine. A non-positive interval defaults to one minute.
func NewMemoryCounter(cleanupInterval time.Duration, opts ...MemoryOption) *MemoryCounter {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	m := &MemoryCounter{
		cleanupInterval: cleanupInterval,
		now:             time.Now,
		entries:         make(map[uuid.UUID]*entry),
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	go m.cleanup()
	return m
}

// Count returns the live count for appID.
func (m *MemoryCounter) Count(ctx context.Context, appID uuid.UUID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.liveEntry(appID)
	if e == nil {
		return 0, nil
	}
	return e.count, nil
}

// IncrementWithExpiry checks and increments appID's counter under a single
// lock acquisition.
func (m *MemoryCounter) IncrementWithExpiry(ctx context.Context, appID uuid.UUID, limit int64, ttl time.Duration) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.liveEntry(appID)
	if e == nil {
		e = &entry{expiresAt: m.now().Add(ttl)}
		m.entries[appID] = e
	}
	if e.count >= limit {
		return e.count, ErrLimitReached
	}
	e.count++
	return e.count, nil
}

// Close stops the background cleanup goroutine.
func (m *MemoryCounter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

// liveEntry returns the record for appID, dropping it if expired.
// Callers must hold m.mu.
func (m *MemoryCounter) liveEntry(appID uuid.UUID) *entry {
	e, ok := m.entries[appID]
	if !ok {
		return nil
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.entries, appID)
		return nil
	}
	return e
}

func (m *MemoryCounter) cleanup() {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.evictExpired()
		}
	}
}

func (m *MemoryCounter) evictExpired() {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, id)
		}
	}
}

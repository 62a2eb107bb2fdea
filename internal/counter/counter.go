// Package counter keeps the hourly request count of every OAuth application.
// A counter record is created with value 1 on the first request of a window,
// incremented on each admitted request and expires on its own once the window
// has elapsed. Implementations perform the limit check and the increment as a
// single atomic step so concurrent requests can never be over-admitted.
package counter

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrLimitReached is returned by IncrementWithExpiry when the counter already
// holds limit requests. The counter is left untouched.
var ErrLimitReached = errors.New("request limit reached")

// Counter defines the counter store contract. Implementations must be safe
// for concurrent use.
type Counter interface {
	// Count returns the number of requests recorded for the application in
	// the current window, or 0 when no record exists.
	Count(ctx context.Context, appID uuid.UUID) (int64, error)

	// IncrementWithExpiry adds one request to the application's counter,
	// creating it with the given ttl when absent, and returns the new count.
	// When the count is already >= limit it returns ErrLimitReached instead.
	IncrementWithExpiry(ctx context.Context, appID uuid.UUID, limit int64, ttl time.Duration) (int64, error)

	// Close releases connections and background goroutines.
	Close() error
}

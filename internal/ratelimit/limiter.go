// Package ratelimit throttles the anonymous surface of webcore (pages and
// static assets) with a token bucket per client address. API requests are
// metered separately by the hourly per-application quota in package auth.
package ratelimit

import "time"

// Limiter decides whether a request identified by key may proceed.
// Implementations must be safe for concurrent use.
type Limiter interface {
	Allow(key string) (allowed bool, info Info)
	Close()
}

// Info describes the bucket state after a decision.
type Info struct {
	Limit      int           // requests per minute
	Remaining  int           // whole tokens left
	ResetAt    time.Time     // when the bucket is full again
	RetryAfter time.Duration // wait before the next token, set when denied
}

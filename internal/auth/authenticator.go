// Package auth admits API requests. Each request must identify its OAuth
// application through the X-App-Id, X-Timestamp and X-Signature headers,
// carry a fresh timestamp, and fit within the application's hourly quota.
//
// X-Signature must be present but its value is not verified against the
// application's secret. Clients are not yet required to sign requests, and
// enabling verification would reject traffic that is accepted today.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"webcore/internal/counter"
	"webcore/internal/models"
	"webcore/internal/registry"
)

// Header names read by Authenticate.
const (
	HeaderAppID     = "X-App-Id"
	HeaderTimestamp = "X-Timestamp"
	HeaderSignature = "X-Signature"
)

// Default freshness window and quota window.
const (
	DefaultMaxAge  = 5 * time.Minute
	DefaultMaxSkew = 10 * time.Second
	DefaultWindow  = time.Hour
)

// ApplicationLookup resolves a public application id. Implementations
// return registry.ErrNotFound for missing or inactive applications.
type ApplicationLookup interface {
	LookupApplication(ctx context.Context, appID uint64) (*models.Application, error)
}

// QuotaCounter is the part of the counter store the authenticator needs.
// IncrementWithExpiry must check and increment atomically, returning
// counter.ErrLimitReached without incrementing when count >= limit.
type QuotaCounter interface {
	Count(ctx context.Context, appID uuid.UUID) (int64, error)
	IncrementWithExpiry(ctx context.Context, appID uuid.UUID, limit int64, ttl time.Duration) (int64, error)
}

// Recorder observes the outcome of every authentication attempt.
type Recorder interface {
	RecordAdmission(ctx context.Context, outcome string)
}

// OutcomeAdmitted is the outcome recorded for admitted requests. Rejections
// are recorded under their Kind's string form.
const OutcomeAdmitted = "admitted"

// Authenticator runs the admission pipeline. It holds no mutable state and
// is safe for concurrent use.
type Authenticator struct {
	apps     ApplicationLookup
	counts   QuotaCounter
	recorder Recorder
	now      func() time.Time
	maxAge   time.Duration
	maxSkew  time.Duration
	window   time.Duration
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) { a.now = now }
}

// WithFreshness sets how old (exclusive) and how far in the future
// (inclusive) an X-Timestamp may be.
func WithFreshness(maxAge, maxSkew time.Duration) Option {
	return func(a *Authenticator) {
		a.maxAge = maxAge
		a.maxSkew = maxSkew
	}
}

// WithWindow sets the lifetime of a newly created quota counter.
func WithWindow(window time.Duration) Option {
	return func(a *Authenticator) { a.window = window }
}

// WithRecorder reports every outcome to r.
func WithRecorder(r Recorder) Option {
	return func(a *Authenticator) { a.recorder = r }
}

// New creates an Authenticator backed by the given registry and counter store.
func New(apps ApplicationLookup, counts QuotaCounter, opts ...Option) *Authenticator {
	a := &Authenticator{
		apps:    apps,
		counts:  counts,
		now:     time.Now,
		maxAge:  DefaultMaxAge,
		maxSkew: DefaultMaxSkew,
		window:  DefaultWindow,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authenticate admits or rejects a request based on its headers. The steps
// run in order and stop at the first failure: header parsing, timestamp
// freshness, registry lookup, quota read, quota commit. Only the last two
// touch the counter store, and the quota is only consumed on admission.
//
// The returned error is always a *Rejection.
func (a *Authenticator) Authenticate(ctx context.Context, h http.Header) (*models.AuthenticatedApplication, error) {
	principal, rej := a.authenticate(ctx, h)
	if a.recorder != nil {
		outcome := OutcomeAdmitted
		if rej != nil {
			outcome = rej.Kind.String()
		}
		a.recorder.RecordAdmission(ctx, outcome)
	}
	if rej != nil {
		return nil, rej
	}
	return principal, nil
}

func (a *Authenticator) authenticate(ctx context.Context, h http.Header) (*models.AuthenticatedApplication, *Rejection) {
	appID, timestamp, ok := parseHeaders(h)
	if !ok {
		return nil, reject(MalformedRequest, nil)
	}

	if !a.fresh(timestamp) {
		return nil, reject(InvalidTimestamp, nil)
	}

	app, err := a.apps.LookupApplication(ctx, appID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, reject(UnknownApplication, nil)
		}
		return nil, reject(CollaboratorFailure, err)
	}
	if app == nil {
		return nil, reject(UnknownApplication, nil)
	}

	count, err := a.counts.Count(ctx, app.ID)
	if err != nil {
		return nil, reject(CollaboratorFailure, err)
	}
	if count >= app.HourlyLimit {
		return nil, reject(QuotaExceeded, nil)
	}

	// The read above only rejects early; the store re-checks the limit
	// atomically so concurrent requests cannot over-admit.
	count, err = a.counts.IncrementWithExpiry(ctx, app.ID, app.HourlyLimit, a.window)
	if err != nil {
		if errors.Is(err, counter.ErrLimitReached) {
			return nil, reject(QuotaExceeded, nil)
		}
		return nil, reject(CollaboratorFailure, err)
	}

	return &models.AuthenticatedApplication{
		ID:           app.ID,
		HourlyLimit:  app.HourlyLimit,
		RequestsLeft: max(app.HourlyLimit-count, 0),
	}, nil
}

// parseHeaders extracts the application id and timestamp. All three headers
// must be present; only the first value of each is considered.
func parseHeaders(h http.Header) (appID uint64, timestamp int64, ok bool) {
	rawID := h.Values(HeaderAppID)
	rawTS := h.Values(HeaderTimestamp)
	if len(rawID) == 0 || len(rawTS) == 0 || len(h.Values(HeaderSignature)) == 0 {
		return 0, 0, false
	}

	appID, err := strconv.ParseUint(rawID[0], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	timestamp, err = strconv.ParseInt(rawTS[0], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return appID, timestamp, true
}

// fresh reports whether now-maxAge < timestamp <= now+maxSkew.
func (a *Authenticator) fresh(timestamp int64) bool {
	now := a.now()

	// Reject far-off values in whole seconds first so time.Unix never sees
	// a value it cannot represent.
	nowSec := now.Unix()
	if timestamp < nowSec-int64(a.maxAge/time.Second)-1 || timestamp > nowSec+int64(a.maxSkew/time.Second)+1 {
		return false
	}

	t := time.Unix(timestamp, 0)
	return t.After(now.Add(-a.maxAge)) && !t.After(now.Add(a.maxSkew))
}

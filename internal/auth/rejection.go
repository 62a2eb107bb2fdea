package auth

import (
	"fmt"
	"net/http"

	"webcore/internal/models"
)

// Kind classifies why a request was not admitted.
type Kind int

const (
	// MalformedRequest: a required header is missing or unparsable.
	MalformedRequest Kind = iota + 1
	// InvalidTimestamp: X-Timestamp lies outside the freshness window.
	InvalidTimestamp
	// UnknownApplication: no active application has the presented X-App-Id.
	UnknownApplication
	// QuotaExceeded: the application used up its hourly limit.
	QuotaExceeded
	// CollaboratorFailure: the registry or the counter store failed.
	CollaboratorFailure
)

// Reasons sent to clients. They never include internal detail.
const (
	ReasonMalformed        = "Valid X-App-Id, X-Timestamp or X-Signature headers not found"
	ReasonInvalidTimestamp = "Invalid timestamp"
	ReasonUnknownApp       = "Invalid application ID"
	ReasonQuotaExceeded    = "Hourly request limit reached"
	ReasonUnknownError     = "Unknown error"
)

func (k Kind) String() string {
	switch k {
	case MalformedRequest:
		return "malformed_request"
	case InvalidTimestamp:
		return "invalid_timestamp"
	case UnknownApplication:
		return "unknown_application"
	case QuotaExceeded:
		return "quota_exceeded"
	case CollaboratorFailure:
		return "collaborator_failure"
	default:
		return "unknown"
	}
}

// Rejection is the typed error returned by Authenticate. Status and Reason
// are safe to send to the client; Err holds the internal cause, if any, and
// must only be logged.
type Rejection struct {
	Kind   Kind
	Status int
	Reason string
	Err    error
}

func (r *Rejection) Error() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: %s: %v", r.Kind, r.Reason, r.Err)
	}
	return fmt.Sprintf("%s: %s", r.Kind, r.Reason)
}

func (r *Rejection) Unwrap() error {
	return r.Err
}

// ClientError reports whether the rejection is attributable to the caller
// rather than to the server.
func (r *Rejection) ClientError() bool {
	return r.Kind != CollaboratorFailure
}

// Code returns the machine-readable error code for the response envelope.
func (r *Rejection) Code() string {
	switch r.Kind {
	case MalformedRequest:
		return models.ErrorCodeBadRequest
	case InvalidTimestamp:
		return models.ErrorCodeInvalidTimestamp
	case UnknownApplication:
		return models.ErrorCodeUnauthorized
	case QuotaExceeded:
		return models.ErrorCodeRateLimitExceeded
	default:
		return models.ErrorCodeInternalError
	}
}

func reject(kind Kind, err error) *Rejection {
	r := &Rejection{Kind: kind, Err: err}
	switch kind {
	case MalformedRequest:
		r.Status, r.Reason = http.StatusBadRequest, ReasonMalformed
	case InvalidTimestamp:
		r.Status, r.Reason = http.StatusBadRequest, ReasonInvalidTimestamp
	case UnknownApplication:
		r.Status, r.Reason = http.StatusUnauthorized, ReasonUnknownApp
	case QuotaExceeded:
		r.Status, r.Reason = http.StatusTooManyRequests, ReasonQuotaExceeded
	default:
		r.Status, r.Reason = http.StatusInternalServerError, ReasonUnknownError
	}
	return r
}

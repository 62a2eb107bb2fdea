// Package models - API response types and error handling.
// This file defines the outgoing JSON envelopes shared by every handler.
//
// Response Design Principles:
// - Consistent JSON structure across all endpoints
// - Error reasons are short static strings, never internal error detail
// - RFC3339 timestamps
package models

import (
	"time"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error     string    `json:"error"`                // Error type (always "error")
	Message   string    `json:"message"`              // Human-readable reason
	Code      string    `json:"code,omitempty"`       // Machine-readable error code
	Timestamp time.Time `json:"timestamp"`            // Error occurrence time
	RequestID string    `json:"request_id,omitempty"` // Unique request identifier
}

type HealthCheckResponse struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Release    bool                       `json:"release"`
	Uptime     string                     `json:"uptime,omitempty"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

type ComponentHealth struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RefreshCredentials is the body accepted by the refresh token endpoint.
type RefreshCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Health Status Constants
const (
	StatusHealthy   = "healthy"   // All systems operational
	StatusUnhealthy = "unhealthy" // Major system issues
	StatusDegraded  = "degraded"  // Partial functionality
)

// Standard HTTP Error Codes
const (
	ErrorCodeNotFound          = "NOT_FOUND"           // 404: Resource doesn't exist
	ErrorCodeBadRequest        = "BAD_REQUEST"         // 400: Missing or unparsable headers
	ErrorCodeInvalidTimestamp  = "INVALID_TIMESTAMP"   // 400: Stale or future X-Timestamp
	ErrorCodeUnauthorized      = "UNAUTHORIZED"        // 401: Unknown application
	ErrorCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED" // 429: Quota or throttle exhausted
	ErrorCodeInternalError     = "INTERNAL_ERROR"      // 500: Server-side error
	ErrorCodeNotImplemented    = "NOT_IMPLEMENTED"     // 501: Endpoint not available yet
	ErrorCodeMethodNotAllowed  = "METHOD_NOT_ALLOWED"  // 405: Wrong HTTP method
)

func NewErrorResponse(message string, code string) *ErrorResponse {
	return &ErrorResponse{
		Error:     "error",
		Message:   message,
		Code:      code,
		Timestamp: time.Now(),
	}
}

func NewHealthCheckResponse(status string) *HealthCheckResponse {
	return &HealthCheckResponse{
		Status:     status,
		Timestamp:  time.Now(),
		Components: make(map[string]ComponentHealth),
	}
}

// AddComponent records a component's health and degrades the overall status
// when the component is not healthy.
func (h *HealthCheckResponse) AddComponent(name, status, message string) {
	h.Components[name] = ComponentHealth{
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	}
	if status != StatusHealthy && h.Status == StatusHealthy {
		h.Status = StatusDegraded
	}
}

// Package models - OAuth application records and per-request principals.
//
// An Application is a registered API caller. It is addressed two ways:
// AppID is the unsigned number clients send in the X-App-Id header and the
// registry is queried by, ID is the internal UUID under which its hourly
// request counter is kept.
package models

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Application is a registered OAuth application.
//
// APISecret is the HMAC key of the application. It is excluded from JSON and
// from String so it cannot leak into logs or responses.
type Application struct {
	ID          uuid.UUID `json:"id"`
	AppID       uint64    `json:"app_id"`
	Active      bool      `json:"active"`
	Creation    time.Time `json:"creation"`
	LastUpdate  time.Time `json:"last_update"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	URL         *string   `json:"url,omitempty"`
	APISecret   []byte    `json:"-"`
	HourlyLimit int64     `json:"hourly_limit"`
	Manager     int32     `json:"manager"`
}

// NewApplication creates an active application with a fresh UUID.
func NewApplication(appID uint64, name string, hourlyLimit int64, secret []byte) *Application {
	now := time.Now().UTC()
	return &Application{
		ID:          uuid.New(),
		AppID:       appID,
		Active:      true,
		Creation:    now,
		LastUpdate:  now,
		Name:        name,
		APISecret:   secret,
		HourlyLimit: hourlyLimit,
	}
}

// Validate checks the invariants every stored application must hold.
func (a *Application) Validate() error {
	if a.ID == uuid.Nil {
		return errors.New("application id is required")
	}
	if a.Name == "" {
		return errors.New("application name is required")
	}
	if a.HourlyLimit <= 0 {
		return fmt.Errorf("hourly limit must be positive, got %d", a.HourlyLimit)
	}
	if a.URL != nil && *a.URL != "" {
		if _, err := url.ParseRequestURI(*a.URL); err != nil {
			return fmt.Errorf("invalid application url: %w", err)
		}
	}
	return nil
}

// String identifies the application without exposing its secret.
func (a *Application) String() string {
	return fmt.Sprintf("Application{id=%s app_id=%d name=%q active=%t hourly_limit=%d}",
		a.ID, a.AppID, a.Name, a.Active, a.HourlyLimit)
}

// AuthenticatedApplication is the principal produced for a single admitted
// request. RequestsLeft is how many more requests the application may make
// before its hourly counter expires; it is never negative.
type AuthenticatedApplication struct {
	ID           uuid.UUID `json:"id"`
	HourlyLimit  int64     `json:"hourly_limit"`
	RequestsLeft int64     `json:"requests_left"`
}

// Package registry resolves the X-App-Id a client presents to the OAuth
// application it belongs to. Lookups only ever return active applications;
// an inactive row is indistinguishable from a missing one.
package registry

import (
	"context"

	"webcore/internal/models"
)

// Registry defines the interface for application metadata lookup. It is
// implemented by in-memory, JSON file, SQLite and PostgreSQL backends.
type Registry interface {
	// LookupApplication returns the active application registered under
	// appID, or ErrNotFound.
	LookupApplication(ctx context.Context, appID uint64) (*models.Application, error)

	// SaveApplication creates or replaces the application keyed by app.AppID.
	SaveApplication(ctx context.Context, app *models.Application) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close closes the registry connection and cleans up resources
	Close() error
}

// Config holds configuration for registry backends
type Config struct {
	// Type specifies the registry backend type (memory, json, sqlite, postgres)
	Type string `json:"type" yaml:"type"`

	// Path is used for file-based backends
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// ConnectionString is used for database backends
	ConnectionString string `json:"connection_string,omitempty" yaml:"connection_string,omitempty"`

	MaxOpenConns int `json:"max_open_conns,omitempty" yaml:"max_open_conns,omitempty"`
	MaxIdleConns int `json:"max_idle_conns,omitempty" yaml:"max_idle_conns,omitempty"`
}

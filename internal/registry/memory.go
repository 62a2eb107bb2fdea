package registry

import (
	"context"
	"fmt"
	"sync"

	"webcore/internal/models"
)

// MemoryRegistry implements the Registry interface using in-memory data
// structures. It is meant for development and tests; data is lost on restart.
type MemoryRegistry struct {
	mu           sync.RWMutex
	applications map[uint64]*models.Application
}

// NewMemoryRegistry creates a new memory-based registry instance
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		applications: make(map[uint64]*models.Application),
	}
}

// LookupApplication retrieves an active application by its public id
func (m *MemoryRegistry) LookupApplication(ctx context.Context, appID uint64) (*models.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	app, exists := m.applications[appID]
	if !exists || !app.Active {
		return nil, ErrNotFound
	}

	return copyApplication(app), nil
}

// SaveApplication stores or updates an application
func (m *MemoryRegistry) SaveApplication(ctx context.Context, app *models.Application) error {
	if err := app.Validate(); err != nil {
		return fmt.Errorf("invalid application: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.applications[app.AppID] = copyApplication(app)
	return nil
}

// Ping always succeeds.
func (m *MemoryRegistry) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for memory registry
func (m *MemoryRegistry) Close() error {
	return nil
}

// copyApplication deep-copies app so callers cannot mutate stored state.
func copyApplication(app *models.Application) *models.Application {
	c := *app
	if app.URL != nil {
		u := *app.URL
		c.URL = &u
	}
	if app.APISecret != nil {
		c.APISecret = append([]byte(nil), app.APISecret...)
	}
	return &c
}

package registry

import (
	"fmt"

	"webcore/internal/models"
)

// New instantiates a registry backend based on the provided configuration.
// Supported backends:
//   - memory: in-memory map (testing/development)
//   - json: JSON file, reloaded when modified
//   - sqlite: embedded SQLite database
//   - postgres: PostgreSQL database (production)
func New(config models.RegistryConfig) (Registry, error) {
	registryConfig := Config{
		Type:             config.Type,
		Path:             config.Path,
		ConnectionString: config.Database.DSN,
		MaxOpenConns:     config.Database.MaxOpenConns,
		MaxIdleConns:     config.Database.MaxIdleConns,
	}

	switch config.Type {
	case models.RegistryTypeMemory:
		return NewMemoryRegistry(), nil
	case models.RegistryTypeJSON:
		return NewJSONRegistry(registryConfig)
	case models.RegistryTypeSQLite:
		return NewSQLiteRegistry(registryConfig)
	case models.RegistryTypePostgres:
		return NewPostgresRegistry(registryConfig)
	default:
		return nil, fmt.Errorf("unsupported registry type: %s", config.Type)
	}
}

// SupportedTypes returns all registry backend types
func SupportedTypes() []string {
	return []string{models.RegistryTypeMemory, models.RegistryTypeJSON, models.RegistryTypeSQLite, models.RegistryTypePostgres}
}

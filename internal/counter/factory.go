package counter

import (
	"fmt"

	"webcore/internal/models"
)

// New creates the counter store selected by cfg.Type.
func New(cfg models.CounterConfig) (Counter, error) {
	switch cfg.Type {
	case models.CounterTypeMemory:
		return NewMemoryCounter(cfg.Memory.CleanupInterval), nil
	case models.CounterTypeRedis:
		return NewRedisCounter(cfg.Redis, cfg.KeyPrefix)
	default:
		return nil, fmt.Errorf("unsupported counter type: %s", cfg.Type)
	}
}

package registry

import (
	"context"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getPostgresDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

func TestPostgresRegistryConnectionError(t *testing.T) {
	_, err := NewPostgresRegistry(Config{ConnectionString: ""})
	assert.Error(t, err)
}

func TestPostgresRegistryInvalidDSN(t *testing.T) {
	_, err := NewPostgresRegistry(Config{ConnectionString: "postgres://invalid:5432/nonexistent?connect_timeout=1"})
	assert.Error(t, err)
}

func TestPostgresRegistry(t *testing.T) {
	dsn := getPostgresDSN(t)
	r, err := NewPostgresRegistry(Config{Type: "postgres", ConnectionString: dsn, MaxOpenConns: 4, MaxIdleConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx := context.Background()
		for _, id := range []uint64{1001, 1002, 1003, 1004, 1005, math.MaxUint64} {
			_ = r.DeleteApplication(ctx, id)
		}
		r.Close()
	})

	runRegistryContract(t, r)
}

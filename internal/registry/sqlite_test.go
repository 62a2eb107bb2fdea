package registry

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webcore/internal/models"
)

func newSQLiteTestRegistry(t *testing.T) (*SQLiteRegistry, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "registry.db")
	r, err := NewSQLiteRegistry(Config{Type: "sqlite", ConnectionString: dbPath})
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r, dbPath
}

func TestSQLiteRegistry(t *testing.T) {
	r, _ := newSQLiteTestRegistry(t)
	runRegistryContract(t, r)
}

func TestSQLiteRegistryRequiresConnectionString(t *testing.T) {
	_, err := NewSQLiteRegistry(Config{Type: "sqlite"})
	assert.Error(t, err)
}

func TestSQLiteRegistryReopen(t *testing.T) {
	r, dbPath := newSQLiteTestRegistry(t)
	ctx := context.Background()

	app := models.NewApplication(31, "Durable", 12, []byte("key"))
	require.NoError(t, r.SaveApplication(ctx, app))
	require.NoError(t, r.Close())

	reopened, err := NewSQLiteRegistry(Config{Type: "sqlite", ConnectionString: dbPath})
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.LookupApplication(ctx, 31)
	require.NoError(t, err)
	assert.Equal(t, app.ID, got.ID)
	assert.Equal(t, []byte("key"), got.APISecret)
}

func TestSQLiteRegistryCanceledContext(t *testing.T) {
	r, _ := newSQLiteTestRegistry(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.LookupApplication(ctx, 1)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

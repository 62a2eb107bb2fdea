package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webcore/internal/models"
)

func TestMemoryRegistry(t *testing.T) {
	r := NewMemoryRegistry()
	defer r.Close()

	runRegistryContract(t, r)
}

func TestMemoryRegistryReturnsCopies(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	app := models.NewApplication(7, "Copy", 5, []byte("secret"))
	require.NoError(t, r.SaveApplication(ctx, app))

	app.Name = "mutated after save"
	app.APISecret[0] = 'X'

	got, err := r.LookupApplication(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Copy", got.Name)
	assert.Equal(t, []byte("secret"), got.APISecret)

	got.HourlyLimit = 1000
	again, err := r.LookupApplication(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(5), again.HourlyLimit)
}

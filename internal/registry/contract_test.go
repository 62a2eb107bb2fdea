package registry

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webcore/internal/models"
)

// runRegistryContract exercises the behaviour every backend must share.
func runRegistryContract(t *testing.T, r Registry) {
	t.Helper()
	ctx := context.Background()

	t.Run("lookup missing application", func(t *testing.T) {
		_, err := r.LookupApplication(ctx, 424242)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("save and lookup", func(t *testing.T) {
		app := models.NewApplication(1001, "Contract App", 50, []byte("s3cr3t"))
		app.Description = "used by the contract tests"
		site := "https://example.com/app"
		app.URL = &site
		app.Manager = 7

		require.NoError(t, r.SaveApplication(ctx, app))

		got, err := r.LookupApplication(ctx, 1001)
		require.NoError(t, err)
		assert.Equal(t, app.ID, got.ID)
		assert.Equal(t, uint64(1001), got.AppID)
		assert.True(t, got.Active)
		assert.Equal(t, "Contract App", got.Name)
		assert.Equal(t, "used by the contract tests", got.Description)
		require.NotNil(t, got.URL)
		assert.Equal(t, site, *got.URL)
		assert.Equal(t, []byte("s3cr3t"), got.APISecret)
		assert.Equal(t, int64(50), got.HourlyLimit)
		assert.Equal(t, int32(7), got.Manager)
		assert.WithinDuration(t, app.Creation, got.Creation, time.Millisecond)
	})

	t.Run("save replaces existing application", func(t *testing.T) {
		app := models.NewApplication(1002, "Before", 10, nil)
		require.NoError(t, r.SaveApplication(ctx, app))

		app.Name = "After"
		app.HourlyLimit = 20
		require.NoError(t, r.SaveApplication(ctx, app))

		got, err := r.LookupApplication(ctx, 1002)
		require.NoError(t, err)
		assert.Equal(t, "After", got.Name)
		assert.Equal(t, int64(20), got.HourlyLimit)
		assert.Nil(t, got.URL)
	})

	t.Run("inactive application is not found", func(t *testing.T) {
		app := models.NewApplication(1003, "Disabled", 10, []byte("x"))
		app.Active = false
		require.NoError(t, r.SaveApplication(ctx, app))

		_, err := r.LookupApplication(ctx, 1003)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("full unsigned id range", func(t *testing.T) {
		app := models.NewApplication(math.MaxUint64, "Max ID", 1, []byte("x"))
		require.NoError(t, r.SaveApplication(ctx, app))

		got, err := r.LookupApplication(ctx, math.MaxUint64)
		require.NoError(t, err)
		assert.Equal(t, uint64(math.MaxUint64), got.AppID)
		assert.Equal(t, app.ID, got.ID)
	})

	t.Run("invalid application is rejected", func(t *testing.T) {
		app := models.NewApplication(1004, "", 10, nil)
		assert.Error(t, r.SaveApplication(ctx, app))

		app = models.NewApplication(1005, "No Limit", 0, nil)
		assert.Error(t, r.SaveApplication(ctx, app))
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, r.Ping(ctx))
	})
}

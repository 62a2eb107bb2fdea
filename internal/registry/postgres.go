package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"webcore/internal/models"
)

// PostgresRegistry implements the Registry interface on a PostgreSQL
// connection pool.
type PostgresRegistry struct {
	pool *pgxpool.Pool
}

// NewPostgresRegistry creates a new PostgreSQL registry instance and ensures
// the oauth_apps table exists.
func NewPostgresRegistry(config Config) (*PostgresRegistry, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required for PostgreSQL registry")
	}

	poolConfig, err := pgxpool.ParseConfig(config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string: %w", err)
	}
	if config.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(min(config.MaxIdleConns, int(poolConfig.MaxConns)))
	}

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &PostgresRegistry{pool: pool}, nil
}

// LookupApplication retrieves an active application by its public id.
func (ps *PostgresRegistry) LookupApplication(ctx context.Context, appID uint64) (*models.Application, error) {
	row := ps.pool.QueryRow(ctx, `
		SELECT id, app_id, active, creation, last_update, name, description,
		       url, api_secret, hourly_limit, manager
		FROM oauth_apps
		WHERE app_id = $1 AND active`, toDBAppID(appID))

	var (
		app     models.Application
		dbAppID int64
	)
	err := row.Scan(&app.ID, &dbAppID, &app.Active, &app.Creation, &app.LastUpdate,
		&app.Name, &app.Description, &app.URL, &app.APISecret, &app.HourlyLimit, &app.Manager)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	app.AppID = fromDBAppID(dbAppID)

	return &app, nil
}

// SaveApplication stores or updates an application (upsert on app_id).
func (ps *PostgresRegistry) SaveApplication(ctx context.Context, app *models.Application) error {
	if err := app.Validate(); err != nil {
		return fmt.Errorf("invalid application: %w", err)
	}

	secret := app.APISecret
	if secret == nil {
		secret = []byte{}
	}

	_, err := ps.pool.Exec(ctx, `
		INSERT INTO oauth_apps (id, app_id, active, creation, last_update, name,
		                        description, url, api_secret, hourly_limit, manager)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (app_id) DO UPDATE SET
			id = EXCLUDED.id,
			active = EXCLUDED.active,
			last_update = EXCLUDED.last_update,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			url = EXCLUDED.url,
			api_secret = EXCLUDED.api_secret,
			hourly_limit = EXCLUDED.hourly_limit,
			manager = EXCLUDED.manager`,
		app.ID, toDBAppID(app.AppID), app.Active, app.Creation, app.LastUpdate, app.Name,
		app.Description, app.URL, secret, app.HourlyLimit, app.Manager)
	if err != nil {
		return fmt.Errorf("failed to save application %s: %w", app.ID, err)
	}
	return nil
}

// DeleteApplication removes an application by its public id. Used by tests
// to keep a shared database clean.
func (ps *PostgresRegistry) DeleteApplication(ctx context.Context, appID uint64) error {
	if _, err := ps.pool.Exec(ctx, `DELETE FROM oauth_apps WHERE app_id = $1`, toDBAppID(appID)); err != nil {
		return fmt.Errorf("failed to delete application %d: %w", appID, err)
	}
	return nil
}

// Ping checks the pool can reach the server.
func (ps *PostgresRegistry) Ping(ctx context.Context) error {
	return ps.pool.Ping(ctx)
}

// Close closes the connection pool.
func (ps *PostgresRegistry) Close() error {
	ps.pool.Close()
	return nil
}

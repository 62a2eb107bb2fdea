package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"webcore/internal/models"
)

// SQLiteRegistry stores applications in an embedded SQLite database.
type SQLiteRegistry struct {
	db *sql.DB
}

// NewSQLiteRegistry opens (creating if needed) the database at the
// connection string and ensures the oauth_apps table exists.
func NewSQLiteRegistry(config Config) (*SQLiteRegistry, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required for SQLite registry")
	}

	db, err := sql.Open("sqlite", config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteRegistry{db: db}, nil
}

// LookupApplication retrieves an active application by its public id
func (s *SQLiteRegistry) LookupApplication(ctx context.Context, appID uint64) (*models.Application, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, app_id, active, creation, last_update, name, description,
		       url, api_secret, hourly_limit, manager
		FROM oauth_apps
		WHERE app_id = ? AND active = 1`, toDBAppID(appID))

	var (
		app                  models.Application
		id                   string
		dbAppID              int64
		creation, lastUpdate string
		url                  sql.NullString
	)
	err := row.Scan(&id, &dbAppID, &app.Active, &creation, &lastUpdate, &app.Name,
		&app.Description, &url, &app.APISecret, &app.HourlyLimit, &app.Manager)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}

	if app.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid application id %q: %w", id, err)
	}
	if app.Creation, err = parseTime(creation); err != nil {
		return nil, err
	}
	if app.LastUpdate, err = parseTime(lastUpdate); err != nil {
		return nil, err
	}
	app.AppID = fromDBAppID(dbAppID)
	if url.Valid {
		app.URL = &url.String
	}

	return &app, nil
}

// SaveApplication stores or updates an application (upsert on app_id)
func (s *SQLiteRegistry) SaveApplication(ctx context.Context, app *models.Application) error {
	if err := app.Validate(); err != nil {
		return fmt.Errorf("invalid application: %w", err)
	}

	var url sql.NullString
	if app.URL != nil {
		url = sql.NullString{String: *app.URL, Valid: true}
	}
	secret := app.APISecret
	if secret == nil {
		secret = []byte{}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO oauth_apps (id, app_id, active, creation, last_update, name,
		                        description, url, api_secret, hourly_limit, manager)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (app_id) DO UPDATE SET
			id = excluded.id,
			active = excluded.active,
			last_update = excluded.last_update,
			name = excluded.name,
			description = excluded.description,
			url = excluded.url,
			api_secret = excluded.api_secret,
			hourly_limit = excluded.hourly_limit,
			manager = excluded.manager`,
		app.ID.String(), toDBAppID(app.AppID), app.Active, formatTime(app.Creation),
		formatTime(app.LastUpdate), app.Name, app.Description, url, secret,
		app.HourlyLimit, app.Manager)
	if err != nil {
		return fmt.Errorf("failed to save application: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *SQLiteRegistry) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLiteRegistry) Close() error {
	return s.db.Close()
}

package registry

import (
	"fmt"
	"time"
)

// Both SQL backends share the oauth_apps layout. app_id holds the unsigned
// public id bit-cast into a signed 64-bit column.

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS oauth_apps (
	id           TEXT PRIMARY KEY,
	app_id       INTEGER NOT NULL UNIQUE,
	active       INTEGER NOT NULL DEFAULT 1,
	creation     TEXT NOT NULL,
	last_update  TEXT NOT NULL,
	name         TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	url          TEXT,
	api_secret   BLOB NOT NULL,
	hourly_limit INTEGER NOT NULL CHECK (hourly_limit > 0),
	manager      INTEGER NOT NULL DEFAULT 0
)`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS oauth_apps (
	id           UUID PRIMARY KEY,
	app_id       BIGINT NOT NULL UNIQUE,
	active       BOOLEAN NOT NULL DEFAULT TRUE,
	creation     TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_update  TIMESTAMPTZ NOT NULL DEFAULT now(),
	name         TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	url          TEXT,
	api_secret   BYTEA NOT NULL,
	hourly_limit BIGINT NOT NULL CHECK (hourly_limit > 0),
	manager      INTEGER NOT NULL DEFAULT 0
)`

// toDBAppID and fromDBAppID convert between the public id and its column.
func toDBAppID(appID uint64) int64 {
	return int64(appID)
}

func fromDBAppID(v int64) uint64 {
	return uint64(v)
}

// formatTime and parseTime store SQLite timestamps as RFC 3339 text.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webcore/internal/models"
)

// isolate runs the test in an empty directory with no webcore variables set.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, key := range []string{"DATABASE_URL", "REDIS_DATABASE"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, models.RegistryTypeMemory, cfg.Registry.Type)
	assert.Equal(t, models.CounterTypeMemory, cfg.Counter.Type)
	assert.Equal(t, time.Hour, cfg.Counter.Window)
	assert.Equal(t, 5*time.Minute, cfg.Auth.MaxAge)
	assert.Equal(t, 10*time.Second, cfg.Auth.MaxSkew)
	assert.Equal(t, "static", cfg.Static.Root)
	assert.Equal(t, "webcore", cfg.Observability.ServiceName)
}

func TestLoadYAMLFile(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "config.yaml", `
server:
  port: 8443
  host: 127.0.0.1
  read_timeout: 5s
registry:
  type: sqlite
  database:
    dsn: ./data/webcore.db
    max_open_conns: 1
counter:
  type: redis
  window: 30m
  redis:
    addr: localhost:6379
    db: 2
auth:
  max_age: 2m
  max_skew: 5s
static:
  root: /srv/static
  source_maps: true
security:
  rate_limit:
    enabled: false
logging:
  level: debug
  format: text
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8443, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout, "unset keys keep defaults")
	assert.Equal(t, models.RegistryTypeSQLite, cfg.Registry.Type)
	assert.Equal(t, "./data/webcore.db", cfg.Registry.Database.DSN)
	assert.Equal(t, 1, cfg.Registry.Database.MaxOpenConns)
	assert.Equal(t, models.CounterTypeRedis, cfg.Counter.Type)
	assert.Equal(t, 30*time.Minute, cfg.Counter.Window)
	assert.Equal(t, "localhost:6379", cfg.Counter.Redis.Addr)
	assert.Equal(t, 2, cfg.Counter.Redis.DB)
	assert.Equal(t, 2*time.Minute, cfg.Auth.MaxAge)
	assert.Equal(t, 5*time.Second, cfg.Auth.MaxSkew)
	assert.Equal(t, "/srv/static", cfg.Static.Root)
	assert.True(t, cfg.Static.SourceMaps)
	assert.False(t, cfg.Security.RateLimit.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadFileErrors(t *testing.T) {
	dir := isolate(t)

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "config file not found")

	bad := writeFile(t, dir, "bad.yaml", "server: [port")
	_, err = Load(bad)
	assert.ErrorContains(t, err, "failed to parse YAML")

	invalid := writeFile(t, dir, "invalid.yaml", "registry:\n  type: mongodb\n")
	_, err = Load(invalid)
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "config.yaml", "server:\n  port: 9000\n")

	t.Setenv("WEBCORE_PORT", "9100")
	t.Setenv("WEBCORE_REGISTRY_TYPE", "json")
	t.Setenv("WEBCORE_REGISTRY_PATH", "/var/lib/webcore/apps.json")
	t.Setenv("WEBCORE_COUNTER_WINDOW", "2h")
	t.Setenv("WEBCORE_AUTH_MAX_SKEW", "0s")
	t.Setenv("WEBCORE_STATIC_SOURCE_MAPS", "true")
	t.Setenv("WEBCORE_RATE_LIMIT_BURST_SIZE", "7")
	t.Setenv("WEBCORE_METRICS_ENABLED", "false")
	t.Setenv("WEBCORE_TRACING_SAMPLE_RATE", "0.25")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, models.RegistryTypeJSON, cfg.Registry.Type)
	assert.Equal(t, "/var/lib/webcore/apps.json", cfg.Registry.Path)
	assert.Equal(t, 2*time.Hour, cfg.Counter.Window)
	assert.Equal(t, time.Duration(0), cfg.Auth.MaxSkew)
	assert.True(t, cfg.Static.SourceMaps)
	assert.Equal(t, 7, cfg.Security.RateLimit.BurstSize)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, 0.25, cfg.Observability.Tracing.SampleRate)
}

func TestLoadMalformedEnvironment(t *testing.T) {
	tests := map[string]string{
		"WEBCORE_PORT":                "eighty",
		"WEBCORE_TLS_ENABLED":         "sometimes",
		"WEBCORE_COUNTER_WINDOW":      "an hour",
		"WEBCORE_TRACING_SAMPLE_RATE": "half",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			isolate(t)
			t.Setenv(key, value)

			_, err := Load("")
			assert.ErrorContains(t, err, key)
		})
	}
}

func TestLoadLegacyURLs(t *testing.T) {
	isolate(t)
	t.Setenv("DATABASE_URL", "postgres://app:secret@db:5432/app")
	t.Setenv("REDIS_DATABASE", "redis://cache:6379/1")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, models.RegistryTypePostgres, cfg.Registry.Type)
	assert.Equal(t, "postgres://app:secret@db:5432/app", cfg.Registry.Database.DSN)
	assert.Equal(t, models.CounterTypeRedis, cfg.Counter.Type)
	assert.Equal(t, "redis://cache:6379/1", cfg.Counter.Redis.URL)
}

func TestLoadLegacyURLsKeepExplicitBackend(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "config.yaml", "registry:\n  type: sqlite\n  database:\n    dsn: file.db\n")
	t.Setenv("DATABASE_URL", "other.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, models.RegistryTypeSQLite, cfg.Registry.Type)
	assert.Equal(t, "other.db", cfg.Registry.Database.DSN)
}

func TestLoadDotEnv(t *testing.T) {
	dir := isolate(t)
	writeFile(t, dir, ".env", "WEBCORE_PORT=8123\nWEBCORE_LOG_LEVEL=warn\n")
	t.Setenv("WEBCORE_LOG_LEVEL", "error")
	os.Unsetenv("WEBCORE_PORT")
	t.Cleanup(func() { os.Unsetenv("WEBCORE_PORT") })

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8123, cfg.Server.Port)
	assert.Equal(t, "error", cfg.Logging.Level, "process environment wins over .env")
}

func TestSaveExample(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "configs", "example.yaml")

	require.NoError(t, SaveExample(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, models.RegistryTypePostgres, cfg.Registry.Type)
	assert.Equal(t, models.CounterTypeRedis, cfg.Counter.Type)
	assert.Equal(t, "localhost:6379", cfg.Counter.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.Counter.Window)
}

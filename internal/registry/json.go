package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"webcore/internal/models"
)

// JSONRegistry implements the Registry interface on top of a JSON file.
// The file is re-read when its modification time changes, so operators can
// edit it in place without restarting the service.
type JSONRegistry struct {
	filePath     string
	mu           sync.RWMutex
	data         *jsonData
	lastModified time.Time
}

// jsonData represents the structure of data stored in the file
type jsonData struct {
	Applications []*jsonApplication `json:"applications"`
	LastUpdated  time.Time          `json:"last_updated"`
}

// jsonApplication adds the secret back to the serialized form; the model
// hides it from regular JSON output. Secrets are stored base64 encoded.
type jsonApplication struct {
	models.Application
	APISecret []byte `json:"api_secret"`
}

// NewJSONRegistry creates a JSON file registry, creating an empty file when
// none exists.
func NewJSONRegistry(config Config) (*JSONRegistry, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("path is required for JSON registry")
	}

	r := &JSONRegistry{filePath: config.Path}

	if err := r.ensureFileExists(); err != nil {
		return nil, fmt.Errorf("failed to ensure file exists: %w", err)
	}

	if err := r.loadData(); err != nil {
		return nil, fmt.Errorf("failed to load initial data: %w", err)
	}

	return r, nil
}

// ensureFileExists creates the JSON file with empty data if it doesn't exist
func (j *JSONRegistry) ensureFileExists() error {
	if _, err := os.Stat(j.filePath); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(j.filePath), 0700); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		return j.saveData(&jsonData{Applications: []*jsonApplication{}})
	}
	return nil
}

// loadData reloads the file when it changed since the last read.
func (j *JSONRegistry) loadData() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	info, err := os.Stat(j.filePath)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	if j.data != nil && !info.ModTime().After(j.lastModified) {
		return nil
	}

	fileData, err := os.ReadFile(j.filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var data jsonData
	if err := json.Unmarshal(fileData, &data); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	j.data = &data
	j.lastModified = info.ModTime()
	return nil
}

// saveData writes data to the file. Callers must hold the write lock.
func (j *JSONRegistry) saveData(data *jsonData) error {
	data.LastUpdated = time.Now()

	fileData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(j.filePath, fileData, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	if info, err := os.Stat(j.filePath); err == nil {
		j.lastModified = info.ModTime()
	}
	return nil
}

// LookupApplication retrieves an active application by its public id
func (j *JSONRegistry) LookupApplication(ctx context.Context, appID uint64) (*models.Application, error) {
	if err := j.loadData(); err != nil {
		return nil, err
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	for _, rec := range j.data.Applications {
		if rec.AppID == appID {
			if !rec.Active {
				return nil, ErrNotFound
			}
			return rec.toModel(), nil
		}
	}

	return nil, ErrNotFound
}

// SaveApplication stores or updates an application and persists the file
func (j *JSONRegistry) SaveApplication(ctx context.Context, app *models.Application) error {
	if err := app.Validate(); err != nil {
		return fmt.Errorf("invalid application: %w", err)
	}

	if err := j.loadData(); err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	rec := &jsonApplication{Application: *copyApplication(app), APISecret: app.APISecret}
	rec.Application.APISecret = nil

	for i, existing := range j.data.Applications {
		if existing.AppID == app.AppID {
			j.data.Applications[i] = rec
			return j.saveData(j.data)
		}
	}

	j.data.Applications = append(j.data.Applications, rec)
	return j.saveData(j.data)
}

// Ping checks the backing file is still readable.
func (j *JSONRegistry) Ping(ctx context.Context) error {
	if _, err := os.Stat(j.filePath); err != nil {
		return fmt.Errorf("registry file unavailable: %w", err)
	}
	return nil
}

// Close is a no-op for the JSON registry
func (j *JSONRegistry) Close() error {
	return nil
}

func (rec *jsonApplication) toModel() *models.Application {
	app := copyApplication(&rec.Application)
	app.APISecret = append([]byte(nil), rec.APISecret...)
	return app
}

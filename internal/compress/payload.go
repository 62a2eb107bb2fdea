package compress

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"mime"
	"net/http"
	"path"
)

// Template renders the named template into a 200 text/html response.
func Template(t *template.Template, name string, data any) (*Response, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return NewResponse(http.StatusOK, "text/html; charset=utf-8", buf.Bytes()), nil
}

// File reads name from fsys into a 200 response typed by its extension.
// Names that are not valid fs paths (absolute, containing "..") fail with
// fs.ErrInvalid; missing files fail with fs.ErrNotExist.
func File(fsys fs.FS, name string) (*Response, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}

	info, err := fs.Stat(fsys, name)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}

	body, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}

	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}

	resp := NewResponse(http.StatusOK, contentType, body)
	resp.Header.Set("Last-Modified", info.ModTime().UTC().Format(http.TimeFormat))
	return resp, nil
}

// JSON serializes v into an application/json response with the given status.
func JSON(status int, v any) (*Response, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode JSON response: %w", err)
	}
	return NewResponse(status, "application/json", buf.Bytes()), nil
}

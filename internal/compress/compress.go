// Package compress negotiates and applies gzip encoding to whole response
// bodies. Every payload kind (rendered template, file, JSON document) is
// first produced as a buffered Response and then funnelled through the same
// Write path, so the encoding decision never depends on how the body was made.
//
// Bodies are compressed in memory; there is no streaming mode.
package compress

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// ErrCompression wraps any failure of the gzip encoder.
var ErrCompression = errors.New("response compression failed")

// gzipLevel is the encoder level used by Apply.
var gzipLevel = gzip.DefaultCompression

// Response is a fully buffered HTTP response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// NewResponse creates a response with the given status, content type and body.
func NewResponse(status int, contentType string, body []byte) *Response {
	h := make(http.Header)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	return &Response{Status: status, Header: h, Body: body}
}

// Accepts reports whether the client negotiated gzip. An Accept header must
// be present and one Accept-Encoding token must equal "gzip" after trimming
// and lowercasing. Tokens with parameters such as "gzip;q=0.5" do not match.
// Each comma separated token is checked on its own rather than the whole
// header value, so "gzip, deflate" compresses.
func Accepts(r *http.Request) bool {
	if len(r.Header.Values("Accept")) == 0 {
		return false
	}
	for _, value := range r.Header.Values("Accept-Encoding") {
		for _, token := range strings.Split(value, ",") {
			if strings.ToLower(strings.TrimSpace(token)) == "gzip" {
				return true
			}
		}
	}
	return false
}

// Apply gzips resp.Body in place when the request negotiated gzip. On
// success the body is replaced and Content-Encoding and Content-Length are
// set. On failure resp is left untouched and an error wrapping
// ErrCompression is returned.
func Apply(r *http.Request, resp *Response) error {
	if !Accepts(r) {
		return nil
	}

	compressed, err := gzipBytes(resp.Body)
	if err != nil {
		return err
	}

	if resp.Header == nil {
		resp.Header = make(http.Header)
	}
	resp.Body = compressed
	resp.Header.Set("Content-Encoding", "gzip")
	resp.Header.Set("Content-Length", strconv.Itoa(len(compressed)))
	resp.Header.Add("Vary", "Accept-Encoding")
	return nil
}

func gzipBytes(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzipLevel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompression, err)
	}
	if _, err := zw.Write(body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompression, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompression, err)
	}
	return buf.Bytes(), nil
}

// Write compresses resp when negotiated and sends it. A compression failure
// is never hidden: the client receives a plain 500 instead of the payload.
func Write(w http.ResponseWriter, r *http.Request, resp *Response) {
	if err := Apply(r, resp); err != nil {
		slog.Error("Failed to compress response",
			"error", err,
			"path", r.URL.Path,
		)
		writeFailure(w)
		return
	}
	resp.Send(w)
}

// Send writes the response as is, without negotiating an encoding.
func (resp *Response) Send(w http.ResponseWriter) {
	dst := w.Header()
	for key, values := range resp.Header {
		dst[key] = append([]string(nil), values...)
	}
	if dst.Get("Content-Length") == "" {
		dst.Set("Content-Length", strconv.Itoa(len(resp.Body)))
	}

	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if _, err := w.Write(resp.Body); err != nil {
		slog.Debug("Failed to write response body", "error", err)
	}
}

// failureBody is the fixed envelope sent when a response could not be
// compressed. It is written directly so it cannot fail the same way.
const failureBody = `{"error":"error","message":"Unknown error","code":"INTERNAL_ERROR"}` + "\n"

func writeFailure(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(failureBody)))
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(failureBody))
}

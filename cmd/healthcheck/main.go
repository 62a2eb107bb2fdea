// Package main is a minimal HTTP health check binary for use in distroless
// containers. It exits 0 when the /health endpoint returns HTTP 200, and 1
// otherwise. The port defaults to 8000 and follows WEBCORE_PORT.
package main

import (
	"net/http"
	"os"
	"time"
)

func main() {
	port := os.Getenv("WEBCORE_PORT")
	if port == "" {
		port = "8000"
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://localhost:" + port + "/health")
	if err != nil {
		os.Exit(1)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}

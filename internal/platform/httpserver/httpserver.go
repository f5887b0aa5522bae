// Package httpserver builds the http.Server the registry and vault
// surfaces run on.
package httpserver

import (
	"net/http"
	"time"
)

// New returns a server with timeouts sized for the registry API: request
// bodies are small JSON payloads, so slow readers and writers are cut off
// early rather than holding connections open.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with timeouts suited to a small-request ledger
// API. Write timeout stays generous because claim requests wait on the
// attestation gateway.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

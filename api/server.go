package api

import (
	"net/http"
	"time"

	"github.com/angelmondragon/posrelay/pkg/config"
)

// NewServer builds the relay HTTP server. Write timeout leaves room for the
// request timeout plus response encoding.
func NewServer(addr string, cfg *config.Config, handler http.Handler) *http.Server {
	requestTimeout := cfg.Relay.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 5 * time.Second
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       requestTimeout,
		WriteTimeout:      requestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

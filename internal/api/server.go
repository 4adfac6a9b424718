package api

import (
	"net"
	"net/http"
	"strconv"

	"github.com/fastprodman/playerbank/internal/config"
)

// NewServer wraps handler in an *http.Server listening on every interface
// at cfg.Port.
func NewServer(cfg config.HTTPConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(int(cfg.Port))),
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

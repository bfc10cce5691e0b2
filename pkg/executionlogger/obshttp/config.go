// Package obshttp serves the pipeline's admin surface — a detailed
// /healthz plus pkg/http_server/chi_server's own /health, /ready, /live
// and /metrics — by wrapping chi_server.Server instead of hand-rolling a
// second chi router, since this module never serves application
// traffic and chi_server already carries the middleware stack
// (recover, request ID, body limit, security headers) and graceful
// shutdown this admin listener needs.
package obshttp

import (
	"errors"
	"fmt"
	"strings"
	"time"

	chiserver "github.com/smartdatahq/n8n-kafka-execution-logger/pkg/http_server/chi_server"
)

// Config holds the admin HTTP server's listen address and timeouts.
type Config struct {
	Address        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	ServiceName    string
	ServiceVersion string
	Environment    string
}

// DefaultConfig returns sane defaults for an internal admin listener.
func DefaultConfig() Config {
	return Config{
		Address:        ":9464",
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		ServiceName:    "n8n-kafka-execution-logger",
		ServiceVersion: "unknown",
		Environment:    "production",
	}
}

// Validate checks the fields Server.New relies on being present.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Address) == "" {
		return errors.New("obshttp: address is required")
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("obshttp: read timeout must be positive, got %v", c.ReadTimeout)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("obshttp: write timeout must be positive, got %v", c.WriteTimeout)
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("obshttp: idle timeout must be positive, got %v", c.IdleTimeout)
	}
	return nil
}

// toChiConfig projects Config into the shape chi_server.New expects,
// with health checks and metrics always on since this listener exists
// to serve exactly those.
func (c Config) toChiConfig() chiserver.Config {
	cfg := chiserver.DefaultConfig()
	cfg.Address = c.Address
	cfg.ReadTimeout = c.ReadTimeout
	cfg.WriteTimeout = c.WriteTimeout
	cfg.IdleTimeout = c.IdleTimeout
	cfg.ServiceName = c.ServiceName
	cfg.ServiceVersion = c.ServiceVersion
	cfg.Environment = c.Environment
	cfg.EnableHealthChecks = true
	cfg.EnableMetrics = true
	return cfg
}

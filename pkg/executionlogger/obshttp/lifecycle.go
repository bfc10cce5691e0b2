package obshttp

import "context"

// Start begins serving and blocks until the listener fails, ctx is
// cancelled, or the process receives SIGINT/SIGTERM (chi_server installs
// its own signal handler). Callers typically run Start in its own
// goroutine.
func (s *Server) Start(ctx context.Context) error {
	return s.inner.Start(ctx)
}

// Shutdown is idempotent and gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}

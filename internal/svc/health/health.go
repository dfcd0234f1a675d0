// This file implements the health and readiness endpoints for monitoring and integration tests.

package health

import (
	"net/http"
)

// Check reports whether a dependency is ready. A nil error means ready.
type Check func() error

// Service provides health check functionality.
type Service struct {
	checks []Check
}

// New creates a new health service. Checks gate /readyz only.
func New(checks ...Check) *Service {
	return &Service{checks: checks}
}

// RegisterRoutes adds /healthz, which returns 200 while the process serves,
// and /readyz, which returns 503 while any check fails.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
}

// handleHealth responds to health check requests.
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleReady runs every check and reports the first failure.
func (s *Service) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	for _, check := range s.checks {
		if err := check(); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

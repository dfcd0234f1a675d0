// This file provides branch feed service integration.
// The service is integrated into the main HTTP server.

package wsbranch

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"playerbridge/internal/core/bus"
)

// Service provides WebSocket branch feeds.
type Service struct {
	handler *Handler
}

// NewService creates a new branch feed service.
func NewService(registry *bus.Registry, buffer uint32, log *logrus.Entry) *Service {
	return &Service{
		handler: NewHandler(registry, buffer, log),
	}
}

// RegisterRoutes registers branch feed routes on the provided mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.handler.RegisterRoutes(mux)
}

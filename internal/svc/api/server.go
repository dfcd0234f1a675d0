// This file provides HTTP API service integration.
// The API exposes endpoint state, relay paths and branches, and drives the
// endpoint lifecycle without touching media paths.

package api

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"playerbridge/internal/core/bridge"
	"playerbridge/internal/core/bus"
	"playerbridge/internal/core/player"
)

// Version is reported by /api/server. Overridden at link time.
var Version = "0.1.0"

// Service provides HTTP API functionality.
type Service struct {
	registry  *bus.Registry
	player    Player
	backend   string
	log       *logrus.Entry
	startTime int64
}

// Player defines the endpoint operations the API needs.
// This allows the API to work with the endpoint without tight coupling.
type Player interface {
	Status() player.Status
	Paths() []bridge.PathInfo
	SetURI(uri string)
	Start() error
	Pause() error
	Stop() error
}

// NewService creates a new API service.
func NewService(registry *bus.Registry, p Player, backend string, log *logrus.Entry) *Service {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{
		registry:  registry,
		player:    p,
		backend:   backend,
		log:       log,
		startTime: getCurrentTime(),
	}
}

// RegisterRoutes registers API routes on the provided mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/server", s.handleServer)
	mux.HandleFunc("/api/player", s.handlePlayer)
	mux.HandleFunc("/api/paths", s.handlePaths)
	mux.HandleFunc("/api/branches", s.handleBranches)
}

// getCurrentTime returns current Unix timestamp.
// Extracted for testability.
func getCurrentTime() int64 {
	return time.Now().Unix()
}

// This file implements HTTP API handlers.
// All handlers are fast and allocation-light; lifecycle actions run synchronously.

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"

	"playerbridge/internal/core/bridge"
	"playerbridge/internal/core/player"
)

// ServerResponse represents the /api/server response.
type ServerResponse struct {
	Version         string   `json:"version"`
	Uptime          int64    `json:"uptime"` // seconds
	GoVersion       string   `json:"go_version"`
	Backend         string   `json:"backend"`
	Branches        int      `json:"branches"`
	EnabledServices []string `json:"enabled_services"`
}

// PlayerRequest is the body of POST /api/player.
type PlayerRequest struct {
	Action string `json:"action"` // start, pause or stop
	URI    string `json:"uri,omitempty"`
}

// PathsResponse represents the /api/paths response.
type PathsResponse struct {
	Paths []bridge.PathInfo `json:"paths"`
}

// BranchInfo represents one branch stream.
type BranchInfo struct {
	Endpoint        string   `json:"endpoint"`
	Branch          string   `json:"branch"`
	Type            string   `json:"type"`
	Caps            string   `json:"caps,omitempty"`
	Publishers      []string `json:"publishers"`
	SubscriberCount int      `json:"subscriber_count"`
	Published       uint64   `json:"published"`
	Idle            bool     `json:"idle"` // no publisher and no subscriber
}

// BranchesResponse represents the /api/branches response.
type BranchesResponse struct {
	Branches []BranchInfo `json:"branches"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleServer handles GET /api/server.
// Returns server version, uptime, backend and enabled services.
func (s *Service) handleServer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	response := ServerResponse{
		Version:   Version,
		Uptime:    getCurrentTime() - s.startTime,
		GoVersion: runtime.Version(),
		Backend:   s.backend,
		Branches:  s.registry.Count(),
		EnabledServices: []string{
			"player",
			"ws_branch",
		},
	}
	s.writeJSON(w, http.StatusOK, response)
}

// handlePlayer handles GET and POST /api/player.
// POST applies an optional URI, then runs the requested lifecycle action.
func (s *Service) handlePlayer(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, s.player.Status())
		return
	case http.MethodPost:
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req PlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var action func() error
	switch req.Action {
	case "start":
		action = s.player.Start
	case "pause":
		action = s.player.Pause
	case "stop":
		action = s.player.Stop
	default:
		s.writeError(w, http.StatusBadRequest, "action must be start, pause or stop")
		return
	}

	if req.URI != "" {
		s.player.SetURI(req.URI)
	}
	if err := action(); err != nil {
		s.log.WithError(err).WithField("action", req.Action).Warn("player action failed")
		status := http.StatusInternalServerError
		if errors.Is(err, player.ErrNoURI) || errors.Is(err, player.ErrClosed) {
			status = http.StatusConflict
		}
		s.writeError(w, status, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, s.player.Status())
}

// handlePaths handles GET /api/paths.
func (s *Service) handlePaths(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, PathsResponse{Paths: s.player.Paths()})
}

// handleBranches handles GET /api/branches.
// The branch list is built from the bus registry.
func (s *Service) handleBranches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	keys := s.registry.List()
	branches := make([]BranchInfo, 0, len(keys))
	for _, key := range keys {
		stream := s.registry.Get(key)
		if stream == nil {
			continue
		}
		branches = append(branches, BranchInfo{
			Endpoint:        key.Endpoint,
			Branch:          key.Branch,
			Type:            stream.Type().String(),
			Caps:            stream.LastCaps(),
			Publishers:      stream.Publishers(),
			SubscriberCount: stream.SubscriberCount(),
			Published:       stream.Published(),
			Idle:            stream.IsEmpty(),
		})
	}
	s.writeJSON(w, http.StatusOK, BranchesResponse{Branches: branches})
}

// writeJSON writes a JSON response.
func (s *Service) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func (s *Service) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: message})
}

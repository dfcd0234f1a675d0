// This file implements the WebSocket handler for branch feed requests.
// Handles GET /ws/{endpoint}/{branch} requests and manages subscriber lifecycle.

package wsbranch

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"playerbridge/internal/core/bus"
)

// Handler handles branch feed requests.
type Handler struct {
	registry *bus.Registry
	buffer   uint32
	log      *logrus.Entry
	upgrader websocket.Upgrader
}

// NewHandler creates a branch feed handler. buffer is the per-subscriber queue length.
func NewHandler(registry *bus.Registry, buffer uint32, log *logrus.Entry) *Handler {
	if buffer == 0 {
		buffer = 1024
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Handler{
		registry: registry,
		buffer:   buffer,
		log:      log,
		upgrader: websocket.Upgrader{
			// Feeds are read-only; any origin may watch.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and streams the branch until the client leaves.
// Endpoint: GET /ws/{endpoint}/{branch}
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	urlPath := strings.TrimPrefix(r.URL.Path, "/ws/")
	if urlPath == r.URL.Path {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	parts := strings.Split(urlPath, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// Branches exist for the endpoint's lifetime, with or without publishers.
	stream := h.registry.Get(bus.NewStreamKey(parts[0], parts[1]))
	if stream == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade failed, response already sent
		return
	}

	sub := NewSubscriber(uuid.NewString(), conn, stream)
	log := h.log.WithFields(logrus.Fields{"subscriber": sub.ID(), "branch": stream.Key().String()})
	sub.Attach(h.buffer)
	defer func() {
		sub.Detach()
		conn.Close()
	}()
	log.Debug("feed subscriber attached")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		// Clients never send data; a read error means the peer went away.
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := sub.Run(ctx); err != nil {
		log.WithError(err).Debug("feed subscriber stopped")
	}
}

// RegisterRoutes registers branch feed routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/", h.ServeHTTP)
}

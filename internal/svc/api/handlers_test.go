// This file contains unit tests for API handlers.
// Tests verify JSON responses, lifecycle actions and error handling.

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"playerbridge/internal/core/bridge"
	"playerbridge/internal/core/bus"
	"playerbridge/internal/core/player"
	"playerbridge/internal/logger"
)

// stubPlayer records lifecycle calls.
type stubPlayer struct {
	calls    []string
	uri      string
	startErr error
}

func (p *stubPlayer) Status() player.Status {
	return player.Status{Name: "player", URI: p.uri, State: "null"}
}

func (p *stubPlayer) Paths() []bridge.PathInfo {
	return []bridge.PathInfo{{StreamID: "src_0", Category: "audio", State: "bridged"}}
}

func (p *stubPlayer) SetURI(uri string) {
	p.calls = append(p.calls, "uri")
	p.uri = uri
}

func (p *stubPlayer) Start() error {
	p.calls = append(p.calls, "start")
	return p.startErr
}

func (p *stubPlayer) Pause() error {
	p.calls = append(p.calls, "pause")
	return nil
}

func (p *stubPlayer) Stop() error {
	p.calls = append(p.calls, "stop")
	return nil
}

func newTestService(p Player) (*Service, *bus.Registry) {
	registry := bus.NewRegistry()
	return NewService(registry, p, "soft", logger.Discard()), registry
}

func TestHandleServer(t *testing.T) {
	service, _ := newTestService(&stubPlayer{})

	req := httptest.NewRequest("GET", "/api/server", nil)
	w := httptest.NewRecorder()
	service.handleServer(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response ServerResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Version == "" {
		t.Error("Version should not be empty")
	}
	if response.Uptime < 0 {
		t.Error("Uptime should be non-negative")
	}
	if response.GoVersion == "" {
		t.Error("GoVersion should not be empty")
	}
	if response.Backend != "soft" {
		t.Errorf("Backend = %q, want soft", response.Backend)
	}
	if response.Branches != 0 {
		t.Errorf("Branches = %d, want 0", response.Branches)
	}
}

func TestHandlePlayerGet(t *testing.T) {
	service, _ := newTestService(&stubPlayer{uri: "synthetic://a"})

	w := httptest.NewRecorder()
	service.handlePlayer(w, httptest.NewRequest("GET", "/api/player", nil))

	var status player.Status
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if status.URI != "synthetic://a" {
		t.Errorf("URI = %q", status.URI)
	}
}

func TestHandlePlayerActions(t *testing.T) {
	p := &stubPlayer{}
	service, _ := newTestService(p)

	for _, body := range []string{
		`{"action":"start","uri":"synthetic://b"}`,
		`{"action":"pause"}`,
		`{"action":"stop"}`,
	} {
		w := httptest.NewRecorder()
		service.handlePlayer(w, httptest.NewRequest("POST", "/api/player", strings.NewReader(body)))
		if w.Code != http.StatusOK {
			t.Errorf("%s: status %d", body, w.Code)
		}
	}

	want := []string{"uri", "start", "pause", "stop"}
	if strings.Join(p.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", p.calls, want)
	}
	if p.uri != "synthetic://b" {
		t.Errorf("uri = %q", p.uri)
	}
}

func TestHandlePlayerErrors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		body   string
		err    error
		want   int
	}{
		{"bad method", "DELETE", "", nil, http.StatusMethodNotAllowed},
		{"bad body", "POST", "{", nil, http.StatusBadRequest},
		{"bad action", "POST", `{"action":"rewind"}`, nil, http.StatusBadRequest},
		{"no uri", "POST", `{"action":"start"}`, player.ErrNoURI, http.StatusConflict},
		{"backend failure", "POST", `{"action":"start"}`, errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _ := newTestService(&stubPlayer{startErr: tt.err})
			w := httptest.NewRecorder()
			service.handlePlayer(w, httptest.NewRequest(tt.method, "/api/player", strings.NewReader(tt.body)))
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			var resp ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil || resp.Error == "" {
				t.Errorf("expected an error body, got %v", err)
			}
		})
	}
}

func TestHandlePaths(t *testing.T) {
	service, _ := newTestService(&stubPlayer{})

	w := httptest.NewRecorder()
	service.handlePaths(w, httptest.NewRequest("GET", "/api/paths", nil))

	var response PathsResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(response.Paths) != 1 || response.Paths[0].StreamID != "src_0" {
		t.Errorf("paths = %+v", response.Paths)
	}
}

func TestHandleBranches(t *testing.T) {
	service, registry := newTestService(&stubPlayer{})

	w := httptest.NewRecorder()
	service.handleBranches(w, httptest.NewRequest("GET", "/api/branches", nil))
	var response BranchesResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(response.Branches) != 0 {
		t.Errorf("Expected 0 branches, got %d", len(response.Branches))
	}

	stream, _ := registry.GetOrCreate(bus.NewStreamKey("player", "video"), bus.MessageTypeVideo)
	stream.AttachPublisher("player_video_src_1")
	stream.AttachSubscriber(8, bus.BackpressureDropOldest)
	stream.Publish(&bus.MediaMessage{Caps: "video/x-raw"})

	w = httptest.NewRecorder()
	service.handleBranches(w, httptest.NewRequest("GET", "/api/branches", nil))
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(response.Branches) != 1 {
		t.Fatalf("Expected 1 branch, got %d", len(response.Branches))
	}
	b := response.Branches[0]
	if b.Branch != "video" || b.Type != "video" || b.SubscriberCount != 1 || b.Published != 1 || b.Caps != "video/x-raw" {
		t.Errorf("branch = %+v", b)
	}
	if len(b.Publishers) != 1 {
		t.Errorf("publishers = %v", b.Publishers)
	}
	if b.Idle {
		t.Error("a branch with a publisher is not idle")
	}

	registry.GetOrCreate(bus.NewStreamKey("player", "audio"), bus.MessageTypeAudio)
	w = httptest.NewRecorder()
	service.handleBranches(w, httptest.NewRequest("GET", "/api/branches", nil))
	response = BranchesResponse{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(response.Branches) != 2 || response.Branches[0].Branch != "audio" || !response.Branches[0].Idle {
		t.Errorf("audio branch should be listed first and idle, got %+v", response.Branches)
	}
}

func TestHandlersRejectWrongMethod(t *testing.T) {
	service, _ := newTestService(&stubPlayer{})
	mux := http.NewServeMux()
	service.RegisterRoutes(mux)

	for _, path := range []string{"/api/server", "/api/paths", "/api/branches"} {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest("POST", path, nil))
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("POST %s = %d, want 405", path, w.Code)
		}
	}
}

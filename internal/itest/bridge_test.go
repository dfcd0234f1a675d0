// This file contains in-process integration tests that run the synthetic
// backend end to end and read relayed buffers from the branch feeds.

package itest

import (
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"

	"playerbridge/internal/config"
	"playerbridge/internal/core/bus"
	"playerbridge/internal/server"
	"playerbridge/internal/svc/api"
	"playerbridge/internal/svc/wsbranch"
)

func startInProcess(t *testing.T, yaml string) (*server.Server, *httptest.Server) {
	t.Helper()
	cfg, err := config.Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	log, _ := test.NewNullLogger()
	srv, err := server.New(cfg, log)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.ShutdownWithTimeout()
	})
	return srv, ts
}

func dialBranch(t *testing.T, ts *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+path, nil)
	if err != nil {
		t.Fatalf("Dial %s: %v", path, err)
	}
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func postPlayer(t *testing.T, ts *httptest.Server, body string) int {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/player", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/player: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestBridgeRelaysToBranchFeeds(t *testing.T) {
	_, ts := startInProcess(t, "player:\n  name: demo\n")

	video := dialBranch(t, ts, "/ws/demo/video")
	audio := dialBranch(t, ts, "/ws/demo/audio")

	if code := postPlayer(t, ts, `{"action":"start","uri":"synthetic://demo?streams=audio,video,text&fps=100"}`); code != http.StatusOK {
		t.Fatalf("start = %d", code)
	}

	for name, conn := range map[string]*websocket.Conn{"video": video, "audio": audio} {
		conn.SetReadDeadline(time.Now().Add(3 * time.Second))

		kind, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("%s: read caps frame: %v", name, err)
		}
		if kind != websocket.TextMessage {
			t.Fatalf("%s: first frame type = %d, want text", name, kind)
		}
		var capsFrame wsbranch.CapsFrame
		if err := json.Unmarshal(data, &capsFrame); err != nil {
			t.Fatalf("%s: decode caps frame: %v", name, err)
		}
		if capsFrame.Branch != name || !strings.HasPrefix(capsFrame.Caps, name+"/x-raw") {
			t.Errorf("%s: caps frame = %+v", name, capsFrame)
		}

		var lastSeq uint64
		for i := 0; i < 3; i++ {
			kind, data, err = conn.ReadMessage()
			if err != nil {
				t.Fatalf("%s: read buffer frame %d: %v", name, i, err)
			}
			if kind != websocket.BinaryMessage || len(data) <= wsbranch.FrameHeaderSize {
				t.Fatalf("%s: frame %d malformed (type %d, %d bytes)", name, i, kind, len(data))
			}
			seq := binary.BigEndian.Uint64(data[0:8])
			if i > 0 && seq <= lastSeq {
				t.Errorf("%s: seq %d after %d", name, seq, lastSeq)
			}
			lastSeq = seq
			if payload := string(data[wsbranch.FrameHeaderSize:]); !strings.Contains(payload, ":"+name+":") {
				t.Errorf("%s: payload %q from wrong stream", name, payload)
			}
		}
	}

	resp, err := http.Get(ts.URL + "/api/paths")
	if err != nil {
		t.Fatalf("GET /api/paths: %v", err)
	}
	defer resp.Body.Close()
	var paths api.PathsResponse
	if err := json.NewDecoder(resp.Body).Decode(&paths); err != nil {
		t.Fatalf("decode paths: %v", err)
	}
	if len(paths.Paths) != 2 {
		t.Errorf("paths = %d, want 2 (text is ignored)", len(paths.Paths))
	}
}

func TestStopKeepsFeedsOpen(t *testing.T) {
	srv, ts := startInProcess(t, `
player:
  name: demo
  uri: "synthetic://demo?streams=video&fps=100"
  autostart: true
`)
	srv.Autostart()

	conn := dialBranch(t, ts, "/ws/demo/video")
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("read: %v", err)
	}

	if code := postPlayer(t, ts, `{"action":"stop"}`); code != http.StatusOK {
		t.Fatalf("stop = %d", code)
	}
	if srv.Endpoint().Manager().Len() != 1 {
		t.Errorf("stop should keep the bridged path, have %d", srv.Endpoint().Manager().Len())
	}

	if code := postPlayer(t, ts, `{"action":"start"}`); code != http.StatusOK {
		t.Fatalf("restart = %d", code)
	}
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("feed should resume after restart: %v", err)
	}
}

func TestFiniteSourceTearsDownPaths(t *testing.T) {
	srv, ts := startInProcess(t, "player:\n  name: demo\n")

	if code := postPlayer(t, ts, `{"action":"start","uri":"synthetic://demo?streams=audio&frames=5&fps=200"}`); code != http.StatusOK {
		t.Fatalf("start = %d", code)
	}

	deadline := time.Now().Add(3 * time.Second)
	for srv.Endpoint().Manager().Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := srv.Endpoint().Manager().Len(); n != 0 {
		t.Errorf("paths after end of stream = %d, want 0", n)
	}
	stream := srv.Registry().Get(bus.NewStreamKey("demo", "audio"))
	if stream == nil {
		t.Fatal("audio branch should outlive its paths")
	}
	if stream.PublisherCount() != 0 {
		t.Errorf("publisher should be detached after teardown, have %v", stream.Publishers())
	}
}

// This file contains unit tests for the software backend: URI parsing, pad
// discovery and removal, producers, sink queues and bus-backed branches.

package softgraph

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"playerbridge/internal/core/bus"
	"playerbridge/internal/core/caps"
	"playerbridge/internal/core/graph"
)

// events records dispatched events; producers dispatch from pool goroutines.
type events struct {
	mu   sync.Mutex
	list []graph.Event
	on   func(graph.Event)
}

func (e *events) Dispatch(ev graph.Event) {
	e.mu.Lock()
	e.list = append(e.list, ev)
	on := e.on
	e.mu.Unlock()
	if on != nil {
		on(ev)
	}
}

func (e *events) of(t graph.EventType) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var ids []string
	for _, ev := range e.list {
		if ev.Type != t {
			continue
		}
		if ev.Pad != nil {
			ids = append(ids, ev.Pad.ID())
		} else {
			ids = append(ids, ev.StreamID)
		}
	}
	return ids
}

func newTestPipeline(t *testing.T) *SubPipeline {
	t.Helper()
	log, _ := test.NewNullLogger()
	p, err := New(Options{Name: "test", Workers: 4, SinkQueue: 4, Log: logrus.NewEntry(log)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestParseURI(t *testing.T) {
	src, err := ParseURI("synthetic://demo?streams=video,audio,text&frames=10&fps=25&size=128")
	if err != nil {
		t.Fatalf("ParseURI: %v", err)
	}
	if src.Name != "demo" || src.Frames != 10 || src.FPS != 25 || src.Size != 128 {
		t.Errorf("unexpected source %+v", src)
	}
	if len(src.Streams) != 3 || src.Streams[0] != KindVideo || src.Streams[2] != KindText {
		t.Errorf("streams = %v", src.Streams)
	}

	src, err = ParseURI("synthetic://plain")
	if err != nil {
		t.Fatalf("ParseURI defaults: %v", err)
	}
	if len(src.Streams) != 2 || src.Frames != 0 || src.Size != 64 {
		t.Errorf("defaults not applied: %+v", src)
	}

	for _, bad := range []string{
		"file:///tmp/a.mp4",
		"synthetic://x?streams=audio,subtitle",
		"synthetic://x?frames=-1",
		"synthetic://x?fps=fast",
	} {
		if _, err := ParseURI(bad); !errors.Is(err, ErrUnsupportedURI) {
			t.Errorf("ParseURI(%q) = %v, want ErrUnsupportedURI", bad, err)
		}
	}
}

func TestStreamKindCaps(t *testing.T) {
	if got := KindAudio.Caps().MediaType(); got != "audio/x-raw" {
		t.Errorf("audio media type = %q", got)
	}
	if got := KindVideo.Caps().MediaType(); got != "video/x-raw" {
		t.Errorf("video media type = %q", got)
	}
	if got := KindText.Caps().MediaType(); got != "text/x-raw" {
		t.Errorf("text media type = %q", got)
	}
}

func TestPlayingDiscoversPadsInOrder(t *testing.T) {
	p := newTestPipeline(t)
	ev := &events{}
	p.Subscribe(ev)

	if err := p.SetURI("synthetic://demo?streams=video,audio,meta"); err != nil {
		t.Fatalf("SetURI: %v", err)
	}
	if err := p.SetState(graph.StatePlaying); err != nil {
		t.Fatalf("SetState: %v", err)
	}

	got := ev.of(graph.StreamDiscovered)
	want := []string{"src_0", "src_1", "src_2"}
	if len(got) != len(want) {
		t.Fatalf("discovered %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("discovered[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if p.State() != graph.StatePlaying {
		t.Errorf("state = %s, want playing", p.State())
	}
	if pads := p.Pads(); pads[2].Kind() != KindMeta || pads[2].Direction() != graph.PadSource {
		t.Errorf("third pad = %s/%v", pads[2].Kind(), pads[2].Direction())
	}
}

func TestRestartSameURIKeepsStreams(t *testing.T) {
	p := newTestPipeline(t)
	ev := &events{}
	p.Subscribe(ev)

	p.SetURI("synthetic://demo?streams=audio,video")
	p.SetState(graph.StatePlaying)
	p.SetState(graph.StateNull)
	p.SetURI("synthetic://demo?streams=audio,video")
	p.SetState(graph.StatePlaying)

	if n := len(ev.of(graph.StreamDiscovered)); n != 2 {
		t.Errorf("discovered %d streams, want 2", n)
	}
	if n := len(ev.of(graph.StreamRemoved)); n != 0 {
		t.Errorf("removed %d streams, want 0", n)
	}
}

func TestNewURIRemovesOldStreamsFirst(t *testing.T) {
	p := newTestPipeline(t)
	ev := &events{}
	p.Subscribe(ev)

	p.SetURI("synthetic://one?streams=audio")
	p.SetState(graph.StatePlaying)
	p.SetState(graph.StateNull)
	p.SetURI("synthetic://two?streams=video,audio")
	p.SetState(graph.StatePlaying)

	ev.mu.Lock()
	defer ev.mu.Unlock()
	var order []string
	for _, e := range ev.list {
		if e.Type != graph.DataReady {
			order = append(order, e.Type.String()+" "+e.Pad.ID())
		}
	}
	want := []string{
		"stream-discovered src_0",
		"stream-removed src_0",
		"stream-discovered src_0",
		"stream-discovered src_1",
	}
	if len(order) != len(want) {
		t.Fatalf("events = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestSetStateRejectsUnopenableURI(t *testing.T) {
	p := newTestPipeline(t)
	if err := p.SetURI("rtsp://camera/1"); !errors.Is(err, ErrUnsupportedURI) {
		t.Errorf("SetURI = %v, want ErrUnsupportedURI", err)
	}
	if err := p.SetState(graph.StatePlaying); !errors.Is(err, ErrUnsupportedURI) {
		t.Errorf("SetState without URI = %v, want ErrUnsupportedURI", err)
	}
}

func TestFiniteStreamDeliversThenRemovesPad(t *testing.T) {
	p := newTestPipeline(t)

	var mu sync.Mutex
	var pulled []string
	ev := &events{}
	ev.on = func(e graph.Event) {
		switch e.Type {
		case graph.StreamDiscovered:
			sink, err := p.NewSinkAdapter(graph.SinkConfig{Name: "sink_" + e.Pad.ID(), StreamID: e.Pad.ID(), EmitSignals: true})
			if err != nil {
				t.Errorf("NewSinkAdapter: %v", err)
				return
			}
			if err := e.Pad.Link(sink); err != nil {
				t.Errorf("Link: %v", err)
			}
		case graph.DataReady:
			pad := p.Pads()
			for _, pd := range pad {
				if pd.ID() != e.StreamID {
					continue
				}
				if sink, ok := pd.Peer(); ok {
					if smp, ok := sink.Pull(); ok {
						mu.Lock()
						pulled = append(pulled, string(smp.Buffer.Data[:len(e.StreamID)]))
						mu.Unlock()
					}
				}
			}
		}
	}
	p.Subscribe(ev)

	p.SetURI("synthetic://short?streams=audio&frames=3&size=16")
	if err := p.SetState(graph.StatePlaying); err != nil {
		t.Fatalf("SetState: %v", err)
	}

	waitFor(t, "stream removal", func() bool { return len(ev.of(graph.StreamRemoved)) == 1 })

	if n := len(ev.of(graph.DataReady)); n != 3 {
		t.Errorf("data-ready %d times, want 3", n)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(pulled) != 3 || pulled[0] != "src_0" {
		t.Errorf("pulled = %v", pulled)
	}
	if len(p.Pads()) != 0 {
		t.Error("exhausted pad should be gone")
	}
}

func TestPauseStopsProducers(t *testing.T) {
	p := newTestPipeline(t)
	ev := &events{}
	ev.on = func(e graph.Event) {
		if e.Type == graph.StreamDiscovered {
			sink, _ := p.NewSinkAdapter(graph.SinkConfig{Name: "s" + e.Pad.ID(), StreamID: e.Pad.ID(), EmitSignals: true})
			e.Pad.Link(sink)
		}
	}
	p.Subscribe(ev)

	p.SetURI("synthetic://live?streams=video&fps=200")
	p.SetState(graph.StatePlaying)
	waitFor(t, "first buffer", func() bool { return len(ev.of(graph.DataReady)) > 0 })

	if err := p.SetState(graph.StatePaused); err != nil {
		t.Fatalf("pause: %v", err)
	}
	n := len(ev.of(graph.DataReady))
	time.Sleep(50 * time.Millisecond)
	if got := len(ev.of(graph.DataReady)); got != n {
		t.Errorf("data-ready kept flowing while paused: %d -> %d", n, got)
	}
	if pads := p.Pads(); len(pads) != 1 {
		t.Errorf("pause should keep pads, got %d", len(pads))
	}
}

func TestSinkAdapterQueue(t *testing.T) {
	var ready int
	sink := newSinkAdapter(graph.SinkConfig{Name: "s", StreamID: "src_0", EmitSignals: true}, 2, graph.StatePaused,
		func(graph.Event) { ready++ })

	smp := func(b string) *graph.Sample {
		return &graph.Sample{Buffer: &graph.Buffer{Data: []byte(b)}}
	}

	if sink.offer(smp("a")) {
		t.Error("paused sink should refuse samples")
	}
	sink.followParent(graph.StatePlaying)
	sink.offer(smp("a"))
	sink.offer(smp("b"))
	sink.offer(smp("c"))

	if ready != 3 {
		t.Errorf("data-ready emitted %d times, want 3", ready)
	}
	if sink.Dropped() != 2 {
		t.Errorf("Dropped = %d, want 2", sink.Dropped())
	}
	if got, _ := sink.Pull(); string(got.Buffer.Data) != "b" {
		t.Errorf("oldest sample should have been dropped, got %q", got.Buffer.Data)
	}

	if !sink.SetLocked(true) {
		t.Fatal("SetLocked should succeed")
	}
	sink.followParent(graph.StateNull)
	if sink.State() != graph.StatePlaying {
		t.Error("locked sink should ignore parent state")
	}

	sink.Release()
	if sink.SetLocked(false) {
		t.Error("released sink cannot be unlocked")
	}
	if err := sink.SetState(graph.StateNull); !errors.Is(err, graph.ErrReleased) {
		t.Errorf("SetState after release = %v", err)
	}
}

func TestPadLinking(t *testing.T) {
	pad := newPad("src_0", KindAudio)
	a := newSinkAdapter(graph.SinkConfig{Name: "a"}, 1, graph.StateNull, nil)
	b := newSinkAdapter(graph.SinkConfig{Name: "b"}, 1, graph.StateNull, nil)

	if _, ok := pad.Peer(); ok {
		t.Error("new pad should have no peer")
	}
	if err := pad.Link(a); err != nil {
		t.Fatalf("Link: %v", err)
	}
	if err := pad.Link(b); !errors.Is(err, graph.ErrAlreadyLinked) {
		t.Errorf("second Link = %v, want ErrAlreadyLinked", err)
	}
	if err := pad.Unlink(b); !errors.Is(err, graph.ErrNotLinked) {
		t.Errorf("Unlink of a stranger = %v, want ErrNotLinked", err)
	}
	if err := pad.Unlink(a); err != nil {
		t.Errorf("Unlink: %v", err)
	}
}

func TestGraphBranchesAndSources(t *testing.T) {
	reg := bus.NewRegistry()
	g := NewGraph("player", reg, graph.CategoryAudio, graph.CategoryVideo)

	if g.Branch(graph.CategoryUnsupported) != nil {
		t.Error("unsupported category must have no branch")
	}
	video := g.Branch(graph.CategoryVideo)
	if video == nil || video.Name() != "video" {
		t.Fatalf("video branch = %v", video)
	}
	if reg.Get(bus.NewStreamKey("player", "video")) == nil {
		t.Error("branch stream should be registered")
	}

	src, err := g.NewSourceAdapter(graph.SourceConfig{Name: "player_video_src_1", Format: graph.FormatTime})
	if err != nil {
		t.Fatalf("NewSourceAdapter: %v", err)
	}
	if _, err := g.NewSourceAdapter(graph.SourceConfig{Name: "player_video_src_1"}); err == nil {
		t.Error("duplicate source-adapter name should fail")
	}
	if res := src.Push(&graph.Buffer{Data: []byte("x")}); res != graph.FlowNotLinked {
		t.Errorf("Push before link = %s, want not-linked", res)
	}

	if err := g.LinkBranch(src, video); err != nil {
		t.Fatalf("LinkBranch: %v", err)
	}
	stream := video.(*Branch).Stream()
	sub := stream.AttachSubscriber(8, bus.BackpressureDropOldest)

	src.SetCaps(caps.MustParse("video/x-raw,width=320"))
	if res := src.Push(&graph.Buffer{Data: []byte("frame")}); res != graph.FlowOK {
		t.Fatalf("Push = %s, want ok", res)
	}
	msg, ok := sub.Next()
	if !ok {
		t.Fatal("subscriber should receive the pushed buffer")
	}
	if msg.Type != bus.MessageTypeVideo || string(msg.Payload) != "frame" || msg.Caps != "video/x-raw,width=320" {
		t.Errorf("unexpected message %+v", msg)
	}
	if msg.Source != "player_video_src_1" {
		t.Errorf("message source = %q", msg.Source)
	}

	if pubs := stream.Publishers(); len(pubs) != 1 || pubs[0] != "player_video_src_1" {
		t.Errorf("publishers = %v", pubs)
	}

	if err := g.ReleaseSourceAdapter(src); err != nil {
		t.Fatalf("ReleaseSourceAdapter: %v", err)
	}
	if stream.PublisherCount() != 0 {
		t.Error("release should detach the publisher")
	}
	if res := src.Push(&graph.Buffer{}); res != graph.FlowFlushing {
		t.Errorf("Push after release = %s, want flushing", res)
	}
	if g.SourceCount() != 0 {
		t.Error("graph should hold no source-adapters")
	}
}

func TestGraphWithoutVideoBranch(t *testing.T) {
	g := NewGraph("player", bus.NewRegistry(), graph.CategoryAudio)
	if g.Branch(graph.CategoryVideo) != nil {
		t.Error("video branch should be missing")
	}
	if g.Branch(graph.CategoryAudio) == nil {
		t.Error("audio branch should be present")
	}
}

func TestClosedPipelineRejectsUse(t *testing.T) {
	p := newTestPipeline(t)
	p.Close()
	if err := p.SetState(graph.StatePlaying); !errors.Is(err, ErrClosed) {
		t.Errorf("SetState after Close = %v", err)
	}
	if _, err := p.NewSinkAdapter(graph.SinkConfig{Name: "s"}); !errors.Is(err, ErrClosed) {
		t.Errorf("NewSinkAdapter after Close = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

package bridge

import (
	"errors"
	"fmt"
	"sync"

	"playerbridge/internal/core/caps"
	"playerbridge/internal/core/graph"
)

// recorder keeps an ordered log of collaborator calls.
type recorder struct {
	mu  sync.Mutex
	ops []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, fmt.Sprintf(format, args...))
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.ops))
	copy(out, r.ops)
	return out
}

type fakePad struct {
	id   string
	dir  graph.PadDirection
	caps caps.Caps
	rec  *recorder

	mu      sync.Mutex
	peer    graph.SinkAdapter
	linkErr error
}

func newPad(rec *recorder, id, capsStr string) *fakePad {
	return &fakePad{id: id, dir: graph.PadSource, caps: caps.MustParse(capsStr), rec: rec}
}

func (p *fakePad) ID() string                    { return p.id }
func (p *fakePad) Direction() graph.PadDirection { return p.dir }
func (p *fakePad) QueryCaps() caps.Caps          { return p.caps }

func (p *fakePad) Peer() (graph.SinkAdapter, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.peer, p.peer != nil
}

func (p *fakePad) Link(sink graph.SinkAdapter) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.linkErr != nil {
		return p.linkErr
	}
	p.peer = sink
	p.rec.add("link %s->%s", p.id, sink.Name())
	return nil
}

func (p *fakePad) Unlink(sink graph.SinkAdapter) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.peer != sink {
		return graph.ErrNotLinked
	}
	p.peer = nil
	p.rec.add("unlink %s", p.id)
	return nil
}

type fakeSink struct {
	name string
	rec  *recorder

	mu        sync.Mutex
	queue     []*graph.Sample
	state     graph.RunState
	locked    bool
	released  bool
	lockFails bool
	stateErr  error
}

func (s *fakeSink) Name() string { return s.name }

func (s *fakeSink) enqueue(samples ...*graph.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, samples...)
}

func (s *fakeSink) Pull() (*graph.Sample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil, false
	}
	smp := s.queue[0]
	s.queue = s.queue[1:]
	return smp, true
}

func (s *fakeSink) SetLocked(locked bool) bool {
	s.rec.add("lock %s", s.name)
	if s.lockFails {
		return false
	}
	s.mu.Lock()
	s.locked = locked
	s.mu.Unlock()
	return true
}

func (s *fakeSink) SetState(state graph.RunState) error {
	s.rec.add("state %s %s", s.name, state)
	if s.stateErr != nil {
		return s.stateErr
	}
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	return nil
}

func (s *fakeSink) State() graph.RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *fakeSink) Release() {
	s.rec.add("release %s", s.name)
	s.mu.Lock()
	s.released = true
	s.mu.Unlock()
}

type fakeSrc struct {
	name string

	mu      sync.Mutex
	caps    caps.Caps
	setCaps int
	pushed  [][]byte
	results []graph.FlowReturn // consumed per push, FlowOK once exhausted
}

func (s *fakeSrc) Name() string { return s.name }

func (s *fakeSrc) Caps() caps.Caps {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caps
}

func (s *fakeSrc) SetCaps(c caps.Caps) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caps = c
	s.setCaps++
}

func (s *fakeSrc) Push(buf *graph.Buffer) graph.FlowReturn {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushed = append(s.pushed, buf.Data)
	if len(s.results) > 0 {
		ret := s.results[0]
		s.results = s.results[1:]
		return ret
	}
	return graph.FlowOK
}

func (s *fakeSrc) pushes() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.pushed...)
}

type fakeBranch struct {
	name     string
	category graph.Category
}

func (b *fakeBranch) Name() string             { return b.name }
func (b *fakeBranch) Category() graph.Category { return b.category }

type fakeGraph struct {
	rec      *recorder
	branches map[graph.Category]graph.Branch

	mu   sync.Mutex
	srcs []*fakeSrc
}

func newGraph(rec *recorder, cats ...graph.Category) *fakeGraph {
	g := &fakeGraph{rec: rec, branches: make(map[graph.Category]graph.Branch)}
	for _, c := range cats {
		g.branches[c] = &fakeBranch{name: c.String() + "_branch", category: c}
	}
	return g
}

func (g *fakeGraph) Branch(c graph.Category) graph.Branch {
	return g.branches[c]
}

func (g *fakeGraph) NewSourceAdapter(cfg graph.SourceConfig) (graph.SourceAdapter, error) {
	if !cfg.IsLive || !cfg.DoTimestamp || cfg.MinLatency != 0 || cfg.Format != graph.FormatTime {
		return nil, errors.New("unexpected source config")
	}
	src := &fakeSrc{name: cfg.Name}
	g.mu.Lock()
	g.srcs = append(g.srcs, src)
	g.mu.Unlock()
	g.rec.add("new-src %s", cfg.Name)
	return src, nil
}

func (g *fakeGraph) LinkBranch(src graph.SourceAdapter, b graph.Branch) error {
	g.rec.add("link-branch %s->%s", src.Name(), b.Name())
	return nil
}

func (g *fakeGraph) ReleaseSourceAdapter(src graph.SourceAdapter) error {
	g.rec.add("release-src %s", src.Name())
	return nil
}

func (g *fakeGraph) sources() []*fakeSrc {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*fakeSrc(nil), g.srcs...)
}

type fakePipeline struct {
	rec *recorder

	mu        sync.Mutex
	sinks     []*fakeSink
	removeErr error
	lockFails bool
	stateErr  error
}

func (p *fakePipeline) Name() string                  { return "pipeline" }
func (p *fakePipeline) Subscribe(graph.Dispatcher)    {}
func (p *fakePipeline) SetURI(string) error           { return nil }
func (p *fakePipeline) URI() string                   { return "" }
func (p *fakePipeline) SetState(graph.RunState) error { return nil }
func (p *fakePipeline) State() graph.RunState         { return graph.StatePlaying }
func (p *fakePipeline) Close() error                  { return nil }

func (p *fakePipeline) NewSinkAdapter(cfg graph.SinkConfig) (graph.SinkAdapter, error) {
	if !cfg.Sync || !cfg.EmitSignals || cfg.EnableLastSample || cfg.StreamID == "" {
		return nil, errors.New("unexpected sink config")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	s := &fakeSink{name: cfg.Name, rec: p.rec, lockFails: p.lockFails, stateErr: p.stateErr, state: graph.StatePlaying}
	p.sinks = append(p.sinks, s)
	p.rec.add("new-sink %s", cfg.Name)
	return s, nil
}

func (p *fakePipeline) RemoveSinkAdapter(sink graph.SinkAdapter) error {
	p.rec.add("remove %s", sink.Name())
	return p.removeErr
}

func (p *fakePipeline) sinkFor(i int) *fakeSink {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sinks[i]
}

func (p *fakePipeline) sinkCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sinks)
}

func sample(capsStr, payload string) *graph.Sample {
	return &graph.Sample{Caps: caps.MustParse(capsStr), Buffer: &graph.Buffer{Data: []byte(payload)}}
}

//go:build gst
// +build gst

// This file initializes GStreamer and builds the backend: state and caps
// conversion, decoder pads and appsink sink-adapters.
// GStreamer code is isolated behind build tags.

package gstx

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-gst/go-gst/gst"
	"github.com/sirupsen/logrus"

	"playerbridge/internal/core/caps"
	"playerbridge/internal/core/graph"
)

var (
	initOnce    sync.Once
	initialized bool
)

// Init initializes GStreamer. Safe to call more than once.
func Init() error {
	initOnce.Do(func() {
		gst.Init(nil)
		initialized = true
	})
	return nil
}

// IsAvailable returns whether GStreamer was initialized.
func IsAvailable() bool {
	return initialized
}

var gstStates = map[graph.RunState]gst.State{
	graph.StateNull:    gst.StateNull,
	graph.StateReady:   gst.StateReady,
	graph.StatePaused:  gst.StatePaused,
	graph.StatePlaying: gst.StatePlaying,
}

func fromGstState(s gst.State) graph.RunState {
	for rs, gs := range gstStates {
		if gs == s {
			return rs
		}
	}
	return graph.StateNull
}

func toCaps(c *gst.Caps) caps.Caps {
	if c == nil {
		return caps.Empty()
	}
	parsed, err := caps.Parse(c.String())
	if err != nil {
		return caps.Empty()
	}
	return parsed
}

func toDuration(ct gst.ClockTime) time.Duration {
	if d := ct.AsDuration(); d != nil {
		return *d
	}
	return 0
}

// Backend owns the enclosing pipeline (branches and source-adapters) and the Sub-pipeline.
type Backend struct {
	graph    *Graph
	pipeline *SubPipeline
}

// NewBackend builds both pipelines and starts the enclosing one.
func NewBackend(opts Options) (*Backend, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	log := opts.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	g, err := newGraph(opts.Name, opts.Registry, opts.Categories, log)
	if err != nil {
		return nil, err
	}
	p, err := newSubPipeline(opts.Name, log)
	if err != nil {
		g.close()
		return nil, err
	}
	return &Backend{graph: g, pipeline: p}, nil
}

// Graph returns the enclosing element.
func (b *Backend) Graph() graph.Graph { return b.graph }

// Pipeline returns the Sub-pipeline.
func (b *Backend) Pipeline() graph.SubPipeline { return b.pipeline }

// Pad wraps a uridecodebin source pad.
type Pad struct {
	pad   *gst.Pad
	owner *SubPipeline
}

// ID returns the pad name.
func (p *Pad) ID() string { return p.pad.GetName() }

// Direction returns the pad direction.
func (p *Pad) Direction() graph.PadDirection {
	if p.pad.GetDirection() == gst.PadDirectionSource {
		return graph.PadSource
	}
	return graph.PadSink
}

// QueryCaps returns the caps the pad can produce.
func (p *Pad) QueryCaps() caps.Caps {
	return toCaps(p.pad.QueryCaps(nil))
}

// Peer returns the sink-adapter of the owning Sub-pipeline this pad is linked to.
// Links to elements that are not sink-adapters report no peer.
func (p *Pad) Peer() (graph.SinkAdapter, bool) {
	peer := p.pad.GetPeer()
	if peer == nil {
		return nil, false
	}
	parent := peer.GetParentElement()
	if parent == nil {
		return nil, false
	}
	return p.owner.sinkAdapter(parent.GetName())
}

// Link links the pad to the sink pad of an appsink adapter.
func (p *Pad) Link(sink graph.SinkAdapter) error {
	s, ok := sink.(*SinkAdapter)
	if !ok {
		return fmt.Errorf("link %s: foreign sink-adapter %T", p.ID(), sink)
	}
	if ret := p.pad.Link(s.elem.GetStaticPad("sink")); ret != gst.PadLinkOK {
		return fmt.Errorf("link %s to %s: %v", p.ID(), s.Name(), ret)
	}
	return nil
}

// Unlink unlinks the pad from an appsink adapter.
func (p *Pad) Unlink(sink graph.SinkAdapter) error {
	s, ok := sink.(*SinkAdapter)
	if !ok || !p.pad.Unlink(s.elem.GetStaticPad("sink")) {
		return fmt.Errorf("unlink %s: %w", p.ID(), graph.ErrNotLinked)
	}
	return nil
}

// SinkAdapter wraps an appsink.
// The name outlives Release so torn-down paths can still be inspected.
type SinkAdapter struct {
	name string
	elem *gst.Element
}

// Name returns the element name.
func (s *SinkAdapter) Name() string { return s.name }

// Pull pulls a sample without blocking.
func (s *SinkAdapter) Pull() (*graph.Sample, bool) {
	if s.elem == nil {
		return nil, false
	}
	ret, err := s.elem.Emit("try-pull-sample", uint64(0))
	if err != nil || ret == nil {
		return nil, false
	}
	gs, ok := ret.(*gst.Sample)
	if !ok || gs == nil {
		return nil, false
	}

	smp := &graph.Sample{Caps: toCaps(gs.GetCaps())}
	if buf := gs.GetBuffer(); buf != nil {
		smp.Buffer = &graph.Buffer{
			Data:     buf.Bytes(),
			PTS:      toDuration(buf.PresentationTimestamp()),
			Duration: toDuration(buf.Duration()),
		}
	}
	return smp, true
}

// SetLocked sets the element's locked state.
func (s *SinkAdapter) SetLocked(locked bool) bool {
	return s.elem.SetLockedState(locked)
}

// SetState changes the element state.
func (s *SinkAdapter) SetState(state graph.RunState) error {
	return s.elem.SetState(gstStates[state])
}

// State returns the element state.
func (s *SinkAdapter) State() graph.RunState {
	if s.elem == nil {
		return graph.StateNull
	}
	return fromGstState(s.elem.GetCurrentState())
}

// Release drops the reference; the element is freed by the GC finalizer.
func (s *SinkAdapter) Release() {
	s.elem = nil
}

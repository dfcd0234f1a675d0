//go:build gst
// +build gst

// This file implements the enclosing graph: per-category branches built as
// funnel ! appsink, and appsrc source-adapters linked onto them.

package gstx

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-gst/go-gst/gst"
	"github.com/sirupsen/logrus"

	"playerbridge/internal/core/bus"
	"playerbridge/internal/core/caps"
	"playerbridge/internal/core/graph"
)

// Branch is a funnel feeding an appsink that republishes onto a bus stream.
type Branch struct {
	name     string
	category graph.Category
	funnel   *gst.Element
	tail     *gst.Element
	stream   *bus.Stream
}

// Name returns the branch name.
func (b *Branch) Name() string { return b.name }

// Category returns the category the branch accepts.
func (b *Branch) Category() graph.Category { return b.category }

func (b *Branch) onSample(tail *gst.Element) gst.FlowReturn {
	ret, err := tail.Emit("pull-sample")
	if err != nil {
		return gst.FlowError
	}
	gs, ok := ret.(*gst.Sample)
	if !ok || gs == nil {
		return gst.FlowOK
	}
	buf := gs.GetBuffer()
	if buf == nil {
		return gst.FlowOK
	}
	msg := bus.NewMessage(bus.MessageTypeFor(b.category), &graph.Buffer{
		Data:     buf.Bytes(),
		PTS:      toDuration(buf.PresentationTimestamp()),
		Duration: toDuration(buf.Duration()),
	})
	if c := gs.GetCaps(); c != nil {
		msg.Caps = c.String()
	}
	b.stream.Publish(msg)
	return gst.FlowOK
}

// SourceAdapter wraps an appsrc and the funnel pad it is linked to.
type SourceAdapter struct {
	elem *gst.Element
	log  *logrus.Entry

	mu     sync.Mutex
	caps   caps.Caps
	branch *Branch
	reqPad *gst.Pad
}

// Name returns the element name.
func (s *SourceAdapter) Name() string { return s.elem.GetName() }

// Caps returns the caps set on the appsrc.
func (s *SourceAdapter) Caps() caps.Caps {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caps
}

// SetCaps sets the caps property of the appsrc.
func (s *SourceAdapter) SetCaps(c caps.Caps) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caps = c
	if err := s.elem.SetProperty("caps", gst.NewCapsFromString(c.String())); err != nil {
		s.log.WithError(err).WithField("caps", c.String()).Error("could not set caps on appsrc")
	}
}

// Push pushes a copy of buf into the appsrc.
func (s *SourceAdapter) Push(buf *graph.Buffer) graph.FlowReturn {
	gb := gst.NewBufferFromBytes(buf.Data)
	gb.SetPresentationTimestamp(gst.ClockTime(buf.PTS))
	gb.SetDuration(gst.ClockTime(buf.Duration))

	ret, err := s.elem.Emit("push-buffer", gb)
	if err != nil {
		return graph.FlowError
	}
	switch fr, _ := ret.(gst.FlowReturn); fr {
	case gst.FlowOK:
		return graph.FlowOK
	case gst.FlowNotLinked:
		return graph.FlowNotLinked
	case gst.FlowFlushing:
		return graph.FlowFlushing
	case gst.FlowEOS:
		return graph.FlowEOS
	default:
		return graph.FlowError
	}
}

// Graph is the enclosing pipeline holding branches and source-adapters.
type Graph struct {
	log      *logrus.Entry
	pipeline *gst.Pipeline
	branches map[graph.Category]*Branch

	mu      sync.Mutex
	sources map[string]*SourceAdapter
}

func newGraph(name string, reg *bus.Registry, categories []graph.Category, log *logrus.Entry) (*Graph, error) {
	pipeline, err := gst.NewPipeline(name + "_graph")
	if err != nil {
		return nil, fmt.Errorf("create graph pipeline: %w", err)
	}
	g := &Graph{
		log:      log,
		pipeline: pipeline,
		branches: make(map[graph.Category]*Branch),
		sources:  make(map[string]*SourceAdapter),
	}

	for _, c := range categories {
		funnel, err := gst.NewElementWithName("funnel", fmt.Sprintf("%s_%s_funnel", name, c))
		if err != nil {
			return nil, fmt.Errorf("create funnel: %w", err)
		}
		tail, err := gst.NewElementWithName("appsink", fmt.Sprintf("%s_%s_branch", name, c))
		if err != nil {
			return nil, fmt.Errorf("create branch sink: %w", err)
		}
		tail.SetProperty("emit-signals", true)
		tail.SetProperty("sync", false)
		if err := pipeline.AddMany(funnel, tail); err != nil {
			return nil, fmt.Errorf("add %s branch: %w", c, err)
		}
		if err := funnel.Link(tail); err != nil {
			return nil, fmt.Errorf("link %s branch: %w", c, err)
		}

		stream, _ := reg.GetOrCreate(bus.NewStreamKey(name, c.String()), bus.MessageTypeFor(c))
		b := &Branch{name: c.String(), category: c, funnel: funnel, tail: tail, stream: stream}
		tail.Connect("new-sample", b.onSample)
		g.branches[c] = b
	}

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return nil, fmt.Errorf("start graph pipeline: %w", err)
	}
	return g, nil
}

// Branch returns the branch for category, or nil.
func (g *Graph) Branch(category graph.Category) graph.Branch {
	b, ok := g.branches[category]
	if !ok {
		return nil
	}
	return b
}

// NewSourceAdapter adds a configured appsrc to the graph.
func (g *Graph) NewSourceAdapter(cfg graph.SourceConfig) (graph.SourceAdapter, error) {
	elem, err := gst.NewElementWithName("appsrc", cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("create appsrc: %w", err)
	}
	format := gst.FormatBytes
	if cfg.Format == graph.FormatTime {
		format = gst.FormatTime
	}
	for prop, v := range map[string]interface{}{
		"is-live":      cfg.IsLive,
		"do-timestamp": cfg.DoTimestamp,
		"min-latency":  cfg.MinLatency,
		"format":       format,
	} {
		if err := elem.SetProperty(prop, v); err != nil {
			return nil, fmt.Errorf("set %s on %s: %w", prop, cfg.Name, err)
		}
	}
	if err := g.pipeline.Add(elem); err != nil {
		return nil, fmt.Errorf("add %s: %w", cfg.Name, err)
	}

	src := &SourceAdapter{elem: elem, log: g.log.WithField("source_adapter", cfg.Name)}
	g.mu.Lock()
	g.sources[cfg.Name] = src
	g.mu.Unlock()
	return src, nil
}

// LinkBranch links the appsrc to a new funnel pad and starts it.
func (g *Graph) LinkBranch(src graph.SourceAdapter, branch graph.Branch) error {
	s, ok := src.(*SourceAdapter)
	if !ok {
		return fmt.Errorf("foreign source-adapter %T", src)
	}
	b, ok := branch.(*Branch)
	if !ok {
		return fmt.Errorf("foreign branch %T", branch)
	}

	reqPad := b.funnel.GetRequestPad("sink_%u")
	if reqPad == nil {
		return errors.New("funnel refused a request pad")
	}
	if ret := s.elem.GetStaticPad("src").Link(reqPad); ret != gst.PadLinkOK {
		b.funnel.ReleaseRequestPad(reqPad)
		return fmt.Errorf("link %s: %v", s.Name(), ret)
	}
	s.elem.SyncStateWithParent()

	s.mu.Lock()
	s.branch, s.reqPad = b, reqPad
	s.mu.Unlock()
	b.stream.AttachPublisher(s.Name())
	return nil
}

// ReleaseSourceAdapter unlinks the appsrc, releases its funnel pad and removes it.
func (g *Graph) ReleaseSourceAdapter(src graph.SourceAdapter) error {
	g.mu.Lock()
	s, ok := g.sources[src.Name()]
	delete(g.sources, src.Name())
	g.mu.Unlock()
	if !ok {
		return fmt.Errorf("source-adapter %s is not part of the graph", src.Name())
	}

	s.mu.Lock()
	b, reqPad := s.branch, s.reqPad
	s.branch, s.reqPad = nil, nil
	s.mu.Unlock()

	s.elem.SetState(gst.StateNull)
	if b != nil {
		s.elem.GetStaticPad("src").Unlink(reqPad)
		b.funnel.ReleaseRequestPad(reqPad)
		b.stream.DetachPublisher(s.Name())
	}
	return g.pipeline.Remove(s.elem)
}

func (g *Graph) close() {
	g.pipeline.SetState(gst.StateNull)
}

//go:build gst
// +build gst

// This file wraps the uridecodebin Sub-pipeline and its appsink sink-adapters.

package gstx

import (
	"fmt"
	"sync"

	"github.com/go-gst/go-gst/gst"
	"github.com/sirupsen/logrus"

	"playerbridge/internal/core/graph"
)

// SubPipeline wraps a pipeline holding one uridecodebin.
type SubPipeline struct {
	name     string
	log      *logrus.Entry
	pipeline *gst.Pipeline
	decoder  *gst.Element

	mu         sync.RWMutex
	dispatcher graph.Dispatcher
	uri        string
	sinks      map[string]*SinkAdapter
}

func newSubPipeline(name string, log *logrus.Entry) (*SubPipeline, error) {
	pipeline, err := gst.NewPipeline(name + "_subpipeline")
	if err != nil {
		return nil, fmt.Errorf("create sub-pipeline: %w", err)
	}
	decoder, err := gst.NewElementWithName("uridecodebin", name+"_decoder")
	if err != nil {
		return nil, fmt.Errorf("create uridecodebin: %w", err)
	}
	if err := pipeline.Add(decoder); err != nil {
		return nil, fmt.Errorf("add uridecodebin: %w", err)
	}

	p := &SubPipeline{
		name:     name,
		log:      log,
		pipeline: pipeline,
		decoder:  decoder,
		sinks:    make(map[string]*SinkAdapter),
	}
	decoder.Connect("pad-added", func(_ *gst.Element, pad *gst.Pad) {
		p.emit(graph.Event{Type: graph.StreamDiscovered, Pad: &Pad{pad: pad, owner: p}})
	})
	decoder.Connect("pad-removed", func(_ *gst.Element, pad *gst.Pad) {
		p.emit(graph.Event{Type: graph.StreamRemoved, Pad: &Pad{pad: pad, owner: p}})
	})
	return p, nil
}

func (p *SubPipeline) emit(ev graph.Event) {
	p.mu.RLock()
	d := p.dispatcher
	p.mu.RUnlock()
	if d != nil {
		d.Dispatch(ev)
	}
}

// Name returns the pipeline name.
func (p *SubPipeline) Name() string { return p.name }

// Subscribe installs the receiver of stream events.
func (p *SubPipeline) Subscribe(d graph.Dispatcher) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dispatcher = d
}

// SetURI sets the uri property of uridecodebin.
func (p *SubPipeline) SetURI(uri string) error {
	if err := p.decoder.SetProperty("uri", uri); err != nil {
		return fmt.Errorf("set uri: %w", err)
	}
	p.mu.Lock()
	p.uri = uri
	p.mu.Unlock()
	return nil
}

// URI returns the last URI set.
func (p *SubPipeline) URI() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.uri
}

// SetState changes the pipeline state.
func (p *SubPipeline) SetState(state graph.RunState) error {
	return p.pipeline.SetState(gstStates[state])
}

// State returns the current pipeline state.
func (p *SubPipeline) State() graph.RunState {
	return fromGstState(p.pipeline.GetCurrentState())
}

// NewSinkAdapter adds an appsink to the pipeline and syncs it with the parent state.
func (p *SubPipeline) NewSinkAdapter(cfg graph.SinkConfig) (graph.SinkAdapter, error) {
	elem, err := gst.NewElementWithName("appsink", cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("create appsink: %w", err)
	}
	for prop, v := range map[string]interface{}{
		"sync":               cfg.Sync,
		"emit-signals":       cfg.EmitSignals,
		"enable-last-sample": cfg.EnableLastSample,
	} {
		if err := elem.SetProperty(prop, v); err != nil {
			return nil, fmt.Errorf("set %s on %s: %w", prop, cfg.Name, err)
		}
	}
	streamID := cfg.StreamID
	elem.Connect("new-sample", func(*gst.Element) gst.FlowReturn {
		p.emit(graph.Event{Type: graph.DataReady, StreamID: streamID})
		return gst.FlowOK
	})

	if err := p.pipeline.Add(elem); err != nil {
		return nil, fmt.Errorf("add %s: %w", cfg.Name, err)
	}
	elem.SyncStateWithParent()

	sink := &SinkAdapter{name: cfg.Name, elem: elem}
	p.mu.Lock()
	p.sinks[cfg.Name] = sink
	p.mu.Unlock()
	return sink, nil
}

// sinkAdapter looks up a sink-adapter of this pipeline by element name.
func (p *SubPipeline) sinkAdapter(name string) (graph.SinkAdapter, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.sinks[name]
	if !ok {
		return nil, false
	}
	return s, true
}

// SinkCount returns the number of sink-adapters in the pipeline.
func (p *SubPipeline) SinkCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.sinks)
}

// RemoveSinkAdapter removes an appsink from the pipeline.
func (p *SubPipeline) RemoveSinkAdapter(sink graph.SinkAdapter) error {
	p.mu.Lock()
	s, ok := p.sinks[sink.Name()]
	delete(p.sinks, sink.Name())
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("sink-adapter %s is not part of %s", sink.Name(), p.name)
	}
	return p.pipeline.Remove(s.elem)
}

// Close drives the pipeline to Null.
func (p *SubPipeline) Close() error {
	p.Subscribe(nil)
	return p.pipeline.SetState(gst.StateNull)
}

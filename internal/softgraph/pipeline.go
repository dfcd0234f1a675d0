// This file implements SubPipeline, the in-process decoding graph.
// Opening a URI exposes one pad per synthetic stream; while Playing, each pad is
// driven by a producer task on a bounded worker pool and paced by a rate limiter.

package softgraph

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"

	"playerbridge/internal/core/graph"
)

// ErrClosed is returned by a SubPipeline used after Close.
var ErrClosed = errors.New("sub-pipeline closed")

// Options configures a SubPipeline.
type Options struct {
	Name      string
	Workers   int // producer pool size; one task per playing stream
	SinkQueue int // samples each sink-adapter buffers
	Log       *logrus.Entry
}

// SubPipeline is the software Sub-pipeline.
// Lock expectations: stateMu serializes state transitions; mu guards fields.
// Producers take mu only, so transitions wait for them with mu released.
type SubPipeline struct {
	name      string
	sinkQueue int
	log       *logrus.Entry
	pool      *ants.Pool

	dmu        sync.RWMutex
	dispatcher graph.Dispatcher

	stateMu sync.Mutex

	mu      sync.Mutex
	state   graph.RunState
	uri     string
	opened  string // URI whose pads are exposed
	source  Source
	pads    []*Pad
	sinks   map[string]*SinkAdapter
	cancel  context.CancelFunc
	workers sync.WaitGroup
	closed  bool
}

// New creates a SubPipeline in the Null state.
func New(opts Options) (*SubPipeline, error) {
	if opts.Name == "" {
		opts.Name = "subpipeline"
	}
	if opts.Workers <= 0 {
		opts.Workers = 16
	}
	if opts.SinkQueue <= 0 {
		opts.SinkQueue = 64
	}
	log := opts.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	pool, err := ants.NewPool(opts.Workers,
		ants.WithNonblocking(true),
		ants.WithLogger(log),
		ants.WithPanicHandler(func(v interface{}) {
			log.WithField("panic", v).Error("stream producer panicked")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create producer pool: %w", err)
	}

	return &SubPipeline{
		name:      opts.Name,
		sinkQueue: opts.SinkQueue,
		log:       log,
		pool:      pool,
		sinks:     make(map[string]*SinkAdapter),
	}, nil
}

// Name returns the pipeline name.
func (p *SubPipeline) Name() string { return p.name }

// Subscribe installs the receiver of stream events, replacing any previous one.
func (p *SubPipeline) Subscribe(d graph.Dispatcher) {
	p.dmu.Lock()
	defer p.dmu.Unlock()
	p.dispatcher = d
}

func (p *SubPipeline) emit(ev graph.Event) {
	p.dmu.RLock()
	d := p.dispatcher
	p.dmu.RUnlock()
	if d != nil {
		d.Dispatch(ev)
	}
}

// SetURI sets the source URI. It takes effect on the next transition to Paused or Playing.
func (p *SubPipeline) SetURI(uri string) error {
	if _, err := ParseURI(uri); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.uri = uri
	return nil
}

// URI returns the configured source URI.
func (p *SubPipeline) URI() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uri
}

// State returns the current run state.
func (p *SubPipeline) State() graph.RunState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SetState drives the pipeline to state.
// Reaching Paused or Playing opens the URI if it is not open yet; pads of a
// previously opened URI are removed first. Pads survive Null.
func (p *SubPipeline) SetState(state graph.RunState) error {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	wait := p.stopProducersLocked()
	p.mu.Unlock()
	wait()

	p.mu.Lock()
	var removed, discovered []*Pad
	if state >= graph.StatePaused && (p.opened == "" || p.uri != p.opened) {
		removed = p.pads
		p.pads, p.opened = nil, ""

		src, err := ParseURI(p.uri)
		if err != nil {
			p.mu.Unlock()
			p.emitAll(graph.StreamRemoved, removed)
			return fmt.Errorf("open %q: %w", p.uri, err)
		}
		p.source = src
		for i, kind := range src.Streams {
			p.pads = append(p.pads, newPad(fmt.Sprintf("src_%d", i), kind))
		}
		p.opened = p.uri
		discovered = p.pads
	}
	prev := p.state
	p.state = state
	for _, s := range p.sinks {
		s.followParent(state)
	}
	p.mu.Unlock()

	p.log.WithFields(logrus.Fields{"from": prev.String(), "to": state.String()}).Debug("state changed")
	p.emitAll(graph.StreamRemoved, removed)
	p.emitAll(graph.StreamDiscovered, discovered)

	if state == graph.StatePlaying {
		p.mu.Lock()
		p.startProducersLocked()
		p.mu.Unlock()
	}
	return nil
}

func (p *SubPipeline) emitAll(t graph.EventType, pads []*Pad) {
	for _, pad := range pads {
		p.emit(graph.Event{Type: t, Pad: pad})
	}
}

// NewSinkAdapter adds a sink-adapter to the pipeline in the pipeline's current state.
func (p *SubPipeline) NewSinkAdapter(cfg graph.SinkConfig) (graph.SinkAdapter, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("sink-adapter name is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}
	if _, exists := p.sinks[cfg.Name]; exists {
		return nil, fmt.Errorf("sink-adapter %s already exists", cfg.Name)
	}
	sink := newSinkAdapter(cfg, p.sinkQueue, p.state, p.emit)
	p.sinks[cfg.Name] = sink
	return sink, nil
}

// RemoveSinkAdapter detaches sink from the pipeline.
func (p *SubPipeline) RemoveSinkAdapter(sink graph.SinkAdapter) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sinks[sink.Name()]
	if !ok || graph.SinkAdapter(s) != sink {
		return fmt.Errorf("sink-adapter %s is not part of %s", sink.Name(), p.name)
	}
	delete(p.sinks, sink.Name())
	return nil
}

// Pads returns the exposed pads in discovery order.
func (p *SubPipeline) Pads() []*Pad {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Pad(nil), p.pads...)
}

// SinkCount returns the number of sink-adapters in the pipeline.
func (p *SubPipeline) SinkCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sinks)
}

// Close stops every producer, drops all pads without notification and releases the pool.
func (p *SubPipeline) Close() error {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	wait := p.stopProducersLocked()
	p.state = graph.StateNull
	for _, s := range p.sinks {
		s.followParent(graph.StateNull)
	}
	p.pads, p.opened = nil, ""
	p.mu.Unlock()

	wait()
	p.Subscribe(nil)
	p.pool.Release()
	return nil
}

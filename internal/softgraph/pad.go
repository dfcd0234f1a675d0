// This file implements the source pads the synthetic decoder exposes, one per stream.

package softgraph

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"playerbridge/internal/core/caps"
	"playerbridge/internal/core/graph"
)

// Pad is one elementary stream of the synthetic decoder.
type Pad struct {
	id        string
	kind      StreamKind
	caps      caps.Caps
	direction graph.PadDirection

	mu   sync.Mutex
	peer *SinkAdapter

	produced atomic.Uint64
	unlinked atomic.Uint64 // buffers produced while no peer was linked
}

func newPad(id string, kind StreamKind) *Pad {
	return &Pad{id: id, kind: kind, caps: kind.Caps(), direction: graph.PadSource}
}

// ID returns the pad name, e.g. "src_0".
func (p *Pad) ID() string { return p.id }

// Direction returns the pad direction.
func (p *Pad) Direction() graph.PadDirection { return p.direction }

// Kind returns the stream kind.
func (p *Pad) Kind() StreamKind { return p.kind }

// QueryCaps returns the pad's fixed caps.
func (p *Pad) QueryCaps() caps.Caps { return p.caps }

// Peer returns the linked sink-adapter.
func (p *Pad) Peer() (graph.SinkAdapter, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.peer == nil {
		return nil, false
	}
	return p.peer, true
}

// Link connects the pad to a sink-adapter of the same backend.
func (p *Pad) Link(sink graph.SinkAdapter) error {
	s, ok := sink.(*SinkAdapter)
	if !ok {
		return fmt.Errorf("link %s: foreign sink-adapter %T", p.id, sink)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.peer != nil {
		return fmt.Errorf("link %s: %w", p.id, graph.ErrAlreadyLinked)
	}
	p.peer = s
	return nil
}

// Unlink disconnects sink from the pad.
func (p *Pad) Unlink(sink graph.SinkAdapter) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.peer == nil || graph.SinkAdapter(p.peer) != sink {
		return fmt.Errorf("unlink %s: %w", p.id, graph.ErrNotLinked)
	}
	p.peer = nil
	return nil
}

func (p *Pad) linked() *SinkAdapter {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.peer
}

// sample builds buffer number n of the stream.
func (p *Pad) sample(n uint64, size int, frame time.Duration) *graph.Sample {
	data := make([]byte, size)
	copy(data, fmt.Sprintf("%s:%s:%d", p.id, p.kind, n))
	return &graph.Sample{
		Caps: p.caps,
		Buffer: &graph.Buffer{
			Data:     data,
			PTS:      time.Duration(n) * frame,
			Duration: frame,
		},
	}
}

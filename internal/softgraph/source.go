// This file implements SourceAdapter, the push-style source the bridge feeds
// relayed buffers into. Pushed buffers are published on the linked branch stream.

package softgraph

import (
	"sync"
	"time"

	"playerbridge/internal/core/bus"
	"playerbridge/internal/core/caps"
	"playerbridge/internal/core/graph"
)

// SourceAdapter is an app-style source owned by the Graph.
type SourceAdapter struct {
	cfg     graph.SourceConfig
	created time.Time

	mu       sync.Mutex
	caps     caps.Caps
	branch   *Branch
	released bool
}

func newSourceAdapter(cfg graph.SourceConfig) *SourceAdapter {
	return &SourceAdapter{cfg: cfg, created: time.Now()}
}

// Name returns the adapter name.
func (s *SourceAdapter) Name() string { return s.cfg.Name }

// Caps returns the configured caps; EMPTY until SetCaps.
func (s *SourceAdapter) Caps() caps.Caps {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caps
}

// SetCaps configures the format of pushed buffers.
func (s *SourceAdapter) SetCaps(c caps.Caps) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caps = c
}

// Push publishes buf on the linked branch.
// With DoTimestamp the PTS is replaced by the running time since creation.
func (s *SourceAdapter) Push(buf *graph.Buffer) graph.FlowReturn {
	s.mu.Lock()
	branch, released, c := s.branch, s.released, s.caps
	s.mu.Unlock()

	switch {
	case released:
		return graph.FlowFlushing
	case branch == nil:
		return graph.FlowNotLinked
	case buf == nil:
		return graph.FlowError
	}

	msg := bus.NewMessage(bus.MessageTypeFor(branch.category), buf)
	if s.cfg.DoTimestamp {
		msg.PTS = time.Since(s.created)
	}
	if !c.IsEmpty() {
		msg.Caps = c.String()
	}
	msg.Source = s.cfg.Name
	branch.stream.Publish(msg)
	return graph.FlowOK
}

func (s *SourceAdapter) link(b *Branch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return graph.ErrReleased
	}
	if s.branch != nil {
		return graph.ErrAlreadyLinked
	}
	s.branch = b
	return nil
}

// release unlinks the adapter and returns the branch it was linked to.
func (s *SourceAdapter) release() *Branch {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.branch
	s.branch = nil
	s.released = true
	return b
}

// This file implements SinkAdapter, the pull-style sink the bridge attaches to each pad.
// Samples queue up to a bound; the oldest is dropped when the consumer falls behind.

package softgraph

import (
	"sync"
	"sync/atomic"

	"playerbridge/internal/core/graph"
)

// SinkAdapter is an app-style sink inside the SubPipeline.
type SinkAdapter struct {
	cfg      graph.SinkConfig
	capacity int
	notify   func(graph.Event)

	mu       sync.Mutex
	queue    []*graph.Sample
	state    graph.RunState
	locked   bool
	released bool

	dropped atomic.Uint64
}

func newSinkAdapter(cfg graph.SinkConfig, capacity int, state graph.RunState, notify func(graph.Event)) *SinkAdapter {
	if capacity <= 0 {
		capacity = 1
	}
	return &SinkAdapter{
		cfg:      cfg,
		capacity: capacity,
		notify:   notify,
		state:    state,
	}
}

// Name returns the adapter name.
func (s *SinkAdapter) Name() string { return s.cfg.Name }

// Pull pops the oldest queued sample without blocking.
func (s *SinkAdapter) Pull() (*graph.Sample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil, false
	}
	smp := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	return smp, true
}

// SetLocked makes the adapter ignore parent state changes.
func (s *SinkAdapter) SetLocked(locked bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return false
	}
	s.locked = locked
	return true
}

// SetState changes the adapter state. Going to Null flushes the queue.
func (s *SinkAdapter) SetState(state graph.RunState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return graph.ErrReleased
	}
	s.state = state
	if state == graph.StateNull {
		s.queue = nil
	}
	return nil
}

// State returns the adapter state.
func (s *SinkAdapter) State() graph.RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Release drops the queue and refuses further use.
func (s *SinkAdapter) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = true
	s.queue = nil
}

// Dropped returns the number of samples discarded for a full queue or a halted adapter.
func (s *SinkAdapter) Dropped() uint64 {
	return s.dropped.Load()
}

// followParent applies a parent state change unless the adapter is locked.
func (s *SinkAdapter) followParent(state graph.RunState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked || s.released {
		return
	}
	s.state = state
	if state == graph.StateNull {
		s.queue = nil
	}
}

// offer queues a sample and signals data-ready. It reports whether the sample was accepted.
func (s *SinkAdapter) offer(smp *graph.Sample) bool {
	s.mu.Lock()
	if s.released || s.state != graph.StatePlaying {
		s.mu.Unlock()
		s.dropped.Add(1)
		return false
	}
	if len(s.queue) >= s.capacity {
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.dropped.Add(1)
	}
	s.queue = append(s.queue, smp)
	s.mu.Unlock()

	if s.cfg.EmitSignals && s.notify != nil {
		s.notify(graph.Event{Type: graph.DataReady, StreamID: s.cfg.StreamID})
	}
	return true
}

// This file defines Path, the sink-adapter/source-adapter pair serving one stream,
// and the per-stream state machine it moves through.

package bridge

import (
	"sync"
	"sync/atomic"
	"time"

	"playerbridge/internal/core/caps"
	"playerbridge/internal/core/graph"
)

// PathState is the lifecycle state of a stream inside the manager.
type PathState uint8

// A path is created once its stream is classified. Streams no branch accepts
// never get a path; the manager only counts them.
const (
	StateClassified PathState = iota
	StateBridged
	StateTornDown
)

// String returns the state name.
func (s PathState) String() string {
	switch s {
	case StateClassified:
		return "classified"
	case StateBridged:
		return "bridged"
	case StateTornDown:
		return "torn-down"
	default:
		return "unknown"
	}
}

// Path is the relay path of one bridged stream.
// mu serializes relay against teardown.
type Path struct {
	id       string
	streamID string
	category graph.Category
	caps     caps.Caps
	created  time.Time

	mu     sync.Mutex
	state  PathState
	pad    graph.Pad
	branch graph.Branch
	sink   graph.SinkAdapter
	src    graph.SourceAdapter

	pushed      atomic.Uint64
	pushFailed  atomic.Uint64
	emptyPulls  atomic.Uint64
	missingCaps atomic.Uint64
}

// PathInfo is a point-in-time view of a Path.
type PathInfo struct {
	ID          string    `json:"id"`
	StreamID    string    `json:"stream_id"`
	Category    string    `json:"category"`
	Branch      string    `json:"branch"`
	Caps        string    `json:"caps"`
	State       string    `json:"state"`
	SinkAdapter string    `json:"sink_adapter"`
	SrcAdapter  string    `json:"source_adapter"`
	Pushed      uint64    `json:"pushed"`
	PushFailed  uint64    `json:"push_failed"`
	EmptyPulls  uint64    `json:"empty_pulls"`
	MissingCaps uint64    `json:"missing_caps"`
	CreatedAt   time.Time `json:"created_at"`
}

// ID returns the path identifier.
func (p *Path) ID() string { return p.id }

// StreamID returns the pad ID the path serves.
func (p *Path) StreamID() string { return p.streamID }

// Category returns the branch category.
func (p *Path) Category() graph.Category { return p.category }

// State returns the current state.
func (p *Path) State() PathState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Info returns a snapshot of the path.
func (p *Path) Info() PathInfo {
	p.mu.Lock()
	info := PathInfo{
		ID:        p.id,
		StreamID:  p.streamID,
		Category:  p.category.String(),
		Caps:      p.caps.String(),
		State:     p.state.String(),
		CreatedAt: p.created,
	}
	if p.branch != nil {
		info.Branch = p.branch.Name()
	}
	if p.sink != nil {
		info.SinkAdapter = p.sink.Name()
	}
	if p.src != nil {
		info.SrcAdapter = p.src.Name()
	}
	p.mu.Unlock()

	info.Pushed = p.pushed.Load()
	info.PushFailed = p.pushFailed.Load()
	info.EmptyPulls = p.emptyPulls.Load()
	info.MissingCaps = p.missingCaps.Load()
	return info
}

// count records a relay outcome.
func (p *Path) count(res RelayResult, missingCaps bool) {
	switch res {
	case RelayPushed:
		p.pushed.Add(1)
	case RelayPushFailed:
		p.pushFailed.Add(1)
	case RelayNoSample, RelayNoBuffer:
		p.emptyPulls.Add(1)
	}
	if missingCaps {
		p.missingCaps.Add(1)
	}
}

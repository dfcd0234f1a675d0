// This file defines the ports the bridge core talks to.
// Backends (software, GStreamer) implement them; the core never depends on a backend.

package graph

import (
	"errors"

	"playerbridge/internal/core/caps"
)

var (
	// ErrNotLinked is returned when linking or unlinking endpoints that are not connected.
	ErrNotLinked = errors.New("endpoints not linked")
	// ErrAlreadyLinked is returned when a pad or adapter already has a peer.
	ErrAlreadyLinked = errors.New("endpoint already linked")
	// ErrReleased is returned by adapters used after release.
	ErrReleased = errors.New("adapter released")
)

// PadDirection tells which side of an element a pad sits on.
type PadDirection uint8

const (
	// PadSource produces data.
	PadSource PadDirection = iota
	// PadSink consumes data.
	PadSink
)

// Pad is the handle of one discovered elementary stream.
type Pad interface {
	// ID is unique among the pads of a Sub-pipeline.
	ID() string
	Direction() PadDirection
	// QueryCaps returns the formats the pad can produce right now.
	QueryCaps() caps.Caps
	// Peer returns the sink-adapter this pad is linked to.
	Peer() (SinkAdapter, bool)
	Link(sink SinkAdapter) error
	Unlink(sink SinkAdapter) error
}

// SinkConfig configures a pull-style sink-adapter.
type SinkConfig struct {
	Name string
	// StreamID is carried by every DataReady event the adapter emits.
	StreamID         string
	Sync             bool
	EmitSignals      bool
	EnableLastSample bool
}

// SinkAdapter receives the data of one stream inside the Sub-pipeline.
type SinkAdapter interface {
	Name() string
	// Pull returns the next queued sample without blocking.
	Pull() (*Sample, bool)
	// SetLocked makes the adapter ignore parent state changes. Returns false on failure.
	SetLocked(locked bool) bool
	SetState(state RunState) error
	State() RunState
	Release()
}

// SourceConfig configures a push-style source-adapter.
type SourceConfig struct {
	Name        string
	IsLive      bool
	DoTimestamp bool
	MinLatency  int64
	Format      Format
}

// SourceAdapter pushes relayed buffers into a Branch.
type SourceAdapter interface {
	Name() string
	// Caps returns the configured format; EMPTY until set.
	Caps() caps.Caps
	SetCaps(c caps.Caps)
	Push(buf *Buffer) FlowReturn
}

// Branch is an opaque downstream sink for one media category.
type Branch interface {
	Name() string
	Category() Category
}

// Graph is the enclosing element: it owns source-adapters and lends branches.
type Graph interface {
	// Branch returns nil when no branch is configured for the category.
	Branch(category Category) Branch
	NewSourceAdapter(cfg SourceConfig) (SourceAdapter, error)
	LinkBranch(src SourceAdapter, branch Branch) error
	ReleaseSourceAdapter(src SourceAdapter) error
}

// SubPipeline is the internal decoding graph.
type SubPipeline interface {
	Name() string
	// Subscribe installs the single receiver of stream events.
	Subscribe(d Dispatcher)
	SetURI(uri string) error
	URI() string
	SetState(state RunState) error
	State() RunState
	NewSinkAdapter(cfg SinkConfig) (SinkAdapter, error)
	RemoveSinkAdapter(sink SinkAdapter) error
	Close() error
}

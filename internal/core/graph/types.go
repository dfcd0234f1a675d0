// This file defines the value types that flow through the graph ports:
// categories, run states, flow results, samples and events.

package graph

import (
	"time"

	"playerbridge/internal/core/caps"
)

// Category is the media category a stream is routed by.
type Category uint8

const (
	// CategoryUnsupported marks streams no branch accepts.
	CategoryUnsupported Category = iota
	// CategoryAudio routes to the audio branch.
	CategoryAudio
	// CategoryVideo routes to the video branch.
	CategoryVideo
)

// String returns the lowercase category name.
func (c Category) String() string {
	switch c {
	case CategoryAudio:
		return "audio"
	case CategoryVideo:
		return "video"
	default:
		return "unsupported"
	}
}

// ParseCategory is the inverse of Category.String for routable categories.
func ParseCategory(s string) (Category, bool) {
	switch s {
	case "audio":
		return CategoryAudio, true
	case "video":
		return CategoryVideo, true
	}
	return CategoryUnsupported, false
}

// RunState is the scheduling state of an element.
type RunState uint8

const (
	// StateNull releases all resources.
	StateNull RunState = iota
	// StateReady holds resources but has no data flow.
	StateReady
	// StatePaused has data flow prepared but halted.
	StatePaused
	// StatePlaying runs data flow.
	StatePlaying
)

// String returns the lowercase state name.
func (s RunState) String() string {
	switch s {
	case StateNull:
		return "null"
	case StateReady:
		return "ready"
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// Format is the unit of source-adapter segments.
type Format uint8

const (
	// FormatBytes counts in bytes.
	FormatBytes Format = iota
	// FormatTime counts in nanoseconds.
	FormatTime
)

// FlowReturn is the outcome of pushing a buffer.
type FlowReturn int8

const (
	FlowOK        FlowReturn = 0
	FlowNotLinked FlowReturn = -1
	FlowFlushing  FlowReturn = -2
	FlowEOS       FlowReturn = -3
	FlowError     FlowReturn = -5
)

// String returns the flow result name.
func (f FlowReturn) String() string {
	switch f {
	case FlowOK:
		return "ok"
	case FlowNotLinked:
		return "not-linked"
	case FlowFlushing:
		return "flushing"
	case FlowEOS:
		return "eos"
	default:
		return "error"
	}
}

// Buffer is one unit of media payload.
type Buffer struct {
	Data     []byte
	PTS      time.Duration
	Duration time.Duration
}

// Sample pairs a buffer with the format it was produced in.
// Either part may be missing.
type Sample struct {
	Caps   caps.Caps
	Buffer *Buffer
}

// EventType identifies a stream notification.
type EventType uint8

const (
	// StreamDiscovered is emitted when the source stage exposes a new pad.
	StreamDiscovered EventType = iota
	// StreamRemoved is emitted when a pad goes away.
	StreamRemoved
	// DataReady is emitted by a sink-adapter with a sample queued.
	DataReady
)

// String returns the event name.
func (t EventType) String() string {
	switch t {
	case StreamDiscovered:
		return "stream-discovered"
	case StreamRemoved:
		return "stream-removed"
	case DataReady:
		return "data-ready"
	default:
		return "unknown"
	}
}

// Event is one notification from a Sub-pipeline.
// Pad is set for discovery and removal; StreamID for DataReady.
type Event struct {
	Type     EventType
	Pad      Pad
	StreamID string
}

// Dispatcher receives every event of a Sub-pipeline.
// Events of one stream arrive serialized; events of different streams may overlap.
type Dispatcher interface {
	Dispatch(ev Event)
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ev Event)

// Dispatch calls f(ev).
func (f DispatcherFunc) Dispatch(ev Event) {
	f(ev)
}

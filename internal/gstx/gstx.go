//go:build !gst
// +build !gst

// This file provides stub implementations when GStreamer is not available.
// NewBackend reports that GStreamer support is not compiled in.

package gstx

import (
	"errors"

	"playerbridge/internal/core/graph"
)

var ErrGStreamerNotAvailable = errors.New("GStreamer support not compiled in (build with -tags gst)")

// Init initializes GStreamer.
// Stub: returns error indicating GStreamer is not available.
func Init() error {
	return ErrGStreamerNotAvailable
}

// IsAvailable returns whether GStreamer is available.
// Stub: always returns false.
func IsAvailable() bool {
	return false
}

// Backend is the GStreamer implementation of the graph ports.
// Stub implementation.
type Backend struct{}

// NewBackend creates a backend.
// Stub: returns error.
func NewBackend(opts Options) (*Backend, error) {
	return nil, ErrGStreamerNotAvailable
}

// Graph returns the enclosing element.
// Stub: returns nil.
func (b *Backend) Graph() graph.Graph {
	return nil
}

// Pipeline returns the Sub-pipeline.
// Stub: returns nil.
func (b *Backend) Pipeline() graph.SubPipeline {
	return nil
}

// This file implements Endpoint, the player endpoint: it composes the stream
// classifier and the bridge manager over a backend and maps Start/Pause/Stop
// onto the Sub-pipeline run state.

package player

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"playerbridge/internal/core/bridge"
	"playerbridge/internal/core/classify"
	"playerbridge/internal/core/graph"
)

var (
	// ErrNoURI is returned by Start when no source URI is configured.
	ErrNoURI = errors.New("no source uri configured")
	// ErrClosed is returned by an Endpoint used after Close.
	ErrClosed = errors.New("endpoint closed")
)

// Config wires an Endpoint.
type Config struct {
	Name       string
	URI        string
	Classifier *classify.Classifier // defaults to classify.Default()
	Graph      graph.Graph
	Pipeline   graph.SubPipeline
	Log        *logrus.Entry
}

// Status is a point-in-time view of an Endpoint.
type Status struct {
	Name      string    `json:"name"`
	URI       string    `json:"uri"`
	State     string    `json:"state"`
	Paths     int       `json:"paths"`
	Ignored   uint64    `json:"ignored"`
	LastError string    `json:"last_error,omitempty"`
	ErrorAt   time.Time `json:"last_error_at,omitempty"`
}

// Endpoint is the playable element hosting the dynamic bridge.
// Lock expectations: mu serializes lifecycle calls; errMu guards the last error,
// which the manager records from inside lifecycle calls.
type Endpoint struct {
	name     string
	pipeline graph.SubPipeline
	manager  *bridge.Manager
	log      *logrus.Entry

	mu     sync.Mutex
	uri    string
	closed bool

	errMu   sync.Mutex
	lastErr error
	errAt   time.Time
}

// New creates an endpoint and subscribes its manager to the pipeline's events.
func New(cfg Config) (*Endpoint, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("endpoint name is required")
	}
	if cfg.Pipeline == nil {
		return nil, fmt.Errorf("pipeline is required")
	}
	classifier := cfg.Classifier
	if classifier == nil {
		classifier = classify.Default()
	}
	log := cfg.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("endpoint", cfg.Name)

	e := &Endpoint{
		name:     cfg.Name,
		pipeline: cfg.Pipeline,
		log:      log,
		uri:      cfg.URI,
	}
	manager, err := bridge.NewManager(bridge.Config{
		Name:       cfg.Name,
		Classifier: classifier,
		Graph:      cfg.Graph,
		Pipeline:   cfg.Pipeline,
		Log:        log.WithField("component", "bridge"),
		OnError:    e.recordError,
	})
	if err != nil {
		return nil, fmt.Errorf("create bridge manager: %w", err)
	}
	e.manager = manager
	cfg.Pipeline.Subscribe(manager)
	return e, nil
}

// Name returns the endpoint name.
func (e *Endpoint) Name() string { return e.name }

// Manager returns the bridge manager.
func (e *Endpoint) Manager() *bridge.Manager { return e.manager }

// Paths returns a snapshot of the live relay paths.
func (e *Endpoint) Paths() []bridge.PathInfo {
	return e.manager.Paths()
}

// SetURI replaces the source URI used by the next Start.
func (e *Endpoint) SetURI(uri string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.uri = uri
}

// URI returns the configured source URI.
func (e *Endpoint) URI() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.uri
}

// State returns the Sub-pipeline run state.
func (e *Endpoint) State() graph.RunState {
	return e.pipeline.State()
}

// Start applies the URI to the source stage and drives the Sub-pipeline to Playing.
// Re-applying the same URI is allowed.
func (e *Endpoint) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if e.uri == "" {
		e.recordError(ErrNoURI)
		return ErrNoURI
	}

	log := e.log.WithField("uri", e.uri)
	if err := e.pipeline.SetURI(e.uri); err != nil {
		err = fmt.Errorf("set uri: %w", err)
		e.recordError(err)
		return err
	}
	if err := e.transition(graph.StatePlaying); err != nil {
		return err
	}
	log.Info("endpoint started")
	return nil
}

// Pause drives the Sub-pipeline to Paused.
func (e *Endpoint) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	return e.transition(graph.StatePaused)
}

// Stop drives the Sub-pipeline to Null. Bridged paths stay until their streams
// are removed or the endpoint is closed.
func (e *Endpoint) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	return e.transition(graph.StateNull)
}

// transition drives the pipeline to state. e.mu must be held.
func (e *Endpoint) transition(state graph.RunState) error {
	if err := e.pipeline.SetState(state); err != nil {
		err = fmt.Errorf("set state %s: %w", state, err)
		e.recordError(err)
		return err
	}
	e.log.WithField("state", state.String()).Debug("sub-pipeline state changed")
	return nil
}

// LastError returns the most recent configuration error, if any.
func (e *Endpoint) LastError() error {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.lastErr
}

func (e *Endpoint) recordError(err error) {
	e.errMu.Lock()
	e.lastErr = err
	e.errAt = time.Now()
	e.errMu.Unlock()
	e.log.WithError(err).Warn("endpoint error")
}

// Status returns a snapshot of the endpoint.
func (e *Endpoint) Status() Status {
	st := Status{
		Name:    e.name,
		URI:     e.URI(),
		State:   e.State().String(),
		Paths:   e.manager.Len(),
		Ignored: e.manager.Ignored(),
	}
	e.errMu.Lock()
	if e.lastErr != nil {
		st.LastError = e.lastErr.Error()
		st.ErrorAt = e.errAt
	}
	e.errMu.Unlock()
	return st
}

// Close stops the Sub-pipeline, tears down every path and destroys the pipeline.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	if err := e.pipeline.SetState(graph.StateNull); err != nil {
		e.log.WithError(err).Warn("could not stop sub-pipeline")
	}
	e.manager.Close()
	if err := e.pipeline.Close(); err != nil {
		return fmt.Errorf("close sub-pipeline: %w", err)
	}
	e.log.Info("endpoint closed")
	return nil
}

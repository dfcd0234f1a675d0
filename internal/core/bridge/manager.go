// This file implements the dynamic bridge manager.
// The manager is the single subscriber of Sub-pipeline events: it classifies discovered
// streams, builds a relay path per accepted stream, relays data and tears paths down.

package bridge

import (
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sirupsen/logrus"

	"playerbridge/internal/core/classify"
	"playerbridge/internal/core/graph"
)

// ErrBranchNotConfigured is a configuration error: a stream was classified for a
// category the enclosing element has no branch for.
var ErrBranchNotConfigured = errors.New("no branch configured for category")

// Config wires a Manager to its collaborators.
type Config struct {
	Name       string // used to name adapters
	Classifier *classify.Classifier
	Graph      graph.Graph
	Pipeline   graph.SubPipeline
	Log        *logrus.Entry
	// OnError receives configuration errors raised while bridging. Optional.
	OnError func(error)
}

// Manager owns the relay paths of one Sub-pipeline.
// Lock expectations: paths is a concurrent map; each Path has its own mutex.
type Manager struct {
	name       string
	classifier *classify.Classifier
	graph      graph.Graph
	pipeline   graph.SubPipeline
	log        *logrus.Entry
	onError    func(error)

	paths   *xsync.MapOf[string, *Path]
	ignored atomic.Uint64
	seq     atomic.Uint64
}

// NewManager creates a manager. Graph, Pipeline and Classifier are required.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Graph == nil {
		return nil, fmt.Errorf("graph is required")
	}
	if cfg.Pipeline == nil {
		return nil, fmt.Errorf("pipeline is required")
	}
	if cfg.Classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	log := cfg.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	name := cfg.Name
	if name == "" {
		name = cfg.Pipeline.Name()
	}

	return &Manager{
		name:       name,
		classifier: cfg.Classifier,
		graph:      cfg.Graph,
		pipeline:   cfg.Pipeline,
		log:        log,
		onError:    cfg.OnError,
		paths:      xsync.NewMapOf[string, *Path](),
	}, nil
}

// Dispatch routes one Sub-pipeline event.
func (m *Manager) Dispatch(ev graph.Event) {
	switch ev.Type {
	case graph.StreamDiscovered:
		if ev.Pad != nil {
			// Errors are reported through OnError inside StreamDiscovered.
			_ = m.StreamDiscovered(ev.Pad)
		}
	case graph.StreamRemoved:
		if ev.Pad != nil {
			m.StreamRemoved(ev.Pad)
		}
	case graph.DataReady:
		m.DataReady(ev.StreamID)
	default:
		m.log.WithField("event", ev.Type.String()).Warn("unknown event")
	}
}

// StreamDiscovered classifies a new pad and bridges it to its branch.
// Unsupported streams are ignored without error. A missing branch returns
// ErrBranchNotConfigured; nothing is retried.
func (m *Manager) StreamDiscovered(pad graph.Pad) error {
	if pad.Direction() != graph.PadSource {
		return nil
	}
	log := m.log.WithField("pad", pad.ID())

	streamCaps := pad.QueryCaps()
	category := m.classifier.Classify(streamCaps)
	log.WithField("caps", streamCaps.String()).Debug("stream discovered")

	if category == graph.CategoryUnsupported {
		m.ignored.Add(1)
		log.Debug("stream caps match no branch, ignoring")
		return nil
	}

	path := &Path{
		id:       uuid.NewString(),
		streamID: pad.ID(),
		category: category,
		caps:     streamCaps,
		created:  time.Now(),
		state:    StateClassified,
		pad:      pad,
	}
	if _, loaded := m.paths.LoadOrStore(pad.ID(), path); loaded {
		log.Debug("stream already bridged")
		return nil
	}

	log = log.WithFields(logrus.Fields{"category": category.String(), "path_id": path.id})

	path.mu.Lock()
	defer path.mu.Unlock()

	if err := m.bridge(path, log); err != nil {
		path.state = StateTornDown
		m.paths.Delete(pad.ID())
		err = fmt.Errorf("bridge stream %s: %w", pad.ID(), err)
		m.reportError(log, err)
		return err
	}

	path.state = StateBridged
	log.WithField("branch", path.branch.Name()).Info("stream bridged")
	return nil
}

// bridge creates and links both adapters of a path. path.mu must be held.
// On failure every adapter created so far is released.
func (m *Manager) bridge(path *Path, log *logrus.Entry) error {
	branch := m.graph.Branch(path.category)
	if branch == nil {
		return fmt.Errorf("%w: %s", ErrBranchNotConfigured, path.category)
	}

	seq := m.seq.Add(1)
	src, err := m.graph.NewSourceAdapter(graph.SourceConfig{
		Name:        fmt.Sprintf("%s_%s_src_%d", m.name, path.category, seq),
		IsLive:      true,
		DoTimestamp: true,
		MinLatency:  0,
		Format:      graph.FormatTime,
	})
	if err != nil {
		return fmt.Errorf("create source-adapter: %w", err)
	}
	if err := m.graph.LinkBranch(src, branch); err != nil {
		m.releaseSource(src, log)
		return fmt.Errorf("link source-adapter to %s: %w", branch.Name(), err)
	}
	log.WithField("branch", branch.Name()).Debug("linked source-adapter to branch")

	sink, err := m.pipeline.NewSinkAdapter(graph.SinkConfig{
		Name:             fmt.Sprintf("%s_%s_sink_%d", m.name, path.category, seq),
		StreamID:         path.streamID,
		Sync:             true,
		EmitSignals:      true,
		EnableLastSample: false,
	})
	if err != nil {
		m.releaseSource(src, log)
		return fmt.Errorf("create sink-adapter: %w", err)
	}
	if err := path.pad.Link(sink); err != nil {
		m.dropSink(sink, log)
		m.releaseSource(src, log)
		return fmt.Errorf("link pad to sink-adapter: %w", err)
	}
	log.Debug("linked pad to sink-adapter")

	path.branch = branch
	path.src = src
	path.sink = sink
	return nil
}

// StreamRemoved tears down the path of a removed pad.
// A pad that was never bridged has no peer and is a no-op.
func (m *Manager) StreamRemoved(pad graph.Pad) {
	if pad.Direction() == graph.PadSink {
		return
	}
	log := m.log.WithField("pad", pad.ID())

	path, ok := m.paths.LoadAndDelete(pad.ID())
	if !ok {
		if peer, linked := pad.Peer(); linked {
			log.WithField("peer", peer.Name()).Warn("removed stream is linked to a sink-adapter the manager does not own")
		} else {
			log.Debug("removed stream has no peer")
		}
		return
	}
	m.teardown(path, log.WithFields(logrus.Fields{
		"category": path.category.String(),
		"path_id":  path.id,
	}))
}

// DataReady relays one sample on the path serving streamID.
// Stale notifications for unknown or torn-down paths are dropped.
func (m *Manager) DataReady(streamID string) {
	path, ok := m.paths.Load(streamID)
	if !ok {
		return
	}

	path.mu.Lock()
	defer path.mu.Unlock()
	if path.state != StateBridged {
		return
	}
	res, missingCaps := Relay(path.sink, path.src, m.log.WithField("pad", streamID))
	path.count(res, missingCaps)
}

// Path returns the path serving streamID.
func (m *Manager) Path(streamID string) (*Path, bool) {
	return m.paths.Load(streamID)
}

// Paths returns a snapshot of all live paths ordered by creation time.
func (m *Manager) Paths() []PathInfo {
	infos := make([]PathInfo, 0, m.paths.Size())
	m.paths.Range(func(_ string, p *Path) bool {
		infos = append(infos, p.Info())
		return true
	})
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].StreamID < infos[j].StreamID
		}
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// Len returns the number of live paths.
func (m *Manager) Len() int {
	return m.paths.Size()
}

// Ignored returns how many discovered streams were classified unsupported.
func (m *Manager) Ignored() uint64 {
	return m.ignored.Load()
}

// Close tears down every remaining path.
func (m *Manager) Close() {
	var keys []string
	m.paths.Range(func(k string, _ *Path) bool {
		keys = append(keys, k)
		return true
	})
	for _, k := range keys {
		if path, ok := m.paths.LoadAndDelete(k); ok {
			m.teardown(path, m.log.WithFields(logrus.Fields{"pad": k, "path_id": path.id}))
		}
	}
}

// reportError logs a configuration error and forwards it to OnError.
func (m *Manager) reportError(log *logrus.Entry, err error) {
	log.WithError(err).Error("could not bridge stream")
	if m.onError != nil {
		m.onError(err)
	}
}

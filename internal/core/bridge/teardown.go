// This file implements relay path teardown.
// Phases run in order and each failure is logged without aborting the next phase:
// unlink+lock, stop, detach, release, then the source side.

package bridge

import (
	"github.com/sirupsen/logrus"

	"playerbridge/internal/core/graph"
)

// teardown dismantles a path that was already removed from the path map.
func (m *Manager) teardown(p *Path, log *logrus.Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateTornDown {
		return
	}

	if p.sink != nil {
		m.unlinkPeer(p, log)

		// Locked first so nothing re-syncs the adapter to the Sub-pipeline state mid-removal.
		if !p.sink.SetLocked(true) {
			log.WithField("sink_adapter", p.sink.Name()).Error("could not lock sink-adapter")
		}
		if err := p.sink.SetState(graph.StateNull); err != nil {
			log.WithError(err).WithField("sink_adapter", p.sink.Name()).Error("could not stop sink-adapter")
		}
		m.dropSink(p.sink, log)
	}

	if p.src != nil {
		m.releaseSource(p.src, log)
	}

	p.state = StateTornDown
	log.Info("relay path torn down")
}

// unlinkPeer unlinks the pad from the path's sink-adapter.
// A pad the backend already unlinked is left alone.
func (m *Manager) unlinkPeer(p *Path, log *logrus.Entry) {
	if p.pad == nil {
		return
	}
	peer, linked := p.pad.Peer()
	if !linked {
		log.Debug("stream already unlinked from sink-adapter")
		return
	}
	if peer.Name() != p.sink.Name() {
		log.WithField("peer", peer.Name()).Warn("stream is linked to a sink-adapter outside its path")
		return
	}
	if err := p.pad.Unlink(p.sink); err != nil {
		log.WithError(err).Warn("could not unlink stream from sink-adapter")
	}
}

// dropSink detaches a sink-adapter from the Sub-pipeline and releases it.
func (m *Manager) dropSink(sink graph.SinkAdapter, log *logrus.Entry) {
	log.WithFields(logrus.Fields{
		"sink_adapter": sink.Name(),
		"pipeline":     m.pipeline.Name(),
	}).Debug("removing sink-adapter")

	if err := m.pipeline.RemoveSinkAdapter(sink); err != nil {
		log.WithError(err).WithField("sink_adapter", sink.Name()).Error("could not detach sink-adapter")
	}
	sink.Release()
}

// releaseSource unlinks a source-adapter from its branch and drops it from the graph.
func (m *Manager) releaseSource(src graph.SourceAdapter, log *logrus.Entry) {
	if err := m.graph.ReleaseSourceAdapter(src); err != nil {
		log.WithError(err).WithField("source_adapter", src.Name()).Error("could not release source-adapter")
	}
}

// This file implements the buffer relay: one sample from a sink-adapter into a source-adapter.
// Caps are propagated lazily the first time the source-adapter is found without a format.

package bridge

import (
	"github.com/sirupsen/logrus"

	"playerbridge/internal/core/graph"
)

// RelayResult reports what one relay invocation did.
type RelayResult uint8

const (
	// RelayNoSample means the notification found nothing to pull.
	RelayNoSample RelayResult = iota
	// RelayNoBuffer means the sample carried no payload.
	RelayNoBuffer
	// RelayPushed means the payload was accepted downstream.
	RelayPushed
	// RelayPushFailed means the source-adapter rejected the payload.
	RelayPushFailed
)

// String returns the result name.
func (r RelayResult) String() string {
	switch r {
	case RelayNoSample:
		return "no-sample"
	case RelayNoBuffer:
		return "no-buffer"
	case RelayPushed:
		return "pushed"
	default:
		return "push-failed"
	}
}

// Relay moves one sample from sink to src.
// missingCaps is true when src had no format and the sample could not supply one.
// Nothing is retried; a failed push leaves the path usable for the next sample.
func Relay(sink graph.SinkAdapter, src graph.SourceAdapter, log *logrus.Entry) (res RelayResult, missingCaps bool) {
	sample, ok := sink.Pull()
	if !ok || sample == nil {
		log.Debug("data-ready without sample")
		return RelayNoSample, false
	}

	if src.Caps().IsEmpty() {
		if sample.Caps.IsEmpty() {
			log.WithField("source_adapter", src.Name()).Error("no caps found on sample")
			missingCaps = true
		} else {
			src.SetCaps(sample.Caps)
			log.WithField("caps", sample.Caps.String()).Debug("source-adapter caps set from first sample")
		}
	}

	if sample.Buffer == nil {
		return RelayNoBuffer, missingCaps
	}

	if ret := src.Push(sample.Buffer); ret != graph.FlowOK {
		log.WithFields(logrus.Fields{
			"source_adapter": src.Name(),
			"flow":           ret.String(),
		}).Error("could not push buffer to source-adapter")
		return RelayPushFailed, missingCaps
	}
	return RelayPushed, missingCaps
}

// This file implements the stream classifier.
// A stream's negotiated caps are matched against the audio set first, then the video set.

package classify

import (
	"fmt"

	"playerbridge/internal/core/caps"
	"playerbridge/internal/core/graph"
)

// DefaultAudioCaps lists the formats the audio branch accepts by default.
const DefaultAudioCaps = "audio/x-raw; audio/x-opus; audio/x-vorbis; audio/mpeg; audio/x-flac; " +
	"audio/x-alaw; audio/x-mulaw; audio/x-speex; audio/x-ac3; audio/AMR; audio/AMR-WB; audio/x-sbc"

// DefaultVideoCaps lists the formats the video branch accepts by default.
const DefaultVideoCaps = "video/x-raw; video/x-vp8; video/x-vp9; video/x-h264; video/x-h265; " +
	"video/x-av1; video/x-theora; video/mpeg; video/x-jpeg; image/jpeg"

// Classifier decides which branch a stream belongs to.
// It is immutable and safe for concurrent use.
type Classifier struct {
	audio caps.Caps
	video caps.Caps
}

// New creates a classifier from explicit reference sets.
func New(audio, video caps.Caps) *Classifier {
	return &Classifier{audio: audio, video: video}
}

// Parse creates a classifier from caps strings. Empty strings select the defaults.
func Parse(audio, video string) (*Classifier, error) {
	if audio == "" {
		audio = DefaultAudioCaps
	}
	if video == "" {
		video = DefaultVideoCaps
	}
	a, err := caps.Parse(audio)
	if err != nil {
		return nil, fmt.Errorf("audio reference caps: %w", err)
	}
	v, err := caps.Parse(video)
	if err != nil {
		return nil, fmt.Errorf("video reference caps: %w", err)
	}
	return New(a, v), nil
}

// Default returns a classifier using DefaultAudioCaps and DefaultVideoCaps.
func Default() *Classifier {
	return New(caps.MustParse(DefaultAudioCaps), caps.MustParse(DefaultVideoCaps))
}

// Classify returns the category of a stream. Audio wins over video when both intersect.
func (c *Classifier) Classify(streamCaps caps.Caps) graph.Category {
	if c.audio.CanIntersect(streamCaps) {
		return graph.CategoryAudio
	}
	if c.video.CanIntersect(streamCaps) {
		return graph.CategoryVideo
	}
	return graph.CategoryUnsupported
}

// AudioCaps returns the audio reference set.
func (c *Classifier) AudioCaps() caps.Caps {
	return c.audio
}

// VideoCaps returns the video reference set.
func (c *Classifier) VideoCaps() caps.Caps {
	return c.video
}

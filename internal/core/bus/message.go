// This file defines MediaMessage, the unit a branch fans out to its subscribers.
// A published message is shared read-only by every subscriber that receives it.

package bus

import (
	"time"

	"playerbridge/internal/core/graph"
)

// MessageType is the media category of a message.
type MessageType uint8

const (
	// MessageTypeAudio carries an audio buffer.
	MessageTypeAudio MessageType = iota
	// MessageTypeVideo carries a video buffer.
	MessageTypeVideo
)

// MessageTypeFor maps a branch category to a message type.
// Unsupported categories never reach a branch; they map to audio.
func MessageTypeFor(c graph.Category) MessageType {
	if c == graph.CategoryVideo {
		return MessageTypeVideo
	}
	return MessageTypeAudio
}

// String returns a human-readable representation of the message type.
func (t MessageType) String() string {
	switch t {
	case MessageTypeAudio:
		return "audio"
	case MessageTypeVideo:
		return "video"
	default:
		return "unknown"
	}
}

// MediaMessage is one relayed buffer.
// Ownership: the message is immutable once published; subscribers must not modify it.
type MediaMessage struct {
	Type     MessageType
	Seq      uint64        // Per-branch publish sequence, assigned by Publish
	PTS      time.Duration // Presentation timestamp
	Duration time.Duration
	Caps     string // Caps of the source-adapter that produced the buffer
	Source   string // Source-adapter name
	Payload  []byte
}

// NewMessage copies a graph buffer into a message.
// The copy decouples the message from buffers the producer may reuse.
func NewMessage(t MessageType, buf *graph.Buffer) *MediaMessage {
	msg := &MediaMessage{Type: t}
	if buf == nil {
		return msg
	}
	msg.PTS = buf.PTS
	msg.Duration = buf.Duration
	if len(buf.Data) > 0 {
		msg.Payload = append(make([]byte, 0, len(buf.Data)), buf.Data...)
	}
	return msg
}

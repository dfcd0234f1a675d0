// This file implements the branch feed subscriber that reads from the bus and
// writes WebSocket frames: a text frame whenever the caps change, then one
// binary frame per buffer.

package wsbranch

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"playerbridge/internal/core/bus"
)

// FrameHeaderSize is the length of the header that precedes every binary frame:
// sequence number then PTS in nanoseconds, both big-endian uint64.
const FrameHeaderSize = 16

const writeTimeout = 5 * time.Second

// CapsFrame is the JSON body of a text frame.
type CapsFrame struct {
	Branch string `json:"branch"`
	Type   string `json:"type"`
	Caps   string `json:"caps"`
}

// WebSocketConn defines the interface for WebSocket operations.
// This allows for easier testing and abstraction.
type WebSocketConn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Subscriber relays one branch stream to one WebSocket client.
type Subscriber struct {
	id       string
	conn     WebSocketConn
	stream   *bus.Stream
	busSub   *bus.Subscriber
	lastCaps string
	sent     atomic.Uint64
}

// NewSubscriber creates a feed subscriber.
func NewSubscriber(id string, conn WebSocketConn, stream *bus.Stream) *Subscriber {
	return &Subscriber{id: id, conn: conn, stream: stream}
}

// ID returns the subscriber identifier.
func (s *Subscriber) ID() string { return s.id }

// Sent returns the number of binary frames written.
func (s *Subscriber) Sent() uint64 { return s.sent.Load() }

// Attach attaches the subscriber to the stream.
// Slow clients drop the oldest buffers so the branch never blocks.
func (s *Subscriber) Attach(buffer uint32) {
	s.busSub = s.stream.AttachSubscriber(buffer, bus.BackpressureDropOldest)
}

// Detach detaches the subscriber from the stream.
func (s *Subscriber) Detach() {
	if s.busSub != nil {
		s.stream.DetachSubscriber(s.busSub.ID())
		s.busSub = nil
	}
}

// Run writes queued messages until ctx is cancelled or a write fails.
func (s *Subscriber) Run(ctx context.Context) error {
	if s.busSub == nil {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.busSub.Ready():
		}
		for {
			msg, ok := s.busSub.Next()
			if !ok {
				break
			}
			if err := s.write(msg); err != nil {
				return err
			}
		}
	}
}

func (s *Subscriber) write(msg *bus.MediaMessage) error {
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))

	if msg.Caps != "" && msg.Caps != s.lastCaps {
		body, err := json.Marshal(CapsFrame{
			Branch: s.stream.Key().Branch,
			Type:   msg.Type.String(),
			Caps:   msg.Caps,
		})
		if err != nil {
			return err
		}
		if err := s.conn.WriteMessage(websocket.TextMessage, body); err != nil {
			return err
		}
		s.lastCaps = msg.Caps
	}

	frame := make([]byte, FrameHeaderSize+len(msg.Payload))
	binary.BigEndian.PutUint64(frame[0:8], msg.Seq)
	binary.BigEndian.PutUint64(frame[8:16], uint64(msg.PTS))
	copy(frame[FrameHeaderSize:], msg.Payload)
	if err := s.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return err
	}
	s.sent.Add(1)
	return nil
}

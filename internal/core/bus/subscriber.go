// This file defines Subscriber, one consumer of a branch stream.
// Each subscriber owns a ring buffer and a wakeup channel so a slow consumer never blocks the publisher.

package bus

// Subscriber receives messages from a stream via its ring buffer.
type Subscriber struct {
	id     uint64
	buffer *RingBuffer
	notify chan struct{}
}

// NewSubscriber creates a subscriber with the given buffer capacity and strategy.
func NewSubscriber(id uint64, capacity uint32, strategy BackpressureStrategy) *Subscriber {
	return &Subscriber{
		id:     id,
		buffer: NewRingBuffer(capacity, strategy),
		notify: make(chan struct{}, 1),
	}
}

// ID returns the subscriber identifier, unique within its stream.
func (s *Subscriber) ID() uint64 {
	return s.id
}

// Buffer returns the subscriber's ring buffer.
func (s *Subscriber) Buffer() *RingBuffer {
	return s.buffer
}

// Ready is signalled after at least one message was queued.
// A single signal may cover several messages; drain with Next until it reports false.
func (s *Subscriber) Ready() <-chan struct{} {
	return s.notify
}

// Next reads the oldest queued message.
func (s *Subscriber) Next() (*MediaMessage, bool) {
	return s.buffer.Read()
}

// Process hands up to maxMessages queued messages to fn and returns how many were handled.
func (s *Subscriber) Process(maxMessages int, fn func(*MediaMessage)) int {
	processed := 0
	for processed < maxMessages {
		msg, ok := s.buffer.Read()
		if !ok {
			break
		}
		fn(msg)
		processed++
	}
	return processed
}

// Dropped returns the number of messages dropped due to backpressure.
func (s *Subscriber) Dropped() uint64 {
	return s.buffer.Dropped()
}

func (s *Subscriber) deliver(msg *MediaMessage) {
	s.buffer.Write(msg)
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

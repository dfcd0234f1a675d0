// This file implements the bounded ring buffer that feeds one subscriber.
// Positions are free-running counters; only the slot index is masked. Slots are
// atomic pointers so a drop-oldest write never races a concurrent read of the same slot.

package bus

import (
	"sync/atomic"
)

// BackpressureStrategy defines how the ring buffer handles overflow.
type BackpressureStrategy uint8

const (
	// BackpressureDropOldest discards the oldest queued message to make room.
	BackpressureDropOldest BackpressureStrategy = iota
	// BackpressureDropNewest discards the incoming message.
	BackpressureDropNewest
)

// RingBuffer is a bounded queue of messages for a single writer and a single reader.
type RingBuffer struct {
	slots    []atomic.Pointer[MediaMessage]
	size     uint32
	mask     uint32
	writePos atomic.Uint32
	readPos  atomic.Uint32
	strategy BackpressureStrategy
	dropped  atomic.Uint64
}

// NewRingBuffer creates a ring buffer rounded up to a power-of-two capacity.
func NewRingBuffer(capacity uint32, strategy BackpressureStrategy) *RingBuffer {
	size := uint32(1)
	for size < capacity {
		size <<= 1
	}
	return &RingBuffer{
		slots:    make([]atomic.Pointer[MediaMessage], size),
		size:     size,
		mask:     size - 1,
		strategy: strategy,
	}
}

// Write enqueues msg. It returns false when msg itself was dropped.
func (rb *RingBuffer) Write(msg *MediaMessage) bool {
	if msg == nil {
		return false
	}

	w := rb.writePos.Load()
	if r := rb.readPos.Load(); w-r >= rb.size {
		rb.dropped.Add(1)
		if rb.strategy == BackpressureDropNewest {
			return false
		}
		// Losing the CAS means the reader consumed the oldest slot already.
		rb.readPos.CompareAndSwap(r, r+1)
	}

	rb.slots[w&rb.mask].Store(msg)
	rb.writePos.Store(w + 1)
	return true
}

// Read dequeues the oldest message.
func (rb *RingBuffer) Read() (*MediaMessage, bool) {
	for {
		r := rb.readPos.Load()
		if r == rb.writePos.Load() {
			return nil, false
		}
		msg := rb.slots[r&rb.mask].Load()
		if rb.readPos.CompareAndSwap(r, r+1) {
			return msg, true
		}
	}
}

// Len returns the number of queued messages.
func (rb *RingBuffer) Len() uint32 {
	return rb.writePos.Load() - rb.readPos.Load()
}

// Available returns the number of free slots.
func (rb *RingBuffer) Available() uint32 {
	return rb.size - rb.Len()
}

// Dropped returns the number of messages lost to backpressure.
func (rb *RingBuffer) Dropped() uint64 {
	return rb.dropped.Load()
}

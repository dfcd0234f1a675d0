// This file implements the Stream type that fans a branch out to its subscribers.
// A branch stream accepts any number of publishers, one per relay path linked to it.

package bus

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Stream is the live fan-out point of one branch.
// Lock expectations: mu guards the publisher and subscriber sets; pubMu serializes
// Publish so subscriber buffers keep their single-writer guarantee.
type Stream struct {
	key  StreamKey
	kind MessageType

	mu          sync.RWMutex
	publishers  map[string]struct{}
	subscribers map[uint64]*Subscriber
	nextSubID   uint64

	pubMu     sync.Mutex
	seq       uint64
	published atomic.Uint64
	lastCaps  atomic.Pointer[string]
}

// NewStream creates a stream for the given key carrying messages of type t.
func NewStream(key StreamKey, t MessageType) *Stream {
	return &Stream{
		key:         key,
		kind:        t,
		publishers:  make(map[string]struct{}),
		subscribers: make(map[uint64]*Subscriber),
		nextSubID:   1,
	}
}

// Key returns the stream's key.
func (s *Stream) Key() StreamKey {
	return s.key
}

// Type returns the message type the stream carries.
func (s *Stream) Type() MessageType {
	return s.kind
}

// AttachPublisher registers a publisher by name.
// Returns false if the name is already attached.
func (s *Stream) AttachPublisher(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.publishers[name]; exists {
		return false
	}
	s.publishers[name] = struct{}{}
	return true
}

// DetachPublisher removes a publisher. Returns false if it was not attached.
func (s *Stream) DetachPublisher(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.publishers[name]; !exists {
		return false
	}
	delete(s.publishers, name)
	return true
}

// HasPublisher reports whether the named publisher is attached.
func (s *Stream) HasPublisher(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.publishers[name]
	return ok
}

// Publishers returns the attached publisher names, sorted.
func (s *Stream) Publishers() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.publishers))
	for name := range s.publishers {
		names = append(names, name)
	}
	s.mu.RUnlock()

	sort.Strings(names)
	return names
}

// PublisherCount returns the number of attached publishers.
func (s *Stream) PublisherCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.publishers)
}

// AttachSubscriber attaches a new subscriber to the stream.
func (s *Stream) AttachSubscriber(capacity uint32, strategy BackpressureStrategy) *Subscriber {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++

	sub := NewSubscriber(id, capacity, strategy)
	s.subscribers[id] = sub
	return sub
}

// DetachSubscriber detaches a subscriber from the stream.
func (s *Stream) DetachSubscriber(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscribers, id)
}

// SubscriberCount returns the number of active subscribers.
func (s *Stream) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

// Publish stamps msg with the next sequence number and delivers it to every subscriber.
// Delivery never blocks: full subscriber buffers apply their backpressure strategy.
func (s *Stream) Publish(msg *MediaMessage) {
	if msg == nil {
		return
	}

	s.mu.RLock()
	subs := make([]*Subscriber, 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		subs = append(subs, sub)
	}
	s.mu.RUnlock()

	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.seq++
	msg.Seq = s.seq
	if msg.Caps != "" {
		if last := s.lastCaps.Load(); last == nil || *last != msg.Caps {
			c := msg.Caps
			s.lastCaps.Store(&c)
		}
	}
	for _, sub := range subs {
		sub.deliver(msg)
	}
	s.published.Add(1)
}

// Published returns the number of messages published so far.
func (s *Stream) Published() uint64 {
	return s.published.Load()
}

// LastCaps returns the caps of the most recent message that carried any.
func (s *Stream) LastCaps() string {
	if c := s.lastCaps.Load(); c != nil {
		return *c
	}
	return ""
}

// IsEmpty returns true if the stream has no publishers and no subscribers.
func (s *Stream) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.publishers) == 0 && len(s.subscribers) == 0
}

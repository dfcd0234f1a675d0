// This file contains benchmarks for branch fan-out.

package bus

import (
	"testing"
)

func BenchmarkPublishSingleSubscriber(b *testing.B) {
	s := NewStream(NewStreamKey("player", "video"), MessageTypeVideo)
	sub := s.AttachSubscriber(1024, BackpressureDropOldest)
	msg := &MediaMessage{Type: MessageTypeVideo, Payload: make([]byte, 1024)}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Publish(msg)
		sub.Next()
	}
}

func BenchmarkPublishMultipleSubscribers(b *testing.B) {
	s := NewStream(NewStreamKey("player", "video"), MessageTypeVideo)
	for i := 0; i < 10; i++ {
		s.AttachSubscriber(1000, BackpressureDropOldest)
	}
	msg := &MediaMessage{Type: MessageTypeVideo, Payload: make([]byte, 1024)}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Publish(msg)
	}
}

package adapter

import (
	"context"
	"errors"
	"sync"

	"github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/pubsub/port"
)

// MemoryBroker is an in-process port.Broker. It backs single-node deployments
// that run without Redis and lets tests share one broker between several
// registries to simulate replicas.
type MemoryBroker struct {
	mu       sync.RWMutex
	channels map[string]map[*memorySubscription]struct{}
	closed   bool
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{channels: make(map[string]map[*memorySubscription]struct{})}
}

var _ port.Broker = (*MemoryBroker)(nil)

func (b *MemoryBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return errors.New("memory broker: closed")
	}
	subs := make([]*memorySubscription, 0, len(b.channels[channel]))
	for s := range b.channels[channel] {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	for _, s := range subs {
		s.deliver(payload)
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, channel string) (port.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.New("memory broker: closed")
	}
	set := b.channels[channel]
	if set == nil {
		set = make(map[*memorySubscription]struct{})
		b.channels[channel] = set
	}
	s := &memorySubscription{broker: b, channel: channel, out: make(chan []byte, 64)}
	set[s] = struct{}{}
	return s, nil
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	var subs []*memorySubscription
	for _, set := range b.channels {
		for s := range set {
			subs = append(subs, s)
		}
	}
	b.channels = make(map[string]map[*memorySubscription]struct{})
	b.mu.Unlock()

	for _, s := range subs {
		s.shutdown()
	}
	return nil
}

func (b *MemoryBroker) remove(s *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.channels[s.channel]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(b.channels, s.channel)
		}
	}
}

type memorySubscription struct {
	broker  *MemoryBroker
	channel string
	out     chan []byte
	mu      sync.Mutex
	closed  bool
}

func (s *memorySubscription) deliver(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.out <- payload:
	default:
		// Slow consumer: drop rather than block the publisher.
	}
}

func (s *memorySubscription) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.out)
}

func (s *memorySubscription) Messages() <-chan []byte { return s.out }

func (s *memorySubscription) Close() error {
	s.broker.remove(s)
	s.shutdown()
	return nil
}

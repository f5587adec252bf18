package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	pubsubAdapter "github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/pubsub/adapter"
	pubsub "github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/pubsub/port"
)

type fakeSub struct {
	mu     sync.Mutex
	frames [][]byte
}

func (f *fakeSub) Send(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]byte(nil), payload...)
	f.frames = append(f.frames, cp)
	return nil
}

func (f *fakeSub) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func (f *fakeSub) last() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		return nil
	}
	return f.frames[len(f.frames)-1]
}

// waitCount polls until the subscriber has seen n frames.
func waitCount(t *testing.T, f *fakeSub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if f.count() >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d frames, got %d", n, f.count())
}

func TestBroadcastReachesAllReplicas(t *testing.T) {
	broker := pubsubAdapter.NewMemoryBroker()
	defer broker.Close()

	r1 := NewRegistry(broker, zap.NewNop())
	defer r1.Close()
	r2 := NewRegistry(broker, zap.NewNop())
	defer r2.Close()

	local := &fakeSub{}
	remote := &fakeSub{}
	r1.Register("acc-1", local)
	r2.Register("acc-2", remote)
	r1.Subscribe("conv-1", local)
	r2.Subscribe("conv-1", remote)

	if err := r1.Broadcast(context.Background(), "conv-1", []byte(`{"n":1}`)); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	waitCount(t, local, 1)
	waitCount(t, remote, 1)

	// Exactly once each, including on the replica that published.
	time.Sleep(50 * time.Millisecond)
	if local.count() != 1 || remote.count() != 1 {
		t.Fatalf("expected exactly one frame each, got %d and %d", local.count(), remote.count())
	}
}

func TestMultiDeviceFanOut(t *testing.T) {
	broker := pubsubAdapter.NewMemoryBroker()
	defer broker.Close()

	r := NewRegistry(broker, zap.NewNop())
	defer r.Close()

	phone := &fakeSub{}
	laptop := &fakeSub{}
	r.Register("acc-1", phone)
	r.Register("acc-1", laptop)

	if got := len(r.Connections("acc-1")); got != 2 {
		t.Fatalf("expected 2 connections, got %d", got)
	}

	r.Subscribe("conv-1", phone)
	r.Subscribe("conv-1", laptop)

	if err := r.Broadcast(context.Background(), "conv-1", []byte("hi")); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	waitCount(t, phone, 1)
	waitCount(t, laptop, 1)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	broker := pubsubAdapter.NewMemoryBroker()
	defer broker.Close()

	r := NewRegistry(broker, zap.NewNop())
	defer r.Close()

	stay := &fakeSub{}
	leave := &fakeSub{}
	r.Subscribe("conv-1", stay)
	r.Subscribe("conv-1", leave)

	r.Unsubscribe("conv-1", leave)
	r.Unsubscribe("conv-1", leave) // idempotent

	if err := r.Broadcast(context.Background(), "conv-1", []byte("after")); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	waitCount(t, stay, 1)

	time.Sleep(50 * time.Millisecond)
	if leave.count() != 0 {
		t.Fatalf("expected no frames after unsubscribe, got %d", leave.count())
	}
}

func TestLastUnsubscribeReleasesListenerAndResubscribeWorks(t *testing.T) {
	broker := pubsubAdapter.NewMemoryBroker()
	defer broker.Close()

	r := NewRegistry(broker, zap.NewNop())
	defer r.Close()

	sub := &fakeSub{}
	r.Subscribe("conv-1", sub)
	r.Unsubscribe("conv-1", sub)

	r.mu.RLock()
	_, alive := r.listeners["conv-1"]
	r.mu.RUnlock()
	if alive {
		t.Fatal("expected listener to be released after last unsubscribe")
	}

	again := &fakeSub{}
	r.Subscribe("conv-1", again)
	if err := r.Broadcast(context.Background(), "conv-1", []byte("back")); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	waitCount(t, again, 1)
}

func TestDetachCleansAccountAndConversations(t *testing.T) {
	broker := pubsubAdapter.NewMemoryBroker()
	defer broker.Close()

	r := NewRegistry(broker, zap.NewNop())
	defer r.Close()

	conn := &fakeSub{}
	r.Register("acc-1", conn)
	r.Subscribe("conv-1", conn)
	r.Subscribe("conv-2", conn)

	r.Detach("acc-1", conn)

	if got := len(r.Connections("acc-1")); got != 0 {
		t.Fatalf("expected no connections, got %d", got)
	}
	r.mu.RLock()
	nListeners := len(r.listeners)
	nMemberships := len(r.memberships)
	r.mu.RUnlock()
	if nListeners != 0 {
		t.Fatalf("expected no listeners, got %d", nListeners)
	}
	if nMemberships != 0 {
		t.Fatalf("expected no memberships, got %d", nMemberships)
	}

	if err := r.Broadcast(context.Background(), "conv-1", []byte("gone")); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if conn.count() != 0 {
		t.Fatalf("expected no delivery after detach, got %d", conn.count())
	}
}

// flakyBroker delivers like the memory broker but lets a test cut a channel's
// live subscriptions, simulating a broker-side stream end.
type flakyBroker struct {
	mu    sync.Mutex
	subs  map[string][]*flakySub
	calls map[string]int
}

var _ pubsub.Broker = (*flakyBroker)(nil)

func newFlakyBroker() *flakyBroker {
	return &flakyBroker{subs: make(map[string][]*flakySub), calls: make(map[string]int)}
}

func (b *flakyBroker) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs[channel] {
		s.send(append([]byte(nil), payload...))
	}
	return nil
}

func (b *flakyBroker) Subscribe(_ context.Context, channel string) (pubsub.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := &flakySub{ch: make(chan []byte, 16)}
	b.subs[channel] = append(b.subs[channel], s)
	b.calls[channel]++
	return s, nil
}

func (b *flakyBroker) Close() error { return nil }

func (b *flakyBroker) cut(channel string) {
	b.mu.Lock()
	live := b.subs[channel]
	b.subs[channel] = nil
	b.mu.Unlock()
	for _, s := range live {
		_ = s.Close()
	}
}

func (b *flakyBroker) subscribeCalls(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[channel]
}

type flakySub struct {
	mu     sync.Mutex
	ch     chan []byte
	closed bool
}

func (s *flakySub) Messages() <-chan []byte { return s.ch }

func (s *flakySub) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}

func (s *flakySub) send(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- payload:
	default:
	}
}

func TestListenerResubscribesAfterStreamEnds(t *testing.T) {
	broker := newFlakyBroker()

	r := NewRegistry(broker, zap.NewNop())
	defer r.Close()

	conn := &fakeSub{}
	r.Subscribe("conv-1", conn)

	if err := r.Broadcast(context.Background(), "conv-1", []byte("before")); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	waitCount(t, conn, 1)

	broker.cut("conv-1")

	// With a subscriber still present the listener backs off and opens a
	// fresh subscription.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && broker.subscribeCalls("conv-1") < 2 {
		time.Sleep(10 * time.Millisecond)
	}
	if got := broker.subscribeCalls("conv-1"); got < 2 {
		t.Fatalf("expected a resubscribe after stream end, got %d subscribe calls", got)
	}

	if err := r.Broadcast(context.Background(), "conv-1", []byte("after")); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	waitCount(t, conn, 2)

	// The last unsubscribe ends the loop instead of another resubscribe.
	r.mu.RLock()
	l := r.listeners["conv-1"]
	r.mu.RUnlock()
	if l == nil {
		t.Fatal("expected a live listener before unsubscribe")
	}
	r.Unsubscribe("conv-1", conn)
	select {
	case <-l.done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener loop did not exit after last unsubscribe")
	}
}

func TestSendErrorFrameShape(t *testing.T) {
	broker := pubsubAdapter.NewMemoryBroker()
	defer broker.Close()

	r := NewRegistry(broker, zap.NewNop())
	defer r.Close()

	conn := &fakeSub{}
	r.SendError(conn, "something broke")

	var frame struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(conn.last(), &frame); err != nil {
		t.Fatalf("unmarshal error frame: %v", err)
	}
	if frame.Status != "error" || frame.Message != "something broke" {
		t.Fatalf("unexpected frame: %+v", frame)
	}
}

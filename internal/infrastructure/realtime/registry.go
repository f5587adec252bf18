package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	pubsub "github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/pubsub/port"
)

const (
	listenerBackoffMin = time.Second
	listenerBackoffMax = 30 * time.Second
)

// Subscriber receives fan-out payloads. *Connection satisfies it; tests use
// in-memory fakes. Send must be safe for concurrent use.
type Subscriber interface {
	Send(payload []byte) error
}

// Registry is the process-wide bookkeeping of live connections: which belong
// to which account (multi-device) and which are subscribed to which
// conversation. It bridges the broker to local connections: the first local
// subscriber of a conversation opens a broker subscription and starts a
// listener goroutine; the last one departing tears both down.
//
// Broadcast only publishes to the broker. Local delivery happens exclusively
// through the listener receiving the published message, so every replica,
// including the publishing one, observes the same per-conversation order.
type Registry struct {
	mu            sync.RWMutex
	accounts      map[string]map[Subscriber]struct{} // account id -> connections
	conversations map[string]map[Subscriber]struct{} // conversation id -> connections
	memberships   map[Subscriber]map[string]struct{} // connection -> conversation ids
	listeners     map[string]*listener

	broker pubsub.Broker
	log    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type listener struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRegistry constructs a Registry bound to the broker. Close releases every
// listener it ever started.
func NewRegistry(broker pubsub.Broker, log *zap.Logger) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		accounts:      make(map[string]map[Subscriber]struct{}),
		conversations: make(map[string]map[Subscriber]struct{}),
		memberships:   make(map[Subscriber]map[string]struct{}),
		listeners:     make(map[string]*listener),
		broker:        broker,
		log:           log,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Register adds conn to the account's connection set. Idempotent.
func (r *Registry) Register(accountID string, conn Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.accounts[accountID]
	if set == nil {
		set = make(map[Subscriber]struct{})
		r.accounts[accountID] = set
	}
	set[conn] = struct{}{}
}

// Unregister removes conn from the account's set, dropping the account entry
// once empty.
func (r *Registry) Unregister(accountID string, conn Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if set, ok := r.accounts[accountID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(r.accounts, accountID)
		}
	}
}

// Connections returns the account's live connections.
func (r *Registry) Connections(accountID string) []Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.accounts[accountID]
	if len(set) == 0 {
		return nil
	}
	out := make([]Subscriber, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// Subscribe adds conn to the conversation's connection set. The first local
// subscriber opens the broker subscription synchronously (so a Broadcast right
// after Subscribe is already observable) and starts the listener goroutine.
// Broker failures are logged, never returned: the listener keeps retrying with
// backoff while subscribers remain.
func (r *Registry) Subscribe(conversationID string, conn Subscriber) {
	r.mu.Lock()
	set := r.conversations[conversationID]
	first := set == nil
	if first {
		set = make(map[Subscriber]struct{})
		r.conversations[conversationID] = set
	}
	set[conn] = struct{}{}

	members := r.memberships[conn]
	if members == nil {
		members = make(map[string]struct{})
		r.memberships[conn] = members
	}
	members[conversationID] = struct{}{}

	var lctx context.Context
	var l *listener
	if first {
		var cancel context.CancelFunc
		lctx, cancel = context.WithCancel(r.ctx)
		l = &listener{cancel: cancel, done: make(chan struct{})}
		r.listeners[conversationID] = l
		r.wg.Add(1)
	}
	r.mu.Unlock()

	if !first {
		return
	}

	sub, err := r.broker.Subscribe(lctx, conversationID)
	if err != nil {
		r.log.Warn("broker subscribe failed, retrying in background",
			zap.String("conversation_id", conversationID), zap.Error(err))
		sub = nil
	}
	go r.listen(lctx, conversationID, l, sub)
}

// Unsubscribe removes conn from the conversation's set; the last departure
// cancels the listener and releases the broker subscription. Idempotent.
func (r *Registry) Unsubscribe(conversationID string, conn Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unsubscribeLocked(conversationID, conn)
}

// Detach removes conn from its account entry and from every conversation it
// was subscribed to. Called on transport disconnect.
func (r *Registry) Detach(accountID string, conn Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if set, ok := r.accounts[accountID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(r.accounts, accountID)
		}
	}
	for conversationID := range r.memberships[conn] {
		r.unsubscribeLocked(conversationID, conn)
	}
}

// Broadcast publishes payload to the conversation's broker channel. Delivery
// to local connections happens via the listener only.
func (r *Registry) Broadcast(ctx context.Context, conversationID string, payload []byte) error {
	if err := r.broker.Publish(ctx, conversationID, payload); err != nil {
		r.log.Error("broker publish failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
		return err
	}
	return nil
}

// SendError writes a structured error frame on a single connection. It never
// fails: marshal and transport errors are logged and swallowed.
func (r *Registry) SendError(conn Subscriber, message string) {
	payload, err := json.Marshal(struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}{Status: "error", Message: message})
	if err != nil {
		r.log.Error("marshal error frame", zap.Error(err))
		return
	}
	if err := conn.Send(payload); err != nil {
		r.log.Debug("error frame dropped, connection gone", zap.Error(err))
	}
}

// Close cancels every listener and waits for them to exit.
func (r *Registry) Close() {
	r.cancel()
	r.wg.Wait()

	r.mu.Lock()
	r.accounts = make(map[string]map[Subscriber]struct{})
	r.conversations = make(map[string]map[Subscriber]struct{})
	r.memberships = make(map[Subscriber]map[string]struct{})
	r.listeners = make(map[string]*listener)
	r.mu.Unlock()
}

func (r *Registry) unsubscribeLocked(conversationID string, conn Subscriber) {
	if set, ok := r.conversations[conversationID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(r.conversations, conversationID)
			if l, ok := r.listeners[conversationID]; ok {
				l.cancel()
				delete(r.listeners, conversationID)
			}
		}
	}
	if members, ok := r.memberships[conn]; ok {
		delete(members, conversationID)
		if len(members) == 0 {
			delete(r.memberships, conn)
		}
	}
}

// listen drains the conversation's broker subscription and relays payloads to
// all locally subscribed connections. A broker-side stream end while local
// subscribers remain triggers re-subscribe with capped backoff.
func (r *Registry) listen(ctx context.Context, conversationID string, l *listener, sub pubsub.Subscription) {
	defer r.wg.Done()
	defer close(l.done)

	backoff := listenerBackoffMin
	for {
		if sub != nil {
			r.drain(ctx, conversationID, sub)
			_ = sub.Close()
			sub = nil
			backoff = listenerBackoffMin
		}

		if ctx.Err() != nil {
			return
		}
		r.log.Warn("conversation stream ended, resubscribing",
			zap.String("conversation_id", conversationID), zap.Duration("backoff", backoff))

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < listenerBackoffMax {
			backoff *= 2
		}

		s, err := r.broker.Subscribe(ctx, conversationID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.log.Warn("broker resubscribe failed",
				zap.String("conversation_id", conversationID), zap.Error(err))
			continue
		}
		sub = s
	}
}

func (r *Registry) drain(ctx context.Context, conversationID string, sub pubsub.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-sub.Messages():
			if !ok {
				return
			}
			r.fanOut(conversationID, payload)
		}
	}
}

func (r *Registry) fanOut(conversationID string, payload []byte) {
	r.mu.RLock()
	conns := make([]Subscriber, 0, len(r.conversations[conversationID]))
	for c := range r.conversations[conversationID] {
		conns = append(conns, c)
	}
	r.mu.RUnlock()

	for _, c := range conns {
		if err := c.Send(payload); err != nil {
			r.log.Debug("payload dropped, connection gone",
				zap.String("conversation_id", conversationID), zap.Error(err))
		}
	}
}

package adapter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/pubsub/port"
)

// RedisBroker satisfies port.Broker using Redis pub/sub. Publish order per
// channel is Redis' delivery order, which gives every replica the same view.
type RedisBroker struct {
	client *redis.Client
}

// NewRedisBroker constructs a RedisBroker from the REDIS_URL environment variable.
func NewRedisBroker() (*RedisBroker, error) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		return nil, errors.New("redis broker: REDIS_URL environment variable is not set")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis broker: parse url: %w", err)
	}
	c := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis broker: ping: %w", err)
	}
	return &RedisBroker{client: c}, nil
}

var _ port.Broker = (*RedisBroker)(nil)

func (b *RedisBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	return b.client.Publish(ctx, channel, payload).Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context, channel string) (port.Subscription, error) {
	ps := b.client.Subscribe(ctx, channel)
	// Force the SUBSCRIBE round trip so a successful return means the broker
	// is already delivering to us.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis broker: subscribe %q: %w", channel, err)
	}

	sub := &redisSubscription{ps: ps, out: make(chan []byte, 64), done: make(chan struct{})}
	go sub.pump()
	return sub, nil
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}

type redisSubscription struct {
	ps        *redis.PubSub
	out       chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (s *redisSubscription) pump() {
	defer close(s.out)
	for msg := range s.ps.Channel() {
		if !s.forward([]byte(msg.Payload)) {
			return
		}
	}
}

// forward hands the payload to the consumer, giving up once the subscription
// is closed so a stalled consumer cannot strand the pump goroutine.
func (s *redisSubscription) forward(payload []byte) bool {
	select {
	case s.out <- payload:
		return true
	case <-s.done:
		return false
	}
}

func (s *redisSubscription) Messages() <-chan []byte { return s.out }

func (s *redisSubscription) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return s.ps.Close()
}

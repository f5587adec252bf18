package port

import "context"

// Subscription is one open channel subscription on the broker. Messages
// delivers payloads in broker publish order; the channel is closed when the
// subscription terminates, either via Close or a broker-side failure. Callers
// that still need the stream after an unexpected close are expected to
// re-subscribe.
type Subscription interface {
	Messages() <-chan []byte
	Close() error
}

// Broker is the publish/subscribe fan-out contract. One channel per
// conversation: the stringified conversation id is the channel name. All
// replicas sharing a broker observe the same per-channel publish order.
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (Subscription, error)
	Close() error
}

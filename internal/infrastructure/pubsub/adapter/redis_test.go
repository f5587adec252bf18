package adapter

import (
	"testing"
	"time"
)

func TestRedisSubscriptionForwardDelivers(t *testing.T) {
	s := &redisSubscription{out: make(chan []byte, 1), done: make(chan struct{})}

	if !s.forward([]byte("hello")) {
		t.Fatal("expected forward to succeed with buffer space")
	}
	if got := string(recvOne(t, s.out)); got != "hello" {
		t.Fatalf("expected hello, got %q", got)
	}
}

func TestRedisSubscriptionForwardUnblocksOnClose(t *testing.T) {
	// Unbuffered out with no consumer: forward can only return via done.
	s := &redisSubscription{out: make(chan []byte), done: make(chan struct{})}

	result := make(chan bool, 1)
	go func() { result <- s.forward([]byte("stuck")) }()

	time.Sleep(20 * time.Millisecond)
	close(s.done)

	select {
	case ok := <-result:
		if ok {
			t.Fatal("expected forward to report the subscription as closed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("forward stayed blocked after close")
	}
}

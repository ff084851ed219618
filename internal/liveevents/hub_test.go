package liveevents

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestHub() *Hub {
	return &Hub{
		subs:             make(map[uint64]chan Event),
		subscriberBuffer: 4,
	}
}

func TestSubscriberReceivesEventsAfterSubscribe(t *testing.T) {
	hub := newTestHub()

	hub.Publish(Event{Type: TypeClick, ShortCode: "before"})

	sub := hub.Subscribe()
	defer sub.Close()

	hub.Publish(Event{Type: TypeClick, ShortCode: "after"})

	select {
	case event := <-sub.Events():
		assert.Equal(t, "after", event.ShortCode)
		assert.False(t, event.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("expected event was not delivered")
	}

	// No replay: the pre-subscribe event must not arrive.
	select {
	case event := <-sub.Events():
		t.Fatalf("unexpected event %q", event.ShortCode)
	default:
	}
}

func TestSlowSubscriberDoesNotBlockOthers(t *testing.T) {
	hub := newTestHub()

	slow := hub.Subscribe()
	defer slow.Close()
	fast := hub.Subscribe()
	defer fast.Close()

	// Overflow the slow subscriber's buffer; publishes must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Publish(Event{Type: TypeClick})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	received := 0
	for {
		select {
		case <-fast.Events():
			received++
			continue
		default:
		}
		break
	}
	assert.Greater(t, received, 0)
}

func TestCloseRemovesSubscription(t *testing.T) {
	hub := newTestHub()

	sub := hub.Subscribe()
	assert.Equal(t, 1, hub.SubscriberCount())

	sub.Close()
	sub.Close() // idempotent
	assert.Equal(t, 0, hub.SubscriberCount())
}

func TestConcurrentSubscribePublishUnsubscribe(t *testing.T) {
	hub := newTestHub()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sub := hub.Subscribe()
			time.Sleep(time.Millisecond)
			sub.Close()
		}()
		go func() {
			defer wg.Done()
			hub.Publish(Event{Type: TypeConversion})
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, hub.SubscriberCount())
}

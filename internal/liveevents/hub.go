// Package liveevents fans click and conversion events out to open
// dashboard streams. Delivery is best-effort: events published while no
// subscriber is connected are dropped, history lives in the rollup tables.
package liveevents

import (
	"context"
	"sync"
	"time"

	"github.com/linkpulse/linkpulse/internal/config"
	"go.uber.org/fx"
)

const (
	TypeClick      = "click"
	TypeConversion = "conversion"
	TypeHeartbeat  = "heartbeat"
	TypeConnected  = "connected"
)

const DefaultSubscriberBuffer = 16

// Module provides the hub and starts the heartbeat loop.
var Module = fx.Module("liveevents",
	fx.Provide(NewHub),
	fx.Invoke(runHeartbeat),
)

// Event is the ephemeral payload delivered to dashboard subscribers.
type Event struct {
	Type       string    `json:"type"`
	LinkID     string    `json:"link_id,omitempty"`
	ShortCode  string    `json:"short_code,omitempty"`
	Title      string    `json:"title,omitempty"`
	DeviceType string    `json:"device_type,omitempty"`
	Source     string    `json:"source,omitempty"`
	Value      float64   `json:"value,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Hub is a single broadcast stream with ephemeral subscribers.
type Hub struct {
	mu               sync.RWMutex
	subs             map[uint64]chan Event
	nextID           uint64
	subscriberBuffer int
}

type Subscription struct {
	hub  *Hub
	id   uint64
	ch   chan Event
	once sync.Once
}

func NewHub(holder *config.TrackingConfigHolder) *Hub {
	buffer := DefaultSubscriberBuffer
	if holder != nil {
		if b := holder.Get().SubscriberBuffer; b > 0 {
			buffer = b
		}
	}
	return &Hub{
		subs:             make(map[uint64]chan Event),
		subscriberBuffer: buffer,
	}
}

// Publish delivers event to every current subscriber. A full subscriber
// channel drops the event rather than blocking the publisher.
func (h *Hub) Publish(event Event) {
	if h == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	h.mu.RLock()
	subs := make([]chan Event, 0, len(h.subs))
	for _, ch := range h.subs {
		subs = append(subs, ch)
	}
	h.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe registers a new stream. Events published before the call are
// not replayed.
func (h *Hub) Subscribe() *Subscription {
	if h == nil {
		return nil
	}

	ch := make(chan Event, h.subscriberBuffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	return &Subscription{hub: h, id: id, ch: ch}
}

// SubscriberCount reports the number of open streams.
func (h *Hub) SubscriberCount() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) unsubscribe(id uint64) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

func (s *Subscription) Events() <-chan Event {
	if s == nil {
		return nil
	}
	return s.ch
}

func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.once.Do(func() {
		s.hub.unsubscribe(s.id)
	})
}

// runHeartbeat publishes a synthetic heartbeat on the configured interval
// so subscribers can detect bus liveness and keep idle connections open.
func runHeartbeat(lc fx.Lifecycle, hub *Hub, holder *config.TrackingConfigHolder) {
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				interval := holder.Get().HeartbeatInterval()
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					select {
					case <-done:
						return
					case <-ticker.C:
						hub.Publish(Event{Type: TypeHeartbeat})
						if next := holder.Get().HeartbeatInterval(); next != interval {
							interval = next
							ticker.Reset(interval)
						}
					}
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			close(done)
			return nil
		},
	})
}

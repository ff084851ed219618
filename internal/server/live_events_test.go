package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/linkpulse/linkpulse/internal/liveevents"
	"github.com/stretchr/testify/assert"
)

func TestStreamLiveEvents(t *testing.T) {
	srv, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/stats/live", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.engine.ServeHTTP(rec, req)
	}()

	// Give the handler time to subscribe before publishing.
	deadline := time.Now().Add(2 * time.Second)
	for srv.liveEvents.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("handler never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	srv.liveEvents.Publish(liveevents.Event{
		Type:      liveevents.TypeClick,
		ShortCode: "demo",
	})

	// Let the event flush, then tear the connection down.
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not stop on disconnect")
	}

	body := rec.Body.String()
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/event-stream")
	assert.Contains(t, body, `"type":"connected"`)
	assert.Contains(t, body, `"type":"click"`)
	assert.Contains(t, body, `"short_code":"demo"`)
}

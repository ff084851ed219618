package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/linkpulse/linkpulse/internal/liveevents"
)

// StreamLiveEvents serves the dashboard's long-lived SSE connection.
// The subscriber gets a confirmation event immediately, then every
// click, conversion, and heartbeat published after it joined.
func (s *Server) StreamLiveEvents(c *gin.Context) {
	if s.liveEvents == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	writer := c.Writer
	flusher, ok := writer.(http.Flusher)
	if !ok {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	sub := s.liveEvents.Subscribe()
	defer sub.Close()

	if s.obsMetrics != nil {
		s.obsMetrics.SubscriberConnected(c.Request.Context())
		defer s.obsMetrics.SubscriberDisconnected(c.Request.Context())
	}

	headers := writer.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	if _, err := io.WriteString(writer, "retry: 2000\n\n"); err != nil {
		return
	}
	connected := liveevents.Event{
		Type:      liveevents.TypeConnected,
		Timestamp: time.Now().UTC(),
	}
	if err := writeLiveEvent(writer, connected); err != nil {
		return
	}
	flusher.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := writeLiveEvent(writer, event); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeLiveEvent(w io.Writer, event liveevents.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

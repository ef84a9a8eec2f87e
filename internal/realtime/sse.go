package realtime

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mcoot/wagerlobby/internal/model"
)

const (
	// Time between keepalive pings
	pingPeriod = 30 * time.Second
)

// ServeSSE streams the player's events as server-sent events until the
// client disconnects or the broker stops
func ServeSSE(w http.ResponseWriter, r *http.Request, broker *Broker, playerID model.PlayerID, logger *slog.Logger) {
	// Check if SSE is supported
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub, err := broker.Subscribe(playerID)
	if err != nil {
		http.Error(w, "Event stream unavailable", http.StatusServiceUnavailable)
		return
	}
	defer broker.Unsubscribe(sub)

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)

	_, _ = fmt.Fprintf(w, "event: connected\ndata: {\"subscription_id\":%q}\n\n", sub.ID)
	flusher.Flush()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case evt, ok := <-sub.Events():
			if !ok {
				// Broker closed the subscription
				return
			}
			data, err := MarshalEvent(evt)
			if err != nil {
				logger.Error("failed to encode event",
					slog.String("event_type", string(evt.Type)),
					slog.Any("error", err))
				continue
			}
			if _, err := w.Write(formatSSEMessage(evt, data)); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// formatSSEMessage frames one event. Encoded JSON never contains raw newlines.
func formatSSEMessage(evt model.Event, data []byte) []byte {
	return []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", evt.Seq, evt.Type, data))
}

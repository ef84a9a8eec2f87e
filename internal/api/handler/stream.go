package handler

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/wagerlobby/internal/api/middleware"
	"github.com/mcoot/wagerlobby/internal/api/response"
	"github.com/mcoot/wagerlobby/internal/realtime"
)

// StreamHandler serves the real-time event streams
type StreamHandler struct {
	broker *realtime.Broker
	logger *slog.Logger
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(broker *realtime.Broker, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		broker: broker,
		logger: logger.With(slog.String("component", "stream")),
	}
}

// Events handles GET /api/v1/events (server-sent events)
func (h *StreamHandler) Events(w http.ResponseWriter, r *http.Request) {
	playerID := middleware.MustGetPlayerID(r.Context())
	realtime.ServeSSE(w, r, h.broker, playerID, h.logger)
}

// WebSocket handles GET /api/v1/ws
func (h *StreamHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	playerID := middleware.MustGetPlayerID(r.Context())
	realtime.ServeWS(w, r, h.broker, playerID, h.logger)
}

// Health handles GET /api/v1/health
func (h *StreamHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{
		Status:      "ok",
		Subscribers: h.broker.SubscriberCount(),
	})
}

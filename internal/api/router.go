package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/wagerlobby/internal/api/handler"
	"github.com/mcoot/wagerlobby/internal/api/middleware"
	"github.com/mcoot/wagerlobby/internal/realtime"
	"github.com/mcoot/wagerlobby/internal/services/archive"
	"github.com/mcoot/wagerlobby/internal/services/auth"
	"github.com/mcoot/wagerlobby/internal/services/balance"
	"github.com/mcoot/wagerlobby/internal/services/lobby"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger          *slog.Logger
	AuthService     *auth.Service
	LobbyController *lobby.Controller
	Balance         *balance.Gateway
	Archiver        *archive.Archiver
	Broker          *realtime.Broker
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	sessionHandler := handler.NewSessionHandler(cfg.AuthService)
	playerHandler := handler.NewPlayerHandler(cfg.Balance, cfg.LobbyController, cfg.Archiver)
	roomHandler := handler.NewRoomHandler(cfg.LobbyController)
	historyHandler := handler.NewHistoryHandler(cfg.Archiver)
	streamHandler := handler.NewStreamHandler(cfg.Broker, cfg.Logger)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.AuthService)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Public routes
	api.HandleFunc("/health", streamHandler.Health).Methods(http.MethodGet)
	api.HandleFunc("/session", sessionHandler.Bootstrap).Methods(http.MethodPost)
	api.HandleFunc("/rooms", roomHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{id}", roomHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/history/rounds", historyHandler.ListRounds).Methods(http.MethodGet)

	// Authenticated routes
	protected := api.NewRoute().Subrouter()
	protected.Use(authMiddleware)
	protected.HandleFunc("/players/me", playerHandler.GetMe).Methods(http.MethodGet)
	protected.HandleFunc("/players/me/seat", playerHandler.GetSeat).Methods(http.MethodGet)
	protected.HandleFunc("/players/me/rewards", playerHandler.GetRewards).Methods(http.MethodGet)
	protected.HandleFunc("/join", roomHandler.Join).Methods(http.MethodPost)
	protected.HandleFunc("/events", streamHandler.Events).Methods(http.MethodGet)
	protected.HandleFunc("/ws", streamHandler.WebSocket).Methods(http.MethodGet)

	return r
}

package handler

import (
	"net/http"

	"github.com/mcoot/wagerlobby/internal/api/middleware"
	"github.com/mcoot/wagerlobby/internal/api/request"
	"github.com/mcoot/wagerlobby/internal/api/response"
	"github.com/mcoot/wagerlobby/internal/services/archive"
	"github.com/mcoot/wagerlobby/internal/services/balance"
	"github.com/mcoot/wagerlobby/internal/services/lobby"
)

// PlayerHandler handles endpoints about the authenticated player
type PlayerHandler struct {
	balance  *balance.Gateway
	lobby    *lobby.Controller
	archiver *archive.Archiver
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(gateway *balance.Gateway, lobbyController *lobby.Controller, archiver *archive.Archiver) *PlayerHandler {
	return &PlayerHandler{
		balance:  gateway,
		lobby:    lobbyController,
		archiver: archiver,
	}
}

// GetMe handles GET /api/v1/players/me
func (h *PlayerHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	playerID := middleware.MustGetPlayerID(r.Context())

	player, err := h.balance.Get(r.Context(), playerID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerFromModel(player))
}

// GetSeat handles GET /api/v1/players/me/seat
func (h *PlayerHandler) GetSeat(w http.ResponseWriter, r *http.Request) {
	playerID := middleware.MustGetPlayerID(r.Context())

	room, ok := h.lobby.MySeat(playerID)
	if !ok {
		response.JSON(w, http.StatusOK, response.SeatResponse{Seated: false})
		return
	}

	view := response.RoomFromModel(room)
	response.JSON(w, http.StatusOK, response.SeatResponse{Seated: true, Room: &view})
}

// GetRewards handles GET /api/v1/players/me/rewards
func (h *PlayerHandler) GetRewards(w http.ResponseWriter, r *http.Request) {
	playerID := middleware.MustGetPlayerID(r.Context())

	rewards, err := h.archiver.RewardsFor(r.Context(), playerID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RewardsFromModel(rewards))
}

// HistoryHandler serves the public round history
type HistoryHandler struct {
	archiver *archive.Archiver
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(archiver *archive.Archiver) *HistoryHandler {
	return &HistoryHandler{archiver: archiver}
}

// defaultHistoryLimit applies when the client sends no limit
const defaultHistoryLimit = 20

// ListRounds handles GET /api/v1/history/rounds
func (h *HistoryHandler) ListRounds(w http.ResponseWriter, r *http.Request) {
	q, err := request.ParseHistoryQuery(r, defaultHistoryLimit)
	if err != nil {
		WriteError(w, err)
		return
	}
	if q.Limit == 0 {
		q.Limit = defaultHistoryLimit
	}

	rounds, err := h.archiver.RecentRounds(r.Context(), q.Limit)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoundsFromModel(rounds))
}

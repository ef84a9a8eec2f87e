package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/wagerlobby/internal/api/middleware"
	"github.com/mcoot/wagerlobby/internal/api/request"
	"github.com/mcoot/wagerlobby/internal/api/response"
	"github.com/mcoot/wagerlobby/internal/model"
	"github.com/mcoot/wagerlobby/internal/services/lobby"
)

// RoomHandler handles room listing and seating
type RoomHandler struct {
	lobby *lobby.Controller
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(lobbyController *lobby.Controller) *RoomHandler {
	return &RoomHandler{
		lobby: lobbyController,
	}
}

// List handles GET /api/v1/rooms
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.RoomsFromListings(h.lobby.ListRooms()))
}

// Get handles GET /api/v1/rooms/{id}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.RoomID(mux.Vars(r)["id"])

	room, err := h.lobby.DescribeRoom(id)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomFromModel(room))
}

// Join handles POST /api/v1/join
func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	playerID := middleware.MustGetPlayerID(r.Context())

	var req request.JoinRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.PlayerID != "" && model.PlayerID(req.PlayerID) != playerID {
		WriteError(w, NewInvalidRequestError("player_id does not match the session"))
		return
	}

	result, err := h.lobby.Join(r.Context(), lobby.JoinRequest{
		PlayerID: playerID,
		Tier:     model.TierName(req.Tier),
		Bet:      req.Bet,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.JoinFromResult(result))
}

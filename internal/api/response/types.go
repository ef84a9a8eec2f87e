package response

import (
	"time"

	"github.com/samber/lo"

	"github.com/mcoot/wagerlobby/internal/model"
	"github.com/mcoot/wagerlobby/internal/services/auth"
	"github.com/mcoot/wagerlobby/internal/services/lobby"
)

// Player represents the authenticated player's own profile
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Handle      string `json:"handle,omitempty"`
	Balance     int64  `json:"balance"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	return Player{
		ID:          string(p.ID),
		DisplayName: p.DisplayName,
		Handle:      p.Handle,
		Balance:     p.Balance,
	}
}

// SessionResponse is the response for session bootstrap
type SessionResponse struct {
	Player       Player    `json:"player"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Created      bool      `json:"created"`
}

// SessionFromAuth creates a SessionResponse from a session
func SessionFromAuth(s *auth.Session) SessionResponse {
	return SessionResponse{
		Player:       PlayerFromModel(&s.Player),
		SessionToken: s.Token,
		ExpiresAt:    s.ExpiresAt,
		Created:      s.Created,
	}
}

// TierParams describes the limits of a tier
type TierParams struct {
	Name     string `json:"name"`
	MinBet   int64  `json:"min_bet"`
	MaxBet   int64  `json:"max_bet"`
	Capacity int    `json:"capacity"`
}

// RoomListing is one entry of the lobby listing
type RoomListing struct {
	ID         string     `json:"id"`
	Tier       string     `json:"tier"`
	SeatsCount int        `json:"seats_count"`
	Capacity   int        `json:"capacity"`
	Status     string     `json:"status"`
	Pot        int64      `json:"pot"`
	RoundSeq   int64      `json:"round_seq"`
	TierParams TierParams `json:"tier_params"`
}

// RoomsResponse is the response for listing rooms
type RoomsResponse struct {
	Rooms []RoomListing `json:"rooms"`
}

// RoomsFromListings converts lobby listings
func RoomsFromListings(listings []lobby.RoomListing) RoomsResponse {
	return RoomsResponse{
		Rooms: lo.Map(listings, func(l lobby.RoomListing, _ int) RoomListing {
			return RoomListing{
				ID:         string(l.ID),
				Tier:       string(l.Tier),
				SeatsCount: l.SeatsCount,
				Capacity:   l.Capacity,
				Status:     string(l.Status),
				Pot:        l.Pot,
				RoundSeq:   l.RoundSeq,
				TierParams: TierParams{
					Name:     string(l.TierParams.Name),
					MinBet:   l.TierParams.MinBet,
					MaxBet:   l.TierParams.MaxBet,
					Capacity: l.TierParams.Capacity,
				},
			}
		}),
	}
}

// Seat is the public view of a seat
type Seat struct {
	PlayerID    string    `json:"player_id"`
	DisplayName string    `json:"display_name"`
	Handle      string    `json:"handle,omitempty"`
	Bet         int64     `json:"bet"`
	JoinedAt    time.Time `json:"joined_at"`
}

// SeatFromModel converts a model.Seat
func SeatFromModel(s model.Seat) Seat {
	return Seat{
		PlayerID:    string(s.PlayerID),
		DisplayName: s.DisplayName,
		Handle:      s.Handle,
		Bet:         s.Bet,
		JoinedAt:    s.JoinedAt,
	}
}

func seatsFromModel(seats []model.Seat) []Seat {
	return lo.Map(seats, func(s model.Seat, _ int) Seat { return SeatFromModel(s) })
}

// Room is the full view of a live room
type Room struct {
	ID        string     `json:"id"`
	Tier      string     `json:"tier"`
	Status    string     `json:"status"`
	Capacity  int        `json:"capacity"`
	Seats     []Seat     `json:"seats"`
	Pot       int64      `json:"pot"`
	RoundSeq  int64      `json:"round_seq"`
	Winner    *Seat      `json:"winner,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ArmedAt   *time.Time `json:"armed_at,omitempty"`
}

// RoomFromModel converts a model.Room
func RoomFromModel(r *model.Room) Room {
	room := Room{
		ID:        string(r.ID),
		Tier:      string(r.Tier),
		Status:    string(r.Status),
		Capacity:  r.Capacity,
		Seats:     seatsFromModel(r.Seats),
		Pot:       r.Pot,
		RoundSeq:  r.RoundSeq,
		CreatedAt: r.CreatedAt,
	}
	if r.Winner != nil {
		w := SeatFromModel(*r.Winner)
		room.Winner = &w
	}
	if !r.ArmedAt.IsZero() {
		armedAt := r.ArmedAt
		room.ArmedAt = &armedAt
	}
	return room
}

// JoinResponse is the response for a successful join
type JoinResponse struct {
	RoomID         string `json:"room_id"`
	Tier           string `json:"tier"`
	Position       int    `json:"position"`
	SeatsRemaining int    `json:"seats_remaining"`
}

// JoinFromResult converts a lobby.JoinResult
func JoinFromResult(res *lobby.JoinResult) JoinResponse {
	return JoinResponse{
		RoomID:         string(res.RoomID),
		Tier:           string(res.Tier),
		Position:       res.Position,
		SeatsRemaining: res.SeatsRemaining,
	}
}

// SeatResponse reports the room a player is seated in, if any
type SeatResponse struct {
	Seated bool  `json:"seated"`
	Room   *Room `json:"room,omitempty"`
}

// Reward is one of the player's own reward records
type Reward struct {
	RoomID       string    `json:"room_id"`
	Tier         string    `json:"tier"`
	RewardHandle string    `json:"reward_handle"`
	Bet          int64     `json:"bet"`
	Pot          int64     `json:"pot"`
	RoundSeq     int64     `json:"round_seq"`
	WonAt        time.Time `json:"won_at"`
}

// RewardsResponse is the response for the reward history
type RewardsResponse struct {
	Rewards []Reward `json:"rewards"`
}

// RewardsFromModel converts reward records
func RewardsFromModel(records []model.RewardRecord) RewardsResponse {
	return RewardsResponse{
		Rewards: lo.Map(records, func(r model.RewardRecord, _ int) Reward {
			return Reward{
				RoomID:       string(r.RoomID),
				Tier:         string(r.Tier),
				RewardHandle: r.RewardHandle,
				Bet:          r.Bet,
				Pot:          r.Pot,
				RoundSeq:     r.RoundSeq,
				WonAt:        r.WonAt,
			}
		}),
	}
}

// ArchivedRound is one settled round from the archive
type ArchivedRound struct {
	RoomID    string    `json:"room_id"`
	Tier      string    `json:"tier"`
	RoundSeq  int64     `json:"round_seq"`
	Seats     []Seat    `json:"seats"`
	Winner    Seat      `json:"winner"`
	Pot       int64     `json:"pot"`
	SettledAt time.Time `json:"settled_at"`
}

// RoundsResponse is the response for the round history
type RoundsResponse struct {
	Rounds []ArchivedRound `json:"rounds"`
}

// RoundsFromModel converts archived rounds
func RoundsFromModel(rounds []model.ArchivedRound) RoundsResponse {
	return RoundsResponse{
		Rounds: lo.Map(rounds, func(r model.ArchivedRound, _ int) ArchivedRound {
			return ArchivedRound{
				RoomID:    string(r.RoomID),
				Tier:      string(r.Tier),
				RoundSeq:  r.RoundSeq,
				Seats:     seatsFromModel(r.Seats),
				Winner:    SeatFromModel(r.Winner),
				Pot:       r.Pot,
				SettledAt: r.SettledAt,
			}
		}),
	}
}

// Health is the response for the health check
type Health struct {
	Status      string `json:"status"`
	Subscribers int    `json:"subscribers"`
}

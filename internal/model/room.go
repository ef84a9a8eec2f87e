package model

import "time"

// RoomID uniquely identifies a round in progress or awaiting players
type RoomID string

// RoomStatus represents where a room is in its lifecycle
type RoomStatus string

const (
	RoomStatusOpen    RoomStatus = "open"    // Accepting seats
	RoomStatusArmed   RoomStatus = "armed"   // Full, round executor pending
	RoomStatusDrawing RoomStatus = "drawing" // Suspense interval running
	RoomStatusSettled RoomStatus = "settled" // Winner chosen
	RoomStatusRotated RoomStatus = "rotated" // Successor installed, room gone
)

// Seat is one player's paid place in a room. Immutable once created.
type Seat struct {
	PlayerID    PlayerID
	DisplayName string
	Handle      string
	Bet         int64
	JoinedAt    time.Time
}

// Room is a round in progress or awaiting players
type Room struct {
	ID        RoomID
	Tier      TierName
	Capacity  int
	Status    RoomStatus
	Seats     []Seat
	Pot       int64
	RoundSeq  int64
	Winner    *Seat // set once Settled
	CreatedAt time.Time
	ArmedAt   time.Time
	SettledAt time.Time
}

// Clone returns a deep copy safe to hand out of the registry
func (r *Room) Clone() *Room {
	c := *r
	c.Seats = make([]Seat, len(r.Seats))
	copy(c.Seats, r.Seats)
	if r.Winner != nil {
		w := *r.Winner
		c.Winner = &w
	}
	return &c
}

// SeatFor returns the seat held by the player, or nil
func (r *Room) SeatFor(playerID PlayerID) *Seat {
	for i := range r.Seats {
		if r.Seats[i].PlayerID == playerID {
			return &r.Seats[i]
		}
	}
	return nil
}

// SeatsRemaining returns how many seats are still free
func (r *Room) SeatsRemaining() int {
	return r.Capacity - len(r.Seats)
}

// Summary returns the lobby-listing view of the room
func (r *Room) Summary() RoomSummary {
	return RoomSummary{
		ID:         r.ID,
		Tier:       r.Tier,
		Status:     r.Status,
		SeatsCount: len(r.Seats),
		Capacity:   r.Capacity,
		Pot:        r.Pot,
		RoundSeq:   r.RoundSeq,
	}
}

// RoomSummary is one entry of the lobby listing
type RoomSummary struct {
	ID         RoomID
	Tier       TierName
	Status     RoomStatus
	SeatsCount int
	Capacity   int
	Pot        int64
	RoundSeq   int64
}

// SeatPlacement is the result of a successful join
type SeatPlacement struct {
	RoomID         RoomID
	Tier           TierName
	Position       int // 1-based seat index
	SeatsRemaining int
	Pot            int64 // room pot including this seat
	Armed          bool
}

package model

import "time"

// RewardRecord is the private prize issued to a round winner. Append-only.
type RewardRecord struct {
	PlayerID     PlayerID
	Tier         TierName
	RoomID       RoomID
	RewardHandle string
	Bet          int64
	Pot          int64
	RoundSeq     int64
	WonAt        time.Time
}

// ArchivedRound is a full snapshot of a room at settlement. Append-only.
type ArchivedRound struct {
	RoomID    RoomID
	Tier      TierName
	RoundSeq  int64
	Seats     []Seat
	Winner    Seat
	Pot       int64
	CreatedAt time.Time
	ArmedAt   time.Time
	SettledAt time.Time
}

// NewArchivedRound snapshots a settled room
func NewArchivedRound(room *Room) ArchivedRound {
	seats := make([]Seat, len(room.Seats))
	copy(seats, room.Seats)
	var winner Seat
	if room.Winner != nil {
		winner = *room.Winner
	}
	return ArchivedRound{
		RoomID:    room.ID,
		Tier:      room.Tier,
		RoundSeq:  room.RoundSeq,
		Seats:     seats,
		Winner:    winner,
		Pot:       room.Pot,
		CreatedAt: room.CreatedAt,
		ArmedAt:   room.ArmedAt,
		SettledAt: room.SettledAt,
	}
}

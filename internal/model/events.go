package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	EventRoomsUpdated  EventType = "rooms_updated"
	EventPlayerSeated  EventType = "player_seated"
	EventRoundStarting EventType = "round_starting"
	EventRoundFinished EventType = "round_finished"
	EventRewardIssued  EventType = "reward_issued"
	EventRoomAvailable EventType = "room_available"
)

// Event is the base structure for all events.
// Seq is assigned by the broker and increases monotonically per process.
type Event struct {
	Type      EventType
	Seq       uint64
	Timestamp time.Time
	RoomID    RoomID
	Tier      TierName
	Payload   any // Type-specific data
}

// RoomsUpdatedPayload contains a lobby snapshot
type RoomsUpdatedPayload struct {
	Rooms []RoomSummary
}

// PlayerSeatedPayload contains data for player seated events
type PlayerSeatedPayload struct {
	Seat       Seat
	Pot        int64
	SeatsCount int
}

// RoundStartingPayload contains data for round starting events
type RoundStartingPayload struct {
	Seats []Seat
	Pot   int64
}

// RoundFinishedPayload contains data for round finished events.
// It never carries the reward handle.
type RoundFinishedPayload struct {
	Winner    Seat
	Pot       int64
	RoundSeq  int64
	HasReward bool
}

// RewardIssuedPayload is delivered only on the winner's direct topic
type RewardIssuedPayload struct {
	RewardHandle string
	Bet          int64
	Pot          int64
}

// RoomAvailablePayload announces a successor room
type RoomAvailablePayload struct {
	RoundSeq int64
}

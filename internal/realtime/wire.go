package realtime

import (
	"encoding/json"
	"time"

	"github.com/samber/lo"

	"github.com/mcoot/wagerlobby/internal/model"
)

// WireEvent is the JSON form of an event as sent to clients
type WireEvent struct {
	Type      model.EventType `json:"type"`
	Seq       uint64          `json:"seq"`
	Timestamp time.Time       `json:"timestamp"`
	RoomID    string          `json:"room_id,omitempty"`
	Tier      string          `json:"tier,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// WireSeat is the public view of a seat
type WireSeat struct {
	PlayerID    string    `json:"player_id"`
	DisplayName string    `json:"display_name"`
	Handle      string    `json:"handle,omitempty"`
	Bet         int64     `json:"bet"`
	JoinedAt    time.Time `json:"joined_at"`
}

// WireRoomSummary is one lobby listing entry
type WireRoomSummary struct {
	ID         string `json:"id"`
	Tier       string `json:"tier"`
	Status     string `json:"status"`
	SeatsCount int    `json:"seats_count"`
	Capacity   int    `json:"capacity"`
	Pot        int64  `json:"pot"`
	RoundSeq   int64  `json:"round_seq"`
}

type roomsUpdatedWire struct {
	Rooms []WireRoomSummary `json:"rooms"`
}

type playerSeatedWire struct {
	Seat       WireSeat `json:"seat"`
	Pot        int64    `json:"pot"`
	SeatsCount int      `json:"seats_count"`
}

type roundStartingWire struct {
	Seats []WireSeat `json:"seats"`
	Pot   int64      `json:"pot"`
}

type roundFinishedWire struct {
	Winner    WireSeat `json:"winner"`
	Pot       int64    `json:"pot"`
	RoundSeq  int64    `json:"round_seq"`
	HasReward bool     `json:"has_reward"`
}

type rewardIssuedWire struct {
	RewardHandle string `json:"reward_handle"`
	Bet          int64  `json:"bet"`
	Pot          int64  `json:"pot"`
}

type roomAvailableWire struct {
	RoundSeq int64 `json:"round_seq"`
}

// SeatToWire converts a seat to its public JSON form
func SeatToWire(s model.Seat) WireSeat {
	return WireSeat{
		PlayerID:    string(s.PlayerID),
		DisplayName: s.DisplayName,
		Handle:      s.Handle,
		Bet:         s.Bet,
		JoinedAt:    s.JoinedAt,
	}
}

// SummaryToWire converts a lobby listing entry to its JSON form
func SummaryToWire(r model.RoomSummary) WireRoomSummary {
	return WireRoomSummary{
		ID:         string(r.ID),
		Tier:       string(r.Tier),
		Status:     string(r.Status),
		SeatsCount: r.SeatsCount,
		Capacity:   r.Capacity,
		Pot:        r.Pot,
		RoundSeq:   r.RoundSeq,
	}
}

// EncodeEvent converts an event to its wire form
func EncodeEvent(evt model.Event) (WireEvent, error) {
	var payload any
	switch p := evt.Payload.(type) {
	case model.RoomsUpdatedPayload:
		payload = roomsUpdatedWire{Rooms: lo.Map(p.Rooms, func(r model.RoomSummary, _ int) WireRoomSummary {
			return SummaryToWire(r)
		})}
	case model.PlayerSeatedPayload:
		payload = playerSeatedWire{Seat: SeatToWire(p.Seat), Pot: p.Pot, SeatsCount: p.SeatsCount}
	case model.RoundStartingPayload:
		payload = roundStartingWire{Seats: lo.Map(p.Seats, func(s model.Seat, _ int) WireSeat {
			return SeatToWire(s)
		}), Pot: p.Pot}
	case model.RoundFinishedPayload:
		payload = roundFinishedWire{Winner: SeatToWire(p.Winner), Pot: p.Pot, RoundSeq: p.RoundSeq, HasReward: p.HasReward}
	case model.RewardIssuedPayload:
		payload = rewardIssuedWire{RewardHandle: p.RewardHandle, Bet: p.Bet, Pot: p.Pot}
	case model.RoomAvailablePayload:
		payload = roomAvailableWire{RoundSeq: p.RoundSeq}
	default:
		payload = p
	}

	wire := WireEvent{
		Type:      evt.Type,
		Seq:       evt.Seq,
		Timestamp: evt.Timestamp,
		RoomID:    string(evt.RoomID),
		Tier:      string(evt.Tier),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return WireEvent{}, err
		}
		wire.Payload = data
	}
	return wire, nil
}

// MarshalEvent encodes an event as a single JSON document
func MarshalEvent(evt model.Event) ([]byte, error) {
	wire, err := EncodeEvent(evt)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wire)
}

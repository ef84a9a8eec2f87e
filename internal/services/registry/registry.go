// Package registry holds the authoritative in-memory state of all live rooms.
//
// Every mutation runs under a single mutex covering the room map, the
// tier -> front room index and the player -> seat index, so cross-room
// invariants (one seat per player, one front room per tier, seat-fill
// arms the room) are checked and applied in one critical section.
// Nothing in this package blocks on I/O while the lock is held.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/mcoot/wagerlobby/internal/dependencies/clock"
	"github.com/mcoot/wagerlobby/internal/model"
)

// Registry is the single-writer store of live rooms
type Registry struct {
	clock clock.Clock

	mu        sync.RWMutex
	tiers     map[model.TierName]model.Tier
	tierOrder []model.TierName
	rooms     map[model.RoomID]*model.Room
	front     map[model.TierName]model.RoomID
	seated    map[model.PlayerID]model.RoomID
	roundSeq  map[model.TierName]int64
}

// New creates an empty registry for the given tiers
func New(tiers []model.Tier, clk clock.Clock) *Registry {
	r := &Registry{
		clock:    clk,
		tiers:    make(map[model.TierName]model.Tier, len(tiers)),
		rooms:    make(map[model.RoomID]*model.Room),
		front:    make(map[model.TierName]model.RoomID),
		seated:   make(map[model.PlayerID]model.RoomID),
		roundSeq: make(map[model.TierName]int64),
	}
	for _, t := range tiers {
		r.tiers[t.Name] = t
		r.tierOrder = append(r.tierOrder, t.Name)
	}
	return r
}

// Tiers returns the configured tiers in configuration order
func (r *Registry) Tiers() []model.Tier {
	out := make([]model.Tier, 0, len(r.tierOrder))
	for _, name := range r.tierOrder {
		out = append(out, r.tiers[name])
	}
	return out
}

// Tier returns the parameters of a named tier
func (r *Registry) Tier(name model.TierName) (model.Tier, error) {
	t, ok := r.tiers[name]
	if !ok {
		return model.Tier{}, fmt.Errorf("%w: %q", model.ErrTierUnknown, name)
	}
	return t, nil
}

// ListRooms returns an immutable snapshot of every live room,
// ordered by tier configuration order
func (r *Registry) ListRooms() []model.RoomSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.RoomSummary, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, room.Summary())
	}

	rank := make(map[model.TierName]int, len(r.tierOrder))
	for i, name := range r.tierOrder {
		rank[name] = i
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Tier != out[j].Tier {
			return rank[out[i].Tier] < rank[out[j].Tier]
		}
		return out[i].RoundSeq < out[j].RoundSeq
	})
	return out
}

// DescribeRoom returns a copy of the room including its seats and winner
func (r *Registry) DescribeRoom(id model.RoomID) (*model.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[id]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	return room.Clone(), nil
}

// FrontRoom returns a copy of the tier's front room.
// The front room is Open unless a round is draining in it.
func (r *Registry) FrontRoom(tier model.TierName) (*model.Room, error) {
	if _, err := r.Tier(tier); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.front[tier]
	if !ok {
		return nil, model.ErrNoOpenRoom
	}
	return r.rooms[id].Clone(), nil
}

// SeatOf returns a copy of the room in which the player holds a seat
func (r *Registry) SeatOf(playerID model.PlayerID) (*model.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.seated[playerID]
	if !ok {
		return nil, false
	}
	return r.rooms[id].Clone(), true
}

// OpenRoom creates a fresh Open room and installs it as the tier's front room
func (r *Registry) OpenRoom(tier model.TierName) (*model.Room, error) {
	t, err := r.Tier(tier)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.front[tier]; ok {
		return nil, model.ErrTierAlreadyOpen
	}
	return r.openLocked(t).Clone(), nil
}

// OpenAll opens a front room for every tier that lacks one
func (r *Registry) OpenAll() []*model.Room {
	r.mu.Lock()
	defer r.mu.Unlock()

	var opened []*model.Room
	for _, name := range r.tierOrder {
		if _, ok := r.front[name]; ok {
			continue
		}
		opened = append(opened, r.openLocked(r.tiers[name]).Clone())
	}
	return opened
}

func (r *Registry) openLocked(t model.Tier) *model.Room {
	r.roundSeq[t.Name]++
	room := &model.Room{
		ID:        model.RoomID(uuid.NewString()),
		Tier:      t.Name,
		Capacity:  t.Capacity,
		Status:    model.RoomStatusOpen,
		Seats:     []model.Seat{},
		RoundSeq:  r.roundSeq[t.Name],
		CreatedAt: r.clock.Now(),
	}
	r.rooms[room.ID] = room
	r.front[t.Name] = room.ID
	return room
}

// Seat appends a seat to an Open room. If the seat fills the room the
// room moves to Armed in the same critical section.
func (r *Registry) Seat(roomID model.RoomID, seat model.Seat) (*model.SeatPlacement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	if existing, ok := r.seated[seat.PlayerID]; ok {
		return nil, fmt.Errorf("%w: room %s", model.ErrAlreadySeated, existing)
	}
	if room.Status != model.RoomStatusOpen || len(room.Seats) >= room.Capacity {
		return nil, model.ErrRoomNotOpen
	}
	if !r.tiers[room.Tier].BetInRange(seat.Bet) {
		return nil, model.ErrBetOutOfRange
	}

	room.Seats = append(room.Seats, seat)
	room.Pot += seat.Bet
	r.seated[seat.PlayerID] = room.ID

	placement := &model.SeatPlacement{
		RoomID:         room.ID,
		Tier:           room.Tier,
		Position:       len(room.Seats),
		SeatsRemaining: room.SeatsRemaining(),
		Pot:            room.Pot,
	}
	if room.SeatsRemaining() == 0 {
		room.Status = model.RoomStatusArmed
		room.ArmedAt = r.clock.Now()
		placement.Armed = true
	}
	return placement, nil
}

// Transition moves a room from expected to next status
func (r *Registry) Transition(roomID model.RoomID, expected, next model.RoomStatus) (*model.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	if room.Status != expected {
		return nil, fmt.Errorf("%w: room %s is %s, expected %s", model.ErrStateMismatch, roomID, room.Status, expected)
	}
	if !validTransition(expected, next) {
		return nil, fmt.Errorf("%w: %s -> %s is not a forward transition", model.ErrStateMismatch, expected, next)
	}
	room.Status = next
	return room.Clone(), nil
}

// Settle moves a Drawing room to Settled and records its winner
func (r *Registry) Settle(roomID model.RoomID, winner model.PlayerID) (*model.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	if room.Status != model.RoomStatusDrawing {
		return nil, fmt.Errorf("%w: room %s is %s, expected %s", model.ErrStateMismatch, roomID, room.Status, model.RoomStatusDrawing)
	}
	seat := room.SeatFor(winner)
	if seat == nil {
		return nil, fmt.Errorf("%w: winner %s holds no seat in room %s", model.ErrInvariantViolation, winner, roomID)
	}
	w := *seat
	room.Winner = &w
	room.Status = model.RoomStatusSettled
	room.SettledAt = r.clock.Now()
	return room.Clone(), nil
}

// Rotate removes a closing room and installs its successor as the tier's
// front room in one step. The closing room may be in any status except Open,
// so a round that failed part-way still hands its tier on.
func (r *Registry) Rotate(closingID model.RoomID) (*model.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[closingID]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	if room.Status == model.RoomStatusOpen {
		return nil, fmt.Errorf("%w: cannot rotate open room %s", model.ErrStateMismatch, closingID)
	}

	room.Status = model.RoomStatusRotated
	for _, s := range room.Seats {
		if r.seated[s.PlayerID] == room.ID {
			delete(r.seated, s.PlayerID)
		}
	}
	delete(r.rooms, room.ID)
	if r.front[room.Tier] == room.ID {
		delete(r.front, room.Tier)
	}

	if _, ok := r.front[room.Tier]; ok {
		return r.rooms[r.front[room.Tier]].Clone(), nil
	}
	return r.openLocked(r.tiers[room.Tier]).Clone(), nil
}

func validTransition(from, to model.RoomStatus) bool {
	switch from {
	case model.RoomStatusOpen:
		return to == model.RoomStatusArmed
	case model.RoomStatusArmed:
		return to == model.RoomStatusDrawing
	case model.RoomStatusDrawing:
		return to == model.RoomStatusSettled
	case model.RoomStatusSettled:
		return to == model.RoomStatusRotated
	default:
		return false
	}
}

// Package match seats players into rooms and runs each full room's round.
package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/wagerlobby/internal/dependencies/clock"
	"github.com/mcoot/wagerlobby/internal/model"
	"github.com/mcoot/wagerlobby/internal/services/draw"
	"github.com/mcoot/wagerlobby/internal/services/registry"
)

// Balance is the subset of the balance gateway the engine needs
type Balance interface {
	Reserve(ctx context.Context, playerID model.PlayerID, amount int64) (int64, error)
	Release(ctx context.Context, playerID model.PlayerID, amount int64) (int64, error)
	Get(ctx context.Context, playerID model.PlayerID) (*model.Player, error)
}

// Publisher delivers events to connected clients, best-effort
type Publisher interface {
	PublishLobby(evt model.Event)
	PublishDirect(playerID model.PlayerID, evt model.Event)
}

// Archiver records settled rounds and rewards, best-effort
type Archiver interface {
	ArchiveRound(round model.ArchivedRound)
	ArchiveReward(reward model.RewardRecord)
}

// Config holds configuration for the engine
type Config struct {
	// Suspense is the delay between a room filling and its draw
	Suspense time.Duration
}

// DefaultConfig returns default engine configuration
func DefaultConfig() Config {
	return Config{
		Suspense: 3 * time.Second,
	}
}

// AdmitRequest asks for a seat in the front room of a tier
type AdmitRequest struct {
	PlayerID model.PlayerID
	Tier     model.TierName
	Bet      int64
}

// Engine runs the admit protocol and one round executor per armed room
type Engine struct {
	registry  *registry.Registry
	balance   Balance
	drawer    *draw.Drawer
	publisher Publisher
	archiver  Archiver
	clock     clock.Clock
	cfg       Config
	logger    *slog.Logger

	// pubMu keeps event emission in the same order as the registry
	// mutations they describe. Held only around in-memory work.
	pubMu sync.Mutex

	ctx      context.Context
	cancel   context.CancelFunc
	runMu    sync.Mutex
	stopping bool
	wg       sync.WaitGroup
}

// New creates a new Engine
func New(
	reg *registry.Registry,
	balance Balance,
	drawer *draw.Drawer,
	publisher Publisher,
	archiver Archiver,
	clk clock.Clock,
	cfg Config,
	logger *slog.Logger,
) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		registry:  reg,
		balance:   balance,
		drawer:    drawer,
		publisher: publisher,
		archiver:  archiver,
		clock:     clk,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "match")),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start opens a front room for every tier
func (e *Engine) Start() {
	e.pubMu.Lock()
	defer e.pubMu.Unlock()

	for _, room := range e.registry.OpenAll() {
		e.logger.Info("room opened",
			slog.String("room_id", string(room.ID)),
			slog.String("tier", string(room.Tier)),
			slog.Int64("round_seq", room.RoundSeq))
	}
	e.publishRoomsLocked()
}

// Shutdown abandons in-flight rounds and waits for their executors to exit
func (e *Engine) Shutdown(ctx context.Context) error {
	e.runMu.Lock()
	e.stopping = true
	e.runMu.Unlock()
	e.cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the current lobby listing as an event
func (e *Engine) Snapshot() model.Event {
	return model.Event{
		Type:      model.EventRoomsUpdated,
		Timestamp: e.clock.Now(),
		Payload:   model.RoomsUpdatedPayload{Rooms: e.registry.ListRooms()},
	}
}

// Greet hands the current listing to join in publication order, so a new
// subscriber's stream continues exactly where the listing leaves off
func (e *Engine) Greet(join func(model.Event)) {
	e.pubMu.Lock()
	defer e.pubMu.Unlock()
	join(e.Snapshot())
}

func (e *Engine) publishRoomsLocked() {
	e.publisher.PublishLobby(e.Snapshot())
}

// Admit seats a player in the tier's front room, debiting the bet first
// and releasing it again if the seat cannot be installed
func (e *Engine) Admit(ctx context.Context, req AdmitRequest) (*model.SeatPlacement, error) {
	tier, err := e.registry.Tier(req.Tier)
	if err != nil {
		return nil, err
	}

	front, err := e.registry.FrontRoom(req.Tier)
	if err != nil {
		return nil, err
	}

	if !tier.BetInRange(req.Bet) {
		return nil, fmt.Errorf("%w: %d not within [%d, %d]", model.ErrBetOutOfRange, req.Bet, tier.MinBet, tier.MaxBet)
	}
	if held, ok := e.registry.SeatOf(req.PlayerID); ok {
		return nil, fmt.Errorf("%w: room %s", model.ErrAlreadySeated, held.ID)
	}
	player, err := e.balance.Get(ctx, req.PlayerID)
	if err != nil {
		return nil, err
	}
	if front.Status != model.RoomStatusOpen {
		return nil, model.ErrRoomJustFilled
	}

	if _, err := e.balance.Reserve(ctx, req.PlayerID, req.Bet); err != nil {
		return nil, err
	}

	seat := model.Seat{
		PlayerID:    player.ID,
		DisplayName: player.DisplayName,
		Handle:      player.Handle,
		Bet:         req.Bet,
	}

	placement, err := e.seat(front.ID, seat)
	if errors.Is(err, model.ErrRoomNotOpen) {
		// The front room filled after we resolved it; try its successor once
		if next, ferr := e.registry.FrontRoom(req.Tier); ferr == nil && next.ID != front.ID {
			placement, err = e.seat(next.ID, seat)
		}
	}
	if err != nil {
		e.release(ctx, req.PlayerID, req.Bet)
		if errors.Is(err, model.ErrRoomNotOpen) || errors.Is(err, model.ErrRoomNotFound) {
			return nil, model.ErrRoomJustFilled
		}
		return nil, err
	}

	e.logger.Info("player seated",
		slog.String("player_id", string(req.PlayerID)),
		slog.String("room_id", string(placement.RoomID)),
		slog.String("tier", string(placement.Tier)),
		slog.Int64("bet", req.Bet),
		slog.Int("position", placement.Position))

	if placement.Armed {
		e.logger.Info("room armed",
			slog.String("room_id", string(placement.RoomID)),
			slog.String("tier", string(placement.Tier)))
		if !e.spawn(func() { e.runRound(placement.RoomID, placement.Tier) }) {
			e.logger.Warn("round not started, engine shutting down",
				slog.String("room_id", string(placement.RoomID)))
		}
	}
	return placement, nil
}

func (e *Engine) spawn(fn func()) bool {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	if e.stopping {
		return false
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		fn()
	}()
	return true
}

// seat installs the seat and announces it in one ordered step. The join
// time is taken under the publish lock so it never runs behind the
// timestamps of events already emitted.
func (e *Engine) seat(roomID model.RoomID, seat model.Seat) (*model.SeatPlacement, error) {
	e.pubMu.Lock()
	defer e.pubMu.Unlock()

	seat.JoinedAt = e.clock.Now()

	placement, err := e.registry.Seat(roomID, seat)
	if err != nil {
		return nil, err
	}

	e.publisher.PublishLobby(model.Event{
		Type:      model.EventPlayerSeated,
		Timestamp: seat.JoinedAt,
		RoomID:    placement.RoomID,
		Tier:      placement.Tier,
		Payload: model.PlayerSeatedPayload{
			Seat:       seat,
			Pot:        placement.Pot,
			SeatsCount: placement.Position,
		},
	})
	e.publishRoomsLocked()
	return placement, nil
}

func (e *Engine) release(ctx context.Context, playerID model.PlayerID, amount int64) {
	// The refund must go through even if the request has been cancelled
	if _, err := e.balance.Release(context.WithoutCancel(ctx), playerID, amount); err != nil {
		e.logger.Error("failed to release reservation",
			slog.String("player_id", string(playerID)),
			slog.Int64("amount", amount),
			slog.Any("error", err))
	}
}

// runRound carries an armed room through drawing, settlement and rotation
func (e *Engine) runRound(roomID model.RoomID, tierName model.TierName) {
	logger := e.logger.With(
		slog.String("room_id", string(roomID)),
		slog.String("tier", string(tierName)))

	defer func() {
		if rec := recover(); rec != nil {
			e.abortRound(roomID, logger, fmt.Errorf("%w: panic: %v", model.ErrInvariantViolation, rec))
		}
	}()

	room, err := e.startDrawing(roomID)
	if err != nil {
		e.abortRound(roomID, logger, err)
		return
	}
	logger.Info("round drawing", slog.Int64("round_seq", room.RoundSeq), slog.Int64("pot", room.Pot))

	if !e.suspense() {
		logger.Warn("round abandoned on shutdown", slog.Int64("round_seq", room.RoundSeq))
		return
	}

	winner, err := e.drawer.Pick(room.Seats)
	if err != nil {
		e.abortRound(roomID, logger, err)
		return
	}

	settled, err := e.settle(roomID, winner)
	if err != nil {
		e.abortRound(roomID, logger, err)
		return
	}
	logger.Info("round settled",
		slog.Int64("round_seq", settled.RoundSeq),
		slog.String("winner_id", string(winner.PlayerID)),
		slog.Int64("pot", settled.Pot))

	tier, _ := e.registry.Tier(tierName)
	e.archiver.ArchiveRound(model.NewArchivedRound(settled))
	e.archiver.ArchiveReward(model.RewardRecord{
		PlayerID:     winner.PlayerID,
		Tier:         tierName,
		RoomID:       roomID,
		RewardHandle: tier.RewardHandle,
		Bet:          winner.Bet,
		Pot:          settled.Pot,
		RoundSeq:     settled.RoundSeq,
		WonAt:        settled.SettledAt,
	})

	if _, err := e.rotate(roomID, model.RoomStatusSettled); err != nil {
		logger.Error("failed to rotate settled room", slog.Any("error", err))
	}
}

func (e *Engine) startDrawing(roomID model.RoomID) (*model.Room, error) {
	e.pubMu.Lock()
	defer e.pubMu.Unlock()

	room, err := e.registry.Transition(roomID, model.RoomStatusArmed, model.RoomStatusDrawing)
	if err != nil {
		return nil, err
	}
	e.publisher.PublishLobby(model.Event{
		Type:   model.EventRoundStarting,
		RoomID: room.ID,
		Tier:   room.Tier,
		Payload: model.RoundStartingPayload{
			Seats: room.Seats,
			Pot:   room.Pot,
		},
	})
	e.publishRoomsLocked()
	return room, nil
}

// suspense waits out the configured delay. Returns false if the engine
// is shutting down.
func (e *Engine) suspense() bool {
	if e.cfg.Suspense <= 0 {
		return e.ctx.Err() == nil
	}

	timer := time.NewTimer(e.cfg.Suspense)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-e.ctx.Done():
		return false
	}
}

func (e *Engine) settle(roomID model.RoomID, winner model.Seat) (*model.Room, error) {
	e.pubMu.Lock()
	defer e.pubMu.Unlock()

	room, err := e.registry.Settle(roomID, winner.PlayerID)
	if err != nil {
		return nil, err
	}
	tier, err := e.registry.Tier(room.Tier)
	if err != nil {
		return nil, err
	}

	e.publisher.PublishLobby(model.Event{
		Type:      model.EventRoundFinished,
		Timestamp: room.SettledAt,
		RoomID:    room.ID,
		Tier:      room.Tier,
		Payload: model.RoundFinishedPayload{
			Winner:    winner,
			Pot:       room.Pot,
			RoundSeq:  room.RoundSeq,
			HasReward: true,
		},
	})
	e.publisher.PublishDirect(winner.PlayerID, model.Event{
		Type:      model.EventRewardIssued,
		Timestamp: room.SettledAt,
		RoomID:    room.ID,
		Tier:      room.Tier,
		Payload: model.RewardIssuedPayload{
			RewardHandle: tier.RewardHandle,
			Bet:          winner.Bet,
			Pot:          room.Pot,
		},
	})
	return room, nil
}

// rotate retires the room and announces its successor. from is the status
// the room is expected to be in; any other status skips the Rotated
// transition and rotates directly.
func (e *Engine) rotate(roomID model.RoomID, from model.RoomStatus) (*model.Room, error) {
	e.pubMu.Lock()
	defer e.pubMu.Unlock()

	if from == model.RoomStatusSettled {
		if _, err := e.registry.Transition(roomID, model.RoomStatusSettled, model.RoomStatusRotated); err != nil {
			return nil, err
		}
	}

	successor, err := e.registry.Rotate(roomID)
	if err != nil {
		return nil, err
	}

	e.logger.Info("room rotated",
		slog.String("closed_room_id", string(roomID)),
		slog.String("room_id", string(successor.ID)),
		slog.String("tier", string(successor.Tier)),
		slog.Int64("round_seq", successor.RoundSeq))

	e.publisher.PublishLobby(model.Event{
		Type:    model.EventRoomAvailable,
		RoomID:  successor.ID,
		Tier:    successor.Tier,
		Payload: model.RoomAvailablePayload{RoundSeq: successor.RoundSeq},
	})
	e.publishRoomsLocked()
	return successor, nil
}

// abortRound logs a fatal round failure with the room's state and still
// rotates the tier so play continues
func (e *Engine) abortRound(roomID model.RoomID, logger *slog.Logger, cause error) {
	attrs := []any{slog.Any("error", cause)}
	if room, err := e.registry.DescribeRoom(roomID); err == nil {
		attrs = append(attrs,
			slog.String("status", string(room.Status)),
			slog.Int64("round_seq", room.RoundSeq),
			slog.Int64("pot", room.Pot),
			slog.Any("seats", room.Seats))
	}
	logger.Error("round failed", attrs...)

	if _, err := e.rotate(roomID, ""); err != nil {
		logger.Error("failed to rotate failed room", slog.Any("error", err))
	}
}

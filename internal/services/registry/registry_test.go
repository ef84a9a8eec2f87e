package registry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/wagerlobby/internal/dependencies/mocks"
	"github.com/mcoot/wagerlobby/internal/model"
)

type RegistrySuite struct {
	suite.Suite
	clock    *mocks.MockClock
	registry *Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.registry = New([]model.Tier{
		{Name: "low", MinBet: 100, MaxBet: 450, Capacity: 2, RewardHandle: "r-low"},
		{Name: "solo", MinBet: 10, MaxBet: 10, Capacity: 1, RewardHandle: "r-solo"},
	}, s.clock)
	s.registry.OpenAll()
}

func (s *RegistrySuite) seat(id string, bet int64) model.Seat {
	return model.Seat{PlayerID: model.PlayerID(id), DisplayName: id, Bet: bet, JoinedAt: s.clock.Now()}
}

func (s *RegistrySuite) front(tier model.TierName) *model.Room {
	room, err := s.registry.FrontRoom(tier)
	s.Require().NoError(err)
	return room
}

// OpenRoom tests

func (s *RegistrySuite) TestOpenAllCreatesOneRoomPerTier() {
	rooms := s.registry.ListRooms()
	s.Require().Len(rooms, 2)
	s.Equal(model.TierName("low"), rooms[0].Tier)
	s.Equal(model.TierName("solo"), rooms[1].Tier)
	for _, r := range rooms {
		s.Equal(model.RoomStatusOpen, r.Status)
		s.Equal(0, r.SeatsCount)
		s.Equal(int64(1), r.RoundSeq)
	}
}

func (s *RegistrySuite) TestOpenRoomFailsWhenTierAlreadyOpen() {
	_, err := s.registry.OpenRoom("low")
	s.ErrorIs(err, model.ErrTierAlreadyOpen)
}

func (s *RegistrySuite) TestOpenRoomUnknownTier() {
	_, err := s.registry.OpenRoom("vip")
	s.ErrorIs(err, model.ErrTierUnknown)
}

func (s *RegistrySuite) TestFrontRoomBeforeOpen() {
	r := New(model.DefaultTiers(), s.clock)
	_, err := r.FrontRoom("low")
	s.ErrorIs(err, model.ErrNoOpenRoom)
}

// Seat tests

func (s *RegistrySuite) TestSeatAcceptsAndUpdatesPot() {
	room := s.front("low")

	placement, err := s.registry.Seat(room.ID, s.seat("alice", 200))
	s.Require().NoError(err)
	s.Equal(1, placement.Position)
	s.Equal(1, placement.SeatsRemaining)
	s.False(placement.Armed)

	described, err := s.registry.DescribeRoom(room.ID)
	s.Require().NoError(err)
	s.Equal(int64(200), described.Pot)
	s.Equal(model.RoomStatusOpen, described.Status)
}

func (s *RegistrySuite) TestSeatFillingRoomArmsIt() {
	room := s.front("low")
	_, _ = s.registry.Seat(room.ID, s.seat("alice", 200))

	placement, err := s.registry.Seat(room.ID, s.seat("bob", 300))
	s.Require().NoError(err)
	s.True(placement.Armed)
	s.Equal(0, placement.SeatsRemaining)

	described, _ := s.registry.DescribeRoom(room.ID)
	s.Equal(model.RoomStatusArmed, described.Status)
	s.Equal(int64(500), described.Pot)
	s.Equal(s.clock.Now(), described.ArmedAt)
}

func (s *RegistrySuite) TestSeatRejectsFullRoom() {
	room := s.front("low")
	_, _ = s.registry.Seat(room.ID, s.seat("alice", 200))
	_, _ = s.registry.Seat(room.ID, s.seat("bob", 300))

	_, err := s.registry.Seat(room.ID, s.seat("carol", 300))
	s.ErrorIs(err, model.ErrRoomNotOpen)
}

func (s *RegistrySuite) TestSeatRejectsDuplicatePlayerAcrossRooms() {
	_, err := s.registry.Seat(s.front("low").ID, s.seat("alice", 200))
	s.Require().NoError(err)

	_, err = s.registry.Seat(s.front("solo").ID, s.seat("alice", 10))
	s.ErrorIs(err, model.ErrAlreadySeated)
}

func (s *RegistrySuite) TestSeatBetBounds() {
	tests := []struct {
		bet     int64
		wantErr error
	}{
		{bet: 99, wantErr: model.ErrBetOutOfRange},
		{bet: 100},
		{bet: 450},
		{bet: 451, wantErr: model.ErrBetOutOfRange},
	}

	for i, tt := range tests {
		s.Run(fmt.Sprintf("bet_%d", tt.bet), func() {
			r := New([]model.Tier{{Name: "low", MinBet: 100, MaxBet: 450, Capacity: 5, RewardHandle: "x"}}, s.clock)
			room, _ := r.OpenRoom("low")
			_, err := r.Seat(room.ID, s.seat(fmt.Sprintf("p%d", i), tt.bet))
			if tt.wantErr != nil {
				s.ErrorIs(err, tt.wantErr)
			} else {
				s.NoError(err)
			}
		})
	}
}

func (s *RegistrySuite) TestSeatUnknownRoom() {
	_, err := s.registry.Seat("missing", s.seat("alice", 200))
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *RegistrySuite) TestSeatOf() {
	room := s.front("low")
	_, _ = s.registry.Seat(room.ID, s.seat("alice", 200))

	held, ok := s.registry.SeatOf("alice")
	s.Require().True(ok)
	s.Equal(room.ID, held.ID)

	_, ok = s.registry.SeatOf("bob")
	s.False(ok)
}

// Transition tests

func (s *RegistrySuite) TestTransitionStateMismatch() {
	room := s.front("low")
	_, err := s.registry.Transition(room.ID, model.RoomStatusArmed, model.RoomStatusDrawing)
	s.ErrorIs(err, model.ErrStateMismatch)
}

func (s *RegistrySuite) TestTransitionRejectsBackwardMove() {
	room := s.front("solo")
	_, _ = s.registry.Seat(room.ID, s.seat("alice", 10))

	_, err := s.registry.Transition(room.ID, model.RoomStatusArmed, model.RoomStatusOpen)
	s.ErrorIs(err, model.ErrStateMismatch)
}

func (s *RegistrySuite) TestFullLifecycle() {
	room := s.front("solo")
	_, err := s.registry.Seat(room.ID, s.seat("alice", 10))
	s.Require().NoError(err)

	_, err = s.registry.Transition(room.ID, model.RoomStatusArmed, model.RoomStatusDrawing)
	s.Require().NoError(err)

	settled, err := s.registry.Settle(room.ID, "alice")
	s.Require().NoError(err)
	s.Equal(model.RoomStatusSettled, settled.Status)
	s.Require().NotNil(settled.Winner)
	s.Equal(model.PlayerID("alice"), settled.Winner.PlayerID)

	successor, err := s.registry.Rotate(room.ID)
	s.Require().NoError(err)
	s.Equal(model.RoomStatusOpen, successor.Status)
	s.Equal(room.RoundSeq+1, successor.RoundSeq)
	s.NotEqual(room.ID, successor.ID)

	_, err = s.registry.DescribeRoom(room.ID)
	s.ErrorIs(err, model.ErrRoomNotFound)

	_, ok := s.registry.SeatOf("alice")
	s.False(ok, "seat index must be cleared on rotation")
	s.Equal(successor.ID, s.front("solo").ID)
}

func (s *RegistrySuite) TestSettleRejectsNonSeatedWinner() {
	room := s.front("solo")
	_, _ = s.registry.Seat(room.ID, s.seat("alice", 10))
	_, _ = s.registry.Transition(room.ID, model.RoomStatusArmed, model.RoomStatusDrawing)

	_, err := s.registry.Settle(room.ID, "mallory")
	s.ErrorIs(err, model.ErrInvariantViolation)
}

func (s *RegistrySuite) TestRotateRejectsOpenRoom() {
	_, err := s.registry.Rotate(s.front("low").ID)
	s.ErrorIs(err, model.ErrStateMismatch)
}

func (s *RegistrySuite) TestRotateFromArmedKeepsPlayContinuous() {
	room := s.front("solo")
	_, _ = s.registry.Seat(room.ID, s.seat("alice", 10))

	successor, err := s.registry.Rotate(room.ID)
	s.Require().NoError(err)
	s.Equal(int64(2), successor.RoundSeq)
}

// Concurrency

func (s *RegistrySuite) TestConcurrentSeatsRespectInvariants() {
	r := New([]model.Tier{{Name: "low", MinBet: 1, MaxBet: 10, Capacity: 3, RewardHandle: "x"}}, s.clock)
	room, _ := r.OpenRoom("low")

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted, armed := 0, 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := r.Seat(room.ID, model.Seat{PlayerID: model.PlayerID(fmt.Sprintf("p%d", i%10)), Bet: 5})
			if err != nil {
				return
			}
			mu.Lock()
			accepted++
			if p.Armed {
				armed++
			}
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	s.Equal(3, accepted)
	s.Equal(1, armed)

	described, _ := r.DescribeRoom(room.ID)
	var sum int64
	seen := map[model.PlayerID]bool{}
	for _, seat := range described.Seats {
		sum += seat.Bet
		s.False(seen[seat.PlayerID], "player seated twice")
		seen[seat.PlayerID] = true
	}
	s.Equal(sum, described.Pot)
}

package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/wagerlobby/internal/model"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.ctx = context.Background()
}

// Player tests

func (s *StorageSuite) TestSaveAndGetPlayer() {
	player := &model.Player{
		ID:          "player-1",
		ChatID:      42,
		DisplayName: "Alice",
		Balance:     500,
		CreatedAt:   time.Now(),
	}

	err := s.storage.SavePlayer(s.ctx, player)
	s.Require().NoError(err)

	retrieved, err := s.storage.GetPlayer(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Equal(player.DisplayName, retrieved.DisplayName)
	s.Equal(int64(500), retrieved.Balance)

	byChat, err := s.storage.GetPlayerByChatID(s.ctx, 42)
	s.Require().NoError(err)
	s.Equal(player.ID, byChat.ID)
}

func (s *StorageSuite) TestGetPlayerNotFound() {
	_, err := s.storage.GetPlayer(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrUnknownPlayer)

	_, err = s.storage.GetPlayerByChatID(s.ctx, 7)
	s.ErrorIs(err, model.ErrUnknownPlayer)
}

func (s *StorageSuite) TestResaveDoesNotResetBalance() {
	_ = s.storage.SavePlayer(s.ctx, &model.Player{ID: "p1", ChatID: 1, Balance: 100})
	_, _ = s.storage.Debit(s.ctx, "p1", 40)

	err := s.storage.SavePlayer(s.ctx, &model.Player{ID: "p1", ChatID: 1, DisplayName: "Renamed", Balance: 100})
	s.Require().NoError(err)

	p, _ := s.storage.GetPlayer(s.ctx, "p1")
	s.Equal("Renamed", p.DisplayName)
	s.Equal(int64(60), p.Balance)
}

// Balance tests

func (s *StorageSuite) TestCreatePlayerClaimsChatIDOnce() {
	first, created, err := s.storage.CreatePlayer(s.ctx, &model.Player{ID: "p1", ChatID: 42, DisplayName: "Alice", Balance: 100})
	s.Require().NoError(err)
	s.True(created)
	s.Equal(model.PlayerID("p1"), first.ID)

	second, created, err := s.storage.CreatePlayer(s.ctx, &model.Player{ID: "p2", ChatID: 42, DisplayName: "Impostor", Balance: 999})
	s.Require().NoError(err)
	s.False(created)
	s.Equal(model.PlayerID("p1"), second.ID)
	s.Equal(int64(100), second.Balance)

	_, err = s.storage.GetPlayer(s.ctx, "p2")
	s.ErrorIs(err, model.ErrUnknownPlayer)
}

func (s *StorageSuite) TestDebitAndCredit() {
	_ = s.storage.SavePlayer(s.ctx, &model.Player{ID: "p1", Balance: 100})

	balance, err := s.storage.Debit(s.ctx, "p1", 100)
	s.Require().NoError(err)
	s.Equal(int64(0), balance)

	_, err = s.storage.Debit(s.ctx, "p1", 1)
	s.ErrorIs(err, model.ErrInsufficientFunds)

	balance, err = s.storage.Credit(s.ctx, "p1", 25)
	s.Require().NoError(err)
	s.Equal(int64(25), balance)
}

func (s *StorageSuite) TestBalanceUnknownPlayer() {
	_, err := s.storage.GetBalance(s.ctx, "ghost")
	s.ErrorIs(err, model.ErrUnknownPlayer)
	_, err = s.storage.Debit(s.ctx, "ghost", 1)
	s.ErrorIs(err, model.ErrUnknownPlayer)
	_, err = s.storage.Credit(s.ctx, "ghost", 1)
	s.ErrorIs(err, model.ErrUnknownPlayer)
}

func (s *StorageSuite) TestConcurrentDebitNeverOverdraws() {
	_ = s.storage.SavePlayer(s.ctx, &model.Player{ID: "p1", Balance: 1000})

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.storage.Debit(s.ctx, "p1", 100); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(10, ok)
	balance, _ := s.storage.GetBalance(s.ctx, "p1")
	s.Equal(int64(0), balance)
}

// Archive tests

func (s *StorageSuite) TestSaveRoundIsIdempotent() {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	round := model.ArchivedRound{RoomID: "r1", Tier: "low", Pot: 500, SettledAt: base}

	s.Require().NoError(s.storage.SaveRound(s.ctx, round))
	round.Pot = 999
	s.Require().NoError(s.storage.SaveRound(s.ctx, round))

	rounds, err := s.storage.ListRounds(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(rounds, 1)
	s.Equal(int64(500), rounds[0].Pot)
}

func (s *StorageSuite) TestListRoundsNewestFirstWithLimit() {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []model.RoomID{"r1", "r2", "r3"} {
		_ = s.storage.SaveRound(s.ctx, model.ArchivedRound{RoomID: id, SettledAt: base.Add(time.Duration(i) * time.Minute)})
	}

	rounds, err := s.storage.ListRounds(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(rounds, 2)
	s.Equal(model.RoomID("r3"), rounds[0].RoomID)
	s.Equal(model.RoomID("r2"), rounds[1].RoomID)
}

func (s *StorageSuite) TestListRewardsFiltersByPlayer() {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	_ = s.storage.SaveReward(s.ctx, model.RewardRecord{PlayerID: "alice", RoomID: "r1", RewardHandle: "h", WonAt: base})
	_ = s.storage.SaveReward(s.ctx, model.RewardRecord{PlayerID: "bob", RoomID: "r2", RewardHandle: "h", WonAt: base})
	_ = s.storage.SaveReward(s.ctx, model.RewardRecord{PlayerID: "alice", RoomID: "r3", RewardHandle: "h", WonAt: base.Add(time.Minute)})
	_ = s.storage.SaveReward(s.ctx, model.RewardRecord{PlayerID: "alice", RoomID: "r3", RewardHandle: "dup", WonAt: base})

	rewards, err := s.storage.ListRewards(s.ctx, "alice")
	s.Require().NoError(err)
	s.Require().Len(rewards, 2)
	s.Equal(model.RoomID("r3"), rewards[0].RoomID)
	s.Equal("h", rewards[0].RewardHandle)

	none, err := s.storage.ListRewards(s.ctx, "carol")
	s.Require().NoError(err)
	s.Empty(none)
}

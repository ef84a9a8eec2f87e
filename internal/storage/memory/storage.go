package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mcoot/wagerlobby/internal/model"
	"github.com/mcoot/wagerlobby/internal/storage"
)

// Storage is an in-memory implementation of the storage interfaces
type Storage struct {
	mu sync.RWMutex

	players     map[model.PlayerID]*model.Player
	chatIndex   map[int64]model.PlayerID
	balances    map[model.PlayerID]int64
	rounds      map[model.RoomID]model.ArchivedRound
	rewards     map[model.RoomID]model.RewardRecord
	roundOrder  []model.RoomID
	rewardOrder []model.RoomID
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players:   make(map[model.PlayerID]*model.Player),
		chatIndex: make(map[int64]model.PlayerID),
		balances:  make(map[model.PlayerID]int64),
		rounds:    make(map[model.RoomID]model.ArchivedRound),
		rewards:   make(map[model.RoomID]model.RewardRecord),
	}
}

// Ensure Storage implements the interfaces
var (
	_ storage.Storage      = (*Storage)(nil)
	_ storage.ArchiveStore = (*Storage)(nil)
)

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := *player
	s.players[p.ID] = &p
	s.chatIndex[p.ChatID] = p.ID
	if _, ok := s.balances[p.ID]; !ok {
		s.balances[p.ID] = p.Balance
	}
	return nil
}

func (s *Storage) CreatePlayer(ctx context.Context, player *model.Player) (*model.Player, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.chatIndex[player.ChatID]; ok {
		existing, err := s.playerLocked(id)
		return existing, false, err
	}

	p := *player
	s.players[p.ID] = &p
	s.chatIndex[p.ChatID] = p.ID
	s.balances[p.ID] = p.Balance

	out := p
	return &out, true, nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playerLocked(id)
}

func (s *Storage) GetPlayerByChatID(ctx context.Context, chatID int64) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.chatIndex[chatID]
	if !ok {
		return nil, model.ErrUnknownPlayer
	}
	return s.playerLocked(id)
}

func (s *Storage) playerLocked(id model.PlayerID) (*model.Player, error) {
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrUnknownPlayer
	}
	p := *player
	p.Balance = s.balances[id]
	return &p, nil
}

// Balance operations

func (s *Storage) GetBalance(ctx context.Context, id model.PlayerID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	balance, ok := s.balances[id]
	if !ok {
		return 0, model.ErrUnknownPlayer
	}
	return balance, nil
}

func (s *Storage) Debit(ctx context.Context, id model.PlayerID, amount int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	balance, ok := s.balances[id]
	if !ok {
		return 0, model.ErrUnknownPlayer
	}
	if balance < amount {
		return balance, model.ErrInsufficientFunds
	}
	s.balances[id] = balance - amount
	return s.balances[id], nil
}

func (s *Storage) Credit(ctx context.Context, id model.PlayerID, amount int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	balance, ok := s.balances[id]
	if !ok {
		return 0, model.ErrUnknownPlayer
	}
	s.balances[id] = balance + amount
	return s.balances[id], nil
}

// Archive operations

func (s *Storage) SaveRound(ctx context.Context, round model.ArchivedRound) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rounds[round.RoomID]; ok {
		return nil
	}
	s.rounds[round.RoomID] = round
	s.roundOrder = append(s.roundOrder, round.RoomID)
	return nil
}

func (s *Storage) SaveReward(ctx context.Context, reward model.RewardRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rewards[reward.RoomID]; ok {
		return nil
	}
	s.rewards[reward.RoomID] = reward
	s.rewardOrder = append(s.rewardOrder, reward.RoomID)
	return nil
}

func (s *Storage) ListRounds(ctx context.Context, limit int) ([]model.ArchivedRound, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.ArchivedRound, 0, len(s.roundOrder))
	for i := len(s.roundOrder) - 1; i >= 0; i-- {
		out = append(out, s.rounds[s.roundOrder[i]])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SettledAt.After(out[j].SettledAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Storage) ListRewards(ctx context.Context, playerID model.PlayerID) ([]model.RewardRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []model.RewardRecord{}
	for i := len(s.rewardOrder) - 1; i >= 0; i-- {
		if r := s.rewards[s.rewardOrder[i]]; r.PlayerID == playerID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].WonAt.After(out[j].WonAt)
	})
	return out, nil
}

package storage

import (
	"context"

	"github.com/mcoot/wagerlobby/internal/model"
)

// Storage defines the interface for player and balance persistence.
//
// A player's balance is seeded from Player.Balance the first time the
// player is saved. After that it changes only through Debit and Credit,
// which are atomic with respect to each other.
type Storage interface {
	// Player operations
	SavePlayer(ctx context.Context, player *model.Player) error
	// CreatePlayer inserts player unless its chat id is already claimed, in
	// which case the existing player is returned with created false.
	CreatePlayer(ctx context.Context, player *model.Player) (stored *model.Player, created bool, err error)
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	GetPlayerByChatID(ctx context.Context, chatID int64) (*model.Player, error)

	// Balance operations
	GetBalance(ctx context.Context, id model.PlayerID) (int64, error)
	Debit(ctx context.Context, id model.PlayerID, amount int64) (int64, error)
	Credit(ctx context.Context, id model.PlayerID, amount int64) (int64, error)
}

// ArchiveStore defines the interface for the append-only round and reward log.
// Saving a record whose room id is already stored is a no-op.
type ArchiveStore interface {
	SaveRound(ctx context.Context, round model.ArchivedRound) error
	SaveReward(ctx context.Context, reward model.RewardRecord) error

	// ListRounds returns the most recently settled rounds first.
	// A non-positive limit returns every stored round.
	ListRounds(ctx context.Context, limit int) ([]model.ArchivedRound, error)
	ListRewards(ctx context.Context, playerID model.PlayerID) ([]model.RewardRecord, error)
}

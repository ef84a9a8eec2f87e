package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/wagerlobby/internal/model"
	"github.com/mcoot/wagerlobby/internal/storage"
)

// debitScript decrements a balance only if it covers the amount.
// Returns {status, balance}: status 0 ok, 1 insufficient, 2 unknown player.
var debitScript = redis.NewScript(`
local bal = redis.call('GET', KEYS[1])
if not bal then
  return {2, 0}
end
bal = tonumber(bal)
local amount = tonumber(ARGV[1])
if bal < amount then
  return {1, bal}
end
return {0, redis.call('DECRBY', KEYS[1], amount)}
`)

// creditScript increments an existing balance.
var creditScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return {2, 0}
end
return {0, redis.call('INCRBY', KEYS[1], tonumber(ARGV[1]))}
`)

// createPlayerScript claims a chat id for a new player and writes the
// profile and opening balance. Returns 1 if created, 0 if the chat id
// already belongs to someone.
var createPlayerScript = redis.NewScript(`
if redis.call('SETNX', KEYS[1], ARGV[1]) == 0 then
  return 0
end
redis.call('SET', KEYS[2], ARGV[2])
redis.call('SETNX', KEYS[3], ARGV[3])
return 1
`)

const (
	scriptOK           = 0
	scriptInsufficient = 1
	scriptUnknown      = 2
)

// Storage is a Redis-backed implementation of the storage interfaces
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ping checks the connection is alive
func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Ensure Storage implements the interfaces
var (
	_ storage.Storage      = (*Storage)(nil)
	_ storage.ArchiveStore = (*Storage)(nil)
)

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	data, err := json.Marshal(player)
	if err != nil {
		return err
	}

	// Profile, chat index and initial balance in one round trip.
	// SetNX leaves an existing balance untouched.
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, playerKey(player.ID), data, 0)
	pipe.Set(ctx, chatIndexKey(player.ChatID), string(player.ID), 0)
	pipe.SetNX(ctx, balanceKey(player.ID), player.Balance, 0)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) CreatePlayer(ctx context.Context, player *model.Player) (*model.Player, bool, error) {
	data, err := json.Marshal(player)
	if err != nil {
		return nil, false, err
	}

	keys := []string{chatIndexKey(player.ChatID), playerKey(player.ID), balanceKey(player.ID)}
	created, err := createPlayerScript.Run(ctx, s.client, keys, string(player.ID), data, player.Balance).Int()
	if err != nil {
		return nil, false, err
	}
	if created == 0 {
		existing, err := s.GetPlayerByChatID(ctx, player.ChatID)
		return existing, false, err
	}

	p := *player
	return &p, true, nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	pipe := s.client.Pipeline()
	profile := pipe.Get(ctx, playerKey(id))
	balance := pipe.Get(ctx, balanceKey(id))
	_, _ = pipe.Exec(ctx)

	data, err := profile.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUnknownPlayer
		}
		return nil, err
	}

	var player model.Player
	if err := json.Unmarshal(data, &player); err != nil {
		return nil, err
	}

	player.Balance, err = balance.Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	return &player, nil
}

func (s *Storage) GetPlayerByChatID(ctx context.Context, chatID int64) (*model.Player, error) {
	id, err := s.client.Get(ctx, chatIndexKey(chatID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUnknownPlayer
		}
		return nil, err
	}
	return s.GetPlayer(ctx, model.PlayerID(id))
}

// Balance operations

func (s *Storage) GetBalance(ctx context.Context, id model.PlayerID) (int64, error) {
	balance, err := s.client.Get(ctx, balanceKey(id)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, model.ErrUnknownPlayer
		}
		return 0, err
	}
	return balance, nil
}

func (s *Storage) Debit(ctx context.Context, id model.PlayerID, amount int64) (int64, error) {
	return s.runBalanceScript(ctx, debitScript, id, amount)
}

func (s *Storage) Credit(ctx context.Context, id model.PlayerID, amount int64) (int64, error) {
	return s.runBalanceScript(ctx, creditScript, id, amount)
}

func (s *Storage) runBalanceScript(ctx context.Context, script *redis.Script, id model.PlayerID, amount int64) (int64, error) {
	res, err := script.Run(ctx, s.client, []string{balanceKey(id)}, amount).Int64Slice()
	if err != nil {
		return 0, err
	}
	if len(res) != 2 {
		return 0, fmt.Errorf("unexpected balance script reply: %v", res)
	}

	switch res[0] {
	case scriptOK:
		return res[1], nil
	case scriptInsufficient:
		return res[1], model.ErrInsufficientFunds
	case scriptUnknown:
		return 0, model.ErrUnknownPlayer
	default:
		return 0, fmt.Errorf("unexpected balance script status %d", res[0])
	}
}

// Archive operations

func (s *Storage) SaveRound(ctx context.Context, round model.ArchivedRound) error {
	data, err := json.Marshal(round)
	if err != nil {
		return err
	}
	return s.appendRecord(ctx, roundKey(round.RoomID), roundsIndexKey(), data,
		float64(round.SettledAt.UnixMilli()), string(round.RoomID))
}

func (s *Storage) SaveReward(ctx context.Context, reward model.RewardRecord) error {
	data, err := json.Marshal(reward)
	if err != nil {
		return err
	}
	return s.appendRecord(ctx, rewardKey(reward.RoomID), rewardsForPlayerIndexKey(reward.PlayerID), data,
		float64(reward.WonAt.UnixMilli()), string(reward.RoomID))
}

// appendRecord stores a record once and indexes it. The index add runs on
// every call, so replaying a record whose earlier index write failed still
// makes it listable. NX on both keeps the first record and its score.
func (s *Storage) appendRecord(ctx context.Context, recordKey, indexKey string, data []byte, score float64, member string) error {
	pipe := s.client.TxPipeline()
	pipe.SetNX(ctx, recordKey, data, s.cfg.ArchiveTTL)
	pipe.ZAddNX(ctx, indexKey, redis.Z{Score: score, Member: member})
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Storage) ListRounds(ctx context.Context, limit int) ([]model.ArchivedRound, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	ids, err := s.client.ZRevRange(ctx, roundsIndexKey(), 0, stop).Result()
	if err != nil {
		return nil, err
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = roundKey(model.RoomID(id))
	}
	return fetchAll[model.ArchivedRound](ctx, s.client, keys)
}

func (s *Storage) ListRewards(ctx context.Context, playerID model.PlayerID) ([]model.RewardRecord, error) {
	ids, err := s.client.ZRevRange(ctx, rewardsForPlayerIndexKey(playerID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = rewardKey(model.RoomID(id))
	}
	return fetchAll[model.RewardRecord](ctx, s.client, keys)
}

// fetchAll loads JSON records with MGET, preserving key order and
// skipping keys that have expired out from under their index
func fetchAll[T any](ctx context.Context, client *redis.Client, keys []string) ([]T, error) {
	out := make([]T, 0, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	values, err := client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	for _, val := range values {
		str, ok := val.(string)
		if !ok {
			continue
		}
		var record T
		if err := json.Unmarshal([]byte(str), &record); err != nil {
			continue // Skip invalid data
		}
		out = append(out, record)
	}
	return out, nil
}

package balance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mcoot/wagerlobby/internal/model"
	"github.com/mcoot/wagerlobby/internal/storage"
)

// Config holds configuration for the balance gateway
type Config struct {
	// ReserveTimeout bounds each call into the backing store
	ReserveTimeout time.Duration
}

// DefaultConfig returns default gateway configuration
func DefaultConfig() Config {
	return Config{
		ReserveTimeout: 2 * time.Second,
	}
}

// Gateway is the only component that mutates player balances
type Gateway struct {
	storage storage.Storage
	timeout time.Duration
}

// New creates a new balance Gateway
func New(storage storage.Storage, cfg Config) *Gateway {
	if cfg.ReserveTimeout <= 0 {
		cfg.ReserveTimeout = DefaultConfig().ReserveTimeout
	}
	return &Gateway{
		storage: storage,
		timeout: cfg.ReserveTimeout,
	}
}

// Reserve debits amount from the player's balance if it covers it.
// A reservation that runs past its deadline is reported as ErrTimeout and
// must be treated as failed by the caller.
func (g *Gateway) Reserve(ctx context.Context, playerID model.PlayerID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: reserve amount must be positive", model.ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	balance, err := g.storage.Debit(ctx, playerID, amount)
	if err != nil {
		return balance, g.classify(ctx, "reserve", playerID, err)
	}
	return balance, nil
}

// Release credits a previously reserved amount back to the player
func (g *Gateway) Release(ctx context.Context, playerID model.PlayerID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: release amount must be positive", model.ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	balance, err := g.storage.Credit(ctx, playerID, amount)
	if err != nil {
		return balance, g.classify(ctx, "release", playerID, err)
	}
	return balance, nil
}

// Get returns the player with their current balance
func (g *Gateway) Get(ctx context.Context, playerID model.PlayerID) (*model.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	player, err := g.storage.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, g.classify(ctx, "get", playerID, err)
	}
	return player, nil
}

func (g *Gateway) classify(ctx context.Context, op string, playerID model.PlayerID, err error) error {
	switch {
	case errors.Is(err, model.ErrInsufficientFunds), errors.Is(err, model.ErrUnknownPlayer):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %s for player %s", model.ErrTimeout, op, playerID)
	default:
		return fmt.Errorf("failed to %s balance for player %s: %w", op, playerID, err)
	}
}

package archive

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/wagerlobby/internal/model"
	"github.com/mcoot/wagerlobby/internal/storage"
)

// Config holds configuration for the archiver
type Config struct {
	Enabled      bool
	QueueSize    int
	WriteTimeout time.Duration
}

// DefaultConfig returns default archiver configuration
func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		QueueSize:    256,
		WriteTimeout: 5 * time.Second,
	}
}

var errQueueFull = errors.New("archive queue full")

type job struct {
	round  *model.ArchivedRound
	reward *model.RewardRecord
}

// Archiver appends settled rounds and rewards to durable storage off the
// round executor's path. Write failures are logged with the full record.
type Archiver struct {
	store  storage.ArchiveStore
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	queue  chan job
	wg     sync.WaitGroup
}

// New creates a new Archiver. Start must be called to begin writing.
func New(store storage.ArchiveStore, cfg Config, logger *slog.Logger) *Archiver {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultConfig().WriteTimeout
	}
	return &Archiver{
		store:  store,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "archiver")),
		queue:  make(chan job, cfg.QueueSize),
	}
}

// Enabled reports whether archiving is switched on
func (a *Archiver) Enabled() bool {
	return a.cfg.Enabled
}

// Start launches the background writer
func (a *Archiver) Start() {
	if !a.cfg.Enabled {
		a.logger.Info("archiver disabled")
		return
	}
	a.wg.Add(1)
	go a.run()
}

func (a *Archiver) run() {
	defer a.wg.Done()
	for j := range a.queue {
		a.write(j)
	}
}

func (a *Archiver) write(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.WriteTimeout)
	defer cancel()

	switch {
	case j.round != nil:
		if err := a.store.SaveRound(ctx, *j.round); err != nil {
			a.logFailure("round", j.round, err)
			return
		}
		a.logger.Debug("round archived",
			slog.String("room_id", string(j.round.RoomID)),
			slog.Int64("round_seq", j.round.RoundSeq))
	case j.reward != nil:
		if err := a.store.SaveReward(ctx, *j.reward); err != nil {
			a.logFailure("reward", j.reward, err)
			return
		}
		a.logger.Debug("reward archived",
			slog.String("room_id", string(j.reward.RoomID)),
			slog.String("player_id", string(j.reward.PlayerID)))
	}
}

func (a *Archiver) logFailure(kind string, record any, err error) {
	payload, mErr := json.Marshal(record)
	if mErr != nil {
		payload = []byte(mErr.Error())
	}
	a.logger.Error("archive write failed",
		slog.String("kind", kind),
		slog.String("payload", string(payload)),
		slog.Any("error", err))
}

// ArchiveRound queues a settled room snapshot. Never blocks.
func (a *Archiver) ArchiveRound(round model.ArchivedRound) {
	a.enqueue(job{round: &round}, "round", round)
}

// ArchiveReward queues a reward record. Never blocks.
func (a *Archiver) ArchiveReward(reward model.RewardRecord) {
	a.enqueue(job{reward: &reward}, "reward", reward)
}

func (a *Archiver) enqueue(j job, kind string, record any) {
	if !a.cfg.Enabled {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		a.logFailure(kind, record, model.ErrArchiveDisabled)
		return
	}
	select {
	case a.queue <- j:
	default:
		a.logFailure(kind, record, errQueueFull)
	}
}

// RecentRounds returns archived rounds, newest first
func (a *Archiver) RecentRounds(ctx context.Context, limit int) ([]model.ArchivedRound, error) {
	if !a.cfg.Enabled {
		return nil, model.ErrArchiveDisabled
	}
	return a.store.ListRounds(ctx, limit)
}

// RewardsFor returns the player's reward records, newest first
func (a *Archiver) RewardsFor(ctx context.Context, playerID model.PlayerID) ([]model.RewardRecord, error) {
	if !a.cfg.Enabled {
		return nil, model.ErrArchiveDisabled
	}
	return a.store.ListRewards(ctx, playerID)
}

// Close stops accepting records and waits for queued writes to finish,
// or for ctx to expire
func (a *Archiver) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

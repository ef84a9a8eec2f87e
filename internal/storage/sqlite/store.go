// Package sqlite provides a SQLite-backed round archive.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mcoot/wagerlobby/internal/model"
	"github.com/mcoot/wagerlobby/internal/storage"
	"github.com/mcoot/wagerlobby/internal/storage/sqlite/migrations"
)

// Store persists archived rounds and rewards in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.ArchiveStore = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite archive and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func applyMigrations(sqlDB *sql.DB, migrationFS fs.FS) error {
	if _, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		var applied int
		if err := sqlDB.QueryRow(`SELECT COUNT(1) FROM schema_migrations WHERE name = ?`, file).Scan(&applied); err != nil {
			return fmt.Errorf("check migration %s: %w", file, err)
		}
		if applied > 0 {
			continue
		}

		content, err := fs.ReadFile(migrationFS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}

		tx, err := sqlDB.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", file, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)`, file, toMillis(time.Now())); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
	}
	return nil
}

// SaveRound inserts one archived round. A round already stored is left as is.
func (s *Store) SaveRound(ctx context.Context, round model.ArchivedRound) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if round.RoomID == "" {
		return fmt.Errorf("room id is required")
	}
	seats, err := json.Marshal(round.Seats)
	if err != nil {
		return fmt.Errorf("encode seats: %w", err)
	}
	winner, err := json.Marshal(round.Winner)
	if err != nil {
		return fmt.Errorf("encode winner: %w", err)
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO archived_rounds (
		   room_id,
		   tier,
		   round_seq,
		   pot,
		   winner_id,
		   seats_json,
		   winner_json,
		   created_at,
		   armed_at,
		   settled_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(room_id) DO NOTHING`,
		string(round.RoomID),
		string(round.Tier),
		round.RoundSeq,
		round.Pot,
		string(round.Winner.PlayerID),
		string(seats),
		string(winner),
		toMillis(round.CreatedAt),
		toMillis(round.ArmedAt),
		toMillis(round.SettledAt),
	)
	if err != nil {
		return fmt.Errorf("save round: %w", err)
	}
	return nil
}

// SaveReward inserts one reward record. A reward already stored for the room is left as is.
func (s *Store) SaveReward(ctx context.Context, reward model.RewardRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if reward.RoomID == "" {
		return fmt.Errorf("room id is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO reward_records (
		   room_id,
		   player_id,
		   tier,
		   reward_handle,
		   bet,
		   pot,
		   round_seq,
		   won_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(room_id) DO NOTHING`,
		string(reward.RoomID),
		string(reward.PlayerID),
		string(reward.Tier),
		reward.RewardHandle,
		reward.Bet,
		reward.Pot,
		reward.RoundSeq,
		toMillis(reward.WonAt),
	)
	if err != nil {
		return fmt.Errorf("save reward: %w", err)
	}
	return nil
}

// ListRounds returns rounds newest first.
func (s *Store) ListRounds(ctx context.Context, limit int) ([]model.ArchivedRound, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT room_id, tier, round_seq, pot, seats_json, winner_json, created_at, armed_at, settled_at
		 FROM archived_rounds
		 ORDER BY settled_at DESC, rowid DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	defer rows.Close()

	rounds := []model.ArchivedRound{}
	for rows.Next() {
		var (
			round                         model.ArchivedRound
			roomID, tier                  string
			seatsJSON, winnerJSON         string
			createdAt, armedAt, settledAt int64
		)
		if err := rows.Scan(&roomID, &tier, &round.RoundSeq, &round.Pot, &seatsJSON, &winnerJSON, &createdAt, &armedAt, &settledAt); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		if err := json.Unmarshal([]byte(seatsJSON), &round.Seats); err != nil {
			return nil, fmt.Errorf("decode seats: %w", err)
		}
		if err := json.Unmarshal([]byte(winnerJSON), &round.Winner); err != nil {
			return nil, fmt.Errorf("decode winner: %w", err)
		}
		round.RoomID = model.RoomID(roomID)
		round.Tier = model.TierName(tier)
		round.CreatedAt = fromMillis(createdAt)
		round.ArmedAt = fromMillis(armedAt)
		round.SettledAt = fromMillis(settledAt)
		rounds = append(rounds, round)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rounds: %w", err)
	}
	return rounds, nil
}

// ListRewards returns one player's rewards newest first.
func (s *Store) ListRewards(ctx context.Context, playerID model.PlayerID) ([]model.RewardRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT room_id, player_id, tier, reward_handle, bet, pot, round_seq, won_at
		 FROM reward_records
		 WHERE player_id = ?
		 ORDER BY won_at DESC, rowid DESC`,
		string(playerID),
	)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	rewards := []model.RewardRecord{}
	for rows.Next() {
		var (
			reward               model.RewardRecord
			roomID, player, tier string
			wonAt                int64
		)
		if err := rows.Scan(&roomID, &player, &tier, &reward.RewardHandle, &reward.Bet, &reward.Pot, &reward.RoundSeq, &wonAt); err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		reward.RoomID = model.RoomID(roomID)
		reward.PlayerID = model.PlayerID(player)
		reward.Tier = model.TierName(tier)
		reward.WonAt = fromMillis(wonAt)
		rewards = append(rewards, reward)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rewards: %w", err)
	}
	return rewards, nil
}

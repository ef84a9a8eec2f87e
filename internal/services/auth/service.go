package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mcoot/wagerlobby/internal/dependencies/clock"
	"github.com/mcoot/wagerlobby/internal/model"
	"github.com/mcoot/wagerlobby/internal/storage"
)

const (
	tokenIssuer = "wagerlobby"

	// maxClockSkew tolerates envelopes signed slightly in our future
	maxClockSkew = time.Minute
)

// Session represents an authenticated player and their bearer token
type Session struct {
	Token     string
	PlayerID  model.PlayerID
	Player    model.Player
	ExpiresAt time.Time
	Created   bool // true when the bootstrap created the player
}

// Claims is the payload of a session token
type Claims struct {
	PlayerID string `json:"pid"`
	jwt.RegisteredClaims
}

// Service verifies identity envelopes, upserts players and issues session tokens
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	cfg     Config
}

// Config holds configuration for the auth service
type Config struct {
	// PlatformSecret verifies envelope signatures
	PlatformSecret string
	// BypassMarker, when presented, marks an envelope as already verified
	BypassMarker string
	// Freshness is the maximum envelope age
	Freshness time.Duration
	// SigningKey signs session tokens
	SigningKey []byte
	// SessionDuration is the lifetime of a session token
	SessionDuration time.Duration
	// StartingBalance is credited to newly created players
	StartingBalance int64
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		Freshness:       24 * time.Hour,
		SessionDuration: 24 * time.Hour,
	}
}

// New creates a new AuthService
func New(storage storage.Storage, clock clock.Clock, cfg Config) *Service {
	if cfg.Freshness == 0 {
		cfg.Freshness = DefaultConfig().Freshness
	}
	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = DefaultConfig().SessionDuration
	}
	return &Service{
		storage: storage,
		clock:   clock,
		cfg:     cfg,
	}
}

// Bootstrap accepts an identity envelope, upserts the player keyed by chat
// id and returns a session. marker is the bypass marker presented by an
// embedding platform, or empty.
func (s *Service) Bootstrap(ctx context.Context, env Envelope, marker string) (*Session, error) {
	if env.ChatID == 0 {
		return nil, fmt.Errorf("%w: chat id is required", model.ErrInvalidInput)
	}
	if strings.TrimSpace(env.DisplayName) == "" {
		return nil, fmt.Errorf("%w: display name is required", model.ErrInvalidInput)
	}

	// The signature covers the fields exactly as the platform sent them.
	if !s.trusted(marker) && !env.verify(s.cfg.PlatformSecret) {
		return nil, model.ErrAuthRejected
	}

	now := s.clock.Now()
	if env.SignedAt.IsZero() || now.Sub(env.SignedAt) > s.cfg.Freshness {
		return nil, model.ErrEnvelopeStale
	}
	if env.SignedAt.Sub(now) > maxClockSkew {
		return nil, fmt.Errorf("%w: envelope signed in the future", model.ErrAuthRejected)
	}

	env.DisplayName = strings.TrimSpace(env.DisplayName)
	env.Handle = strings.TrimPrefix(strings.TrimSpace(env.Handle), "@")

	player, created, err := s.upsert(ctx, env, now)
	if err != nil {
		return nil, err
	}

	session, err := s.issue(player)
	if err != nil {
		return nil, err
	}
	session.Created = created
	return session, nil
}

func (s *Service) trusted(marker string) bool {
	if s.cfg.BypassMarker == "" || marker == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(marker), []byte(s.cfg.BypassMarker)) == 1
}

func (s *Service) upsert(ctx context.Context, env Envelope, now time.Time) (*model.Player, bool, error) {
	existing, err := s.storage.GetPlayerByChatID(ctx, env.ChatID)
	switch {
	case err == nil:
		return s.refresh(ctx, existing, env, now)
	case !errors.Is(err, model.ErrUnknownPlayer):
		return nil, false, err
	}

	player := &model.Player{
		ID:          model.PlayerID(uuid.NewString()),
		ChatID:      env.ChatID,
		DisplayName: env.DisplayName,
		Handle:      env.Handle,
		Balance:     s.cfg.StartingBalance,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	stored, created, err := s.storage.CreatePlayer(ctx, player)
	if err != nil {
		return nil, false, err
	}
	if !created {
		// Lost a race with a concurrent bootstrap for the same chat id
		return s.refresh(ctx, stored, env, now)
	}
	return stored, true, nil
}

func (s *Service) refresh(ctx context.Context, player *model.Player, env Envelope, now time.Time) (*model.Player, bool, error) {
	player.DisplayName = env.DisplayName
	player.Handle = env.Handle
	player.UpdatedAt = now
	if err := s.storage.SavePlayer(ctx, player); err != nil {
		return nil, false, err
	}
	return player, false, nil
}

// issue signs a session token for a player
func (s *Service) issue(player *model.Player) (*Session, error) {
	now := s.clock.Now()
	expiresAt := now.Add(s.cfg.SessionDuration)

	claims := &Claims{
		PlayerID: string(player.ID),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(player.ID),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.SigningKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	return &Session{
		Token:     token,
		PlayerID:  player.ID,
		Player:    *player,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateSession checks a session token and returns the player id it carries
func (s *Service) ValidateSession(token string) (model.PlayerID, error) {
	if token == "" {
		return "", model.ErrInvalidSession
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.cfg.SigningKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrInvalidSession, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.PlayerID == "" {
		return "", model.ErrInvalidSession
	}
	return model.PlayerID(claims.PlayerID), nil
}

package factory

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/mcoot/wagerlobby/internal/dependencies/mocks"
	"github.com/mcoot/wagerlobby/internal/model"
	"github.com/mcoot/wagerlobby/internal/services/archive"
	"github.com/mcoot/wagerlobby/internal/services/auth"
	"github.com/mcoot/wagerlobby/internal/services/match"
	"github.com/mcoot/wagerlobby/internal/storage/memory"
	"github.com/mcoot/wagerlobby/internal/testutil"
)

// Credentials used by test apps
const (
	TestPlatformSecret = "test-platform-secret"
	TestBypassMarker   = "test-bypass-marker"
	TestSigningKey     = "test-session-signing-key"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	Memory     *memory.Storage

	chatIDs atomic.Int64
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// Rounds draw as soon as a room fills. Call Start to run it.
func NewTestApp() *TestApp {
	return NewTestAppWithSuspense(0)
}

// NewTestAppWithSuspense creates a test App with the given suspense interval
func NewTestAppWithSuspense(suspense time.Duration) *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	archiveCfg := archive.DefaultConfig()
	app := newWithDependencies(store, store, mockClock, mockRandom, Config{
		Tiers: model.DefaultTiers(),
		AuthConfig: auth.Config{
			PlatformSecret:  TestPlatformSecret,
			BypassMarker:    TestBypassMarker,
			SigningKey:      []byte(TestSigningKey),
			Freshness:       24 * time.Hour,
			SessionDuration: 24 * time.Hour,
		},
		EngineConfig:  &match.Config{Suspense: suspense},
		ArchiveConfig: &archiveCfg,
	}, testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		Memory:     store,
	}
}

// SeedPlayer stores a player with the given balance
func (t *TestApp) SeedPlayer(ctx context.Context, id, name string, balance int64) (*model.Player, error) {
	player := &model.Player{
		ID:          model.PlayerID(id),
		ChatID:      t.chatIDs.Add(1),
		DisplayName: name,
		Balance:     balance,
		CreatedAt:   t.MockClock.Now(),
		UpdatedAt:   t.MockClock.Now(),
	}
	if err := t.Storage.SavePlayer(ctx, player); err != nil {
		return nil, err
	}
	return player, nil
}

package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/wagerlobby/internal/dependencies/mocks"
	"github.com/mcoot/wagerlobby/internal/model"
	"github.com/mcoot/wagerlobby/internal/storage/memory"
)

const (
	testSecret = "platform-secret"
	testMarker = "embedded-ok"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	cfg := DefaultConfig()
	cfg.PlatformSecret = testSecret
	cfg.BypassMarker = testMarker
	cfg.SigningKey = []byte("session-key")
	cfg.StartingBalance = 1000
	s.service = New(s.storage, s.clock, cfg)
	s.ctx = context.Background()
}

func (s *ServiceSuite) signed(chatID int64, name, handle string) Envelope {
	env := Envelope{
		ChatID:      chatID,
		DisplayName: name,
		Handle:      handle,
		SignedAt:    s.clock.Now().Add(-time.Minute),
	}
	env.Signature = SignEnvelope(testSecret, env)
	return env
}

// Bootstrap tests

func (s *ServiceSuite) TestBootstrapCreatesPlayer() {
	session, err := s.service.Bootstrap(s.ctx, s.signed(42, "Alice", "alice"), "")
	s.Require().NoError(err)

	s.True(session.Created)
	s.NotEmpty(session.Token)
	s.Equal("Alice", session.Player.DisplayName)
	s.Equal(int64(1000), session.Player.Balance)

	player, err := s.storage.GetPlayerByChatID(s.ctx, 42)
	s.Require().NoError(err)
	s.Equal(session.PlayerID, player.ID)
	s.Equal("alice", player.Handle)

	balance, err := s.storage.GetBalance(s.ctx, player.ID)
	s.Require().NoError(err)
	s.Equal(int64(1000), balance)
}

func (s *ServiceSuite) TestBootstrapRefreshesExistingPlayer() {
	first, err := s.service.Bootstrap(s.ctx, s.signed(42, "Alice", "alice"), "")
	s.Require().NoError(err)
	_, err = s.storage.Debit(s.ctx, first.PlayerID, 300)
	s.Require().NoError(err)

	second, err := s.service.Bootstrap(s.ctx, s.signed(42, "Alice B", "@aliceb"), "")
	s.Require().NoError(err)

	s.False(second.Created)
	s.Equal(first.PlayerID, second.PlayerID)

	player, err := s.storage.GetPlayer(s.ctx, first.PlayerID)
	s.Require().NoError(err)
	s.Equal("Alice B", player.DisplayName)
	s.Equal("aliceb", player.Handle)

	// A repeat bootstrap never resets the balance
	balance, err := s.storage.GetBalance(s.ctx, first.PlayerID)
	s.Require().NoError(err)
	s.Equal(int64(700), balance)
}

func (s *ServiceSuite) TestBootstrapRejectsBadSignature() {
	env := s.signed(42, "Alice", "")
	env.DisplayName = "Mallory"

	_, err := s.service.Bootstrap(s.ctx, env, "")
	s.ErrorIs(err, model.ErrAuthRejected)

	_, err = s.storage.GetPlayerByChatID(s.ctx, 42)
	s.ErrorIs(err, model.ErrUnknownPlayer)
}

func (s *ServiceSuite) TestBootstrapRejectsMissingSignature() {
	env := s.signed(42, "Alice", "")
	env.Signature = ""

	_, err := s.service.Bootstrap(s.ctx, env, "")
	s.ErrorIs(err, model.ErrAuthRejected)
}

func (s *ServiceSuite) TestBootstrapVerifiesFieldsAsSigned() {
	session, err := s.service.Bootstrap(s.ctx, s.signed(77, "Bob", "@bob"), "")
	s.Require().NoError(err)
	s.Equal("bob", session.Player.Handle)

	session, err = s.service.Bootstrap(s.ctx, s.signed(78, " Carol ", ""), "")
	s.Require().NoError(err)
	s.Equal("Carol", session.Player.DisplayName)

	stored, err := s.storage.GetPlayerByChatID(s.ctx, 78)
	s.Require().NoError(err)
	s.Equal("Carol", stored.DisplayName)
}

func (s *ServiceSuite) TestBootstrapRejectsSignatureOverNormalizedFields() {
	// Signed as "bob" but delivered as "@bob"
	env := s.signed(79, "Bob", "bob")
	env.Handle = "@bob"

	_, err := s.service.Bootstrap(s.ctx, env, "")
	s.ErrorIs(err, model.ErrAuthRejected)
}

func (s *ServiceSuite) TestConcurrentBootstrapsCreateOnePlayer() {
	const callers = 20

	var wg sync.WaitGroup
	sessions := make([]*Session, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sessions[i], errs[i] = s.service.Bootstrap(s.ctx, s.signed(500, "Dana", "dana"), "")
		}(i)
	}
	wg.Wait()

	created := 0
	for i := 0; i < callers; i++ {
		s.Require().NoError(errs[i])
		s.Equal(sessions[0].PlayerID, sessions[i].PlayerID)
		if sessions[i].Created {
			created++
		}
	}
	s.Equal(1, created)

	stored, err := s.storage.GetPlayerByChatID(s.ctx, 500)
	s.Require().NoError(err)
	s.Equal(sessions[0].PlayerID, stored.ID)
	s.Equal(int64(1000), stored.Balance)
}

func (s *ServiceSuite) TestBootstrapAcceptsBypassMarker() {
	env := Envelope{ChatID: 7, DisplayName: "Bob", SignedAt: s.clock.Now()}

	session, err := s.service.Bootstrap(s.ctx, env, testMarker)
	s.Require().NoError(err)
	s.Equal("Bob", session.Player.DisplayName)
}

func (s *ServiceSuite) TestBootstrapRejectsWrongBypassMarker() {
	env := Envelope{ChatID: 7, DisplayName: "Bob", SignedAt: s.clock.Now()}

	_, err := s.service.Bootstrap(s.ctx, env, "nope")
	s.ErrorIs(err, model.ErrAuthRejected)
}

func (s *ServiceSuite) TestBootstrapBypassDisabledWhenUnconfigured() {
	cfg := DefaultConfig()
	cfg.SigningKey = []byte("k")
	service := New(s.storage, s.clock, cfg)

	env := Envelope{ChatID: 7, DisplayName: "Bob", SignedAt: s.clock.Now()}
	_, err := service.Bootstrap(s.ctx, env, "")
	s.ErrorIs(err, model.ErrAuthRejected)
}

func (s *ServiceSuite) TestBootstrapRejectsStaleEnvelope() {
	env := s.signed(42, "Alice", "")
	s.clock.Advance(25 * time.Hour)

	_, err := s.service.Bootstrap(s.ctx, env, "")
	s.ErrorIs(err, model.ErrEnvelopeStale)
}

func (s *ServiceSuite) TestBootstrapRejectsStaleEnvelopeEvenWithBypass() {
	env := Envelope{ChatID: 7, DisplayName: "Bob", SignedAt: s.clock.Now().Add(-48 * time.Hour)}

	_, err := s.service.Bootstrap(s.ctx, env, testMarker)
	s.ErrorIs(err, model.ErrEnvelopeStale)
}

func (s *ServiceSuite) TestBootstrapRejectsFutureEnvelope() {
	env := Envelope{ChatID: 7, DisplayName: "Bob", SignedAt: s.clock.Now().Add(time.Hour)}
	env.Signature = SignEnvelope(testSecret, env)

	_, err := s.service.Bootstrap(s.ctx, env, "")
	s.ErrorIs(err, model.ErrAuthRejected)
}

func (s *ServiceSuite) TestBootstrapValidatesShape() {
	tests := []struct {
		name string
		env  Envelope
	}{
		{"missing chat id", Envelope{DisplayName: "Alice"}},
		{"missing display name", Envelope{ChatID: 1, DisplayName: "   "}},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			tt.env.SignedAt = s.clock.Now()
			_, err := s.service.Bootstrap(s.ctx, tt.env, testMarker)
			s.ErrorIs(err, model.ErrInvalidInput)
		})
	}
}

// ValidateSession tests

func (s *ServiceSuite) TestValidateSessionSucceeds() {
	session, err := s.service.Bootstrap(s.ctx, s.signed(42, "Alice", ""), "")
	s.Require().NoError(err)

	playerID, err := s.service.ValidateSession(session.Token)
	s.Require().NoError(err)
	s.Equal(session.PlayerID, playerID)
}

func (s *ServiceSuite) TestValidateSessionExpired() {
	session, err := s.service.Bootstrap(s.ctx, s.signed(42, "Alice", ""), "")
	s.Require().NoError(err)

	s.clock.Advance(25 * time.Hour)

	_, err = s.service.ValidateSession(session.Token)
	s.ErrorIs(err, model.ErrInvalidSession)
}

func (s *ServiceSuite) TestValidateSessionRejectsGarbage() {
	_, err := s.service.ValidateSession("not-a-token")
	s.ErrorIs(err, model.ErrInvalidSession)

	_, err = s.service.ValidateSession("")
	s.ErrorIs(err, model.ErrInvalidSession)
}

func (s *ServiceSuite) TestValidateSessionRejectsForeignKey() {
	session, err := s.service.Bootstrap(s.ctx, s.signed(42, "Alice", ""), "")
	s.Require().NoError(err)

	cfg := DefaultConfig()
	cfg.SigningKey = []byte("another-key")
	other := New(s.storage, s.clock, cfg)

	_, err = other.ValidateSession(session.Token)
	s.ErrorIs(err, model.ErrInvalidSession)
}

func (s *ServiceSuite) TestSignEnvelopeIsDeterministic() {
	env := s.signed(42, "Alice", "alice")
	s.Equal(env.Signature, SignEnvelope(testSecret, env))
	s.NotEqual(env.Signature, SignEnvelope("other", env))
	s.Len(env.Signature, 64)
}

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mcoot/wagerlobby/internal/api/apierr"
	"github.com/mcoot/wagerlobby/internal/model"
)

type contextKey string

const playerIDContextKey contextKey = "player_id"

// SessionValidator resolves a session token to the player it belongs to
type SessionValidator interface {
	ValidateSession(token string) (model.PlayerID, error)
}

// Auth creates authentication middleware
func Auth(sessions SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			playerID, err := sessions.ValidateSession(token)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPlayerID(r.Context(), playerID)))
		})
	}
}

// extractToken extracts the session token from the request. Browsers cannot
// set headers on EventSource or WebSocket requests, hence the query fallback.
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	if cookie, err := r.Cookie("session"); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	return r.URL.Query().Get("token")
}

// WithPlayerID stores the authenticated player id in a context
func WithPlayerID(ctx context.Context, playerID model.PlayerID) context.Context {
	return context.WithValue(ctx, playerIDContextKey, playerID)
}

// GetPlayerID returns the authenticated player id from the request context
func GetPlayerID(ctx context.Context) (model.PlayerID, bool) {
	playerID, ok := ctx.Value(playerIDContextKey).(model.PlayerID)
	return playerID, ok && playerID != ""
}

// MustGetPlayerID returns the authenticated player id or panics
func MustGetPlayerID(ctx context.Context) model.PlayerID {
	playerID, ok := GetPlayerID(ctx)
	if !ok {
		panic("no player in context - auth middleware not applied?")
	}
	return playerID
}

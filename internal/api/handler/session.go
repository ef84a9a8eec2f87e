package handler

import (
	"net/http"
	"time"

	"github.com/mcoot/wagerlobby/internal/api/request"
	"github.com/mcoot/wagerlobby/internal/api/response"
	"github.com/mcoot/wagerlobby/internal/services/auth"
)

// BypassMarkerHeader carries the embedding platform's trust marker
const BypassMarkerHeader = "X-Bypass-Marker"

// SessionHandler handles session bootstrap
type SessionHandler struct {
	authService *auth.Service
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(authService *auth.Service) *SessionHandler {
	return &SessionHandler{
		authService: authService,
	}
}

// Bootstrap handles POST /api/v1/session
func (h *SessionHandler) Bootstrap(w http.ResponseWriter, r *http.Request) {
	var req request.SessionRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	env := auth.Envelope{
		ChatID:      req.ChatID,
		DisplayName: req.DisplayName,
		Handle:      req.Handle,
		SignedAt:    time.Unix(req.SignedAt, 0),
		Signature:   req.Signature,
	}

	session, err := h.authService.Bootstrap(r.Context(), env, r.Header.Get(BypassMarkerHeader))
	if err != nil {
		WriteError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	status := http.StatusOK
	if session.Created {
		status = http.StatusCreated
	}
	response.JSON(w, status, response.SessionFromAuth(session))
}

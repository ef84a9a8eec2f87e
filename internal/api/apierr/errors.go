package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/mcoot/wagerlobby/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Error codes
const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeTierUnknown       = "TIER_UNKNOWN"
	CodeNoOpenRoom        = "NO_OPEN_ROOM"
	CodeBetOutOfRange     = "BET_OUT_OF_RANGE"
	CodeUnknownPlayer     = "UNKNOWN_PLAYER"
	CodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	CodeAlreadySeated     = "ALREADY_SEATED"
	CodeRoomJustFilled    = "ROOM_JUST_FILLED"
	CodeRoomNotFound      = "ROOM_NOT_FOUND"
	CodeStateConflict     = "STATE_CONFLICT"
	CodeTimeout           = "TIMEOUT"
	CodeArchiveDisabled   = "ARCHIVE_DISABLED"
	CodeInternalError     = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	if he.status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status an error maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, validationMessage(verrs)}}
	}

	switch {
	// Input
	case errors.Is(err, model.ErrInvalidInput):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, err.Error()}}
	case errors.Is(err, model.ErrBetOutOfRange):
		return &httpError{http.StatusBadRequest, APIError{CodeBetOutOfRange, "Bet is outside the tier limits"}}
	case errors.Is(err, model.ErrTierUnknown):
		return &httpError{http.StatusNotFound, APIError{CodeTierUnknown, "Tier not found"}}

	// Auth
	case errors.Is(err, model.ErrEnvelopeStale):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Identity envelope has expired"}}
	case errors.Is(err, model.ErrAuthRejected):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Identity envelope rejected"}}
	case errors.Is(err, model.ErrInvalidSession):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Invalid or expired session"}}

	// Entities
	case errors.Is(err, model.ErrUnknownPlayer):
		return &httpError{http.StatusNotFound, APIError{CodeUnknownPlayer, "Player not found"}}
	case errors.Is(err, model.ErrRoomNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeRoomNotFound, "Room not found"}}

	// Conflicts
	case errors.Is(err, model.ErrAlreadySeated):
		return &httpError{http.StatusConflict, APIError{CodeAlreadySeated, "Player already holds a seat"}}
	case errors.Is(err, model.ErrRoomNotOpen),
		errors.Is(err, model.ErrTierAlreadyOpen),
		errors.Is(err, model.ErrStateMismatch):
		return &httpError{http.StatusConflict, APIError{CodeStateConflict, "Room is not in the expected state"}}
	case errors.Is(err, model.ErrInsufficientFunds):
		return &httpError{http.StatusPaymentRequired, APIError{CodeInsufficientFunds, "Insufficient funds"}}

	// Transient
	case errors.Is(err, model.ErrRoomJustFilled):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeRoomJustFilled, "Room just filled, try again"}}
	case errors.Is(err, model.ErrNoOpenRoom):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeNoOpenRoom, "No open room for tier, try again"}}
	case errors.Is(err, model.ErrArchiveDisabled):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeArchiveDisabled, "History is not available"}}
	case errors.Is(err, model.ErrTimeout):
		return &httpError{http.StatusGatewayTimeout, APIError{CodeTimeout, "Balance store timed out"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

func validationMessage(verrs validator.ValidationErrors) string {
	if len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	if fe.Param() != "" {
		return fe.Field() + " failed " + fe.Tag() + "=" + fe.Param()
	}
	return fe.Field() + " failed " + fe.Tag()
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}

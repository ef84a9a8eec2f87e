package request

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mcoot/wagerlobby/internal/api/apierr"
)

const maxBodyBytes = 1 << 16

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json names so errors match what the client sent
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Decode reads a JSON body into dst and validates it
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apierr.NewInvalidRequestError("request body is required")
		}
		return apierr.NewInvalidRequestError("invalid request body")
	}
	return Validate(dst)
}

// Validate checks struct tags on a request value
func Validate(v any) error {
	return validate.Struct(v)
}

// ParseHistoryQuery reads and validates history query parameters
func ParseHistoryQuery(r *http.Request, defaultLimit int) (HistoryQuery, error) {
	q := HistoryQuery{Limit: defaultLimit}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return q, apierr.NewInvalidRequestError("limit must be an integer")
		}
		q.Limit = limit
	}
	if err := Validate(q); err != nil {
		return q, err
	}
	return q, nil
}

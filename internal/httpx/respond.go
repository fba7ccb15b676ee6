package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"gymnexus/internal/apperror"
	"gymnexus/internal/logger"
)

// JSON writes v as a JSON response body.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error().Err(err).Msg("failed to encode response")
	}
}

// StatusFor maps an error kind to its HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrAlreadyExists), errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperror.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as a plain-text message with the status matching its kind.
func Error(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Msg("request failed")
	}
	http.Error(w, err.Error(), status)
}

// DecodeJSON decodes the request body into v. Malformed bodies are ErrInvalid.
func DecodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %v: %w", err, apperror.ErrInvalid)
	}
	return nil
}

// PathInt64 parses a numeric chi URL parameter.
func PathInt64(r *http.Request, name string) (int64, error) {
	return parseInt64(name, chi.URLParam(r, name))
}

// QueryInt64 parses a required numeric query parameter.
func QueryInt64(r *http.Request, name string) (int64, error) {
	return parseInt64(name, r.URL.Query().Get(name))
}

// QueryInt parses a required integer query parameter. Values must fit in 32 bits.
func QueryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, missing(name)
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, invalid(name, raw)
	}
	return int(v), nil
}

// QueryFloat parses a required finite floating point query parameter.
func QueryFloat(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, missing(name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, invalid(name, raw)
	}
	return v, nil
}

// QueryString returns a required query parameter.
func QueryString(r *http.Request, name string) (string, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return "", missing(name)
	}
	return v, nil
}

func parseInt64(name, raw string) (int64, error) {
	if raw == "" {
		return 0, missing(name)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, invalid(name, raw)
	}
	return v, nil
}

func missing(name string) error {
	return &paramError{msg: "missing required parameter " + name}
}

func invalid(name, raw string) error {
	return &paramError{msg: "invalid value " + strconv.Quote(raw) + " for parameter " + name}
}

type paramError struct{ msg string }

func (e *paramError) Error() string { return e.msg }
func (e *paramError) Unwrap() error { return apperror.ErrInvalid }

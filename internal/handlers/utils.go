package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sheshield/apiserver/internal/validate"
)

type contextKey string

const contextIdentityKey contextKey = "identity"

// Identity is the verified caller bound to the request context by the
// auth middleware.
type Identity struct {
	ID    int
	Email string
	Role  string
}

func withIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, contextIdentityKey, identity)
}

func identityFromContext(ctx context.Context) (Identity, error) {
	identity, ok := ctx.Value(contextIdentityKey).(Identity)
	if !ok || identity.ID < 1 {
		return Identity{}, errors.New("missing identity")
	}
	return identity, nil
}

// ErrorResponse is the single-message error payload.
type ErrorResponse struct {
	Message string `json:"message"`
}

// ValidationResponse enumerates every failing field of a payload.
type ValidationResponse struct {
	Errors []validate.FieldError `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Message: message})
}

func writeFieldErrors(w http.ResponseWriter, errs []validate.FieldError) {
	writeJSON(w, http.StatusBadRequest, ValidationResponse{Errors: errs})
}

func parseIDParam(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

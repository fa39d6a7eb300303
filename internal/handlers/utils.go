package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/OkanBey11/ToDoApiWithGemini/internal/services"
)

const maxRequestBodyBytes = 1 << 20

type contextKey string

const contextIdentityKey contextKey = "identity"

// Identity is the authenticated caller, taken from a verified token.
type Identity struct {
	UserID   int64
	Username string
	Role     string
}

func withIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextIdentityKey, id)
}

func identityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextIdentityKey).(Identity)
	if !ok || id.UserID < 1 {
		return Identity{}, false
	}
	return id, true
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ValidationErrorResponse lists the rejected fields of a request.
type ValidationErrorResponse struct {
	Error  string                `json:"error"`
	Fields []services.FieldError `json:"fields"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, message)
}

// writeValidationError reports err as 422 when it is a *services.ValidationError.
func writeValidationError(w http.ResponseWriter, err error) bool {
	var verr *services.ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	writeJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
		Error:  "validation failed",
		Fields: verr.Fields,
	})
	return true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// parsePathID reads a strictly positive integer URL parameter.
func parsePathID(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return 0, errors.New("missing " + name)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New(name + " must be a positive integer")
	}
	return id, nil
}

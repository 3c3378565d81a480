package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"reader-annotations/internal/domain"
	apperrors "reader-annotations/pkg/errors"
)

type contextKey string

const (
	userContextKey  contextKey = "user"
	tokenContextKey contextKey = "token"
)

// maxBodyBytes bounds request bodies; positions with many rectangles are the largest payloads.
const maxBodyBytes = 1 << 20

// clientIDHeader names the reading surface a session request comes from.
const clientIDHeader = "X-Client-ID"

// GetUserFromContext extracts the authenticated user from request context
func GetUserFromContext(r *http.Request) (*domain.SupabaseUser, bool) {
	user, ok := r.Context().Value(userContextKey).(*domain.SupabaseUser)
	return user, ok
}

// GetTokenFromContext extracts the authentication token from request context
func GetTokenFromContext(r *http.Request) (string, bool) {
	token, ok := r.Context().Value(tokenContextKey).(string)
	return token, ok
}

// writeError writes an error response (helper function)
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// writeAppError maps err to its HTTP status. Server-side failures are logged.
func writeAppError(w http.ResponseWriter, logger domain.Logger, err error, msg string, fields ...interface{}) {
	status := apperrors.GetStatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.Error(msg, err, fields...)
	}
	writeError(w, status, apperrors.PublicMessage(err))
}

// decodeJSON reads a JSON body into v. An empty body is allowed when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}, allowEmpty bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return true
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// requireUser returns the authenticated user or writes 401.
func requireUser(w http.ResponseWriter, r *http.Request) (*domain.SupabaseUser, bool) {
	user, ok := GetUserFromContext(r)
	if !ok || user == nil {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return nil, false
	}
	return user, true
}

func clientID(r *http.Request) string {
	if id := r.Header.Get(clientIDHeader); id != "" {
		return id
	}
	return "default"
}

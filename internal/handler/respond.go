package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/siriwatk/noteflow-api/internal/usecase"
)

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string, details ...string) {
	respondJSON(w, status, errorResponse{Error: message, Details: details})
}

// respondUsecaseError translates the usecase failure taxonomy into HTTP
// status codes. Anything outside the taxonomy is an internal error and its
// detail stays server-side.
func respondUsecaseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, usecase.ErrInvalidCredentials),
		errors.Is(err, usecase.ErrMissingToken),
		errors.Is(err, usecase.ErrTokenExpired),
		errors.Is(err, usecase.ErrTokenInvalid),
		errors.Is(err, usecase.ErrTokenRevoked):
		respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, usecase.ErrUserNotFound),
		errors.Is(err, usecase.ErrNoteNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, usecase.ErrUserAlreadyExists),
		errors.Is(err, usecase.ErrAlreadyVerified):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, usecase.ErrResetAlreadyPending):
		respondError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, usecase.ErrInvalidOrExpiredOTP),
		errors.Is(err, usecase.ErrPasswordUnchanged):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, usecase.ErrEmailDeliveryFailed):
		respondError(w, http.StatusBadGateway, "failed to deliver email")
	default:
		respondError(w, http.StatusInternalServerError, "something went wrong")
	}
}

// decodeJSON decodes a request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

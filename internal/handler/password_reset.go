package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/siriwatk/noteflow-api/internal/payload"
	"github.com/siriwatk/noteflow-api/internal/usecase"
	"github.com/siriwatk/noteflow-api/internal/validation"
)

// PasswordResetHandler exposes the OTP-based password reset flow over HTTP.
type PasswordResetHandler struct {
	passwordResetUsecase usecase.PasswordResetUsecase
	validator            *validation.Validator
	logger               *zerolog.Logger
}

// NewPasswordResetHandler creates a new PasswordResetHandler instance.
func NewPasswordResetHandler(
	passwordResetUsecase usecase.PasswordResetUsecase,
	validator *validation.Validator,
	logger *zerolog.Logger,
) *PasswordResetHandler {
	return &PasswordResetHandler{
		passwordResetUsecase: passwordResetUsecase,
		validator:            validator,
		logger:               logger,
	}
}

// ForgotPassword handles POST /api/auth/password/forgot. The response is the
// same whether or not the email belongs to an account.
func (h *PasswordResetHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req payload.ForgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if details := h.validator.Struct(req); details != nil {
		respondError(w, http.StatusBadRequest, "validation failed", details...)
		return
	}

	if err := h.passwordResetUsecase.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.logger.Error().Err(err).Msg("failed to request password reset")
		respondUsecaseError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{
		"message": "if the email belongs to an account, a reset code has been sent",
	})
}

// ResetPassword handles POST /api/auth/password/reset.
func (h *PasswordResetHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req payload.ResetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if details := h.validator.Struct(req); details != nil {
		respondError(w, http.StatusBadRequest, "validation failed", details...)
		return
	}

	err := h.passwordResetUsecase.CompletePasswordReset(r.Context(), req.Email, req.Code, req.NewPassword)
	if err != nil {
		respondUsecaseError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

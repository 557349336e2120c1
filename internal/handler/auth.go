package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/siriwatk/noteflow-api/internal/payload"
	"github.com/siriwatk/noteflow-api/internal/usecase"
	"github.com/siriwatk/noteflow-api/internal/validation"
)

// AuthHandler exposes the credential-lifecycle operations over HTTP.
type AuthHandler struct {
	authUsecase         usecase.AuthUsecase
	verificationUsecase usecase.VerificationUsecase
	validator           *validation.Validator
	logger              *zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler instance.
func NewAuthHandler(
	authUsecase usecase.AuthUsecase,
	verificationUsecase usecase.VerificationUsecase,
	validator *validation.Validator,
	logger *zerolog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authUsecase:         authUsecase,
		verificationUsecase: verificationUsecase,
		validator:           validator,
		logger:              logger,
	}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req payload.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if details := h.validator.Struct(req); details != nil {
		respondError(w, http.StatusBadRequest, "validation failed", details...)
		return
	}

	user, err := h.authUsecase.Register(r.Context(), usecase.RegisterParams{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondUsecaseError(w, err)
		return
	}

	// Verification email is best-effort; a mail outage must not block
	// registration.
	if err := h.verificationUsecase.RequestEmailVerification(r.Context(), user.Email); err != nil {
		h.logger.Warn().Err(err).Msg("failed to send verification email")
	}

	respondJSON(w, http.StatusCreated, payload.NewUserResponse(user))
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req payload.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if details := h.validator.Struct(req); details != nil {
		respondError(w, http.StatusBadRequest, "validation failed", details...)
		return
	}

	user, accessToken, err := h.authUsecase.Login(r.Context(), usecase.LoginParams{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondUsecaseError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, payload.LoginResponse{
		AccessToken: accessToken,
		User:        payload.NewUserResponse(user),
	})
}

// Logout handles POST /api/auth/logout. The presented credential's jti is
// recorded as revoked; presenting it again fails until it would have expired
// anyway.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authUsecase.RevokeBearer(r.Context(), r.Header.Get("Authorization")); err != nil {
		respondUsecaseError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// VerifyEmail handles POST /api/auth/verify-email.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req payload.VerifyEmailRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if details := h.validator.Struct(req); details != nil {
		respondError(w, http.StatusBadRequest, "validation failed", details...)
		return
	}

	if err := h.verificationUsecase.ConfirmEmail(r.Context(), req.Email, req.Code); err != nil {
		respondUsecaseError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// ResendVerification handles POST /api/auth/verify-email/resend.
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req payload.ResendVerificationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if details := h.validator.Struct(req); details != nil {
		respondError(w, http.StatusBadRequest, "validation failed", details...)
		return
	}

	if err := h.verificationUsecase.RequestEmailVerification(r.Context(), req.Email); err != nil {
		respondUsecaseError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/siriwatk/noteflow-api/internal/config"
	"github.com/siriwatk/noteflow-api/internal/model"
	"github.com/siriwatk/noteflow-api/internal/repository"
	"github.com/siriwatk/noteflow-api/internal/security"
)

// PasswordResetUsecase defines the business logic for the OTP-based password
// reset flow.
type PasswordResetUsecase interface {
	// RequestPasswordReset creates a single-use 6-digit code for the account
	// and emails it. An unknown email yields a generic success so the
	// endpoint cannot be used to enumerate accounts.
	RequestPasswordReset(ctx context.Context, email string) error

	// CompletePasswordReset consumes a valid code and replaces the account's
	// password. A wrong code and an expired code are indistinguishable to
	// the caller.
	CompletePasswordReset(ctx context.Context, email, otp, newPassword string) error
}

type passwordResetUsecase struct {
	userRepo  repository.UserRepository
	tokenRepo repository.EphemeralTokenRepository
	mailer    Mailer
	cfg       *config.Config

	now func() time.Time
}

// NewPasswordResetUsecase creates a new instance of PasswordResetUsecase.
func NewPasswordResetUsecase(
	userRepo repository.UserRepository,
	tokenRepo repository.EphemeralTokenRepository,
	mailer Mailer,
	cfg *config.Config,
) PasswordResetUsecase {
	return &passwordResetUsecase{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		mailer:    mailer,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (u *passwordResetUsecase) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := u.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// To prevent email enumeration, do not reveal that the email
			// does not exist.
			return nil
		}
		return err
	}

	existing, err := u.tokenRepo.FindByUserAndKind(ctx, user.ID, model.TokenKindReset)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}
	if err == nil {
		if existing.ExpiresAt.After(u.now()) {
			return newResetPendingError(existing.ExpiresAt.Sub(u.now()))
		}

		// Expired leftover the reaper has not collected yet; remove it so
		// the unique (user_id, kind) index accepts the new code.
		if err := u.tokenRepo.DeleteByID(ctx, existing.ID); err != nil {
			return err
		}
	}

	code, err := generateOTP()
	if err != nil {
		return err
	}

	token, err := u.tokenRepo.CreateToken(ctx, &model.EphemeralToken{
		UserID:    user.ID,
		Token:     code,
		Kind:      model.TokenKindReset,
		ExpiresAt: u.now().Add(u.cfg.Token.ResetOTPExpiresIn),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// A concurrent request won the race; its code is the pending one.
			// Report that code's actual remaining validity where possible.
			if winner, findErr := u.tokenRepo.FindByUserAndKind(ctx, user.ID, model.TokenKindReset); findErr == nil {
				return newResetPendingError(winner.ExpiresAt.Sub(u.now()))
			}
			return newResetPendingError(u.cfg.Token.ResetOTPExpiresIn)
		}
		return err
	}

	textBody := fmt.Sprintf(
		"Your password reset code is %s. It expires in %s. If you did not request a reset, ignore this email.",
		code, u.cfg.Token.ResetOTPExpiresIn,
	)
	htmlBody := fmt.Sprintf(`
		<p>Hi,</p>
		<p>We received a request to reset the password for your account.</p>
		<p>Your one-time code is:</p>

		<p><strong>%s</strong></p>

		<p>This code will expire in %s for your security.</p>
		<p>If you did not request a password reset, you can safely ignore this email.</p>

		<p>Thank you,</p>
		<p>The Noteflow Team</p>
	`, code, u.cfg.Token.ResetOTPExpiresIn)

	if err := u.mailer.Send(ctx, user.Email, "Password Reset Code", textBody, htmlBody); err != nil {
		// A code nobody received must not stay pending and block retries.
		if delErr := u.tokenRepo.DeleteByID(ctx, token.ID); delErr != nil {
			return errors.Join(fmt.Errorf("%w: %v", ErrEmailDeliveryFailed, err), delErr)
		}

		return fmt.Errorf("%w: %v", ErrEmailDeliveryFailed, err)
	}

	return nil
}

func (u *passwordResetUsecase) CompletePasswordReset(ctx context.Context, email, otp, newPassword string) error {
	if !otpPattern.MatchString(otp) {
		return ErrInvalidOrExpiredOTP
	}

	user, err := u.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrUserNotFound
		}
		return err
	}

	token, err := u.tokenRepo.FindByUserTokenKind(ctx, user.ID, otp, model.TokenKindReset)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrInvalidOrExpiredOTP
		}
		return err
	}

	if !token.ExpiresAt.After(u.now()) {
		return ErrInvalidOrExpiredOTP
	}

	if same, err := security.VerifyPassword(newPassword, user.PasswordHash); err != nil {
		return err
	} else if same {
		return ErrPasswordUnchanged
	}

	passwordHash, err := security.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if _, err := u.userRepo.UpdateUser(ctx, user.ID.Hex(), repository.UpdateUserParams{
		PasswordHash: &passwordHash,
	}); err != nil {
		return err
	}

	// Single use is enforced by deletion: a consumed code is never
	// re-readable, flagged or otherwise.
	return u.tokenRepo.DeleteByID(ctx, token.ID)
}

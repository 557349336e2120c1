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
)

// VerificationUsecase defines the business logic for email verification.
type VerificationUsecase interface {
	// RequestEmailVerification creates a 6-digit verification code for the
	// account and emails it, replacing any previously issued code.
	RequestEmailVerification(ctx context.Context, email string) error

	// ConfirmEmail consumes a valid code and marks the account verified.
	ConfirmEmail(ctx context.Context, email, code string) error
}

type verificationUsecase struct {
	userRepo  repository.UserRepository
	tokenRepo repository.EphemeralTokenRepository
	mailer    Mailer
	cfg       *config.Config

	now func() time.Time
}

// NewVerificationUsecase creates a new instance of VerificationUsecase.
func NewVerificationUsecase(
	userRepo repository.UserRepository,
	tokenRepo repository.EphemeralTokenRepository,
	mailer Mailer,
	cfg *config.Config,
) VerificationUsecase {
	return &verificationUsecase{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		mailer:    mailer,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (u *verificationUsecase) RequestEmailVerification(ctx context.Context, email string) error {
	user, err := u.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrUserNotFound
		}
		return err
	}

	if user.Verified {
		return ErrAlreadyVerified
	}

	// Only the most recently issued code is honored.
	existing, err := u.tokenRepo.FindByUserAndKind(ctx, user.ID, model.TokenKindVerification)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}
	if err == nil {
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
		Kind:      model.TokenKindVerification,
		ExpiresAt: u.now().Add(u.cfg.Token.VerificationExpiresIn),
	})
	if err != nil {
		return err
	}

	textBody := fmt.Sprintf(
		"Your email verification code is %s. It expires in %s.",
		code, u.cfg.Token.VerificationExpiresIn,
	)
	htmlBody := fmt.Sprintf(`
		<p>Hi,</p>
		<p>Welcome to Noteflow! Confirm your email address with this code:</p>

		<p><strong>%s</strong></p>

		<p>This code will expire in %s.</p>

		<p>Thank you,</p>
		<p>The Noteflow Team</p>
	`, code, u.cfg.Token.VerificationExpiresIn)

	if err := u.mailer.Send(ctx, user.Email, "Verify Your Email", textBody, htmlBody); err != nil {
		if delErr := u.tokenRepo.DeleteByID(ctx, token.ID); delErr != nil {
			return errors.Join(fmt.Errorf("%w: %v", ErrEmailDeliveryFailed, err), delErr)
		}

		return fmt.Errorf("%w: %v", ErrEmailDeliveryFailed, err)
	}

	return nil
}

func (u *verificationUsecase) ConfirmEmail(ctx context.Context, email, code string) error {
	if !otpPattern.MatchString(code) {
		return ErrInvalidOrExpiredOTP
	}

	user, err := u.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrUserNotFound
		}
		return err
	}

	if user.Verified {
		return ErrAlreadyVerified
	}

	token, err := u.tokenRepo.FindByUserTokenKind(ctx, user.ID, code, model.TokenKindVerification)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrInvalidOrExpiredOTP
		}
		return err
	}

	if !token.ExpiresAt.After(u.now()) {
		return ErrInvalidOrExpiredOTP
	}

	verified := true
	if _, err := u.userRepo.UpdateUser(ctx, user.ID.Hex(), repository.UpdateUserParams{
		Verified: &verified,
	}); err != nil {
		return err
	}

	return u.tokenRepo.DeleteByID(ctx, token.ID)
}

package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/siriwatk/noteflow-api/internal/model"
	"github.com/siriwatk/noteflow-api/internal/security"
)

func newResetFixture(t *testing.T) (*fakeUserRepo, *fakeTokenRepo, *fakeMailer, *passwordResetUsecase) {
	t.Helper()

	users := newFakeUserRepo()
	tokens := newFakeTokenRepo()
	mail := &fakeMailer{}
	uc := NewPasswordResetUsecase(users, tokens, mail, testConfig()).(*passwordResetUsecase)
	return users, tokens, mail, uc
}

func registerTestUser(t *testing.T, users *fakeUserRepo, email, password string) *model.User {
	t.Helper()

	hash, err := security.HashPassword(password)
	require.NoError(t, err)
	user, err := users.CreateUser(context.Background(), &model.User{Email: email, PasswordHash: hash})
	require.NoError(t, err)
	return user
}

func TestRequestPasswordReset_CreatesTokenAndSendsEmail(t *testing.T) {
	t.Parallel()

	users, tokens, mail, uc := newResetFixture(t)
	registerTestUser(t, users, "a@x.com", "Secret1!pass")

	require.NoError(t, uc.RequestPasswordReset(context.Background(), "a@x.com"))

	require.Equal(t, 1, tokens.countByKind(model.TokenKindReset))
	require.Equal(t, 1, mail.sentCount())

	token := tokens.firstByKind(model.TokenKindReset)
	require.Regexp(t, `^\d{6}$`, token.Token)
	require.Contains(t, mail.sent[0].TextBody, token.Token)
}

func TestRequestPasswordReset_UnknownEmailIsGenericSuccess(t *testing.T) {
	t.Parallel()

	_, tokens, mail, uc := newResetFixture(t)

	require.NoError(t, uc.RequestPasswordReset(context.Background(), "nobody@x.com"))
	require.Equal(t, 0, tokens.countByKind(model.TokenKindReset))
	require.Equal(t, 0, mail.sentCount())
}

func TestRequestPasswordReset_PendingTokenBlocksSecondRequest(t *testing.T) {
	t.Parallel()

	users, tokens, mail, uc := newResetFixture(t)
	registerTestUser(t, users, "a@x.com", "Secret1!pass")
	ctx := context.Background()

	require.NoError(t, uc.RequestPasswordReset(ctx, "a@x.com"))

	err := uc.RequestPasswordReset(ctx, "a@x.com")
	require.ErrorIs(t, err, ErrResetAlreadyPending)

	var pending *ResetPendingError
	require.ErrorAs(t, err, &pending)
	require.GreaterOrEqual(t, pending.RemainingMinutes, 1)
	require.LessOrEqual(t, pending.RemainingMinutes, 10)

	// The rejected request never created a second token or sent more mail.
	require.Equal(t, 1, tokens.countByKind(model.TokenKindReset))
	require.Equal(t, 1, mail.sentCount())
}

func TestRequestPasswordReset_ExpiredLeftoverIsReplaced(t *testing.T) {
	t.Parallel()

	users, tokens, _, uc := newResetFixture(t)
	registerTestUser(t, users, "a@x.com", "Secret1!pass")
	ctx := context.Background()

	require.NoError(t, uc.RequestPasswordReset(ctx, "a@x.com"))
	first := tokens.firstByKind(model.TokenKindReset)

	// Jump past the OTP's validity; the stale record has not been reaped.
	uc.now = func() time.Time { return time.Now().Add(11 * time.Minute) }

	require.NoError(t, uc.RequestPasswordReset(ctx, "a@x.com"))
	require.Equal(t, 1, tokens.countByKind(model.TokenKindReset))
	require.NotEqual(t, first.ID, tokens.firstByKind(model.TokenKindReset).ID)
}

func TestRequestPasswordReset_MailFailureRollsBackToken(t *testing.T) {
	t.Parallel()

	users, tokens, mail, uc := newResetFixture(t)
	registerTestUser(t, users, "a@x.com", "Secret1!pass")
	mail.sendErr = errSMTPDown

	err := uc.RequestPasswordReset(context.Background(), "a@x.com")
	require.ErrorIs(t, err, ErrEmailDeliveryFailed)

	// No orphaned unusable token may survive the failed dispatch.
	require.Equal(t, 0, tokens.countByKind(model.TokenKindReset))

	// And the cleanup means the caller can immediately retry.
	mail.sendErr = nil
	require.NoError(t, uc.RequestPasswordReset(context.Background(), "a@x.com"))
	require.Equal(t, 1, tokens.countByKind(model.TokenKindReset))
}

func TestResetCodes_SameCodeAcrossUsersIsAllowed(t *testing.T) {
	t.Parallel()

	users, tokens, _, uc := newResetFixture(t)
	alice := registerTestUser(t, users, "a@x.com", "Secret1!pass")
	bob := registerTestUser(t, users, "b@x.com", "Secret1!pass")
	ctx := context.Background()

	// Six-digit codes collide across accounts in normal operation; the store
	// only rejects a second pending code for the same user.
	_, err := tokens.CreateToken(ctx, &model.EphemeralToken{
		UserID:    alice.ID,
		Token:     "123456",
		Kind:      model.TokenKindReset,
		ExpiresAt: time.Now().Add(10 * time.Minute),
	})
	require.NoError(t, err)

	_, err = tokens.CreateToken(ctx, &model.EphemeralToken{
		UserID:    bob.ID,
		Token:     "123456",
		Kind:      model.TokenKindReset,
		ExpiresAt: time.Now().Add(10 * time.Minute),
	})
	require.NoError(t, err)

	for _, u := range []*model.User{alice, bob} {
		_, err = tokens.CreateToken(ctx, &model.EphemeralToken{
			UserID:    u.ID,
			Token:     "654321",
			Kind:      model.TokenKindVerification,
			ExpiresAt: time.Now().Add(24 * time.Hour),
		})
		require.NoError(t, err)
	}

	// Consuming the shared code resolves per user: bob's reset leaves alice's
	// pending code intact.
	require.NoError(t, uc.CompletePasswordReset(ctx, "b@x.com", "123456", "Secret2!pass"))
	require.Equal(t, 1, tokens.countByKind(model.TokenKindReset))
	require.Equal(t, alice.ID, tokens.firstByKind(model.TokenKindReset).UserID)
}

func TestRequestPasswordReset_DuplicateInsertMapsToPending(t *testing.T) {
	t.Parallel()

	users, tokens, mail, uc := newResetFixture(t)
	registerTestUser(t, users, "a@x.com", "Secret1!pass")

	// A concurrent request slipped between our pending check and our insert;
	// the unique (user_id, kind) index turns that into a duplicate-key error.
	tokens.createErr = duplicateKeyErr()

	err := uc.RequestPasswordReset(context.Background(), "a@x.com")
	require.ErrorIs(t, err, ErrResetAlreadyPending)
	require.Equal(t, 0, mail.sentCount())
}

func TestRequestPasswordReset_DuplicateInsertReportsWinnersRemainingTime(t *testing.T) {
	t.Parallel()

	users, tokens, _, uc := newResetFixture(t)
	user := registerTestUser(t, users, "a@x.com", "Secret1!pass")
	ctx := context.Background()

	issuedAt := time.Now()
	uc.now = func() time.Time { return issuedAt }

	// The concurrent winner's code has 3m30s of validity left, not the full
	// configured lifetime.
	_, err := tokens.CreateToken(ctx, &model.EphemeralToken{
		UserID:    user.ID,
		Token:     "123456",
		Kind:      model.TokenKindReset,
		ExpiresAt: issuedAt.Add(3*time.Minute + 30*time.Second),
	})
	require.NoError(t, err)

	// The pending check misses once, as it does for a writer that lands
	// between check and insert; the insert then hits the unique index.
	tokens.findByUserAndKindMisses = 1
	tokens.createErr = duplicateKeyErr()

	err = uc.RequestPasswordReset(ctx, "a@x.com")
	require.ErrorIs(t, err, ErrResetAlreadyPending)

	var pending *ResetPendingError
	require.ErrorAs(t, err, &pending)
	require.Equal(t, 4, pending.RemainingMinutes)
}

func TestCompletePasswordReset_Success(t *testing.T) {
	t.Parallel()

	users, tokens, _, uc := newResetFixture(t)
	user := registerTestUser(t, users, "a@x.com", "Secret1!pass")
	ctx := context.Background()

	require.NoError(t, uc.RequestPasswordReset(ctx, "a@x.com"))
	code := tokens.firstByKind(model.TokenKindReset).Token

	require.NoError(t, uc.CompletePasswordReset(ctx, "a@x.com", code, "Secret2!pass"))

	stored, err := users.GetUser(ctx, user.ID.Hex())
	require.NoError(t, err)

	ok, err := security.VerifyPassword("Secret2!pass", stored.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = security.VerifyPassword("Secret1!pass", stored.PasswordHash)
	require.NoError(t, err)
	require.False(t, ok)

	// Single use: the consumed code is deleted, so replaying it fails.
	require.Equal(t, 0, tokens.countByKind(model.TokenKindReset))
	err = uc.CompletePasswordReset(ctx, "a@x.com", code, "Secret3!pass")
	require.ErrorIs(t, err, ErrInvalidOrExpiredOTP)
}

func TestCompletePasswordReset_TimeBoundary(t *testing.T) {
	t.Parallel()

	users, tokens, _, uc := newResetFixture(t)
	registerTestUser(t, users, "a@x.com", "Secret1!pass")
	ctx := context.Background()

	issuedAt := time.Now()
	uc.now = func() time.Time { return issuedAt }
	require.NoError(t, uc.RequestPasswordReset(ctx, "a@x.com"))
	code := tokens.firstByKind(model.TokenKindReset).Token

	// Still valid one second before the 10-minute mark.
	uc.now = func() time.Time { return issuedAt.Add(10*time.Minute - time.Second) }
	require.NoError(t, uc.CompletePasswordReset(ctx, "a@x.com", code, "Secret2!pass"))

	// A fresh code checked just past its expiry is rejected.
	uc.now = func() time.Time { return issuedAt }
	require.NoError(t, uc.RequestPasswordReset(ctx, "a@x.com"))
	code = tokens.firstByKind(model.TokenKindReset).Token

	uc.now = func() time.Time { return issuedAt.Add(10*time.Minute + time.Second) }
	err := uc.CompletePasswordReset(ctx, "a@x.com", code, "Secret3!pass")
	require.ErrorIs(t, err, ErrInvalidOrExpiredOTP)
}

func TestCompletePasswordReset_RejectsMalformedOTPBeforeLookup(t *testing.T) {
	t.Parallel()

	users, tokens, _, uc := newResetFixture(t)
	registerTestUser(t, users, "a@x.com", "Secret1!pass")
	ctx := context.Background()

	for _, otp := range []string{"12a456", "123", "", "1234567"} {
		err := uc.CompletePasswordReset(ctx, "a@x.com", otp, "Secret2!pass")
		require.ErrorIs(t, err, ErrInvalidOrExpiredOTP, "otp %q", otp)
	}

	require.Equal(t, 0, tokens.findByUserTokenKindCalls)
}

func TestCompletePasswordReset_Failures(t *testing.T) {
	t.Parallel()

	users, tokens, _, uc := newResetFixture(t)
	registerTestUser(t, users, "a@x.com", "Secret1!pass")
	ctx := context.Background()

	err := uc.CompletePasswordReset(ctx, "nobody@x.com", "123456", "Secret2!pass")
	require.ErrorIs(t, err, ErrUserNotFound)

	// Wrong code for a known user: same failure as an expired one.
	err = uc.CompletePasswordReset(ctx, "a@x.com", "123456", "Secret2!pass")
	require.ErrorIs(t, err, ErrInvalidOrExpiredOTP)

	// Reusing the current password is rejected and the code survives.
	require.NoError(t, uc.RequestPasswordReset(ctx, "a@x.com"))
	code := tokens.firstByKind(model.TokenKindReset).Token

	err = uc.CompletePasswordReset(ctx, "a@x.com", code, "Secret1!pass")
	require.ErrorIs(t, err, ErrPasswordUnchanged)
	require.Equal(t, 1, tokens.countByKind(model.TokenKindReset))
}

// TestCredentialLifecycle_EndToEnd walks the full register, login, reset,
// re-login sequence.
func TestCredentialLifecycle_EndToEnd(t *testing.T) {
	t.Parallel()

	users := newFakeUserRepo()
	tokens := newFakeTokenRepo()
	mail := &fakeMailer{}
	cfg := testConfig()

	authUC := NewAuthUsecase(users, tokens, testAuthenticator(t), cfg)
	resetUC := NewPasswordResetUsecase(users, tokens, mail, cfg)
	ctx := context.Background()

	registered, err := authUC.Register(ctx, RegisterParams{Email: "a@x.com", Password: "Secret1!pass"})
	require.NoError(t, err)

	user, token, err := authUC.Login(ctx, LoginParams{Email: "a@x.com", Password: "Secret1!pass"})
	require.NoError(t, err)
	require.Equal(t, registered.ID, user.ID)
	require.NotEmpty(t, token)

	require.NoError(t, resetUC.RequestPasswordReset(ctx, "a@x.com"))
	require.Equal(t, 1, tokens.countByKind(model.TokenKindReset))
	require.Equal(t, 1, mail.sentCount())

	code := tokens.firstByKind(model.TokenKindReset).Token
	require.NoError(t, resetUC.CompletePasswordReset(ctx, "a@x.com", code, "Secret2!pass"))

	_, _, err = authUC.Login(ctx, LoginParams{Email: "a@x.com", Password: "Secret1!pass"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = authUC.Login(ctx, LoginParams{Email: "a@x.com", Password: "Secret2!pass"})
	require.NoError(t, err)
}

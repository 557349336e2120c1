package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/siriwatk/noteflow-api/internal/auth"
	"github.com/siriwatk/noteflow-api/internal/config"
	"github.com/siriwatk/noteflow-api/internal/model"
	"github.com/siriwatk/noteflow-api/internal/repository"
	"github.com/siriwatk/noteflow-api/internal/security"
)

// AuthUsecase defines the interface for authentication-related use cases.
type AuthUsecase interface {
	// Register creates a new account with a hashed password. The returned
	// user still carries the hash; handlers must project it away.
	Register(ctx context.Context, params RegisterParams) (*model.User, error)

	// Login authenticates by email and password and issues a signed bearer
	// credential. Unknown email and wrong password are indistinguishable.
	Login(ctx context.Context, params LoginParams) (*model.User, string, error)

	// VerifyBearer authenticates a raw Authorization header value and
	// returns the user it belongs to.
	VerifyBearer(ctx context.Context, authorization string) (*model.User, error)

	// RevokeBearer records the credential's jti as revoked, ending the
	// session server-side. Revoking the same credential twice is a no-op.
	RevokeBearer(ctx context.Context, authorization string) error
}

// RegisterParams defines the parameters for user registration.
type RegisterParams struct {
	Email    string
	Password string
}

// LoginParams defines the parameters for user login.
type LoginParams struct {
	Email    string
	Password string
}

const bearerPrefix = "Bearer "

type authUsecase struct {
	userRepo  repository.UserRepository
	tokenRepo repository.EphemeralTokenRepository
	jwtAuth   auth.JWTAuthenticator
	cfg       *config.Config
}

// NewAuthUsecase creates a new instance of AuthUsecase.
func NewAuthUsecase(
	userRepo repository.UserRepository,
	tokenRepo repository.EphemeralTokenRepository,
	jwtAuth auth.JWTAuthenticator,
	cfg *config.Config,
) AuthUsecase {
	return &authUsecase{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		jwtAuth:   jwtAuth,
		cfg:       cfg,
	}
}

func (u *authUsecase) Register(ctx context.Context, params RegisterParams) (*model.User, error) {
	passwordHash, err := security.HashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	user, err := u.userRepo.CreateUser(ctx, &model.User{
		Email:        params.Email,
		PasswordHash: passwordHash,
		Role:         model.RoleUser,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrUserAlreadyExists
		}

		return nil, err
	}

	return user, nil
}

func (u *authUsecase) Login(ctx context.Context, params LoginParams) (*model.User, string, error) {
	user, err := u.userRepo.GetUserByEmail(ctx, params.Email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, "", ErrInvalidCredentials
		}

		return nil, "", err
	}

	if ok, err := security.VerifyPassword(params.Password, user.PasswordHash); err != nil {
		return nil, "", err
	} else if !ok {
		return nil, "", ErrInvalidCredentials
	}

	tokenStr, _, err := u.jwtAuth.GenerateToken(user.ID.Hex(), u.cfg.Token.AccessTokenExpiresIn)
	if err != nil {
		return nil, "", err
	}

	return user, tokenStr, nil
}

func (u *authUsecase) VerifyBearer(ctx context.Context, authorization string) (*model.User, error) {
	claims, err := u.validBearerClaims(authorization)
	if err != nil {
		return nil, err
	}

	revoked, err := u.tokenRepo.ExistsRevocation(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	// The subject may belong to a deleted account holding a stale token.
	user, err := u.userRepo.GetUser(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}

		return nil, err
	}

	return user, nil
}

func (u *authUsecase) RevokeBearer(ctx context.Context, authorization string) error {
	claims, err := u.validBearerClaims(authorization)
	if err != nil {
		return err
	}

	userID, err := bson.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return ErrTokenInvalid
	}

	// The revocation record inherits the credential's own expiry, so it can
	// be reaped once the credential would have expired anyway.
	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	return u.tokenRepo.UpsertRevocation(ctx, userID, claims.ID, expiresAt)
}

// validBearerClaims extracts the raw token from an Authorization header
// value and verifies its signature, issuer, audience and expiry.
func (u *authUsecase) validBearerClaims(authorization string) (*jwt.RegisteredClaims, error) {
	if !strings.HasPrefix(authorization, bearerPrefix) {
		return nil, ErrMissingToken
	}

	tokenStr := strings.TrimSpace(strings.TrimPrefix(authorization, bearerPrefix))
	if tokenStr == "" {
		return nil, ErrMissingToken
	}

	claims, err := u.jwtAuth.ValidateToken(tokenStr)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}

		return nil, ErrTokenInvalid
	}

	return claims, nil
}

package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// TokenKind distinguishes the short-lived records sharing the ephemeral
// token collection.
type TokenKind string

const (
	// TokenKindReset is a 6-digit password-reset OTP.
	TokenKindReset TokenKind = "reset"

	// TokenKindRevoked marks a bearer credential's jti as revoked.
	TokenKindRevoked TokenKind = "revoked"

	// TokenKindVerification is a 6-digit email verification code.
	TokenKindVerification TokenKind = "verification"
)

// EphemeralToken is a short-lived, single-use record: a password-reset OTP,
// an email verification code, or a revoked-session marker. Expired tokens
// are never actionable; reads filter on ExpiresAt and a TTL index reaps the
// leftovers.
type EphemeralToken struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	UserID    bson.ObjectID `bson:"user_id"`
	Token     string        `bson:"token"`
	Kind      TokenKind     `bson:"kind"`
	ExpiresAt time.Time     `bson:"expires_at"`
	CreatedAt time.Time     `bson:"created_at"`
}

// Package auth implements issuing and verification of signed bearer
// credentials.
package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTAuthenticator signs and verifies bearer credentials with an RSA key
// pair. Claims are signed with the private key; verification needs only the
// public key.
type JWTAuthenticator struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	audience   string
	issuer     string
}

// NewJWTAuthenticator creates a new JWTAuthenticator from a PEM-encoded RSA
// private key.
func NewJWTAuthenticator(privateKeyPEM []byte, audience, issuer string) (JWTAuthenticator, error) {
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return JWTAuthenticator{}, fmt.Errorf("parse RSA private key: %w", err)
	}

	return JWTAuthenticator{
		privateKey: privateKey,
		publicKey:  &privateKey.PublicKey,
		audience:   audience,
		issuer:     issuer,
	}, nil
}

// GenerateToken signs a credential for the given subject, valid for
// expiresIn from now. The returned jti is the credential's revocation key.
func (a *JWTAuthenticator) GenerateToken(subject string, expiresIn time.Duration) (tokenStr, jti string, err error) {
	jti = uuid.NewString()

	now := time.Now()
	claims := jwt.RegisteredClaims{
		ID:        jti,
		Subject:   subject,
		Issuer:    a.issuer,
		Audience:  jwt.ClaimStrings{a.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		NotBefore: jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tokenStr, err = token.SignedString(a.privateKey)
	if err != nil {
		return "", "", err
	}

	return tokenStr, jti, nil
}

// ValidateToken verifies the signature, issuer, audience and expiry of a
// bearer credential and returns its registered claims.
func (a *JWTAuthenticator) ValidateToken(tokenStr string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}

		return a.publicKey, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithAudience(a.audience),
		jwt.WithIssuer(a.issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Name}),
	)
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

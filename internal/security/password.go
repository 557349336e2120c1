// Package security implements one-way password hashing and verification.
package security

import "github.com/matthewhartstonge/argon2"

// HashPassword hashes a plaintext password with argon2id and a random salt.
// The encoded form embeds the salt and the cost parameters.
func HashPassword(password string) (string, error) {
	argon := argon2.DefaultConfig()

	encoded, err := argon.HashEncoded([]byte(password))
	if err != nil {
		return "", err
	}

	return string(encoded), nil
}

// VerifyPassword reports whether password matches the encoded argon2 hash.
// The comparison is constant-time.
func VerifyPassword(password, encodedHash string) (bool, error) {
	return argon2.VerifyEncoded([]byte(password), []byte(encodedHash))
}

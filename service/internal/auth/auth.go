// Package auth handles passphrase hashing and session JWTs for the
// service layer, matching the teacher's golang-jwt/jwt and
// golang.org/x/crypto/bcrypt stack.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is the login handler's error for a
// username/password mismatch, deliberately not distinguishing "no such
// user" from "wrong password" to avoid leaking account existence.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// TokenTTL is how long an issued session token remains valid.
const TokenTTL = 24 * time.Hour

// HashPassword bcrypt-hashes a plaintext passphrase for storage.
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether plaintext matches the stored bcrypt hash.
func CheckPassword(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// claims is the JWT payload: player identity plus the standard registered
// claims for expiry.
type claims struct {
	PlayerID uuid.UUID `json:"playerId"`
	jwt.RegisteredClaims
}

// IssueToken signs a session token for playerID valid for TokenTTL.
func IssueToken(secret string, playerID uuid.UUID) (string, error) {
	now := time.Now()
	c := claims{
		PlayerID: playerID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString([]byte(secret))
}

// ParseToken validates tokenStr against secret and returns the embedded
// player ID.
func ParseToken(secret, tokenStr string) (uuid.UUID, error) {
	var c claims
	_, err := jwt.ParseWithClaims(tokenStr, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return c.PlayerID, nil
}

// Package testkit holds helpers shared by tests across packages.
package testkit

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// TestSecret is an HS256 secret long enough for production validation
const TestSecret = "test-secret-key-that-is-at-least-32-bytes-long"

// AccessClaims returns claims for an access token issued a minute before now
func AccessClaims(subject string, now time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":  subject,
		"type": "access",
		"iat":  now.Add(-time.Minute).Unix(),
		"exp":  now.Add(time.Hour).Unix(),
	}
}

// MintToken signs claims with HS256 and secret
func MintToken(t testing.TB, secret string, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

// MintAccessToken signs an access token for subject carrying roles
func MintAccessToken(t testing.TB, secret, subject string, roles ...string) string {
	t.Helper()

	claims := AccessClaims(subject, time.Now())
	if len(roles) > 0 {
		claims["roles"] = roles
	}
	return MintToken(t, secret, claims)
}

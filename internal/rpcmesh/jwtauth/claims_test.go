package jwtauth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testKeyPair struct {
	private   *rsa.PrivateKey
	publicPEM []byte
}

func newTestKeyPair(t *testing.T) testKeyPair {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pubBytes, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})

	return testKeyPair{private: key, publicPEM: pubPEM}
}

func signToken(t *testing.T, key *rsa.PrivateKey, claims rawClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestValidator_AcceptsValidRS256Token(t *testing.T) {
	pair := newTestKeyPair(t)
	validator, err := NewValidator(pair.publicPEM)
	require.NoError(t, err)

	userID := uuid.New()
	raw := rawClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		UserID:    userID.String(),
		Email:     "user@example.com",
		TokenType: "access",
	}

	claims, err := validator.Validate(signToken(t, pair.private, raw))
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, TokenAccess, claims.TokenType)
}

func TestValidator_RejectsExpiredToken(t *testing.T) {
	pair := newTestKeyPair(t)
	validator, err := NewValidator(pair.publicPEM)
	require.NoError(t, err)

	raw := rawClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
		UserID: uuid.New().String(),
	}

	_, err = validator.Validate(signToken(t, pair.private, raw))
	require.Error(t, err)
}

func TestValidator_RejectsTokenSignedByAnotherKey(t *testing.T) {
	trusted := newTestKeyPair(t)
	attacker := newTestKeyPair(t)
	validator, err := NewValidator(trusted.publicPEM)
	require.NoError(t, err)

	raw := rawClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		UserID:           uuid.New().String(),
	}

	_, err = validator.Validate(signToken(t, attacker.private, raw))
	require.Error(t, err)
}

func TestValidator_RejectsNonRS256Algorithm(t *testing.T) {
	pair := newTestKeyPair(t)
	validator, err := NewValidator(pair.publicPEM)
	require.NoError(t, err)

	// HS256 signed with an arbitrary secret -- algorithm-confusion attempt.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, rawClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		UserID:           uuid.New().String(),
	})
	signed, err := token.SignedString([]byte("attacker-controlled-secret"))
	require.NoError(t, err)

	_, err = validator.Validate(signed)
	require.Error(t, err)
}

func TestValidator_RejectsMalformedUserID(t *testing.T) {
	pair := newTestKeyPair(t)
	validator, err := NewValidator(pair.publicPEM)
	require.NoError(t, err)

	raw := rawClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		UserID:           "not-a-uuid",
	}

	_, err = validator.Validate(signToken(t, pair.private, raw))
	require.Error(t, err)
}

func TestRequireAccessToken_RejectsRefreshToken(t *testing.T) {
	ctx := withClaims(context.Background(), Claims{TokenType: TokenRefresh})
	assert.Error(t, RequireAccessToken(ctx))

	ctx = withClaims(context.Background(), Claims{TokenType: TokenAccess})
	assert.NoError(t, RequireAccessToken(ctx))
}

func TestRequireOwnership_RejectsMismatchedUser(t *testing.T) {
	owner := uuid.New()
	ctx := withClaims(context.Background(), Claims{UserID: owner})

	assert.NoError(t, RequireOwnership(ctx, owner))
	assert.Error(t, RequireOwnership(ctx, uuid.New()))
}

func TestRequireAccessToken_RejectsMissingClaims(t *testing.T) {
	assert.Error(t, RequireAccessToken(context.Background()))
}

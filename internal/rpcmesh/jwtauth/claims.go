// Package jwtauth implements RS256-only JWT validation and propagation for
// the RPC mesh (§4.7), grounded on
// original_source/backend/libs/grpc-jwt-propagation/src/{server,extensions}.rs:
// a server interceptor extracts and validates the bearer token and attaches
// claims to the request context; a client interceptor propagates the
// caller's token and correlation id unchanged; handlers read claims via a
// typed context helper with one-line ownership/token-type checks.
package jwtauth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/novafabric/backbone/internal/apperr"
)

// TokenType distinguishes access tokens from refresh tokens; refresh tokens
// are only valid on the token-renewal endpoint.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Claims is the validated, typed claim set attached to a request context.
type Claims struct {
	UserID    uuid.UUID
	Email     string
	TokenType TokenType
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type claimsKey struct{}

func withClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// FromContext retrieves the validated claims a server interceptor attached.
// Handlers call this rather than re-parsing tokens.
func FromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(Claims)
	return c, ok
}

// RequireOwnership is the one-line ownership check handlers use, matching
// the original's require_ownership(resource_owner_id) helper.
func RequireOwnership(ctx context.Context, resourceOwnerID uuid.UUID) error {
	c, ok := FromContext(ctx)
	if !ok {
		return apperr.Unauthenticated(nil)
	}
	if c.UserID != resourceOwnerID {
		return apperr.Forbidden("NOT_OWNER")
	}
	return nil
}

// RequireAccessToken rejects refresh tokens on any endpoint other than
// token-renewal, matching the original's require_access_token() helper.
func RequireAccessToken(ctx context.Context) error {
	c, ok := FromContext(ctx)
	if !ok {
		return apperr.Unauthenticated(nil)
	}
	if c.TokenType != TokenAccess {
		return apperr.Unauthenticated(nil)
	}
	return nil
}

// rawClaims is the JWT payload shape validated against the RS256 public key.
type rawClaims struct {
	jwt.RegisteredClaims
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	TokenType string `json:"token_type"`
}

// Validator holds the RS256 public key used to verify incoming tokens.
// Construction happens once at process start; there is no private-key path
// here since verification-only services never issue tokens.
type Validator struct {
	publicKey interface{}
}

func NewValidator(publicKeyPEM []byte) (*Validator, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, err
	}
	return &Validator{publicKey: key}, nil
}

// Validate parses and verifies token, rejecting any non-RS256 algorithm
// (algorithm confusion is the classic JWT vulnerability this guards
// against) and any expired or malformed token, all with the single
// "unauthenticated" error wording §4.7 requires.
func (v *Validator) Validate(tokenString string) (Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &rawClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodRS256.Alg() {
			return nil, apperr.Unauthenticated(nil)
		}
		return v.publicKey, nil
	})
	if err != nil || !token.Valid {
		return Claims{}, apperr.Unauthenticated(err)
	}

	raw, ok := token.Claims.(*rawClaims)
	if !ok {
		return Claims{}, apperr.Unauthenticated(nil)
	}

	userID, err := uuid.Parse(raw.UserID)
	if err != nil {
		return Claims{}, apperr.Unauthenticated(err)
	}

	var issuedAt, expiresAt time.Time
	if raw.IssuedAt != nil {
		issuedAt = raw.IssuedAt.Time
	}
	if raw.ExpiresAt != nil {
		expiresAt = raw.ExpiresAt.Time
	}

	return Claims{
		UserID:    userID,
		Email:     raw.Email,
		TokenType: TokenType(raw.TokenType),
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

package jwtauth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func ctxWithBearer(token string) context.Context {
	md := metadata.New(map[string]string{"authorization": bearerPrefix + token})
	return metadata.NewIncomingContext(context.Background(), md)
}

func TestUnaryServerInterceptor_RejectsMissingHeader(t *testing.T) {
	pair := newTestKeyPair(t)
	validator, err := NewValidator(pair.publicPEM)
	require.NoError(t, err)

	interceptor := UnaryServerInterceptor(validator)
	_, err = interceptor(context.Background(), nil, &grpc.UnaryServerInfo{}, func(ctx context.Context, req interface{}) (interface{}, error) {
		t.Fatal("handler should not be invoked")
		return nil, nil
	})

	require.Error(t, err)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestUnaryServerInterceptor_RejectsMalformedHeader(t *testing.T) {
	pair := newTestKeyPair(t)
	validator, err := NewValidator(pair.publicPEM)
	require.NoError(t, err)

	md := metadata.New(map[string]string{"authorization": "NotBearer abc"})
	ctx := metadata.NewIncomingContext(context.Background(), md)

	interceptor := UnaryServerInterceptor(validator)
	_, err = interceptor(ctx, nil, &grpc.UnaryServerInfo{}, func(ctx context.Context, req interface{}) (interface{}, error) {
		t.Fatal("handler should not be invoked")
		return nil, nil
	})

	require.Error(t, err)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestUnaryServerInterceptor_AttachesClaimsOnSuccess(t *testing.T) {
	pair := newTestKeyPair(t)
	validator, err := NewValidator(pair.publicPEM)
	require.NoError(t, err)

	userID := uuid.New()
	raw := rawClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		UserID:           userID.String(),
		TokenType:        "access",
	}
	token := signToken(t, pair.private, raw)

	interceptor := UnaryServerInterceptor(validator)
	var sawClaims Claims
	_, err = interceptor(ctxWithBearer(token), nil, &grpc.UnaryServerInfo{}, func(ctx context.Context, req interface{}) (interface{}, error) {
		c, ok := FromContext(ctx)
		require.True(t, ok)
		sawClaims = c
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, userID, sawClaims.UserID)
}

func TestUnaryServerInterceptor_RejectsBadSignature(t *testing.T) {
	trusted := newTestKeyPair(t)
	attacker := newTestKeyPair(t)
	validator, err := NewValidator(trusted.publicPEM)
	require.NoError(t, err)

	raw := rawClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		UserID:           uuid.New().String(),
	}
	token := signToken(t, attacker.private, raw)

	interceptor := UnaryServerInterceptor(validator)
	_, err = interceptor(ctxWithBearer(token), nil, &grpc.UnaryServerInfo{}, func(ctx context.Context, req interface{}) (interface{}, error) {
		t.Fatal("handler should not be invoked")
		return nil, nil
	})

	require.Error(t, err)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, "unauthenticated", status.Convert(err).Message(), "every failure mode returns identical wording")
}

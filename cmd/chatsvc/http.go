package main

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/novafabric/backbone/internal/apperr"
	"github.com/novafabric/backbone/internal/chat/authguard"
	"github.com/novafabric/backbone/internal/chat/crypto"
	"github.com/novafabric/backbone/internal/domain"
	"github.com/novafabric/backbone/internal/rpcmesh/jwtauth"
)

// handleGetConversationKey implements GET /v1/conversations/:id/key, the
// authenticated key-retrieval endpoint required by §4.3.4: a client may
// fetch the derived conversation key only if it is a member of the
// conversation AND the conversation is strict_e2e. The key is derived on
// demand from the service's master key; it is never persisted.
func (s *WSServer) handleGetConversationKey(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" || token == authHeader {
		apperr.Abort(c, apperr.Unauthenticated(errors.New("missing bearer token")))
		return
	}

	claims, err := s.jwt.Validate(token)
	if err != nil || claims.TokenType != jwtauth.TokenAccess {
		apperr.Abort(c, apperr.Unauthenticated(err))
		return
	}

	conversationID, err := domain.ParseConversationID(c.Param("id"))
	if err != nil {
		apperr.Abort(c, apperr.Validation("INVALID_CONVERSATION_ID", "invalid conversation id"))
		return
	}

	userID := domain.UserID(claims.UserID)
	member, err := authguard.Verify(c.Request.Context(), s.conversations, userID, conversationID)
	if err != nil {
		apperr.Abort(c, err)
		return
	}

	if member.Conversation.Privacy != domain.PrivacyStrictE2E {
		apperr.Abort(c, apperr.Validation("NOT_STRICT_E2E", "conversation does not use client-side encryption"))
		return
	}

	key, err := crypto.DeriveConversationKey(s.masterKey, conversationID, member.Conversation.KeyVersion)
	if err != nil {
		apperr.Abort(c, apperr.Internal(err))
		return
	}

	c.JSON(200, gin.H{
		"key":         hex.EncodeToString(key[:]),
		"key_version": member.Conversation.KeyVersion,
	})
}

package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/novafabric/backbone/internal/chat"
	"github.com/novafabric/backbone/internal/chat/authguard"
	"github.com/novafabric/backbone/internal/chat/crypto"
	"github.com/novafabric/backbone/internal/domain"
	"github.com/novafabric/backbone/internal/metrics"
	"github.com/novafabric/backbone/internal/repository"
	"github.com/novafabric/backbone/internal/rpcmesh/jwtauth"
)

// perClientRateLimit bounds inbound frames per authenticated connection,
// matching services/chat-service/internal/handlers/chat_handler.go's
// rate limiting of inbound chat frames.
const perClientRateLimit = 10 // messages/sec

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true }, // origin allowlist enforced by the reverse proxy in staging/production
}

// inboundFrame is the client->server WebSocket message shape. MessageID/
// Emoji are additive fields carrying reaction, read-receipt and recall
// payloads without changing the existing message.new/typing.* shapes.
type inboundFrame struct {
	Type      string `json:"type"`
	Body      string `json:"body"`
	MessageID string `json:"message_id,omitempty"`
	Emoji     string `json:"emoji,omitempty"`
}

// WSServer wires the Hub/Client fan-out mechanics to the conversation
// repository, authguard, and per-conversation encryption.
type WSServer struct {
	hub           *chat.Hub
	conversations *repository.ConversationRepo
	messages      *repository.MessageRepo
	masterKey     crypto.MasterKey
	jwt           *jwtauth.Validator
	metrics       *metrics.Chat
	logger        *logrus.Logger
}

func NewWSServer(hub *chat.Hub, conversations *repository.ConversationRepo, messages *repository.MessageRepo, masterKey crypto.MasterKey, jwt *jwtauth.Validator, chatMetrics *metrics.Chat, logger *logrus.Logger) *WSServer {
	return &WSServer{
		hub:           hub,
		conversations: conversations,
		messages:      messages,
		masterKey:     masterKey,
		jwt:           jwt,
		metrics:       chatMetrics,
		logger:        logger,
	}
}

// handleConnect implements GET /ws?token=...&conversation_id=...
func (s *WSServer) handleConnect(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	claims, err := s.jwt.Validate(token)
	if err != nil || claims.TokenType != jwtauth.TokenAccess {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	conversationID, err := domain.ParseConversationID(r.URL.Query().Get("conversation_id"))
	if err != nil {
		http.Error(w, "invalid conversation_id", http.StatusBadRequest)
		return
	}

	userID := domain.UserID(claims.UserID)
	member, err := authguard.Verify(r.Context(), s.conversations, userID, conversationID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID.String()).Warn("websocket connect rejected")
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := &chat.Client{
		UserID:  claims.UserID,
		Conn:    conn,
		Send:    make(chan []byte, 32),
		Limiter: rate.NewLimiter(rate.Limit(perClientRateLimit), perClientRateLimit*2),
	}

	convUUID := uuid.UUID(conversationID)
	s.hub.Register(client, convUUID)
	s.metrics.ActiveConnections.Inc()

	go func() {
		defer func() {
			s.hub.Unregister(client, convUUID)
			s.metrics.ActiveConnections.Dec()
		}()
		client.ReadPump(s.logger, func(raw []byte) {
			s.handleInbound(context.Background(), member, userID, conversationID, raw)
		})
	}()

	go client.WritePump()
}

// handleInbound dispatches a single inbound WebSocket frame: assigns a
// sequence number, encrypts under the conversation's derived key when the
// conversation is strict_e2e, persists, and publishes for local + cross-
// instance delivery, per §4.3.2.
func (s *WSServer) handleInbound(ctx context.Context, member *authguard.VerifiedMember, userID domain.UserID, conversationID domain.ConversationID, raw []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		s.logger.WithError(err).Debug("dropping malformed websocket frame")
		return
	}

	switch frame.Type {
	case "typing.started":
		s.publish(chat.NewEvent(chat.EventTypingStarted, nil), conversationID, userID)
	case "typing.stopped":
		s.publish(chat.NewEvent(chat.EventTypingStopped, nil), conversationID, userID)
	case "message.new":
		s.handleNewMessage(ctx, member, userID, conversationID, frame.Body)
	case "reaction.add":
		s.handleReaction(ctx, userID, conversationID, frame.MessageID, frame.Emoji, true)
	case "reaction.remove":
		s.handleReaction(ctx, userID, conversationID, frame.MessageID, frame.Emoji, false)
	case "read.receipt":
		s.handleReadReceipt(ctx, member, userID, conversationID, frame.MessageID)
	case "message.recall":
		s.handleRecall(ctx, userID, conversationID, frame.MessageID)
	default:
		s.logger.WithField("type", frame.Type).Debug("ignoring unknown frame type")
	}
}

// handleReaction persists a reaction add/remove and fans it out on the same
// path as messages, per §4.3.5 (reactions share the broadcast envelope but
// are persisted separately as (message, emoji, user) triples rather than in
// message history).
func (s *WSServer) handleReaction(ctx context.Context, userID domain.UserID, conversationID domain.ConversationID, rawMessageID, emoji string, add bool) {
	if emoji == "" {
		return
	}
	messageID, err := domain.ParseMessageID(rawMessageID)
	if err != nil {
		s.logger.WithError(err).Debug("dropping reaction with invalid message_id")
		return
	}

	eventType := chat.EventReactionAdded
	if add {
		reaction := domain.NewMessageReaction(messageID, userID, emoji)
		if err := s.messages.AddReaction(ctx, reaction); err != nil {
			s.logger.WithError(err).Error("failed to persist reaction")
			return
		}
	} else {
		eventType = chat.EventReactionRemoved
		if err := s.messages.RemoveReaction(ctx, messageID, userID, emoji); err != nil {
			s.logger.WithError(err).Error("failed to remove reaction")
			return
		}
	}

	s.publish(chat.NewEvent(eventType, map[string]any{
		"message_id": messageID.String(),
		"emoji":      emoji,
	}), conversationID, userID)
}

// handleReadReceipt advances the member's read cursor and broadcasts it so
// other clients can render read-state, per §4.3.5.
func (s *WSServer) handleReadReceipt(ctx context.Context, member *authguard.VerifiedMember, userID domain.UserID, conversationID domain.ConversationID, rawMessageID string) {
	messageID, err := domain.ParseMessageID(rawMessageID)
	if err != nil {
		s.logger.WithError(err).Debug("dropping read receipt with invalid message_id")
		return
	}

	now := time.Now()
	if err := s.conversations.MarkRead(ctx, conversationID, userID, now); err != nil {
		s.logger.WithError(err).Error("failed to mark conversation read")
		return
	}

	s.publish(chat.NewEvent(chat.EventReadReceipt, map[string]any{
		"message_id": messageID.String(),
		"read_at":    now.UTC().Format(time.RFC3339),
	}), conversationID, userID)
}

// handleRecall unsends a message within its recall window (domain.Message.
// CanRecall), clearing any reactions on it since they no longer apply to a
// retracted message, and fans out both the recall and the reaction wipe.
func (s *WSServer) handleRecall(ctx context.Context, userID domain.UserID, conversationID domain.ConversationID, rawMessageID string) {
	messageID, err := domain.ParseMessageID(rawMessageID)
	if err != nil {
		s.logger.WithError(err).Debug("dropping recall with invalid message_id")
		return
	}

	msg, err := s.messages.Get(ctx, messageID)
	if err != nil {
		s.logger.WithError(err).Debug("recall target not found")
		return
	}
	if msg.SenderID != userID {
		s.logger.WithField("user_id", userID.String()).Debug("rejected recall of another sender's message")
		return
	}
	if !msg.CanRecall(time.Now()) {
		s.logger.WithField("message_id", messageID.String()).Debug("recall window elapsed")
		return
	}

	msg.Recall(time.Now())
	if err := s.messages.Update(ctx, msg); err != nil {
		s.logger.WithError(err).Error("failed to persist recall")
		return
	}
	if err := s.messages.RemoveAllReactions(ctx, messageID); err != nil {
		s.logger.WithError(err).Error("failed to clear reactions on recall")
	}

	s.publish(chat.NewEvent(chat.EventMessageRecalled, map[string]any{
		"message_id": messageID.String(),
	}), conversationID, userID)
	s.publish(chat.NewEvent(chat.EventReactionRemovedAll, map[string]any{
		"message_id": messageID.String(),
	}), conversationID, userID)
}

func (s *WSServer) handleNewMessage(ctx context.Context, member *authguard.VerifiedMember, userID domain.UserID, conversationID domain.ConversationID, body string) {
	if err := member.CanSend(); err != nil {
		s.logger.WithError(err).WithField("user_id", userID.String()).Debug("rejected send")
		return
	}
	if body == "" {
		return
	}

	sequence, err := s.conversations.NextSequence(ctx, conversationID)
	if err != nil {
		s.logger.WithError(err).Error("failed to assign message sequence")
		return
	}

	msg := domain.NewMessage(conversationID, userID, sequence)

	if member.Conversation.Privacy == domain.PrivacyStrictE2E {
		key, err := crypto.DeriveConversationKey(s.masterKey, conversationID, member.Conversation.KeyVersion)
		if err != nil {
			s.logger.WithError(err).Error("failed to derive conversation key")
			return
		}
		ciphertext, nonce, err := crypto.Seal(key, []byte(body))
		if err != nil {
			s.logger.WithError(err).Error("failed to seal message")
			return
		}
		msg.Ciphertext = ciphertext
		msg.Nonce = nonce
	} else {
		msg.PlainBody = body
	}

	if err := s.messages.Insert(ctx, msg); err != nil {
		s.logger.WithError(err).Error("failed to persist message")
		return
	}

	s.metrics.MessagesDelivered.Inc()
	data := map[string]any{
		"message_id": msg.ID.String(),
		"sequence":   msg.Sequence,
	}
	if member.Conversation.Privacy == domain.PrivacyStrictE2E {
		// Never fan out plaintext for a strict_e2e conversation: only the
		// sealed ciphertext/nonce cross the Kafka fanout and the hub.
		data["ciphertext"] = base64.StdEncoding.EncodeToString(msg.Ciphertext)
		data["nonce"] = base64.StdEncoding.EncodeToString(msg.Nonce)
	} else {
		data["body"] = body
	}
	s.publish(chat.NewEvent(chat.EventMessageNew, data), conversationID, userID)
}

func (s *WSServer) publish(event chat.Event, conversationID domain.ConversationID, userID domain.UserID) {
	payload, err := event.Marshal(uuid.UUID(conversationID), uuid.UUID(userID))
	if err != nil {
		s.logger.WithError(err).Error("failed to marshal event")
		return
	}
	s.hub.Publish(uuid.UUID(conversationID), payload)
}

package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/novafabric/backbone/internal/domain"
)

// MessageRepo persists Messages, with cursor-based pagination and an
// optional full-text search row for search_enabled conversations, adapted
// from
// services/chat-service/internal/repository/chat_repository.go's
// GetMessages/SearchConversations.
type MessageRepo struct {
	db *gorm.DB
}

func NewMessageRepo(db *gorm.DB) *MessageRepo { return &MessageRepo{db: db} }

func (r *MessageRepo) Insert(ctx context.Context, m *domain.Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// BatchInsert bulk-inserts messages with ON CONFLICT (id) DO NOTHING,
// tolerating redelivery under at-least-once processing.
func (r *MessageRepo) BatchInsert(ctx context.Context, msgs []*domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(msgs).Error
}

func (r *MessageRepo) Get(ctx context.Context, id domain.MessageID) (*domain.Message, error) {
	var m domain.Message
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MessageRepo) Update(ctx context.Context, m *domain.Message) error {
	return r.db.WithContext(ctx).Save(m).Error
}

// ListByConversation returns messages for a conversation in descending
// sequence order starting strictly before the cursor's sequence (keyset
// pagination using sequence as the monotonic key), clamped to [1,100].
func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID domain.ConversationID, beforeSequence int64, limit int) ([]domain.Message, error) {
	limit = ClampLimit(limit)

	q := r.db.WithContext(ctx).
		Where("conversation_id = ? AND status != ?", conversationID, domain.MessageDeleted).
		Order("sequence DESC").
		Limit(limit)

	if beforeSequence > 0 {
		q = q.Where("sequence < ?", beforeSequence)
	}

	var msgs []domain.Message
	if err := q.Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// AddReaction records a (message, user, emoji) reaction with ON CONFLICT DO
// NOTHING, tolerating a duplicate add under at-least-once delivery the same
// way BatchInsert does for messages.
func (r *MessageRepo) AddReaction(ctx context.Context, reaction *domain.MessageReaction) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(reaction).Error
}

// RemoveReaction deletes a single (message, user, emoji) reaction.
func (r *MessageRepo) RemoveReaction(ctx context.Context, messageID domain.MessageID, userID domain.UserID, emoji string) error {
	return r.db.WithContext(ctx).
		Where("message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji).
		Delete(&domain.MessageReaction{}).Error
}

// RemoveAllReactions deletes every reaction on a message, used when a
// message is recalled or deleted so stale reactions don't outlive it.
func (r *MessageRepo) RemoveAllReactions(ctx context.Context, messageID domain.MessageID) error {
	return r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Delete(&domain.MessageReaction{}).Error
}

// SearchByText uses ts_rank over plainto_tsquery against the plaintext body
// column populated only for search_enabled conversations, matching the
// teacher's SearchConversations ranking.
func (r *MessageRepo) SearchByText(ctx context.Context, conversationID domain.ConversationID, query string, limit int) ([]domain.Message, error) {
	limit = ClampLimit(limit)

	var msgs []domain.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND status = ? AND plain_body <> ''", conversationID, domain.MessageActive).
		Where("to_tsvector('english', plain_body) @@ plainto_tsquery('english', ?)", query).
		Order(gorm.Expr("ts_rank(to_tsvector('english', plain_body), plainto_tsquery('english', ?)) DESC", query)).
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

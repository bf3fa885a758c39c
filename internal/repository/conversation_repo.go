package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/novafabric/backbone/internal/domain"
)

// ConversationRepo persists Conversations and ConversationMembers and
// implements authguard.MemberLookup (see LookupMember).
type ConversationRepo struct {
	db *gorm.DB
}

func NewConversationRepo(db *gorm.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

func (r *ConversationRepo) Create(ctx context.Context, conv *domain.Conversation, ownerID domain.UserID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		member := domain.ConversationMember{
			ConversationID: conv.ID,
			UserID:         ownerID,
			Role:           domain.RoleOwner,
			CanSend:        true,
		}
		return tx.Create(&member).Error
	})
}

func (r *ConversationRepo) Get(ctx context.Context, id domain.ConversationID) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.db.WithContext(ctx).First(&conv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// LookupMember implements authguard.MemberLookup with two queries: the
// conversation row first, then the member row. It does not read both in a
// single joined query.
func (r *ConversationRepo) LookupMember(ctx context.Context, userID domain.UserID, conversationID domain.ConversationID) (*domain.ConversationMember, *domain.Conversation, error) {
	var conv domain.Conversation
	err := r.db.WithContext(ctx).First(&conv, "id = ?", conversationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	var member domain.ConversationMember
	err = r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &conv, nil
	}
	if err != nil {
		return nil, nil, err
	}

	return &member, &conv, nil
}

// NextSequence assigns a per-conversation monotonic sequence number via a
// conditional write (compare-and-set against LastSequence), matching
// §4.3.2 step 2 and invariant I2. It returns the newly assigned sequence.
func (r *ConversationRepo) NextSequence(ctx context.Context, conversationID domain.ConversationID) (int64, error) {
	var next int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conv domain.Conversation
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&conv, "id = ?", conversationID).Error; err != nil {
			return err
		}
		next = conv.LastSequence + 1
		res := tx.Model(&domain.Conversation{}).
			Where("id = ? AND last_sequence = ?", conversationID, conv.LastSequence).
			Update("last_sequence", next)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return sql.ErrTxDone // CAS conflict, returned to the caller as an error
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (r *ConversationRepo) AddMember(ctx context.Context, m domain.ConversationMember) error {
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *ConversationRepo) UpdateMemberRole(ctx context.Context, conversationID domain.ConversationID, userID domain.UserID, role domain.MemberRole) error {
	return r.db.WithContext(ctx).Model(&domain.ConversationMember{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Update("role", role).Error
}

func (r *ConversationRepo) RemoveMember(ctx context.Context, conversationID domain.ConversationID, userID domain.UserID) error {
	return r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Delete(&domain.ConversationMember{}).Error
}

// MarkRead advances a member's read cursor, backing §4.3.5's read receipts.
func (r *ConversationRepo) MarkRead(ctx context.Context, conversationID domain.ConversationID, userID domain.UserID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.ConversationMember{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Update("last_read_at", at).Error
}

// MemberUserIDs lists the current member ids of a conversation.
func (r *ConversationRepo) MemberUserIDs(ctx context.Context, conversationID domain.ConversationID) ([]domain.UserID, error) {
	var members []domain.ConversationMember
	if err := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID).Find(&members).Error; err != nil {
		return nil, err
	}
	ids := make([]domain.UserID, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}
	return ids, nil
}

package domain

import (
	"errors"
	"time"
)

// Domain errors. Repository and service layers translate these into
// apperr.Error kinds at the boundary; they are never returned to a client
// directly.
var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrNotAMember           = errors.New("user is not a conversation member")
	ErrEmptyContent         = errors.New("message content is empty")
	ErrConversationGone     = errors.New("conversation has been dissolved")
	ErrInvalidRole          = errors.New("invalid member role")
)

const (
	MaxMessageLength           = 32000
	MaxConversationTitleLength = 100
)

// ConversationKind distinguishes a 1:1 conversation from a group.
type ConversationKind string

const (
	KindDirect ConversationKind = "direct"
	KindGroup  ConversationKind = "group"
)

// PrivacyMode controls whether messages are end-to-end encrypted
// (strict_e2e, ciphertext only at rest) or additionally indexed for
// full-text search (search_enabled).
type PrivacyMode string

const (
	PrivacyStrictE2E      PrivacyMode = "strict_e2e"
	PrivacySearchEnabled  PrivacyMode = "search_enabled"
)

// ConversationStatus is the lifecycle state from spec.md §3.
type ConversationStatus string

const (
	ConversationActive    ConversationStatus = "active"
	ConversationDissolved ConversationStatus = "dissolved"
)

// Conversation owns a symmetric key derived per-conversation (see
// internal/chat/crypto); the key itself is never persisted, only a
// KeyVersion counter that, when bumped, invalidates cached client keys.
type Conversation struct {
	ID             ConversationID     `gorm:"type:uuid;primaryKey"`
	Title          string             `gorm:"size:100"`
	Kind           ConversationKind   `gorm:"size:16;not null"`
	Privacy        PrivacyMode        `gorm:"size:32;not null"`
	Status         ConversationStatus `gorm:"size:16;not null;default:active"`
	LastSequence   int64              `gorm:"default:0"`
	KeyVersion     int32              `gorm:"default:1"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Conversation) TableName() string { return "conversations" }

func NewConversation(kind ConversationKind, privacy PrivacyMode, title string) *Conversation {
	if len(title) > MaxConversationTitleLength {
		title = title[:MaxConversationTitleLength]
	}
	now := time.Now()
	return &Conversation{
		ID:         NewConversationID(),
		Title:      title,
		Kind:       kind,
		Privacy:    privacy,
		Status:     ConversationActive,
		KeyVersion: 1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (c *Conversation) IsActive() bool { return c.Status == ConversationActive }

// RotateKey bumps the key version, invalidating every client's cached
// per-conversation key (§4.3.4).
func (c *Conversation) RotateKey() {
	c.KeyVersion++
	c.UpdatedAt = time.Now()
}

// MemberRole orders strictly: Owner > Admin > Moderator > Member. A role may
// only manage strictly lower roles (CanManage).
type MemberRole string

const (
	RoleOwner     MemberRole = "owner"
	RoleAdmin     MemberRole = "admin"
	RoleModerator MemberRole = "moderator"
	RoleMember    MemberRole = "member"
)

var roleRank = map[MemberRole]int{
	RoleOwner:     4,
	RoleAdmin:     3,
	RoleModerator: 2,
	RoleMember:    1,
}

func (r MemberRole) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// CanManage reports whether r may manage a member holding target's role;
// strictly greater rank is required (self-management and lateral
// management are both disallowed).
func (r MemberRole) CanManage(target MemberRole) bool {
	return roleRank[r] > roleRank[target]
}

func (r MemberRole) IsAdminOrAbove() bool {
	return roleRank[r] >= roleRank[RoleAdmin]
}

// ConversationMember is the (user, conversation) pair. It carries everything
// the authorization guard needs, matching spec.md §4.3.1's "verified member
// record" exactly.
type ConversationMember struct {
	ConversationID ConversationID `gorm:"type:uuid;primaryKey"`
	UserID         UserID         `gorm:"type:uuid;primaryKey"`
	Role           MemberRole     `gorm:"size:16;not null"`
	IsMuted        bool           `gorm:"default:false"`
	CanSend        bool           `gorm:"default:true"`
	CanDeleteOthers bool          `gorm:"default:false"`
	JoinedAt       time.Time
	LastReadAt     time.Time
}

func (ConversationMember) TableName() string { return "conversation_members" }

// MessageStatus tracks edit/recall/delete lifecycle.
type MessageStatus string

const (
	MessageActive   MessageStatus = "active"
	MessageRecalled MessageStatus = "recalled"
	MessageDeleted  MessageStatus = "deleted"
)

// MessageRecallWindow bounds how long after send a message may be unsent.
const MessageRecallWindow = 2 * time.Minute

// Message belongs to exactly one Conversation (I1) and carries ciphertext
// rather than plaintext when the conversation is strict_e2e.
type Message struct {
	ID             MessageID      `gorm:"type:uuid;primaryKey"`
	ConversationID ConversationID `gorm:"type:uuid;index;not null"`
	SenderID       UserID         `gorm:"type:uuid;index;not null"`
	Sequence       int64          `gorm:"not null"`
	Ciphertext     []byte         `gorm:"type:bytea"`
	Nonce          []byte         `gorm:"type:bytea"`
	PlainBody      string         `gorm:"type:text"` // only populated for non-e2e, search_enabled conversations
	Status         MessageStatus  `gorm:"size:16;not null;default:active"`
	Version        int32          `gorm:"default:1"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	RecalledAt     *time.Time
	DeletedAt      *time.Time
}

func (Message) TableName() string { return "messages" }

func NewMessage(conversationID ConversationID, senderID UserID, sequence int64) *Message {
	now := time.Now()
	return &Message{
		ID:             NewMessageID(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Sequence:       sequence,
		Status:         MessageActive,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Edit increments the version; callers are responsible for re-encrypting
// and/or updating the search index row as required by Privacy.
func (m *Message) Edit() {
	m.Version++
	m.UpdatedAt = time.Now()
}

// CanRecall reports whether the message is still within the recall window.
func (m *Message) CanRecall(now time.Time) bool {
	return m.Status == MessageActive && now.Sub(m.CreatedAt) <= MessageRecallWindow
}

func (m *Message) Recall(now time.Time) {
	m.Status = MessageRecalled
	m.RecalledAt = &now
	m.UpdatedAt = now
}

func (m *Message) SoftDelete(now time.Time) {
	m.Status = MessageDeleted
	m.DeletedAt = &now
	m.UpdatedAt = now
}

// MessageReaction is a (message, user, emoji) triple; reactions are
// broadcast on the same fanout path as messages but, per spec.md §4.3.5,
// persisted separately rather than stored in message history.
type MessageReaction struct {
	MessageID MessageID `gorm:"type:uuid;primaryKey"`
	UserID    UserID    `gorm:"type:uuid;primaryKey"`
	Emoji     string    `gorm:"size:32;primaryKey"`
	CreatedAt time.Time
}

func (MessageReaction) TableName() string { return "message_reactions" }

func NewMessageReaction(messageID MessageID, userID UserID, emoji string) *MessageReaction {
	return &MessageReaction{
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
		CreatedAt: time.Now(),
	}
}

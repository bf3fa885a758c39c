package domain

import "github.com/google/uuid"

// UserID, ConversationID, MessageID, ContentID are UUID-backed value types,
// following the teacher's pattern of wrapping uuid.UUID per entity to avoid
// accidentally passing one entity's id where another's is expected.

type UserID uuid.UUID
type ConversationID uuid.UUID
type MessageID uuid.UUID
type ContentID uuid.UUID

func NewUserID() UserID                 { return UserID(uuid.New()) }
func NewConversationID() ConversationID { return ConversationID(uuid.New()) }
func NewMessageID() MessageID           { return MessageID(uuid.New()) }
func NewContentID() ContentID           { return ContentID(uuid.New()) }

func ParseUserID(s string) (UserID, error) {
	id, err := uuid.Parse(s)
	return UserID(id), err
}

func ParseConversationID(s string) (ConversationID, error) {
	id, err := uuid.Parse(s)
	return ConversationID(id), err
}

func ParseMessageID(s string) (MessageID, error) {
	id, err := uuid.Parse(s)
	return MessageID(id), err
}

func ParseContentID(s string) (ContentID, error) {
	id, err := uuid.Parse(s)
	return ContentID(id), err
}

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id ConversationID) String() string { return uuid.UUID(id).String() }
func (id MessageID) String() string      { return uuid.UUID(id).String() }
func (id ContentID) String() string      { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// SystemUserID is the sentinel identity used by AuthContext.System, mirroring
// the original implementation's use of a nil UUID for background-job actors.
var SystemUserID = UserID(uuid.Nil)

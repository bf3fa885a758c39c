package chat

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is the unified WebSocket event type. Every variant's fields live in
// the Data map; Payload is the ONLY place serialization happens, flattening
// Data into the envelope so handlers never hand-build JSON, per §4.3.3 and
// grounded on
// original_source/backend/messaging-service/src/websocket/events.rs
// ("Design Philosophy: Serialization is centralized in one place").
type Event struct {
	Type string
	Data map[string]any
}

// Event type constants, namespaced "<object>.<action>".
const (
	EventMessageNew         = "message.new"
	EventMessageEdited      = "message.edited"
	EventMessageDeleted     = "message.deleted"
	EventMessageRecalled    = "message.recalled"
	EventReactionAdded      = "reaction.added"
	EventReactionRemoved    = "reaction.removed"
	EventReactionRemovedAll = "reaction.removed_all"
	EventTypingStarted      = "typing.started"
	EventTypingStopped      = "typing.stopped"
	EventMemberJoined       = "member.joined"
	EventMemberLeft         = "member.left"
	EventMemberRoleChanged  = "member.role_changed"
	EventConversationUpdated = "conversation.updated"
	EventReadReceipt        = "read.receipt"
)

// NewEvent constructs an Event of the given type with its specific fields.
func NewEvent(eventType string, data map[string]any) Event {
	return Event{Type: eventType, Data: data}
}

// Payload builds the flat broadcast payload:
//
//	{type, timestamp, user_id, conversation_id, <event-specific fields>}
//
// matching the exact shape documented in spec.md §4.3.3.
func (e Event) Payload(conversationID uuid.UUID, userID uuid.UUID) map[string]any {
	payload := map[string]any{
		"type":            e.Type,
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
		"user_id":         userID.String(),
		"conversation_id": conversationID.String(),
	}
	for k, v := range e.Data {
		payload[k] = v
	}
	return payload
}

// Marshal serializes the flat payload to JSON for transmission over the
// WebSocket connection or the cross-instance fanout bus.
func (e Event) Marshal(conversationID, userID uuid.UUID) ([]byte, error) {
	return json.Marshal(e.Payload(conversationID, userID))
}

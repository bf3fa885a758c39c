// Package events implements the Event Propagation Backbone (§4.1, §6.3):
// the bus envelope, a Kafka producer, and consumers that demultiplex by
// event_type with header-first/payload-fallback dispatch, grounded on
// original_source/backend/graph-service/src/consumers/identity_events.rs.
package events

import "time"

// Envelope is the wire shape for every domain event on the bus:
// {event_type, event_id, occurred_at, entity_ids, payload}. Event types are
// namespaced "<domain>.<object>.<action>" (e.g. "identity.user.created").
type Envelope struct {
	EventType string          `json:"event_type"`
	EventID   string          `json:"event_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	EntityIDs []string        `json:"entity_ids"`
	Payload   map[string]any  `json:"payload"`
}

// HeaderEventType is the Kafka message header key carrying an event_type
// hint, preferred over the payload field when present (§6.3).
const HeaderEventType = "event_type"

package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Handler processes one envelope for a given event_type. Returning an error
// triggers the bounded-retry path; handlers must be idempotent since a
// replayed envelope must produce no observable change (I5, P5).
type Handler func(ctx context.Context, env Envelope) error

// DeadLetterSink records envelopes that cannot be parsed, without halting
// the partition (§4.1 failure semantics). Records that exhaust the retry
// budget are not sent here; Run keeps retrying them.
type DeadLetterSink interface {
	Record(ctx context.Context, raw []byte, reason string)
}

// Consumer demultiplexes events by event_type using, in order: the Kafka
// message header, the payload's own event_type field, and finally
// shape-based inference for legacy messages with neither — grounded on
// original_source/backend/graph-service/src/consumers/identity_events.rs.
type Consumer struct {
	reader      *kafka.Reader
	handlers    map[string]Handler
	dlq         DeadLetterSink
	logger      *logrus.Logger
	maxRetries  int
	retryBackoff time.Duration
}

func NewConsumer(brokers []string, topic, groupID string, dlq DeadLetterSink, logger *logrus.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID, // every instance in its own group for broadcast-style fanout topics; shared group for CDC partition competition
		MinBytes: 1,
		MaxBytes: 10e6,
	})

	return &Consumer{
		reader:       reader,
		handlers:     make(map[string]Handler),
		dlq:          dlq,
		logger:       logger,
		maxRetries:   5,
		retryBackoff: 500 * time.Millisecond,
	}
}

// On registers a handler for a given namespaced event_type, plus any legacy
// bare type aliases that should map to it (e.g. "UserCreatedEvent").
func (c *Consumer) On(eventType string, h Handler, legacyAliases ...string) {
	c.handlers[eventType] = h
	for _, alias := range legacyAliases {
		c.handlers[alias] = h
	}
}

// Run consumes messages in order until ctx is cancelled. Offsets commit
// only after a successful apply; a transient error retries with bounded
// exponential backoff without committing (a record still failing after the
// budget is retried again, pausing consumption until it applies or ctx is
// cancelled), and a poison record (one that
// can't even be parsed into an Envelope) is recorded to the dead-letter sink
// and skipped once, never halting the partition.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.WithError(err).Error("kafka fetch error")
			time.Sleep(5 * time.Second)
			continue
		}

		eventType, env, parseErr := c.resolveEventType(msg)
		if parseErr != nil {
			c.dlq.Record(ctx, msg.Value, parseErr.Error())
			c.reader.CommitMessages(ctx, msg) // skip poison record, don't halt partition
			continue
		}

		handler, ok := c.handlers[eventType]
		if !ok {
			c.logger.WithField("event_type", eventType).Debug("unhandled event type, skipping")
			c.reader.CommitMessages(ctx, msg)
			continue
		}

		applied := false
		for !applied {
			if err := c.applyWithRetry(ctx, handler, env); err != nil {
				c.logger.WithError(err).WithField("event_type", eventType).Error("handler failed after retry budget, pausing consumption")
				if ctx.Err() != nil {
					return nil
				}
				continue // retry the same record; do not fetch or commit past it
			}
			applied = true
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.WithError(err).Warn("commit failed")
		}
	}
}

func (c *Consumer) applyWithRetry(ctx context.Context, h Handler, env Envelope) error {
	backoff := c.retryBackoff
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := h(ctx, env); err != nil {
			lastErr = err
			time.Sleep(backoff)
			backoff *= 2
			continue
		}
		return nil
	}
	return lastErr
}

// resolveEventType implements the header-first, payload-field-second,
// shape-inference-third dispatch order.
func (c *Consumer) resolveEventType(msg kafka.Message) (string, Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return "", env, err
	}

	for _, h := range msg.Headers {
		if h.Key == HeaderEventType && len(h.Value) > 0 {
			return string(h.Value), env, nil
		}
	}

	if env.EventType != "" {
		return env.EventType, env, nil
	}

	return inferLegacyEventType(env), env, nil
}

// inferLegacyEventType falls back to payload-shape inference for messages
// with neither a header nor an event_type field, matching the original's
// heuristics: soft-delete markers imply a deletion event; username+email
// without updated_at implies a creation event; display_name implies a
// profile-update event.
func inferLegacyEventType(env Envelope) string {
	if env.Payload == nil {
		return ""
	}
	if _, ok := env.Payload["deleted_at"]; ok {
		if _, ok := env.Payload["soft_delete"]; ok {
			return "identity.user.deleted"
		}
	}
	if _, hasUsername := env.Payload["username"]; hasUsername {
		if _, hasEmail := env.Payload["email"]; hasEmail {
			if _, hasUpdated := env.Payload["updated_at"]; !hasUpdated {
				return "identity.user.created"
			}
		}
	}
	if _, hasDisplayName := env.Payload["display_name"]; hasDisplayName {
		return "identity.user.profile_updated"
	}
	return ""
}

func (c *Consumer) Close() error { return c.reader.Close() }

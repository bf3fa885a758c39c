package cleanup

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ConversationRegistry is the subset of chat.Hub a periodic sweep needs.
// Stale entries from an ungraceful disconnect (process killed before the
// read pump's deadline fires) are rare but possible; the sweep's job is
// observability -- logging registries that have grown unexpectedly large --
// not primary GC, since Hub.Unregister already runs on every pong-deadline
// timeout.
type ConversationRegistry interface {
	ActiveConversationIDs() []uuid.UUID
	ConnectionCount(conversationID uuid.UUID) int
}

// RegistrySweep periodically logs a snapshot of connection counts per
// conversation, surfacing registries that never shrink (a sign of a stuck
// client or a fanout loop) for operators to investigate.
type RegistrySweep struct {
	Registry  ConversationRegistry
	Threshold int
	Logger    *logrus.Logger
}

func NewRegistrySweep(registry ConversationRegistry, logger *logrus.Logger) *RegistrySweep {
	return &RegistrySweep{Registry: registry, Threshold: 1000, Logger: logger}
}

func (s *RegistrySweep) Run(ctx context.Context) error {
	start := time.Now()
	flagged := 0
	for _, id := range s.Registry.ActiveConversationIDs() {
		if n := s.Registry.ConnectionCount(id); n > s.Threshold {
			flagged++
			s.Logger.WithFields(logrus.Fields{
				"conversation_id": id.String(),
				"connections":     n,
			}).Warn("conversation registry exceeds expected connection count")
		}
	}
	s.Logger.WithFields(logrus.Fields{
		"flagged":  flagged,
		"duration": time.Since(start).String(),
	}).Debug("registry sweep complete")
	return nil
}

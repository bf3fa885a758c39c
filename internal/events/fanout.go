package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// ChatFanout publishes WebSocket event payloads onto a dedicated bus topic
// keyed by conversation id, and subscribes every process instance to the
// same topic under a unique consumer group so every instance receives
// every message (broadcast semantics, not competitive consumption), per
// §4.3.3 "Connection Registry & Cross-Instance Fanout".
type ChatFanout struct {
	writer   *kafka.Writer
	reader   *kafka.Reader
	deliver  func(conversationID uuid.UUID, payload []byte)
	logger   *logrus.Logger
}

// NewChatFanout wires a dedicated writer plus a reader in a process-unique
// consumer group (so Kafka does not load-balance partitions across
// instances, giving every instance every message).
func NewChatFanout(brokers []string, topic string, instanceID string, deliver func(conversationID uuid.UUID, payload []byte), logger *logrus.Logger) *ChatFanout {
	return &ChatFanout{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			Topic:   topic,
			GroupID: "chat-fanout-" + instanceID,
		}),
		deliver: deliver,
		logger:  logger,
	}
}

func (f *ChatFanout) PublishToConversation(conversationID uuid.UUID, payload []byte) error {
	return f.writer.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(conversationID.String()),
		Value: payload,
	})
}

// Subscribe runs until ctx is cancelled, delivering every message on the
// fanout topic into the local hub via deliver.
func (f *ChatFanout) Subscribe(ctx context.Context) {
	for {
		msg, err := f.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			f.logger.WithError(err).Error("chat fanout read error")
			time.Sleep(time.Second)
			continue
		}

		convID, err := uuid.Parse(string(msg.Key))
		if err == nil {
			f.deliver(convID, msg.Value)
		}

		f.reader.CommitMessages(ctx, msg)
	}
}

func (f *ChatFanout) Close() {
	f.writer.Close()
	f.reader.Close()
}

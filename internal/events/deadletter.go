package events

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// KafkaDeadLetterSink republishes a poison (unparseable) record onto a
// dedicated dead-letter topic, tagged with the reason it landed there, so an
// operator can replay or inspect it without the consumer having to halt its
// partition (§4.1 failure semantics).
type KafkaDeadLetterSink struct {
	writer *kafka.Writer
	logger *logrus.Logger
}

func NewKafkaDeadLetterSink(brokers []string, topic string, logger *logrus.Logger) *KafkaDeadLetterSink {
	return &KafkaDeadLetterSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
		},
		logger: logger,
	}
}

func (s *KafkaDeadLetterSink) Record(ctx context.Context, raw []byte, reason string) {
	err := s.writer.WriteMessages(ctx, kafka.Message{
		Value: raw,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "dead_letter_reason", Value: []byte(reason)},
		},
	})
	if err != nil {
		s.logger.WithError(err).WithField("reason", reason).Error("failed to write dead letter record")
		return
	}
	s.logger.WithField("reason", reason).Warn("record routed to dead letter topic")
}

func (s *KafkaDeadLetterSink) Close() error { return s.writer.Close() }

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package mail

import (
	"context"
	"encoding/json"
	"time"

	"github.com/samber/oops"
	"github.com/segmentio/kafka-go"

	"github.com/holomush/accountd/internal/account"
)

// EventVerificationRequested is the event-type header of published messages.
const EventVerificationRequested = "account.verification_requested"

// MessageWriter is the kafka-go writer surface KafkaMailer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaMailer publishes verification emails as JSON events for a
// downstream mail service to deliver. Messages are keyed by recipient.
type KafkaMailer struct {
	writer MessageWriter
	now    func() time.Time
}

var _ account.VerificationMailer = (*KafkaMailer)(nil)

// NewKafkaWriter builds a synchronous writer that waits for all in-sync replicas.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		WriteTimeout:           10 * time.Second,
		AllowAutoTopicCreation: false,
	}
}

// NewKafkaMailer creates a KafkaMailer.
func NewKafkaMailer(writer MessageWriter) (*KafkaMailer, error) {
	if writer == nil {
		return nil, oops.Code("KAFKA_CONFIG_INVALID").Errorf("kafka writer is required")
	}
	return &KafkaMailer{writer: writer, now: time.Now}, nil
}

// SendVerification publishes msg.
func (m *KafkaMailer) SendVerification(ctx context.Context, msg account.VerificationEmail) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return oops.Code("KAFKA_ENCODE_FAILED").With("to", msg.To).Wrap(err)
	}

	err = m.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.To),
		Value: value,
		Time:  m.now(),
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(EventVerificationRequested)},
		},
	})
	if err != nil {
		return oops.Code("KAFKA_PUBLISH_FAILED").With("to", msg.To).Wrap(err)
	}
	return nil
}

// Close flushes and closes the writer.
func (m *KafkaMailer) Close() error {
	if err := m.writer.Close(); err != nil {
		return oops.Code("KAFKA_CLOSE_FAILED").Wrap(err)
	}
	return nil
}

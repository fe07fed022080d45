package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap/zaptest"

	"github.com/dustinober1/pmp-application-sub001/internal/core/domain"
	"github.com/dustinober1/pmp-application-sub001/internal/infra/config"
)

type fakeAsyncProducer struct {
	input  chan *sarama.ProducerMessage
	errors chan *sarama.ProducerError
}

func newFakeAsyncProducer() *fakeAsyncProducer {
	return &fakeAsyncProducer{
		input:  make(chan *sarama.ProducerMessage, 1),
		errors: make(chan *sarama.ProducerError, 1),
	}
}

func (f *fakeAsyncProducer) AsyncClose() {}

func (f *fakeAsyncProducer) Close() error { return nil }

func (f *fakeAsyncProducer) Input() chan<- *sarama.ProducerMessage { return f.input }

func (f *fakeAsyncProducer) Successes() <-chan *sarama.ProducerMessage { return nil }

func (f *fakeAsyncProducer) Errors() <-chan *sarama.ProducerError { return f.errors }

func (f *fakeAsyncProducer) IsTransactional() bool { return false }

func (f *fakeAsyncProducer) BeginTxn() error { return nil }

func (f *fakeAsyncProducer) CommitTxn() error { return nil }

func (f *fakeAsyncProducer) AbortTxn() error { return nil }

func (f *fakeAsyncProducer) AddOffsetsToTxn(offsets map[string][]*sarama.PartitionOffsetMetadata, groupID string) error {
	return nil
}

func (f *fakeAsyncProducer) AddMessageToTxn(msg *sarama.ConsumerMessage, groupID string, metadata *string) error {
	return nil
}

func (f *fakeAsyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return sarama.ProducerTxnStatusFlag(0)
}

func newTestPublisher(t *testing.T) (*EventPublisher, *fakeAsyncProducer) {
	t.Helper()
	asyncProducer := newFakeAsyncProducer()

	producer := &Producer{
		producer: asyncProducer,
		logger:   zaptest.NewLogger(t),
		cfg: config.KafkaSettings{
			TopicPrefix: "auth",
		},
		errChan: make(chan error, 1),
		done:    make(chan struct{}),
	}

	publisher := NewEventPublisher(producer, config.AppSettings{
		Name: "auth-service",
		Env:  "test",
	}, zaptest.NewLogger(t))

	return publisher, asyncProducer
}

func TestPublishUserRegistered(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	registeredAt := time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)
	event := domain.UserRegisteredEvent{
		EventID:      "event-123",
		UserID:       "user-789",
		Email:        "user@example.com",
		DisplayName:  "User",
		RegisteredAt: registeredAt,
	}

	if err := publisher.PublishUserRegistered(context.Background(), event); err != nil {
		t.Fatalf("PublishUserRegistered returned error: %v", err)
	}

	var msg *sarama.ProducerMessage
	select {
	case msg = <-asyncProducer.input:
	case <-time.After(time.Second):
		t.Fatal("no message produced")
	}

	if msg.Topic != "auth.auth.user.registered" {
		t.Fatalf("unexpected topic: %s", msg.Topic)
	}

	raw, err := msg.Value.Encode()
	if err != nil {
		t.Fatalf("encode message value: %v", err)
	}

	var envelope struct {
		EventID   string    `json:"event_id"`
		EventType string    `json:"event_type"`
		UserID    string    `json:"user_id"`
		Timestamp time.Time `json:"timestamp"`
		Version   string    `json:"version"`
		Payload   struct {
			UserID string `json:"user_id"`
			Email  string `json:"email"`
		} `json:"payload"`
		Metadata map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}

	if envelope.EventID != "event-123" {
		t.Fatalf("unexpected event_id: %s", envelope.EventID)
	}
	if envelope.EventType != "auth.user.registered" {
		t.Fatalf("unexpected event_type: %s", envelope.EventType)
	}
	if !envelope.Timestamp.Equal(registeredAt) {
		t.Fatalf("unexpected timestamp: %s", envelope.Timestamp)
	}
	if envelope.Payload.Email != "user@example.com" {
		t.Fatalf("unexpected payload email: %s", envelope.Payload.Email)
	}
	if envelope.Metadata["service"] != "auth-service" {
		t.Fatalf("unexpected service metadata: %s", envelope.Metadata["service"])
	}
}

func TestPublishPasswordResetRequestedGeneratesEventID(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	event := domain.PasswordResetRequestedEvent{
		UserID:      "user-789",
		Email:       "user@example.com",
		Token:       "reset-token",
		RequestedAt: time.Now().UTC(),
		ExpiresAt:   time.Now().UTC().Add(24 * time.Hour),
	}

	if err := publisher.PublishPasswordResetRequested(context.Background(), event); err != nil {
		t.Fatalf("PublishPasswordResetRequested returned error: %v", err)
	}

	var msg *sarama.ProducerMessage
	select {
	case msg = <-asyncProducer.input:
	case <-time.After(time.Second):
		t.Fatal("no message produced")
	}

	raw, err := msg.Value.Encode()
	if err != nil {
		t.Fatalf("encode message value: %v", err)
	}

	var envelope struct {
		EventID string `json:"event_id"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.EventID == "" {
		t.Fatal("expected generated event_id")
	}
}

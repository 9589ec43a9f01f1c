package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaPublisher produces audit events to a Kafka topic. Events are keyed by
// document id so per-document ordering survives partitioning.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafkaPublisher connects to the brokers and ensures the topic exists.
func NewKafkaPublisher(ctx context.Context, brokers []string, topic string, logger *slog.Logger) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}

	if err := ensureTopic(ctx, client, topic); err != nil {
		client.Close()
		return nil, err
	}

	return &KafkaPublisher{client: client, topic: topic, logger: logger}, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	admin := kadm.NewClient(client)

	resp, err := admin.CreateTopic(ctx, -1, -1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %q: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %q: %w", topic, resp.Err)
	}
	return nil
}

func (p *KafkaPublisher) Emit(ctx context.Context, event Event) error {
	event = normalize(event)

	value, err := json.Marshal(toWireEvent(event))
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   recordKey(event),
		Value: value,
	}

	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		p.logger.ErrorContext(ctx, "audit event produce failed",
			slog.String("action", string(event.Action)),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() {
	p.client.Close()
}

func recordKey(event Event) []byte {
	if !event.DocumentID.IsNil() {
		return []byte(event.DocumentID.String())
	}
	return []byte(event.Action)
}

// wireEvent is the JSON shape on the topic. Consumers deserialize by these
// names; changes must stay additive.
type wireEvent struct {
	Time          string  `json:"time"`
	Category      string  `json:"category"`
	Action        string  `json:"action"`
	Actor         string  `json:"actor,omitempty"`
	DocumentID    string  `json:"document_id,omitempty"`
	TokenID       *uint64 `json:"token_id,omitempty"`
	Slot          *uint64 `json:"slot,omitempty"`
	AttestationID string  `json:"attestation_id,omitempty"`
	Capabilities  uint8   `json:"capabilities,omitempty"`
	Detail        string  `json:"detail,omitempty"`
	RequestID     string  `json:"request_id,omitempty"`
}

func toWireEvent(event Event) wireEvent {
	w := wireEvent{
		Time:         event.Time.UTC().Format(time.RFC3339Nano),
		Category:     string(event.Category),
		Action:       string(event.Action),
		Capabilities: uint8(event.Capabilities),
		Detail:       event.Detail,
		RequestID:    event.RequestID,
	}
	if !event.Actor.IsNil() {
		w.Actor = event.Actor.String()
	}
	if !event.DocumentID.IsNil() {
		w.DocumentID = event.DocumentID.String()
	}
	if event.TokenID != nil {
		tokenID := uint64(*event.TokenID)
		w.TokenID = &tokenID
	}
	if event.Slot != nil {
		slot := uint64(*event.Slot)
		w.Slot = &slot
	}
	if !event.AttestationID.IsNil() {
		w.AttestationID = event.AttestationID.String()
	}
	return w
}

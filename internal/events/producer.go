// Package events publishes movement lifecycle events to Kafka. Emission is
// best-effort: the submission has already committed by the time an event is
// produced, and a broker outage must never fail a gate operation.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/trailerops/yardgate/internal/model"
)

// MovementEvent is the wire shape of one published movement.
type MovementEvent struct {
	MovementID string             `json:"movementId"`
	RequestID  string             `json:"requestId"`
	Type       model.MovementType `json:"type"`
	TrailerID  string             `json:"trailerId"`
	YardID     string             `json:"yardId,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
	ActorID    string             `json:"actorId"`
}

// ProducerConfig holds the Kafka producer parameters.
type ProducerConfig struct {
	Brokers []string
	Topic   string

	// MaxAttempts is how many times a produce is retried on transient error.
	// Defaults to 3 if <= 0.
	MaxAttempts int

	// WriteTimeout is the per-attempt write timeout. Defaults to 10s if zero.
	WriteTimeout time.Duration
}

// Producer wraps a kafka-go Writer with simple produce-with-retries behavior.
// Messages are keyed by trailer id so events for the same trailer stay on one
// partition and preserve order.
type Producer struct {
	writer      *kafka.Writer
	maxAttempts int
}

// NewProducer constructs a Producer.
func NewProducer(cfg ProducerConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: at least one broker required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka: topic required")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: cfg.WriteTimeout,
		Async:        false,
	})
	return &Producer{writer: w, maxAttempts: cfg.MaxAttempts}, nil
}

// EmitMovement publishes one movement event, retrying with exponential
// backoff on transient failures.
func (p *Producer) EmitMovement(ctx context.Context, m *model.Movement) error {
	ev := MovementEvent{
		MovementID: m.ID,
		RequestID:  m.RequestID,
		Type:       m.Type,
		TrailerID:  m.TrailerID,
		YardID:     m.YardID,
		Timestamp:  m.Timestamp,
		ActorID:    m.Actor.ID,
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal movement event: %w", err)
	}

	var lastErr error
	backoff := 100 * time.Millisecond
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		msg := kafka.Message{
			Key:   []byte(m.TrailerID),
			Value: value,
			Time:  time.Now().UTC(),
		}
		attemptCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := p.writer.WriteMessages(attemptCtx, msg)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		time.Sleep(backoff)
		if backoff < 2*time.Second {
			backoff *= 2
		}
	}
	return fmt.Errorf("produce failed after %d attempts: %w", p.maxAttempts, lastErr)
}

// Close shuts down the underlying writer.
func (p *Producer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

package eventbus

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ineza/schoolpay/pkg/domain/events"
	"github.com/ineza/schoolpay/pkg/eventbus"
	"github.com/segmentio/kafka-go"
)

// KafkaEventBus dispatches events to local handlers and mirrors every event
// onto a Kafka topic as JSON for the external audit trail. Local dispatch
// never waits on the broker; publish failures are logged and dropped.
type KafkaEventBus struct {
	writer   *kafka.Writer
	handlers map[string][]eventbus.HandlerFunc
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewWithKafka creates a Kafka-backed event bus.
// brokers is a comma-separated list (e.g. "localhost:9092,localhost:9093").
func NewWithKafka(brokers, topic string, logger *slog.Logger) *KafkaEventBus {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		BatchTimeout: 100 * time.Millisecond,
	}
	return &KafkaEventBus{
		writer:   writer,
		handlers: make(map[string][]eventbus.HandlerFunc),
		logger:   logger.With("bus", "kafka"),
	}
}

// Register registers a local handler for a specific event type.
func (b *KafkaEventBus) Register(eventType string, handler eventbus.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Emit dispatches to local handlers, then publishes the event to Kafka.
func (b *KafkaEventBus) Emit(ctx context.Context, event events.Event) error {
	b.mu.RLock()
	handlers := b.handlers[event.Type()]
	b.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			b.logger.Error("event handler failed",
				"event_type", event.Type(), "error", err)
		}
	}

	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("failed to marshal event", "event_type", event.Type(), "error", err)
		return nil
	}
	msg := kafka.Message{
		Key:   []byte(event.Type()),
		Value: payload,
		Time:  time.Now(),
	}
	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		b.logger.Error("failed to publish event to kafka",
			"event_type", event.Type(), "error", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (b *KafkaEventBus) Close() error {
	return b.writer.Close()
}

var _ eventbus.Bus = (*KafkaEventBus)(nil)

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/upb/erp-backend/internal/observability"
	"go.uber.org/zap"
)

// Stream entry fields
const (
	fieldEventType = "event_type"
	fieldTenantID  = "tenant_id"
	fieldData      = "data"
)

// Publisher publishes domain events
type Publisher interface {
	Publish(ctx context.Context, msg Message) (string, error)
}

// Message is an event to publish. Metadata is filled in by the publisher.
type Message struct {
	Type          EventType
	TenantID      string
	CorrelationID string
	Priority      Priority
	Payload       interface{}
}

// ProducerConfig configures a Producer
type ProducerConfig struct {
	Stream string
	// MaxLen caps the stream length, zero keeps every entry
	MaxLen int64
}

// Producer appends events to a Redis stream
type Producer struct {
	client  redis.UniversalClient
	stream  string
	maxLen  int64
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewProducer creates a new Producer. metrics may be nil.
func NewProducer(client redis.UniversalClient, cfg ProducerConfig, metrics *observability.Metrics, logger *zap.Logger) *Producer {
	return &Producer{
		client:  client,
		stream:  cfg.Stream,
		maxLen:  cfg.MaxLen,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Publish wraps the payload in an envelope and appends it to the stream.
// It returns the generated event id.
func (p *Producer) Publish(ctx context.Context, msg Message) (string, error) {
	payload, err := json.Marshal(msg.Payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s payload: %w", msg.Type, err)
	}

	priority := msg.Priority
	if priority == "" {
		priority = PriorityMedium
	}

	event := Event{
		Metadata: Metadata{
			EventID:       newEventID(),
			EventType:     msg.Type,
			EventVersion:  SchemaVersion,
			Timestamp:     p.now().UTC(),
			SourceService: SourceService,
			TenantID:      msg.TenantID,
			CorrelationID: msg.CorrelationID,
			Priority:      priority,
		},
		Payload: payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			fieldEventType: string(msg.Type),
			fieldTenantID:  msg.TenantID,
			fieldData:      string(data),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
	}

	entryID, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		p.logger.Error("failed to publish event",
			zap.String("stream", p.stream),
			zap.String("event_type", string(msg.Type)),
			zap.String("tenant_id", msg.TenantID),
			zap.Error(err))
		p.metrics.RecordEvent("published", string(msg.Type), "error")
		return "", fmt.Errorf("failed to publish %s: %w", msg.Type, err)
	}

	p.logger.Info("event published",
		zap.String("stream", p.stream),
		zap.String("entry_id", entryID),
		zap.String("event_id", event.Metadata.EventID),
		zap.String("event_type", string(msg.Type)),
		zap.String("tenant_id", msg.TenantID),
		zap.String("priority", string(priority)))
	p.metrics.RecordEvent("published", string(msg.Type), "ok")

	return event.Metadata.EventID, nil
}

// NopPublisher discards events. It is used when the event stream is disabled.
type NopPublisher struct{}

// Publish implements Publisher
func (NopPublisher) Publish(ctx context.Context, msg Message) (string, error) {
	return "", nil
}

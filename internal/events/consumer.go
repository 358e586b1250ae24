package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/upb/erp-backend/internal/observability"
	"go.uber.org/zap"
)

// Handler processes one event. A returned error leaves the entry pending
// so it is delivered again the next time the consumer starts.
type Handler func(ctx context.Context, event *Event) error

// ConsumerConfig configures a Consumer
type ConsumerConfig struct {
	Stream    string
	Group     string
	Name      string
	Block     time.Duration
	BatchSize int64
}

// Consumer reads a stream as a member of a consumer group and dispatches
// entries to the handler registered for their event type.
type Consumer struct {
	client  redis.UniversalClient
	cfg     ConsumerConfig
	metrics *observability.Metrics
	logger  *zap.Logger

	mu       sync.RWMutex
	handlers map[EventType]Handler

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewConsumer creates a new Consumer. metrics may be nil.
func NewConsumer(client redis.UniversalClient, cfg ConsumerConfig, metrics *observability.Metrics, logger *zap.Logger) *Consumer {
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	return &Consumer{
		client:   client,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
		handlers: make(map[EventType]Handler),
	}
}

// Register sets the handler for an event type, replacing any previous one
func (c *Consumer) Register(eventType EventType, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[eventType] = handler
	c.logger.Info("event handler registered", zap.String("event_type", string(eventType)))
}

func (c *Consumer) handler(eventType EventType) (Handler, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.handlers[eventType]
	return h, ok
}

// Start creates the consumer group if needed and starts consuming in the
// background. Starting a running consumer is a no-op.
func (c *Consumer) Start(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.cancel != nil {
		return nil
	}

	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group %s: %w", c.cfg.Group, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.run(runCtx, c.done)

	c.logger.Info("event consumer started",
		zap.String("stream", c.cfg.Stream),
		zap.String("group", c.cfg.Group),
		zap.String("consumer", c.cfg.Name))
	return nil
}

// Stop stops consuming and waits for the in-flight batch to finish or ctx
// to expire.
func (c *Consumer) Stop(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.cancel == nil {
		return nil
	}
	c.cancel()
	done := c.done
	c.cancel = nil
	c.done = nil

	select {
	case <-done:
		c.logger.Info("event consumer stopped", zap.String("stream", c.cfg.Stream))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Consumer) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	// entries delivered before a restart but never acknowledged come first
	c.drainPending(ctx)

	backoff := 100 * time.Millisecond
	for ctx.Err() == nil {
		streams, err := c.read(ctx, ">")
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("failed to read from stream",
				zap.String("stream", c.cfg.Stream),
				zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = 100 * time.Millisecond

		c.processStreams(ctx, streams)
	}
}

func (c *Consumer) drainPending(ctx context.Context) {
	for ctx.Err() == nil {
		streams, err := c.read(ctx, "0")
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("failed to read pending entries", zap.Error(err))
			}
			return
		}
		if c.processStreams(ctx, streams) == 0 {
			return
		}
	}
}

// read returns no streams and no error when the block timeout passes
func (c *Consumer) read(ctx context.Context, id string) ([]redis.XStream, error) {
	args := &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Name,
		Streams:  []string{c.cfg.Stream, id},
		Count:    c.cfg.BatchSize,
	}
	if id == ">" {
		args.Block = c.cfg.Block
	}
	streams, err := c.client.XReadGroup(ctx, args).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return streams, err
}

// processStreams handles every entry and returns how many were acknowledged
func (c *Consumer) processStreams(ctx context.Context, streams []redis.XStream) int {
	acked := 0
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			if c.process(ctx, msg) {
				acked++
			}
		}
	}
	return acked
}

// process dispatches one entry and reports whether it was acknowledged
func (c *Consumer) process(ctx context.Context, msg redis.XMessage) bool {
	event, err := decodeEntry(msg)
	if err != nil {
		c.logger.Error("dropping undecodable stream entry",
			zap.String("entry_id", msg.ID),
			zap.Error(err))
		c.metrics.RecordEvent("consumed", "unknown", "invalid")
		return c.ack(ctx, msg.ID)
	}

	eventType := string(event.Metadata.EventType)
	handler, ok := c.handler(event.Metadata.EventType)
	if !ok {
		c.logger.Warn("no handler for event type",
			zap.String("entry_id", msg.ID),
			zap.String("event_type", eventType))
		c.metrics.RecordEvent("consumed", eventType, "unhandled")
		return c.ack(ctx, msg.ID)
	}

	if err := handler(ctx, event); err != nil {
		c.logger.Error("event handler failed",
			zap.String("entry_id", msg.ID),
			zap.String("event_id", event.Metadata.EventID),
			zap.String("event_type", eventType),
			zap.String("tenant_id", event.Metadata.TenantID),
			zap.Error(err))
		c.metrics.RecordEvent("consumed", eventType, "error")
		return false
	}

	c.logger.Debug("event processed",
		zap.String("entry_id", msg.ID),
		zap.String("event_id", event.Metadata.EventID),
		zap.String("event_type", eventType))
	c.metrics.RecordEvent("consumed", eventType, "ok")
	return c.ack(ctx, msg.ID)
}

func (c *Consumer) ack(ctx context.Context, id string) bool {
	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, id).Err(); err != nil {
		c.logger.Error("failed to acknowledge entry", zap.String("entry_id", id), zap.Error(err))
		return false
	}
	return true
}

func decodeEntry(msg redis.XMessage) (*Event, error) {
	raw, ok := msg.Values[fieldData].(string)
	if !ok {
		return nil, fmt.Errorf("entry %s has no %s field", msg.ID, fieldData)
	}
	var event Event
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return nil, fmt.Errorf("entry %s: %w", msg.ID, err)
	}
	return &event, nil
}

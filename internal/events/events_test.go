package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/erp-backend/internal/clients"
	"github.com/upb/erp-backend/models"
	"go.uber.org/zap"
)

const testStream = "inventory-events"

func newTestRedis(t *testing.T) redis.UniversalClient {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func newTestConsumer(client redis.UniversalClient) *Consumer {
	return NewConsumer(client, ConsumerConfig{
		Stream:    testStream,
		Group:     "erp-test",
		Name:      "worker-1",
		Block:     50 * time.Millisecond,
		BatchSize: 5,
	}, nil, zap.NewNop())
}

func TestLowStockPriority(t *testing.T) {
	two := 2.0
	five := 5.0

	tests := []struct {
		name    string
		stock   int
		reorder int
		days    *float64
		want    Priority
	}{
		{"out of stock", 0, 10, nil, PriorityCritical},
		{"few days left", 8, 10, &two, PriorityHigh},
		{"half reorder level", 5, 10, &five, PriorityHigh},
		{"just below reorder", 9, 10, nil, PriorityMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LowStockPriority(tt.stock, tt.reorder, tt.days))
		})
	}
}

func TestProducer_Publish(t *testing.T) {
	client := newTestRedis(t)
	producer := NewProducer(client, ProducerConfig{Stream: testStream, MaxLen: 100}, nil, zap.NewNop())
	ctx := context.Background()

	eventID, err := producer.Publish(ctx, Message{
		Type:          ProductCreated,
		TenantID:      "tenant-1",
		CorrelationID: "req-42",
		Payload:       ProductCreatedPayload{ProductID: "PRD-1", ProductSKU: "LAP-001", InitialStock: 5},
	})
	require.NoError(t, err)
	assert.Regexp(t, `^evt-[0-9a-f]{12}$`, eventID)

	entries, err := client.XRange(ctx, testStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, string(ProductCreated), entries[0].Values["event_type"])
	assert.Equal(t, "tenant-1", entries[0].Values["tenant_id"])

	event, err := decodeEntry(entries[0])
	require.NoError(t, err)
	assert.Equal(t, eventID, event.Metadata.EventID)
	assert.Equal(t, SchemaVersion, event.Metadata.EventVersion)
	assert.Equal(t, SourceService, event.Metadata.SourceService)
	assert.Equal(t, "req-42", event.Metadata.CorrelationID)
	assert.Equal(t, PriorityMedium, event.Metadata.Priority)

	var payload ProductCreatedPayload
	require.NoError(t, event.Decode(&payload))
	assert.Equal(t, "LAP-001", payload.ProductSKU)
	assert.Equal(t, 5, payload.InitialStock)
}

func TestProducer_PublishFailure(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	defer client.Close()

	producer := NewProducer(client, ProducerConfig{Stream: testStream}, nil, zap.NewNop())
	_, err := producer.Publish(context.Background(), Message{Type: LowStock, TenantID: "tenant-1", Payload: LowStockPayload{}})
	assert.Error(t, err)
}

func TestConsumer_DispatchesAndAcks(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()
	producer := NewProducer(client, ProducerConfig{Stream: testStream}, nil, zap.NewNop())
	consumer := newTestConsumer(client)

	var mu sync.Mutex
	var got []*Event
	consumer.Register(StockAdjusted, func(ctx context.Context, event *Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, event)
		return nil
	})

	require.NoError(t, consumer.Start(ctx))
	// starting twice is harmless
	require.NoError(t, consumer.Start(ctx))

	_, err := producer.Publish(ctx, Message{Type: StockAdjusted, TenantID: "tenant-2", Payload: StockAdjustedPayload{NewStock: 3}})
	require.NoError(t, err)
	_, err = producer.Publish(ctx, Message{Type: ProductUpdated, TenantID: "tenant-2", Payload: ProductUpdatedPayload{}})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		pending, err := client.XPending(ctx, testStream, "erp-test").Result()
		if err != nil {
			return false
		}
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && pending.Count == 0
	}, 2*time.Second, 20*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, consumer.Stop(stopCtx))
	require.NoError(t, consumer.Stop(stopCtx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "tenant-2", got[0].Metadata.TenantID)
}

func TestConsumer_FailedEntryIsRedelivered(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()
	producer := NewProducer(client, ProducerConfig{Stream: testStream}, nil, zap.NewNop())
	consumer := newTestConsumer(client)

	var mu sync.Mutex
	attempts := 0
	fail := true
	consumer.Register(LowStock, func(ctx context.Context, event *Event) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if fail {
			return errors.New("database down")
		}
		return nil
	})

	require.NoError(t, consumer.Start(ctx))
	_, err := producer.Publish(ctx, Message{Type: LowStock, TenantID: "tenant-1", Payload: LowStockPayload{}})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return attempts == 1
	}, 2*time.Second, 20*time.Millisecond)
	require.NoError(t, consumer.Stop(ctx))

	pending, err := client.XPending(ctx, testStream, "erp-test").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending.Count)

	mu.Lock()
	fail = false
	mu.Unlock()

	require.NoError(t, consumer.Start(ctx))
	assert.Eventually(t, func() bool {
		pending, err := client.XPending(ctx, testStream, "erp-test").Result()
		return err == nil && pending.Count == 0
	}, 2*time.Second, 20*time.Millisecond)
	require.NoError(t, consumer.Stop(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, attempts)
}

func TestConsumer_DropsUndecodableEntries(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()
	producer := NewProducer(client, ProducerConfig{Stream: testStream}, nil, zap.NewNop())
	consumer := newTestConsumer(client)

	handled := make(chan struct{}, 1)
	consumer.Register(ProductCreated, func(ctx context.Context, event *Event) error {
		handled <- struct{}{}
		return nil
	})

	require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{
		Stream: testStream,
		Values: map[string]interface{}{"data": "not json"},
	}).Err())
	_, err := producer.Publish(ctx, Message{Type: ProductCreated, TenantID: "tenant-1", Payload: ProductCreatedPayload{}})
	require.NoError(t, err)

	require.NoError(t, consumer.Start(ctx))

	select {
	case <-handled:
	case <-time.After(2 * time.Second):
		t.Fatal("valid entry after the bad one was not handled")
	}

	assert.Eventually(t, func() bool {
		pending, err := client.XPending(ctx, testStream, "erp-test").Result()
		return err == nil && pending.Count == 0
	}, 2*time.Second, 20*time.Millisecond)
	require.NoError(t, consumer.Stop(ctx))
}

type memoryAlerts struct {
	mu     sync.Mutex
	alerts []*models.StockAlert
	err    error
}

func (m *memoryAlerts) Create(ctx context.Context, alert *models.StockAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.alerts = append(m.alerts, alert)
	return nil
}

type recordingSales struct {
	tenantID string
	sent     []clients.LowStockNotification
	err      error
}

func (r *recordingSales) NotifyLowStock(ctx context.Context, tenantID string, n clients.LowStockNotification) error {
	r.tenantID = tenantID
	r.sent = append(r.sent, n)
	return r.err
}

func lowStockEvent(t *testing.T, payload LowStockPayload) *Event {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &Event{
		Metadata: Metadata{EventID: "evt-000000000001", EventType: LowStock, TenantID: "tenant-1"},
		Payload:  raw,
	}
}

func TestLowStockHandler(t *testing.T) {
	two := 2.0

	tests := []struct {
		name     string
		payload  LowStockPayload
		priority models.AlertPriority
	}{
		{"urgent with few days left", LowStockPayload{ProductSKU: "A", CurrentStock: 4, ReorderLevel: 10, DaysOfStockRemaining: &two}, models.AlertUrgent},
		{"critical when empty", LowStockPayload{ProductSKU: "B", CurrentStock: 0, ReorderLevel: 10}, models.AlertCritical},
		{"normal otherwise", LowStockPayload{ProductSKU: "C", CurrentStock: 8, ReorderLevel: 10}, models.AlertNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := &memoryAlerts{}
			sales := &recordingSales{}
			h := NewLowStockHandler(alerts, sales, zap.NewNop())

			require.NoError(t, h.Handle(context.Background(), lowStockEvent(t, tt.payload)))

			require.Len(t, alerts.alerts, 1)
			alert := alerts.alerts[0]
			assert.Equal(t, tt.priority, alert.Priority)
			assert.Equal(t, "tenant-1", alert.TenantID)
			assert.Equal(t, "evt-000000000001", alert.EventID)

			require.Len(t, sales.sent, 1)
			assert.Equal(t, "tenant-1", sales.tenantID)
			assert.Equal(t, string(tt.priority), sales.sent[0].Priority)
			assert.Contains(t, sales.sent[0].Message, tt.payload.ProductSKU)
		})
	}
}

func TestLowStockHandler_Failures(t *testing.T) {
	t.Run("store failure fails the event", func(t *testing.T) {
		h := NewLowStockHandler(&memoryAlerts{err: errors.New("db down")}, &recordingSales{}, zap.NewNop())
		err := h.Handle(context.Background(), lowStockEvent(t, LowStockPayload{}))
		assert.Error(t, err)
	})

	t.Run("notification failure is tolerated", func(t *testing.T) {
		alerts := &memoryAlerts{}
		h := NewLowStockHandler(alerts, &recordingSales{err: errors.New("sales down")}, zap.NewNop())
		require.NoError(t, h.Handle(context.Background(), lowStockEvent(t, LowStockPayload{})))
		assert.Len(t, alerts.alerts, 1)
	})

	t.Run("bad payload", func(t *testing.T) {
		h := NewLowStockHandler(&memoryAlerts{}, nil, zap.NewNop())
		err := h.Handle(context.Background(), &Event{Metadata: Metadata{EventType: LowStock}, Payload: json.RawMessage(`"nope"`)})
		assert.Error(t, err)
	})
}

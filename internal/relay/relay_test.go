package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/festivo/ticketing/internal/domain/outbox"
	redisx "github.com/festivo/ticketing/internal/infrastructure/redis"
	"github.com/festivo/ticketing/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Test Helpers ---

type dlqEntry struct {
	topic       string
	operationID string
}

// fakeBroker records publishes in memory and fails on demand.
type fakeBroker struct {
	mu         sync.Mutex
	published  map[string][]redisx.Envelope
	dlq        []dlqEntry
	publishErr error
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{published: make(map[string][]redisx.Envelope)}
}

func (b *fakeBroker) PublishBatch(ctx context.Context, topic string, envelopes []redisx.Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published[topic] = append(b.published[topic], envelopes...)
	return nil
}

func (b *fakeBroker) PublishToDLQ(ctx context.Context, topic, operationID string, payload map[string]any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dlq = append(b.dlq, dlqEntry{topic: topic, operationID: operationID})
	return nil
}

func (b *fakeBroker) publishedOn(topic string) []redisx.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.published[topic]
}

func setupRelay(broker Broker, cfg Config) (*Relay, *testutil.MockOutboxRepository) {
	outboxRepo := testutil.NewMockOutboxRepository()
	txManager := testutil.NewMockTransactionManager()
	if cfg.PublishRetries == 0 {
		// Keep failure tests fast.
		cfg.PublishRetries = 1
	}
	r := New(outboxRepo, txManager, broker, nil, zerolog.Nop(), nil, cfg)
	return r, outboxRepo
}

// --- Cycle Tests ---

func TestCycle_PublishesAndMarksSent(t *testing.T) {
	broker := newFakeBroker()
	relay, outboxRepo := setupRelay(broker, Config{BatchSize: 10})
	ctx := context.Background()

	rec1 := outbox.NewRecord(outbox.TopicTicketCreate, map[string]any{"ticket_uuid": "a"})
	rec2 := outbox.NewRecord(outbox.TopicTicketCreate, map[string]any{"ticket_uuid": "b"})
	rec3 := outbox.NewRecord(outbox.TopicMessageSend, map[string]any{"message_uuid": "c"})
	for _, rec := range []*outbox.Record{rec1, rec2, rec3} {
		require.NoError(t, outboxRepo.Append(ctx, rec))
	}

	require.NoError(t, relay.Cycle(ctx))

	mints := broker.publishedOn(outbox.TopicTicketCreate)
	require.Len(t, mints, 2, "same-topic records go out as one batch")
	assert.Equal(t, rec1.OperationID.String(), mints[0].OperationID)
	assert.Equal(t, rec2.OperationID.String(), mints[1].OperationID)
	assert.Len(t, broker.publishedOn(outbox.TopicMessageSend), 1)

	for _, rec := range outboxRepo.Records() {
		assert.Equal(t, outbox.StatusSent, rec.Status)
		assert.NotNil(t, rec.SentAt)
	}
}

func TestCycle_EmptyOutbox(t *testing.T) {
	broker := newFakeBroker()
	relay, _ := setupRelay(broker, Config{})

	require.NoError(t, relay.Cycle(context.Background()))
	assert.Empty(t, broker.published)
}

func TestCycle_HoldsBackScheduledRecords(t *testing.T) {
	broker := newFakeBroker()
	relay, outboxRepo := setupRelay(broker, Config{BatchSize: 10})
	ctx := context.Background()

	due := outbox.NewScheduledRecord(outbox.TopicCancellationWindow,
		map[string]any{"order_uuid": "due"}, time.Now().UTC().Add(-time.Minute))
	future := outbox.NewScheduledRecord(outbox.TopicCancellationWindow,
		map[string]any{"order_uuid": "future"}, time.Now().UTC().Add(time.Hour))
	require.NoError(t, outboxRepo.Append(ctx, due))
	require.NoError(t, outboxRepo.Append(ctx, future))

	require.NoError(t, relay.Cycle(ctx))

	published := broker.publishedOn(outbox.TopicCancellationWindow)
	require.Len(t, published, 1, "only the record whose window passed goes out")
	assert.Equal(t, due.OperationID.String(), published[0].OperationID)

	assert.Equal(t, outbox.StatusSent, due.Status)
	assert.Equal(t, outbox.StatusCreated, future.Status)
}

func TestCycle_PublishFailureLeavesRecordsRetryable(t *testing.T) {
	broker := newFakeBroker()
	broker.publishErr = errors.New("redis down")
	relay, outboxRepo := setupRelay(broker, Config{BatchSize: 10})
	ctx := context.Background()

	rec := outbox.NewRecord(outbox.TopicTicketCreate, nil)
	require.NoError(t, outboxRepo.Append(ctx, rec))

	require.NoError(t, relay.Cycle(ctx))

	assert.Equal(t, outbox.StatusCreated, rec.Status, "record stays retryable")
	assert.Equal(t, 1, rec.Attempts)
	assert.Empty(t, broker.dlq)

	// Broker recovers: the next cycle delivers the same record.
	broker.mu.Lock()
	broker.publishErr = nil
	broker.mu.Unlock()
	require.NoError(t, relay.Cycle(ctx))
	assert.Equal(t, outbox.StatusSent, rec.Status)
	assert.Len(t, broker.publishedOn(outbox.TopicTicketCreate), 1)
}

func TestCycle_ExhaustedRecordParkedOnDLQ(t *testing.T) {
	broker := newFakeBroker()
	broker.publishErr = errors.New("redis down")
	relay, outboxRepo := setupRelay(broker, Config{BatchSize: 10})
	ctx := context.Background()

	rec := outbox.NewRecord(outbox.TopicTicketCreate, nil)
	rec.MaxAttempts = 2
	require.NoError(t, outboxRepo.Append(ctx, rec))

	require.NoError(t, relay.Cycle(ctx))
	require.Equal(t, outbox.StatusCreated, rec.Status)
	assert.Empty(t, broker.dlq)

	require.NoError(t, relay.Cycle(ctx))
	assert.Equal(t, outbox.StatusFailed, rec.Status)
	require.Len(t, broker.dlq, 1)
	assert.Equal(t, outbox.TopicTicketCreate, broker.dlq[0].topic)
	assert.Equal(t, rec.OperationID.String(), broker.dlq[0].operationID)

	// Failed records never re-enter a batch.
	require.NoError(t, relay.Cycle(ctx))
	assert.Len(t, broker.dlq, 1)
}

func TestCycle_BatchSizeLimit(t *testing.T) {
	broker := newFakeBroker()
	relay, outboxRepo := setupRelay(broker, Config{BatchSize: 2})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, outboxRepo.Append(ctx, outbox.NewRecord(outbox.TopicTicketCreate, nil)))
	}

	require.NoError(t, relay.Cycle(ctx))
	assert.Len(t, broker.publishedOn(outbox.TopicTicketCreate), 2)

	require.NoError(t, relay.Cycle(ctx))
	require.NoError(t, relay.Cycle(ctx))
	assert.Len(t, broker.publishedOn(outbox.TopicTicketCreate), 5, "backlog drains across cycles")
}

// --- groupByTopic Tests ---

func TestGroupByTopic_PreservesOrder(t *testing.T) {
	recs := []*outbox.Record{
		outbox.NewRecord("b", nil),
		outbox.NewRecord("a", nil),
		outbox.NewRecord("b", nil),
		outbox.NewRecord("c", nil),
	}

	groups := groupByTopic(recs)
	require.Len(t, groups, 3)
	assert.Equal(t, "b", groups[0].topic)
	assert.Len(t, groups[0].records, 2)
	assert.Equal(t, "a", groups[1].topic)
	assert.Equal(t, "c", groups[2].topic)
}

package relay

import (
	"context"
	"time"

	"github.com/festivo/ticketing/internal/domain/outbox"
	"github.com/festivo/ticketing/internal/infrastructure/observability"
	redisx "github.com/festivo/ticketing/internal/infrastructure/redis"
	"github.com/festivo/ticketing/internal/service"
	"github.com/festivo/ticketing/pkg/retry"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Broker publishes outbox batches to the message broker, one stream per topic.
type Broker interface {
	PublishBatch(ctx context.Context, topic string, envelopes []redisx.Envelope) error
	PublishToDLQ(ctx context.Context, topic, operationID string, payload map[string]any) error
}

// LeaderLock keeps a single active relay per environment.
type LeaderLock interface {
	Acquire(ctx context.Context) (bool, error)
	Extend(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Relay drains the outbox to the broker. Publishing and marking-sent are
// two separate steps: a crash between them redelivers the batch, which
// consumers tolerate by deduplicating on operation_id.
type Relay struct {
	outboxRepo outbox.Repository
	txManager  service.TransactionManager
	broker     Broker
	lock       LeaderLock
	logger     zerolog.Logger
	metrics    *observability.Metrics

	pollInterval time.Duration
	batchSize    int
	retryCfg     retry.Config
	breakers     map[string]*gobreaker.CircuitBreaker[struct{}]

	leading bool
}

// Config tunes the relay loop.
type Config struct {
	PollInterval   time.Duration
	BatchSize      int
	PublishRetries uint
}

// New creates a relay. lock may be nil when a deployment runs exactly one
// worker and external coordination is unnecessary.
func New(
	outboxRepo outbox.Repository,
	txManager service.TransactionManager,
	broker Broker,
	lock LeaderLock,
	logger zerolog.Logger,
	metrics *observability.Metrics,
	cfg Config,
) *Relay {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	retryCfg := retry.DefaultConfig()
	if cfg.PublishRetries > 0 {
		retryCfg.MaxAttempts = cfg.PublishRetries
	}
	retryCfg.InitialDelay = 100 * time.Millisecond
	retryCfg.MaxDelay = 2 * time.Second

	return &Relay{
		outboxRepo:   outboxRepo,
		txManager:    txManager,
		broker:       broker,
		lock:         lock,
		logger:       logger,
		metrics:      metrics,
		pollInterval: cfg.PollInterval,
		batchSize:    cfg.BatchSize,
		retryCfg:     retryCfg,
		breakers:     make(map[string]*gobreaker.CircuitBreaker[struct{}]),
	}
}

// Run polls the outbox until the context is canceled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()
	defer r.releaseLeadership()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if !r.ensureLeadership(ctx) {
			continue
		}

		start := time.Now()
		if err := r.Cycle(ctx); err != nil {
			r.logger.Error().Err(err).Msg("Outbox relay cycle failed")
		}
		if r.metrics != nil {
			r.metrics.RelayCycleDuration.Observe(time.Since(start).Seconds())
		}
	}
}

// Cycle drains one batch. Records whose topic could not be published stay
// in created state and are retried next cycle; records that exhausted their
// attempts flip to failed and are parked on the dead-letter stream.
func (r *Relay) Cycle(ctx context.Context) error {
	return r.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		records, err := r.outboxRepo.FetchBatch(txCtx, r.batchSize, time.Now().UTC())
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}

		for _, group := range groupByTopic(records) {
			r.publishGroup(ctx, txCtx, group.topic, group.records)
		}
		return nil
	})
}

type topicGroup struct {
	topic   string
	records []*outbox.Record
}

// groupByTopic buckets records per topic, keeping first-seen topic order so
// creation order survives within the batch.
func groupByTopic(records []*outbox.Record) []topicGroup {
	index := make(map[string]int)
	var groups []topicGroup
	for _, rec := range records {
		i, ok := index[rec.Topic]
		if !ok {
			i = len(groups)
			index[rec.Topic] = i
			groups = append(groups, topicGroup{topic: rec.Topic})
		}
		groups[i].records = append(groups[i].records, rec)
	}
	return groups
}

// publishGroup sends one topic's records as a single broker batch. Broker
// I/O runs on the outer context: the DB transaction only brackets the row
// locks, and a publish failure must not poison the whole cycle.
func (r *Relay) publishGroup(ctx, txCtx context.Context, topic string, records []*outbox.Record) {
	ctx, span := otel.Tracer("outbox-relay").Start(ctx, "outbox.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.destination", topic),
			attribute.Int("messaging.batch_size", len(records)),
		))
	defer span.End()

	envelopes := make([]redisx.Envelope, 0, len(records))
	for _, rec := range records {
		envelopes = append(envelopes, redisx.Envelope{
			OperationID: rec.OperationID.String(),
			Payload:     rec.Payload,
		})
	}

	breaker := r.breakerFor(topic)
	_, err := breaker.Execute(func() (struct{}, error) {
		return struct{}{}, retry.Do(ctx, r.retryCfg, func() error {
			return r.broker.PublishBatch(ctx, topic, envelopes)
		})
	})
	if err != nil {
		span.RecordError(err)
		r.logger.Error().Err(err).Str("topic", topic).Int("count", len(records)).
			Msg("Failed to publish outbox batch")
		for _, rec := range records {
			r.failRecord(ctx, txCtx, rec)
		}
		if r.metrics != nil {
			r.metrics.OutboxFailed.WithLabelValues(topic).Add(float64(len(records)))
		}
		return
	}

	ids := make([]int64, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.ID)
	}
	if err := r.outboxRepo.MarkSent(txCtx, ids); err != nil {
		// Published but not marked: the batch will be redelivered next
		// cycle. Consumers dedupe on operation_id.
		r.logger.Error().Err(err).Str("topic", topic).Msg("Failed to mark outbox records sent")
		return
	}
	if r.metrics != nil {
		r.metrics.OutboxPublished.WithLabelValues(topic).Add(float64(len(records)))
	}
}

func (r *Relay) failRecord(ctx, txCtx context.Context, rec *outbox.Record) {
	exhausted := rec.Attempts+1 >= rec.MaxAttempts
	if err := r.outboxRepo.MarkFailed(txCtx, rec.ID); err != nil {
		r.logger.Error().Err(err).Int64("outbox_id", rec.ID).Msg("Failed to record outbox attempt")
		return
	}
	if exhausted {
		r.logger.Error().Int64("outbox_id", rec.ID).Str("topic", rec.Topic).
			Str("operation_id", rec.OperationID.String()).
			Msg("Outbox record exhausted delivery attempts")
		if err := r.broker.PublishToDLQ(ctx, rec.Topic, rec.OperationID.String(), rec.Payload); err != nil {
			r.logger.Error().Err(err).Int64("outbox_id", rec.ID).Msg("Failed to park record on DLQ")
		}
	}
}

func (r *Relay) breakerFor(topic string) *gobreaker.CircuitBreaker[struct{}] {
	if b, ok := r.breakers[topic]; ok {
		return b
	}
	b := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        topic,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
	})
	r.breakers[topic] = b
	return b
}

func (r *Relay) ensureLeadership(ctx context.Context) bool {
	if r.lock == nil {
		return true
	}
	if r.leading {
		ok, err := r.lock.Extend(ctx)
		if err != nil {
			r.logger.Warn().Err(err).Msg("Failed to extend relay leadership")
		}
		if ok {
			return true
		}
		r.leading = false
	}
	ok, err := r.lock.Acquire(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Failed to acquire relay leadership")
		return false
	}
	if ok {
		r.logger.Info().Msg("Acquired relay leadership")
		r.leading = true
	}
	return ok
}

func (r *Relay) releaseLeadership() {
	if r.lock == nil || !r.leading {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.lock.Release(ctx); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to release relay leadership")
	}
}

package relay

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	domainErrors "github.com/festivo/ticketing/internal/domain/errors"
	"github.com/festivo/ticketing/internal/domain/outbox"
	"github.com/festivo/ticketing/internal/infrastructure/observability"
	redisx "github.com/festivo/ticketing/internal/infrastructure/redis"
	"github.com/festivo/ticketing/internal/service"
	"github.com/rs/zerolog"
)

// Handler applies one reply payload. Payloads are deserialized per topic
// before dispatch, so each topic has an explicit struct.
type Handler func(ctx context.Context, payload []byte) error

// NewReplyHandlers maps each reply topic to its typed handler.
func NewReplyHandlers(replySvc *service.ReplyService) map[string]Handler {
	return map[string]Handler{
		outbox.TopicTicketCreateReply: func(ctx context.Context, payload []byte) error {
			var reply service.TicketCreateReply
			if err := json.Unmarshal(payload, &reply); err != nil {
				return domainErrors.NewValidationError("payload", "malformed ticket reply: "+err.Error())
			}
			return replySvc.HandleTicketCreateReply(ctx, reply)
		},
		outbox.TopicMessageSendReply: func(ctx context.Context, payload []byte) error {
			var reply service.MessageSendReply
			if err := json.Unmarshal(payload, &reply); err != nil {
				return domainErrors.NewValidationError("payload", "malformed message reply: "+err.Error())
			}
			return replySvc.HandleMessageSendReply(ctx, reply)
		},
		outbox.TopicCancellationWindow: func(ctx context.Context, payload []byte) error {
			var event service.CancellationWindowEvent
			if err := json.Unmarshal(payload, &event); err != nil {
				return domainErrors.NewValidationError("payload", "malformed cancellation event: "+err.Error())
			}
			return replySvc.HandleCancellationWindow(ctx, event)
		},
	}
}

// Consumer reads one reply stream through a consumer group and feeds the
// topic's handler. Unresolvable messages are acked and dropped; transient
// failures stay pending for redelivery.
type Consumer struct {
	stream  *redisx.StreamConsumer
	topic   string
	handle  Handler
	logger  zerolog.Logger
	metrics *observability.Metrics
}

func NewConsumer(
	stream *redisx.StreamConsumer,
	topic string,
	handle Handler,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) *Consumer {
	return &Consumer{
		stream:  stream,
		topic:   topic,
		handle:  handle,
		logger:  logger.With().Str("topic", topic).Logger(),
		metrics: metrics,
	}
}

const (
	reclaimInterval = 30 * time.Second
	reclaimMinIdle  = time.Minute
	reclaimBatch    = 100
)

// Run consumes until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.stream.CreateGroup(ctx); err != nil {
		return err
	}

	lastReclaim := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if time.Since(lastReclaim) >= reclaimInterval {
			c.reclaimStale(ctx)
			lastReclaim = time.Now()
		}

		streams, err := c.stream.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error().Err(err).Msg("Failed to read reply stream")
			time.Sleep(1 * time.Second)
			continue
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				c.process(ctx, msg.ID, msg.Values)
			}
		}
	}
}

func (c *Consumer) process(ctx context.Context, messageID string, values map[string]any) {
	start := time.Now()

	payload, _ := values["payload"].(string)
	if payload == "" {
		c.logger.Warn().Str("message_id", messageID).Msg("Reply without payload, dropping")
		c.ack(ctx, messageID)
		c.count("dropped")
		return
	}

	err := c.handle(ctx, []byte(payload))
	switch {
	case err == nil:
		c.ack(ctx, messageID)
		c.count("success")
	case isUnresolvable(err):
		// The entity the reply points at does not exist here, or the
		// payload cannot be parsed. Retrying cannot help.
		c.logger.Warn().Err(err).Str("message_id", messageID).Msg("Unresolvable reply, dropping")
		c.ack(ctx, messageID)
		c.count("dropped")
	default:
		// Leave unacked: the pending entry is claimed and retried.
		c.logger.Error().Err(err).Str("message_id", messageID).Msg("Failed to apply reply")
		c.count("error")
	}

	if c.metrics != nil {
		c.metrics.ConsumerProcessingDuration.WithLabelValues(c.topic).Observe(time.Since(start).Seconds())
	}
}

// reclaimStale takes over messages a crashed group member read but never
// acked, so they do not stay pending forever.
func (c *Consumer) reclaimStale(ctx context.Context) {
	ids, err := c.stream.PendingStale(ctx, reclaimMinIdle, reclaimBatch)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to list stale pending replies")
		return
	}
	if len(ids) == 0 {
		return
	}

	messages, err := c.stream.Claim(ctx, reclaimMinIdle, ids)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to claim stale replies")
		return
	}
	c.logger.Warn().Int("count", len(messages)).Msg("Reprocessing stale replies")
	for _, msg := range messages {
		c.process(ctx, msg.ID, msg.Values)
	}
}

func (c *Consumer) ack(ctx context.Context, messageID string) {
	if err := c.stream.Ack(ctx, messageID); err != nil {
		c.logger.Error().Err(err).Str("message_id", messageID).Msg("Failed to ack reply")
	}
}

func (c *Consumer) count(result string) {
	if c.metrics != nil {
		c.metrics.ConsumerMessages.WithLabelValues(c.topic, result).Inc()
	}
}

func isUnresolvable(err error) bool {
	var validationErr *domainErrors.ValidationError
	if errors.As(err, &validationErr) {
		return true
	}
	return errors.Is(err, domainErrors.ErrOrderNotFound) ||
		errors.Is(err, domainErrors.ErrTicketNotFound) ||
		errors.Is(err, domainErrors.ErrMessageNotFound)
}

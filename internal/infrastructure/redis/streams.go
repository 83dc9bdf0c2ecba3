package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Streams carry one event topic each; the stream key is the topic name.
// The dead-letter stream collects outbox records the relay gave up on.
const DLQStream = "outbox:dlq"

// Envelope is one broker message: the operation id for correlation plus the
// serialized event payload.
type Envelope struct {
	OperationID string
	Payload     map[string]any
}

type StreamProducer struct {
	client *redis.Client
}

func NewStreamProducer(client *redis.Client) *StreamProducer {
	return &StreamProducer{client: client}
}

// PublishBatch appends all envelopes to the topic's stream in one pipeline
// round trip. Either the pipeline succeeds as a unit or the caller retries
// the whole batch; consumers dedupe on operation_id.
func (p *StreamProducer) PublishBatch(ctx context.Context, topic string, envelopes []Envelope) error {
	if len(envelopes) == 0 {
		return nil
	}

	pipe := p.client.Pipeline()
	for _, env := range envelopes {
		payload, err := json.Marshal(env.Payload)
		if err != nil {
			return fmt.Errorf("marshal envelope payload: %w", err)
		}
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: topic,
			Values: map[string]any{
				"operation_id": env.OperationID,
				"payload":      string(payload),
				"timestamp":    time.Now().Unix(),
			},
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish batch to %s: %w", topic, err)
	}
	return nil
}

// PublishToDLQ parks an undeliverable record for operators.
func (p *StreamProducer) PublishToDLQ(ctx context.Context, topic, operationID string, payload map[string]any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal DLQ payload: %w", err)
	}
	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: DLQStream,
		Values: map[string]any{
			"topic":        topic,
			"operation_id": operationID,
			"payload":      string(data),
			"timestamp":    time.Now().Unix(),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("publish to DLQ: %w", err)
	}
	return nil
}

type StreamConsumer struct {
	client        *redis.Client
	stream        string
	group         string
	consumer      string
	batchSize     int64
	blockDuration time.Duration
}

func NewStreamConsumer(
	client *redis.Client,
	stream string,
	group string,
	consumer string,
	batchSize int64,
	blockDuration time.Duration,
) *StreamConsumer {
	return &StreamConsumer{
		client:        client,
		stream:        stream,
		group:         group,
		consumer:      consumer,
		batchSize:     batchSize,
		blockDuration: blockDuration,
	}
}

func (c *StreamConsumer) Stream() string {
	return c.stream
}

func (c *StreamConsumer) CreateGroup(ctx context.Context) error {
	// Create stream if it doesn't exist
	const busyGroupMsg = "BUSYGROUP"
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), busyGroupMsg) {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

func (c *StreamConsumer) Read(ctx context.Context) ([]redis.XStream, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.stream, ">"},
		Count:    c.batchSize,
		Block:    c.blockDuration,
	}).Result()

	if err != nil {
		if err == redis.Nil {
			// No new messages
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}

	return streams, nil
}

func (c *StreamConsumer) Ack(ctx context.Context, messageID string) error {
	err := c.client.XAck(ctx, c.stream, c.group, messageID).Err()
	if err != nil {
		return fmt.Errorf("failed to ack message: %w", err)
	}
	return nil
}

// PendingStale lists ids of messages any group member read but left unacked
// for at least minIdle, so a live consumer can claim them.
func (c *StreamConsumer) PendingStale(ctx context.Context, minIdle time.Duration, count int64) ([]string, error) {
	entries, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.stream,
		Group:  c.group,
		Start:  "-",
		End:    "+",
		Count:  count,
		Idle:   minIdle,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list pending entries: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	return ids, nil
}

// Claim takes over messages another consumer read but never acked.
func (c *StreamConsumer) Claim(ctx context.Context, minIdleTime time.Duration, messageIDs []string) ([]redis.XMessage, error) {
	messages, err := c.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   c.stream,
		Group:    c.group,
		Consumer: c.consumer,
		MinIdle:  minIdleTime,
		Messages: messageIDs,
	}).Result()

	if err != nil {
		return nil, fmt.Errorf("failed to claim messages: %w", err)
	}

	return messages, nil
}

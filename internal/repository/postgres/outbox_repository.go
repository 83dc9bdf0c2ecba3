package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/festivo/ticketing/internal/domain/outbox"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OutboxRepository implements outbox.Repository using PostgreSQL. The table
// is append-only: rows are inserted by business transactions and only their
// status columns are ever updated, by the relay.
type OutboxRepository struct {
	pool *pgxpool.Pool
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

func (r *OutboxRepository) db(ctx context.Context) Querier {
	return QuerierFromCtx(ctx, r.pool)
}

// Append inserts a record inside the caller's transaction.
func (r *OutboxRepository) Append(ctx context.Context, record *outbox.Record) error {
	payload, err := json.Marshal(record.Payload)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}
	err = r.db(ctx).QueryRow(ctx,
		`INSERT INTO outbox (operation_id, topic, payload, status, attempts, max_attempts, created_at, available_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		record.OperationID, record.Topic, payload, string(record.Status),
		record.Attempts, record.MaxAttempts, record.CreatedAt, record.AvailableAt,
	).Scan(&record.ID)
	if err != nil {
		return fmt.Errorf("insert outbox record: %w", err)
	}
	return nil
}

// FetchBatch returns relayable records in creation order, skipping rows
// another relay instance has locked.
func (r *OutboxRepository) FetchBatch(ctx context.Context, limit int, now time.Time) ([]*outbox.Record, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db(ctx).Query(ctx,
		`SELECT id, operation_id, topic, payload, status, attempts, max_attempts, created_at, available_at, sent_at
		 FROM outbox
		 WHERE status = 'created' AND (available_at IS NULL OR available_at <= $1)
		 ORDER BY id ASC
		 LIMIT $2
		 FOR UPDATE SKIP LOCKED`, now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch outbox batch: %w", err)
	}
	defer rows.Close()

	var records []*outbox.Record
	for rows.Next() {
		rec := &outbox.Record{}
		var payload []byte
		var status string
		if err := rows.Scan(&rec.ID, &rec.OperationID, &rec.Topic, &payload, &status,
			&rec.Attempts, &rec.MaxAttempts, &rec.CreatedAt, &rec.AvailableAt, &rec.SentAt); err != nil {
			return nil, fmt.Errorf("scan outbox record: %w", err)
		}
		rec.Status = outbox.Status(status)
		if len(payload) > 0 {
			rec.Payload = make(map[string]any)
			if err := json.Unmarshal(payload, &rec.Payload); err != nil {
				return nil, fmt.Errorf("unmarshal outbox payload: %w", err)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// MarkSent flips the given records to sent. The status guard makes marking
// an already-sent id a no-op.
func (r *OutboxRepository) MarkSent(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db(ctx).Exec(ctx,
		`UPDATE outbox SET status = 'sent', sent_at = $1
		 WHERE id = ANY($2) AND status = 'created'`, time.Now().UTC(), ids,
	)
	if err != nil {
		return fmt.Errorf("mark outbox sent: %w", err)
	}
	return nil
}

// MarkFailed counts a delivery attempt and gives the record up once
// attempts reach max_attempts.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id int64) error {
	_, err := r.db(ctx).Exec(ctx,
		`UPDATE outbox SET attempts = attempts + 1,
		        status = CASE WHEN attempts + 1 >= max_attempts THEN 'failed' ELSE 'created' END
		 WHERE id = $1 AND status = 'created'`, id,
	)
	if err != nil {
		return fmt.Errorf("mark outbox failed: %w", err)
	}
	return nil
}

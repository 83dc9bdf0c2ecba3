package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/festivo/ticketing/internal/domain/message"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MessageRepository implements message.Repository using PostgreSQL.
type MessageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

func (r *MessageRepository) db(ctx context.Context) Querier {
	return QuerierFromCtx(ctx, r.pool)
}

// Create inserts a new message.
func (r *MessageRepository) Create(ctx context.Context, m *message.Message) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO messages (uuid, order_id, recipient, kind, body, status, error_payload, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 RETURNING id`,
		m.UUID, m.OrderID, m.Recipient, string(m.Kind), m.Body, string(m.Status),
		m.ErrorPayload, m.CreatedAt, m.UpdatedAt,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// GetByUUID retrieves a message, nil when absent.
func (r *MessageRepository) GetByUUID(ctx context.Context, id uuid.UUID) (*message.Message, error) {
	m := &message.Message{}
	var kind, status string
	err := r.db(ctx).QueryRow(ctx,
		`SELECT id, uuid, order_id, recipient, kind, body, status, error_payload, created_at, updated_at
		 FROM messages WHERE uuid = $1`, id,
	).Scan(&m.ID, &m.UUID, &m.OrderID, &m.Recipient, &kind, &m.Body, &status,
		&m.ErrorPayload, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	m.Kind = message.Kind(kind)
	m.Status = message.Status(status)
	return m, nil
}

// Update persists the delivery status and error payload.
func (r *MessageRepository) Update(ctx context.Context, m *message.Message) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE messages SET status = $1, error_payload = $2, updated_at = $3 WHERE id = $4`,
		string(m.Status), m.ErrorPayload, m.UpdatedAt, m.ID,
	)
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update message: no row for id %d", m.ID)
	}
	return nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainErrors "github.com/festivo/ticketing/internal/domain/errors"
	"github.com/festivo/ticketing/internal/domain/ticket"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres raises 55P03 when a FOR UPDATE wait exceeds lock_timeout.
const pgLockNotAvailable = "55P03"

// TicketRepository implements ticket.Repository using PostgreSQL.
type TicketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository creates a new TicketRepository.
func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

func (r *TicketRepository) db(ctx context.Context) Querier {
	return QuerierFromCtx(ctx, r.pool)
}

// LockTypesByUUIDs resolves ticket types and locks their rows. Ordering by
// id keeps lock acquisition deterministic across concurrent transactions.
func (r *TicketRepository) LockTypesByUUIDs(ctx context.Context, uuids []uuid.UUID) ([]*ticket.Type, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT id, uuid, event_id, name, sale_amount, sale_price, sale_currency, sale_start_at, sale_end_at
		 FROM ticket_types
		 WHERE uuid = ANY($1)
		 ORDER BY id
		 FOR UPDATE`, uuids,
	)
	if err != nil {
		return nil, lockErr(err)
	}
	defer rows.Close()

	var types []*ticket.Type
	for rows.Next() {
		tt := &ticket.Type{}
		if err := rows.Scan(&tt.ID, &tt.UUID, &tt.EventID, &tt.Name, &tt.SaleAmount,
			&tt.SalePrice, &tt.SaleCurrency, &tt.SaleStartAt, &tt.SaleEndAt); err != nil {
			return nil, fmt.Errorf("scan ticket type: %w", err)
		}
		types = append(types, tt)
	}
	if err := rows.Err(); err != nil {
		return nil, lockErr(err)
	}
	return types, nil
}

// lockErr maps a lock wait timeout to the retryable sentinel; everything
// else is wrapped as-is.
func lockErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable {
		return fmt.Errorf("lock ticket types: %w", domainErrors.ErrLockAcquisitionFailed)
	}
	return fmt.Errorf("lock ticket types: %w", err)
}

// ReservedCount sums quantities held against a ticket type: line items of
// paid/completed orders plus created orders whose reservation is still open.
func (r *TicketRepository) ReservedCount(ctx context.Context, ticketTypeID int64, now time.Time) (int, error) {
	var count int
	err := r.db(ctx).QueryRow(ctx,
		`SELECT COALESCE(SUM(li.quantity), 0)
		 FROM order_line_items li
		 JOIN orders o ON o.id = li.order_id
		 WHERE li.ticket_type_id = $1
		   AND (o.status IN ('paid', 'completed')
		        OR (o.status = 'created' AND o.reserved_until >= $2))`,
		ticketTypeID, now,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count reserved tickets: %w", err)
	}
	return count, nil
}

// CreateTicket inserts a pending ticket unit.
func (r *TicketRepository) CreateTicket(ctx context.Context, t *ticket.Ticket) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO tickets
		 (uuid, order_line_item_id, ticket_type_id, owner_id, chain_token_id, chain_address, status, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 RETURNING id`,
		t.UUID, t.OrderLineItemID, t.TicketTypeID, t.OwnerID,
		t.ChainTokenID, t.ChainAddress, string(t.Status), t.CreatedAt, t.UpdatedAt,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}

// GetTicketByUUID retrieves a ticket unit, nil when absent.
func (r *TicketRepository) GetTicketByUUID(ctx context.Context, id uuid.UUID) (*ticket.Ticket, error) {
	t := &ticket.Ticket{}
	var status string
	err := r.db(ctx).QueryRow(ctx,
		`SELECT id, uuid, order_line_item_id, ticket_type_id, owner_id, chain_token_id, chain_address, status, created_at, updated_at
		 FROM tickets WHERE uuid = $1`, id,
	).Scan(&t.ID, &t.UUID, &t.OrderLineItemID, &t.TicketTypeID, &t.OwnerID,
		&t.ChainTokenID, &t.ChainAddress, &status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	t.Status = ticket.Status(status)
	return t, nil
}

// UpdateTicket persists chain fields and status.
func (r *TicketRepository) UpdateTicket(ctx context.Context, t *ticket.Ticket) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE tickets SET chain_token_id = $1, chain_address = $2, status = $3, updated_at = $4
		 WHERE id = $5`,
		t.ChainTokenID, t.ChainAddress, string(t.Status), t.UpdatedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update ticket: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update ticket: no row for id %d", t.ID)
	}
	return nil
}

// CountPendingByOrderID counts not-yet-minted tickets across the order's line items.
func (r *TicketRepository) CountPendingByOrderID(ctx context.Context, orderID int64) (int, error) {
	var count int
	err := r.db(ctx).QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM tickets t
		 JOIN order_line_items li ON li.id = t.order_line_item_id
		 WHERE li.order_id = $1 AND t.status <> 'minted'`, orderID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pending tickets: %w", err)
	}
	return count, nil
}

// OrderIDByTicket resolves the owning order of a ticket unit.
func (r *TicketRepository) OrderIDByTicket(ctx context.Context, ticketID int64) (int64, error) {
	var orderID int64
	err := r.db(ctx).QueryRow(ctx,
		`SELECT li.order_id
		 FROM tickets t
		 JOIN order_line_items li ON li.id = t.order_line_item_id
		 WHERE t.id = $1`, ticketID,
	).Scan(&orderID)
	if err != nil {
		return 0, fmt.Errorf("resolve ticket order: %w", err)
	}
	return orderID, nil
}

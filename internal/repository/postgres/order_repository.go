package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/festivo/ticketing/internal/domain/order"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OrderRepository implements order.Repository using PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) db(ctx context.Context) Querier {
	return QuerierFromCtx(ctx, r.pool)
}

const orderColumns = `id, uuid, market_type, buyer_id, seller_id, sale_price, sale_currency,
	        status, reserved_until, created_at, updated_at`

// Create inserts the order and its line items.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO orders
		 (uuid, market_type, buyer_id, seller_id, sale_price, sale_currency, status, reserved_until, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 RETURNING id`,
		o.UUID, string(o.MarketType), o.BuyerID, o.SellerID, o.SalePrice, o.SaleCurrency,
		string(o.Status), o.ReservedUntil, o.CreatedAt, o.UpdatedAt,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range o.LineItems {
		li := &o.LineItems[i]
		li.OrderID = o.ID
		err := r.db(ctx).QueryRow(ctx,
			`INSERT INTO order_line_items (order_id, ticket_type_id, quantity, unit_price, currency)
			 VALUES ($1,$2,$3,$4,$5)
			 RETURNING id`,
			li.OrderID, li.TicketTypeID, li.Quantity, li.UnitPrice, li.Currency,
		).Scan(&li.ID)
		if err != nil {
			return fmt.Errorf("insert order line item: %w", err)
		}
	}
	return nil
}

// GetByUUID retrieves an order with its line items, nil when absent.
func (r *OrderRepository) GetByUUID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.getOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE uuid = $1`, id)
}

// GetByUUIDForUpdate retrieves an order and locks its row.
func (r *OrderRepository) GetByUUIDForUpdate(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.getOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE uuid = $1 FOR UPDATE`, id)
}

// GetByIDForUpdate retrieves an order by internal id and locks its row.
func (r *OrderRepository) GetByIDForUpdate(ctx context.Context, id int64) (*order.Order, error) {
	return r.getOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

func (r *OrderRepository) getOrder(ctx context.Context, query string, arg any) (*order.Order, error) {
	o := &order.Order{}
	var marketType, status string
	err := r.db(ctx).QueryRow(ctx, query, arg).Scan(
		&o.ID, &o.UUID, &marketType, &o.BuyerID, &o.SellerID, &o.SalePrice, &o.SaleCurrency,
		&status, &o.ReservedUntil, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	o.MarketType = order.MarketType(marketType)
	o.Status = order.Status(status)

	rows, err := r.db(ctx).Query(ctx,
		`SELECT id, order_id, ticket_type_id, quantity, unit_price, currency
		 FROM order_line_items WHERE order_id = $1 ORDER BY id`, o.ID)
	if err != nil {
		return nil, fmt.Errorf("get order line items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var li order.LineItem
		if err := rows.Scan(&li.ID, &li.OrderID, &li.TicketTypeID, &li.Quantity, &li.UnitPrice, &li.Currency); err != nil {
			return nil, fmt.Errorf("scan order line item: %w", err)
		}
		o.LineItems = append(o.LineItems, li)
	}
	return o, rows.Err()
}

// UpdateStatus persists the order status and updated_at.
func (r *OrderRepository) UpdateStatus(ctx context.Context, o *order.Order) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`,
		string(o.Status), o.UpdatedAt, o.ID,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update order status: no row for id %d", o.ID)
	}
	return nil
}

// CreatePayment inserts a payment row for an order.
func (r *OrderRepository) CreatePayment(ctx context.Context, p *order.Payment) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO order_payments (uuid, order_id, provider, status, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 RETURNING id`,
		p.UUID, p.OrderID, p.Provider, string(p.Status), p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert order payment: %w", err)
	}
	return nil
}

// GetPaymentByOrderID returns the most recent payment for an order, nil when none exists.
func (r *OrderRepository) GetPaymentByOrderID(ctx context.Context, orderID int64) (*order.Payment, error) {
	p := &order.Payment{}
	var status string
	err := r.db(ctx).QueryRow(ctx,
		`SELECT id, uuid, order_id, provider, status, created_at, updated_at
		 FROM order_payments WHERE order_id = $1
		 ORDER BY id DESC LIMIT 1`, orderID,
	).Scan(&p.ID, &p.UUID, &p.OrderID, &p.Provider, &status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order payment: %w", err)
	}
	p.Status = order.PaymentStatus(status)
	return p, nil
}

// UpdatePaymentStatus persists the payment status and updated_at.
func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, p *order.Payment) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE order_payments SET status = $1, updated_at = $2 WHERE id = $3`,
		string(p.Status), p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update order payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update order payment: no row for id %d", p.ID)
	}
	return nil
}

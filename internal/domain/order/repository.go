package order

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for order persistence
type Repository interface {
	// Create creates a new order with its line items
	Create(ctx context.Context, order *Order) error

	// GetByUUID retrieves an order with its line items
	GetByUUID(ctx context.Context, id uuid.UUID) (*Order, error)

	// GetByUUIDForUpdate retrieves an order with a row lock for the
	// duration of the enclosing transaction
	GetByUUIDForUpdate(ctx context.Context, id uuid.UUID) (*Order, error)

	// GetByIDForUpdate retrieves an order by internal id with a row lock
	GetByIDForUpdate(ctx context.Context, id int64) (*Order, error)

	// UpdateStatus persists the order status and updated_at
	UpdateStatus(ctx context.Context, order *Order) error

	// CreatePayment creates a pending payment for an order
	CreatePayment(ctx context.Context, payment *Payment) error

	// GetPaymentByOrderID retrieves the most recent payment for an order,
	// nil when none exists
	GetPaymentByOrderID(ctx context.Context, orderID int64) (*Payment, error)

	// UpdatePaymentStatus persists the payment status and updated_at
	UpdatePaymentStatus(ctx context.Context, payment *Payment) error
}

package ticket

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for ticket-type and ticket persistence
type Repository interface {
	// LockTypesByUUIDs resolves the ticket types and acquires row locks on
	// them, ordered by id so concurrent reservations always lock in the
	// same order. Missing uuids shrink the result.
	LockTypesByUUIDs(ctx context.Context, uuids []uuid.UUID) ([]*Type, error)

	// ReservedCount sums the quantity held against a ticket type: line
	// items of paid and completed orders plus created orders whose
	// reservation has not expired at now.
	ReservedCount(ctx context.Context, ticketTypeID int64, now time.Time) (int, error)

	// CreateTicket inserts a pending ticket unit
	CreateTicket(ctx context.Context, t *Ticket) error

	// GetTicketByUUID retrieves a ticket unit
	GetTicketByUUID(ctx context.Context, id uuid.UUID) (*Ticket, error)

	// UpdateTicket persists chain fields and status
	UpdateTicket(ctx context.Context, t *Ticket) error

	// CountPendingByOrderID counts tickets of the order's line items that
	// are not yet minted
	CountPendingByOrderID(ctx context.Context, orderID int64) (int, error)

	// OrderIDByTicket resolves the owning order of a ticket unit
	OrderIDByTicket(ctx context.Context, ticketID int64) (int64, error)
}

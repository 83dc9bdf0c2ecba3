package ticket

import (
	"time"

	"github.com/festivo/ticketing/internal/domain/errors"
	"github.com/google/uuid"
)

// Type is the sellable inventory unit: a capacity-bounded ticket class for
// an event. This service only reads and row-locks ticket types; it never
// mutates them.
type Type struct {
	ID           int64
	UUID         uuid.UUID
	EventID      int64
	Name         string
	SaleAmount   int
	SalePrice    int64 // in cents
	SaleCurrency string
	SaleStartAt  time.Time
	SaleEndAt    time.Time
}

// SaleOpen reports whether the sale window is open at the given instant.
func (t *Type) SaleOpen(now time.Time) bool {
	return !now.Before(t.SaleStartAt) && now.Before(t.SaleEndAt)
}

// Status of an issued ticket unit.
type Status string

const (
	StatusPending Status = "pending"
	StatusMinted  Status = "minted"
	StatusFailed  Status = "failed"
)

// Ticket is one issued unit of an order line item. Chain fields are filled
// in by the minting reply.
type Ticket struct {
	ID              int64
	UUID            uuid.UUID
	OrderLineItemID int64
	TicketTypeID    int64
	OwnerID         int64
	ChainTokenID    *string
	ChainAddress    *string
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewTicket creates a pending ticket for one unit of a line item.
func NewTicket(lineItemID, ticketTypeID, ownerID int64) *Ticket {
	now := time.Now().UTC()
	return &Ticket{
		UUID:            uuid.New(),
		OrderLineItemID: lineItemID,
		TicketTypeID:    ticketTypeID,
		OwnerID:         ownerID,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// MarkMinted records the chain identifiers returned by the minting
// processor. Re-applying the same reply is a no-op.
func (t *Ticket) MarkMinted(tokenID, address string) error {
	if t.Status == StatusMinted {
		return nil
	}
	if t.Status == StatusFailed {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot mint a failed ticket",
			errors.ErrInvalidStateTransition,
		)
	}
	t.ChainTokenID = &tokenID
	t.ChainAddress = &address
	t.Status = StatusMinted
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkFailed records a minting failure. Idempotent.
func (t *Ticket) MarkFailed() {
	if t.Status != StatusPending {
		return
	}
	t.Status = StatusFailed
	t.UpdatedAt = time.Now().UTC()
}

package order

import (
	"time"

	"github.com/festivo/ticketing/internal/domain/errors"
	"github.com/google/uuid"
)

// MarketType distinguishes primary sales (system inventory) from resale.
type MarketType string

const (
	MarketPrimary   MarketType = "primary"
	MarketSecondary MarketType = "secondary"
)

// SystemSellerID marks the platform itself as the seller of primary sales.
const SystemSellerID int64 = 0

// Status represents the order status in the state machine
type Status string

const (
	StatusCreated   Status = "created"
	StatusPaid      Status = "paid"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
)

// Order represents a ticket purchase. While status is created and
// ReservedUntil has not passed, the order holds inventory.
type Order struct {
	ID            int64
	UUID          uuid.UUID
	MarketType    MarketType
	BuyerID       int64
	SellerID      int64
	SalePrice     int64 // in cents
	SaleCurrency  string
	Status        Status
	ReservedUntil time.Time
	LineItems     []LineItem
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// LineItem pins the quantity and unit price of one ticket type within an
// order. Immutable once created.
type LineItem struct {
	ID           int64
	OrderID      int64
	TicketTypeID int64
	Quantity     int
	UnitPrice    int64 // in cents
	Currency     string
}

// PaymentStatus represents the order payment status
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentDeclined PaymentStatus = "declined"
)

// Payment tracks the buyer's payment attempt for an order. It is marked
// paid by the payment-gateway webhook (outside this service) and declined
// when the reservation expires unpaid.
type Payment struct {
	ID        int64
	UUID      uuid.UUID
	OrderID   int64
	Provider  string
	Status    PaymentStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewOrder creates a primary-market order holding inventory until
// reservedUntil.
func NewOrder(buyerID int64, marketType MarketType, salePrice int64, currency string, reservedUntil time.Time) *Order {
	now := time.Now().UTC()
	return &Order{
		UUID:          uuid.New(),
		MarketType:    marketType,
		BuyerID:       buyerID,
		SellerID:      SystemSellerID,
		SalePrice:     salePrice,
		SaleCurrency:  currency,
		Status:        StatusCreated,
		ReservedUntil: reservedUntil,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CanTransitionTo reports whether the status change is legal.
func (o *Order) CanTransitionTo(newStatus Status) bool {
	transitions := map[Status][]Status{
		StatusCreated: {
			StatusPaid,
			StatusCanceled,
		},
		StatusPaid: {
			StatusCompleted,
		},
		StatusCompleted: {}, // Terminal state
		StatusCanceled:  {}, // Terminal state
	}

	allowed, exists := transitions[o.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == newStatus {
			return true
		}
	}
	return false
}

// TransitionTo moves the order to a new status
func (o *Order) TransitionTo(newStatus Status) error {
	if !o.CanTransitionTo(newStatus) {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot transition from "+string(o.Status)+" to "+string(newStatus),
			errors.ErrInvalidStateTransition,
		)
	}
	o.Status = newStatus
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkPaid transitions the order to paid status
func (o *Order) MarkPaid() error {
	return o.TransitionTo(StatusPaid)
}

// MarkCompleted transitions the order to completed status
func (o *Order) MarkCompleted() error {
	return o.TransitionTo(StatusCompleted)
}

// MarkCanceled transitions the order to canceled status
func (o *Order) MarkCanceled() error {
	return o.TransitionTo(StatusCanceled)
}

// IsTerminal checks if the order is in a terminal state
func (o *Order) IsTerminal() bool {
	return o.Status == StatusCompleted || o.Status == StatusCanceled
}

// HoldsInventory reports whether the order counts against capacity at the
// given instant: paid and completed orders always do, created orders only
// while the reservation window is open.
func (o *Order) HoldsInventory(now time.Time) bool {
	switch o.Status {
	case StatusPaid, StatusCompleted:
		return true
	case StatusCreated:
		return !o.ReservedUntil.Before(now)
	default:
		return false
	}
}

// TotalQuantity sums the quantities of all line items.
func (o *Order) TotalQuantity() int {
	total := 0
	for _, li := range o.LineItems {
		total += li.Quantity
	}
	return total
}

// NewPayment creates a pending payment for the order.
func NewPayment(orderID int64, provider string) *Payment {
	now := time.Now().UTC()
	return &Payment{
		UUID:      uuid.New(),
		OrderID:   orderID,
		Provider:  provider,
		Status:    PaymentPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MarkDeclined declines a pending payment. Declining an already-declined
// payment is a no-op; declining a paid payment is an error.
func (p *Payment) MarkDeclined() error {
	switch p.Status {
	case PaymentDeclined:
		return nil
	case PaymentPaid:
		return errors.NewDomainError(
			"invalid_transition",
			"cannot decline a paid payment",
			errors.ErrInvalidStateTransition,
		)
	}
	p.Status = PaymentDeclined
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkPaid marks a pending payment as paid.
func (p *Payment) MarkPaid() error {
	switch p.Status {
	case PaymentPaid:
		return nil
	case PaymentDeclined:
		return errors.NewDomainError(
			"invalid_transition",
			"cannot pay a declined payment",
			errors.ErrInvalidStateTransition,
		)
	}
	p.Status = PaymentPaid
	p.UpdatedAt = time.Now().UTC()
	return nil
}

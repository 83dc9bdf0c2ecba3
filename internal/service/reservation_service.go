package service

import (
	"context"
	"time"

	"github.com/festivo/ticketing/internal/clock"
	domainErrors "github.com/festivo/ticketing/internal/domain/errors"
	"github.com/festivo/ticketing/internal/domain/order"
	"github.com/festivo/ticketing/internal/domain/ticket"
	"github.com/google/uuid"
)

const defaultReservationTTL = 15 * time.Minute

// ReservationService executes the primary-market order-creation transaction.
// Ticket-type rows are the serialization point: they are locked in id order
// for the duration of the transaction, and availability is recomputed under
// the lock so concurrent requests never read stale counts.
type ReservationService struct {
	orderRepo      order.Repository
	ticketRepo     ticket.Repository
	txManager      TransactionManager
	clock          clock.Clock
	reservationTTL time.Duration
}

// NewReservationService creates a new ReservationService.
func NewReservationService(
	orderRepo order.Repository,
	ticketRepo ticket.Repository,
	txManager TransactionManager,
	clk clock.Clock,
	opts ...ReservationOption,
) *ReservationService {
	svc := &ReservationService{
		orderRepo:      orderRepo,
		ticketRepo:     ticketRepo,
		txManager:      txManager,
		clock:          clk,
		reservationTTL: defaultReservationTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type ReservationOption func(*ReservationService)

// WithReservationTTL overrides how long a created order holds inventory.
func WithReservationTTL(d time.Duration) ReservationOption {
	return func(s *ReservationService) {
		if d > 0 {
			s.reservationTTL = d
		}
	}
}

// LineRequest asks for a quantity of one ticket type.
type LineRequest struct {
	TicketTypeUUID uuid.UUID
	Quantity       int
}

// CreateOrderInput holds the input for creating an order.
type CreateOrderInput struct {
	BuyerID    int64
	MarketType order.MarketType
	Lines      []LineRequest
}

// CreateOrder reserves inventory and creates the order in one transaction.
// The request is all-or-nothing: if any line cannot be satisfied the whole
// transaction rolls back and no rows are written.
func (s *ReservationService) CreateOrder(ctx context.Context, in CreateOrderInput) (*order.Order, error) {
	if err := validateCreateOrder(in); err != nil {
		return nil, err
	}

	uuids := make([]uuid.UUID, 0, len(in.Lines))
	qtyByUUID := make(map[uuid.UUID]int, len(in.Lines))
	for _, line := range in.Lines {
		uuids = append(uuids, line.TicketTypeUUID)
		qtyByUUID[line.TicketTypeUUID] = line.Quantity
	}

	var result *order.Order

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		now := s.clock.Now()

		// Resolve and lock the ticket types. The repository locks in id
		// order, so concurrent multi-type orders cannot deadlock.
		types, err := s.ticketRepo.LockTypesByUUIDs(txCtx, uuids)
		if err != nil {
			return err
		}
		if len(types) < len(qtyByUUID) {
			return domainErrors.ErrSaleNotEnabled
		}

		currency := types[0].SaleCurrency
		for _, tt := range types {
			if !tt.SaleOpen(now) {
				return domainErrors.ErrSaleNotEnabled
			}
			if tt.SaleCurrency != currency {
				return domainErrors.NewValidationError("currency", "line items must share a single currency")
			}
		}

		// Re-evaluate counts under the lock. Paid and completed orders
		// always hold inventory; created orders only until reserved_until.
		var totalPrice int64
		for _, tt := range types {
			requested := qtyByUUID[tt.UUID]
			reserved, err := s.ticketRepo.ReservedCount(txCtx, tt.ID, now)
			if err != nil {
				return err
			}
			if requested > tt.SaleAmount-reserved {
				return domainErrors.ErrInventoryUnavailable
			}
			totalPrice += tt.SalePrice * int64(requested)
		}

		o := order.NewOrder(in.BuyerID, in.MarketType, totalPrice, currency, now.Add(s.reservationTTL))
		for _, tt := range types {
			o.LineItems = append(o.LineItems, order.LineItem{
				TicketTypeID: tt.ID,
				Quantity:     qtyByUUID[tt.UUID],
				UnitPrice:    tt.SalePrice,
				Currency:     tt.SaleCurrency,
			})
		}

		if err := s.orderRepo.Create(txCtx, o); err != nil {
			return err
		}

		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func validateCreateOrder(in CreateOrderInput) error {
	if in.BuyerID <= 0 {
		return domainErrors.NewValidationError("buyer_id", "must be positive")
	}
	if in.MarketType != order.MarketPrimary && in.MarketType != order.MarketSecondary {
		return domainErrors.NewValidationError("market_type", "must be primary or secondary")
	}
	if len(in.Lines) == 0 {
		return domainErrors.NewValidationError("lines", "at least one line is required")
	}
	seen := make(map[uuid.UUID]struct{}, len(in.Lines))
	for _, line := range in.Lines {
		if line.Quantity <= 0 {
			return domainErrors.NewValidationError("quantity", "must be positive")
		}
		if _, dup := seen[line.TicketTypeUUID]; dup {
			return domainErrors.NewValidationError("ticket_type_uuid", "duplicate ticket type in request")
		}
		seen[line.TicketTypeUUID] = struct{}{}
	}
	return nil
}

package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/festivo/ticketing/internal/clock"
	domainErrors "github.com/festivo/ticketing/internal/domain/errors"
	"github.com/festivo/ticketing/internal/domain/message"
	"github.com/festivo/ticketing/internal/domain/order"
	"github.com/festivo/ticketing/internal/domain/outbox"
	"github.com/festivo/ticketing/internal/domain/ticket"
	"github.com/google/uuid"
)

// PaymentService starts the payment phase of an order. Beginning payment is
// the point where the order's side effects become durable: the scheduled
// cancellation trigger, the per-unit minting requests and the buyer
// notification are all appended to the outbox in the same transaction, so a
// reservation self-expires even if the client never returns.
type PaymentService struct {
	orderRepo   order.Repository
	ticketRepo  ticket.Repository
	messageRepo message.Repository
	outboxRepo  outbox.Repository
	txManager   TransactionManager
	encryptor   Encryptor
	clock       clock.Clock
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	orderRepo order.Repository,
	ticketRepo ticket.Repository,
	messageRepo message.Repository,
	outboxRepo outbox.Repository,
	txManager TransactionManager,
	encryptor Encryptor,
	clk clock.Clock,
) *PaymentService {
	return &PaymentService{
		orderRepo:   orderRepo,
		ticketRepo:  ticketRepo,
		messageRepo: messageRepo,
		outboxRepo:  outboxRepo,
		txManager:   txManager,
		encryptor:   encryptor,
		clock:       clk,
	}
}

// BeginPaymentInput holds the input for starting payment on an order.
type BeginPaymentInput struct {
	OrderUUID uuid.UUID
	Provider  string
	// Recipient for the order-confirmation notification; no message is
	// created when empty.
	NotifyRecipient string
}

// BeginPayment creates a pending payment for the order and appends the
// outbox rows the downstream processors act on. Calling it again for the
// same order returns the existing payment without new side effects.
func (s *PaymentService) BeginPayment(ctx context.Context, in BeginPaymentInput) (*order.Payment, error) {
	if in.Provider == "" {
		return nil, domainErrors.NewValidationError("provider", "cannot be empty")
	}

	var result *order.Payment

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		o, err := s.orderRepo.GetByUUIDForUpdate(txCtx, in.OrderUUID)
		if err != nil {
			return err
		}
		if o == nil {
			return domainErrors.ErrOrderNotFound
		}

		existing, err := s.orderRepo.GetPaymentByOrderID(txCtx, o.ID)
		if err != nil {
			return err
		}
		if existing != nil && existing.Status != order.PaymentDeclined {
			result = existing
			return nil
		}

		if o.Status != order.StatusCreated {
			return domainErrors.NewDomainError(
				"invalid_transition",
				"payment can only begin on a created order",
				domainErrors.ErrInvalidStateTransition,
			)
		}

		now := s.clock.Now()
		if o.ReservedUntil.Before(now) {
			return domainErrors.ErrReservationExpired
		}

		p := order.NewPayment(o.ID, in.Provider)
		if err := s.orderRepo.CreatePayment(txCtx, p); err != nil {
			return err
		}

		// Reservation expiry trigger, held back by the relay until the
		// reservation window closes.
		if err := s.outboxRepo.Append(txCtx, outbox.NewScheduledRecord(
			outbox.TopicCancellationWindow,
			map[string]any{
				"order_uuid":   o.UUID.String(),
				"payment_uuid": p.UUID.String(),
			},
			o.ReservedUntil,
		)); err != nil {
			return err
		}

		if err := s.enqueueTicketMints(txCtx, o, in.Provider); err != nil {
			return err
		}

		if in.NotifyRecipient != "" {
			if err := s.enqueueConfirmation(txCtx, o, in.NotifyRecipient); err != nil {
				return err
			}
		}

		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// enqueueTicketMints creates one pending ticket row and one minting request
// per unit of every line item.
func (s *PaymentService) enqueueTicketMints(ctx context.Context, o *order.Order, providerID string) error {
	for _, li := range o.LineItems {
		for i := 0; i < li.Quantity; i++ {
			t := ticket.NewTicket(li.ID, li.TicketTypeID, o.BuyerID)
			if err := s.ticketRepo.CreateTicket(ctx, t); err != nil {
				return err
			}

			holder, err := json.Marshal(map[string]any{
				"ticket_uuid": t.UUID.String(),
				"owner_id":    o.BuyerID,
			})
			if err != nil {
				return fmt.Errorf("marshal holder payload: %w", err)
			}
			encrypted, err := s.encryptor.Encrypt(ctx, holder, providerID)
			if err != nil {
				return fmt.Errorf("encrypt holder payload: %w", err)
			}

			if err := s.outboxRepo.Append(ctx, outbox.NewRecord(
				outbox.TopicTicketCreate,
				map[string]any{
					"ticket_uuid":    t.UUID.String(),
					"order_uuid":     o.UUID.String(),
					"ticket_type_id": li.TicketTypeID,
					"holder":         base64.StdEncoding.EncodeToString(encrypted),
				},
			)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *PaymentService) enqueueConfirmation(ctx context.Context, o *order.Order, recipient string) error {
	m := message.NewMessage(&o.ID, recipient, message.KindSMS,
		fmt.Sprintf("Your order %s is reserved until %s.", o.UUID, o.ReservedUntil.Format("15:04 MST")))
	if err := s.messageRepo.Create(ctx, m); err != nil {
		return err
	}
	return s.outboxRepo.Append(ctx, outbox.NewRecord(
		outbox.TopicMessageSend,
		map[string]any{
			"message_uuid": m.UUID.String(),
			"recipient":    m.Recipient,
			"kind":         string(m.Kind),
			"body":         m.Body,
		},
	))
}

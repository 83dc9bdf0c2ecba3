package service

import (
	"context"

	domainErrors "github.com/festivo/ticketing/internal/domain/errors"
	"github.com/festivo/ticketing/internal/domain/message"
	"github.com/festivo/ticketing/internal/domain/order"
	"github.com/festivo/ticketing/internal/domain/outbox"
	"github.com/festivo/ticketing/internal/domain/ticket"
	"github.com/google/uuid"
)

// TicketCreateReply is the minting processor's result for one ticket unit.
type TicketCreateReply struct {
	OperationID uuid.UUID `json:"operation_id"`
	TicketUUID  uuid.UUID `json:"ticket_uuid"`
	TokenID     string    `json:"token_id"`
	Address     string    `json:"address"`
	Error       string    `json:"error,omitempty"`
}

// MessageSendReply is the gateway's delivery result for one message.
type MessageSendReply struct {
	OperationID  uuid.UUID `json:"operation_id"`
	MessageUUID  uuid.UUID `json:"message_uuid"`
	Status       string    `json:"status"`
	ErrorPayload *string   `json:"error_payload,omitempty"`
}

// CancellationWindowEvent is the self-scheduled reservation-expiry trigger.
type CancellationWindowEvent struct {
	OperationID uuid.UUID `json:"operation_id"`
	OrderUUID   uuid.UUID `json:"order_uuid"`
	PaymentUUID uuid.UUID `json:"payment_uuid"`
}

// ReplyService applies asynchronous processor results back onto orders,
// tickets and messages. Every handler runs one transaction and is
// idempotent: transitions are checked before they are applied, so broker
// redelivery cannot corrupt state.
type ReplyService struct {
	orderRepo   order.Repository
	ticketRepo  ticket.Repository
	messageRepo message.Repository
	outboxRepo  outbox.Repository
	txManager   TransactionManager
}

// NewReplyService creates a new ReplyService.
func NewReplyService(
	orderRepo order.Repository,
	ticketRepo ticket.Repository,
	messageRepo message.Repository,
	outboxRepo outbox.Repository,
	txManager TransactionManager,
) *ReplyService {
	return &ReplyService{
		orderRepo:   orderRepo,
		ticketRepo:  ticketRepo,
		messageRepo: messageRepo,
		outboxRepo:  outboxRepo,
		txManager:   txManager,
	}
}

// HandleTicketCreateReply writes the returned chain identifiers onto the
// ticket and completes the order once it is paid and fully minted.
func (s *ReplyService) HandleTicketCreateReply(ctx context.Context, reply TicketCreateReply) error {
	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		t, err := s.ticketRepo.GetTicketByUUID(txCtx, reply.TicketUUID)
		if err != nil {
			return err
		}
		if t == nil {
			return domainErrors.ErrTicketNotFound
		}

		if reply.Error != "" {
			t.MarkFailed()
			return s.ticketRepo.UpdateTicket(txCtx, t)
		}

		if err := t.MarkMinted(reply.TokenID, reply.Address); err != nil {
			return err
		}
		if err := s.ticketRepo.UpdateTicket(txCtx, t); err != nil {
			return err
		}

		orderID, err := s.ticketRepo.OrderIDByTicket(txCtx, t.ID)
		if err != nil {
			return err
		}
		o, err := s.orderRepo.GetByIDForUpdate(txCtx, orderID)
		if err != nil {
			return err
		}
		if o == nil {
			return domainErrors.ErrOrderNotFound
		}
		if o.Status != order.StatusPaid {
			return nil
		}

		pending, err := s.ticketRepo.CountPendingByOrderID(txCtx, o.ID)
		if err != nil {
			return err
		}
		if pending > 0 {
			return nil
		}

		if err := o.MarkCompleted(); err != nil {
			return err
		}
		if err := s.orderRepo.UpdateStatus(txCtx, o); err != nil {
			return err
		}
		return s.outboxRepo.Append(txCtx, outbox.NewRecord(
			outbox.TopicOrderCompleted,
			map[string]any{"order_uuid": o.UUID.String()},
		))
	})
}

// HandleMessageSendReply updates the message delivery status, keeping the
// error payload when the gateway reported a failure.
func (s *ReplyService) HandleMessageSendReply(ctx context.Context, reply MessageSendReply) error {
	status := message.Status(reply.Status)
	switch status {
	case message.StatusSent, message.StatusDelivered, message.StatusError:
	default:
		return domainErrors.NewValidationError("status", "unknown delivery status "+reply.Status)
	}

	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		m, err := s.messageRepo.GetByUUID(txCtx, reply.MessageUUID)
		if err != nil {
			return err
		}
		if m == nil {
			return domainErrors.ErrMessageNotFound
		}
		m.ApplyDeliveryResult(status, reply.ErrorPayload)
		return s.messageRepo.Update(txCtx, m)
	})
}

// HandleCancellationWindow fires when a reservation window closes. An order
// that was paid in the meantime is left alone; an order still in created is
// canceled and its pending payment declined. Redelivery finds the order
// already canceled and does nothing.
func (s *ReplyService) HandleCancellationWindow(ctx context.Context, event CancellationWindowEvent) error {
	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		o, err := s.orderRepo.GetByUUIDForUpdate(txCtx, event.OrderUUID)
		if err != nil {
			return err
		}
		if o == nil {
			return domainErrors.ErrOrderNotFound
		}
		if o.Status != order.StatusCreated {
			// Paid, completed or already canceled: the timer lost the race.
			return nil
		}

		if err := o.MarkCanceled(); err != nil {
			return err
		}
		if err := s.orderRepo.UpdateStatus(txCtx, o); err != nil {
			return err
		}

		p, err := s.orderRepo.GetPaymentByOrderID(txCtx, o.ID)
		if err != nil {
			return err
		}
		if p != nil && p.Status == order.PaymentPending {
			if err := p.MarkDeclined(); err != nil {
				return err
			}
			if err := s.orderRepo.UpdatePaymentStatus(txCtx, p); err != nil {
				return err
			}
		}

		return s.outboxRepo.Append(txCtx, outbox.NewRecord(
			outbox.TopicOrderCanceled,
			map[string]any{
				"order_uuid": o.UUID.String(),
				"reason":     "reservation_expired",
			},
		))
	})
}

package message

import (
	"time"

	"github.com/google/uuid"
)

// Kind of outbound notification.
type Kind string

const (
	KindSMS   Kind = "sms"
	KindEmail Kind = "email"
)

// Status follows the delivery lifecycle reported by the gateway replies.
type Status string

const (
	StatusCreated   Status = "created"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusError     Status = "error"
)

// Message is an outbound notification whose delivery result arrives
// asynchronously on the message reply topic.
type Message struct {
	ID           int64
	UUID         uuid.UUID
	OrderID      *int64
	Recipient    string
	Kind         Kind
	Body         string
	Status       Status
	ErrorPayload *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewMessage creates a message pending dispatch.
func NewMessage(orderID *int64, recipient string, kind Kind, body string) *Message {
	now := time.Now().UTC()
	return &Message{
		UUID:      uuid.New(),
		OrderID:   orderID,
		Recipient: recipient,
		Kind:      kind,
		Body:      body,
		Status:    StatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ApplyDeliveryResult records the gateway's result. Error payloads are only
// kept for error results. Re-applying the same result is a no-op; a
// delivered message never regresses to sent.
func (m *Message) ApplyDeliveryResult(status Status, errorPayload *string) {
	if m.Status == StatusDelivered && status == StatusSent {
		return
	}
	m.Status = status
	if status == StatusError {
		m.ErrorPayload = errorPayload
	}
	m.UpdatedAt = time.Now().UTC()
}

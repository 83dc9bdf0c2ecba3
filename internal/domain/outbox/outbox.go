package outbox

import (
	"time"

	"github.com/google/uuid"
)

// Topics published by this service. One redis stream per topic; the reply
// topics are consumed by the worker.
const (
	TopicTicketCreate       = "ticket.create"
	TopicMessageSend        = "message.send"
	TopicCancellationWindow = "payment.cancellation-window"
	TopicOrderCanceled      = "order.canceled"
	TopicOrderCompleted     = "order.completed"

	TopicTicketCreateReply = "ticket.create.reply"
	TopicMessageSendReply  = "message.send.reply"
)

type Status string

const (
	StatusCreated Status = "created"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Record is one row of the transactional outbox. Rows are appended inside
// the business transaction that produced them, drained by the relay and
// never deleted.
type Record struct {
	ID          int64
	OperationID uuid.UUID
	Topic       string
	Payload     map[string]any
	Status      Status
	Attempts    int
	MaxAttempts int
	CreatedAt   time.Time
	AvailableAt *time.Time
	SentAt      *time.Time
}

// NewRecord builds a pending record. The operation id is stamped into the
// payload so consumers can correlate replies without an outbox lookup.
func NewRecord(topic string, payload map[string]any) *Record {
	operationID := uuid.New()
	now := time.Now().UTC()

	if payload == nil {
		payload = make(map[string]any)
	}
	payload["operation_id"] = operationID.String()
	payload["created_at"] = now.Format(time.RFC3339Nano)

	return &Record{
		OperationID: operationID,
		Topic:       topic,
		Payload:     payload,
		Status:      StatusCreated,
		Attempts:    0,
		MaxAttempts: 5,
		CreatedAt:   now,
	}
}

// NewScheduledRecord builds a record that the relay must not pick up before
// availableAt. Used for the reservation-expiry cancellation trigger.
func NewScheduledRecord(topic string, payload map[string]any, availableAt time.Time) *Record {
	r := NewRecord(topic, payload)
	at := availableAt.UTC()
	r.AvailableAt = &at
	return r
}

// Eligible reports whether the record may be relayed at the given instant.
func (r *Record) Eligible(now time.Time) bool {
	if r.Status != StatusCreated {
		return false
	}
	return r.AvailableAt == nil || !r.AvailableAt.After(now)
}

// MarkSent transitions the record to sent. Safe to call on an already-sent
// record.
func (r *Record) MarkSent(now time.Time) {
	if r.Status != StatusCreated {
		return
	}
	at := now.UTC()
	r.Status = StatusSent
	r.SentAt = &at
}

// MarkFailed counts a delivery attempt and gives up once attempts reach
// MaxAttempts. A failed record is left for operators; it is never retried.
func (r *Record) MarkFailed() {
	if r.Status != StatusCreated {
		return
	}
	r.Attempts++
	if r.Attempts >= r.MaxAttempts {
		r.Status = StatusFailed
	}
}

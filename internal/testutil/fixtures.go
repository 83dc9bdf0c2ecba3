package testutil

import (
	"time"

	"github.com/festivo/ticketing/internal/domain/message"
	"github.com/festivo/ticketing/internal/domain/order"
	"github.com/festivo/ticketing/internal/domain/outbox"
	"github.com/festivo/ticketing/internal/domain/ticket"
	"github.com/google/uuid"
)

// NewTestTicketType returns a type whose sale window is open around the
// fixed instant the tests' clocks are pinned to (2026-03-14 12:00 UTC), so
// results do not depend on wall-clock time.
func NewTestTicketType(id int64, saleAmount int, priceCents int64, currency string) *ticket.Type {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	return &ticket.Type{
		ID:           id,
		UUID:         uuid.New(),
		EventID:      1,
		Name:         "General Admission",
		SaleAmount:   saleAmount,
		SalePrice:    priceCents,
		SaleCurrency: currency,
		SaleStartAt:  now.Add(-1 * time.Hour),
		SaleEndAt:    now.Add(24 * time.Hour),
	}
}

// NewTestOrder returns a created primary-market order reserving until
// reservedUntil, with one line item per (quantity, unitPrice) pair already
// priced into SalePrice.
func NewTestOrder(buyerID int64, reservedUntil time.Time, lines ...order.LineItem) *order.Order {
	var total int64
	for _, li := range lines {
		total += li.UnitPrice * int64(li.Quantity)
	}
	currency := "EUR"
	if len(lines) > 0 {
		currency = lines[0].Currency
	}
	o := order.NewOrder(buyerID, order.MarketPrimary, total, currency, reservedUntil)
	o.LineItems = lines
	return o
}

// NewTestLine builds a line item for NewTestOrder.
func NewTestLine(ticketTypeID int64, quantity int, unitPriceCents int64) order.LineItem {
	return order.LineItem{
		TicketTypeID: ticketTypeID,
		Quantity:     quantity,
		UnitPrice:    unitPriceCents,
		Currency:     "EUR",
	}
}

// NewTestMessage returns a created SMS notification.
func NewTestMessage(orderID int64) *message.Message {
	return message.NewMessage(&orderID, "+31600000000", message.KindSMS, "test body")
}

// NewTestOutboxRecord returns an immediately eligible record.
func NewTestOutboxRecord(topic string, payload map[string]any) *outbox.Record {
	if payload == nil {
		payload = map[string]any{"k": "v"}
	}
	return outbox.NewRecord(topic, payload)
}

package controller

import (
	"time"

	"github.com/festivo/ticketing/internal/domain/order"
)

// --- Request DTOs ---
// These DTOs handle HTTP/JSON concerns (float64 for money, string for IDs,
// validation tags). Controllers convert these to service layer inputs before
// calling business logic.

// OrderLineRequest asks for a quantity of one ticket type.
type OrderLineRequest struct {
	TicketTypeUUID string `json:"ticket_type_uuid" validate:"required,uuid"`
	Quantity       int    `json:"quantity" validate:"required,gt=0"`
}

// CreateOrderRequest holds the input for creating an order. The buyer comes
// from the bearer token, never from the body.
type CreateOrderRequest struct {
	MarketType string             `json:"market_type" validate:"required,oneof=primary secondary"`
	Lines      []OrderLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// BeginPaymentRequest holds the input for starting payment on an order.
type BeginPaymentRequest struct {
	Provider        string `json:"provider" validate:"required"`
	NotifyRecipient string `json:"notify_recipient,omitempty" validate:"omitempty,max=255"`
}

// --- Response DTOs ---

// LineItemResponse represents one order line in API responses.
type LineItemResponse struct {
	TicketTypeID int64   `json:"ticket_type_id"`
	Quantity     int     `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
	Currency     string  `json:"currency"`
}

// OrderResponse represents an order in API responses.
type OrderResponse struct {
	UUID          string             `json:"uuid"`
	MarketType    string             `json:"market_type"`
	BuyerID       int64              `json:"buyer_id"`
	SalePrice     float64            `json:"sale_price"`
	SaleCurrency  string             `json:"sale_currency"`
	Status        string             `json:"status"`
	ReservedUntil time.Time          `json:"reserved_until"`
	Lines         []LineItemResponse `json:"lines"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// PaymentResponse represents an order payment in API responses.
type PaymentResponse struct {
	UUID      string    `json:"uuid"`
	Provider  string    `json:"provider"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// --- Conversion helpers ---

// FromOrder converts a domain order to API response.
func FromOrder(o *order.Order) *OrderResponse {
	resp := &OrderResponse{
		UUID:          o.UUID.String(),
		MarketType:    string(o.MarketType),
		BuyerID:       o.BuyerID,
		SalePrice:     centsToFloat(o.SalePrice),
		SaleCurrency:  o.SaleCurrency,
		Status:        string(o.Status),
		ReservedUntil: o.ReservedUntil,
		Lines:         make([]LineItemResponse, 0, len(o.LineItems)),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	for _, li := range o.LineItems {
		resp.Lines = append(resp.Lines, LineItemResponse{
			TicketTypeID: li.TicketTypeID,
			Quantity:     li.Quantity,
			UnitPrice:    centsToFloat(li.UnitPrice),
			Currency:     li.Currency,
		})
	}
	return resp
}

// FromPayment converts a domain payment to API response.
func FromPayment(p *order.Payment) *PaymentResponse {
	return &PaymentResponse{
		UUID:      p.UUID.String(),
		Provider:  p.Provider,
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// centsToFloat converts cents to a float currency amount.
func centsToFloat(cents int64) float64 {
	return float64(cents) / 100.0
}

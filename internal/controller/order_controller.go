package controller

import (
	"net/http"

	domainErrors "github.com/festivo/ticketing/internal/domain/errors"
	"github.com/festivo/ticketing/internal/domain/order"
	"github.com/festivo/ticketing/internal/middleware"
	"github.com/festivo/ticketing/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// OrderController handles order-related HTTP requests.
type OrderController struct {
	reservationService *service.ReservationService
	paymentService     *service.PaymentService
	orderRepo          order.Repository
}

// NewOrderController creates a new OrderController.
func NewOrderController(
	reservationService *service.ReservationService,
	paymentService *service.PaymentService,
	orderRepo order.Repository,
) *OrderController {
	return &OrderController{
		reservationService: reservationService,
		paymentService:     paymentService,
		orderRepo:          orderRepo,
	}
}

// Create handles POST /api/v1/orders
func (h *OrderController) Create(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := middleware.GetBuyerID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "missing buyer identity", Code: "auth_required"})
		return
	}

	var req CreateOrderRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	lines := make([]service.LineRequest, 0, len(req.Lines))
	for _, l := range req.Lines {
		id, err := uuid.Parse(l.TicketTypeUUID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid ticket_type_uuid", Code: "invalid_id"})
			return
		}
		lines = append(lines, service.LineRequest{TicketTypeUUID: id, Quantity: l.Quantity})
	}

	o, err := h.reservationService.CreateOrder(r.Context(), service.CreateOrderInput{
		BuyerID:    buyerID,
		MarketType: order.MarketType(req.MarketType),
		Lines:      lines,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, FromOrder(o))
}

// Get handles GET /api/v1/orders/{uuid}
func (h *OrderController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid order uuid", Code: "invalid_id"})
		return
	}

	o, err := h.orderRepo.GetByUUID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if o == nil {
		writeError(w, domainErrors.ErrOrderNotFound)
		return
	}

	writeJSON(w, http.StatusOK, FromOrder(o))
}

// BeginPayment handles POST /api/v1/orders/{uuid}/payment
func (h *OrderController) BeginPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid order uuid", Code: "invalid_id"})
		return
	}

	var req BeginPaymentRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	p, err := h.paymentService.BeginPayment(r.Context(), service.BeginPaymentInput{
		OrderUUID:       id,
		Provider:        req.Provider,
		NotifyRecipient: req.NotifyRecipient,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, FromPayment(p))
}

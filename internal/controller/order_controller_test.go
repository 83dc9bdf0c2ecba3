package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/festivo/ticketing/internal/clock"
	"github.com/festivo/ticketing/internal/middleware"
	"github.com/festivo/ticketing/internal/providers"
	"github.com/festivo/ticketing/internal/service"
	"github.com/festivo/ticketing/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Test Helpers ---

type controllerFixture struct {
	router     *chi.Mux
	orderRepo  *testutil.MockOrderRepository
	ticketRepo *testutil.MockTicketRepository
	now        time.Time
}

func setupController() *controllerFixture {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	orderRepo := testutil.NewMockOrderRepository()
	ticketRepo := testutil.NewMockTicketRepository()
	messageRepo := testutil.NewMockMessageRepository()
	outboxRepo := testutil.NewMockOutboxRepository()
	txManager := testutil.NewMockTransactionManager()
	clk := clock.NewFixed(now)

	reservationSvc := service.NewReservationService(orderRepo, ticketRepo, txManager, clk)
	paymentSvc := service.NewPaymentService(
		orderRepo, ticketRepo, messageRepo, outboxRepo, txManager, providers.NewRegistry(), clk,
	)
	h := NewOrderController(reservationSvc, paymentSvc, orderRepo)

	r := chi.NewRouter()
	r.Post("/api/v1/orders", h.Create)
	r.Get("/api/v1/orders/{uuid}", h.Get)
	r.Post("/api/v1/orders/{uuid}/payment", h.BeginPayment)

	return &controllerFixture{router: r, orderRepo: orderRepo, ticketRepo: ticketRepo, now: now}
}

func (f *controllerFixture) do(t *testing.T, method, path, body string, buyerID int64) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if buyerID > 0 {
		req = req.WithContext(context.WithValue(req.Context(), middleware.BuyerIDKey, buyerID))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

// --- Create Tests ---

func TestCreateOrder_Handler_Success(t *testing.T) {
	f := setupController()
	tt := testutil.NewTestTicketType(1, 100, 2500, "EUR")
	f.ticketRepo.AddType(tt)

	body := `{"market_type":"primary","lines":[{"ticket_type_uuid":"` + tt.UUID.String() + `","quantity":2}]}`
	rec := f.do(t, http.MethodPost, "/api/v1/orders", body, 42)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "created", resp.Status)
	assert.Equal(t, int64(42), resp.BuyerID)
	assert.Equal(t, 50.0, resp.SalePrice)
	assert.Equal(t, f.now.Add(15*time.Minute), resp.ReservedUntil.UTC())
	require.Len(t, resp.Lines, 1)
	assert.Equal(t, 2, resp.Lines[0].Quantity)
}

func TestCreateOrder_Handler_NoBuyer(t *testing.T) {
	f := setupController()

	rec := f.do(t, http.MethodPost, "/api/v1/orders", `{"market_type":"primary","lines":[]}`, 0)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateOrder_Handler_InvalidBody(t *testing.T) {
	f := setupController()

	tests := []struct {
		name string
		body string
	}{
		{"broken json", `{"market_type":`},
		{"missing lines", `{"market_type":"primary"}`},
		{"bad market type", `{"market_type":"auction","lines":[{"ticket_type_uuid":"3f0c8a1e-89b5-4be2-9d5e-3f2b6d1a0c44","quantity":1}]}`},
		{"zero quantity", `{"market_type":"primary","lines":[{"ticket_type_uuid":"3f0c8a1e-89b5-4be2-9d5e-3f2b6d1a0c44","quantity":0}]}`},
		{"malformed uuid", `{"market_type":"primary","lines":[{"ticket_type_uuid":"nope","quantity":1}]}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/v1/orders", tc.body, 42)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateOrder_Handler_SoldOut(t *testing.T) {
	f := setupController()
	tt := testutil.NewTestTicketType(1, 10, 2500, "EUR")
	f.ticketRepo.AddType(tt)
	f.ticketRepo.SetReservedCount(tt.ID, 10)

	body := `{"market_type":"primary","lines":[{"ticket_type_uuid":"` + tt.UUID.String() + `","quantity":1}]}`
	rec := f.do(t, http.MethodPost, "/api/v1/orders", body, 42)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "inventory_unavailable")
}

// --- Get Tests ---

func TestGetOrder_Handler(t *testing.T) {
	f := setupController()
	o := f.orderRepo.Seed(testutil.NewTestOrder(42, f.now.Add(15*time.Minute), testutil.NewTestLine(1, 2, 2500)))

	rec := f.do(t, http.MethodGet, "/api/v1/orders/"+o.UUID.String(), "", 42)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, o.UUID.String(), resp.UUID)
	require.Len(t, resp.Lines, 1)
}

func TestGetOrder_Handler_NotFound(t *testing.T) {
	f := setupController()

	rec := f.do(t, http.MethodGet, "/api/v1/orders/"+uuid.NewString(), "", 42)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOrder_Handler_BadUUID(t *testing.T) {
	f := setupController()

	rec := f.do(t, http.MethodGet, "/api/v1/orders/not-a-uuid", "", 42)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- BeginPayment Tests ---

func TestBeginPayment_Handler_Success(t *testing.T) {
	f := setupController()
	o := f.orderRepo.Seed(testutil.NewTestOrder(42, f.now.Add(15*time.Minute), testutil.NewTestLine(1, 1, 2500)))

	rec := f.do(t, http.MethodPost, "/api/v1/orders/"+o.UUID.String()+"/payment", `{"provider":"chain"}`, 42)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp PaymentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, "chain", resp.Provider)
}

func TestBeginPayment_Handler_MissingProvider(t *testing.T) {
	f := setupController()
	o := f.orderRepo.Seed(testutil.NewTestOrder(42, f.now.Add(15*time.Minute), testutil.NewTestLine(1, 1, 2500)))

	rec := f.do(t, http.MethodPost, "/api/v1/orders/"+o.UUID.String()+"/payment", `{}`, 42)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBeginPayment_Handler_ExpiredReservation(t *testing.T) {
	f := setupController()
	o := f.orderRepo.Seed(testutil.NewTestOrder(42, f.now.Add(-time.Second), testutil.NewTestLine(1, 1, 2500)))

	rec := f.do(t, http.MethodPost, "/api/v1/orders/"+o.UUID.String()+"/payment", `{"provider":"chain"}`, 42)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "reservation_expired")
}

func TestBeginPayment_Handler_UnknownOrder(t *testing.T) {
	f := setupController()

	rec := f.do(t, http.MethodPost, "/api/v1/orders/"+uuid.NewString()+"/payment", `{"provider":"chain"}`, 42)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

package controller

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	domainErrors "github.com/festivo/ticketing/internal/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stringsReader(s string) io.Reader {
	return strings.NewReader(s)
}

func TestWriteError_Mapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"order not found", domainErrors.ErrOrderNotFound, 404, "not_found"},
		{"ticket not found", domainErrors.ErrTicketNotFound, 404, "not_found"},
		{"sale not enabled", domainErrors.ErrSaleNotEnabled, 422, "sale_not_enabled"},
		{"inventory unavailable", domainErrors.ErrInventoryUnavailable, 409, "inventory_unavailable"},
		{"reservation expired", domainErrors.ErrReservationExpired, 409, "reservation_expired"},
		{"invalid transition", domainErrors.ErrInvalidStateTransition, 409, "invalid_state_transition"},
		{"lock timeout", domainErrors.ErrLockAcquisitionFailed, 503, "busy"},
		{"validation", domainErrors.NewValidationError("quantity", "must be positive"), 400, "validation_error"},
		{"wrapped sentinel", domainErrors.NewDomainError("invalid_transition", "nope", domainErrors.ErrInvalidStateTransition), 409, "invalid_state_transition"},
		{"unknown", errors.New("boom"), 500, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Code)
		})
	}
}

func TestWriteError_InternalHidesDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, errors.New("pq: duplicate key value violates unique constraint"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "internal server error", resp.Error)
}

func TestDecodeAndValidate(t *testing.T) {
	valid := `{"market_type":"primary","lines":[{"ticket_type_uuid":"3f0c8a1e-89b5-4be2-9d5e-3f2b6d1a0c44","quantity":2}]}`
	req := httptest.NewRequest("POST", "/orders", stringsReader(valid))
	var dst CreateOrderRequest
	require.NoError(t, decodeAndValidate(req, &dst))
	assert.Equal(t, "primary", dst.MarketType)

	invalidJSON := `{"market_type":`
	req = httptest.NewRequest("POST", "/orders", stringsReader(invalidJSON))
	err := decodeAndValidate(req, &CreateOrderRequest{})
	var validationErr *domainErrors.ValidationError
	assert.True(t, errors.As(err, &validationErr))

	badMarket := `{"market_type":"auction","lines":[{"ticket_type_uuid":"3f0c8a1e-89b5-4be2-9d5e-3f2b6d1a0c44","quantity":1}]}`
	req = httptest.NewRequest("POST", "/orders", stringsReader(badMarket))
	err = decodeAndValidate(req, &CreateOrderRequest{})
	assert.True(t, errors.As(err, &validationErr))

	noLines := `{"market_type":"primary","lines":[]}`
	req = httptest.NewRequest("POST", "/orders", stringsReader(noLines))
	err = decodeAndValidate(req, &CreateOrderRequest{})
	assert.True(t, errors.As(err, &validationErr))
}

package order

import (
	"errors"
	"testing"
	"time"

	domainErrors "github.com/festivo/ticketing/internal/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrder(t *testing.T) {
	until := time.Now().UTC().Add(15 * time.Minute)
	o := NewOrder(42, MarketPrimary, 5000, "EUR", until)

	assert.Equal(t, StatusCreated, o.Status)
	assert.Equal(t, int64(42), o.BuyerID)
	assert.Equal(t, SystemSellerID, o.SellerID)
	assert.Equal(t, MarketPrimary, o.MarketType)
	assert.Equal(t, until, o.ReservedUntil)
	assert.NotEqual(t, o.UUID.String(), "00000000-0000-0000-0000-000000000000")
}

func TestOrder_StateMachine(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		allowed bool
	}{
		{"created to paid", StatusCreated, StatusPaid, true},
		{"created to canceled", StatusCreated, StatusCanceled, true},
		{"created to completed", StatusCreated, StatusCompleted, false},
		{"paid to completed", StatusPaid, StatusCompleted, true},
		{"paid to canceled", StatusPaid, StatusCanceled, false},
		{"completed is terminal", StatusCompleted, StatusCanceled, false},
		{"canceled is terminal", StatusCanceled, StatusPaid, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOrder(1, MarketPrimary, 100, "EUR", time.Now().Add(time.Minute))
			o.Status = tt.from

			err := o.TransitionTo(tt.to)
			if tt.allowed {
				require.NoError(t, err)
				assert.Equal(t, tt.to, o.Status)
			} else {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domainErrors.ErrInvalidStateTransition))
				assert.Equal(t, tt.from, o.Status)
			}
		})
	}
}

func TestOrder_HoldsInventory(t *testing.T) {
	now := time.Now().UTC()
	o := NewOrder(1, MarketPrimary, 100, "EUR", now.Add(10*time.Minute))

	assert.True(t, o.HoldsInventory(now), "created order within window holds inventory")
	assert.True(t, o.HoldsInventory(o.ReservedUntil), "boundary instant still holds")
	assert.False(t, o.HoldsInventory(o.ReservedUntil.Add(time.Second)), "expired created order releases")

	require.NoError(t, o.MarkPaid())
	assert.True(t, o.HoldsInventory(o.ReservedUntil.Add(time.Hour)), "paid order holds regardless of window")

	require.NoError(t, o.MarkCompleted())
	assert.True(t, o.HoldsInventory(o.ReservedUntil.Add(time.Hour)))

	canceled := NewOrder(1, MarketPrimary, 100, "EUR", now.Add(10*time.Minute))
	require.NoError(t, canceled.MarkCanceled())
	assert.False(t, canceled.HoldsInventory(now))
}

func TestOrder_TotalQuantity(t *testing.T) {
	o := NewOrder(1, MarketPrimary, 100, "EUR", time.Now().Add(time.Minute))
	o.LineItems = []LineItem{
		{TicketTypeID: 1, Quantity: 2},
		{TicketTypeID: 2, Quantity: 3},
	}
	assert.Equal(t, 5, o.TotalQuantity())
}

func TestPayment_MarkDeclined(t *testing.T) {
	p := NewPayment(1, "chain")
	require.Equal(t, PaymentPending, p.Status)

	require.NoError(t, p.MarkDeclined())
	assert.Equal(t, PaymentDeclined, p.Status)

	// Re-declining is a no-op.
	require.NoError(t, p.MarkDeclined())
	assert.Equal(t, PaymentDeclined, p.Status)
}

func TestPayment_MarkDeclined_PaidConflict(t *testing.T) {
	p := NewPayment(1, "chain")
	require.NoError(t, p.MarkPaid())

	err := p.MarkDeclined()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainErrors.ErrInvalidStateTransition))
	assert.Equal(t, PaymentPaid, p.Status)
}

func TestPayment_MarkPaid_Idempotent(t *testing.T) {
	p := NewPayment(1, "chain")
	require.NoError(t, p.MarkPaid())
	require.NoError(t, p.MarkPaid())
	assert.Equal(t, PaymentPaid, p.Status)

	declined := NewPayment(1, "chain")
	require.NoError(t, declined.MarkDeclined())
	require.Error(t, declined.MarkPaid())
}

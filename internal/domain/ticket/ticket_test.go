package ticket

import (
	"errors"
	"testing"
	"time"

	domainErrors "github.com/festivo/ticketing/internal/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestType_SaleOpen(t *testing.T) {
	now := time.Now().UTC()
	tt := &Type{
		SaleStartAt: now.Add(-time.Hour),
		SaleEndAt:   now.Add(time.Hour),
	}

	assert.True(t, tt.SaleOpen(now))
	assert.True(t, tt.SaleOpen(tt.SaleStartAt), "sale opens at start instant")
	assert.False(t, tt.SaleOpen(tt.SaleEndAt), "sale closed at end instant")
	assert.False(t, tt.SaleOpen(tt.SaleStartAt.Add(-time.Second)))
}

func TestTicket_MarkMinted(t *testing.T) {
	tk := NewTicket(1, 2, 3)
	require.Equal(t, StatusPending, tk.Status)

	require.NoError(t, tk.MarkMinted("token-1", "0xabc"))
	assert.Equal(t, StatusMinted, tk.Status)
	require.NotNil(t, tk.ChainTokenID)
	assert.Equal(t, "token-1", *tk.ChainTokenID)
	require.NotNil(t, tk.ChainAddress)
	assert.Equal(t, "0xabc", *tk.ChainAddress)

	// Redelivered reply: no-op, chain fields untouched.
	require.NoError(t, tk.MarkMinted("token-2", "0xdef"))
	assert.Equal(t, "token-1", *tk.ChainTokenID)
}

func TestTicket_MarkMinted_AfterFailure(t *testing.T) {
	tk := NewTicket(1, 2, 3)
	tk.MarkFailed()
	require.Equal(t, StatusFailed, tk.Status)

	err := tk.MarkMinted("token-1", "0xabc")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainErrors.ErrInvalidStateTransition))
}

func TestTicket_MarkFailed_Idempotent(t *testing.T) {
	tk := NewTicket(1, 2, 3)
	tk.MarkFailed()
	tk.MarkFailed()
	assert.Equal(t, StatusFailed, tk.Status)

	minted := NewTicket(1, 2, 3)
	require.NoError(t, minted.MarkMinted("token", "addr"))
	minted.MarkFailed()
	assert.Equal(t, StatusMinted, minted.Status, "minted ticket cannot fail afterwards")
}

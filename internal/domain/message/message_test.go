package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	orderID := int64(7)
	m := NewMessage(&orderID, "+31600000000", KindSMS, "hello")

	assert.Equal(t, StatusCreated, m.Status)
	assert.Equal(t, KindSMS, m.Kind)
	require.NotNil(t, m.OrderID)
	assert.Equal(t, orderID, *m.OrderID)
	assert.Nil(t, m.ErrorPayload)
}

func TestMessage_ApplyDeliveryResult(t *testing.T) {
	m := NewMessage(nil, "a@b.c", KindEmail, "hello")

	m.ApplyDeliveryResult(StatusSent, nil)
	assert.Equal(t, StatusSent, m.Status)

	m.ApplyDeliveryResult(StatusDelivered, nil)
	assert.Equal(t, StatusDelivered, m.Status)

	// Late "sent" after "delivered" must not regress.
	m.ApplyDeliveryResult(StatusSent, nil)
	assert.Equal(t, StatusDelivered, m.Status)
}

func TestMessage_ApplyDeliveryResult_Error(t *testing.T) {
	m := NewMessage(nil, "a@b.c", KindEmail, "hello")

	payload := `{"code":"rejected"}`
	m.ApplyDeliveryResult(StatusError, &payload)
	assert.Equal(t, StatusError, m.Status)
	require.NotNil(t, m.ErrorPayload)
	assert.Equal(t, payload, *m.ErrorPayload)

	// Non-error results leave the stored payload alone.
	m.ApplyDeliveryResult(StatusSent, nil)
	assert.Equal(t, StatusSent, m.Status)
	assert.NotNil(t, m.ErrorPayload)
}

func TestMessage_ApplyDeliveryResult_Idempotent(t *testing.T) {
	m := NewMessage(nil, "a@b.c", KindEmail, "hello")
	m.ApplyDeliveryResult(StatusDelivered, nil)
	m.ApplyDeliveryResult(StatusDelivered, nil)
	assert.Equal(t, StatusDelivered, m.Status)
}

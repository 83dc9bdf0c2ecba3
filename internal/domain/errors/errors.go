package errors

import (
	"errors"
	"fmt"
)

var (
	// Order errors
	ErrOrderNotFound          = errors.New("order not found")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrReservationExpired     = errors.New("reservation expired")
	ErrPaymentNotFound        = errors.New("order payment not found")

	// Inventory errors
	ErrSaleNotEnabled        = errors.New("sale not enabled for ticket type")
	ErrInventoryUnavailable  = errors.New("not enough tickets available")
	ErrLockAcquisitionFailed = errors.New("failed to acquire inventory lock")

	// Ticket errors
	ErrTicketNotFound     = errors.New("ticket not found")
	ErrTicketTypeNotFound = errors.New("ticket type not found")

	// Message errors
	ErrMessageNotFound = errors.New("message not found")

	// Outbox errors
	ErrOutboxRecordNotFound = errors.New("outbox record not found")

	// Encryption errors
	ErrEncryptionProviderNotFound = errors.New("encryption provider not found")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidInput     = errors.New("invalid input")
)

// DomainError wraps errors with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

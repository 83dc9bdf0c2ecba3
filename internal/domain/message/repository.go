package message

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for message persistence
type Repository interface {
	// Create inserts a new message
	Create(ctx context.Context, m *Message) error

	// GetByUUID retrieves a message
	GetByUUID(ctx context.Context, id uuid.UUID) (*Message, error)

	// Update persists the delivery status and error payload
	Update(ctx context.Context, m *Message) error
}

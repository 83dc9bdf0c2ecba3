package service

import "context"

// TransactionManager defines the interface for transaction management.
// Services use this to wrap multiple repository operations in a single transaction.
type TransactionManager interface {
	// WithTransaction executes the given function within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	// Otherwise, it is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Encryptor encrypts personally identifiable payload fields before they are
// written into outbox payloads. Key management lives in a separate service;
// this port treats it as a pure function.
type Encryptor interface {
	Encrypt(ctx context.Context, payload []byte, providerID string) ([]byte, error)
}

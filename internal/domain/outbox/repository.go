package outbox

import (
	"context"
	"time"
)

type Repository interface {
	// Append inserts a new record. It must run inside the same transaction
	// as the business mutation it describes.
	Append(ctx context.Context, record *Record) error

	// FetchBatch returns created records whose available_at has passed,
	// oldest first, locked against concurrent relays.
	FetchBatch(ctx context.Context, limit int, now time.Time) ([]*Record, error)

	// MarkSent marks the given records as sent. Already-sent ids are a no-op.
	MarkSent(ctx context.Context, ids []int64) error

	// MarkFailed counts a failed delivery attempt and flips the record to
	// failed once max attempts is reached.
	MarkFailed(ctx context.Context, id int64) error
}

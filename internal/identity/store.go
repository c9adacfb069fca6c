package identity

import "context"

// Store is the durable identity mapping. Implementations must return
// ErrNotFound for clean misses and wrap every other failure so that
// errors.Is(err, ErrUnavailable) holds.
type Store interface {
	// FindByTelegramID looks up the record owned by a platform user id.
	FindByTelegramID(ctx context.Context, telegramID int64) (Identity, error)

	// FindByUsername looks up by handle. Username uniqueness is advisory:
	// when stale duplicates exist the lowest-id row wins.
	FindByUsername(ctx context.Context, username string) (Identity, error)

	// FindByFirstName looks up by exact first name. matches is the total
	// number of rows sharing the name; when it is greater than one the
	// returned record is deterministically the lowest-id row.
	FindByFirstName(ctx context.Context, firstName string) (rec Identity, matches int, err error)

	// Create inserts a new record with counters at zero.
	Create(ctx context.Context, rec NewIdentity) (Identity, error)

	// ClaimPlaceholder attaches telegramID and profile fields to an existing
	// placeholder row (telegram_id IS NULL) matching username.
	ClaimPlaceholder(ctx context.Context, username string, rec NewIdentity) (Identity, error)

	// UpdateUsername overwrites the handle of a row (identity drift repair).
	UpdateUsername(ctx context.Context, id int64, username string) (Identity, error)

	// Increment adds one to a single counter of a single row.
	Increment(ctx context.Context, id int64, counter Counter) error

	// TopReceived returns up to limit records ordered by received count
	// descending, id ascending.
	TopReceived(ctx context.Context, limit int) ([]Identity, error)
}

package appreciation

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk-2002/telegram-bot/internal/identity"
)

// PartialError reports that the sender-side increment was applied but the
// target-side one failed. The applied increment is not rolled back; the two
// writes are deliberately independent single-row updates.
type PartialError struct {
	SenderID int64
	TargetID int64
	Err      error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("ledger partially applied (sender %d counted, target %d not): %v",
		e.SenderID, e.TargetID, e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// IsPartial reports whether err is a half-applied ledger update.
func IsPartial(err error) bool {
	var pe *PartialError
	return errors.As(err, &pe)
}

// Ledger applies the paired appreciation increments.
type Ledger struct {
	store identity.Store
}

func NewLedger(store identity.Store) *Ledger {
	return &Ledger{store: store}
}

// Apply adds one to the sender's given count, then one to the target's
// received count. The sender write always goes first; a failure before it
// returns a plain error, a failure after it returns *PartialError.
func (l *Ledger) Apply(ctx context.Context, sender, target identity.Identity) error {
	if err := l.store.Increment(ctx, sender.ID, identity.CounterGiven); err != nil {
		return fmt.Errorf("sender increment: %w", err)
	}
	if err := l.store.Increment(ctx, target.ID, identity.CounterReceived); err != nil {
		return &PartialError{SenderID: sender.ID, TargetID: target.ID, Err: err}
	}
	return nil
}

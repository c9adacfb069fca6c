// Package identity defines the durable participant record and the store
// contract the appreciation engine runs against.
package identity

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Counter names accepted by Store.Increment.
type Counter string

const (
	CounterGiven    Counter = "given_count"
	CounterReceived Counter = "received_count"
)

var (
	// ErrNotFound means no identity matched the lookup key.
	ErrNotFound = errors.New("identity not found")
	// ErrUnavailable means the store could not be reached; distinct from a
	// clean miss so callers can report it differently.
	ErrUnavailable = errors.New("identity store unavailable")
)

// Identity is one chat participant and their appreciation counters.
//
// TelegramID is nil for placeholder rows minted by the create-on-miss
// resolution policy; such rows are keyed by username until the real user is
// seen, at which point registration claims the row and fills the id in.
type Identity struct {
	ID            int64
	TelegramID    *int64
	Username      string
	FirstName     string
	LastName      string
	IsBot         bool
	GivenCount    int64
	ReceivedCount int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewIdentity carries the fields needed to create a record. TelegramID may be
// nil for placeholders.
type NewIdentity struct {
	TelegramID *int64
	Username   string
	FirstName  string
	LastName   string
	IsBot      bool
}

// JustCreated reports whether the record was inserted by the call that
// returned it (created and updated stamps still equal).
func (i Identity) JustCreated() bool {
	return !i.CreatedAt.IsZero() && i.CreatedAt.Equal(i.UpdatedAt)
}

// Mention returns the @username form when a username is on file, otherwise
// the first name, otherwise the numeric id.
func (i Identity) Mention() string {
	if u := strings.TrimSpace(i.Username); u != "" {
		return "@" + u
	}
	if n := strings.TrimSpace(i.FirstName); n != "" {
		return n
	}
	if i.TelegramID != nil {
		return strconv.FormatInt(*i.TelegramID, 10)
	}
	return strconv.FormatInt(i.ID, 10)
}

// IsNotFound reports whether err is a clean lookup miss.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

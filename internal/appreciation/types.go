// Package appreciation implements the mention resolution and counter ledger
// engine: extract candidates, bind each to one identity, apply the paired
// given/received increments, and render one reply per candidate.
package appreciation

import (
	"fmt"

	"github.com/vk-2002/telegram-bot/internal/identity"
	"github.com/vk-2002/telegram-bot/internal/mention"
)

// Policy selects how a candidate that misses on lookup is handled.
type Policy int

const (
	// PolicyStrict fails the candidate on a lookup miss.
	PolicyStrict Policy = iota
	// PolicyDriftFallback retries a missed handle against the sender's own
	// record and repairs the stored handle when it matches.
	PolicyDriftFallback
	// PolicyCreateOnMiss mints a placeholder identity for the missed key.
	PolicyCreateOnMiss
)

// ParsePolicy maps a config policy name to a Policy.
func ParsePolicy(name string) (Policy, error) {
	switch name {
	case "strict":
		return PolicyStrict, nil
	case "drift-fallback":
		return PolicyDriftFallback, nil
	case "create-on-miss":
		return PolicyCreateOnMiss, nil
	default:
		return PolicyStrict, fmt.Errorf("unknown resolution policy: %q", name)
	}
}

func (p Policy) String() string {
	switch p {
	case PolicyDriftFallback:
		return "drift-fallback"
	case PolicyCreateOnMiss:
		return "create-on-miss"
	default:
		return "strict"
	}
}

// Status is the terminal state of one candidate.
type Status int

const (
	// StatusAppreciated: both increments applied to an existing target.
	StatusAppreciated Status = iota
	// StatusAppreciatedNew: increments applied to a target created for this
	// candidate under the create-on-miss policy.
	StatusAppreciatedNew
	// StatusHandleUpdated: the drift fallback repaired the sender's stored
	// handle; no increments (the bound record is the sender's own).
	StatusHandleUpdated
	// StatusNotFound: no identity matched under the active policy.
	StatusNotFound
	// StatusSelf: sender referenced themselves; skipped, no increments.
	StatusSelf
	// StatusPartial: the sender-side increment applied but the target-side
	// one failed. Not rolled back.
	StatusPartial
	// StatusError: store failure before any increment was applied.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusAppreciated:
		return "appreciated"
	case StatusAppreciatedNew:
		return "appreciated-new"
	case StatusHandleUpdated:
		return "handle-updated"
	case StatusNotFound:
		return "not-found"
	case StatusSelf:
		return "self"
	case StatusPartial:
		return "partial"
	default:
		return "error"
	}
}

// Outcome is the per-candidate result the notifier renders.
type Outcome struct {
	Candidate mention.Candidate
	Status    Status
	Sender    identity.Identity
	Target    identity.Identity
	// Ambiguous marks a plain-name candidate that matched more than one
	// stored identity; the Target is the deterministic lowest-id pick.
	Ambiguous bool
	Err       error
}

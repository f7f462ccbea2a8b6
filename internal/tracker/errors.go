package tracker

import (
	"errors"

	"github.com/balkashynov/clockin/internal/db"
)

// Error kinds returned by the machine. All of them are expected outcomes
// the caller reacts to; anything else is a storage failure.
var (
	ErrValidation           = errors.New("invalid request")
	ErrNoActiveSession      = errors.New("no active session")
	ErrNoActiveInterruption = errors.New("no active interruption")
	ErrInvalidTransition    = errors.New("invalid transition")

	// ErrNotFound is shared with the store so lookups pass through unchanged.
	ErrNotFound = db.ErrNotFound

	// ErrInvariant means a transition would have left the scope in an
	// illegal state; the transaction is rolled back.
	ErrInvariant = errors.New("session invariant violated")
)

// IsExpected reports whether err is one of the domain outcomes rather than
// a storage failure
func IsExpected(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrNoActiveSession) ||
		errors.Is(err, ErrNoActiveInterruption) ||
		errors.Is(err, ErrInvalidTransition)
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

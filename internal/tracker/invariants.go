package tracker

import (
	"fmt"

	"github.com/balkashynov/clockin/internal/models"
)

// CheckInvariants validates the open sessions of one scope:
//   - at most one session is running
//   - a running interruption points at a paused session of the scope
//   - an interruption is never paused itself (nesting depth one)
//   - every paused session has exactly one running interruption on top
func CheckInvariants(open []models.Session) error {
	if err := checkTransitions(open); err != nil {
		return err
	}

	for _, s := range open {
		if s.Status != models.StatusPaused {
			continue
		}
		refs := 0
		for _, o := range open {
			if o.Status == models.StatusOpen && o.InterruptedSessionID != nil && *o.InterruptedSessionID == s.ID {
				refs++
			}
		}
		if refs != 1 {
			return fmt.Errorf("%w: session #%d is paused with %d running interruptions", ErrInvariant, s.ID, refs)
		}
	}
	return nil
}

// checkTransitions is the subset every transition must leave intact. It
// tolerates a paused session orphaned by older data, which only Start and
// Switch clean up.
func checkTransitions(open []models.Session) error {
	byID := make(map[uint]models.Session, len(open))
	running := 0
	for _, s := range open {
		if s.Status == models.StatusClosed || s.EndedAt != nil {
			return fmt.Errorf("%w: session #%d is listed open but has ended", ErrInvariant, s.ID)
		}
		byID[s.ID] = s
		if s.Status == models.StatusOpen {
			running++
		}
	}
	if running > 1 {
		return fmt.Errorf("%w: %d running sessions in one scope", ErrInvariant, running)
	}

	for _, s := range open {
		if !s.IsInterruption() {
			continue
		}
		if s.Status == models.StatusPaused {
			return fmt.Errorf("%w: interruption #%d is itself interrupted", ErrInvariant, s.ID)
		}
		parent, ok := byID[*s.InterruptedSessionID]
		if !ok || parent.Status != models.StatusPaused {
			return fmt.Errorf("%w: interruption #%d runs without its paused session #%d", ErrInvariant, s.ID, *s.InterruptedSessionID)
		}
	}
	return nil
}

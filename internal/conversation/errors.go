package conversation

import (
	"errors"

	"github.com/diogoviieira/register-track-bot/internal/storage"
)

var (
	// ErrProtocol marks input the current state cannot accept, such as text
	// with no live session or an unknown command.
	ErrProtocol = errors.New("unexpected input")

	// ErrStaleSelection means the entry picked from a captured list no longer
	// exists at commit time.
	ErrStaleSelection = errors.New("stale selection")

	errPanic = errors.New("flow panicked")
)

// classify maps a terminal error to the reason and message shown to the owner.
func classify(err error) (Reason, string) {
	switch {
	case errors.Is(err, ErrStaleSelection):
		return ReasonStaleSelection, "That entry no longer exists. Start again to see the current list."
	case errors.Is(err, storage.ErrNotFound):
		return ReasonNotFound, "Entry not found."
	case errors.Is(err, storage.ErrStorage):
		return ReasonStorage, "Could not reach the database. Nothing was changed, please try again."
	default:
		return ReasonInternal, "Something went wrong. Please start again."
	}
}

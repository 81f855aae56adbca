package ticket

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a ticket id has no stored record.
var ErrNotFound = errors.New("ticket not found")

// ErrStorageUnavailable is returned when the backing store cannot be
// reached after retries. Distinct from ErrNotFound: absence is a valid
// result, unavailability is a failure.
var ErrStorageUnavailable = errors.New("ticket storage unavailable")

// Repository defines data access for tickets. Save and Update are both
// upserts; concurrent writers to the same id resolve last-write-wins.
type Repository interface {
	Save(ctx context.Context, t *Ticket) error
	// Get returns ErrNotFound for an absent id and ErrStorageUnavailable
	// when the backend stays unreachable after bounded retries.
	Get(ctx context.Context, id string) (*Ticket, error)
	Update(ctx context.Context, t *Ticket) error
}

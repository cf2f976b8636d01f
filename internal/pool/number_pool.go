package pool

import (
	"context"

	"raffle-service/internal/model"

	"github.com/google/uuid"
)

// NumberPool is the single source of truth for ticket number state of a
// raffle. Invariant: available ∪ reserved ∪ sold == [1, total_numbers] and the
// three sets are pairwise disjoint, at every point in time.
//
// TryReserve, ConfirmSale and Release are each one atomic unit per raffle.
// Different raffles never contend: the mutual-exclusion domain is the raffle,
// not the pool.
type NumberPool interface {
	// InitRaffle seeds numbers [1, totalNumbers] as available. Idempotent.
	InitRaffle(ctx context.Context, raffleID int, totalNumbers int) error

	// Snapshot returns a consistent point-in-time view, never a torn read
	// across the three sets.
	Snapshot(ctx context.Context, raffleID int) (*model.NumberSnapshot, error)

	AvailableCount(ctx context.Context, raffleID int) (int, error)

	// TryReserve is all-or-nothing: if any requested number is not available
	// it reserves nothing and returns a NumbersUnavailableError naming exactly
	// the conflicting numbers. May return ErrPoolBusy under lock contention.
	TryReserve(ctx context.Context, raffleID int, numbers []int, reservationID uuid.UUID) error

	// ConfirmSale moves every number held by the reservation to sold. Calling
	// it again for a reservation whose numbers are already sold is a no-op;
	// any other mismatch is ErrInvalidState.
	ConfirmSale(ctx context.Context, raffleID int, reservationID uuid.UUID, purchaseID uuid.UUID) error

	// Release returns the reservation's still-reserved numbers to available.
	// Idempotent: numbers no longer reserved under this reservation are left
	// alone.
	Release(ctx context.Context, raffleID int, reservationID uuid.UUID) error
}

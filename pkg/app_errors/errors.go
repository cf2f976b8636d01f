package apperrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrRaffleNotFound      = errors.New("raffle not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrPurchaseNotFound    = errors.New("purchase not found")

	// Reservation input validation, rejected before touching the pool.
	ErrNoNumbersSelected = errors.New("no numbers selected")
	ErrDuplicateNumbers  = errors.New("duplicate numbers in request")
	ErrNumberOutOfRange  = errors.New("number out of range")
	ErrInvalidBuyer      = errors.New("invalid buyer data")

	ErrRaffleNotAcceptingReservations = errors.New("raffle not accepting reservations")
	ErrInvalidStatusTransition        = errors.New("invalid raffle status transition")
	ErrRaffleHasSoldNumbers           = errors.New("raffle has sold numbers")
	ErrRaffleNotDrawn                 = errors.New("raffle not drawn yet")
	ErrNoNumbersSold                  = errors.New("no numbers sold")

	// ErrNumbersUnavailable is the errors.Is target for NumbersUnavailableError.
	ErrNumbersUnavailable = errors.New("numbers unavailable")

	// ErrInvalidState marks a purchase/reservation transition attempted outside
	// its expected state (double confirm, stale webhook).
	ErrInvalidState = errors.New("invalid state")

	// ErrPoolBusy means the per-raffle lock could not be acquired within the
	// contention bound; callers should retry.
	ErrPoolBusy = errors.New("number pool busy")

	ErrGatewayUnavailable  = errors.New("payment gateway unavailable")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInternalServerError = errors.New("internal server error")
)

// NumbersUnavailableError reports exactly which requested numbers were not
// available, so the buyer can deselect just those.
type NumbersUnavailableError struct {
	Numbers []int
}

func NewNumbersUnavailableError(numbers []int) *NumbersUnavailableError {
	sorted := make([]int, len(numbers))
	copy(sorted, numbers)
	sort.Ints(sorted)
	return &NumbersUnavailableError{Numbers: sorted}
}

func (e *NumbersUnavailableError) Error() string {
	parts := make([]string, len(e.Numbers))
	for i, n := range e.Numbers {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("numbers unavailable: [%s]", strings.Join(parts, ", "))
}

func (e *NumbersUnavailableError) Is(target error) bool {
	return target == ErrNumbersUnavailable
}

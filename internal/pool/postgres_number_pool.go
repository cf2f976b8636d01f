package pool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"raffle-service/internal/model"
	"raffle-service/internal/repository"
	apperrors "raffle-service/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgLockNotAvailable is raised when lock_timeout fires while waiting on a
// contested number row.
const pgLockNotAvailable = "55P03"

// PostgresNumberPool 資料庫版 NumberPool
// Atomicity comes from row locks on the contested numbers inside one
// transaction per operation; the raffle row itself is never locked, so
// reservations touching disjoint numbers of the same raffle can proceed in
// parallel and different raffles never contend at all.
type PostgresNumberPool struct {
	pool        *pgxpool.Pool
	numbers     repository.NumberRepository
	lockTimeout time.Duration
}

func NewPostgresNumberPool(pgPool *pgxpool.Pool, numbers repository.NumberRepository, lockTimeout time.Duration) *PostgresNumberPool {
	return &PostgresNumberPool{
		pool:        pgPool,
		numbers:     numbers,
		lockTimeout: lockTimeout,
	}
}

// beginTx opens a transaction with the contention bound applied, so a blocked
// FOR UPDATE surfaces as ErrPoolBusy instead of waiting indefinitely.
func (p *PostgresNumberPool) beginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}

	// SET LOCAL only allows literals; lockTimeout comes from config, not users.
	_, err = tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", p.lockTimeout.Milliseconds()))
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}

	return tx, nil
}

func mapLockError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable {
		return apperrors.ErrPoolBusy
	}
	return err
}

func (p *PostgresNumberPool) InitRaffle(ctx context.Context, raffleID int, totalNumbers int) error {
	if totalNumbers < 1 {
		return apperrors.ErrInvalidInput
	}

	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := p.numbers.Seed(ctx, tx, raffleID, totalNumbers); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (p *PostgresNumberPool) Snapshot(ctx context.Context, raffleID int) (*model.NumberSnapshot, error) {
	// single statement, so MVCC gives one consistent point in time
	states, err := p.numbers.ListStates(ctx, raffleID)
	if err != nil {
		return nil, err
	}
	if len(states) == 0 {
		return nil, apperrors.ErrRaffleNotFound
	}

	snapshot := &model.NumberSnapshot{
		RaffleID:     raffleID,
		TotalNumbers: len(states),
		Available:    make([]int, 0),
		Reserved:     make([]int, 0),
		Sold:         make([]int, 0),
	}

	for _, n := range states {
		switch n.State {
		case model.NumberStateAvailable:
			snapshot.Available = append(snapshot.Available, n.Number)
		case model.NumberStateReserved:
			snapshot.Reserved = append(snapshot.Reserved, n.Number)
		case model.NumberStateSold:
			snapshot.Sold = append(snapshot.Sold, n.Number)
		}
	}

	return snapshot, nil
}

func (p *PostgresNumberPool) AvailableCount(ctx context.Context, raffleID int) (int, error) {
	return p.numbers.CountByState(ctx, raffleID, model.NumberStateAvailable)
}

func (p *PostgresNumberPool) TryReserve(ctx context.Context, raffleID int, numbers []int, reservationID uuid.UUID) error {
	// deterministic lock order avoids deadlocks between overlapping requests
	sorted := make([]int, len(numbers))
	copy(sorted, numbers)
	sort.Ints(sorted)

	tx, err := p.beginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	locked, err := p.numbers.LockNumbers(ctx, tx, raffleID, sorted)
	if err != nil {
		return mapLockError(err)
	}

	if len(locked) != len(sorted) {
		// rows missing means the number was never seeded for this raffle
		return apperrors.ErrNumberOutOfRange
	}

	conflicting := make([]int, 0)
	for _, n := range locked {
		if n.State != model.NumberStateAvailable {
			conflicting = append(conflicting, n.Number)
		}
	}

	if len(conflicting) > 0 {
		// rollback via defer: nothing was written, all-or-nothing holds
		return apperrors.NewNumbersUnavailableError(conflicting)
	}

	if err := p.numbers.MarkReserved(ctx, tx, raffleID, sorted, reservationID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (p *PostgresNumberPool) ConfirmSale(ctx context.Context, raffleID int, reservationID uuid.UUID, purchaseID uuid.UUID) error {
	tx, err := p.beginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	flipped, err := p.numbers.MarkSold(ctx, tx, raffleID, reservationID, purchaseID)
	if err != nil {
		return mapLockError(err)
	}

	if flipped == 0 {
		sold, err := p.numbers.CountSoldByReservation(ctx, tx, raffleID, reservationID)
		if err != nil {
			return err
		}
		if sold > 0 {
			return tx.Commit(ctx) // duplicate confirmation, already applied
		}
		return apperrors.ErrInvalidState
	}

	return tx.Commit(ctx)
}

func (p *PostgresNumberPool) Release(ctx context.Context, raffleID int, reservationID uuid.UUID) error {
	tx, err := p.beginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// releases only numbers still reserved under this reservation; releasing
	// an already-released or sold reservation touches nothing
	if _, err := p.numbers.ReleaseByReservation(ctx, tx, raffleID, reservationID); err != nil {
		return mapLockError(err)
	}

	return tx.Commit(ctx)
}

package repository

import (
	"context"

	"raffle-service/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NumberRepository owns the raffle_numbers rows. All state-changing methods
// take a pgx.Tx so the pool can keep one reservation an atomic unit.
type NumberRepository interface {
	ListStates(ctx context.Context, raffleID int) ([]*model.TicketNumber, error)
	CountByState(ctx context.Context, raffleID int, state model.NumberState) (int, error)

	// Transaction methods
	Seed(ctx context.Context, tx pgx.Tx, raffleID int, totalNumbers int) error
	// LockNumbers row-locks the requested numbers (sorted, so concurrent
	// reservations acquire locks in a deterministic order) and returns their
	// current states.
	LockNumbers(ctx context.Context, tx pgx.Tx, raffleID int, numbers []int) ([]*model.TicketNumber, error)
	MarkReserved(ctx context.Context, tx pgx.Tx, raffleID int, numbers []int, reservationID uuid.UUID) error
	// MarkSold flips every number held by the reservation to sold and returns
	// how many rows it touched.
	MarkSold(ctx context.Context, tx pgx.Tx, raffleID int, reservationID uuid.UUID, purchaseID uuid.UUID) (int, error)
	CountSoldByReservation(ctx context.Context, tx pgx.Tx, raffleID int, reservationID uuid.UUID) (int, error)
	// ReleaseByReservation returns only the numbers still reserved under the
	// reservation to available; sold numbers are untouched.
	ReleaseByReservation(ctx context.Context, tx pgx.Tx, raffleID int, reservationID uuid.UUID) (int, error)
}

type NumberRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewNumberRepository(pool *pgxpool.Pool) NumberRepository {
	return &NumberRepositoryImpl{
		pool: pool,
	}
}

func (r *NumberRepositoryImpl) ListStates(ctx context.Context, raffleID int) ([]*model.TicketNumber, error) {
	query := `
		SELECT raffle_id, number, state, reservation_id, purchase_id
		FROM raffle_numbers
		WHERE raffle_id = $1
		ORDER BY number
	`

	rows, err := r.pool.Query(ctx, query, raffleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	numbers := make([]*model.TicketNumber, 0)

	for rows.Next() {
		var number model.TicketNumber
		err := rows.Scan(
			&number.RaffleID,
			&number.Number,
			&number.State,
			&number.ReservationID,
			&number.PurchaseID,
		)
		if err != nil {
			return nil, err
		}
		numbers = append(numbers, &number)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return numbers, nil
}

func (r *NumberRepositoryImpl) CountByState(ctx context.Context, raffleID int, state model.NumberState) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM raffle_numbers
		WHERE raffle_id = $1 AND state = $2
	`

	var count int
	err := r.pool.QueryRow(ctx, query, raffleID, state).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *NumberRepositoryImpl) Seed(ctx context.Context, tx pgx.Tx, raffleID int, totalNumbers int) error {
	query := `
		INSERT INTO raffle_numbers (raffle_id, number, state)
		SELECT $1, n, $2
		FROM generate_series(1, $3) AS n
		ON CONFLICT (raffle_id, number) DO NOTHING
	`

	_, err := tx.Exec(ctx, query, raffleID, model.NumberStateAvailable, totalNumbers)
	return err
}

func (r *NumberRepositoryImpl) LockNumbers(ctx context.Context, tx pgx.Tx, raffleID int, numbers []int) ([]*model.TicketNumber, error) {
	query := `
		SELECT raffle_id, number, state, reservation_id, purchase_id
		FROM raffle_numbers
		WHERE raffle_id = $1 AND number = ANY($2)
		ORDER BY number
		FOR UPDATE
	`

	rows, err := tx.Query(ctx, query, raffleID, numbers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	locked := make([]*model.TicketNumber, 0, len(numbers))

	for rows.Next() {
		var number model.TicketNumber
		err := rows.Scan(
			&number.RaffleID,
			&number.Number,
			&number.State,
			&number.ReservationID,
			&number.PurchaseID,
		)
		if err != nil {
			return nil, err
		}
		locked = append(locked, &number)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return locked, nil
}

func (r *NumberRepositoryImpl) MarkReserved(ctx context.Context, tx pgx.Tx, raffleID int, numbers []int, reservationID uuid.UUID) error {
	query := `
		UPDATE raffle_numbers
		SET state = $1, reservation_id = $2
		WHERE raffle_id = $3 AND number = ANY($4) AND state = $5
	`

	result, err := tx.Exec(ctx, query,
		model.NumberStateReserved, reservationID, raffleID, numbers, model.NumberStateAvailable)
	if err != nil {
		return err
	}

	// LockNumbers already verified availability under the row locks; a short
	// write here would mean the check and the update disagree.
	if int(result.RowsAffected()) != len(numbers) {
		return pgx.ErrNoRows
	}

	return nil
}

func (r *NumberRepositoryImpl) MarkSold(ctx context.Context, tx pgx.Tx, raffleID int, reservationID uuid.UUID, purchaseID uuid.UUID) (int, error) {
	query := `
		UPDATE raffle_numbers
		SET state = $1, purchase_id = $2
		WHERE raffle_id = $3 AND reservation_id = $4 AND state = $5
	`

	result, err := tx.Exec(ctx, query,
		model.NumberStateSold, purchaseID, raffleID, reservationID, model.NumberStateReserved)
	if err != nil {
		return 0, err
	}

	return int(result.RowsAffected()), nil
}

func (r *NumberRepositoryImpl) CountSoldByReservation(ctx context.Context, tx pgx.Tx, raffleID int, reservationID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM raffle_numbers
		WHERE raffle_id = $1 AND reservation_id = $2 AND state = $3
	`

	var count int
	err := tx.QueryRow(ctx, query, raffleID, reservationID, model.NumberStateSold).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *NumberRepositoryImpl) ReleaseByReservation(ctx context.Context, tx pgx.Tx, raffleID int, reservationID uuid.UUID) (int, error) {
	query := `
		UPDATE raffle_numbers
		SET state = $1, reservation_id = NULL
		WHERE raffle_id = $2 AND reservation_id = $3 AND state = $4
	`

	result, err := tx.Exec(ctx, query,
		model.NumberStateAvailable, raffleID, reservationID, model.NumberStateReserved)
	if err != nil {
		return 0, err
	}

	return int(result.RowsAffected()), nil
}

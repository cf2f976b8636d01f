package repository

import (
	"context"
	"fmt"
	"time"

	"raffle-service/internal/model"
	apperrors "raffle-service/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReservationRepository interface {
	Create(ctx context.Context, reservation *model.Reservation) (*model.Reservation, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error)
	ListByRaffle(ctx context.Context, raffleID int) ([]*model.Reservation, error)
	// UpdateStatus is a compare-and-set guard so redundant sweeps and duplicate
	// webhooks cannot move a terminal reservation twice. Returns false when the
	// reservation was not in `from` anymore.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.ReservationStatus) (bool, error)
	FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]*model.Reservation, error)
	// FindConfirmedByNumber resolves the confirmed holder of a ticket number,
	// used by the draw.
	FindConfirmedByNumber(ctx context.Context, raffleID int, number int) (*model.Reservation, error)
}

type ReservationRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) ReservationRepository {
	return &ReservationRepositoryImpl{
		pool: pool,
	}
}

const reservationColumns = `id, raffle_id, buyer_name, buyer_email, buyer_phone,
		numbers, status, created_at, expires_at`

func scanReservation(row pgx.Row) (*model.Reservation, error) {
	var reservation model.Reservation
	err := row.Scan(
		&reservation.ID,
		&reservation.RaffleID,
		&reservation.Buyer.Name,
		&reservation.Buyer.Email,
		&reservation.Buyer.Phone,
		&reservation.Numbers,
		&reservation.Status,
		&reservation.CreatedAt,
		&reservation.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *ReservationRepositoryImpl) Create(ctx context.Context, reservation *model.Reservation) (*model.Reservation, error) {
	query := fmt.Sprintf(`
		INSERT INTO reservations (id, raffle_id, buyer_name, buyer_email, buyer_phone, numbers, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING %s
	`, reservationColumns)

	created, err := scanReservation(r.pool.QueryRow(ctx, query,
		reservation.ID, reservation.RaffleID,
		reservation.Buyer.Name, reservation.Buyer.Email, reservation.Buyer.Phone,
		reservation.Numbers, reservation.Status, reservation.ExpiresAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}

	return created, nil
}

func (r *ReservationRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM reservations
		WHERE id = $1
	`, reservationColumns)

	reservation, err := scanReservation(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrReservationNotFound
		}
		return nil, err
	}

	return reservation, nil
}

func (r *ReservationRepositoryImpl) ListByRaffle(ctx context.Context, raffleID int) ([]*model.Reservation, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM reservations
		WHERE raffle_id = $1
		ORDER BY created_at DESC
	`, reservationColumns)

	rows, err := r.pool.Query(ctx, query, raffleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reservations := make([]*model.Reservation, 0)

	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, reservation)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return reservations, nil
}

func (r *ReservationRepositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.ReservationStatus) (bool, error) {
	query := `
		UPDATE reservations
		SET status = $1
		WHERE id = $2 AND status = $3
	`

	result, err := r.pool.Exec(ctx, query, to, id, from)
	if err != nil {
		return false, err
	}

	return result.RowsAffected() > 0, nil
}

func (r *ReservationRepositoryImpl) FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]*model.Reservation, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM reservations
		WHERE status = $1 AND expires_at < $2
		ORDER BY expires_at
		LIMIT $3
	`, reservationColumns)

	rows, err := r.pool.Query(ctx, query, model.ReservationStatusPending, now.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reservations := make([]*model.Reservation, 0)

	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, reservation)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return reservations, nil
}

func (r *ReservationRepositoryImpl) FindConfirmedByNumber(ctx context.Context, raffleID int, number int) (*model.Reservation, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM reservations
		WHERE raffle_id = $1 AND status = $2 AND $3 = ANY(numbers)
	`, reservationColumns)

	reservation, err := scanReservation(r.pool.QueryRow(ctx, query, raffleID, model.ReservationStatusConfirmed, number))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrReservationNotFound
		}
		return nil, err
	}

	return reservation, nil
}

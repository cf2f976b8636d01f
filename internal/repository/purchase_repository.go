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

type PurchaseRepository interface {
	Create(ctx context.Context, purchase *model.Purchase) (*model.Purchase, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Purchase, error)
	FindByReservationID(ctx context.Context, reservationID uuid.UUID) ([]*model.Purchase, error)
	FindByPaymentReference(ctx context.Context, reference string) (*model.Purchase, error)
	// UpdateStatus is a compare-and-set; false means the purchase already left `from`.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.PurchaseStatus) (bool, error)
	// RevenueByRaffle sums paid purchase amounts for one raffle.
	RevenueByRaffle(ctx context.Context, raffleID int) (float64, error)
}

type PurchaseRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewPurchaseRepository(pool *pgxpool.Pool) PurchaseRepository {
	return &PurchaseRepositoryImpl{
		pool: pool,
	}
}

const purchaseColumns = `id, reservation_id, amount, payment_method, payment_reference,
		status, created_at, updated_at`

func scanPurchase(row pgx.Row) (*model.Purchase, error) {
	var purchase model.Purchase
	err := row.Scan(
		&purchase.ID,
		&purchase.ReservationID,
		&purchase.Amount,
		&purchase.PaymentMethod,
		&purchase.PaymentReference,
		&purchase.Status,
		&purchase.CreatedAt,
		&purchase.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *PurchaseRepositoryImpl) Create(ctx context.Context, purchase *model.Purchase) (*model.Purchase, error) {
	query := fmt.Sprintf(`
		INSERT INTO purchases (id, reservation_id, amount, payment_method, payment_reference, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s
	`, purchaseColumns)

	created, err := scanPurchase(r.pool.QueryRow(ctx, query,
		purchase.ID, purchase.ReservationID, purchase.Amount,
		purchase.PaymentMethod, purchase.PaymentReference, purchase.Status,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create purchase: %w", err)
	}

	return created, nil
}

func (r *PurchaseRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*model.Purchase, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM purchases
		WHERE id = $1
	`, purchaseColumns)

	purchase, err := scanPurchase(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrPurchaseNotFound
		}
		return nil, err
	}

	return purchase, nil
}

func (r *PurchaseRepositoryImpl) FindByReservationID(ctx context.Context, reservationID uuid.UUID) ([]*model.Purchase, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM purchases
		WHERE reservation_id = $1
		ORDER BY created_at DESC
	`, purchaseColumns)

	rows, err := r.pool.Query(ctx, query, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	purchases := make([]*model.Purchase, 0)

	for rows.Next() {
		purchase, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		purchases = append(purchases, purchase)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return purchases, nil
}

func (r *PurchaseRepositoryImpl) FindByPaymentReference(ctx context.Context, reference string) (*model.Purchase, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM purchases
		WHERE payment_reference = $1
	`, purchaseColumns)

	purchase, err := scanPurchase(r.pool.QueryRow(ctx, query, reference))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrPurchaseNotFound
		}
		return nil, err
	}

	return purchase, nil
}

func (r *PurchaseRepositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.PurchaseStatus) (bool, error) {
	query := `
		UPDATE purchases
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`

	result, err := r.pool.Exec(ctx, query, to, time.Now().UTC(), id, from)
	if err != nil {
		return false, err
	}

	return result.RowsAffected() > 0, nil
}

func (r *PurchaseRepositoryImpl) RevenueByRaffle(ctx context.Context, raffleID int) (float64, error) {
	query := `
		SELECT COALESCE(SUM(p.amount), 0)
		FROM purchases p
		JOIN reservations r ON r.id = p.reservation_id
		WHERE r.raffle_id = $1 AND p.status = $2
	`

	var revenue float64
	err := r.pool.QueryRow(ctx, query, raffleID, model.PurchaseStatusPaid).Scan(&revenue)
	if err != nil {
		return 0, err
	}

	return revenue, nil
}

package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"raffle-service/internal/model"
	apperrors "raffle-service/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RaffleRepository interface {
	Create(ctx context.Context, raffle *model.Raffle) (*model.Raffle, error)
	List(ctx context.Context) ([]*model.Raffle, error)
	FindByID(ctx context.Context, id int) (*model.Raffle, error)
	Update(ctx context.Context, id int, values map[string]interface{}) (*model.Raffle, error)
	// UpdateStatus is a compare-and-set: it only moves from -> to and reports
	// ErrInvalidStatusTransition when the raffle is no longer in `from`.
	UpdateStatus(ctx context.Context, id int, from, to model.RaffleStatus) error
	// SetWinner records the draw result and moves closed -> drawn in one statement.
	SetWinner(ctx context.Context, id int, number int, name, email string, drawnAt time.Time) error
	// Delete removes a raffle row outright. Only used to undo a creation whose
	// number seeding failed; cancellation goes through UpdateStatus.
	Delete(ctx context.Context, id int) error
}

type RaffleRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewRaffleRepository(pool *pgxpool.Pool) RaffleRepository {
	return &RaffleRepositoryImpl{
		pool: pool,
	}
}

const raffleColumns = `id, title, description, image_url, ticket_price, total_numbers,
		draw_date, status, winner_number, winner_name, winner_email, drawn_at,
		created_at, updated_at`

func scanRaffle(row pgx.Row) (*model.Raffle, error) {
	var raffle model.Raffle
	err := row.Scan(
		&raffle.ID,
		&raffle.Title,
		&raffle.Description,
		&raffle.ImageURL,
		&raffle.TicketPrice,
		&raffle.TotalNumbers,
		&raffle.DrawDate,
		&raffle.Status,
		&raffle.WinnerNumber,
		&raffle.WinnerName,
		&raffle.WinnerEmail,
		&raffle.DrawnAt,
		&raffle.CreatedAt,
		&raffle.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &raffle, nil
}

func (r *RaffleRepositoryImpl) Create(ctx context.Context, raffle *model.Raffle) (*model.Raffle, error) {
	query := fmt.Sprintf(`
		INSERT INTO raffles (title, description, image_url, ticket_price, total_numbers, draw_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s
	`, raffleColumns)

	created, err := scanRaffle(r.pool.QueryRow(ctx, query,
		raffle.Title, raffle.Description, raffle.ImageURL,
		raffle.TicketPrice, raffle.TotalNumbers, raffle.DrawDate, raffle.Status,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create raffle: %w", err)
	}

	return created, nil
}

func (r *RaffleRepositoryImpl) List(ctx context.Context) ([]*model.Raffle, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM raffles
		ORDER BY status = 'active' DESC, created_at DESC
	`, raffleColumns)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	raffles := make([]*model.Raffle, 0)

	for rows.Next() {
		raffle, err := scanRaffle(rows)
		if err != nil {
			return nil, err
		}
		raffles = append(raffles, raffle)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return raffles, nil
}

func (r *RaffleRepositoryImpl) FindByID(ctx context.Context, id int) (*model.Raffle, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM raffles
		WHERE id = $1
	`, raffleColumns)

	raffle, err := scanRaffle(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrRaffleNotFound
		}
		return nil, err
	}

	return raffle, nil
}

func (r *RaffleRepositoryImpl) Update(ctx context.Context, id int, values map[string]interface{}) (*model.Raffle, error) {
	allowedFields := map[string]bool{
		"title":        true,
		"description":  true,
		"image_url":    true,
		"ticket_price": true,
		"draw_date":    true,
	}

	sets := []string{}
	args := []interface{}{}
	argPos := 1

	for column, value := range values {
		if ok := allowedFields[column]; !ok {
			return nil, apperrors.ErrInvalidInput
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argPos))
		args = append(args, value)
		argPos++
	}

	if len(sets) == 0 {
		return nil, apperrors.ErrInvalidInput
	}

	sets = append(sets, fmt.Sprintf("updated_at = $%d", argPos))
	args = append(args, time.Now().UTC())
	argPos++

	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE raffles
		SET %s
		WHERE id = $%d
		RETURNING %s
	`, strings.Join(sets, ", "), argPos, raffleColumns)

	raffle, err := scanRaffle(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrRaffleNotFound
		}
		return nil, err
	}

	return raffle, nil
}

func (r *RaffleRepositoryImpl) UpdateStatus(ctx context.Context, id int, from, to model.RaffleStatus) error {
	query := `
		UPDATE raffles
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`

	result, err := r.pool.Exec(ctx, query, to, time.Now().UTC(), id, from)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		// raffle missing or already moved past `from`
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return apperrors.ErrInvalidStatusTransition
	}

	return nil
}

func (r *RaffleRepositoryImpl) SetWinner(ctx context.Context, id int, number int, name, email string, drawnAt time.Time) error {
	query := `
		UPDATE raffles
		SET status = $1, winner_number = $2, winner_name = $3, winner_email = $4,
			drawn_at = $5, updated_at = $5
		WHERE id = $6 AND status = $7
	`

	result, err := r.pool.Exec(ctx, query,
		model.RaffleStatusDrawn, number, name, email, drawnAt.UTC(), id, model.RaffleStatusClosed)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return apperrors.ErrInvalidStatusTransition
	}

	return nil
}

func (r *RaffleRepositoryImpl) Delete(ctx context.Context, id int) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM raffles WHERE id = $1`, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrRaffleNotFound
	}

	return nil
}

package service_test

import (
	"context"
	"time"

	"raffle-service/internal/model"
	"raffle-service/internal/pool"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// flakyNumberPool wraps a real pool and injects failures into selected
// operations, for exercising the failure paths around pool calls.
type flakyNumberPool struct {
	pool.NumberPool
	releaseErrs int   // fail this many Release calls before passing through
	releaseErr  error // error those calls return
	initErr     error // InitRaffle failure, sticky
}

func (p *flakyNumberPool) Release(ctx context.Context, raffleID int, reservationID uuid.UUID) error {
	if p.releaseErrs > 0 {
		p.releaseErrs--
		return p.releaseErr
	}
	return p.NumberPool.Release(ctx, raffleID, reservationID)
}

func (p *flakyNumberPool) InitRaffle(ctx context.Context, raffleID int, totalNumbers int) error {
	if p.initErr != nil {
		return p.initErr
	}
	return p.NumberPool.InitRaffle(ctx, raffleID, totalNumbers)
}

type RaffleRepositoryMock struct {
	mock.Mock
}

func (m *RaffleRepositoryMock) Create(ctx context.Context, raffle *model.Raffle) (*model.Raffle, error) {
	args := m.Called(ctx, raffle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Raffle), args.Error(1)
}

func (m *RaffleRepositoryMock) List(ctx context.Context) ([]*model.Raffle, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Raffle), args.Error(1)
}

func (m *RaffleRepositoryMock) FindByID(ctx context.Context, id int) (*model.Raffle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Raffle), args.Error(1)
}

func (m *RaffleRepositoryMock) Update(ctx context.Context, id int, values map[string]interface{}) (*model.Raffle, error) {
	args := m.Called(ctx, id, values)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Raffle), args.Error(1)
}

func (m *RaffleRepositoryMock) UpdateStatus(ctx context.Context, id int, from, to model.RaffleStatus) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

func (m *RaffleRepositoryMock) SetWinner(ctx context.Context, id int, number int, name, email string, drawnAt time.Time) error {
	args := m.Called(ctx, id, number, name, email, drawnAt)
	return args.Error(0)
}

func (m *RaffleRepositoryMock) Delete(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type ReservationRepositoryMock struct {
	mock.Mock
}

// Create echoes the inserted reservation back when the expectation returns
// (nil, nil), mirroring the repository's INSERT ... RETURNING.
func (m *ReservationRepositoryMock) Create(ctx context.Context, reservation *model.Reservation) (*model.Reservation, error) {
	args := m.Called(ctx, reservation)
	if args.Get(0) == nil {
		if args.Error(1) == nil {
			return reservation, nil
		}
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *ReservationRepositoryMock) FindByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *ReservationRepositoryMock) ListByRaffle(ctx context.Context, raffleID int) ([]*model.Reservation, error) {
	args := m.Called(ctx, raffleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Reservation), args.Error(1)
}

func (m *ReservationRepositoryMock) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.ReservationStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *ReservationRepositoryMock) FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]*model.Reservation, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Reservation), args.Error(1)
}

func (m *ReservationRepositoryMock) FindConfirmedByNumber(ctx context.Context, raffleID int, number int) (*model.Reservation, error) {
	args := m.Called(ctx, raffleID, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

type PurchaseRepositoryMock struct {
	mock.Mock
}

// Create echoes the inserted purchase back when the expectation returns
// (nil, nil), mirroring the repository's INSERT ... RETURNING.
func (m *PurchaseRepositoryMock) Create(ctx context.Context, purchase *model.Purchase) (*model.Purchase, error) {
	args := m.Called(ctx, purchase)
	if args.Get(0) == nil {
		if args.Error(1) == nil {
			return purchase, nil
		}
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Purchase), args.Error(1)
}

func (m *PurchaseRepositoryMock) FindByID(ctx context.Context, id uuid.UUID) (*model.Purchase, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Purchase), args.Error(1)
}

func (m *PurchaseRepositoryMock) FindByReservationID(ctx context.Context, reservationID uuid.UUID) ([]*model.Purchase, error) {
	args := m.Called(ctx, reservationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Purchase), args.Error(1)
}

func (m *PurchaseRepositoryMock) FindByPaymentReference(ctx context.Context, reference string) (*model.Purchase, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Purchase), args.Error(1)
}

func (m *PurchaseRepositoryMock) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.PurchaseStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *PurchaseRepositoryMock) RevenueByRaffle(ctx context.Context, raffleID int) (float64, error) {
	args := m.Called(ctx, raffleID)
	return args.Get(0).(float64), args.Error(1)
}

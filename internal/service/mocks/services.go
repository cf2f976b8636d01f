// Package mocks provides hand-written testify doubles for the service
// interfaces, shared by handler and worker tests.
package mocks

import (
	"context"

	"raffle-service/internal/model"
	"raffle-service/internal/payment"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type RaffleServiceMock struct {
	mock.Mock
}

func (m *RaffleServiceMock) Create(ctx context.Context, raffle *model.Raffle) (*model.Raffle, error) {
	args := m.Called(ctx, raffle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Raffle), args.Error(1)
}

func (m *RaffleServiceMock) List(ctx context.Context) ([]*model.RaffleResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.RaffleResponse), args.Error(1)
}

func (m *RaffleServiceMock) GetByID(ctx context.Context, id int) (*model.RaffleResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RaffleResponse), args.Error(1)
}

func (m *RaffleServiceMock) Update(ctx context.Context, id int, params model.UpdateRaffleParams) (*model.Raffle, error) {
	args := m.Called(ctx, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Raffle), args.Error(1)
}

func (m *RaffleServiceMock) UpdateStatus(ctx context.Context, id int, target model.RaffleStatus) error {
	args := m.Called(ctx, id, target)
	return args.Error(0)
}

func (m *RaffleServiceMock) Cancel(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *RaffleServiceMock) NumberBoard(ctx context.Context, id int) (*model.NumberSnapshot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.NumberSnapshot), args.Error(1)
}

func (m *RaffleServiceMock) Participants(ctx context.Context, id int) ([]*model.Reservation, *model.RaffleStats, error) {
	args := m.Called(ctx, id)
	var reservations []*model.Reservation
	var stats *model.RaffleStats
	if args.Get(0) != nil {
		reservations = args.Get(0).([]*model.Reservation)
	}
	if args.Get(1) != nil {
		stats = args.Get(1).(*model.RaffleStats)
	}
	return reservations, stats, args.Error(2)
}

func (m *RaffleServiceMock) Draw(ctx context.Context, id int) (*model.Winner, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Winner), args.Error(1)
}

func (m *RaffleServiceMock) Winner(ctx context.Context, id int) (*model.Winner, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Winner), args.Error(1)
}

type ReservationServiceMock struct {
	mock.Mock
}

func (m *ReservationServiceMock) Reserve(ctx context.Context, raffleID int, buyer model.Buyer, numbers []int) (*model.Reservation, error) {
	args := m.Called(ctx, raffleID, buyer, numbers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *ReservationServiceMock) GetByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *ReservationServiceMock) Cancel(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *ReservationServiceMock) SweepExpired(ctx context.Context) ([]*model.Reservation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Reservation), args.Error(1)
}

type PurchaseServiceMock struct {
	mock.Mock
}

func (m *PurchaseServiceMock) Initiate(ctx context.Context, reservationID uuid.UUID, method string) (*model.Purchase, *payment.PaymentIntent, error) {
	args := m.Called(ctx, reservationID, method)
	var purchase *model.Purchase
	var intent *payment.PaymentIntent
	if args.Get(0) != nil {
		purchase = args.Get(0).(*model.Purchase)
	}
	if args.Get(1) != nil {
		intent = args.Get(1).(*payment.PaymentIntent)
	}
	return purchase, intent, args.Error(2)
}

func (m *PurchaseServiceMock) GetByID(ctx context.Context, id uuid.UUID) (*model.Purchase, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Purchase), args.Error(1)
}

func (m *PurchaseServiceMock) OnPaymentSucceeded(ctx context.Context, purchaseID uuid.UUID) error {
	args := m.Called(ctx, purchaseID)
	return args.Error(0)
}

func (m *PurchaseServiceMock) OnPaymentFailed(ctx context.Context, purchaseID uuid.UUID) error {
	args := m.Called(ctx, purchaseID)
	return args.Error(0)
}

func (m *PurchaseServiceMock) OnReservationExpired(ctx context.Context, reservation *model.Reservation) error {
	args := m.Called(ctx, reservation)
	return args.Error(0)
}

func (m *PurchaseServiceMock) HandlePaymentEvent(ctx context.Context, event *model.PaymentEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

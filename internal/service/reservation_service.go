package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"raffle-service/internal/model"
	"raffle-service/internal/pool"
	"raffle-service/internal/repository"
	apperrors "raffle-service/pkg/app_errors"
	"raffle-service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// sweepBatchSize bounds how many expired holds one sweep pass processes.
const sweepBatchSize = 100

type ReservationService interface {
	// Reserve validates the request, places an all-or-nothing hold on the
	// numbers and persists a pending reservation with a TTL.
	Reserve(ctx context.Context, raffleID int, buyer model.Buyer, numbers []int) (*model.Reservation, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error)
	// Cancel is the buyer's fast path out of a pending hold, equivalent to a
	// payment failure. Idempotent.
	Cancel(ctx context.Context, id uuid.UUID) error
	// SweepExpired releases every pending reservation past its TTL and returns
	// the ones this pass expired, so the caller can fail linked purchases.
	// Safe to run concurrently and redundantly.
	SweepExpired(ctx context.Context) ([]*model.Reservation, error)
}

type ReservationServiceImpl struct {
	raffleRepo      repository.RaffleRepository
	reservationRepo repository.ReservationRepository
	purchaseRepo    repository.PurchaseRepository
	numberPool      pool.NumberPool
	ttl             time.Duration
}

func NewReservationService(
	raffleRepo repository.RaffleRepository,
	reservationRepo repository.ReservationRepository,
	purchaseRepo repository.PurchaseRepository,
	numberPool pool.NumberPool,
	ttl time.Duration,
) ReservationService {
	return &ReservationServiceImpl{
		raffleRepo:      raffleRepo,
		reservationRepo: reservationRepo,
		purchaseRepo:    purchaseRepo,
		numberPool:      numberPool,
		ttl:             ttl,
	}
}

func (s *ReservationServiceImpl) Reserve(ctx context.Context, raffleID int, buyer model.Buyer, numbers []int) (*model.Reservation, error) {
	// validation happens before the pool is touched, each failure distinct
	if buyer.Name == "" || buyer.Email == "" {
		return nil, apperrors.ErrInvalidBuyer
	}

	if len(numbers) == 0 {
		return nil, apperrors.ErrNoNumbersSelected
	}

	seen := make(map[int]bool, len(numbers))
	for _, n := range numbers {
		if seen[n] {
			return nil, fmt.Errorf("%w: %d", apperrors.ErrDuplicateNumbers, n)
		}
		seen[n] = true
	}

	raffle, err := s.raffleRepo.FindByID(ctx, raffleID)
	if err != nil {
		return nil, err
	}

	for _, n := range numbers {
		if !raffle.InRange(n) {
			return nil, fmt.Errorf("%w: %d", apperrors.ErrNumberOutOfRange, n)
		}
	}

	if !raffle.Status.AcceptsReservations() {
		return nil, apperrors.ErrRaffleNotAcceptingReservations
	}

	now := time.Now().UTC()
	reservation := &model.Reservation{
		ID:        uuid.New(),
		RaffleID:  raffleID,
		Buyer:     buyer,
		Numbers:   numbers,
		Status:    model.ReservationStatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	// persist first so reserved numbers always point at an existing
	// reservation; a crash in between leaves an empty pending hold the sweep
	// expires harmlessly
	created, err := s.reservationRepo.Create(ctx, reservation)
	if err != nil {
		return nil, err
	}
	created.Buyer = buyer

	if err := s.numberPool.TryReserve(ctx, raffleID, numbers, created.ID); err != nil {
		if _, stErr := s.reservationRepo.UpdateStatus(ctx, created.ID, model.ReservationStatusPending, model.ReservationStatusReleased); stErr != nil {
			logger.WithComponent("reservation").Error("failed to discard reservation after reserve failure",
				zap.String("reservation_id", created.ID.String()), zap.Error(stErr))
		}
		return nil, err
	}

	s.closeWhenSoldOut(ctx, raffleID)

	return created, nil
}

// closeWhenSoldOut flips an active raffle to closed once no number is left.
func (s *ReservationServiceImpl) closeWhenSoldOut(ctx context.Context, raffleID int) {
	available, err := s.numberPool.AvailableCount(ctx, raffleID)
	if err != nil || available > 0 {
		return
	}

	err = s.raffleRepo.UpdateStatus(ctx, raffleID, model.RaffleStatusActive, model.RaffleStatusClosed)
	if err != nil && !errors.Is(err, apperrors.ErrInvalidStatusTransition) {
		logger.WithComponent("reservation").Error("failed to auto-close raffle",
			zap.Int("raffle_id", raffleID), zap.Error(err))
		return
	}
	if err == nil {
		logger.WithComponent("reservation").Info("raffle sold out, closed",
			zap.Int("raffle_id", raffleID))
	}
}

func (s *ReservationServiceImpl) GetByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	return s.reservationRepo.FindByID(ctx, id)
}

func (s *ReservationServiceImpl) Cancel(ctx context.Context, id uuid.UUID) error {
	reservation, err := s.reservationRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	switch reservation.Status {
	case model.ReservationStatusReleased, model.ReservationStatusExpired:
		return nil // already gone, nothing to undo
	case model.ReservationStatusConfirmed:
		return apperrors.ErrInvalidState
	}

	moved, err := s.reservationRepo.UpdateStatus(ctx, id, model.ReservationStatusPending, model.ReservationStatusReleased)
	if err != nil {
		return err
	}
	if !moved {
		// lost the race against a confirm or a sweep; re-check the outcome
		current, err := s.reservationRepo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == model.ReservationStatusConfirmed {
			return apperrors.ErrInvalidState
		}
		return nil
	}

	if err := s.numberPool.Release(ctx, reservation.RaffleID, id); err != nil {
		// put the hold back under pending so the sweep can release the numbers
		// later; a terminal reservation still holding numbers would leak them
		s.revertToPending(ctx, id, model.ReservationStatusReleased)
		return err
	}

	s.failPendingPurchases(ctx, id)

	return nil
}

func (s *ReservationServiceImpl) SweepExpired(ctx context.Context) ([]*model.Reservation, error) {
	now := time.Now().UTC()

	candidates, err := s.reservationRepo.FindExpiredPending(ctx, now, sweepBatchSize)
	if err != nil {
		return nil, err
	}

	expired := make([]*model.Reservation, 0, len(candidates))

	for _, reservation := range candidates {
		select {
		case <-ctx.Done():
			return expired, ctx.Err()
		default:
		}

		// the status CAS decides the race against a concurrent confirmation:
		// only the winner releases the numbers
		moved, err := s.reservationRepo.UpdateStatus(ctx, reservation.ID,
			model.ReservationStatusPending, model.ReservationStatusExpired)
		if err != nil {
			logger.WithComponent("sweep").Error("failed to expire reservation",
				zap.String("reservation_id", reservation.ID.String()), zap.Error(err))
			continue
		}
		if !moved {
			continue // confirmed or released meanwhile, skip
		}

		if err := s.numberPool.Release(ctx, reservation.RaffleID, reservation.ID); err != nil {
			logger.WithComponent("sweep").Error("failed to release expired numbers",
				zap.String("reservation_id", reservation.ID.String()),
				zap.Int("raffle_id", reservation.RaffleID), zap.Error(err))
			// revert so the next pass re-finds the hold and retries the release
			s.revertToPending(ctx, reservation.ID, model.ReservationStatusExpired)
			continue
		}

		expired = append(expired, reservation)
	}

	return expired, nil
}

// revertToPending undoes a terminal status CAS whose pool release failed. The
// sweep only scans pending reservations, so a terminal hold with un-released
// numbers would never be retried.
func (s *ReservationServiceImpl) revertToPending(ctx context.Context, id uuid.UUID, from model.ReservationStatus) {
	if _, err := s.reservationRepo.UpdateStatus(ctx, id, from, model.ReservationStatusPending); err != nil {
		logger.WithComponent("reservation").Error("failed to revert reservation after release failure",
			zap.String("reservation_id", id.String()),
			zap.String("from", string(from)), zap.Error(err))
	}
}

func (s *ReservationServiceImpl) failPendingPurchases(ctx context.Context, reservationID uuid.UUID) {
	purchases, err := s.purchaseRepo.FindByReservationID(ctx, reservationID)
	if err != nil {
		logger.WithComponent("reservation").Error("failed to load purchases for cancelled reservation",
			zap.String("reservation_id", reservationID.String()), zap.Error(err))
		return
	}

	for _, purchase := range purchases {
		if purchase.Status != model.PurchaseStatusAwaitingPayment {
			continue
		}
		if _, err := s.purchaseRepo.UpdateStatus(ctx, purchase.ID,
			model.PurchaseStatusAwaitingPayment, model.PurchaseStatusFailed); err != nil {
			logger.WithComponent("reservation").Error("failed to fail purchase",
				zap.String("purchase_id", purchase.ID.String()), zap.Error(err))
		}
	}
}

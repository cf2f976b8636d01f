package service

import (
	"context"
	"fmt"
	"time"

	"raffle-service/internal/model"
	"raffle-service/internal/payment"
	"raffle-service/internal/pool"
	"raffle-service/internal/repository"
	apperrors "raffle-service/pkg/app_errors"
	"raffle-service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PurchaseService interface {
	// Initiate creates the gateway payment for a pending reservation and
	// persists the purchase as awaiting payment. The pool lock is never held
	// across the gateway call.
	Initiate(ctx context.Context, reservationID uuid.UUID, method string) (*model.Purchase, *payment.PaymentIntent, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Purchase, error)

	// OnPaymentSucceeded finalizes the sale. Idempotent: duplicate webhook
	// delivery for an already-paid purchase is a no-op.
	OnPaymentSucceeded(ctx context.Context, purchaseID uuid.UUID) error
	// OnPaymentFailed releases the hold. A purchase whose reservation was
	// already swept is a no-op, not an error.
	OnPaymentFailed(ctx context.Context, purchaseID uuid.UUID) error
	// OnReservationExpired fails any purchase still awaiting payment for a
	// reservation the sweep just expired.
	OnReservationExpired(ctx context.Context, reservation *model.Reservation) error
	// HandlePaymentEvent resolves a gateway notification to a purchase and
	// dispatches it. Tolerates duplicates and out-of-order delivery.
	HandlePaymentEvent(ctx context.Context, event *model.PaymentEvent) error
}

type PurchaseServiceImpl struct {
	raffleRepo      repository.RaffleRepository
	reservationRepo repository.ReservationRepository
	purchaseRepo    repository.PurchaseRepository
	numberPool      pool.NumberPool
	gateway         payment.Gateway
}

func NewPurchaseService(
	raffleRepo repository.RaffleRepository,
	reservationRepo repository.ReservationRepository,
	purchaseRepo repository.PurchaseRepository,
	numberPool pool.NumberPool,
	gateway payment.Gateway,
) PurchaseService {
	return &PurchaseServiceImpl{
		raffleRepo:      raffleRepo,
		reservationRepo: reservationRepo,
		purchaseRepo:    purchaseRepo,
		numberPool:      numberPool,
		gateway:         gateway,
	}
}

func (s *PurchaseServiceImpl) Initiate(ctx context.Context, reservationID uuid.UUID, method string) (*model.Purchase, *payment.PaymentIntent, error) {
	reservation, err := s.reservationRepo.FindByID(ctx, reservationID)
	if err != nil {
		return nil, nil, err
	}

	if reservation.Status != model.ReservationStatusPending {
		return nil, nil, apperrors.ErrInvalidState
	}
	if reservation.IsExpired(time.Now().UTC()) {
		return nil, nil, apperrors.ErrInvalidState
	}

	raffle, err := s.raffleRepo.FindByID(ctx, reservation.RaffleID)
	if err != nil {
		return nil, nil, err
	}

	amount := float64(len(reservation.Numbers)) * raffle.TicketPrice
	purchaseID := uuid.New()

	// gateway first: if it fails nothing is persisted, the reservation stays
	// pending and the buyer simply retries
	intent, err := s.gateway.CreatePayment(ctx, payment.PaymentRequest{
		Amount:      amount,
		Method:      method,
		Description: fmt.Sprintf("Rifa: %s (%d números)", raffle.Title, len(reservation.Numbers)),
		PayerEmail:  reservation.Buyer.Email,
		PayerName:   reservation.Buyer.Name,
		ReferenceID: purchaseID.String(),
	})
	if err != nil {
		return nil, nil, err
	}

	purchase, err := s.purchaseRepo.Create(ctx, &model.Purchase{
		ID:               purchaseID,
		ReservationID:    reservationID,
		Amount:           amount,
		PaymentMethod:    method,
		PaymentReference: intent.PaymentID,
		Status:           model.PurchaseStatusAwaitingPayment,
	})
	if err != nil {
		return nil, nil, err
	}

	return purchase, intent, nil
}

func (s *PurchaseServiceImpl) GetByID(ctx context.Context, id uuid.UUID) (*model.Purchase, error) {
	return s.purchaseRepo.FindByID(ctx, id)
}

func (s *PurchaseServiceImpl) OnPaymentSucceeded(ctx context.Context, purchaseID uuid.UUID) error {
	purchase, err := s.purchaseRepo.FindByID(ctx, purchaseID)
	if err != nil {
		return err
	}

	if purchase.Status == model.PurchaseStatusPaid {
		return nil // duplicate notification
	}
	if purchase.Status != model.PurchaseStatusAwaitingPayment {
		return apperrors.ErrInvalidState
	}

	reservation, err := s.reservationRepo.FindByID(ctx, purchase.ReservationID)
	if err != nil {
		return err
	}

	switch reservation.Status {
	case model.ReservationStatusConfirmed:
		// an earlier attempt confirmed the sale but died before marking the
		// purchase; finish that here
		return s.finalizePaid(ctx, reservation, purchase)
	case model.ReservationStatusPending:
		// fall through
	default:
		return apperrors.ErrInvalidState
	}

	if reservation.IsExpired(time.Now().UTC()) {
		// too late: the hold is past TTL, the sweep owns it now
		return apperrors.ErrInvalidState
	}

	// the CAS decides the race against the sweep; only the winner touches
	// the pool
	moved, err := s.reservationRepo.UpdateStatus(ctx, reservation.ID,
		model.ReservationStatusPending, model.ReservationStatusConfirmed)
	if err != nil {
		return err
	}
	if !moved {
		return apperrors.ErrInvalidState
	}

	return s.finalizePaid(ctx, reservation, purchase)
}

func (s *PurchaseServiceImpl) finalizePaid(ctx context.Context, reservation *model.Reservation, purchase *model.Purchase) error {
	if err := s.numberPool.ConfirmSale(ctx, reservation.RaffleID, reservation.ID, purchase.ID); err != nil {
		return err
	}

	if _, err := s.purchaseRepo.UpdateStatus(ctx, purchase.ID,
		model.PurchaseStatusAwaitingPayment, model.PurchaseStatusPaid); err != nil {
		return err
	}

	logger.WithComponent("purchase").Info("sale confirmed",
		zap.String("purchase_id", purchase.ID.String()),
		zap.String("reservation_id", reservation.ID.String()),
		zap.Int("raffle_id", reservation.RaffleID),
		zap.Int("numbers", len(reservation.Numbers)))

	return nil
}

func (s *PurchaseServiceImpl) OnPaymentFailed(ctx context.Context, purchaseID uuid.UUID) error {
	purchase, err := s.purchaseRepo.FindByID(ctx, purchaseID)
	if err != nil {
		return err
	}

	if purchase.Status == model.PurchaseStatusFailed {
		return nil // duplicate notification
	}
	if purchase.Status == model.PurchaseStatusPaid {
		return apperrors.ErrInvalidState
	}

	if _, err := s.purchaseRepo.UpdateStatus(ctx, purchase.ID,
		model.PurchaseStatusAwaitingPayment, model.PurchaseStatusFailed); err != nil {
		return err
	}

	reservation, err := s.reservationRepo.FindByID(ctx, purchase.ReservationID)
	if err != nil {
		return err
	}

	if reservation.Status != model.ReservationStatusPending {
		// already swept or cancelled: the numbers are gone, nothing to release
		return nil
	}

	moved, err := s.reservationRepo.UpdateStatus(ctx, reservation.ID,
		model.ReservationStatusPending, model.ReservationStatusReleased)
	if err != nil {
		return err
	}
	if !moved {
		return nil
	}

	if err := s.numberPool.Release(ctx, reservation.RaffleID, reservation.ID); err != nil {
		// hand the hold back to the sweep: a released reservation still holding
		// numbers would leak them, a pending one expires and retries
		if _, revErr := s.reservationRepo.UpdateStatus(ctx, reservation.ID,
			model.ReservationStatusReleased, model.ReservationStatusPending); revErr != nil {
			logger.WithComponent("purchase").Error("failed to revert reservation after release failure",
				zap.String("reservation_id", reservation.ID.String()), zap.Error(revErr))
		}
		return err
	}

	logger.WithComponent("purchase").Info("payment failed, hold released",
		zap.String("purchase_id", purchase.ID.String()),
		zap.String("reservation_id", reservation.ID.String()))

	return nil
}

func (s *PurchaseServiceImpl) OnReservationExpired(ctx context.Context, reservation *model.Reservation) error {
	purchases, err := s.purchaseRepo.FindByReservationID(ctx, reservation.ID)
	if err != nil {
		return err
	}

	for _, purchase := range purchases {
		if purchase.Status != model.PurchaseStatusAwaitingPayment {
			continue
		}
		if _, err := s.purchaseRepo.UpdateStatus(ctx, purchase.ID,
			model.PurchaseStatusAwaitingPayment, model.PurchaseStatusFailed); err != nil {
			return err
		}
		logger.WithComponent("purchase").Info("purchase failed after reservation expiry",
			zap.String("purchase_id", purchase.ID.String()),
			zap.String("reservation_id", reservation.ID.String()))
	}

	return nil
}

func (s *PurchaseServiceImpl) HandlePaymentEvent(ctx context.Context, event *model.PaymentEvent) error {
	purchase, err := s.purchaseRepo.FindByPaymentReference(ctx, event.PaymentID)
	if err != nil {
		return err
	}

	switch event.Type {
	case model.PaymentEventSucceeded:
		return s.OnPaymentSucceeded(ctx, purchase.ID)
	case model.PaymentEventFailed:
		return s.OnPaymentFailed(ctx, purchase.ID)
	default:
		return fmt.Errorf("%w: unknown payment event type %q", apperrors.ErrInvalidInput, event.Type)
	}
}

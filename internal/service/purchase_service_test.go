package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"raffle-service/internal/model"
	"raffle-service/internal/payment"
	"raffle-service/internal/pool"
	"raffle-service/internal/service"
	apperrors "raffle-service/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type purchaseFixture struct {
	raffleRepo      *RaffleRepositoryMock
	reservationRepo *ReservationRepositoryMock
	purchaseRepo    *PurchaseRepositoryMock
	pool            *pool.MemoryNumberPool
	gateway         *payment.MockGateway
	service         service.PurchaseService
}

func newPurchaseFixture(t *testing.T, totalNumbers int) *purchaseFixture {
	t.Helper()

	f := &purchaseFixture{
		raffleRepo:      &RaffleRepositoryMock{},
		reservationRepo: &ReservationRepositoryMock{},
		purchaseRepo:    &PurchaseRepositoryMock{},
		pool:            pool.NewMemoryNumberPool(500 * time.Millisecond),
		gateway:         payment.NewMockGateway(),
	}
	require.NoError(t, f.pool.InitRaffle(context.Background(), 1, totalNumbers))

	f.service = service.NewPurchaseService(
		f.raffleRepo, f.reservationRepo, f.purchaseRepo, f.pool, f.gateway)
	return f
}

func pendingReservation(id uuid.UUID, numbers []int) *model.Reservation {
	now := time.Now().UTC()
	return &model.Reservation{
		ID:        id,
		RaffleID:  1,
		Buyer:     testBuyer(),
		Numbers:   numbers,
		Status:    model.ReservationStatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(15 * time.Minute),
	}
}

func TestInitiate(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newPurchaseFixture(t, 10)
		resID := uuid.New()

		f.reservationRepo.On("FindByID", mock.Anything, resID).
			Return(pendingReservation(resID, []int{1, 2, 3}), nil)
		f.raffleRepo.On("FindByID", mock.Anything, 1).Return(activeRaffle(10), nil)
		f.purchaseRepo.On("Create", mock.Anything, mock.Anything).Return(nil, nil)

		purchase, intent, err := f.service.Initiate(ctx, resID, "pix")
		require.NoError(t, err)

		assert.Equal(t, 30.0, purchase.Amount) // 3 numbers x price 10
		assert.Equal(t, model.PurchaseStatusAwaitingPayment, purchase.Status)
		assert.Equal(t, intent.PaymentID, purchase.PaymentReference)
		assert.True(t, strings.HasPrefix(intent.PaymentID, "MOCK-"))
		assert.NotEmpty(t, intent.QRCode)

		created := f.gateway.Created()
		require.Len(t, created, 1)
		assert.Equal(t, purchase.ID.String(), created[0].ReferenceID)
	})

	t.Run("Failed - ReservationExpired", func(t *testing.T) {
		f := newPurchaseFixture(t, 10)
		resID := uuid.New()
		reservation := pendingReservation(resID, []int{1})
		reservation.ExpiresAt = time.Now().UTC().Add(-time.Minute)
		f.reservationRepo.On("FindByID", mock.Anything, resID).Return(reservation, nil)

		_, _, err := f.service.Initiate(ctx, resID, "pix")
		assert.ErrorIs(t, err, apperrors.ErrInvalidState)
		assert.Empty(t, f.gateway.Created())
	})

	t.Run("Failed - ReservationNotPending", func(t *testing.T) {
		f := newPurchaseFixture(t, 10)
		resID := uuid.New()
		reservation := pendingReservation(resID, []int{1})
		reservation.Status = model.ReservationStatusExpired
		f.reservationRepo.On("FindByID", mock.Anything, resID).Return(reservation, nil)

		_, _, err := f.service.Initiate(ctx, resID, "pix")
		assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	})

	t.Run("Failed - GatewayDown", func(t *testing.T) {
		f := newPurchaseFixture(t, 10)
		resID := uuid.New()
		f.reservationRepo.On("FindByID", mock.Anything, resID).
			Return(pendingReservation(resID, []int{1}), nil)
		f.raffleRepo.On("FindByID", mock.Anything, 1).Return(activeRaffle(10), nil)
		f.gateway.FailNext = apperrors.ErrGatewayUnavailable

		_, _, err := f.service.Initiate(ctx, resID, "pix")
		assert.ErrorIs(t, err, apperrors.ErrGatewayUnavailable)
		// nothing persisted, the buyer just retries while the hold lasts
		f.purchaseRepo.AssertNotCalled(t, "Create")
	})
}

func TestOnPaymentSucceeded(t *testing.T) {
	ctx := context.Background()

	awaiting := func(id, resID uuid.UUID) *model.Purchase {
		return &model.Purchase{
			ID: id, ReservationID: resID, Amount: 20,
			PaymentMethod: "pix", PaymentReference: "MOCK-ref",
			Status: model.PurchaseStatusAwaitingPayment,
		}
	}

	t.Run("ConfirmsSale", func(t *testing.T) {
		f := newPurchaseFixture(t, 10)
		resID, purchaseID := uuid.New(), uuid.New()
		require.NoError(t, f.pool.TryReserve(ctx, 1, []int{1, 2}, resID))

		f.purchaseRepo.On("FindByID", mock.Anything, purchaseID).Return(awaiting(purchaseID, resID), nil)
		f.reservationRepo.On("FindByID", mock.Anything, resID).
			Return(pendingReservation(resID, []int{1, 2}), nil)
		f.reservationRepo.On("UpdateStatus", mock.Anything, resID,
			model.ReservationStatusPending, model.ReservationStatusConfirmed).Return(true, nil)
		f.purchaseRepo.On("UpdateStatus", mock.Anything, purchaseID,
			model.PurchaseStatusAwaitingPayment, model.PurchaseStatusPaid).Return(true, nil)

		require.NoError(t, f.service.OnPaymentSucceeded(ctx, purchaseID))

		snapshot, err := f.pool.Snapshot(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, snapshot.Sold)
		f.purchaseRepo.AssertExpectations(t)
	})

	t.Run("DuplicateIsNoop", func(t *testing.T) {
		f := newPurchaseFixture(t, 10)
		purchaseID := uuid.New()
		paid := awaiting(purchaseID, uuid.New())
		paid.Status = model.PurchaseStatusPaid
		f.purchaseRepo.On("FindByID", mock.Anything, purchaseID).Return(paid, nil)

		assert.NoError(t, f.service.OnPaymentSucceeded(ctx, purchaseID))
		f.reservationRepo.AssertNotCalled(t, "FindByID")
	})

	t.Run("Failed - ReservationExpiredBeforeWebhook", func(t *testing.T) {
		f := newPurchaseFixture(t, 10)
		resID, purchaseID := uuid.New(), uuid.New()
		reservation := pendingReservation(resID, []int{1})
		reservation.ExpiresAt = time.Now().UTC().Add(-time.Minute)

		f.purchaseRepo.On("FindByID", mock.Anything, purchaseID).Return(awaiting(purchaseID, resID), nil)
		f.reservationRepo.On("FindByID", mock.Anything, resID).Return(reservation, nil)

		err := f.service.OnPaymentSucceeded(ctx, purchaseID)
		assert.ErrorIs(t, err, apperrors.ErrInvalidState)
		f.reservationRepo.AssertNotCalled(t, "UpdateStatus")
	})

	t.Run("Failed - LostRaceAgainstSweep", func(t *testing.T) {
		f := newPurchaseFixture(t, 10)
		resID, purchaseID := uuid.New(), uuid.New()

		f.purchaseRepo.On("FindByID", mock.Anything, purchaseID).Return(awaiting(purchaseID, resID), nil)
		f.reservationRepo.On("FindByID", mock.Anything, resID).
			Return(pendingReservation(resID, []int{1}), nil)
		// the sweep expired it between the read and the CAS
		f.reservationRepo.On("UpdateStatus", mock.Anything, resID,
			model.ReservationStatusPending, model.ReservationStatusConfirmed).Return(false, nil)

		err := f.service.OnPaymentSucceeded(ctx, purchaseID)
		assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	})

	t.Run("FinishesCrashedConfirmation", func(t *testing.T) {
		f := newPurchaseFixture(t, 10)
		resID, purchaseID := uuid.New(), uuid.New()
		// the earlier attempt confirmed the reservation and the sale, then died
		// before marking the purchase paid
		require.NoError(t, f.pool.TryReserve(ctx, 1, []int{5}, resID))
		require.NoError(t, f.pool.ConfirmSale(ctx, 1, resID, purchaseID))

		confirmed := pendingReservation(resID, []int{5})
		confirmed.Status = model.ReservationStatusConfirmed

		f.purchaseRepo.On("FindByID", mock.Anything, purchaseID).Return(awaiting(purchaseID, resID), nil)
		f.reservationRepo.On("FindByID", mock.Anything, resID).Return(confirmed, nil)
		f.purchaseRepo.On("UpdateStatus", mock.Anything, purchaseID,
			model.PurchaseStatusAwaitingPayment, model.PurchaseStatusPaid).Return(true, nil)

		require.NoError(t, f.service.OnPaymentSucceeded(ctx, purchaseID))
		f.purchaseRepo.AssertExpectations(t)
	})
}

func TestOnPaymentFailed(t *testing.T) {
	ctx := context.Background()

	t.Run("ReleasesHold", func(t *testing.T) {
		f := newPurchaseFixture(t, 10)
		resID, purchaseID := uuid.New(), uuid.New()
		require.NoError(t, f.pool.TryReserve(ctx, 1, []int{1, 2}, resID))

		f.purchaseRepo.On("FindByID", mock.Anything, purchaseID).Return(&model.Purchase{
			ID: purchaseID, ReservationID: resID, Status: model.PurchaseStatusAwaitingPayment,
		}, nil)
		f.purchaseRepo.On("UpdateStatus", mock.Anything, purchaseID,
			model.PurchaseStatusAwaitingPayment, model.PurchaseStatusFailed).Return(true, nil)
		f.reservationRepo.On("FindByID", mock.Anything, resID).
			Return(pendingReservation(resID, []int{1, 2}), nil)
		f.reservationRepo.On("UpdateStatus", mock.Anything, resID,
			model.ReservationStatusPending, model.ReservationStatusReleased).Return(true, nil)

		require.NoError(t, f.service.OnPaymentFailed(ctx, purchaseID))

		count, err := f.pool.AvailableCount(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 10, count)
	})

	t.Run("DuplicateIsNoop", func(t *testing.T) {
		f := newPurchaseFixture(t, 10)
		purchaseID := uuid.New()
		f.purchaseRepo.On("FindByID", mock.Anything, purchaseID).Return(&model.Purchase{
			ID: purchaseID, Status: model.PurchaseStatusFailed,
		}, nil)

		assert.NoError(t, f.service.OnPaymentFailed(ctx, purchaseID))
		f.purchaseRepo.AssertNotCalled(t, "UpdateStatus")
	})

	t.Run("Failed - AlreadyPaid", func(t *testing.T) {
		f := newPurchaseFixture(t, 10)
		purchaseID := uuid.New()
		f.purchaseRepo.On("FindByID", mock.Anything, purchaseID).Return(&model.Purchase{
			ID: purchaseID, Status: model.PurchaseStatusPaid,
		}, nil)

		assert.ErrorIs(t, f.service.OnPaymentFailed(ctx, purchaseID), apperrors.ErrInvalidState)
	})

	t.Run("ReleaseFailureKeepsHoldPending", func(t *testing.T) {
		f := newPurchaseFixture(t, 10)
		flaky := &flakyNumberPool{NumberPool: f.pool, releaseErrs: 1, releaseErr: apperrors.ErrPoolBusy}
		svc := service.NewPurchaseService(
			f.raffleRepo, f.reservationRepo, f.purchaseRepo, flaky, f.gateway)

		resID, purchaseID := uuid.New(), uuid.New()
		require.NoError(t, f.pool.TryReserve(ctx, 1, []int{1, 2}, resID))

		f.purchaseRepo.On("FindByID", mock.Anything, purchaseID).Return(&model.Purchase{
			ID: purchaseID, ReservationID: resID, Status: model.PurchaseStatusAwaitingPayment,
		}, nil)
		f.purchaseRepo.On("UpdateStatus", mock.Anything, purchaseID,
			model.PurchaseStatusAwaitingPayment, model.PurchaseStatusFailed).Return(true, nil)
		f.reservationRepo.On("FindByID", mock.Anything, resID).
			Return(pendingReservation(resID, []int{1, 2}), nil)
		f.reservationRepo.On("UpdateStatus", mock.Anything, resID,
			model.ReservationStatusPending, model.ReservationStatusReleased).Return(true, nil)
		// the reservation goes back to pending so the sweep releases the
		// numbers at TTL instead of leaking them under a released status
		f.reservationRepo.On("UpdateStatus", mock.Anything, resID,
			model.ReservationStatusReleased, model.ReservationStatusPending).Return(true, nil).Once()

		assert.ErrorIs(t, svc.OnPaymentFailed(ctx, purchaseID), apperrors.ErrPoolBusy)
		f.reservationRepo.AssertExpectations(t)
	})

	t.Run("SweptReservationIsNoop", func(t *testing.T) {
		f := newPurchaseFixture(t, 10)
		resID, purchaseID := uuid.New(), uuid.New()
		swept := pendingReservation(resID, []int{1})
		swept.Status = model.ReservationStatusExpired

		f.purchaseRepo.On("FindByID", mock.Anything, purchaseID).Return(&model.Purchase{
			ID: purchaseID, ReservationID: resID, Status: model.PurchaseStatusAwaitingPayment,
		}, nil)
		f.purchaseRepo.On("UpdateStatus", mock.Anything, purchaseID,
			model.PurchaseStatusAwaitingPayment, model.PurchaseStatusFailed).Return(true, nil)
		f.reservationRepo.On("FindByID", mock.Anything, resID).Return(swept, nil)

		// no release: the sweep already gave the numbers back
		assert.NoError(t, f.service.OnPaymentFailed(ctx, purchaseID))
		f.reservationRepo.AssertNotCalled(t, "UpdateStatus")
	})
}

func TestOnReservationExpired(t *testing.T) {
	ctx := context.Background()
	f := newPurchaseFixture(t, 10)
	resID := uuid.New()
	reservation := pendingReservation(resID, []int{1})

	awaitingID, paidID := uuid.New(), uuid.New()
	f.purchaseRepo.On("FindByReservationID", mock.Anything, resID).Return([]*model.Purchase{
		{ID: awaitingID, ReservationID: resID, Status: model.PurchaseStatusAwaitingPayment},
		{ID: paidID, ReservationID: resID, Status: model.PurchaseStatusPaid},
	}, nil)
	f.purchaseRepo.On("UpdateStatus", mock.Anything, awaitingID,
		model.PurchaseStatusAwaitingPayment, model.PurchaseStatusFailed).Return(true, nil)

	require.NoError(t, f.service.OnReservationExpired(ctx, reservation))

	// only the awaiting purchase is failed
	f.purchaseRepo.AssertNumberOfCalls(t, "UpdateStatus", 1)
}

func TestHandlePaymentEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("DispatchesSucceeded", func(t *testing.T) {
		f := newPurchaseFixture(t, 10)
		purchaseID := uuid.New()
		paid := &model.Purchase{ID: purchaseID, Status: model.PurchaseStatusPaid}

		f.purchaseRepo.On("FindByPaymentReference", mock.Anything, "MOCK-ref").Return(paid, nil)
		f.purchaseRepo.On("FindByID", mock.Anything, purchaseID).Return(paid, nil)

		err := f.service.HandlePaymentEvent(ctx, &model.PaymentEvent{
			PaymentID: "MOCK-ref",
			Type:      model.PaymentEventSucceeded,
		})
		assert.NoError(t, err)
	})

	t.Run("Failed - UnknownReference", func(t *testing.T) {
		f := newPurchaseFixture(t, 10)
		f.purchaseRepo.On("FindByPaymentReference", mock.Anything, "nope").
			Return(nil, apperrors.ErrPurchaseNotFound)

		err := f.service.HandlePaymentEvent(ctx, &model.PaymentEvent{
			PaymentID: "nope", Type: model.PaymentEventSucceeded,
		})
		assert.ErrorIs(t, err, apperrors.ErrPurchaseNotFound)
	})

	t.Run("Failed - UnknownEventType", func(t *testing.T) {
		f := newPurchaseFixture(t, 10)
		purchaseID := uuid.New()
		f.purchaseRepo.On("FindByPaymentReference", mock.Anything, "MOCK-ref").
			Return(&model.Purchase{ID: purchaseID, Status: model.PurchaseStatusAwaitingPayment}, nil)

		err := f.service.HandlePaymentEvent(ctx, &model.PaymentEvent{
			PaymentID: "MOCK-ref", Type: "refunded",
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

package worker

import (
	"context"
	"time"

	"raffle-service/internal/service"
	"raffle-service/pkg/logger"

	"go.uber.org/zap"
)

type SweepWorker interface {
	// Start 啟動過期掃描循環
	Start(ctx context.Context) error
}

// SweepWorkerImpl ticks on a fixed interval and expires reservations past
// their TTL. TTL enforcement does not depend on any request arriving.
type SweepWorkerImpl struct {
	reservationService service.ReservationService
	purchaseService    service.PurchaseService
	interval           time.Duration
}

func NewSweepWorker(
	reservationService service.ReservationService,
	purchaseService service.PurchaseService,
	interval time.Duration,
) SweepWorker {
	return &SweepWorkerImpl{
		reservationService: reservationService,
		purchaseService:    purchaseService,
		interval:           interval,
	}
}

func (w *SweepWorkerImpl) Start(ctx context.Context) error {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.sweepOnce(ctx)
			}
		}
	}()
	return nil
}

func (w *SweepWorkerImpl) sweepOnce(ctx context.Context) {
	log := logger.WithComponent("sweep")

	expired, err := w.reservationService.SweepExpired(ctx)
	if err != nil {
		log.Error("sweep pass failed", zap.Error(err))
		return
	}
	if len(expired) == 0 {
		return
	}

	log.Info("expired reservations released", zap.Int("count", len(expired)))

	for _, reservation := range expired {
		if err := w.purchaseService.OnReservationExpired(ctx, reservation); err != nil {
			log.Error("failed to fail purchases of expired reservation",
				zap.String("reservation_id", reservation.ID.String()), zap.Error(err))
		}
	}
}

package worker

import (
	"context"
	"errors"

	"raffle-service/internal/queue"
	"raffle-service/internal/service"
	apperrors "raffle-service/pkg/app_errors"
	"raffle-service/pkg/logger"

	"go.uber.org/zap"
)

type PaymentWorker interface {
	// Start 訂閱支付事件隊列
	Start(ctx context.Context) error
}

type PaymentWorkerImpl struct {
	service service.PurchaseService
	queue   queue.PaymentEventQueue
}

func NewPaymentWorker(service service.PurchaseService, queue queue.PaymentEventQueue) PaymentWorker {
	return &PaymentWorkerImpl{
		service: service,
		queue:   queue,
	}
}

func (w *PaymentWorkerImpl) Start(ctx context.Context) error {
	msgs, err := w.queue.Subscribe(ctx)
	if err != nil {
		return err
	}

	go func() {
		for msg := range msgs {
			err := w.service.HandlePaymentEvent(ctx, msg.Data)

			switch {
			case err == nil:
				msg.Ack()
			case w.isPermanent(err):
				// retrying cannot change the outcome; ack and move on
				logger.WithComponent("worker").Warn("payment event dropped",
					zap.String("payment_id", msg.Data.PaymentID),
					zap.String("type", string(msg.Data.Type)),
					zap.Error(err))
				msg.Ack()
			default:
				// transient (db down, pool busy): leave it for a delayed retry
				msg.Nack(true)
			}
		}
	}()
	return nil
}

func (w *PaymentWorkerImpl) isPermanent(err error) bool {
	return errors.Is(err, apperrors.ErrInvalidState) ||
		errors.Is(err, apperrors.ErrPurchaseNotFound) ||
		errors.Is(err, apperrors.ErrInvalidInput)
}

package queue

import (
	"context"

	"raffle-service/internal/model"
)

type Delivery struct {
	Data *model.PaymentEvent
	Ack  func()
	Nack func(requeue bool)
}

// PaymentEventQueue decouples webhook ingestion from purchase finalization:
// the handler acknowledges the gateway fast, the worker applies the outcome.
type PaymentEventQueue interface {
	Publish(ctx context.Context, event *model.PaymentEvent) error
	Subscribe(ctx context.Context) (<-chan Delivery, error)
}

// MemoryPaymentEventQueue channel 版隊列，單機部署與測試用
type MemoryPaymentEventQueue struct {
	ch chan *model.PaymentEvent
}

func NewMemoryPaymentEventQueue(bufferSize int) *MemoryPaymentEventQueue {
	return &MemoryPaymentEventQueue{
		ch: make(chan *model.PaymentEvent, bufferSize),
	}
}

func (q *MemoryPaymentEventQueue) Publish(ctx context.Context, event *model.PaymentEvent) error {
	select {
	case q.ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryPaymentEventQueue) Subscribe(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-q.ch:
				if !ok {
					return
				}

				out <- Delivery{
					Data: event,
					Ack:  func() { /* nothing to do for the memory version */ },
					Nack: func(requeue bool) {
						if !requeue {
							return
						}
						// non-blocking: a synchronous send on a full buffer
						// would deadlock against the delivery goroutine
						select {
						case q.ch <- event:
						default:
						}
					},
				}
			}
		}
	}()

	return out, nil
}

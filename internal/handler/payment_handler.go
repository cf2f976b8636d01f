package handler

import (
	"net/http"
	"time"

	"raffle-service/internal/model"
	"raffle-service/internal/queue"
	"raffle-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PaymentHandler ingests gateway webhooks. It only validates and enqueues;
// the payment worker applies the outcome so the gateway gets its 200 fast
// and retries never hit the pool directly.
type PaymentHandler struct {
	queue queue.PaymentEventQueue
}

func NewPaymentHandler(queue queue.PaymentEventQueue) *PaymentHandler {
	return &PaymentHandler{queue: queue}
}

func (h *PaymentHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.POST("payments/webhook", h.HandleWebhook)
	}
}

type webhookRequest struct {
	PaymentID string `json:"payment_id" binding:"required"`
	Status    string `json:"status" binding:"required"`
	Reason    string `json:"reason"`
}

func (h *PaymentHandler) HandleWebhook(c *gin.Context) {
	var req webhookRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	event := &model.PaymentEvent{
		PaymentID:  req.PaymentID,
		Reason:     req.Reason,
		ReceivedAt: time.Now().UTC(),
	}

	switch req.Status {
	case "approved":
		event.Type = model.PaymentEventSucceeded
	case "rejected", "cancelled", "expired":
		event.Type = model.PaymentEventFailed
	default:
		// statuses like "pending" and "in_process" carry no outcome yet
		logger.WithComponent("webhook").Info("ignoring non-terminal payment status",
			zap.String("payment_id", req.PaymentID), zap.String("status", req.Status))
		c.Status(http.StatusOK)
		return
	}

	if err := h.queue.Publish(c, event); err != nil {
		logger.WithComponent("webhook").Error("failed to enqueue payment event",
			zap.String("payment_id", req.PaymentID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	c.Status(http.StatusOK)
}

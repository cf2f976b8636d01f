package handler

import (
	"errors"
	"net/http"
	"strconv"

	apperrors "raffle-service/pkg/app_errors"
	"raffle-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func BindJson(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return err
	}
	return nil
}

func ParamInt(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + name + " parameter",
		})
		return 0, false
	}
	return v, true
}

func ParamUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	v, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + name + " parameter",
		})
		return uuid.Nil, false
	}
	return v, true
}

// handleServiceError maps service errors to HTTP responses. One mapping for
// every handler so a given error always produces the same status.
func handleServiceError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))

	var unavailable *apperrors.NumbersUnavailableError

	switch {
	case errors.As(err, &unavailable):
		log.Warn("Numbers unavailable")
		c.JSON(http.StatusConflict, gin.H{
			"error":               "Numbers unavailable",
			"conflicting_numbers": unavailable.Numbers,
		})
	case errors.Is(err, apperrors.ErrRaffleNotFound),
		errors.Is(err, apperrors.ErrReservationNotFound),
		errors.Is(err, apperrors.ErrPurchaseNotFound):
		log.Warn("Not found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
	case errors.Is(err, apperrors.ErrNoNumbersSelected),
		errors.Is(err, apperrors.ErrDuplicateNumbers),
		errors.Is(err, apperrors.ErrNumberOutOfRange),
		errors.Is(err, apperrors.ErrInvalidBuyer),
		errors.Is(err, apperrors.ErrInvalidInput):
		log.Warn("Invalid request")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
	case errors.Is(err, apperrors.ErrRaffleNotAcceptingReservations),
		errors.Is(err, apperrors.ErrInvalidStatusTransition),
		errors.Is(err, apperrors.ErrRaffleHasSoldNumbers),
		errors.Is(err, apperrors.ErrRaffleNotDrawn),
		errors.Is(err, apperrors.ErrNoNumbersSold):
		log.Warn("Lifecycle rejected")
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": err.Error(),
		})
	case errors.Is(err, apperrors.ErrInvalidState):
		log.Warn("Invalid state")
		c.JSON(http.StatusConflict, gin.H{
			"error": err.Error(),
		})
	case errors.Is(err, apperrors.ErrPoolBusy):
		log.Warn("Pool busy")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":     "Try again shortly",
			"retryable": true,
		})
	case errors.Is(err, apperrors.ErrGatewayUnavailable):
		log.Warn("Gateway unavailable")
		c.JSON(http.StatusBadGateway, gin.H{
			"error":     "Payment gateway unavailable",
			"retryable": true,
		})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}

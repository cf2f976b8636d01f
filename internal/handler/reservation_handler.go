package handler

import (
	"net/http"

	"raffle-service/internal/model"
	"raffle-service/internal/payment"
	"raffle-service/internal/service"

	"github.com/gin-gonic/gin"
)

type ReservationHandler struct {
	reservationService service.ReservationService
	purchaseService    service.PurchaseService
}

func NewReservationHandler(reservationService service.ReservationService, purchaseService service.PurchaseService) *ReservationHandler {
	return &ReservationHandler{
		reservationService: reservationService,
		purchaseService:    purchaseService,
	}
}

func (h *ReservationHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.POST("raffles/:id/reservations", h.CreateReservation)
		router.GET("reservations/:id", h.GetReservation)
		router.DELETE("reservations/:id", h.CancelReservation)
		router.POST("reservations/:id/purchase", h.InitiatePurchase)
		router.GET("purchases/:id", h.GetPurchase)
	}
}

// reservationResponse bundles the hold with its payment intent so the buyer
// gets the QR code in one round trip.
type reservationResponse struct {
	Reservation *model.Reservation     `json:"reservation"`
	Purchase    *model.Purchase        `json:"purchase,omitempty"`
	Payment     *payment.PaymentIntent `json:"payment,omitempty"`
}

func (h *ReservationHandler) CreateReservation(c *gin.Context) {
	raffleID, ok := ParamInt(c, "id")
	if !ok {
		return
	}

	var req model.CreateReservationRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	reservation, err := h.reservationService.Reserve(c, raffleID, req.Buyer, req.Numbers)
	if err != nil {
		handleServiceError(c, err, "CreateReservation")
		return
	}

	// the hold survives a gateway hiccup; the buyer retries payment via
	// POST /reservations/:id/purchase while the TTL lasts
	purchase, intent, err := h.purchaseService.Initiate(c, reservation.ID, req.PaymentMethod)
	if err != nil {
		c.JSON(http.StatusCreated, reservationResponse{Reservation: reservation})
		return
	}

	c.JSON(http.StatusCreated, reservationResponse{
		Reservation: reservation,
		Purchase:    purchase,
		Payment:     intent,
	})
}

func (h *ReservationHandler) GetReservation(c *gin.Context) {
	id, ok := ParamUUID(c, "id")
	if !ok {
		return
	}

	reservation, err := h.reservationService.GetByID(c, id)
	if err != nil {
		handleServiceError(c, err, "GetReservation")
		return
	}

	c.JSON(http.StatusOK, reservation)
}

func (h *ReservationHandler) CancelReservation(c *gin.Context) {
	id, ok := ParamUUID(c, "id")
	if !ok {
		return
	}

	if err := h.reservationService.Cancel(c, id); err != nil {
		handleServiceError(c, err, "CancelReservation")
		return
	}

	c.Status(http.StatusNoContent)
}

type initiatePurchaseRequest struct {
	PaymentMethod string `json:"payment_method" binding:"required,oneof=pix credit_card boleto"`
}

func (h *ReservationHandler) InitiatePurchase(c *gin.Context) {
	id, ok := ParamUUID(c, "id")
	if !ok {
		return
	}

	var req initiatePurchaseRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	purchase, intent, err := h.purchaseService.Initiate(c, id, req.PaymentMethod)
	if err != nil {
		handleServiceError(c, err, "InitiatePurchase")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"purchase": purchase,
		"payment":  intent,
	})
}

func (h *ReservationHandler) GetPurchase(c *gin.Context) {
	id, ok := ParamUUID(c, "id")
	if !ok {
		return
	}

	purchase, err := h.purchaseService.GetByID(c, id)
	if err != nil {
		handleServiceError(c, err, "GetPurchase")
		return
	}

	c.JSON(http.StatusOK, purchase)
}

package handler

import (
	"net/http"

	"raffle-service/internal/model"
	"raffle-service/internal/service"

	"github.com/gin-gonic/gin"
)

type RaffleHandler struct {
	service service.RaffleService
}

func NewRaffleHandler(service service.RaffleService) *RaffleHandler {
	return &RaffleHandler{service: service}
}

func (h *RaffleHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("raffles", h.ListRaffles)
		router.POST("raffles", h.CreateRaffle)
		router.GET("raffles/:id", h.GetRaffle)
		router.PUT("raffles/:id", h.UpdateRaffle)
		router.DELETE("raffles/:id", h.CancelRaffle)
		router.PUT("raffles/:id/status", h.UpdateRaffleStatus)
		router.GET("raffles/:id/numbers", h.GetNumberBoard)
		router.GET("raffles/:id/tickets", h.GetParticipants)
		router.POST("raffles/:id/draw", h.DrawRaffle)
		router.GET("raffles/:id/winner", h.GetWinner)
	}
}

func (h *RaffleHandler) CreateRaffle(c *gin.Context) {
	var req model.Raffle

	if err := BindJson(c, &req); err != nil {
		return
	}

	created, err := h.service.Create(c, &req)
	if err != nil {
		handleServiceError(c, err, "CreateRaffle")
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *RaffleHandler) ListRaffles(c *gin.Context) {
	raffles, err := h.service.List(c)
	if err != nil {
		handleServiceError(c, err, "ListRaffles")
		return
	}

	c.JSON(http.StatusOK, raffles)
}

func (h *RaffleHandler) GetRaffle(c *gin.Context) {
	id, ok := ParamInt(c, "id")
	if !ok {
		return
	}

	raffle, err := h.service.GetByID(c, id)
	if err != nil {
		handleServiceError(c, err, "GetRaffle")
		return
	}

	c.JSON(http.StatusOK, raffle)
}

func (h *RaffleHandler) UpdateRaffle(c *gin.Context) {
	id, ok := ParamInt(c, "id")
	if !ok {
		return
	}

	var params model.UpdateRaffleParams
	if err := BindJson(c, &params); err != nil {
		return
	}

	updated, err := h.service.Update(c, id, params)
	if err != nil {
		handleServiceError(c, err, "UpdateRaffle")
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (h *RaffleHandler) CancelRaffle(c *gin.Context) {
	id, ok := ParamInt(c, "id")
	if !ok {
		return
	}

	if err := h.service.Cancel(c, id); err != nil {
		handleServiceError(c, err, "CancelRaffle")
		return
	}

	c.Status(http.StatusNoContent)
}

type updateStatusRequest struct {
	Status model.RaffleStatus `json:"status" binding:"required"`
}

func (h *RaffleHandler) UpdateRaffleStatus(c *gin.Context) {
	id, ok := ParamInt(c, "id")
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	if err := h.service.UpdateStatus(c, id, req.Status); err != nil {
		handleServiceError(c, err, "UpdateRaffleStatus")
		return
	}

	c.Status(http.StatusOK)
}

func (h *RaffleHandler) GetNumberBoard(c *gin.Context) {
	id, ok := ParamInt(c, "id")
	if !ok {
		return
	}

	board, err := h.service.NumberBoard(c, id)
	if err != nil {
		handleServiceError(c, err, "GetNumberBoard")
		return
	}

	c.JSON(http.StatusOK, board)
}

func (h *RaffleHandler) GetParticipants(c *gin.Context) {
	id, ok := ParamInt(c, "id")
	if !ok {
		return
	}

	reservations, stats, err := h.service.Participants(c, id)
	if err != nil {
		handleServiceError(c, err, "GetParticipants")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reservations": reservations,
		"stats":        stats,
	})
}

func (h *RaffleHandler) DrawRaffle(c *gin.Context) {
	id, ok := ParamInt(c, "id")
	if !ok {
		return
	}

	winner, err := h.service.Draw(c, id)
	if err != nil {
		handleServiceError(c, err, "DrawRaffle")
		return
	}

	c.JSON(http.StatusOK, winner)
}

func (h *RaffleHandler) GetWinner(c *gin.Context) {
	id, ok := ParamInt(c, "id")
	if !ok {
		return
	}

	winner, err := h.service.Winner(c, id)
	if err != nil {
		handleServiceError(c, err, "GetWinner")
		return
	}

	c.JSON(http.StatusOK, winner)
}

package service

import (
	"context"
	"math/rand"
	"time"

	"raffle-service/internal/cache"
	"raffle-service/internal/model"
	"raffle-service/internal/pool"
	"raffle-service/internal/repository"
	apperrors "raffle-service/pkg/app_errors"
	"raffle-service/pkg/logger"

	"go.uber.org/zap"
)

type RaffleService interface {
	Create(ctx context.Context, raffle *model.Raffle) (*model.Raffle, error)
	List(ctx context.Context) ([]*model.RaffleResponse, error)
	GetByID(ctx context.Context, id int) (*model.RaffleResponse, error)
	Update(ctx context.Context, id int, params model.UpdateRaffleParams) (*model.Raffle, error)
	// UpdateStatus applies an administrator-triggered lifecycle transition.
	// drawn is reachable only through Draw, cancelled only through Cancel.
	UpdateStatus(ctx context.Context, id int, target model.RaffleStatus) error
	// Cancel marks a raffle cancelled. Refused once any number is sold.
	Cancel(ctx context.Context, id int) error
	// NumberBoard serves the public available/reserved/sold view, cached.
	NumberBoard(ctx context.Context, id int) (*model.NumberSnapshot, error)
	Participants(ctx context.Context, id int) ([]*model.Reservation, *model.RaffleStats, error)
	// Draw picks a random winner among the sold numbers of a closed raffle.
	Draw(ctx context.Context, id int) (*model.Winner, error)
	Winner(ctx context.Context, id int) (*model.Winner, error)
}

type RaffleServiceImpl struct {
	raffleRepo      repository.RaffleRepository
	reservationRepo repository.ReservationRepository
	purchaseRepo    repository.PurchaseRepository
	numberPool      pool.NumberPool
	boardCache      cache.NumberBoardCache
}

func NewRaffleService(
	raffleRepo repository.RaffleRepository,
	reservationRepo repository.ReservationRepository,
	purchaseRepo repository.PurchaseRepository,
	numberPool pool.NumberPool,
	boardCache cache.NumberBoardCache,
) RaffleService {
	return &RaffleServiceImpl{
		raffleRepo:      raffleRepo,
		reservationRepo: reservationRepo,
		purchaseRepo:    purchaseRepo,
		numberPool:      numberPool,
		boardCache:      boardCache,
	}
}

func (s *RaffleServiceImpl) Create(ctx context.Context, raffle *model.Raffle) (*model.Raffle, error) {
	if raffle.Title == "" || raffle.TicketPrice <= 0 || raffle.TotalNumbers < 1 {
		return nil, apperrors.ErrInvalidInput
	}

	if raffle.Status == "" {
		raffle.Status = model.RaffleStatusDraft
	}
	// raffles are born draft or directly active, never further along
	if raffle.Status != model.RaffleStatusDraft && raffle.Status != model.RaffleStatusActive {
		return nil, apperrors.ErrInvalidInput
	}

	created, err := s.raffleRepo.Create(ctx, raffle)
	if err != nil {
		return nil, err
	}

	if err := s.numberPool.InitRaffle(ctx, created.ID, created.TotalNumbers); err != nil {
		// undo the insert: a raffle without a seeded pool can never serve its
		// board, so the row must not survive the failure
		if delErr := s.raffleRepo.Delete(ctx, created.ID); delErr != nil {
			logger.WithComponent("raffle").Error("failed to delete raffle after seed failure",
				zap.Int("raffle_id", created.ID), zap.Error(delErr))
		}
		return nil, err
	}

	logger.WithComponent("raffle").Info("raffle created",
		zap.Int("raffle_id", created.ID),
		zap.Int("total_numbers", created.TotalNumbers),
		zap.String("status", string(created.Status)))

	return created, nil
}

func (s *RaffleServiceImpl) List(ctx context.Context) ([]*model.RaffleResponse, error) {
	raffles, err := s.raffleRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]*model.RaffleResponse, 0, len(raffles))
	for _, raffle := range raffles {
		responses = append(responses, s.withCounts(ctx, raffle))
	}

	return responses, nil
}

func (s *RaffleServiceImpl) GetByID(ctx context.Context, id int) (*model.RaffleResponse, error) {
	raffle, err := s.raffleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return s.withCounts(ctx, raffle), nil
}

func (s *RaffleServiceImpl) withCounts(ctx context.Context, raffle *model.Raffle) *model.RaffleResponse {
	response := &model.RaffleResponse{
		Raffle:           raffle,
		AvailableNumbers: raffle.TotalNumbers,
	}

	snapshot, err := s.NumberBoard(ctx, raffle.ID)
	if err != nil {
		logger.WithComponent("raffle").Warn("failed to load number board for counts",
			zap.Int("raffle_id", raffle.ID), zap.Error(err))
		return response
	}

	response.SoldNumbers = len(snapshot.Sold)
	response.ReservedNumbers = len(snapshot.Reserved)
	response.AvailableNumbers = len(snapshot.Available)
	return response
}

func (s *RaffleServiceImpl) Update(ctx context.Context, id int, params model.UpdateRaffleParams) (*model.Raffle, error) {
	values := map[string]interface{}{}
	if params.Title != nil {
		values["title"] = *params.Title
	}
	if params.Description != nil {
		values["description"] = *params.Description
	}
	if params.ImageURL != nil {
		values["image_url"] = *params.ImageURL
	}
	if params.TicketPrice != nil {
		if *params.TicketPrice <= 0 {
			return nil, apperrors.ErrInvalidInput
		}
		values["ticket_price"] = *params.TicketPrice
	}
	if params.DrawDate != nil {
		values["draw_date"] = *params.DrawDate
	}

	return s.raffleRepo.Update(ctx, id, values)
}

func (s *RaffleServiceImpl) UpdateStatus(ctx context.Context, id int, target model.RaffleStatus) error {
	if !target.IsValid() || target == model.RaffleStatusDrawn || target == model.RaffleStatusCancelled {
		return apperrors.ErrInvalidStatusTransition
	}

	raffle, err := s.raffleRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if !raffle.Status.CanTransitionTo(target) {
		return apperrors.ErrInvalidStatusTransition
	}

	return s.raffleRepo.UpdateStatus(ctx, id, raffle.Status, target)
}

func (s *RaffleServiceImpl) Cancel(ctx context.Context, id int) error {
	raffle, err := s.raffleRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	switch raffle.Status {
	case model.RaffleStatusCancelled:
		return nil // already cancelled
	case model.RaffleStatusDrawn:
		return apperrors.ErrInvalidStatusTransition
	}

	snapshot, err := s.numberPool.Snapshot(ctx, id)
	if err != nil {
		return err
	}

	// buyers who paid keep their claim; pending holds just expire
	if len(snapshot.Sold) > 0 {
		return apperrors.ErrRaffleHasSoldNumbers
	}

	if err := s.raffleRepo.UpdateStatus(ctx, id, raffle.Status, model.RaffleStatusCancelled); err != nil {
		return err
	}

	logger.WithComponent("raffle").Info("raffle cancelled",
		zap.Int("raffle_id", id))

	return nil
}

func (s *RaffleServiceImpl) NumberBoard(ctx context.Context, id int) (*model.NumberSnapshot, error) {
	if cached, err := s.boardCache.Get(ctx, id); err == nil && cached != nil {
		return cached, nil
	} else if err != nil {
		logger.WithComponent("raffle").Warn("board cache read failed",
			zap.Int("raffle_id", id), zap.Error(err))
	}

	snapshot, err := s.numberPool.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.boardCache.Set(ctx, id, snapshot); err != nil {
		logger.WithComponent("raffle").Warn("board cache write failed",
			zap.Int("raffle_id", id), zap.Error(err))
	}

	return snapshot, nil
}

func (s *RaffleServiceImpl) Participants(ctx context.Context, id int) ([]*model.Reservation, *model.RaffleStats, error) {
	raffle, err := s.raffleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	reservations, err := s.reservationRepo.ListByRaffle(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	snapshot, err := s.numberPool.Snapshot(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	revenue, err := s.purchaseRepo.RevenueByRaffle(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	stats := &model.RaffleStats{
		TotalNumbers:     raffle.TotalNumbers,
		SoldNumbers:      len(snapshot.Sold),
		ReservedNumbers:  len(snapshot.Reserved),
		AvailableNumbers: len(snapshot.Available),
		TotalRevenue:     revenue,
	}

	return reservations, stats, nil
}

func (s *RaffleServiceImpl) Draw(ctx context.Context, id int) (*model.Winner, error) {
	raffle, err := s.raffleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if raffle.Status != model.RaffleStatusClosed {
		return nil, apperrors.ErrInvalidStatusTransition
	}

	snapshot, err := s.numberPool.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}

	if len(snapshot.Sold) == 0 {
		return nil, apperrors.ErrNoNumbersSold
	}

	winningNumber := snapshot.Sold[rand.Intn(len(snapshot.Sold))]

	holder, err := s.reservationRepo.FindConfirmedByNumber(ctx, id, winningNumber)
	if err != nil {
		return nil, err
	}

	drawnAt := time.Now().UTC()
	// CAS closed -> drawn, so two concurrent draws cannot both record a winner
	if err := s.raffleRepo.SetWinner(ctx, id, winningNumber, holder.Buyer.Name, holder.Buyer.Email, drawnAt); err != nil {
		return nil, err
	}

	logger.WithComponent("raffle").Info("raffle drawn",
		zap.Int("raffle_id", id),
		zap.Int("winner_number", winningNumber))

	return &model.Winner{
		RaffleID:     id,
		RaffleTitle:  raffle.Title,
		WinnerNumber: winningNumber,
		WinnerName:   holder.Buyer.Name,
		WinnerEmail:  holder.Buyer.Email,
		DrawnAt:      &drawnAt,
	}, nil
}

func (s *RaffleServiceImpl) Winner(ctx context.Context, id int) (*model.Winner, error) {
	raffle, err := s.raffleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if raffle.Status != model.RaffleStatusDrawn || raffle.WinnerNumber == nil {
		return nil, apperrors.ErrRaffleNotDrawn
	}

	winner := &model.Winner{
		RaffleID:     id,
		RaffleTitle:  raffle.Title,
		WinnerNumber: *raffle.WinnerNumber,
		DrawnAt:      raffle.DrawnAt,
	}
	if raffle.WinnerName != nil {
		winner.WinnerName = *raffle.WinnerName
	}
	if raffle.WinnerEmail != nil {
		winner.WinnerEmail = *raffle.WinnerEmail
	}

	return winner, nil
}

package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"raffle-service/config"
	"raffle-service/internal/cache"
	"raffle-service/internal/database"
	"raffle-service/internal/handler"
	"raffle-service/internal/payment"
	"raffle-service/internal/pool"
	"raffle-service/internal/queue"
	"raffle-service/internal/repository"
	"raffle-service/internal/service"
	"raffle-service/internal/worker"
	"raffle-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const boardCacheTTL = 3 * time.Second

func main() {
	cfg := config.LoadConfig()

	defer logger.Sync()

	pgPool, err := database.InitDatabase(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer pgPool.Close()

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to initialize redis: %v", err)
	}
	defer rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// repositories
	raffleRepo := repository.NewRaffleRepository(pgPool)
	reservationRepo := repository.NewReservationRepository(pgPool)
	purchaseRepo := repository.NewPurchaseRepository(pgPool)
	numberRepo := repository.NewNumberRepository(pgPool)

	numberPool := pool.NewPostgresNumberPool(pgPool, numberRepo, cfg.Reservation.LockTimeout)
	boardCache := cache.NewRedisNumberBoardCache(rdb, boardCacheTTL)

	var gateway payment.Gateway
	switch cfg.Gateway.Driver {
	case "rest":
		gateway = payment.NewRESTGateway(&cfg.Gateway)
	default:
		gateway = payment.NewMockGateway()
	}

	paymentQueue, err := queue.NewRedisStreamPaymentEventQueue(rdb, "", nil)
	if err != nil {
		log.Fatalf("Failed to initialize payment queue: %v", err)
	}

	// services
	raffleService := service.NewRaffleService(raffleRepo, reservationRepo, purchaseRepo, numberPool, boardCache)
	reservationService := service.NewReservationService(raffleRepo, reservationRepo, purchaseRepo, numberPool, cfg.Reservation.TTL)
	purchaseService := service.NewPurchaseService(raffleRepo, reservationRepo, purchaseRepo, numberPool, gateway)

	// workers
	paymentWorker := worker.NewPaymentWorker(purchaseService, paymentQueue)
	if err := paymentWorker.Start(ctx); err != nil {
		log.Fatalf("Failed to start payment worker: %v", err)
	}

	sweepWorker := worker.NewSweepWorker(reservationService, purchaseService, cfg.Reservation.SweepInterval)
	if err := sweepWorker.Start(ctx); err != nil {
		log.Fatalf("Failed to start sweep worker: %v", err)
	}

	router := gin.Default()
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	handler.NewRaffleHandler(raffleService).RegisterRoutes(router)
	handler.NewReservationHandler(reservationService, purchaseService).RegisterRoutes(router)
	handler.NewPaymentHandler(paymentQueue).RegisterRoutes(router)

	logger.WithComponent("server").Info("starting server",
		zap.String("port", cfg.Server.Port),
		zap.String("gateway_driver", cfg.Gateway.Driver))

	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Server exited: %v", err)
	}
}

package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	cacheAdapter "github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/cache/adapter"
	"github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/database"
	queueAdapter "github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/queue/adapter"
	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/task"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	pool, err := database.NewPoolFromEnv(ctx)
	cancel()
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	cache, err := cacheAdapter.NewRedisAdapter()
	if err != nil {
		logger.Fatal("failed to connect to redis cache", zap.Error(err))
	}
	defer cache.Close()

	srv, err := queueAdapter.NewAsynqServer()
	if err != nil {
		logger.Fatal("failed to build queue server", zap.Error(err))
	}

	task.RegisterSyncUnreadTask(srv, pool, cache, logger)

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("worker running")
	if err := srv.Run(runCtx); err != nil {
		logger.Fatal("worker stopped with error", zap.Error(err))
	}
}

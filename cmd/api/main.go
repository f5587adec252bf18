package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	v1 "github.com/tung2212002/BE-TimViecNow-sub000/cmd/api/router/v1"
	cacheAdapter "github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/cache/adapter"
	"github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/database"
	"github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/objectstore"
	pubsubAdapter "github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/pubsub/adapter"
	queueAdapter "github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/queue/adapter"
	"github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/realtime"
	httpHandler "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/presentation/http"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	// Connect to the database on startup
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

	broker, err := pubsubAdapter.NewRedisBroker()
	if err != nil {
		logger.Fatal("failed to connect to redis pub/sub", zap.Error(err))
	}
	defer broker.Close()

	registry := realtime.NewRegistry(broker, logger)
	defer registry.Close()

	queueClient, err := queueAdapter.NewAsynqClientFromEnv()
	if err != nil {
		logger.Fatal("failed to build queue client", zap.Error(err))
	}
	defer queueClient.Close()

	store, err := objectstore.NewDiskStoreFromEnv()
	if err != nil {
		logger.Fatal("failed to prepare attachment store", zap.Error(err))
	}

	r := gin.Default()

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	v1.RegisterRoutes(r, httpHandler.Deps{
		Pool:     pool,
		Cache:    cache,
		Registry: registry,
		Queue:    queueClient,
		Store:    store,
		Log:      logger,
	})

	addr := ":8080"
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{Addr: addr, Handler: r}

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("http server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-stopCtx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
}

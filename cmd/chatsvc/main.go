package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/novafabric/backbone/internal/apperr"
	"github.com/novafabric/backbone/internal/chat"
	"github.com/novafabric/backbone/internal/chat/crypto"
	"github.com/novafabric/backbone/internal/cleanup"
	"github.com/novafabric/backbone/internal/config"
	"github.com/novafabric/backbone/internal/events"
	"github.com/novafabric/backbone/internal/logging"
	"github.com/novafabric/backbone/internal/metrics"
	"github.com/novafabric/backbone/internal/repository"
	"github.com/novafabric/backbone/internal/rpcmesh/jwtauth"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Environment, "info")

	var masterKey crypto.MasterKey
	keyBytes, err := hex.DecodeString(cfg.Chat.MasterKeyHex)
	if err != nil || len(keyBytes) != 32 {
		logger.Fatal("NOVA_CHAT_MASTER_KEY_HEX must be a 64-character hex-encoded 32-byte key")
	}
	copy(masterKey[:], keyBytes)

	db, sqlDB, err := repository.Open(cfg.Database.DSN)
	if err != nil {
		logger.Fatalf("failed to connect to database: %v", err)
	}
	defer sqlDB.Close()

	if err := repository.Migrate(sqlDB); err != nil {
		logger.Fatalf("failed to apply migrations: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	jwtValidator, err := jwtauth.NewValidator([]byte(cfg.JWT.PublicKeyPEM))
	if err != nil {
		logger.Fatalf("failed to load JWT public key: %v", err)
	}

	conversationRepo := repository.NewConversationRepo(db)
	messageRepo := repository.NewMessageRepo(db)

	registry := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTP(registry, "chatsvc")
	chatMetrics := metrics.NewChat(registry)
	cleanupMetrics := metrics.NewCleanup(registry)

	instanceID := uuid.New().String()

	var hub *chat.Hub
	fanout := events.NewChatFanout(cfg.Kafka.Brokers, "chat-events", instanceID, func(conversationID uuid.UUID, payload []byte) {
		hub.DeliverFromFanout(conversationID, payload)
	}, logger)
	defer fanout.Close()

	hub = chat.NewHub(fanout, logger)
	go hub.Run()

	fanoutCtx, cancelFanout := context.WithCancel(context.Background())
	defer cancelFanout()
	go fanout.Subscribe(fanoutCtx)

	wsServer := NewWSServer(hub, conversationRepo, messageRepo, masterKey, jwtValidator, chatMetrics, logger)

	registrySweep := cleanup.NewRegistrySweep(hub, logger)
	sweepJob := cleanup.NewJob(registrySweepSource{sweep: registrySweep}, noopSourceOfTruth{}, cleanupMetrics, logger)
	sweepScheduler := cleanup.NewScheduler(logger)
	if err := sweepScheduler.Register("@every 5m", sweepJob); err != nil {
		logger.WithError(err).Warn("failed to register registry sweep")
	}
	sweepScheduler.Start()
	defer sweepScheduler.Stop(context.Background())

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpMetrics.GinMiddleware())
	router.Use(apperr.GinMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "chatsvc"})
	})

	router.GET("/ready", func(c *gin.Context) {
		if err := sqlDB.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": "database unavailable"})
			return
		}
		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": "redis unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	router.GET("/ws", func(c *gin.Context) { wsServer.handleConnect(c.Writer, c.Request) })
	router.GET("/v1/conversations/:id/key", wsServer.handleGetConversationKey)

	httpServer := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logger.Infof("starting chatsvc on port %d", cfg.Server.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("failed to start http server: %v", err)
		}
	}()

	grpcServer := newGRPCServer(jwtValidator, logger)
	go serveGRPC(grpcServer, cfg.Server.GRPCPort, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down chatsvc")

	grpcServer.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("http server shutdown error: %v", err)
	}

	logger.Info("chatsvc stopped")
}

// registrySweepSource adapts cleanup.RegistrySweep's single Run call into
// the cleanup.EntitySource contract, so the connection-registry check rides
// the same scheduler/metrics path as the retention jobs instead of needing
// its own ticker goroutine.
type registrySweepSource struct {
	sweep *cleanup.RegistrySweep
}

func (s registrySweepSource) Kind() string { return "conversation_registry" }

func (s registrySweepSource) ListIDs(ctx context.Context, cursor string, batchSize int) ([]string, string, error) {
	if cursor != "" {
		return nil, "", nil
	}
	if err := s.sweep.Run(ctx); err != nil {
		return nil, "", err
	}
	return nil, "", nil
}

// noopSourceOfTruth satisfies cleanup.SourceOfTruth for the registry sweep,
// which does its own existence checking inside Run and never produces ids
// for the job to probe.
type noopSourceOfTruth struct{}

func (noopSourceOfTruth) Exists(ctx context.Context, id string) (bool, error) { return true, nil }
func (noopSourceOfTruth) DeleteDependents(ctx context.Context, id string) error { return nil }

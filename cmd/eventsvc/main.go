package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/novafabric/backbone/internal/analytics"
	"github.com/novafabric/backbone/internal/apperr"
	"github.com/novafabric/backbone/internal/cache"
	"github.com/novafabric/backbone/internal/config"
	"github.com/novafabric/backbone/internal/events"
	"github.com/novafabric/backbone/internal/logging"
	"github.com/novafabric/backbone/internal/metrics"
	"github.com/novafabric/backbone/internal/repository"
	"github.com/novafabric/backbone/internal/rpcmesh"
	"github.com/novafabric/backbone/internal/rpcmesh/jwtauth"
)

// eventsTopic is the single domain-events topic this instance consumes from;
// the chat fanout topic (internal/events.ChatFanout) is separate and owned
// by cmd/chatsvc.
const eventsTopic = "domain-events"
const deadLetterTopic = "domain-events-dlq"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Environment, "info")

	db, sqlDB, err := repository.Open(cfg.Database.DSN)
	if err != nil {
		logger.Fatalf("failed to connect to database: %v", err)
	}
	defer sqlDB.Close()

	if err := repository.Migrate(sqlDB); err != nil {
		logger.Fatalf("failed to apply migrations: %v", err)
	}

	chStore, err := analytics.Open(cfg.ClickHouse.DSN)
	if err != nil {
		logger.Fatalf("failed to connect to analytics store: %v", err)
	}
	defer chStore.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	contentRepo := repository.NewContentRepo(db)
	socialRepo := repository.NewSocialRepo(db)
	cacheManager := cache.NewManager(redisClient)
	invalidator := &followerFeedInvalidator{social: socialRepo, cache: cacheManager}

	registry := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTP(registry, "eventsvc")
	eventMetrics := metrics.NewEvents(registry)

	dlqWriter := events.NewKafkaDeadLetterSink(cfg.Kafka.Brokers, deadLetterTopic, logger)
	defer dlqWriter.Close()
	dlq := &meteredDeadLetterSink{sink: dlqWriter, metrics: eventMetrics}

	consumer := events.NewConsumer(cfg.Kafka.Brokers, eventsTopic, cfg.Kafka.GroupID, dlq, logger)
	registerHandlers(consumer, contentRepo, chStore, invalidator, eventMetrics, logger)
	defer consumer.Close()

	rbacEnforcer, err := rpcmesh.NewRBACEnforcer(cfg.RBAC.ModelPath, cfg.Redis.Addr, cfg.Redis.Password)
	if err != nil {
		logger.Fatalf("failed to initialize rbac enforcer: %v", err)
	}
	jwtValidator, err := jwtauth.NewValidator([]byte(cfg.JWT.PublicKeyPEM))
	if err != nil {
		logger.Fatalf("failed to initialize jwt validator: %v", err)
	}
	admin := &adminHandlers{content: contentRepo, invalidator: invalidator, logger: logger}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := consumer.Run(ctx); err != nil {
			logger.WithError(err).Error("event consumer stopped with error")
		}
	}()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpMetrics.GinMiddleware())
	router.Use(apperr.GinMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "eventsvc"})
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
		if err := chStore.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": "analytics store unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	router.POST("/admin/content/:id/takedown", rpcmesh.GinMiddleware(rbacEnforcer, jwtValidator), admin.takedown)

	httpServer := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logger.Infof("starting eventsvc on port %d", cfg.Server.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("failed to start http server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down eventsvc")
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("http server shutdown error: %v", err)
	}

	logger.Info("eventsvc stopped")
}

// meteredDeadLetterSink increments the shared DeadLettered counter around
// the real sink, keeping metrics.Events the single place every cmd/*
// server's Prometheus wiring is registered.
type meteredDeadLetterSink struct {
	sink    *events.KafkaDeadLetterSink
	metrics *metrics.Events
}

func (s *meteredDeadLetterSink) Record(ctx context.Context, raw []byte, reason string) {
	s.metrics.DeadLettered.Inc()
	s.sink.Record(ctx, raw, reason)
}

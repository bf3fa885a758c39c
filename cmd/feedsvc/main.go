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
	"github.com/novafabric/backbone/internal/domain"
	"github.com/novafabric/backbone/internal/logging"
	"github.com/novafabric/backbone/internal/metrics"
	"github.com/novafabric/backbone/internal/ranking"
	"github.com/novafabric/backbone/internal/ranking/recall"
	"github.com/novafabric/backbone/internal/repository"
	"github.com/novafabric/backbone/internal/social"
)

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

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	chStore, err := analytics.Open(cfg.ClickHouse.DSN)
	if err != nil {
		logger.Fatalf("failed to connect to analytics store: %v", err)
	}
	defer chStore.Close()

	contentRepo := repository.NewContentRepo(db)
	socialRepo := repository.NewSocialRepo(db)
	cacheManager := cache.NewManager(redisClient)
	seenSet := cache.NewSeenSet(redisClient)
	similarUsers := cache.NewSimilarUsers(redisClient)
	features := analytics.NewFeatureStore(chStore)
	trending := analytics.NewTrendingView(chStore, contentRepo)

	strategies := []recall.Strategy{
		recall.NewSocialGraphStrategy(socialRepo, contentRepo),
		recall.NewTrendingStrategy(trending),
		recall.NewUserCFStrategy(similarUsers, contentRepo),
	}

	registry := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTP(registry, "feedsvc")
	feedMetrics := metrics.NewFeed(registry)

	feedServer := NewFeedServer(strategies, seenSet, features, &fallbackAdapter{repo: contentRepo}, contentRepo, cacheManager, feedMetrics, logger)
	socialService := social.NewService(socialRepo, &feedCacheInvalidator{cache: cacheManager}, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpMetrics.GinMiddleware())
	router.Use(apperr.GinMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "feedsvc"})
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

	router.GET("/v1/feed", feedServer.handleFeed)

	socialHandlers := newSocialHandlers(socialService)
	router.POST("/v1/social/follow", socialHandlers.follow)
	router.POST("/v1/social/unfollow", socialHandlers.unfollow)
	router.POST("/v1/social/block", socialHandlers.block)
	router.POST("/v1/social/unblock", socialHandlers.unblock)

	httpServer := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logger.Infof("starting feedsvc on port %d", cfg.Server.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("failed to start http server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down feedsvc")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("http server shutdown error: %v", err)
	}

	logger.Info("feedsvc stopped")
}

// feedCacheInvalidator adapts *cache.Manager to internal/social's
// Invalidator interface, evicting the exact feed:v1:{user_id} key rather
// than a SCAN-based pattern delete since the key is never wildcarded.
type feedCacheInvalidator struct {
	cache *cache.Manager
}

func (a *feedCacheInvalidator) InvalidateFeed(ctx context.Context, userID domain.UserID) error {
	return a.cache.Delete(ctx, cache.FeedKey(userID.String()))
}

// fallbackAdapter supplies FallbackSource against the content repository
// when the primary recall/rank/diversify pipeline yields nothing.
type fallbackAdapter struct {
	repo *repository.ContentRepo
}

func (a *fallbackAdapter) RecentFallbackCandidates(limit int) ([]ranking.FallbackCandidate, error) {
	items, err := a.repo.ListRecent(context.Background(), limit)
	if err != nil {
		return nil, err
	}
	out := make([]ranking.FallbackCandidate, len(items))
	for i, it := range items {
		out[i] = ranking.FallbackCandidate{
			ContentID:    it.ID,
			AuthorID:     it.AuthorID,
			CreatedUnix:  it.CreatedAt.Unix(),
			LikeCount:    it.LikeCount,
			CommentCount: it.CommentCount,
		}
	}
	return out, nil
}

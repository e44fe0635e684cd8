// Package main runs the wedding invitation HTTP server with the countdown websocket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wedding-invite/backend/config"
	"github.com/wedding-invite/backend/internal/admin"
	"github.com/wedding-invite/backend/internal/countdown"
	"github.com/wedding-invite/backend/internal/gallery"
	"github.com/wedding-invite/backend/internal/kv"
	"github.com/wedding-invite/backend/internal/middleware"
	"github.com/wedding-invite/backend/internal/personstore"
	"github.com/wedding-invite/backend/internal/registration"
	"github.com/wedding-invite/backend/internal/sessions"
	"github.com/wedding-invite/backend/pkg/redis"
	"github.com/wedding-invite/backend/pkg/response"
	"github.com/wedding-invite/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()

	// Visitor-scoped lists (song suggestions, gift cache) live in Redis when configured.
	var local kv.Store = kv.NewMemory()
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
		local = kv.NewRedis(rdb.Client, time.Duration(cfg.Redis.TTLDays)*24*time.Hour)
	} else {
		logger.Warn("REDIS_ADDR not set; visitor data kept in memory")
	}

	var photos gallery.Bucket
	if cfg.AWS.GalleryBucket != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			Endpoint:             cfg.AWS.Endpoint,
			Bucket:               cfg.AWS.GalleryBucket,
			Prefix:               cfg.AWS.GalleryPrefix,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Fatal("s3", zap.Error(err))
		}
		photos = s3Client
	} else {
		logger.Warn("AWS_S3_GALLERY_BUCKET not set; gallery disabled")
	}

	people := personstore.NewClient(personstore.Config{
		BaseURL:  cfg.PersonStore.BaseURL,
		Resource: cfg.PersonStore.Resource,
		Timeout:  time.Duration(cfg.PersonStore.TimeoutSec) * time.Second,
	}, logger)

	registrationSessions := sessions.NewRegistry[*registration.Session](cfg.Sessions.IdleTTL)
	adminSessions := sessions.NewRegistry[*admin.Session](cfg.Sessions.IdleTTL)

	registrationHandler := registration.NewHandler(registrationSessions, people, local, logger)
	adminHandler := admin.NewHandler(adminSessions, people, cfg.Wedding.InviteBaseURL, logger)
	countdownHandler := countdown.NewHandler(cfg.Wedding.Date, logger)
	galleryHandler := gallery.NewHandler(photos, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins()))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) {
		if rdb != nil {
			if err := rdb.Healthy(c.Request.Context()); err != nil {
				response.ServiceUnavailable(c, "redis unavailable")
				return
			}
		}
		response.OK(c, gin.H{"status": "ok"})
	})
	router.GET("/countdown", countdownHandler.Get)
	router.GET("/ws/countdown", countdownHandler.ServeWs(time.Second))
	router.GET("/gallery", galleryHandler.List)

	reg := router.Group("/register")
	reg.Use(middleware.Visitor())
	registrationHandler.Register(reg)

	// Admin surface is unauthenticated; deploy it behind the operator's own access control.
	adminGroup := router.Group("/admin")
	adminHandler.Register(adminGroup.Group("/sessions"))
	adminGroup.POST("/gallery", galleryHandler.Upload)
	adminGroup.DELETE("/gallery/:name", galleryHandler.Delete)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	go sweepSessions(sweepCtx, cfg.Sessions.SweepInterval, logger, registrationSessions.Sweep, adminSessions.Sweep)

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sweepCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

// sweepSessions drops idle sessions every interval until ctx is done.
func sweepSessions(ctx context.Context, interval time.Duration, logger *zap.Logger, sweeps ...func() int) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := 0
			for _, sweep := range sweeps {
				n += sweep()
			}
			if n > 0 {
				logger.Debug("idle sessions dropped", zap.Int("count", n))
			}
		}
	}
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}

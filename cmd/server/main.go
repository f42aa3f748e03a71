// Package main runs the meeting supervisor server with WebSocket transport
// and graceful shutdown.
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

	"github.com/conclave-live/backend/config"
	"github.com/conclave-live/backend/internal/api"
	"github.com/conclave-live/backend/internal/auth"
	"github.com/conclave-live/backend/internal/meeting"
	"github.com/conclave-live/backend/internal/meetinglog"
	"github.com/conclave-live/backend/internal/messages"
	"github.com/conclave-live/backend/internal/middleware"
	"github.com/conclave-live/backend/internal/models"
	"github.com/conclave-live/backend/internal/realtime"
	"github.com/conclave-live/backend/internal/recording"
	"github.com/conclave-live/backend/internal/session"
	"github.com/conclave-live/backend/pkg/database"
	"github.com/conclave-live/backend/pkg/queue"
	"github.com/conclave-live/backend/pkg/redis"
	"github.com/conclave-live/backend/pkg/response"
	"github.com/conclave-live/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			JournalsBucket:       cfg.AWS.JournalsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	tokens := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	gateway := realtime.NewGateway(hub, logger)

	// Recording collaborator: Redis journal plus Postgres metadata.
	journal := recording.NewJournal(rdb.Client, logger)
	recRepo := recording.NewRepository(pool)
	recorder := recording.NewService(journal, recRepo, logger)

	logRepo := meetinglog.NewRepository(pool)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	registry := meeting.NewRegistry()
	var supervisor *meeting.Supervisor
	factory := func(m models.Meeting) meeting.Handler {
		return session.New(m, gateway, tokens, cfg.Meeting.MaxChatHistory, func(meetingID string) {
			supervisor.Submit(messages.DestroyMeeting{MeetingID: meetingID})
		}, logger)
	}
	supervisor = meeting.NewSupervisor(registry, gateway, recorder, factory, logger)
	supervisor.SetAskTimeout(time.Duration(cfg.Meeting.AskTimeoutSec) * time.Second)
	supervisor.SetMailboxSize(cfg.Meeting.MailboxSize)
	supervisor.SetLifecycleLog(logRepo)
	supervisor.SetArchiver(jobQueue)

	supCtx, supCancel := context.WithCancel(context.Background())
	defer supCancel()
	go supervisor.Run(supCtx)
	logger.Info("supervisor started")

	// A typed nil must not reach the interface field.
	var archives api.ArchiveStore
	if s3Client != nil {
		archives = s3Client
	}
	apiHandler := api.NewHandler(supervisor, registry, tokens, logRepo, recRepo, archives, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Meetings
	router.POST("/meetings", apiHandler.Create)
	router.GET("/meetings", apiHandler.List)
	router.GET("/meetings/:id", apiHandler.GetByID)
	router.DELETE("/meetings/:id", apiHandler.Destroy)
	router.POST("/meetings/:id/join", apiHandler.Join)
	router.GET("/meetings/:id/history", apiHandler.History)
	router.GET("/meetings/:id/recordings", apiHandler.Recordings)

	// WebSocket (join token in query for meeting clients; monitors connect bare)
	router.GET("/ws", realtime.ServeWs(hub, supervisor, tokens, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	supCancel()
	select {
	case <-supervisor.Done():
	case <-time.After(10 * time.Second):
		logger.Warn("supervisor drain timed out")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}

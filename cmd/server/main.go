package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lotuseval/placement-backend/internal/bank"
	"github.com/lotuseval/placement-backend/internal/config"
	"github.com/lotuseval/placement-backend/internal/database"
	"github.com/lotuseval/placement-backend/internal/event"
	"github.com/lotuseval/placement-backend/internal/exam"
	"github.com/lotuseval/placement-backend/internal/handler"
	"github.com/lotuseval/placement-backend/internal/logger"
	"github.com/lotuseval/placement-backend/internal/metrics"
	"github.com/lotuseval/placement-backend/internal/middleware"
	"github.com/lotuseval/placement-backend/internal/repository"
	"github.com/lotuseval/placement-backend/internal/router"
	"github.com/lotuseval/placement-backend/internal/service"
	"github.com/lotuseval/placement-backend/internal/storage"
	"github.com/lotuseval/placement-backend/internal/validator"
	"github.com/lotuseval/placement-backend/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("access_mode", cfg.AccessMode).
		Dur("question_time_limit", cfg.QuestionTimeLimit).
		Msg("Starting placement exam backend")

	switch cfg.AccessMode {
	case config.AccessModeToken, config.AccessModeApproval, config.AccessModeOpen:
	default:
		log.Fatal().Str("access_mode", cfg.AccessMode).Msg("ACCESS_MODE must be token, approval or open")
	}
	if cfg.BankSourceURL == "" {
		log.Fatal().Msg("BANK_SOURCE_URL is required")
	}
	if cfg.AdminPasswordHash == "" {
		log.Warn().Msg("ADMIN_PASSWORD_HASH is empty, admin login is disabled")
	}

	// ─── Initialize Validator & Metrics ────────────────────────────────
	validator.Setup()
	metrics.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Load Exam Rules ───────────────────────────────────────────────
	rules, err := exam.LoadRuleset(cfg.RulesFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.RulesFile).Msg("Failed to load exam rules")
	}
	for _, r := range rules.All() {
		log.Info().Str("exam_type", r.ExamType).Str("sheet", r.Sheet).Int("total", r.Total).Msg("Exam type loaded")
	}

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Connect to RabbitMQ ───────────────────────────────────────────
	publisher, err := event.NewEventPublisher(cfg.AMQPURL, cfg.AMQPExchange, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
	}
	defer publisher.Close()

	// ─── Result Archive ────────────────────────────────────────────────
	var archiver storage.Archiver = storage.NewDirArchiver(cfg.ArchiveDir)
	if cfg.MinioEndpoint != "" {
		archiver, err = storage.NewMinioArchiver(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to MinIO")
		}
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	tokenRepo := repository.NewTokenRepository(pool)
	approvalRepo := repository.NewApprovalRepository(pool)
	resultRepo := repository.NewResultRepository(pool)
	sessionStore := repository.NewSessionStore(rdb, cfg.SessionTTL)
	resultQueue := repository.NewResultQueue(rdb)

	// ─── Question Bank ─────────────────────────────────────────────────
	bankLoader := bank.NewLoader(
		bank.NewSource(cfg.BankSourceURL, cfg.BankTimeout),
		bank.NewRedisCache(rdb, cfg.BankCacheTTL),
		log,
	)
	selector := exam.NewSelector(rules, nil, cfg.StrictDifficulty)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	gate := service.NewAccessGate(cfg, tokenRepo, approvalRepo, publisher, log)
	examService := service.NewExamService(cfg, rules, selector, bankLoader, gate, sessionStore, resultQueue, publisher, log)
	resultService := service.NewResultService(resultRepo)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:   handler.NewAuthHandler(authService, log),
		Access: handler.NewAccessHandler(gate, examService, log),
		Exam:   handler.NewExamHandler(examService, log),
		Admin:  handler.NewAdminHandler(gate, examService, resultService, log),
		WS:     handler.NewWSHandler(examService, log, cfg.AllowedOrigins),
		System: handler.NewSystemHandler(pool, rdb, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	workerDone := make(chan struct{})

	resultWorker := worker.NewResultWorker(resultQueue, resultRepo, archiver, cfg.ResultBatchSize, cfg.ResultFlushInterval, log)
	go func() {
		defer close(workerDone)
		resultWorker.Start(workerCtx)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	limiter := middleware.NewRateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst)
	r := router.SetupRouter(authService, handlers, limiter, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests. Approval waits can hold a
	// request for up to ApprovalMaxWait, so they are cut off here.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the result worker and wait for it to drain the queue.
	workerCancel()
	select {
	case <-workerDone:
	case <-time.After(10 * time.Second):
		log.Warn().Msg("Result worker did not drain in time")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tcmflow/clinic-api/internal/config"
	"github.com/tcmflow/clinic-api/internal/email"
	"github.com/tcmflow/clinic-api/internal/repository/postgres"
	"github.com/tcmflow/clinic-api/internal/worker"
	"github.com/tcmflow/clinic-api/pkg/logger"
	"github.com/tcmflow/clinic-api/pkg/messaging/redis"
	"github.com/tcmflow/clinic-api/pkg/metrics"
	pkgworker "github.com/tcmflow/clinic-api/pkg/worker"
)

// The worker hosts everything that runs on a clock: outbox publishing,
// row retention sweeps and the low stock digest.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level := logger.InfoLevel
	if cfg.Debug {
		level = logger.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	appLogger := logger.NewLogger(&logger.Config{Level: level, Pretty: cfg.Debug})

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	base := postgres.NewBaseRepository(db)
	outboxRepo := postgres.NewOutboxRepository(base)
	auditRepo := postgres.NewAuditRepository(base)
	tokenRepo := postgres.NewTokenRepository(base)
	stockRepo := postgres.NewStockRepository(base)
	clinicRepo := postgres.NewClinicRepository(base)

	zl := appLogger.Zerolog()
	broker, err := redis.NewBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &zl)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	m := metrics.NewMetrics("clinic", "worker")
	processor, err := pkgworker.NewOutboxProcessor(outboxRepo, broker,
		cfg.Outbox.ToProcessorConfig(), appLogger, m)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize outbox processor")
	}

	var mailer email.Service
	if cfg.SMTP.Host != "" {
		mailer = email.NewSMTPService(cfg.SMTP, cfg.FrontendURL)
	} else {
		mailer = email.NewNoopService(appLogger)
	}

	startHealthServer(appLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go worker.NewCleanupWorker(auditRepo, tokenRepo, outboxRepo, appLogger).Start(ctx)
	go worker.NewLowStockWorker(stockRepo, clinicRepo, mailer, m, appLogger).Start(ctx)

	appLogger.Info("worker started")
	processor.Start(ctx)
	appLogger.Info("worker stopped")
}

func startHealthServer(l *logger.Logger) {
	mux := http.NewServeMux()
	ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }
	mux.HandleFunc("/health/live", ok)
	mux.HandleFunc("/health/ready", ok)

	srv := &http.Server{
		Addr:        ":8081",
		Handler:     mux,
		ReadTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Error(err, "health server failed")
			os.Exit(1)
		}
	}()
}

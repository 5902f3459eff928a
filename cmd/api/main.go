package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tcmflow/clinic-api/internal/config"
	"github.com/tcmflow/clinic-api/internal/email"
	"github.com/tcmflow/clinic-api/internal/handler"
	authHandler "github.com/tcmflow/clinic-api/internal/handler/auth"
	billingHandler "github.com/tcmflow/clinic-api/internal/handler/billing"
	consultationHandler "github.com/tcmflow/clinic-api/internal/handler/consultation"
	coreHandler "github.com/tcmflow/clinic-api/internal/handler/core"
	inventoryHandler "github.com/tcmflow/clinic-api/internal/handler/inventory"
	patientHandler "github.com/tcmflow/clinic-api/internal/handler/patient"
	registrationHandler "github.com/tcmflow/clinic-api/internal/handler/registration"
	reportHandler "github.com/tcmflow/clinic-api/internal/handler/report"
	"github.com/tcmflow/clinic-api/internal/middleware"
	"github.com/tcmflow/clinic-api/internal/repository/postgres"
	"github.com/tcmflow/clinic-api/internal/router"
	auditService "github.com/tcmflow/clinic-api/internal/service/audit"
	authService "github.com/tcmflow/clinic-api/internal/service/auth"
	billingService "github.com/tcmflow/clinic-api/internal/service/billing"
	clinicService "github.com/tcmflow/clinic-api/internal/service/clinic"
	consultationService "github.com/tcmflow/clinic-api/internal/service/consultation"
	inventoryService "github.com/tcmflow/clinic-api/internal/service/inventory"
	patientService "github.com/tcmflow/clinic-api/internal/service/patient"
	pharmacyService "github.com/tcmflow/clinic-api/internal/service/pharmacy"
	prescriptionService "github.com/tcmflow/clinic-api/internal/service/prescription"
	registrationService "github.com/tcmflow/clinic-api/internal/service/registration"
	reportService "github.com/tcmflow/clinic-api/internal/service/report"
	userService "github.com/tcmflow/clinic-api/internal/service/user"
	"github.com/tcmflow/clinic-api/pkg/auth"
	"github.com/tcmflow/clinic-api/pkg/event"
	"github.com/tcmflow/clinic-api/pkg/logger"
	"github.com/tcmflow/clinic-api/pkg/messaging/redis"
	"github.com/tcmflow/clinic-api/pkg/metrics"
	"github.com/tcmflow/clinic-api/pkg/security"
	"github.com/tcmflow/clinic-api/pkg/validator"
	pkgworker "github.com/tcmflow/clinic-api/pkg/worker"
)

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
	if cfg.Debug {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	appLogger := logger.NewLogger(&logger.Config{Level: level, Pretty: cfg.Debug})

	if err := validator.Register(); err != nil {
		log.Fatal().Err(err).Msg("failed to register validators")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	base := postgres.NewBaseRepository(db)
	userRepo := postgres.NewUserRepository(base)
	tokenRepo := postgres.NewTokenRepository(base)
	clinicRepo := postgres.NewClinicRepository(base)
	auditRepo := postgres.NewAuditRepository(base)
	outboxRepo := postgres.NewOutboxRepository(base)
	seqRepo := postgres.NewSequenceRepository(base)
	patientRepo := postgres.NewPatientRepository(base)
	registrationRepo := postgres.NewRegistrationRepository(base)
	consultationRepo := postgres.NewConsultationRepository(base)
	certificateRepo := postgres.NewCertificateRepository(base)
	prescriptionRepo := postgres.NewPrescriptionRepository(base)
	formulaRepo := postgres.NewFormulaRepository(base)
	chargeItemRepo := postgres.NewChargeItemRepository(base)
	billRepo := postgres.NewBillRepository(base)
	paymentRepo := postgres.NewPaymentRepository(base)
	debtRepo := postgres.NewDebtRepository(base)
	pharmacyRepo := postgres.NewPharmacyRepository(base)
	orderRepo := postgres.NewDispensingOrderRepository(base)
	categoryRepo := postgres.NewCategoryRepository(base)
	supplierRepo := postgres.NewSupplierRepository(base)
	medicineRepo := postgres.NewMedicineRepository(base)
	stockRepo := postgres.NewStockRepository(base)
	purchaseRepo := postgres.NewPurchaseOrderRepository(base)
	compoundRepo := postgres.NewCompoundFormulaRepository(base)
	reportRepo := postgres.NewReportRepository(base)

	jwtMgr := auth.NewManager(auth.Config{
		Secret:        cfg.SecretKey,
		AccessExpiry:  cfg.JWT.AccessExpiry,
		RefreshExpiry: cfg.JWT.RefreshExpiry,
	})
	hasher := security.NewBcryptHasher(security.DefaultCost)
	encryptor, err := security.NewAESEncryptor(cfg.SecretKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize encryptor")
	}

	var mailer email.Service
	if cfg.SMTP.Host != "" {
		mailer = email.NewSMTPService(cfg.SMTP, cfg.FrontendURL)
	} else {
		mailer = email.NewNoopService(appLogger)
	}

	m := metrics.NewMetrics("clinic", "api")
	emitter := event.NewEmitter(outboxRepo)

	auditSvc := auditService.NewService(auditRepo, appLogger)
	authSvc := authService.NewService(userRepo, tokenRepo, jwtMgr, hasher, mailer, auditSvc)
	userSvc := userService.NewService(userRepo, hasher, auditSvc)
	clinicSvc := clinicService.NewService(clinicRepo, userRepo, auditSvc)
	patientSvc := patientService.NewService(patientRepo, seqRepo, emitter, auditSvc)
	registrationSvc := registrationService.NewService(registrationRepo, patientRepo, billRepo,
		prescriptionRepo, chargeItemRepo, seqRepo, emitter, auditSvc)
	consultationSvc := consultationService.NewService(consultationRepo, registrationRepo,
		certificateRepo, seqRepo, auditSvc)
	prescriptionSvc := prescriptionService.NewService(prescriptionRepo, consultationRepo,
		formulaRepo, medicineRepo, stockRepo, seqRepo, emitter, auditSvc)
	billingSvc := billingService.NewService(billRepo, paymentRepo, debtRepo, chargeItemRepo,
		patientRepo, registrationRepo, prescriptionRepo, seqRepo, emitter, auditSvc)
	pharmacySvc := pharmacyService.NewService(pharmacyRepo, orderRepo, prescriptionRepo,
		medicineRepo, seqRepo, pharmacyService.NewHTTPClient(30*time.Second), encryptor,
		emitter, m, auditSvc)
	inventorySvc := inventoryService.NewService(categoryRepo, supplierRepo, medicineRepo,
		stockRepo, purchaseRepo, compoundRepo, seqRepo, emitter, m, auditSvc)
	reportSvc := reportService.NewService(reportRepo)

	authMW := middleware.NewAuthMiddleware(jwtMgr, userRepo)

	r := router.New(cfg, authMW, router.Handlers{
		Health:        handler.NewHealth(db),
		Auth:          authHandler.NewHandler(authSvc),
		Core:          coreHandler.NewHandler(userSvc, clinicSvc, auditSvc),
		Patients:      patientHandler.NewHandler(patientSvc, registrationSvc),
		Registrations: registrationHandler.NewHandler(registrationSvc),
		Consultations: consultationHandler.NewHandler(consultationSvc, prescriptionSvc),
		Billing:       billingHandler.NewHandler(billingSvc, pharmacySvc),
		Inventory:     inventoryHandler.NewHandler(inventorySvc),
		Reports:       reportHandler.NewHandler(reportSvc),
	})
	r.Setup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The outbox processor runs in-process so a single binary covers
	// small deployments. cmd/worker hosts it separately when the API
	// is scaled out; SKIP LOCKED keeps concurrent consumers safe.
	zl := appLogger.Zerolog()
	broker, err := redis.NewBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &zl)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, outbox events will not be published")
	} else {
		processor, err := pkgworker.NewOutboxProcessor(outboxRepo, broker,
			cfg.Outbox.ToProcessorConfig(), appLogger, m)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize outbox processor")
		}
		go processor.Start(ctx)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}

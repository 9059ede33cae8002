package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/clinigo/platform/cmd/mainconfig"
	"github.com/clinigo/platform/internal/api/router"
	"github.com/clinigo/platform/internal/appointments"
	"github.com/clinigo/platform/internal/booking"
	"github.com/clinigo/platform/internal/checkin"
	"github.com/clinigo/platform/internal/clinics"
	appconfig "github.com/clinigo/platform/internal/config"
	"github.com/clinigo/platform/internal/doctors"
	"github.com/clinigo/platform/internal/documents"
	"github.com/clinigo/platform/internal/events"
	"github.com/clinigo/platform/internal/integrations"
	"github.com/clinigo/platform/internal/notify"
	"github.com/clinigo/platform/internal/observability/metrics"
	"github.com/clinigo/platform/internal/patients"
	"github.com/clinigo/platform/internal/payments"
	"github.com/clinigo/platform/internal/profile"
	"github.com/clinigo/platform/internal/queue"
	"github.com/clinigo/platform/internal/realtime"
	"github.com/clinigo/platform/internal/triage"
	"github.com/clinigo/platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinigo API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Postgres
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// The profile repository runs on database/sql for pq array support.
	sqlDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = sqlDB.Close() }()

	// Redis
	redisOpts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() { _ = redisClient.Close() }()

	// Metrics
	registry := prometheus.NewRegistry()
	bookingMetrics := metrics.NewBookingMetrics(registry)
	queueMetrics := metrics.NewQueueMetrics(registry)

	// AWS clients (S3 documents, SQS queues, DynamoDB triage jobs)
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	var s3Client documents.S3API
	if cfg.DocumentsBucket != "" {
		s3Client = s3.NewFromConfig(awsCfg)
	}
	docsStore := documents.NewStore(s3Client, cfg.DocumentsBucket,
		cfg.MaxUploadSizeBytes(), cfg.AllowedMIMETypes, logger)

	// Repositories
	clinicsRepo := clinics.NewRepository(pool)
	statsRepo := clinics.NewStatsRepository(pool)
	doctorsRepo := doctors.NewRepository(pool)
	patientsRepo := patients.NewRepository(pool)
	apptRepo := appointments.NewRepository(pool)
	paymentsRepo := payments.NewRepository(pool)
	queueRepo := queue.NewRepository(pool)
	profileRepo := profile.NewRepository(sqlDB)

	doctorLister := doctors.NewCachedLister(doctorsRepo, redisClient, 5*time.Minute)
	patientSearcher := patients.NewSearcher(patientsRepo, redisClient, cfg.PatientSearchCacheTTL)

	// Notification queue feeding the delivery worker
	var notifyQueue notify.Queue
	if cfg.UseMemoryQueue || cfg.NotificationQueueURL == "" {
		notifyQueue = notify.NewMemoryQueue(0)
	} else {
		notifyQueue = notify.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.NotificationQueueURL)
	}
	enqueuer := notify.NewEnqueuer(notifyQueue, logger)

	// Outbox delivery into realtime and notifications
	outboxStore := events.NewOutboxStore(pool)
	publisher := realtime.NewPublisher(redisClient)
	fanout := events.NewFanout(publisher, enqueuer, logger)
	deliverer := events.NewDeliverer(outboxStore, fanout, logger)
	go deliverer.Start(ctx)

	// Realtime hub + Redis bridge
	hub := realtime.NewHub(queueMetrics, logger)
	bridge := realtime.NewBridge(redisClient, hub, logger)
	go func() {
		if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("realtime bridge stopped", "error", err)
		}
	}()

	// Fallback refresh signal for panels that miss pub/sub events
	refresher := realtime.NewRefresher(func(ctx context.Context) error {
		for _, doctorID := range hub.ConnectedDoctors() {
			hub.Broadcast(doctorID, events.QueuePayload{DoctorID: doctorID, Kind: "refresh"})
		}
		return nil
	}, cfg.QueueRefreshInterval, logger)
	go refresher.Run(ctx)

	// Services
	pricer := booking.NewPricer(doctorsRepo)
	apptService := appointments.NewService(apptRepo, patientsRepo, pricer, bookingMetrics, logger)
	provider := payments.NewFakeProvider(cfg.PublicBaseURL, logger)
	bookingService := booking.NewService(clinicsRepo, patientsRepo, apptRepo,
		pricer, provider, paymentsRepo, bookingMetrics, logger)
	queueService := queue.NewService(queueRepo, queueMetrics, logger)
	issuer := checkin.NewTokenIssuer(cfg.QRTokenSecret, cfg.QRTokenTTL)
	checkinService := checkin.NewService(issuer, docsStore, queueService, logger)

	// Triage chat
	dynamoClient := dynamodb.NewFromConfig(awsCfg)
	jobStore := triage.NewJobStore(dynamoClient, cfg.TriageJobsTable, logger)
	var triageQueue triage.Queue
	if cfg.UseMemoryQueue || cfg.TriageQueueURL == "" {
		triageQueue = triage.NewMemoryQueue(0)
	} else {
		triageQueue = triage.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.TriageQueueURL)
	}
	triageService := triage.NewService(jobStore, triageQueue, logger)

	// Handlers
	routerCfg := &router.Config{
		Logger:              logger,
		ClinicsHandler:      clinics.NewHandler(clinicsRepo, logger),
		ClinicStatsHandler:  clinics.NewStatsHandler(statsRepo, logger),
		ClinicRepo:          clinicsRepo,
		DoctorsHandler:      doctors.NewHandler(doctorsRepo, doctorLister, logger),
		PatientsHandler:     patients.NewHandler(patientsRepo, patientSearcher, logger),
		AppointmentsHandler: appointments.NewHandler(apptService, logger),
		BookingHandler:      booking.NewHandler(bookingService, logger),
		PaymentsWebhook:     payments.NewWebhookHandler(paymentsRepo, apptRepo, cfg.PaymentsWebhookSecret, logger),
		QueueHandler:        queue.NewHandler(queueService, logger),
		QueueHub:            hub,
		CheckinHandler:      checkin.NewHandler(checkinService, logger),
		IntegrationsHandler: integrations.NewHandler(integrations.NewStore(redisClient), clinicsRepo, logger),
		ProfileHandler:      profile.NewHandler(profileRepo, docsStore, logger),
		TriageHandler:       triage.NewHandler(triageService, logger),
		SessionSecret:       cfg.AuthJWTSecret,
		MetricsHandler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		PublicRateLimit:     cfg.RateLimitRPS,
		PublicRateBurst:     cfg.RateLimitBurst,
	}
	r := router.New(routerCfg)

	// In memory-queue mode the workers must share this process.
	if cfg.UseMemoryQueue {
		startInProcessWorkers(ctx, cfg, awsCfg, notifyQueue, triageQueue,
			jobStore, patientsRepo, doctorsRepo, clinicsRepo, logger)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/clinigo/platform/cmd/mainconfig"
	"github.com/clinigo/platform/internal/clinics"
	appconfig "github.com/clinigo/platform/internal/config"
	"github.com/clinigo/platform/internal/doctors"
	"github.com/clinigo/platform/internal/notify"
	"github.com/clinigo/platform/internal/patients"
	"github.com/clinigo/platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel).Component("notification-worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	if cfg.NotificationQueueURL == "" {
		logger.Error("NOTIFICATION_QUEUE_URL is required")
		os.Exit(1)
	}
	queue := notify.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.NotificationQueueURL)

	email := buildEmailSender(cfg, awsCfg, logger)
	sms, whatsapp := buildMessagingSenders(cfg, logger)

	worker := notify.NewWorker(queue, email, sms, whatsapp,
		patients.NewRepository(pool), doctors.NewRepository(pool), clinics.NewRepository(pool), logger)

	workers := cfg.WorkerCount
	if workers <= 0 {
		workers = 1
	}
	done := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		go func() {
			_ = worker.Run(ctx)
			done <- struct{}{}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down notification worker...")
	cancel()
	for i := 0; i < workers; i++ {
		<-done
	}
	logger.Info("notification worker stopped")
}

func buildEmailSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "ses":
		if sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger); sender != nil {
			return sender
		}
	case "sendgrid":
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); sender != nil {
			return sender
		}
	}
	return notify.NewStubEmailSender(logger)
}

func buildMessagingSenders(cfg *appconfig.Config, logger *logging.Logger) (notify.SMSSender, notify.WhatsAppSender) {
	client := notify.NewMessagingClient(notify.MessagingConfig{
		BaseURL: cfg.MessagingAPIBaseURL,
		APIKey:  cfg.MessagingAPIKey,
	}, logger)
	if client != nil {
		return client, client
	}
	stub := notify.NewStubMessagingSender(logger)
	return stub, stub
}

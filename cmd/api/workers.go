package main

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/clinigo/platform/internal/clinics"
	appconfig "github.com/clinigo/platform/internal/config"
	"github.com/clinigo/platform/internal/doctors"
	"github.com/clinigo/platform/internal/notify"
	"github.com/clinigo/platform/internal/patients"
	"github.com/clinigo/platform/internal/triage"
	"github.com/clinigo/platform/pkg/logging"
)

// startInProcessWorkers runs the notification and triage workers inside the
// API process. Used with the memory queues, which only exist here; the
// production deployment runs the dedicated worker binaries instead.
func startInProcessWorkers(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config,
	notifyQueue notify.Queue, triageQueue triage.Queue, jobStore *triage.JobStore,
	patientsRepo *patients.Repository, doctorsRepo *doctors.Repository,
	clinicsRepo *clinics.Repository, logger *logging.Logger) {

	email := buildEmailSender(cfg, awsCfg, logger)
	sms, whatsapp := buildMessagingSenders(cfg, logger)
	notifyWorker := notify.NewWorker(notifyQueue, email, sms, whatsapp,
		patientsRepo, doctorsRepo, clinicsRepo, logger)
	go func() { _ = notifyWorker.Run(ctx) }()

	llm := buildLLMClient(ctx, cfg, awsCfg, logger)
	if llm == nil {
		logger.Warn("no LLM configured, triage worker not started")
		return
	}
	triageWorker := triage.NewWorker(triageQueue, jobStore, llm,
		cfg.BedrockModelID, int32(cfg.TriageMaxTokens), logger)
	go func() { _ = triageWorker.Run(ctx) }()
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

func buildLLMClient(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) triage.LLMClient {
	var primary triage.LLMClient
	if cfg.BedrockModelID != "" {
		primary = triage.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg))
	}

	var fallback triage.LLMClient
	if cfg.GeminiAPIKey != "" {
		gemini, err := triage.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Error("failed to create Gemini client", "error", err)
		} else {
			fallback = gemini
		}
	}

	switch {
	case primary != nil && fallback != nil:
		return triage.NewFallbackClient(primary, fallback, logger)
	case primary != nil:
		return primary
	case fallback != nil:
		return fallback
	default:
		return nil
	}
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"

	"github.com/clinigo/platform/cmd/mainconfig"
	appconfig "github.com/clinigo/platform/internal/config"
	"github.com/clinigo/platform/internal/triage"
	"github.com/clinigo/platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel).Component("triage-worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	if cfg.TriageQueueURL == "" {
		logger.Error("TRIAGE_QUEUE_URL is required")
		os.Exit(1)
	}
	queue := triage.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.TriageQueueURL)
	jobStore := triage.NewJobStore(dynamodb.NewFromConfig(awsCfg), cfg.TriageJobsTable, logger)

	var llm triage.LLMClient
	if cfg.BedrockModelID != "" {
		llm = triage.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg))
	}
	if cfg.GeminiAPIKey != "" {
		gemini, err := triage.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Error("failed to create Gemini client", "error", err)
		} else if llm != nil {
			llm = triage.NewFallbackClient(llm, gemini, logger)
		} else {
			llm = gemini
		}
	}
	if llm == nil {
		logger.Error("no LLM configured, set BEDROCK_MODEL_ID or GEMINI_API_KEY")
		os.Exit(1)
	}

	worker := triage.NewWorker(queue, jobStore, llm, cfg.BedrockModelID,
		int32(cfg.TriageMaxTokens), logger)

	done := make(chan struct{})
	go func() {
		_ = worker.Run(ctx)
		close(done)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down triage worker...")
	cancel()
	<-done
	logger.Info("triage worker stopped")
}

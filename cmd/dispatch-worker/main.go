package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/junglehq/jungle/cmd/mainconfig"
	"github.com/junglehq/jungle/internal/alerts"
	"github.com/junglehq/jungle/internal/caller"
	appconfig "github.com/junglehq/jungle/internal/config"
	"github.com/junglehq/jungle/internal/dispatch"
	"github.com/junglehq/jungle/internal/integrations"
	"github.com/junglehq/jungle/internal/leads"
	"github.com/junglehq/jungle/internal/notify"
	"github.com/junglehq/jungle/internal/observability/metrics"
	"github.com/junglehq/jungle/internal/secrets"
	"github.com/junglehq/jungle/pkg/logging"
)

// The dispatch worker owns the speed-to-lead loop in production: the
// evaluator publishes due leads to SQS and the worker pool consumes them.
func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	if cfg.DispatchQueueURL == "" {
		logger.Error("DISPATCH_QUEUE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	leadsRepo := leads.NewPostgresRepository(pool)
	integStore := integrations.NewPostgresStore(pool)
	alertStore := alerts.NewPostgresStore(pool)

	cipher, err := secrets.NewCipher(cfg.EncryptionKey)
	if err != nil {
		logger.Error("failed to initialize credential cipher", "error", err)
		os.Exit(1)
	}
	resolver := integrations.NewResolver(integStore, cipher)

	retellClient, err := caller.NewRetellClient(caller.RetellConfig{
		BaseURL:    cfg.RetellBaseURL,
		AgentID:    cfg.RetellAgentID,
		FromNumber: cfg.RetellFromNumber,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("failed to initialize calling client", "error", err)
		os.Exit(1)
	}

	pipelineMetrics := metrics.NewPipelineMetrics(prometheus.NewRegistry())

	slackNotifier := notify.NewSlackNotifier(cfg.SlackAlertWebhookURL, logger)
	emailSender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger)
	var email notify.EmailSender
	if emailSender != nil {
		email = emailSender
	}
	notifier := notify.NewNotifier(slackNotifier, email, cfg.AlertEmailTo, alertStore, pipelineMetrics, logger)

	dispatcher := dispatch.NewDispatcher(leadsRepo, resolver, retellClient, notifier, pipelineMetrics, logger)
	dispatcher.CallTimeout = cfg.DispatchRequestTimeout

	awsConfig, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	queue := dispatch.NewSQSQueue(sqs.NewFromConfig(awsConfig), cfg.DispatchQueueURL)

	evaluator := dispatch.NewEvaluator(leadsRepo, dispatch.NewPublisher(queue), dispatch.EvaluatorConfig{
		Interval:             cfg.EvaluatorInterval,
		BatchSize:            cfg.EvaluatorBatchSize,
		DefaultThresholdMins: cfg.DefaultThresholdMins,
	}, logger)
	go evaluator.Run(ctx)

	worker := dispatch.NewWorker(dispatcher, queue, dispatch.WorkerConfig{
		Workers: cfg.WorkerCount,
	}, logger)
	worker.Start(ctx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down dispatch worker...")
	cancel()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()

	waitCh := make(chan struct{})
	go func() {
		worker.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("dispatch worker stopped")
	case <-doneCtx.Done():
		logger.Error("dispatch worker shutdown timed out", "error", doneCtx.Err())
	}
}

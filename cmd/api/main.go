package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/junglehq/jungle/cmd/mainconfig"
	"github.com/junglehq/jungle/internal/alerts"
	"github.com/junglehq/jungle/internal/analytics"
	"github.com/junglehq/jungle/internal/api/router"
	"github.com/junglehq/jungle/internal/billing"
	"github.com/junglehq/jungle/internal/caller"
	"github.com/junglehq/jungle/internal/chatbot"
	appconfig "github.com/junglehq/jungle/internal/config"
	"github.com/junglehq/jungle/internal/dispatch"
	httpmiddleware "github.com/junglehq/jungle/internal/http/middleware"
	"github.com/junglehq/jungle/internal/integrations"
	"github.com/junglehq/jungle/internal/leads"
	"github.com/junglehq/jungle/internal/notify"
	"github.com/junglehq/jungle/internal/observability/metrics"
	"github.com/junglehq/jungle/internal/orgs"
	"github.com/junglehq/jungle/internal/secrets"
	"github.com/junglehq/jungle/pkg/logging"
)

func main() {
	// Load .env if present, for local development.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting jungle API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage. Without a DATABASE_URL everything runs in memory, which is
	// only useful for local development and demos.
	var (
		pool           *pgxpool.Pool
		leadsRepo      leads.Repository
		orgStore       orgs.Store
		integStore     integrations.Store
		alertStore     alerts.Store
		analyticsStore analytics.Store
		dashboard      *analytics.Dashboard
	)
	if cfg.DatabaseURL != "" {
		var err error
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to create database pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		leadsRepo = leads.NewPostgresRepository(pool)
		orgStore = orgs.NewPostgresStore(pool)
		integStore = integrations.NewPostgresStore(pool)
		alertStore = alerts.NewPostgresStore(pool)
		analyticsStore = analytics.NewPostgresStore(pool)
		dashboard = analytics.NewDashboard(pool)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory storage")
		leadsRepo = leads.NewInMemoryRepository()
		orgStore = orgs.NewInMemoryStore()
		integStore = integrations.NewInMemoryStore()
		alertStore = alerts.NewInMemoryStore()
		analyticsStore = analytics.NewInMemoryStore()
	}

	cipher, err := secrets.NewCipher(cfg.EncryptionKey)
	if err != nil {
		logger.Error("failed to initialize credential cipher", "error", err)
		os.Exit(1)
	}
	resolver := integrations.NewResolver(integStore, cipher)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	pipelineMetrics := metrics.NewPipelineMetrics(registry)

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

	// Queue. In memory-queue mode the evaluator and worker run inside this
	// process; otherwise the dispatch-worker binary consumes the SQS queue.
	if cfg.UseMemoryQueue {
		queue := dispatch.NewMemoryQueue(256)
		publisher := dispatch.NewPublisher(queue)
		evaluator := dispatch.NewEvaluator(leadsRepo, publisher, dispatch.EvaluatorConfig{
			Interval:             cfg.EvaluatorInterval,
			BatchSize:            cfg.EvaluatorBatchSize,
			DefaultThresholdMins: cfg.DefaultThresholdMins,
		}, logger)
		worker := dispatch.NewWorker(dispatcher, queue, dispatch.WorkerConfig{
			Workers: cfg.WorkerCount,
		}, logger)

		go evaluator.Run(ctx)
		worker.Start(ctx)
		logger.Info("running evaluator and dispatch worker in-process", "workers", cfg.WorkerCount)
	} else if cfg.DispatchQueueURL != "" {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		queue := dispatch.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.DispatchQueueURL)
		publisher := dispatch.NewPublisher(queue)
		evaluator := dispatch.NewEvaluator(leadsRepo, publisher, dispatch.EvaluatorConfig{
			Interval:             cfg.EvaluatorInterval,
			BatchSize:            cfg.EvaluatorBatchSize,
			DefaultThresholdMins: cfg.DefaultThresholdMins,
		}, logger)
		go evaluator.Run(ctx)
	} else {
		logger.Warn("no dispatch queue configured, overdue leads will not be called")
	}

	// Chatbot falls back to canned replies when Gemini is not configured.
	var llm chatbot.LLM
	if cfg.GeminiAPIKey != "" {
		gemini, err := chatbot.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("failed to initialize Gemini client", "error", err)
			os.Exit(1)
		}
		defer gemini.Close()
		llm = gemini
	}

	var billingWebhook *billing.WebhookHandler
	if cfg.BillingWebhookSecret != "" {
		billingWebhook, err = billing.NewWebhookHandler(cfg.BillingWebhookSecret, orgStore, logger)
		if err != nil {
			logger.Error("failed to initialize billing webhook", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("BILLING_WEBHOOK_SECRET not set, billing webhook disabled")
	}

	var limiter httpmiddleware.Limiter
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer func() { _ = redisClient.Close() }()
		limiter = httpmiddleware.NewRedisRateLimiter(redisClient, 120, time.Minute, logger)
	} else {
		limiter = httpmiddleware.NewLocalRateLimiter(2, 120)
	}

	r := router.New(&router.Config{
		Logger:              logger,
		LeadsHandler:        leads.NewHandler(leadsRepo, orgStore, cfg.WebhookSecretKey, pipelineMetrics, logger),
		OrgsHandler:         orgs.NewHandler(orgStore, logger),
		IntegrationsHandler: integrations.NewHandler(integStore, cipher, logger),
		DispatchHandler:     dispatch.NewHandler(dispatcher, leadsRepo, logger),
		ChatbotHandler:      chatbot.NewHandler(chatbot.NewService(llm, logger), logger),
		AnalyticsHandler:    analytics.NewHandler(analytics.NewService(analyticsStore, logger), dashboard, logger),
		BillingWebhook:      billingWebhook,
		MetricsHandler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		SessionSecret:       cfg.SessionJWTSecret,
		RateLimiter:         limiter,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
	})

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

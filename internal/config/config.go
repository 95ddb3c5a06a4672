package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port           string
	Env            string
	LogLevel       string
	DatabaseURL    string
	AppBaseURL     string
	UseMemoryQueue bool
	WorkerCount    int

	// Inbound lead webhook auth
	WebhookSecretKey string

	// Credential encryption
	EncryptionKey string

	// Session auth for dashboard-facing endpoints
	SessionJWTSecret string

	// Threshold evaluation
	EvaluatorInterval      time.Duration
	EvaluatorBatchSize     int
	DefaultThresholdMins   int
	DispatchRequestTimeout time.Duration

	// Retell calling API
	RetellBaseURL    string
	RetellAgentID    string
	RetellFromNumber string

	// Failure alerting
	SlackAlertWebhookURL string
	AlertEmailTo         string
	SendGridAPIKey       string
	SendGridFromEmail    string
	SendGridFromName     string

	// Chatbot
	GeminiAPIKey string
	GeminiModel  string

	// Dispatch queue
	AWSRegion           string
	AWSEndpointOverride string
	DispatchQueueURL    string

	// Billing webhook signature verification
	BillingWebhookSecret string

	// Rate limiting
	RedisAddr     string
	RedisPassword string

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		AppBaseURL:     getEnv("APP_BASE_URL", ""),
		UseMemoryQueue: getEnvAsBool("USE_MEMORY_QUEUE", false),
		WorkerCount:    getEnvAsInt("WORKER_COUNT", 2),

		WebhookSecretKey: getEnv("WEBHOOK_SECRET_KEY", ""),
		EncryptionKey:    getEnv("ENCRYPTION_KEY", ""),
		SessionJWTSecret: getEnv("SESSION_JWT_SECRET", ""),

		EvaluatorInterval:      getEnvAsDuration("EVALUATOR_INTERVAL", time.Minute),
		EvaluatorBatchSize:     getEnvAsInt("EVALUATOR_BATCH_SIZE", 100),
		DefaultThresholdMins:   getEnvAsInt("DEFAULT_THRESHOLD_MINUTES", 5),
		DispatchRequestTimeout: getEnvAsDuration("DISPATCH_REQUEST_TIMEOUT", 10*time.Second),

		RetellBaseURL:    getEnv("RETELL_BASE_URL", "https://api.retellai.com"),
		RetellAgentID:    getEnv("RETELL_AGENT_ID", ""),
		RetellFromNumber: getEnv("RETELL_FROM_NUMBER", ""),

		SlackAlertWebhookURL: getEnv("SLACK_ALERT_WEBHOOK_URL", ""),
		AlertEmailTo:         getEnv("ALERT_EMAIL_TO", ""),
		SendGridAPIKey:       getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail:    getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:     getEnv("SENDGRID_FROM_NAME", "Jungle"),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		DispatchQueueURL:    getEnv("DISPATCH_QUEUE_URL", ""),

		BillingWebhookSecret: getEnv("BILLING_WEBHOOK_SECRET", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		CORSAllowedOrigins: splitAndTrim(getEnv("CORS_ALLOWED_ORIGINS", "")),
	}
}

// Validate checks invariants that must hold before the process serves traffic.
func (c *Config) Validate() error {
	if c.WebhookSecretKey == "" {
		return errors.New("config: WEBHOOK_SECRET_KEY is required")
	}
	if len(c.EncryptionKey) < 32 {
		return errors.New("config: ENCRYPTION_KEY must be at least 32 characters")
	}
	if c.DefaultThresholdMins < 1 || c.DefaultThresholdMins > 60 {
		return errors.New("config: DEFAULT_THRESHOLD_MINUTES must be between 1 and 60")
	}
	return nil
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	DatabaseURL   string

	// Session / token signing
	AuthJWTSecret         string
	QRTokenSecret         string
	QRTokenTTL            time.Duration
	PaymentsWebhookSecret string

	// Redis (caches, integration settings, realtime pub/sub)
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// CORS
	CORSAllowedOrigins []string

	// Rate limiting (requests/second and burst per IP on public endpoints)
	RateLimitRPS   float64
	RateLimitBurst int

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Object storage (pre-check-in documents, avatars)
	DocumentsBucket  string
	MaxUploadSizeMB  int
	AllowedMIMETypes []string

	// Notification delivery
	UseMemoryQueue       bool
	NotificationQueueURL string
	WorkerCount          int

	// Email
	EmailProvider     string // "ses", "sendgrid", or "stub"
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string
	SESFromName       string

	// SMS / WhatsApp messaging API
	MessagingAPIBaseURL string
	MessagingAPIKey     string

	// Triage chat
	TriageQueueURL  string
	TriageJobsTable string
	BedrockModelID  string
	GeminiAPIKey    string
	GeminiModelID   string
	TriageMaxTokens int

	// Patient search cache
	PatientSearchCacheTTL time.Duration

	// Queue polling fallback interval advertised to clients
	QueueRefreshInterval time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		AuthJWTSecret:         getEnv("AUTH_JWT_SECRET", ""),
		QRTokenSecret:         getEnv("QR_TOKEN_SECRET", ""),
		QRTokenTTL:            getEnvAsDuration("QR_TOKEN_TTL", 2*time.Hour),
		PaymentsWebhookSecret: getEnv("PAYMENTS_WEBHOOK_SECRET", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),

		RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 30),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		DocumentsBucket: getEnv("DOCUMENTS_BUCKET", ""),
		MaxUploadSizeMB: getEnvAsInt("MAX_UPLOAD_SIZE_MB", 10),
		AllowedMIMETypes: getEnvAsList("ALLOWED_MIME_TYPES",
			[]string{"application/pdf", "image/jpeg", "image/png"}),

		UseMemoryQueue:       getEnvAsBool("USE_MEMORY_QUEUE", false),
		NotificationQueueURL: getEnv("NOTIFICATION_QUEUE_URL", ""),
		WorkerCount:          getEnvAsInt("WORKER_COUNT", 2),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "CliniGo"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SESFromName:       getEnv("SES_FROM_NAME", "CliniGo"),

		MessagingAPIBaseURL: getEnv("MESSAGING_API_BASE_URL", ""),
		MessagingAPIKey:     getEnv("MESSAGING_API_KEY", ""),

		TriageQueueURL:  getEnv("TRIAGE_QUEUE_URL", ""),
		TriageJobsTable: getEnv("TRIAGE_JOBS_TABLE", "triage_jobs"),
		BedrockModelID:  getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:   getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		TriageMaxTokens: getEnvAsInt("TRIAGE_MAX_TOKENS", 1024),

		PatientSearchCacheTTL: getEnvAsDuration("PATIENT_SEARCH_CACHE_TTL", 30*time.Second),
		QueueRefreshInterval:  getEnvAsDuration("QUEUE_REFRESH_INTERVAL", 30*time.Second),
	}
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
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

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// MaxUploadSizeBytes returns the configured upload limit in bytes.
func (c *Config) MaxUploadSizeBytes() int64 {
	return int64(c.MaxUploadSizeMB) * 1024 * 1024
}

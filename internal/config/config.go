package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; only DATABASE_URL is required.
// The worker process additionally validates mail-provider credentials at
// startup via transport.New.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Worker metrics listener
	MetricsPort string

	// Database
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Mail provider
	MailProvider   string // stdout, smtp, or sendgrid
	MailFrom       string
	MailFromName   string
	SendGridAPIKey string
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string

	// Enqueue behaviour
	StaggerInterval time.Duration // delay between consecutive recipients of one dispatch
	MaxRecipients   int           // batch cap; recipients beyond it are silently dropped

	// Dispatcher behaviour
	DispatchWorkers int // in-flight sends per worker process; 1 respects provider throttling
	SendRatePerSec  int
	MaxAttempts     int

	// Retry backoff durations: index 0 = first retry delay, etc.
	RetryBackoff []time.Duration

	// Background poll intervals
	FeederInterval  time.Duration
	RetryInterval   time.Duration
	RequeueInterval time.Duration
}

func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		MetricsPort: getEnv("METRICS_PORT", "9090"),

		DatabaseURL: dbURL,
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 5)),

		MailProvider:   getEnv("MAIL_PROVIDER", "stdout"),
		MailFrom:       getEnv("MAIL_FROM", "noreply@alumnihub.example"),
		MailFromName:   getEnv("MAIL_FROM_NAME", "Alumni Network"),
		SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		SMTPHost:       os.Getenv("SMTP_HOST"),
		SMTPPort:       getInt("SMTP_PORT", 587),
		SMTPUsername:   os.Getenv("SMTP_USERNAME"),
		SMTPPassword:   os.Getenv("SMTP_PASSWORD"),

		StaggerInterval: getDuration("STAGGER_INTERVAL", 3*time.Second),
		MaxRecipients:   getInt("MAX_RECIPIENTS", 500),

		DispatchWorkers: getInt("DISPATCH_WORKERS", 1),
		SendRatePerSec:  getInt("SEND_RATE_PER_SEC", 1),
		MaxAttempts:     getInt("MAX_ATTEMPTS", 3),

		RetryBackoff: []time.Duration{
			getDuration("RETRY_BACKOFF_1", 5*time.Second),
			getDuration("RETRY_BACKOFF_2", 30*time.Second),
			getDuration("RETRY_BACKOFF_3", 120*time.Second),
		},

		FeederInterval:  getDuration("FEEDER_INTERVAL", time.Second),
		RetryInterval:   getDuration("RETRY_INTERVAL", 10*time.Second),
		RequeueInterval: getDuration("REQUEUE_INTERVAL", 60*time.Second),
	}, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

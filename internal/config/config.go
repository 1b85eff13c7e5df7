package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env      string
	HTTPPort string

	DatabaseURL string
	RedisURL    string

	WorkerAuthEnabled bool
	WorkerTokenSecret string
	WorkerTokenIssuer string
	WorkerTokenTTL    time.Duration

	CredentialSealKey string

	WorkerOfflineAfter time.Duration
	ReconcileInterval  time.Duration

	RobotRateLimitPerMin int
	APIRateLimitPerMin   int
	RateLimitFailOpen    bool

	ExportBucket        string
	ExportEndpoint      string
	ExportAccessKey     string
	ExportSecretKey     string
	ExportUseSSL        bool
	ExportURLTTL        time.Duration
	ExportEnabled       bool

	LogLevel  string
	LogFormat string

	OTELMetricsEnabled       bool
	OTELTracingEnabled       bool
	OTELExporterOTLPEndpoint string
	OTELExporterOTLPInsecure bool
	OTELServiceName          string
	OTELEnvironment          string
	OTELTraceSamplingRatio   float64
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:                  getEnv("APP_ENV", "development"),
		HTTPPort:             getEnv("HTTP_PORT", "8080"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		RedisURL:             os.Getenv("REDIS_URL"),
		WorkerAuthEnabled:    getEnvBool("WORKER_AUTH_ENABLED", true),
		WorkerTokenSecret:    os.Getenv("WORKER_TOKEN_SECRET"),
		WorkerTokenIssuer:    getEnv("WORKER_TOKEN_ISSUER", "flexeasy-relay"),
		CredentialSealKey:    os.Getenv("CREDENTIAL_SEAL_KEY"),
		RobotRateLimitPerMin: getEnvInt("ROBOT_RATE_LIMIT_PER_MIN", 240),
		APIRateLimitPerMin:   getEnvInt("API_RATE_LIMIT_PER_MIN", 120),
		RateLimitFailOpen:    getEnvBool("RATE_LIMIT_FAIL_OPEN", true),
		ExportBucket:         getEnv("EXPORT_BUCKET", "capture-exports"),
		ExportEndpoint:       os.Getenv("EXPORT_S3_ENDPOINT"),
		ExportAccessKey:      os.Getenv("EXPORT_S3_ACCESS_KEY"),
		ExportSecretKey:      os.Getenv("EXPORT_S3_SECRET_KEY"),
		ExportUseSSL:         getEnvBool("EXPORT_S3_USE_SSL", true),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "json"),

		OTELMetricsEnabled:       getEnvBool("OTEL_METRICS_ENABLED", false),
		OTELTracingEnabled:       getEnvBool("OTEL_TRACING_ENABLED", false),
		OTELExporterOTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		OTELExporterOTLPInsecure: getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELServiceName:          getEnv("OTEL_SERVICE_NAME", "flexeasy-relay"),
		OTELEnvironment:          getEnv("OTEL_ENVIRONMENT", "development"),
	}
	cfg.ExportEnabled = cfg.ExportEndpoint != ""

	tokenTTL, err := time.ParseDuration(getEnv("WORKER_TOKEN_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("parse WORKER_TOKEN_TTL: %w", err)
	}
	cfg.WorkerTokenTTL = tokenTTL

	offlineAfter, err := time.ParseDuration(getEnv("WORKER_OFFLINE_AFTER", "120s"))
	if err != nil {
		return nil, fmt.Errorf("parse WORKER_OFFLINE_AFTER: %w", err)
	}
	cfg.WorkerOfflineAfter = offlineAfter

	reconcileEvery, err := time.ParseDuration(getEnv("RECONCILE_INTERVAL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("parse RECONCILE_INTERVAL: %w", err)
	}
	cfg.ReconcileInterval = reconcileEvery

	exportURLTTL, err := time.ParseDuration(getEnv("EXPORT_URL_TTL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("parse EXPORT_URL_TTL: %w", err)
	}
	cfg.ExportURLTTL = exportURLTTL

	samplingRatio, err := strconv.ParseFloat(getEnv("OTEL_TRACE_SAMPLING_RATIO", "1.0"), 64)
	if err != nil {
		return nil, fmt.Errorf("parse OTEL_TRACE_SAMPLING_RATIO: %w", err)
	}
	cfg.OTELTraceSamplingRatio = samplingRatio

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if c.WorkerAuthEnabled && len(c.WorkerTokenSecret) < 32 {
		errs = append(errs, "WORKER_TOKEN_SECRET must be at least 32 chars when worker auth is enabled")
	}
	if c.CredentialSealKey != "" && len(c.CredentialSealKey) != 32 {
		errs = append(errs, "CREDENTIAL_SEAL_KEY must be exactly 32 bytes")
	}
	if c.WorkerOfflineAfter <= 0 {
		errs = append(errs, "WORKER_OFFLINE_AFTER must be > 0")
	}
	if c.ReconcileInterval <= 0 {
		errs = append(errs, "RECONCILE_INTERVAL must be > 0")
	}
	if c.RobotRateLimitPerMin <= 0 {
		errs = append(errs, "ROBOT_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.APIRateLimitPerMin <= 0 {
		errs = append(errs, "API_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.ExportEnabled && (c.ExportAccessKey == "" || c.ExportSecretKey == "") {
		errs = append(errs, "EXPORT_S3_ACCESS_KEY and EXPORT_S3_SECRET_KEY are required when EXPORT_S3_ENDPOINT is set")
	}
	if c.OTELTraceSamplingRatio < 0 || c.OTELTraceSamplingRatio > 1 {
		errs = append(errs, "OTEL_TRACE_SAMPLING_RATIO must be between 0 and 1")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

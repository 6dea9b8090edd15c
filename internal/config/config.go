package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/riskibarqy/homerun-cage/internal/domain/recall"
	"github.com/riskibarqy/homerun-cage/internal/platform/logging"
	"github.com/riskibarqy/homerun-cage/internal/platform/resilience"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"

	StoreMemory   = "memory"
	StorePostgres = "postgres"

	QueueLocal  = "local"
	QueueRiver  = "river"
	QueueQStash = "qstash"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv          string        `env:"APP_ENV" envDefault:"dev"`
	ServiceName     string        `env:"APP_SERVICE_NAME" envDefault:"homerun-cage-api"`
	ServiceVersion  string        `env:"APP_SERVICE_VERSION" envDefault:"dev"`
	HTTPAddr        string        `env:"APP_HTTP_ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"APP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"APP_WRITE_TIMEOUT" envDefault:"15s"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RawLogLevel     string        `env:"APP_LOG_LEVEL" envDefault:"info"`
	RawLogFormat    string        `env:"APP_LOG_FORMAT" envDefault:"json"`

	StoreDriver             string `env:"STORE_DRIVER" envDefault:"memory"`
	DBURL                   string `env:"DB_URL"`
	DBDisablePreparedBinary bool   `env:"DB_DISABLE_PREPARED_BINARY_RESULT" envDefault:"true"`
	SeedFile                string `env:"SEED_FILE"`

	CacheTTL           time.Duration `env:"CACHE_TTL" envDefault:"60s"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	RawSwaggerEnabled  *bool         `env:"SWAGGER_ENABLED"`
	SwaggerEnabled     bool          `env:"-"`

	PprofEnabled bool   `env:"PPROF_ENABLED" envDefault:"false"`
	PprofAddr    string `env:"PPROF_ADDR" envDefault:":6060"`

	UptraceEnabled     bool   `env:"UPTRACE_ENABLED" envDefault:"false"`
	UptraceDSN         string `env:"UPTRACE_DSN"`
	OTLPHeaders        string `env:"OTEL_EXPORTER_OTLP_HEADERS"`
	UptraceLogsEnabled bool   `env:"UPTRACE_LOGS_ENABLED" envDefault:"false"`
	MetricsEnabled     bool   `env:"METRICS_ENABLED" envDefault:"true"`
	EventBusBuffer     int64  `env:"EVENT_BUS_BUFFER" envDefault:"64"`
	LightingEnabled    bool   `env:"LIGHTING_ENABLED" envDefault:"true"`

	PyroscopeEnabled           bool          `env:"PYROSCOPE_ENABLED" envDefault:"false"`
	PyroscopeServerAddress     string        `env:"PYROSCOPE_SERVER_ADDRESS"`
	PyroscopeAppName           string        `env:"PYROSCOPE_APP_NAME"`
	PyroscopeAuthToken         string        `env:"PYROSCOPE_AUTH_TOKEN"`
	PyroscopeBasicAuthUser     string        `env:"PYROSCOPE_BASIC_AUTH_USER"`
	PyroscopeBasicAuthPassword string        `env:"PYROSCOPE_BASIC_AUTH_PASSWORD"`
	PyroscopeUploadRate        time.Duration `env:"PYROSCOPE_UPLOAD_RATE" envDefault:"15s"`

	RecallDisable       bool          `env:"RECALL_DISABLE" envDefault:"false"`
	RecallWindowSize    int           `env:"RECALL_WINDOW_SIZE" envDefault:"2"`
	RecallWindowMinutes int           `env:"RECALL_WINDOW_MINUTES" envDefault:"20"`
	RecallInterval      time.Duration `env:"RECALL_INTERVAL" envDefault:"30s"`
	RecallSenderID      string        `env:"RECALL_SENDER_ID" envDefault:"MLB"`
	SMSDedupWindow      time.Duration `env:"SMS_DEDUP_WINDOW" envDefault:"30s"`

	JobQueueDriver   string        `env:"JOB_QUEUE_DRIVER" envDefault:"local"`
	JobWorkers       int           `env:"JOB_WORKERS" envDefault:"8"`
	JobMaxAttempts   int           `env:"JOB_MAX_ATTEMPTS" envDefault:"5"`
	JobBaseBackoff   time.Duration `env:"JOB_BASE_BACKOFF" envDefault:"1s"`
	JobMaxBackoff    time.Duration `env:"JOB_MAX_BACKOFF" envDefault:"1m"`
	JobDedupTTL      time.Duration `env:"JOB_DEDUP_TTL" envDefault:"10m"`
	InternalJobToken string        `env:"INTERNAL_JOB_TOKEN"`

	QStashBaseURL               string        `env:"QSTASH_BASE_URL" envDefault:"https://qstash.upstash.io"`
	QStashToken                 string        `env:"QSTASH_TOKEN"`
	QStashTargetBaseURL         string        `env:"QSTASH_TARGET_BASE_URL"`
	QStashRetries               int           `env:"QSTASH_RETRIES" envDefault:"3"`
	QStashTimeout               time.Duration `env:"QSTASH_TIMEOUT" envDefault:"5s"`
	QStashCircuitEnabled        bool          `env:"QSTASH_CIRCUIT_ENABLED" envDefault:"true"`
	QStashCircuitFailureCount   int           `env:"QSTASH_CIRCUIT_FAILURE_COUNT" envDefault:"5"`
	QStashCircuitOpenTimeout    time.Duration `env:"QSTASH_CIRCUIT_OPEN_TIMEOUT" envDefault:"15s"`
	QStashCircuitHalfOpenMaxReq int           `env:"QSTASH_CIRCUIT_HALF_OPEN_MAX_REQ" envDefault:"2"`

	SMSGatewayURL            string        `env:"SMS_GATEWAY_URL"`
	SMSAPIKey                string        `env:"SMS_API_KEY"`
	SMSTimeout               time.Duration `env:"SMS_TIMEOUT" envDefault:"5s"`
	SMSRatePerSecond         float64       `env:"SMS_RATE_PER_SECOND" envDefault:"5"`
	SMSBurst                 int           `env:"SMS_BURST" envDefault:"5"`
	SMSCircuitEnabled        bool          `env:"SMS_CIRCUIT_ENABLED" envDefault:"true"`
	SMSCircuitFailureCount   int           `env:"SMS_CIRCUIT_FAILURE_COUNT" envDefault:"5"`
	SMSCircuitOpenTimeout    time.Duration `env:"SMS_CIRCUIT_OPEN_TIMEOUT" envDefault:"15s"`
	SMSCircuitHalfOpenMaxReq int           `env:"SMS_CIRCUIT_HALF_OPEN_MAX_REQ" envDefault:"2"`

	SouvenirRendererURL   string        `env:"SOUVENIR_RENDERER_URL"`
	SouvenirAPIKey        string        `env:"SOUVENIR_API_KEY"`
	SouvenirTimeout       time.Duration `env:"SOUVENIR_TIMEOUT" envDefault:"20s"`
	SouvenirPublicBaseURL string        `env:"SOUVENIR_PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	SouvenirSlugSize      int           `env:"SOUVENIR_SLUG_SIZE" envDefault:"10"`

	LogLevel  logging.Level  `env:"-"`
	LogFormat logging.Format `env:"-"`
}

// Load reads an optional .env file and then the process environment.
// Variables already present in the environment win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	appEnv, err := parseAppEnv(c.AppEnv)
	if err != nil {
		return err
	}
	c.AppEnv = appEnv

	c.SwaggerEnabled = appEnv != EnvProd
	if c.RawSwaggerEnabled != nil {
		c.SwaggerEnabled = *c.RawSwaggerEnabled
	}
	c.LogLevel = parseLogLevel(c.RawLogLevel)
	c.LogFormat = parseLogFormat(c.RawLogFormat)

	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	switch c.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if strings.TrimSpace(c.DBURL) == "" {
			return fmt.Errorf("DB_URL is required when STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q: valid values are %s, %s", c.StoreDriver, StoreMemory, StorePostgres)
	}

	if err := c.normalizeJobQueue(); err != nil {
		return err
	}

	c.UptraceDSN = strings.TrimSpace(c.UptraceDSN)
	if c.UptraceDSN == "" {
		c.UptraceDSN = parseUptraceDSNFromOTLPHeaders(c.OTLPHeaders)
	}
	if c.UptraceEnabled && c.UptraceDSN == "" {
		return fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	c.PprofAddr = strings.TrimSpace(c.PprofAddr)
	if c.PprofEnabled && c.PprofAddr == "" {
		c.PprofAddr = ":6060"
	}

	c.PyroscopeServerAddress = strings.TrimSpace(c.PyroscopeServerAddress)
	if c.PyroscopeEnabled && c.PyroscopeServerAddress == "" {
		return fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	if strings.TrimSpace(c.PyroscopeAppName) == "" {
		c.PyroscopeAppName = c.ServiceName
	}
	if c.PyroscopeUploadRate <= 0 {
		return fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	c.CORSAllowedOrigins = trimAll(c.CORSAllowedOrigins)
	if len(c.CORSAllowedOrigins) == 0 {
		return fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be > 0")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("APP_SHUTDOWN_TIMEOUT must be > 0")
	}
	if c.RecallInterval <= 0 {
		return fmt.Errorf("RECALL_INTERVAL must be > 0")
	}
	if strings.TrimSpace(c.RecallSenderID) == "" {
		return fmt.Errorf("RECALL_SENDER_ID cannot be empty")
	}
	if c.SMSRatePerSecond < 0 {
		return fmt.Errorf("SMS_RATE_PER_SECOND must be >= 0")
	}
	if c.SMSCircuitFailureCount < 1 {
		return fmt.Errorf("SMS_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	if c.SouvenirSlugSize < 6 {
		return fmt.Errorf("SOUVENIR_SLUG_SIZE must be >= 6")
	}
	return nil
}

func (c *Config) normalizeJobQueue() error {
	c.JobQueueDriver = strings.ToLower(strings.TrimSpace(c.JobQueueDriver))
	switch c.JobQueueDriver {
	case QueueLocal:
	case QueueRiver:
		if strings.TrimSpace(c.DBURL) == "" {
			return fmt.Errorf("DB_URL is required when JOB_QUEUE_DRIVER=river")
		}
	case QueueQStash:
		if strings.TrimSpace(c.QStashToken) == "" {
			return fmt.Errorf("QSTASH_TOKEN is required when JOB_QUEUE_DRIVER=qstash")
		}
		if strings.TrimSpace(c.QStashTargetBaseURL) == "" {
			return fmt.Errorf("QSTASH_TARGET_BASE_URL is required when JOB_QUEUE_DRIVER=qstash")
		}
		if strings.TrimSpace(c.InternalJobToken) == "" {
			return fmt.Errorf("INTERNAL_JOB_TOKEN is required when JOB_QUEUE_DRIVER=qstash")
		}
		if c.QStashRetries < 0 {
			return fmt.Errorf("QSTASH_RETRIES must be >= 0")
		}
		if c.QStashCircuitFailureCount < 1 {
			return fmt.Errorf("QSTASH_CIRCUIT_FAILURE_COUNT must be >= 1")
		}
	default:
		return fmt.Errorf("invalid JOB_QUEUE_DRIVER %q: valid values are %s, %s, %s", c.JobQueueDriver, QueueLocal, QueueRiver, QueueQStash)
	}

	if c.JobWorkers < 1 {
		return fmt.Errorf("JOB_WORKERS must be >= 1")
	}
	if c.JobMaxAttempts < 1 {
		return fmt.Errorf("JOB_MAX_ATTEMPTS must be >= 1")
	}
	if c.JobBaseBackoff <= 0 || c.JobMaxBackoff < c.JobBaseBackoff {
		return fmt.Errorf("JOB_BASE_BACKOFF must be > 0 and <= JOB_MAX_BACKOFF")
	}
	return nil
}

// RecallSettings is the window the scheduler starts with.
func (c Config) RecallSettings() recall.Settings {
	return recall.Settings{
		WindowSize:    c.RecallWindowSize,
		WindowMinutes: c.RecallWindowMinutes,
		Disabled:      c.RecallDisable,
	}
}

func (c Config) QStashCircuitBreaker() resilience.CircuitBreakerConfig {
	return resilience.CircuitBreakerConfig{
		Enabled:          c.QStashCircuitEnabled,
		FailureThreshold: c.QStashCircuitFailureCount,
		OpenTimeout:      c.QStashCircuitOpenTimeout,
		HalfOpenMaxReq:   c.QStashCircuitHalfOpenMaxReq,
	}
}

func (c Config) SMSCircuitBreaker() resilience.CircuitBreakerConfig {
	return resilience.CircuitBreakerConfig{
		Enabled:          c.SMSCircuitEnabled,
		FailureThreshold: c.SMSCircuitFailureCount,
		OpenTimeout:      c.SMSCircuitOpenTimeout,
		HalfOpenMaxReq:   c.SMSCircuitHalfOpenMaxReq,
	}
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func parseLogFormat(v string) logging.Format {
	if strings.EqualFold(strings.TrimSpace(v), string(logging.FormatConsole)) {
		return logging.FormatConsole
	}
	return logging.FormatJSON
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		item := strings.TrimSpace(value)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}

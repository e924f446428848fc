// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database connectivity, integration
// endpoints and their retry policies, document storage, and observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-policy-admin")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// DatabaseConfig selects the SQL backend and bounds its connection pool.
type DatabaseConfig struct {
	Driver          string        // sqlite|postgres
	Path            string        // SQLite file path (sqlite driver)
	URL             string        // DSN (postgres driver)
	MaxOpenConns    int           // upper bound of pooled connections
	MaxIdleConns    int           // idle connections kept warm
	ConnMaxLifetime time.Duration // recycle connections after this age
}

// IntegrationConfig carries the endpoint and retry policy of one external system.
type IntegrationConfig struct {
	Name         string
	BaseURL      string
	APIKey       string
	Timeout      time.Duration // hard per-attempt timeout
	MaxRetries   int           // retries after the first attempt
	InitialDelay time.Duration // first backoff delay
	Multiplier   float64       // backoff growth factor (>= 1)
	MaxDelay     time.Duration // backoff cap
}

// IntegrationsConfig groups the external insurance systems.
type IntegrationsConfig struct {
	PolicyStar     IntegrationConfig
	RMV            IntegrationConfig
	SpeedPay       IntegrationConfig
	CLUE           IntegrationConfig
	MaxConcurrency int           // bounded executor size for outbound calls
	LookupCacheTTL time.Duration // RMV/CLUE result cache lifetime
}

// StorageConfig selects where claim document bytes are written.
type StorageConfig struct {
	Backend     string // local|s3
	Dir         string // local backend root
	Bucket      string // s3 backend bucket
	Region      string // AWS_REGION
	EndpointURL string // AWS_ENDPOINT_URL (LocalStack)
}

// EventsConfig configures the domain event publisher.
type EventsConfig struct {
	NATSURL       string // empty => events are logged only
	SubjectPrefix string
}

// FeatureConfig holds feature toggles consumed by the lifecycle services.
type FeatureConfig struct {
	UnderwritingRequired bool // DRAFT must pass through PENDING before ACTIVE
	ExportEnabled        bool // PolicySTAR export endpoint available
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test
	ShutdownTimeout   time.Duration // graceful drain window

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	LogRedact      bool   // scrub PII from access logs
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Persistence
	DB DatabaseConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS      CORSConfig
	Security  SecurityConfig
	JWTSecret string // HS256 key for bearer tokens

	// AuthDevHeaders trusts X-User-ID/X-User-Roles when JWTSecret is empty.
	// Refused in release mode.
	AuthDevHeaders bool

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Domain
	Integrations        IntegrationsConfig
	Storage             StorageConfig
	Events              EventsConfig
	Features            FeatureConfig
	ExpirySweepSchedule string        // cron expression; empty disables the sweeper
	PaymentStaleAfter   time.Duration // age after which unsettled payments are swept

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),
		ShutdownTimeout:   getdur("SHUTDOWN_TIMEOUT", 15*time.Second),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		LogRedact:      getbool("LOG_REDACT", true),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Persistence
		DB: DatabaseConfig{
			Driver:          strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			Path:            getenv("DB_PATH", "policy-admin.db"),
			URL:             getenv("DATABASE_URL", ""),
			MaxOpenConns:    getint("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getint("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getdur("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 20.0),
		RateBurst: getint("RATE_BURST", 40),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},
		JWTSecret:      getenv("JWT_SECRET", ""),
		AuthDevHeaders: getbool("AUTH_DEV_HEADERS", false),

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Domain
		Integrations: IntegrationsConfig{
			PolicyStar:     loadIntegration("POLICYSTAR", "policystar"),
			RMV:            loadIntegration("RMV", "rmv"),
			SpeedPay:       loadIntegration("SPEEDPAY", "speedpay"),
			CLUE:           loadIntegration("CLUE", "clue"),
			MaxConcurrency: getint("INTEGRATION_MAX_CONCURRENCY", 64),
			LookupCacheTTL: getdur("LOOKUP_CACHE_TTL", 15*time.Minute),
		},
		Storage: StorageConfig{
			Backend:     strings.ToLower(getenv("DOCUMENT_STORE", "local")),
			Dir:         getenv("DOCUMENT_DIR", "data/documents"),
			Bucket:      getenv("S3_BUCKET", ""),
			Region:      getenv("AWS_REGION", "us-east-1"),
			EndpointURL: getenv("AWS_ENDPOINT_URL", ""),
		},
		Events: EventsConfig{
			NATSURL:       getenv("NATS_URL", ""),
			SubjectPrefix: getenv("EVENTS_SUBJECT_PREFIX", "insurance"),
		},
		Features: FeatureConfig{
			UnderwritingRequired: getbool("UNDERWRITING_REQUIRED", false),
			ExportEnabled:        getbool("EXPORT_ENABLED", true),
		},
		ExpirySweepSchedule: getenv("EXPIRY_SWEEP_SCHEDULE", "@hourly"),
		PaymentStaleAfter:   getdur("PAYMENT_STALE_AFTER", 15*time.Minute),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-policy-admin"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.DB.Driver == "postgresql" || cfg.DB.Driver == "pg" {
		cfg.DB.Driver = "postgres"
	}
	if strings.EqualFold(cfg.ExpirySweepSchedule, "off") {
		cfg.ExpirySweepSchedule = ""
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.ShutdownTimeout <= 0 {
		return cfg, errors.New("SHUTDOWN_TIMEOUT must be > 0")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.AuthDevHeaders && cfg.GinMode == "release" {
		return cfg, errors.New("AUTH_DEV_HEADERS is not allowed when GIN_MODE=release")
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" && !cfg.AuthDevHeaders {
		return cfg, errors.New("JWT_SECRET must be set unless AUTH_DEV_HEADERS=true")
	}
	if cfg.PaymentStaleAfter <= 0 {
		return cfg, errors.New("PAYMENT_STALE_AFTER must be > 0")
	}
	switch cfg.DB.Driver {
	case "sqlite":
		if strings.TrimSpace(cfg.DB.Path) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DB.URL) == "" {
			return cfg, errors.New("DATABASE_URL must be set when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if cfg.DB.MaxOpenConns < 1 {
		return cfg, errors.New("DB_MAX_OPEN_CONNS must be >= 1")
	}
	if cfg.DB.MaxIdleConns < 0 || cfg.DB.MaxIdleConns > cfg.DB.MaxOpenConns {
		return cfg, errors.New("DB_MAX_IDLE_CONNS must be in [0, DB_MAX_OPEN_CONNS]")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	for _, ic := range []IntegrationConfig{
		cfg.Integrations.PolicyStar, cfg.Integrations.RMV,
		cfg.Integrations.SpeedPay, cfg.Integrations.CLUE,
	} {
		if err := ic.validate(); err != nil {
			return cfg, err
		}
	}
	if cfg.Integrations.MaxConcurrency < 1 {
		return cfg, errors.New("INTEGRATION_MAX_CONCURRENCY must be >= 1")
	}
	if cfg.Integrations.LookupCacheTTL < 0 {
		return cfg, errors.New("LOOKUP_CACHE_TTL must be >= 0")
	}
	switch cfg.Storage.Backend {
	case "local":
		if strings.TrimSpace(cfg.Storage.Dir) == "" {
			return cfg, errors.New("DOCUMENT_DIR must not be empty")
		}
	case "s3":
		if strings.TrimSpace(cfg.Storage.Bucket) == "" {
			return cfg, errors.New("S3_BUCKET must be set when DOCUMENT_STORE=s3")
		}
	default:
		return cfg, errors.New("DOCUMENT_STORE must be one of: local, s3")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// loadIntegration reads the <PREFIX>_* variables of one external system.
func loadIntegration(prefix, name string) IntegrationConfig {
	return IntegrationConfig{
		Name:         name,
		BaseURL:      strings.TrimRight(getenv(prefix+"_BASE_URL", "http://localhost:9090/"+name), "/"),
		APIKey:       getenv(prefix+"_API_KEY", ""),
		Timeout:      getdur(prefix+"_TIMEOUT", 10*time.Second),
		MaxRetries:   getint(prefix+"_MAX_RETRIES", 3),
		InitialDelay: getdur(prefix+"_INITIAL_DELAY", 200*time.Millisecond),
		Multiplier:   getfloat(prefix+"_MULTIPLIER", 2.0),
		MaxDelay:     getdur(prefix+"_MAX_DELAY", 5*time.Second),
	}
}

func (ic IntegrationConfig) validate() error {
	key := strings.ToUpper(ic.Name)
	if strings.TrimSpace(ic.BaseURL) == "" {
		return fmt.Errorf("%s_BASE_URL must not be empty", key)
	}
	if ic.Timeout <= 0 {
		return fmt.Errorf("%s_TIMEOUT must be > 0", key)
	}
	if ic.MaxRetries < 0 {
		return fmt.Errorf("%s_MAX_RETRIES must be >= 0", key)
	}
	if ic.InitialDelay <= 0 || ic.MaxDelay < ic.InitialDelay {
		return fmt.Errorf("%s_INITIAL_DELAY must be > 0 and <= %s_MAX_DELAY", key, key)
	}
	if ic.Multiplier < 1 {
		return fmt.Errorf("%s_MULTIPLIER must be >= 1", key)
	}
	return nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}

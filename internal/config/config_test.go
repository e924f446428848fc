package config

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose")
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

func TestMustLoad_Success_NoPanic(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("MustLoad should not panic on valid defaults, got: %v", r)
		}
	}()
	cfg := MustLoad()
	if cfg.APIBasePath != "/api/v1" {
		t.Fatalf("API_BASE_PATH default expected '/api/v1', got %q", cfg.APIBasePath)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.DB.Driver != "sqlite" || cfg.DB.Path == "" || cfg.DB.MaxOpenConns != 20 {
		t.Fatalf("db defaults unexpected: %+v", cfg.DB)
	}
	ps := cfg.Integrations.PolicyStar
	if ps.Name != "policystar" || ps.MaxRetries != 3 || ps.Timeout != 10*time.Second ||
		ps.InitialDelay != 200*time.Millisecond || ps.Multiplier != 2 || ps.MaxDelay != 5*time.Second {
		t.Fatalf("policystar defaults unexpected: %+v", ps)
	}
	if cfg.Storage.Backend != "local" || cfg.Events.NATSURL != "" || cfg.Events.SubjectPrefix != "insurance" {
		t.Fatalf("storage/events defaults unexpected: %+v %+v", cfg.Storage, cfg.Events)
	}
	if cfg.Features.UnderwritingRequired || !cfg.Features.ExportEnabled {
		t.Fatalf("feature defaults unexpected: %+v", cfg.Features)
	}
	if !cfg.LogRedact || cfg.ExpirySweepSchedule != "@hourly" || cfg.ShutdownTimeout != 15*time.Second {
		t.Fatalf("misc defaults unexpected: %+v", cfg)
	}
}

func TestLoad_Success_Overrides(t *testing.T) {
	// Server
	t.Setenv("PORT", "8088")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("READ_HEADER_TIMEOUT", "1s")
	t.Setenv("WRITE_TIMEOUT", "3s")
	t.Setenv("IDLE_TIMEOUT", "4s")
	t.Setenv("MAX_HEADER_BYTES", "8192")
	t.Setenv("GIN_MODE", "weird") // normalizes to "release"

	// Logging / Docs
	t.Setenv("LOG_LEVEL", "warning")
	t.Setenv("LOG_PRETTY", "yes")
	t.Setenv("LOG_REDACT", "off")
	t.Setenv("SWAGGER_ENABLED", "on")
	t.Setenv("API_BASE_PATH", "api/v2/")

	// Persistence
	t.Setenv("DB_DRIVER", "PostgreSQL")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/ins")
	t.Setenv("DB_MAX_OPEN_CONNS", "8")
	t.Setenv("DB_MAX_IDLE_CONNS", "2")

	// Rate limiting (bad values fall back to defaults)
	t.Setenv("RATE_RPS", "x")
	t.Setenv("RATE_BURST", "nope")

	// Web protection
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.com , , http://b ")
	t.Setenv("ENABLE_HSTS", "TRUE")
	t.Setenv("HSTS_MAX_AGE", "24h")
	t.Setenv("JWT_SECRET", "s3cr3t")
	t.Setenv("IDEMPOTENCY_TTL", "48h")

	// Domain
	t.Setenv("SPEEDPAY_BASE_URL", "https://pay.example.com/")
	t.Setenv("SPEEDPAY_API_KEY", "k")
	t.Setenv("SPEEDPAY_MAX_RETRIES", "0")
	t.Setenv("SPEEDPAY_TIMEOUT", "750ms")
	t.Setenv("INTEGRATION_MAX_CONCURRENCY", "4")
	t.Setenv("DOCUMENT_STORE", "S3")
	t.Setenv("S3_BUCKET", "claims-docs")
	t.Setenv("AWS_ENDPOINT_URL", "http://localstack:4566")
	t.Setenv("NATS_URL", "nats://nats:4222")
	t.Setenv("UNDERWRITING_REQUIRED", "true")
	t.Setenv("EXPORT_ENABLED", "false")
	t.Setenv("EXPIRY_SWEEP_SCHEDULE", "off")

	// OTEL
	t.Setenv("OTEL_ENABLED", "1")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "0")
	t.Setenv("OTEL_SERVICE_NAME", "svc")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "8088" ||
		cfg.ReadTimeout != 2*time.Second ||
		cfg.ReadHeaderTimeout != 1*time.Second ||
		cfg.WriteTimeout != 3*time.Second ||
		cfg.IdleTimeout != 4*time.Second ||
		cfg.MaxHeaderBytes != 8192 ||
		cfg.GinMode != "release" {
		t.Fatalf("server fields unexpected: %+v", cfg)
	}
	if cfg.LogLevel != "warn" || !cfg.LogPretty || cfg.LogRedact || !cfg.SwaggerEnabled || cfg.APIBasePath != "/api/v2" {
		t.Fatalf("logging/docs unexpected: %+v", cfg)
	}
	if cfg.DB.Driver != "postgres" || cfg.DB.URL == "" || cfg.DB.MaxOpenConns != 8 || cfg.DB.MaxIdleConns != 2 {
		t.Fatalf("db unexpected: %+v", cfg.DB)
	}
	if cfg.RateRPS != 20.0 || cfg.RateBurst != 40 {
		t.Fatalf("rate limiting unexpected: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://a.com", "http://b"}) {
		t.Fatalf("cors origins unexpected: %#v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Security.EnableHSTS || cfg.Security.HSTSMaxAge != 24*time.Hour || cfg.JWTSecret != "s3cr3t" {
		t.Fatalf("security unexpected: %+v", cfg.Security)
	}
	if cfg.IdempotencyTTL != 48*time.Hour {
		t.Fatalf("idempotency ttl unexpected: %v", cfg.IdempotencyTTL)
	}

	sp := cfg.Integrations.SpeedPay
	if sp.BaseURL != "https://pay.example.com" || sp.APIKey != "k" || sp.MaxRetries != 0 || sp.Timeout != 750*time.Millisecond {
		t.Fatalf("speedpay unexpected: %+v", sp)
	}
	if cfg.Integrations.MaxConcurrency != 4 {
		t.Fatalf("max concurrency unexpected: %d", cfg.Integrations.MaxConcurrency)
	}
	if cfg.Storage.Backend != "s3" || cfg.Storage.Bucket != "claims-docs" || cfg.Storage.EndpointURL == "" {
		t.Fatalf("storage unexpected: %+v", cfg.Storage)
	}
	if cfg.Events.NATSURL != "nats://nats:4222" {
		t.Fatalf("events unexpected: %+v", cfg.Events)
	}
	if !cfg.Features.UnderwritingRequired || cfg.Features.ExportEnabled {
		t.Fatalf("features unexpected: %+v", cfg.Features)
	}
	if cfg.ExpirySweepSchedule != "" {
		t.Fatalf("sweeper should be disabled, got %q", cfg.ExpirySweepSchedule)
	}
	if !cfg.OTEL.Enabled || cfg.OTEL.Endpoint != "otel:4317" || cfg.OTEL.Insecure || cfg.OTEL.ServiceName != "svc" || cfg.OTEL.SampleRatio != 0.75 {
		t.Fatalf("otel unexpected: %+v", cfg.OTEL)
	}
}

// Each case triggers exactly one validation error.
func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"invalid LOG_LEVEL", map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
		{"empty PORT via spaces", map[string]string{"PORT": "   "}, "PORT must not be empty"},
		{"non-positive timeouts", map[string]string{"READ_TIMEOUT": "0s"}, "timeouts must be positive"},
		{"shutdown timeout", map[string]string{"SHUTDOWN_TIMEOUT": "-1s"}, "SHUTDOWN_TIMEOUT"},
		{"max header bytes", map[string]string{"MAX_HEADER_BYTES": "0"}, "MAX_HEADER_BYTES"},
		{"empty DB_PATH", map[string]string{"DB_PATH": "   "}, "DB_PATH must not be empty"},
		{"unknown driver", map[string]string{"DB_DRIVER": "oracle"}, "DB_DRIVER"},
		{"postgres without url", map[string]string{"DB_DRIVER": "postgres"}, "DATABASE_URL"},
		{"pool open", map[string]string{"DB_MAX_OPEN_CONNS": "0"}, "DB_MAX_OPEN_CONNS"},
		{"pool idle", map[string]string{"DB_MAX_OPEN_CONNS": "2", "DB_MAX_IDLE_CONNS": "3"}, "DB_MAX_IDLE_CONNS"},
		{"rate rps negative", map[string]string{"RATE_RPS": "-1"}, "RATE_RPS"},
		{"rate burst < 1", map[string]string{"RATE_BURST": "0"}, "RATE_BURST"},
		{"hsts max age negative", map[string]string{"HSTS_MAX_AGE": "-1s"}, "HSTS_MAX_AGE"},
		{"idempotency ttl", map[string]string{"IDEMPOTENCY_TTL": "0s"}, "IDEMPOTENCY_TTL"},
		{"integration timeout", map[string]string{"RMV_TIMEOUT": "0s"}, "RMV_TIMEOUT"},
		{"integration retries", map[string]string{"CLUE_MAX_RETRIES": "-1"}, "CLUE_MAX_RETRIES"},
		{"integration delays", map[string]string{"POLICYSTAR_INITIAL_DELAY": "10s"}, "POLICYSTAR_INITIAL_DELAY"},
		{"integration multiplier", map[string]string{"SPEEDPAY_MULTIPLIER": "0.5"}, "SPEEDPAY_MULTIPLIER"},
		{"max concurrency", map[string]string{"INTEGRATION_MAX_CONCURRENCY": "0"}, "INTEGRATION_MAX_CONCURRENCY"},
		{"cache ttl", map[string]string{"LOOKUP_CACHE_TTL": "-1m"}, "LOOKUP_CACHE_TTL"},
		{"unknown store", map[string]string{"DOCUMENT_STORE": "ftp"}, "DOCUMENT_STORE"},
		{"s3 without bucket", map[string]string{"DOCUMENT_STORE": "s3"}, "S3_BUCKET"},
		{"otel sample ratio", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}, "OTEL_TRACES_SAMPLER_ARG"},
		{"no auth in release", map[string]string{"JWT_SECRET": ""}, "JWT_SECRET must be set"},
		{"no auth in debug", map[string]string{"JWT_SECRET": " ", "GIN_MODE": "debug"}, "JWT_SECRET must be set"},
		{"dev headers in release", map[string]string{"AUTH_DEV_HEADERS": "true"}, "AUTH_DEV_HEADERS"},
		{"dev headers default mode", map[string]string{"AUTH_DEV_HEADERS": "1", "GIN_MODE": "bogus"}, "AUTH_DEV_HEADERS"},
		{"payment stale after", map[string]string{"PAYMENT_STALE_AFTER": "0s"}, "PAYMENT_STALE_AFTER"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil || !containsErr(err, tc.want) {
				t.Fatalf("expected %s validation error, got: %v", tc.want, err)
			}
		})
	}
}

func TestLoad_DevHeadersOutsideRelease(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("AUTH_DEV_HEADERS", "true")
	t.Setenv("GIN_MODE", "debug")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.AuthDevHeaders || cfg.JWTSecret != "" || cfg.GinMode != "debug" {
		t.Fatalf("auth config unexpected: dev=%v secret=%q mode=%q", cfg.AuthDevHeaders, cfg.JWTSecret, cfg.GinMode)
	}
}

func TestHelpers_getenv(t *testing.T) {
	t.Setenv("X_EMPTY", "")
	if getenv("X_EMPTY", "d") != "d" {
		t.Fatalf("getenv should fall back to default on empty var")
	}
	t.Setenv("X_SET", "val")
	if getenv("X_SET", "d") != "val" {
		t.Fatalf("getenv should read set value")
	}
}

func TestHelpers_getfloat_getint_getdur(t *testing.T) {
	t.Setenv("F_VALID", "3.14")
	if getfloat("F_VALID", 0) != 3.14 {
		t.Fatalf("getfloat parse failed")
	}
	t.Setenv("F_BAD", "nope")
	if getfloat("F_BAD", 1.23) != 1.23 {
		t.Fatalf("getfloat default on bad parse failed")
	}
	t.Setenv("I_VALID", "42")
	if getint("I_VALID", 0) != 42 {
		t.Fatalf("getint parse failed")
	}
	t.Setenv("I_BAD", "x")
	if getint("I_BAD", 7) != 7 {
		t.Fatalf("getint default on bad parse failed")
	}
	t.Setenv("D_VALID", "150ms")
	if getdur("D_VALID", time.Second) != 150*time.Millisecond {
		t.Fatalf("getdur parse failed")
	}
	t.Setenv("D_BAD", "zzz")
	if getdur("D_BAD", 2*time.Second) != 2*time.Second {
		t.Fatalf("getdur default on bad parse failed")
	}
}

func TestHelpers_getbool(t *testing.T) {
	for i, v := range []string{"1", "true", "TRUE", " yes ", "Y", "on", "On"} {
		k := "B_T_" + string(rune('a'+i))
		t.Setenv(k, v)
		if !getbool(k, false) {
			t.Fatalf("getbool(%q) = false; want true", v)
		}
	}
	for i, v := range []string{"0", "false", "FALSE", " no ", "N", "off", "Off"} {
		k := "B_F_" + string(rune('a'+i))
		t.Setenv(k, v)
		if getbool(k, true) {
			t.Fatalf("getbool(%q) = true; want false", v)
		}
	}
	t.Setenv("B_EMPTY", "")
	if !getbool("B_EMPTY", true) || getbool("B_EMPTY", false) {
		t.Fatalf("getbool default behavior unexpected")
	}
}

func TestHelpers_splitCSV_and_normalizeBasePath(t *testing.T) {
	if out := splitCSV(""); out != nil {
		t.Fatalf("splitCSV empty should return nil")
	}
	if got := splitCSV(" a, ,b ,  c  ,"); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("splitCSV mismatch: got %#v", got)
	}
	for in, want := range map[string]string{"": "/", "v1": "/v1", "/v1/": "/v1", " / ": "/"} {
		if got := normalizeBasePath(in); got != want {
			t.Fatalf("normalizeBasePath(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestMain(m *testing.M) {
	os.Unsetenv("PORT")
	os.Unsetenv("AUTH_DEV_HEADERS")
	os.Setenv("JWT_SECRET", "test-secret")
	os.Exit(m.Run())
}

func containsErr(err error, want string) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), want)
}

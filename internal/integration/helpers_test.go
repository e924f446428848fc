package integration

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tbourn/go-policy-admin/internal/config"
)

func testConfig(name, baseURL string) config.IntegrationConfig {
	return config.IntegrationConfig{
		Name:         name,
		BaseURL:      baseURL,
		APIKey:       "test-key",
		Timeout:      200 * time.Millisecond,
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		Multiplier:   2,
		MaxDelay:     5 * time.Millisecond,
	}
}

func newServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func corsRequest(t *testing.T, cfg CORSConfig, method, origin string) *httptest.ResponseRecorder {
	t.Helper()
	handler := CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("handled"))
	}))

	req := httptest.NewRequest(method, "/api/items", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCORS_DevelopmentIsWildcard(t *testing.T) {
	cfg := CORSConfig{AllowedOrigins: []string{"*"}, Environment: "development"}

	rec := corsRequest(t, cfg, http.MethodGet, "https://anywhere.example")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = corsRequest(t, cfg, http.MethodGet, "")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_ProductionEchoesListedOrigin(t *testing.T) {
	cfg := CORSConfig{
		AllowedOrigins: []string{"https://shop.tidemark.io", "https://back-office.tidemark.io"},
		Environment:    "production",
	}

	for _, origin := range cfg.AllowedOrigins {
		rec := corsRequest(t, cfg, http.MethodGet, origin)
		assert.Equal(t, origin, rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", rec.Header().Get("Vary"))
	}
}

func TestCORS_ProductionIgnoresUnknownOrigin(t *testing.T) {
	cfg := CORSConfig{
		AllowedOrigins: []string{"https://shop.tidemark.io"},
		Environment:    "production",
	}

	rec := corsRequest(t, cfg, http.MethodGet, "https://evil.example")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = corsRequest(t, cfg, http.MethodGet, "")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_ExplicitWildcardOverridesProduction(t *testing.T) {
	cfg := CORSConfig{
		AllowedOrigins: []string{"https://shop.tidemark.io", "*"},
		Environment:    "production",
	}

	rec := corsRequest(t, cfg, http.MethodGet, "https://anywhere.example")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_PreflightShortCircuits(t *testing.T) {
	cfg := CORSConfig{AllowedOrigins: []string{"*"}, Environment: "development"}

	rec := corsRequest(t, cfg, http.MethodOptions, "https://shop.tidemark.io")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String(), "the wrapped handler must not run for preflight")
}

func TestCORS_HeaderLists(t *testing.T) {
	cfg := CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"Accept", "Authorization", "X-Custom"},
		ExposedHeaders: []string{"X-Correlation-ID", "X-User-ID"},
		MaxAge:         7200,
		Environment:    "development",
	}

	rec := corsRequest(t, cfg, http.MethodGet, "")
	assert.Equal(t, "Accept, Authorization, X-Custom", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "X-Correlation-ID, X-User-ID", rec.Header().Get("Access-Control-Expose-Headers"))
	assert.Equal(t, "7200", rec.Header().Get("Access-Control-Max-Age"))
}

func TestCORS_Credentials(t *testing.T) {
	cfg := CORSConfig{
		AllowedOrigins:   []string{"https://shop.tidemark.io"},
		AllowCredentials: true,
		Environment:      "production",
	}

	rec := corsRequest(t, cfg, http.MethodGet, "https://shop.tidemark.io")
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_DefaultsFillIn(t *testing.T) {
	cfg := CORSConfig{AllowedOrigins: []string{"*"}, Environment: "development"}

	rec := corsRequest(t, cfg, http.MethodGet, "")
	assert.Equal(t, "GET, POST, PUT, PATCH, DELETE, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "3600", rec.Header().Get("Access-Control-Max-Age"))
}

func TestDefaultCORSConfig(t *testing.T) {
	cfg := DefaultCORSConfig()

	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Contains(t, cfg.AllowedMethods, "DELETE")
	assert.Equal(t, 3600, cfg.MaxAge)
	assert.Equal(t, "development", cfg.Environment)
}

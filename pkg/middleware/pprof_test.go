package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func allowlistRequest(t *testing.T, mw func(http.Handler) http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	req.RemoteAddr = remoteAddr
	handler.ServeHTTP(rec, req)
	return rec
}

func TestIPAllowlist_AllowsMatchingIP(t *testing.T) {
	mw := IPAllowlist([]string{"127.0.0.0/8"}, discardLogger())
	rec := allowlistRequest(t, mw, "127.0.0.1:40112")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIPAllowlist_RejectsOutsideIP(t *testing.T) {
	mw := IPAllowlist([]string{"10.0.0.0/8"}, discardLogger())
	rec := allowlistRequest(t, mw, "203.0.113.9:40112")

	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, false, body["success"])
}

func TestIPAllowlist_ChecksEveryCIDR(t *testing.T) {
	mw := IPAllowlist([]string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}, discardLogger())

	cases := []struct {
		name   string
		addr   string
		status int
	}{
		{"10 block", "10.4.2.1:5000", http.StatusOK},
		{"172.16 block", "172.20.0.9:5000", http.StatusOK},
		{"192.168 block", "192.168.7.7:5000", http.StatusOK},
		{"public address", "8.8.8.8:5000", http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := allowlistRequest(t, mw, tc.addr)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestIPAllowlist_SkipsInvalidCIDR(t *testing.T) {
	mw := IPAllowlist([]string{"garbage", "127.0.0.0/8"}, discardLogger())
	rec := allowlistRequest(t, mw, "127.0.0.1:5000")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIPAllowlist_IPv6Loopback(t *testing.T) {
	mw := IPAllowlist([]string{"::1/128"}, discardLogger())
	rec := allowlistRequest(t, mw, "[::1]:5000")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIPAllowlist_RemoteAddrWithoutPort(t *testing.T) {
	mw := IPAllowlist([]string{"127.0.0.0/8"}, discardLogger())
	rec := allowlistRequest(t, mw, "127.0.0.1")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIPAllowlist_NoCIDRsDeniesEverything(t *testing.T) {
	mw := IPAllowlist(nil, discardLogger())
	rec := allowlistRequest(t, mw, "127.0.0.1:5000")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func pprofRequest(t *testing.T, cidrs []string, path, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	RegisterPprof(r, cidrs, discardLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remoteAddr
	r.ServeHTTP(rec, req)
	return rec
}

func TestRegisterPprof_IndexServed(t *testing.T) {
	rec := pprofRequest(t, []string{"127.0.0.0/8"}, "/debug/pprof/", "127.0.0.1:5000")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pprof")
}

func TestRegisterPprof_DeniedOutsideAllowlist(t *testing.T) {
	rec := pprofRequest(t, []string{"10.0.0.0/8"}, "/debug/pprof/", "203.0.113.9:5000")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRegisterPprof_NamedProfiles(t *testing.T) {
	for _, path := range []string{"/debug/pprof/cmdline", "/debug/pprof/symbol", "/debug/pprof/heap"} {
		rec := pprofRequest(t, []string{"127.0.0.0/8"}, path, "127.0.0.1:5000")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

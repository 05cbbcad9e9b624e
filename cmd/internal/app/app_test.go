package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	authapi "authcore/cmd/internal/auth/api"

	"github.com/stretchr/testify/require"
)

func testAppConfig() Config {
	return Config{
		Port:               2000,
		Env:                "test",
		APIVersion:         "v1",
		SessionStore:       StoreMemory,
		AccessTokenSecret:  "access-secret-for-tests-0123456789",
		RefreshTokenSecret: "refresh-secret-for-tests-0123456789",
		AccessTokenExpiry:  "15m",
		RefreshTokenExpiry: "7d",
		TokenIssuer:        "authcore",
		StoreTimeout:       2 * time.Second,
		CookieSecure:       true,
		PasswordMinLength:  8,
		PasswordMaxLength:  256,
		Argon2MemoryKiB:    8 * 1024,
		Argon2Iterations:   1,
		Argon2Parallelism:  1,
	}
}

func newTestServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := New(context.Background(), cfg, log)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	ts := httptest.NewServer(a.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any, clientType string) *http.Response {
	t.Helper()

	b, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if clientType != "" {
		req.Header.Set(authapi.ClientTypeHeader, clientType)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return res
}

func decodeData(t *testing.T, res *http.Response, dst any) {
	t.Helper()
	defer res.Body.Close()

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&env))
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func TestNew_RejectsMissingSecrets(t *testing.T) {
	t.Parallel()

	cfg := testAppConfig()
	cfg.RefreshTokenSecret = ""
	_, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
}

func TestApp_HealthAndReadiness(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, testAppConfig())

	res, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NotEmpty(t, res.Header.Get(RequestIDHeader))
	require.Equal(t, "nosniff", res.Header.Get("X-Content-Type-Options"))

	res, err = http.Get(ts.URL + "/readyz")
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
}

func TestApp_ReadinessRequiresDB(t *testing.T) {
	t.Parallel()

	cfg := testAppConfig()
	cfg.ReadinessRequireDB = true
	ts := newTestServer(t, cfg)

	res, err := http.Get(ts.URL + "/readyz")
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
}

func TestApp_Features(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, testAppConfig())

	res, err := http.Get(ts.URL + "/api/v1/features")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var features []string
	decodeData(t, res, &features)
	require.Equal(t, authapi.Features, features)
}

func TestApp_MobileFlowAndMetrics(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, testAppConfig())
	api := ts.URL + "/api/v1/auth"

	res := postJSON(t, api+"/register", map[string]any{
		"firstName":   "Grace",
		"lastName":    "Hopper",
		"email":       "grace@example.com",
		"password":    "Str0ng!Passw0rd",
		"phoneNumber": "+15550100001",
	}, "")
	res.Body.Close()
	require.Equal(t, http.StatusCreated, res.StatusCode)

	res = postJSON(t, api+"/login", map[string]string{
		"email":    "grace@example.com",
		"password": "Str0ng!Passw0rd",
	}, "mobile")
	require.Equal(t, http.StatusOK, res.StatusCode)
	var login struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	decodeData(t, res, &login)
	require.NotEmpty(t, login.AccessToken)
	require.NotEmpty(t, login.RefreshToken)

	res = postJSON(t, api+"/refresh-token", map[string]string{"refreshToken": login.RefreshToken}, "mobile")
	require.Equal(t, http.StatusOK, res.StatusCode)
	var refreshed struct {
		RefreshToken string `json:"refreshToken"`
	}
	decodeData(t, res, &refreshed)
	require.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	res = postJSON(t, api+"/refresh-token", map[string]string{"refreshToken": login.RefreshToken}, "mobile")
	res.Body.Close()
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res = postJSON(t, api+"/logout", map[string]string{"refreshToken": refreshed.RefreshToken}, "mobile")
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	body := string(raw)
	require.Contains(t, body, `authcore_session_operations_total{op="refresh",outcome="ok"} 1`)
	require.Contains(t, body, `authcore_session_operations_total{op="refresh",outcome="rejected"} 1`)
	require.Contains(t, body, `authcore_http_requests_total{code="201",method="POST",route="POST /api/v1/auth/register"} 1`)
	require.True(t, strings.Contains(body, "go_goroutines"))
}

func TestApp_CORSPreflight(t *testing.T) {
	t.Parallel()

	cfg := testAppConfig()
	cfg.CORSAllowedOrigins = []string{"https://app.example.com"}
	cfg.CORSAllowCredentials = true
	ts := newTestServer(t, cfg)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/v1/auth/refresh-token", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusNoContent, res.StatusCode)
	require.Equal(t, "true", res.Header.Get("Access-Control-Allow-Credentials"))
}

package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"antigravity2api-go/internal/config"
	"antigravity2api-go/internal/credential"
	"antigravity2api-go/internal/memory"
	"antigravity2api-go/internal/oauth"
	"antigravity2api-go/internal/quota"
	"antigravity2api-go/internal/signature"
	"antigravity2api-go/internal/storage"
	"antigravity2api-go/internal/upstream"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type noRefresh struct{}

func (noRefresh) Refresh(context.Context, string) (*oauth.TokenResponse, error) {
	return nil, errors.New("unexpected refresh")
}

type noProjects struct{}

func (noProjects) ResolveProject(context.Context, string) (string, error) {
	return "", errors.New("unexpected discovery")
}

func testEngine(t *testing.T, apiKey string) *gin.Engine {
	t.Helper()

	cfg := &config.Config{}
	cfg.Security.APIKey = apiKey
	cfg.Upstream.BaseURL = "http://127.0.0.1:1/v1internal"
	cfg.Streaming.HeartbeatSeconds = 15

	backend := storage.NewFileBackend(t.TempDir())
	require.NoError(t, backend.Initialize(context.Background()))
	store := credential.NewStore(backend)
	pool := credential.NewPool(store, noRefresh{}, noProjects{},
		credential.RotationConfig{Strategy: config.StrategyRoundRobin, RequestCountPerToken: 10}, false)

	return BuildEngine(Dependencies{
		Config:     cfg,
		Store:      store,
		Pool:       pool,
		Quotas:     quota.NewCache(nil),
		Signatures: signature.NewCache(),
		Requester:  upstream.NewRequester(cfg),
		Regulator:  memory.New(128),
	})
}

func TestHealthIsOpen(t *testing.T) {
	engine := testEngine(t, "secret")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ok", gjson.Get(w.Body.String(), "status").String())
	require.True(t, gjson.Get(w.Body.String(), "uptime").Exists())
}

func TestMetricsIsOpen(t *testing.T) {
	engine := testEngine(t, "secret")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAPIRoutesAreGated(t *testing.T) {
	engine := testEngine(t, "secret")

	for _, path := range []string{"/v1/models", "/v1/credentials", "/v1beta/models"} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusUnauthorized, w.Code, path)
		require.JSONEq(t, `{"error":"Invalid API Key"}`, w.Body.String(), path)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	req.Header.Set("Authorization", "Bearer secret")
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestEmptyKeyAdmitsEveryone(t *testing.T) {
	engine := testEngine(t, "")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/models", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/zoheir79/whispey-sub004/internal/auth"
	"github.com/zoheir79/whispey-sub004/internal/config"
	"github.com/zoheir79/whispey-sub004/internal/httpapi"
	"github.com/zoheir79/whispey-sub004/internal/metrics"
	"github.com/zoheir79/whispey-sub004/internal/rbac"
	"github.com/zoheir79/whispey-sub004/internal/users"
	"github.com/zoheir79/whispey-sub004/internal/workspace"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, ready func(context.Context) error) (*gin.Engine, *auth.Codec, *users.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	codec, err := auth.NewCodec(config.AuthConfig{Secret: "router-secret", TTL: time.Hour})
	require.NoError(t, err)
	store := users.NewMemoryStore()
	ws := workspace.NewMemoryRepository()
	m := metrics.New()
	v := auth.NewVerifier(codec, store, m)
	h := &httpapi.Handlers{
		Codec:      codec,
		Verifier:   v,
		Users:      store,
		Workspaces: ws,
		Roles:      rbac.NewResolver(store, ws, v),
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return newRouter(log, m, v, h, ready), codec, store
}

func TestRouter_Healthz(t *testing.T) {
	r, _, _ := newTestRouter(t, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	r, _, _ = newTestRouter(t, func(context.Context) error { return errors.New("db down") })
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_MetricsExposed(t *testing.T) {
	r, _, _ := newTestRouter(t, nil)

	// an unauthenticated API call produces a session result sample
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `whispey_auth_session_results_total{reason="missing_credential"} 1`)
	assert.Contains(t, body, `whispey_auth_guard_decisions_total{class="api",outcome="allowed"} 1`)
}

func TestRouter_GuardsPages(t *testing.T) {
	r, codec, store := newTestRouter(t, nil)
	store.Put(users.User{UserID: "user-1", Email: "alice@example.com", PasswordHash: "x", Status: users.StatusActive})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/projects/abc", nil))
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/sign-in?redirect=%2Fprojects%2Fabc", w.Header().Get("Location"))

	tok, _, err := codec.Issue(time.Now(), auth.Identity{UserID: "user-1"}, 0)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/projects/abc", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: tok})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTokenCommands(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")
	t.Setenv("JWT_TTL", "1h")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"token", "issue", "--user-id", "user-1", "--email", "a@example.com", "--agent-info", `{"agent_id":"a1"}`})
	require.NoError(t, root.Execute())
	tok := strings.TrimSpace(out.String())
	require.NotEmpty(t, tok)

	out.Reset()
	root = newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"token", "verify", tok})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), `"user_id": "user-1"`)
	assert.Contains(t, out.String(), `"agent_id": "a1"`)

	root = newRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"token", "issue"})
	assert.Error(t, root.Execute())
}

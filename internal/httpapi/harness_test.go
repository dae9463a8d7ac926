package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/zoheir79/whispey-sub004/internal/audit"
	"github.com/zoheir79/whispey-sub004/internal/auth"
	"github.com/zoheir79/whispey-sub004/internal/config"
	"github.com/zoheir79/whispey-sub004/internal/credits"
	"github.com/zoheir79/whispey-sub004/internal/rbac"
	"github.com/zoheir79/whispey-sub004/internal/users"
	"github.com/zoheir79/whispey-sub004/internal/workspace"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type throttleCounter struct{ n int }

func (t *throttleCounter) RecordLoginThrottled() { t.n++ }

type harness struct {
	r         *gin.Engine
	h         *Handlers
	codec     *auth.Codec
	users     *users.MemoryStore
	ws        *workspace.MemoryRepository
	credits   *credits.MemoryRepo
	audit     *audit.MemoryRepo
	throttled *throttleCounter
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	codec, err := auth.NewCodec(config.AuthConfig{Secret: "test-secret", TTL: time.Hour})
	require.NoError(t, err)

	hs := &harness{
		codec:     codec,
		users:     users.NewMemoryStore(),
		ws:        workspace.NewMemoryRepository(),
		credits:   credits.NewMemoryRepo(),
		audit:     audit.NewMemoryRepo(),
		throttled: &throttleCounter{},
	}
	verifier := auth.NewVerifier(codec, hs.users, nil)
	hs.h = &Handlers{
		Codec:         codec,
		Verifier:      verifier,
		Users:         hs.users,
		Workspaces:    hs.ws,
		Roles:         rbac.NewResolver(hs.users, hs.ws, verifier),
		Credits:       credits.NewService(hs.credits),
		Audit:         audit.NewService(hs.audit),
		Limiter:       users.NewMemoryAttemptLimiter(3, time.Minute),
		LoginRecorder: hs.throttled,
		BcryptCost:    bcrypt.MinCost,
	}
	hs.r = gin.New()
	hs.h.Mount(hs.r.Group("/api"))
	return hs
}

// seed stores an account with password "secret123" and returns a bearer token for it.
func (hs *harness) seed(t *testing.T, id, email, globalRole string, status users.Status) string {
	t.Helper()
	hash, err := users.HashPassword("secret123", bcrypt.MinCost)
	require.NoError(t, err)
	hs.users.Put(users.User{UserID: id, Email: email, PasswordHash: hash, GlobalRole: globalRole, Status: status})
	tok, _, err := hs.codec.Issue(time.Now(), auth.Identity{UserID: id, Email: email}, 0)
	require.NoError(t, err)
	return tok
}

func (hs *harness) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	hs.r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			return c
		}
	}
	return nil
}

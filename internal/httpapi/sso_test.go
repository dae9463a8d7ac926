package httpapi

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/zoheir79/whispey-sub004/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSSOToken(t *testing.T) {
	hs := newHarness(t)
	issuedAt := time.Now().Truncate(time.Second)

	tok, claims, err := hs.codec.Issue(issuedAt, auth.Identity{
		UserID:    "user-1",
		Email:     "alice@example.com",
		AgentInfo: map[string]any{"agent_id": "agent-7"},
	}, 0)
	require.NoError(t, err)

	w := hs.do(t, http.MethodGet, "/api/validate-sso-token?token="+url.QueryEscape(tok), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "user-1", body["user_id"])
	assert.Equal(t, "alice@example.com", body["user_email"])
	assert.Equal(t, map[string]any{"agent_id": "agent-7"}, body["agent_info"])
	assert.Equal(t, claims.ExpiresAt.Time.UTC().Format("2006-01-02T15:04:05.000Z07:00"), body["expires_at"])
}

func TestValidateSSOToken_EmptyAgentInfo(t *testing.T) {
	hs := newHarness(t)
	tok, _, err := hs.codec.Issue(time.Now(), auth.Identity{UserID: "user-1", Email: "a@example.com"}, 0)
	require.NoError(t, err)

	w := hs.do(t, http.MethodGet, "/api/validate-sso-token?token="+tok, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{}, decode(t, w)["agent_info"])
}

func TestValidateSSOToken_Rejections(t *testing.T) {
	hs := newHarness(t)

	w := hs.do(t, http.MethodGet, "/api/validate-sso-token", nil, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, map[string]any{"valid": false, "error": "Token is required"}, decode(t, w))

	expired, _, err := hs.codec.Issue(time.Now().Add(-2*time.Hour), auth.Identity{UserID: "u"}, time.Hour)
	require.NoError(t, err)
	w = hs.do(t, http.MethodGet, "/api/validate-sso-token?token="+expired, nil, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, map[string]any{"valid": false, "error": "Token has expired"}, decode(t, w))

	w = hs.do(t, http.MethodGet, "/api/validate-sso-token?token=not.a.jwt", nil, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["valid"])
	assert.Contains(t, body["error"], "Invalid token")
}

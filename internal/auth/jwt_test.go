package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/zoheir79/whispey-sub004/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Unix(1700000000, 0).UTC()

func newTestCodec(t *testing.T, cfg config.AuthConfig) *Codec {
	t.Helper()
	if cfg.Secret == "" {
		cfg.Secret = "secret"
	}
	c, err := NewCodec(cfg)
	require.NoError(t, err)
	return c
}

func TestNewCodec_RequiresSecret(t *testing.T) {
	_, err := NewCodec(config.AuthConfig{})
	require.Error(t, err)
}

func TestIssueAndVerify_RoundTrip(t *testing.T) {
	c := newTestCodec(t, config.AuthConfig{Issuer: "whispey", Audience: "dashboard", TTL: time.Hour})

	tok, issued, err := c.Issue(testNow, Identity{
		UserID:    "user-1",
		Email:     "alice@example.com",
		AgentInfo: map[string]any{"agent_id": "agent-7", "agent_name": "Support bot"},
	}, 0)
	require.NoError(t, err)
	require.NotEmpty(t, tok)
	assert.Equal(t, testNow.Add(time.Hour).Unix(), issued.ExpiresAt.Unix())

	claims, err := c.Verify(tok, testNow.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, issued.ID, claims.ID)
	assert.Equal(t, issued.ExpiresAt.Unix(), claims.ExpiresAt.Unix())
	assert.Equal(t, map[string]any{"agent_id": "agent-7", "agent_name": "Support bot"}, claims.AgentInfo)

	name, ok := claims.AgentString("agent_name")
	assert.True(t, ok)
	assert.Equal(t, "Support bot", name)
}

func TestIssue_RequiresUserID(t *testing.T) {
	c := newTestCodec(t, config.AuthConfig{})
	_, _, err := c.Issue(testNow, Identity{Email: "x@example.com"}, time.Minute)
	require.Error(t, err)
}

func TestVerify_ExpiredToken(t *testing.T) {
	c := newTestCodec(t, config.AuthConfig{})
	tok, _, err := c.Issue(testNow.Add(-2*time.Hour), Identity{UserID: "u", Email: "u@example.com"}, time.Hour)
	require.NoError(t, err)

	_, err = c.Verify(tok, testNow)
	require.ErrorIs(t, err, ErrExpired)
	assert.Equal(t, "Token has expired", UserMessage(err))
}

func TestVerify_ExpiryRecheckedBeyondLibraryLeeway(t *testing.T) {
	// The library accepts this token thanks to the leeway; the strict re-check does not.
	c := newTestCodec(t, config.AuthConfig{Leeway: time.Minute})
	tok, _, err := c.Issue(testNow.Add(-time.Hour), Identity{UserID: "u"}, time.Hour-30*time.Second)
	require.NoError(t, err)

	_, err = c.Verify(tok, testNow)
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerify_WrongSecret(t *testing.T) {
	issuer := newTestCodec(t, config.AuthConfig{Secret: "other-secret"})
	verifier := newTestCodec(t, config.AuthConfig{Secret: "secret"})

	// A fresh token and an already expired one both fail on the signature.
	for _, issuedAt := range []time.Time{testNow.Add(-time.Minute), testNow.Add(-2 * time.Hour)} {
		tok, _, err := issuer.Issue(issuedAt, Identity{UserID: "u"}, time.Hour)
		require.NoError(t, err)

		_, err = verifier.Verify(tok, testNow)
		require.ErrorIs(t, err, ErrSignatureInvalid, "issued at %s", issuedAt)
		assert.True(t, strings.HasPrefix(UserMessage(err), "Invalid token: "))
	}
}

func TestVerify_Malformed(t *testing.T) {
	c := newTestCodec(t, config.AuthConfig{})

	for _, raw := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := c.Verify(raw, testNow)
		require.ErrorIs(t, err, ErrMalformed, "input %q", raw)

		var te *TokenError
		require.True(t, errors.As(err, &te))
	}
}

func TestVerify_RejectsNoneAlgorithm(t *testing.T) {
	c := newTestCodec(t, config.AuthConfig{})
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"user_id": "u",
		"exp":     testNow.Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = c.Verify(tok, testNow)
	require.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestVerify_IssuerMismatch(t *testing.T) {
	issuer := newTestCodec(t, config.AuthConfig{Issuer: "someone-else"})
	verifier := newTestCodec(t, config.AuthConfig{Issuer: "whispey"})

	tok, _, err := issuer.Issue(testNow, Identity{UserID: "u"}, time.Hour)
	require.NoError(t, err)

	_, err = verifier.Verify(tok, testNow)
	require.ErrorIs(t, err, ErrInvalidClaims)
}

func TestVerify_LegacyDashboardClaims(t *testing.T) {
	c := newTestCodec(t, config.AuthConfig{})
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "user-9",
		"email": "legacy@example.com",
		"name":  "Legacy User",
		"iat":   testNow.Unix(),
		"exp":   testNow.Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	claims, err := c.Verify(tok, testNow)
	require.NoError(t, err)
	assert.Equal(t, "user-9", claims.UserID)
	assert.Equal(t, "legacy@example.com", claims.Email)
}

func TestVerify_RequiresExpiry(t *testing.T) {
	c := newTestCodec(t, config.AuthConfig{})
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u",
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = c.Verify(tok, testNow)
	require.Error(t, err)
}

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/zoheir79/whispey-sub004/internal/users"
	"github.com/zoheir79/whispey-sub004/pkg/logger"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "

	// SessionCookie is set by the dashboard sign-in page.
	SessionCookie = "auth-token"
	// legacyCookie is still sent by older dashboard builds.
	legacyCookie = "token"
)

// Reason explains an authentication outcome. It is logged and counted,
// never sent to callers.
type Reason string

const (
	ReasonOK                Reason = "ok"
	ReasonMissingCredential Reason = "missing_credential"
	ReasonExpired           Reason = "expired"
	ReasonMalformed         Reason = "malformed"
	ReasonSignatureInvalid  Reason = "signature_invalid"
	ReasonInvalidClaims     Reason = "invalid_claims"
	ReasonUnknownUser       Reason = "unknown_user"
	ReasonInactiveUser      Reason = "inactive_user"
	ReasonStoreError        Reason = "store_error"
)

// Result is the outcome of Resolve. Not being authenticated is a normal
// value, not an error.
type Result struct {
	Authenticated bool
	UserID        string
	Email         string
	Claims        Claims
	Reason        Reason
}

// PrincipalStore is the slice of users.Store the verifier needs.
type PrincipalStore interface {
	FindByID(ctx context.Context, userID string) (users.User, bool, error)
	FindByEmail(ctx context.Context, email string) (users.User, bool, error)
}

// Recorder receives one call per Resolve. May be nil.
type Recorder interface {
	RecordAuth(reason string)
}

// Verifier turns a raw credential into an authenticated principal.
type Verifier struct {
	codec    *Codec
	store    PrincipalStore
	recorder Recorder
	clock    func() time.Time
}

func NewVerifier(codec *Codec, store PrincipalStore, recorder Recorder) *Verifier {
	return &Verifier{codec: codec, store: store, recorder: recorder, clock: time.Now}
}

// Resolve verifies credential (a bare token or "Bearer <token>") and
// confirms the account still exists and is active.
func (v *Verifier) Resolve(ctx context.Context, credential string) Result {
	res := v.resolve(ctx, credential)
	if v.recorder != nil {
		v.recorder.RecordAuth(string(res.Reason))
	}
	if !res.Authenticated && res.Reason != ReasonMissingCredential {
		logger.From(ctx).Debug("authentication rejected", "reason", string(res.Reason))
	}
	return res
}

// ResolveRequest extracts the credential from r and resolves it.
func (v *Verifier) ResolveRequest(r *http.Request) Result {
	return v.Resolve(r.Context(), CredentialFromRequest(r))
}

func (v *Verifier) resolve(ctx context.Context, credential string) Result {
	tok := strings.TrimSpace(credential)
	if strings.HasPrefix(tok, bearerPrefix) {
		tok = strings.TrimSpace(strings.TrimPrefix(tok, bearerPrefix))
	}
	if tok == "" {
		return Result{Reason: ReasonMissingCredential}
	}

	claims, err := v.codec.Verify(tok, v.clock())
	if err != nil {
		return Result{Reason: reasonFor(err)}
	}

	u, ok, err := v.store.FindByID(ctx, claims.UserID)
	if err == nil && !ok && claims.Email != "" {
		u, ok, err = v.store.FindByEmail(ctx, claims.Email)
	}
	if err != nil {
		logger.From(ctx).Error("principal lookup failed", "user_id", claims.UserID, "err", err)
		return Result{Reason: ReasonStoreError}
	}
	if !ok {
		return Result{Reason: ReasonUnknownUser}
	}
	if !u.Status.IsActive() {
		return Result{Reason: ReasonInactiveUser}
	}

	return Result{
		Authenticated: true,
		UserID:        u.UserID,
		Email:         u.Email,
		Claims:        claims,
		Reason:        ReasonOK,
	}
}

func reasonFor(err error) Reason {
	switch {
	case errors.Is(err, ErrExpired):
		return ReasonExpired
	case errors.Is(err, ErrSignatureInvalid):
		return ReasonSignatureInvalid
	case errors.Is(err, ErrMalformed):
		return ReasonMalformed
	default:
		return ReasonInvalidClaims
	}
}

// CredentialFromRequest prefers the Authorization bearer header, then the
// session cookie, then the legacy cookie.
func CredentialFromRequest(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get(authorizationHeader))
	if strings.HasPrefix(raw, bearerPrefix) {
		if tok := strings.TrimSpace(strings.TrimPrefix(raw, bearerPrefix)); tok != "" {
			return tok
		}
	}
	for _, name := range []string{SessionCookie, legacyCookie} {
		if c, err := r.Cookie(name); err == nil && c.Value != "" {
			return c.Value
		}
	}
	return ""
}

// Package guard is the request gate in front of dashboard pages. API routes
// pass through it and authenticate in their own handlers.
package guard

import (
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/zoheir79/whispey-sub004/internal/auth"
	"github.com/zoheir79/whispey-sub004/pkg/logger"

	"github.com/gin-gonic/gin"
)

// HeaderUserID carries the verified user id to downstream page handlers.
// Any inbound value is discarded.
const HeaderUserID = "X-User-Id"

const signInPath = "/sign-in"

// Class is how the guard treats a path.
type Class string

const (
	ClassExempt    Class = "exempt"
	ClassPublic    Class = "public"
	ClassAPI       Class = "api"
	ClassProtected Class = "protected"
)

// DefaultPublicPaths are reachable without a session.
var DefaultPublicPaths = []string{
	signInPath,
	"/sign-up",
	"/terms-of-service",
	"/privacy-policy",
	"/api/auth/login",
	"/api/auth/register",
}

var (
	exemptPrefixes = []string{"/_next/", "/static/"}
	exemptPaths    = map[string]struct{}{"/favicon.ico": {}, "/healthz": {}, "/metrics": {}}
	assetExts      = map[string]struct{}{
		".js": {}, ".css": {}, ".map": {}, ".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {},
		".svg": {}, ".ico": {}, ".webp": {}, ".woff": {}, ".woff2": {}, ".ttf": {}, ".txt": {},
	}
)

// Recorder receives one call per guarded request. May be nil.
type Recorder interface {
	RecordGuard(class, outcome string)
}

// Guard classifies requests and gates protected pages on a verified session.
type Guard struct {
	verifier *auth.Verifier
	public   []string
	recorder Recorder
}

func New(v *auth.Verifier, recorder Recorder) *Guard {
	return &Guard{verifier: v, public: DefaultPublicPaths, recorder: recorder}
}

// Classify decides how p is gated. Public paths match exactly or as a
// prefix followed by "/".
func (g *Guard) Classify(p string) Class {
	if p == "" {
		p = "/"
	}
	if _, ok := exemptPaths[p]; ok {
		return ClassExempt
	}
	for _, pre := range exemptPrefixes {
		if strings.HasPrefix(p, pre) {
			return ClassExempt
		}
	}
	if _, ok := assetExts[strings.ToLower(path.Ext(p))]; ok {
		return ClassExempt
	}
	for _, pub := range g.public {
		if p == pub || strings.HasPrefix(p, pub+"/") {
			return ClassPublic
		}
	}
	if p == "/api" || strings.HasPrefix(p, "/api/") {
		return ClassAPI
	}
	return ClassProtected
}

// SignInURL is where unauthenticated page requests are sent.
func SignInURL(returnTo string) string {
	return signInPath + "?" + url.Values{"redirect": {returnTo}}.Encode()
}

// Middleware gates every request. Protected pages need a session cookie that
// verifies to an active user; otherwise the caller is redirected to sign-in.
func (g *Guard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Header.Del(HeaderUserID)

		class := g.Classify(c.Request.URL.Path)
		if class != ClassProtected {
			g.record(class, "allowed")
			c.Next()
			return
		}

		ck, err := c.Request.Cookie(auth.SessionCookie)
		if err != nil || ck.Value == "" {
			g.redirect(c, "no_session")
			return
		}

		res := g.verifier.Resolve(c.Request.Context(), ck.Value)
		if !res.Authenticated {
			// drop the stale cookie so the sign-in page starts clean
			http.SetCookie(c.Writer, &http.Cookie{Name: auth.SessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
			g.redirect(c, string(res.Reason))
			return
		}

		c.Request.Header.Set(HeaderUserID, res.UserID)
		c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), res.UserID, res.Email))
		c.Set(auth.KeyUserID, res.UserID)
		c.Set(auth.KeyEmail, res.Email)
		g.record(class, "allowed")
		c.Next()
	}
}

func (g *Guard) redirect(c *gin.Context, reason string) {
	logger.FromGin(c).Debug("redirecting to sign-in", "path", c.Request.URL.Path, "reason", reason)
	g.record(ClassProtected, "redirected")
	c.Redirect(http.StatusFound, SignInURL(c.Request.URL.Path))
	c.Abort()
}

func (g *Guard) record(class Class, outcome string) {
	if g.recorder != nil {
		g.recorder.RecordGuard(string(class), outcome)
	}
}

package httpapi

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/zoheir79/whispey-sub004/internal/audit"
	"github.com/zoheir79/whispey-sub004/internal/auth"
	"github.com/zoheir79/whispey-sub004/internal/credits"
	"github.com/zoheir79/whispey-sub004/internal/rbac"
	"github.com/zoheir79/whispey-sub004/internal/users"
	"github.com/zoheir79/whispey-sub004/internal/workspace"
	"github.com/zoheir79/whispey-sub004/pkg/logger"

	"github.com/gin-gonic/gin"
)

// LoginRecorder is notified when the attempt limiter rejects a login.
type LoginRecorder interface {
	RecordLoginThrottled()
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Codec      *auth.Codec
	Verifier   *auth.Verifier
	Users      users.Store
	Workspaces workspace.Repository
	Roles      *rbac.Resolver
	Credits    *credits.Service
	Audit      *audit.Service

	// Limiter is optional; without it logins are not throttled.
	Limiter       users.AttemptLimiter
	LoginRecorder LoginRecorder

	BcryptCost    int
	SecureCookies bool
	Clock         func() time.Time
}

const messageInternal = "Internal server error"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func validEmail(s string) bool { return emailPattern.MatchString(strings.TrimSpace(s)) }

func (h *Handlers) now() time.Time {
	if h.Clock != nil {
		return h.Clock()
	}
	return time.Now()
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

// internalError logs err with request context and answers with a generic message.
func internalError(c *gin.Context, msg string, err error) {
	logger.FromGin(c).Error(msg, "err", err)
	fail(c, http.StatusInternalServerError, messageInternal)
}

// principal returns the identity set by auth.RequireUser.
func principal(c *gin.Context) (userID, email string) {
	userID, _ = auth.UserID(c.Request.Context())
	email, _ = auth.Email(c.Request.Context())
	return userID, email
}

func (h *Handlers) actor(c *gin.Context) audit.Actor {
	uid, _ := principal(c)
	return audit.Actor{UserID: uid, Role: c.GetString(rbac.KeyGlobalRole), IP: c.ClientIP()}
}

// recordAudit is best-effort; a failed append never fails the request.
func (h *Handlers) recordAudit(c *gin.Context, fn func(*audit.Service) error) {
	if h.Audit == nil {
		return
	}
	if err := fn(h.Audit); err != nil {
		logger.FromGin(c).Warn("audit append failed", "err", err)
	}
}

func (h *Handlers) setSessionCookie(c *gin.Context, token string, expires time.Time) {
	maxAge := int(time.Until(expires).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.SessionCookie, token, maxAge, "/", "", h.SecureCookies, true)
}

func (h *Handlers) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.SessionCookie, "", -1, "/", "", h.SecureCookies, true)
}

// userView is the public shape of an account.
type userView struct {
	UserID     string       `json:"user_id"`
	Email      string       `json:"email"`
	FirstName  string       `json:"first_name"`
	LastName   string       `json:"last_name"`
	GlobalRole string       `json:"global_role"`
	Status     users.Status `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  *time.Time   `json:"updated_at,omitempty"`
}

func viewOf(u users.User) userView {
	status := u.Status
	if status == "" {
		status = users.StatusActive
	}
	role := u.GlobalRole
	if role == "" {
		role = rbac.RoleUser
	}
	return userView{
		UserID:     u.UserID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		GlobalRole: role,
		Status:     status,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

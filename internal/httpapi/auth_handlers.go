package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/zoheir79/whispey-sub004/internal/auth"
	"github.com/zoheir79/whispey-sub004/internal/users"
	"github.com/zoheir79/whispey-sub004/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	messageCredentialsRequired = "Email and password are required"
	messageInvalidEmail        = "Invalid email format"
	messageBadCredentials      = "Invalid email or password"
	messageUserNotFound        = "User not found"
	messageTooManyAttempts     = "Too many login attempts. Please try again later."
	messagePasswordTooLong     = "Password must be at most 72 bytes"
)

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Register creates an account, links pending workspace invitations, creates
// the personal workspace and signs the new user in.
func (h *Handlers) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	email := users.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		fail(c, http.StatusBadRequest, messageCredentialsRequired)
		return
	}
	if !validEmail(email) {
		fail(c, http.StatusBadRequest, messageInvalidEmail)
		return
	}
	if len(req.Password) < users.MinPasswordLen {
		fail(c, http.StatusBadRequest, "Password must be at least "+strconv.Itoa(users.MinPasswordLen)+" characters long")
		return
	}
	if len(req.Password) > users.MaxPasswordLen {
		fail(c, http.StatusBadRequest, messagePasswordTooLong)
		return
	}

	hash, err := users.HashPassword(req.Password, h.BcryptCost)
	if err != nil {
		internalError(c, "password hashing failed", err)
		return
	}
	u, err := h.Users.CreateUser(c.Request.Context(), email, hash, strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName))
	if err != nil {
		if errors.Is(err, users.ErrDuplicateEmail) {
			fail(c, http.StatusBadRequest, "User with this email already exists")
			return
		}
		internalError(c, "user insert failed", err)
		return
	}

	log := logger.FromGin(c).With("user_id", u.UserID)
	// Workspace side effects are best-effort; the account already exists.
	if h.Workspaces != nil {
		if n, err := h.Workspaces.LinkPendingInvitations(c.Request.Context(), u.UserID, u.Email); err != nil {
			log.Warn("linking pending invitations failed", "err", err)
		} else if n > 0 {
			log.Info("linked pending invitations", "count", n)
		}
		if w, err := h.Workspaces.CreatePersonalWorkspace(c.Request.Context(), u.UserID, u.Email); err != nil {
			log.Warn("personal workspace creation failed", "err", err)
		} else {
			log.Info("created personal workspace", "workspace_id", w.ID, "name", w.Name)
		}
	}

	h.issueSession(c, u)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	email := users.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		fail(c, http.StatusBadRequest, messageCredentialsRequired)
		return
	}

	ctx := c.Request.Context()
	if h.Limiter != nil {
		allowed, retryAfter, err := h.Limiter.Hit(ctx, email)
		switch {
		case err != nil:
			// fail open
			logger.FromGin(c).Warn("login limiter unavailable", "err", err)
		case !allowed:
			if h.LoginRecorder != nil {
				h.LoginRecorder.RecordLoginThrottled()
			}
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
			fail(c, http.StatusTooManyRequests, messageTooManyAttempts)
			return
		}
	}

	u, found, err := h.Users.FindByEmail(ctx, email)
	if err != nil {
		internalError(c, "user lookup failed", err)
		return
	}
	if !found || !users.VerifyPassword(u, req.Password) {
		fail(c, http.StatusUnauthorized, messageBadCredentials)
		return
	}
	if !u.Status.IsActive() {
		fail(c, http.StatusUnauthorized, u.Status.InactiveMessage())
		return
	}

	if h.Limiter != nil {
		if err := h.Limiter.Reset(ctx, email); err != nil {
			logger.FromGin(c).Warn("login limiter reset failed", "err", err)
		}
	}
	h.issueSession(c, u)
}

func (h *Handlers) issueSession(c *gin.Context, u users.User) {
	token, claims, err := h.Codec.Issue(h.now(), auth.Identity{UserID: u.UserID, Email: u.Email}, 0)
	if err != nil {
		internalError(c, "token issuance failed", err)
		return
	}
	h.setSessionCookie(c, token, claims.ExpiresAt.Time)
	c.JSON(http.StatusOK, gin.H{"success": true, "user": viewOf(u), "token": token})
}

func (h *Handlers) Logout(c *gin.Context) {
	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handlers) Me(c *gin.Context) {
	uid, _ := principal(c)
	u, found, err := h.Users.FindByID(c.Request.Context(), uid)
	if err != nil {
		internalError(c, "user lookup failed", err)
		return
	}
	if !found {
		fail(c, http.StatusNotFound, messageUserNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": viewOf(u)})
}

func (h *Handlers) GlobalRole(c *gin.Context) {
	uid, _ := principal(c)
	info, found, err := h.Roles.GlobalRole(c.Request.Context(), uid)
	if err != nil {
		internalError(c, "global role lookup failed", err)
		return
	}
	if !found {
		fail(c, http.StatusNotFound, messageUserNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": info})
}

type profileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

func (h *Handlers) UpdateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email != "" && !validEmail(req.Email) {
		fail(c, http.StatusBadRequest, messageInvalidEmail)
		return
	}

	uid, _ := principal(c)
	u, err := h.Users.UpdateProfile(c.Request.Context(), uid, users.ProfileUpdate{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     req.Email,
	})
	switch {
	case errors.Is(err, users.ErrDuplicateEmail):
		fail(c, http.StatusBadRequest, "Email already in use")
		return
	case errors.Is(err, users.ErrNotFound):
		fail(c, http.StatusNotFound, messageUserNotFound)
		return
	case err != nil:
		internalError(c, "profile update failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Profile updated successfully", "user": viewOf(u)})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *Handlers) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		fail(c, http.StatusBadRequest, "Current password and new password are required")
		return
	}
	if len(req.NewPassword) < users.MinPasswordLen {
		fail(c, http.StatusBadRequest, "New password must be at least "+strconv.Itoa(users.MinPasswordLen)+" characters long")
		return
	}
	if len(req.NewPassword) > users.MaxPasswordLen {
		fail(c, http.StatusBadRequest, messagePasswordTooLong)
		return
	}

	ctx := c.Request.Context()
	uid, _ := principal(c)
	u, found, err := h.Users.FindByID(ctx, uid)
	if err != nil {
		internalError(c, "user lookup failed", err)
		return
	}
	if !found {
		fail(c, http.StatusNotFound, messageUserNotFound)
		return
	}
	if !u.Status.IsActive() {
		fail(c, http.StatusForbidden, "Account is not active")
		return
	}
	if !users.VerifyPassword(u, req.CurrentPassword) {
		fail(c, http.StatusBadRequest, "Current password is incorrect")
		return
	}

	hash, err := users.HashPassword(req.NewPassword, h.BcryptCost)
	if err != nil {
		internalError(c, "password hashing failed", err)
		return
	}
	if err := h.Users.UpdatePassword(ctx, uid, hash); err != nil {
		internalError(c, "password update failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password changed successfully"})
}

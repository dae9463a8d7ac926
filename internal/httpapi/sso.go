package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/zoheir79/whispey-sub004/internal/auth"
	"github.com/zoheir79/whispey-sub004/pkg/logger"

	"github.com/gin-gonic/gin"
)

// isoMillis matches the timestamp format the dashboard already parses.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// ValidateSSOToken checks a token minted for agent single sign-on and echoes
// its identity claims.
func (h *Handlers) ValidateSSOToken(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"valid": false, "error": "Token is required"})
		return
	}

	claims, err := h.Codec.Verify(token, h.now())
	if err != nil {
		if !errors.Is(err, auth.ErrExpired) {
			logger.FromGin(c).Debug("sso token rejected", "err", err)
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"valid": false, "error": auth.UserMessage(err)})
		return
	}

	agentInfo := claims.AgentInfo
	if agentInfo == nil {
		agentInfo = map[string]any{}
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":      true,
		"user_email": claims.Email,
		"user_id":    claims.UserID,
		"agent_info": agentInfo,
		"expires_at": claims.ExpiresAt.Time.UTC().Format(isoMillis),
	})
}

package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/zoheir79/whispey-sub004/internal/audit"
	"github.com/zoheir79/whispey-sub004/internal/credits"

	"github.com/gin-gonic/gin"
)

const defaultCurrency = "USD"

// CreditBalance answers for the workspace in ?project_id=. A workspace
// without an account reads as an inactive zero balance.
func (h *Handlers) CreditBalance(c *gin.Context) {
	wid := c.Query("project_id")
	a, found, err := h.Credits.Balance(c.Request.Context(), wid)
	if err != nil {
		internalError(c, "credit balance lookup failed", err)
		return
	}
	if !found {
		c.JSON(http.StatusOK, gin.H{
			"workspace_id":    wid,
			"current_balance": 0,
			"currency":        defaultCurrency,
			"is_active":       false,
			"message":         "No credits account found for this workspace",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"workspace_id":    a.WorkspaceID,
		"current_balance": a.BalanceMinor,
		"currency":        a.Currency,
		"is_active":       a.IsActive,
		"updated_at":      a.UpdatedAt,
	})
}

func (h *Handlers) ListCredits(c *gin.Context) {
	list, err := h.Credits.List(c.Request.Context())
	if err != nil {
		internalError(c, "credit listing failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credits": list})
}

type adjustCreditsRequest struct {
	AmountMinor    int64  `json:"amount_minor"`
	Description    string `json:"description"`
	IdempotencyKey string `json:"idempotency_key"`
}

func (h *Handlers) AdjustCredits(c *gin.Context) {
	var req adjustCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.AmountMinor == 0 {
		fail(c, http.StatusBadRequest, "Invalid amount")
		return
	}

	ctx := c.Request.Context()
	wid := c.Param("projectId")
	uid, _ := principal(c)
	txn, acct, err := h.Credits.Adjust(ctx, wid, credits.AdjustRequest{
		AmountMinor:    req.AmountMinor,
		Description:    req.Description,
		IdempotencyKey: req.IdempotencyKey,
		ActorUserID:    uid,
	})
	switch {
	case errors.Is(err, credits.ErrInsufficientBalance):
		fail(c, http.StatusBadRequest, "Insufficient balance")
		return
	case errors.Is(err, credits.ErrNotFound):
		fail(c, http.StatusNotFound, "Credits account not found")
		return
	case errors.Is(err, credits.ErrInvalidArgument):
		fail(c, http.StatusBadRequest, "Invalid amount")
		return
	case err != nil:
		internalError(c, "credit adjustment failed", err)
		return
	}

	if !txn.Replayed {
		h.recordAudit(c, func(s *audit.Service) error {
			return s.LogWorkspaceAction(ctx, audit.EventTypeCreditsAdjusted, h.actor(c), wid,
				"adjusted credits by "+strconv.FormatInt(req.AmountMinor, 10),
				map[string]any{"amount_minor": req.AmountMinor, "transaction_id": txn.ID, "balance_after": txn.BalanceAfter})
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "new_balance": acct.BalanceMinor, "transaction": txn})
}

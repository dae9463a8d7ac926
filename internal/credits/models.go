package credits

import "time"

// Account is the credit balance of one workspace. Every balance change is
// paired with a Transaction written in the same database transaction.
type Account struct {
	ID            string     `json:"id"`
	WorkspaceID   string     `json:"workspace_id"`
	WorkspaceName string     `json:"workspace_name,omitempty"`
	Currency      string     `json:"currency"`
	BalanceMinor  int64      `json:"balance_minor"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

type TransactionType string

const (
	TransactionTypeRecharge   TransactionType = "recharge"
	TransactionTypeAdjustment TransactionType = "adjustment"
)

// Transaction is an immutable ledger entry. AmountMinor is signed.
type Transaction struct {
	ID             string          `json:"id"`
	AccountID      string          `json:"account_id"`
	WorkspaceID    string          `json:"workspace_id"`
	Type           TransactionType `json:"transaction_type"`
	AmountMinor    int64           `json:"amount_minor"`
	BalanceBefore  int64           `json:"balance_before"`
	BalanceAfter   int64           `json:"balance_after"`
	Description    string          `json:"description"`
	CreatedBy      string          `json:"created_by"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`

	// Replayed is set when Adjust matched an earlier idempotency key and
	// wrote nothing.
	Replayed bool `json:"-"`
}

// AdjustRequest is a manual balance change by an administrator.
type AdjustRequest struct {
	AmountMinor    int64  `json:"amount_minor"`
	Description    string `json:"description"`
	IdempotencyKey string `json:"idempotency_key"`
	ActorUserID    string `json:"-"`
}

const defaultAdjustDescription = "Manual credit adjustment"

// newTransaction computes the ledger entry for applying req to a.
// A negative adjustment may not take the balance below zero.
func newTransaction(a Account, req AdjustRequest) (Transaction, error) {
	after := a.BalanceMinor + req.AmountMinor
	if req.AmountMinor < 0 && after < 0 {
		return Transaction{}, ErrInsufficientBalance
	}
	typ := TransactionTypeAdjustment
	if req.AmountMinor > 0 {
		typ = TransactionTypeRecharge
	}
	return Transaction{
		AccountID:      a.ID,
		WorkspaceID:    a.WorkspaceID,
		Type:           typ,
		AmountMinor:    req.AmountMinor,
		BalanceBefore:  a.BalanceMinor,
		BalanceAfter:   after,
		Description:    req.Description,
		CreatedBy:      req.ActorUserID,
		IdempotencyKey: req.IdempotencyKey,
	}, nil
}

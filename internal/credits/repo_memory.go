package credits

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is an in-memory Repository for tests.
type MemoryRepo struct {
	mu       sync.Mutex
	accounts map[string]Account // by workspace id
	ledger   []Transaction
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{accounts: map[string]Account{}}
}

// PutAccount seeds an account.
func (r *MemoryRepo) PutAccount(a Account) Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Currency == "" {
		a.Currency = "USD"
	}
	r.accounts[a.WorkspaceID] = a
	return a
}

func (r *MemoryRepo) Transactions() []Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Transaction, len(r.ledger))
	copy(out, r.ledger)
	return out
}

func (r *MemoryRepo) AccountForWorkspace(ctx context.Context, workspaceID string) (Account, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[workspaceID]
	return a, ok, nil
}

func (r *MemoryRepo) ListAccounts(ctx context.Context) ([]Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) Adjust(ctx context.Context, workspaceID string, req AdjustRequest, now time.Time) (Transaction, Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[workspaceID]
	if !ok {
		return Transaction{}, Account{}, ErrNotFound
	}
	if req.IdempotencyKey != "" {
		for _, tx := range r.ledger {
			if tx.AccountID == a.ID && tx.IdempotencyKey == req.IdempotencyKey {
				tx.Replayed = true
				return tx, a, nil
			}
		}
	}

	tx, err := newTransaction(a, req)
	if err != nil {
		return Transaction{}, Account{}, err
	}
	tx.ID = uuid.NewString()
	tx.CreatedAt = now
	r.ledger = append(r.ledger, tx)

	a.BalanceMinor = tx.BalanceAfter
	a.UpdatedAt = &now
	r.accounts[workspaceID] = a
	return tx, a, nil
}

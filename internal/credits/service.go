package credits

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound            = errors.New("credits: account not found")
	ErrInsufficientBalance = errors.New("credits: insufficient balance")
	ErrInvalidArgument     = errors.New("credits: invalid argument")
)

// Repository persists credit accounts and their ledger.
type Repository interface {
	AccountForWorkspace(ctx context.Context, workspaceID string) (Account, bool, error)
	ListAccounts(ctx context.Context) ([]Account, error)

	// Adjust applies req atomically. A repeated idempotency key returns the
	// original transaction, marked Replayed, and the current account without
	// changing it.
	Adjust(ctx context.Context, workspaceID string, req AdjustRequest, now time.Time) (Transaction, Account, error)
}

// Service provides workspace credit operations. Authorization is the
// caller's job.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// Balance returns the workspace account; found=false when the workspace has
// no credits account yet.
func (s *Service) Balance(ctx context.Context, workspaceID string) (Account, bool, error) {
	if strings.TrimSpace(workspaceID) == "" {
		return Account{}, false, ErrInvalidArgument
	}
	return s.repo.AccountForWorkspace(ctx, workspaceID)
}

func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.repo.ListAccounts(ctx)
}

func (s *Service) Adjust(ctx context.Context, workspaceID string, req AdjustRequest) (Transaction, Account, error) {
	if strings.TrimSpace(workspaceID) == "" || req.AmountMinor == 0 || req.ActorUserID == "" {
		return Transaction{}, Account{}, ErrInvalidArgument
	}
	req.Description = strings.TrimSpace(req.Description)
	if req.Description == "" {
		req.Description = defaultAdjustDescription
	}
	req.IdempotencyKey = strings.TrimSpace(req.IdempotencyKey)
	return s.repo.Adjust(ctx, workspaceID, req, s.clock().UTC())
}

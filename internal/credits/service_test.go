package credits

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *MemoryRepo) {
	t.Helper()
	repo := NewMemoryRepo()
	repo.PutAccount(Account{WorkspaceID: "ws", BalanceMinor: 1000, IsActive: true})
	svc := NewService(repo)
	svc.clock = func() time.Time { return time.Unix(1700000000, 0) }
	return svc, repo
}

func TestAdjust_RejectsInvalidArgs(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Adjust(ctx, "", AdjustRequest{AmountMinor: 100, ActorUserID: "admin"})
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, _, err = svc.Adjust(ctx, "ws", AdjustRequest{AmountMinor: 0, ActorUserID: "admin"})
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, _, err = svc.Adjust(ctx, "ws", AdjustRequest{AmountMinor: 100})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestAdjust_RechargeAndDeduct(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	tx, acc, err := svc.Adjust(ctx, "ws", AdjustRequest{AmountMinor: 500, ActorUserID: "admin"})
	require.NoError(t, err)
	assert.Equal(t, TransactionTypeRecharge, tx.Type)
	assert.Equal(t, int64(1000), tx.BalanceBefore)
	assert.Equal(t, int64(1500), tx.BalanceAfter)
	assert.Equal(t, int64(1500), acc.BalanceMinor)
	assert.Equal(t, "Manual credit adjustment", tx.Description)
	assert.Equal(t, "admin", tx.CreatedBy)

	tx, acc, err = svc.Adjust(ctx, "ws", AdjustRequest{AmountMinor: -1500, Description: "refund", ActorUserID: "admin"})
	require.NoError(t, err)
	assert.Equal(t, TransactionTypeAdjustment, tx.Type)
	assert.Zero(t, acc.BalanceMinor)

	assert.Len(t, repo.Transactions(), 2)
}

func TestAdjust_InsufficientBalance(t *testing.T) {
	svc, repo := newTestService(t)

	_, _, err := svc.Adjust(context.Background(), "ws", AdjustRequest{AmountMinor: -1001, ActorUserID: "admin"})
	require.ErrorIs(t, err, ErrInsufficientBalance)

	acc, ok, err := svc.Balance(context.Background(), "ws")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1000), acc.BalanceMinor)
	assert.Empty(t, repo.Transactions())
}

func TestAdjust_Idempotent(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	req := AdjustRequest{AmountMinor: 250, IdempotencyKey: "k1", ActorUserID: "admin"}

	first, _, err := svc.Adjust(ctx, "ws", req)
	require.NoError(t, err)
	second, acc, err := svc.Adjust(ctx, "ws", req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.False(t, first.Replayed)
	assert.True(t, second.Replayed)
	assert.Equal(t, int64(1250), acc.BalanceMinor)
	assert.Len(t, repo.Transactions(), 1)
}

func TestAdjust_UnknownWorkspace(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, err := svc.Adjust(context.Background(), "missing", AdjustRequest{AmountMinor: 1, ActorUserID: "admin"})
	require.ErrorIs(t, err, ErrNotFound)

	_, ok, err := svc.Balance(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

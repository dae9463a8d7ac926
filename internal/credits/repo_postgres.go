package credits

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/zoheir79/whispey-sub004/pkg/utils"

	"github.com/google/uuid"
)

// NOTE: PostgresRepo expects user_credits (id, workspace_id, current_balance
// numeric, currency, is_active, created_at, updated_at) and credit_transactions
// (id, user_credit_id, workspace_id, transaction_type, amount, balance_before,
// balance_after, description, created_by, idempotency_key, created_at) with
// UNIQUE (user_credit_id, idempotency_key). Balances are stored in major
// units and converted to minor units at the SQL boundary.

const accountColumns = `uc.id, uc.workspace_id, COALESCE(p.name, ''), COALESCE(uc.currency, 'USD'),
       ROUND(COALESCE(uc.current_balance, 0) * 100)::bigint, COALESCE(uc.is_active, true),
       uc.created_at, uc.updated_at`

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (Account, error) {
	var (
		a         Account
		updatedAt sql.NullTime
	)
	if err := row.Scan(&a.ID, &a.WorkspaceID, &a.WorkspaceName, &a.Currency, &a.BalanceMinor, &a.IsActive, &a.CreatedAt, &updatedAt); err != nil {
		return Account{}, err
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		a.UpdatedAt = &t
	}
	return a, nil
}

func (r *PostgresRepo) AccountForWorkspace(ctx context.Context, workspaceID string) (Account, bool, error) {
	const q = `
SELECT ` + accountColumns + `
FROM user_credits uc
LEFT JOIN pype_voice_projects p ON p.id = uc.workspace_id
WHERE uc.workspace_id = $1
ORDER BY uc.created_at
LIMIT 1`
	a, err := scanAccount(r.db.QueryRowContext(ctx, q, workspaceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, false, nil
		}
		return Account{}, false, fmt.Errorf("querying credit account: %w", err)
	}
	return a, true, nil
}

func (r *PostgresRepo) ListAccounts(ctx context.Context) ([]Account, error) {
	const q = `
SELECT ` + accountColumns + `
FROM user_credits uc
LEFT JOIN pype_voice_projects p ON p.id = uc.workspace_id
ORDER BY uc.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing credit accounts: %w", err)
	}
	defer rows.Close()

	out := []Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning credit account: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating credit accounts: %w", err)
	}
	return out, nil
}

func (r *PostgresRepo) Adjust(ctx context.Context, workspaceID string, req AdjustRequest, now time.Time) (Transaction, Account, error) {
	var (
		outTx  Transaction
		outAcc Account
	)
	err := utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		a, err := lockAccount(ctx, tx, workspaceID)
		if err != nil {
			return err
		}

		if req.IdempotencyKey != "" {
			existing, ok, err := findByIdempotency(ctx, tx, a.ID, req.IdempotencyKey)
			if err != nil {
				return err
			}
			if ok {
				existing.Replayed = true
				outTx, outAcc = existing, a
				return nil
			}
		}

		entry, err := newTransaction(a, req)
		if err != nil {
			return err
		}
		entry.ID = uuid.NewString()
		entry.CreatedAt = now

		const upd = `UPDATE user_credits SET current_balance = $1::numeric / 100, updated_at = $2 WHERE id = $3`
		if _, err := tx.ExecContext(ctx, upd, entry.BalanceAfter, now, a.ID); err != nil {
			return fmt.Errorf("updating balance: %w", err)
		}

		const ins = `
INSERT INTO credit_transactions
  (id, user_credit_id, workspace_id, transaction_type, amount, balance_before, balance_after,
   description, created_by, idempotency_key, created_at)
VALUES ($1, $2, $3, $4, $5::numeric / 100, $6::numeric / 100, $7::numeric / 100, $8, $9, NULLIF($10, ''), $11)`
		if _, err := tx.ExecContext(ctx, ins,
			entry.ID,
			entry.AccountID,
			entry.WorkspaceID,
			string(entry.Type),
			entry.AmountMinor,
			entry.BalanceBefore,
			entry.BalanceAfter,
			entry.Description,
			entry.CreatedBy,
			entry.IdempotencyKey,
			entry.CreatedAt,
		); err != nil {
			return fmt.Errorf("inserting credit transaction: %w", err)
		}

		a.BalanceMinor = entry.BalanceAfter
		a.UpdatedAt = &now
		outTx, outAcc = entry, a
		return nil
	})
	if err != nil {
		return Transaction{}, Account{}, err
	}
	return outTx, outAcc, nil
}

// lockAccount serializes concurrent adjustments of one account.
func lockAccount(ctx context.Context, tx *sql.Tx, workspaceID string) (Account, error) {
	const q = `
SELECT ` + accountColumns + `
FROM user_credits uc
LEFT JOIN pype_voice_projects p ON p.id = uc.workspace_id
WHERE uc.workspace_id = $1
ORDER BY uc.created_at
LIMIT 1
FOR UPDATE OF uc`
	a, err := scanAccount(tx.QueryRowContext(ctx, q, workspaceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, fmt.Errorf("locking credit account: %w", err)
	}
	return a, nil
}

func findByIdempotency(ctx context.Context, tx *sql.Tx, accountID, key string) (Transaction, bool, error) {
	const q = `
SELECT id, user_credit_id, workspace_id, transaction_type,
       ROUND(amount * 100)::bigint, ROUND(balance_before * 100)::bigint, ROUND(balance_after * 100)::bigint,
       COALESCE(description, ''), COALESCE(created_by, ''), idempotency_key, created_at
FROM credit_transactions
WHERE user_credit_id = $1 AND idempotency_key = $2
LIMIT 1`
	var (
		t   Transaction
		typ string
	)
	err := tx.QueryRowContext(ctx, q, accountID, key).Scan(
		&t.ID,
		&t.AccountID,
		&t.WorkspaceID,
		&typ,
		&t.AmountMinor,
		&t.BalanceBefore,
		&t.BalanceAfter,
		&t.Description,
		&t.CreatedBy,
		&t.IdempotencyKey,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Transaction{}, false, nil
		}
		return Transaction{}, false, fmt.Errorf("querying credit transaction: %w", err)
	}
	t.Type = TransactionType(typ)
	return t, true, nil
}

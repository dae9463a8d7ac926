package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// NOTE: PostgresRepo expects an insert-only table
// audit_events (id, workspace_id, type, actor_user_id, actor_role,
// ip_address, target_user_id, message, metadata jsonb, created_at).

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	var meta []byte
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("encoding audit metadata: %w", err)
		}
		meta = b
	}

	const q = `
INSERT INTO audit_events
  (id, workspace_id, type, actor_user_id, actor_role, ip_address, target_user_id, message, metadata, created_at)
VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.WorkspaceID,
		string(e.Type),
		e.ActorUserID,
		e.ActorRole,
		e.IPAddress,
		e.TargetUserID,
		e.Message,
		meta,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting audit event: %w", err)
	}
	return nil
}

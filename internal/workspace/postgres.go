package workspace

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zoheir79/whispey-sub004/pkg/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// NOTE: PostgresRepository expects pype_voice_projects (id, name,
// description, environment, is_active, owner_user_id, created_at) and
// pype_voice_email_project_mapping (id serial, email, project_id, role,
// permissions jsonb, user_id NULL, added_by_user_id, is_active, created_at).

const memberColumns = `id, project_id, email, COALESCE(user_id, ''), role,
       COALESCE(added_by_user_id, ''), COALESCE(is_active, true), created_at`

// PostgresRepository implements Repository over database/sql with the pgx
// stdlib driver.
type PostgresRepository struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db, clock: time.Now}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (Membership, error) {
	var (
		m    Membership
		role string
	)
	if err := row.Scan(&m.ID, &m.WorkspaceID, &m.Email, &m.UserID, &role, &m.AddedByUserID, &m.IsActive, &m.CreatedAt); err != nil {
		return Membership{}, err
	}
	m.Role = Role(role)
	m.Permissions = m.Role.Permissions()
	return m, nil
}

func (r *PostgresRepository) Get(ctx context.Context, workspaceID string) (Workspace, bool, error) {
	const q = `
SELECT id, name, COALESCE(description, ''), COALESCE(environment, ''), COALESCE(is_active, true),
       COALESCE(owner_user_id, ''), created_at
FROM pype_voice_projects WHERE id = $1`

	var w Workspace
	err := r.db.QueryRowContext(ctx, q, workspaceID).Scan(
		&w.ID, &w.Name, &w.Description, &w.Environment, &w.IsActive, &w.OwnerUserID, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Workspace{}, false, nil
		}
		if isInvalidText(err) {
			return Workspace{}, false, nil
		}
		return Workspace{}, false, fmt.Errorf("querying workspace: %w", err)
	}
	return w, true, nil
}

func (r *PostgresRepository) ActiveMembership(ctx context.Context, workspaceID string, p Principal) (Membership, bool, error) {
	const q = `
SELECT ` + memberColumns + `
FROM pype_voice_email_project_mapping
WHERE project_id = $1
  AND COALESCE(is_active, true)
  AND (user_id = $2 OR (user_id IS NULL AND $3 <> '' AND lower(email) = $3))
ORDER BY (user_id IS NULL), id
LIMIT 1`

	m, err := scanMember(r.db.QueryRowContext(ctx, q, workspaceID, p.UserID, normalizeEmail(p.Email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
			return Membership{}, false, nil
		}
		return Membership{}, false, fmt.Errorf("querying membership: %w", err)
	}
	return m, true, nil
}

func (r *PostgresRepository) ListMembers(ctx context.Context, workspaceID string) ([]Membership, error) {
	const q = `
SELECT ` + memberColumns + `
FROM pype_voice_email_project_mapping
WHERE project_id = $1 AND COALESCE(is_active, true)
ORDER BY id`
	return r.list(ctx, q, workspaceID)
}

func (r *PostgresRepository) ListForUser(ctx context.Context, p Principal) ([]Membership, error) {
	const q = `
SELECT m.id, m.project_id, m.email, COALESCE(m.user_id, ''), m.role,
       COALESCE(m.added_by_user_id, ''), COALESCE(m.is_active, true), m.created_at
FROM pype_voice_email_project_mapping m
JOIN pype_voice_projects p ON p.id = m.project_id
WHERE COALESCE(m.is_active, true) AND COALESCE(p.is_active, true)
  AND (m.user_id = $1 OR (m.user_id IS NULL AND $2 <> '' AND lower(m.email) = $2))
ORDER BY m.created_at DESC`
	return r.list(ctx, q, p.UserID, normalizeEmail(p.Email))
}

func (r *PostgresRepository) list(ctx context.Context, q string, args ...any) ([]Membership, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		if isInvalidText(err) {
			return []Membership{}, nil
		}
		return nil, fmt.Errorf("listing memberships: %w", err)
	}
	defer rows.Close()

	out := []Membership{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning membership row: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating membership rows: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) AddMember(ctx context.Context, m Membership) (Membership, error) {
	m, err := validateNewMember(m)
	if err != nil {
		return Membership{}, err
	}
	perms, err := json.Marshal(m.Permissions)
	if err != nil {
		return Membership{}, err
	}

	var out Membership
	err = utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		const exists = `
SELECT EXISTS(
  SELECT 1 FROM pype_voice_email_project_mapping
  WHERE project_id = $1 AND (lower(email) = $2 OR ($3 <> '' AND user_id = $3))
)`
		var taken bool
		if err := tx.QueryRowContext(ctx, exists, m.WorkspaceID, m.Email, m.UserID).Scan(&taken); err != nil {
			return fmt.Errorf("checking membership: %w", err)
		}
		if taken {
			return ErrAlreadyMember
		}

		const ins = `
INSERT INTO pype_voice_email_project_mapping
  (email, project_id, role, permissions, user_id, added_by_user_id, is_active, created_at)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), true, $7)
RETURNING ` + memberColumns
		row := tx.QueryRowContext(ctx, ins, m.Email, m.WorkspaceID, string(m.Role), perms, m.UserID, m.AddedByUserID, r.clock().UTC())
		var err error
		out, err = scanMember(row)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyMember
			}
			return fmt.Errorf("inserting membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return Membership{}, err
	}
	return out, nil
}

func (r *PostgresRepository) Deactivate(ctx context.Context, workspaceID string, memberID int64) error {
	const q = `UPDATE pype_voice_email_project_mapping SET is_active = false WHERE id = $1 AND project_id = $2`
	res, err := r.db.ExecContext(ctx, q, memberID, workspaceID)
	if err != nil {
		return fmt.Errorf("deactivating membership: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivating membership: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) CreatePersonalWorkspace(ctx context.Context, userID, email string) (Workspace, error) {
	email = normalizeEmail(email)
	if userID == "" || email == "" {
		return Workspace{}, ErrInvalidInput
	}
	w := Workspace{
		ID:          uuid.NewString(),
		Name:        PersonalWorkspaceName(userID),
		Description: personalWorkspaceDescription(email),
		Environment: personalEnvironment,
		IsActive:    true,
		OwnerUserID: userID,
		CreatedAt:   r.clock().UTC(),
	}
	perms, err := json.Marshal(RoleViewer.Permissions())
	if err != nil {
		return Workspace{}, err
	}

	err = utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		const insProject = `
INSERT INTO pype_voice_projects (id, name, description, environment, is_active, owner_user_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
		if _, err := tx.ExecContext(ctx, insProject, w.ID, w.Name, w.Description, w.Environment, w.IsActive, w.OwnerUserID, w.CreatedAt); err != nil {
			return fmt.Errorf("inserting workspace: %w", err)
		}
		const insMember = `
INSERT INTO pype_voice_email_project_mapping
  (email, project_id, role, permissions, user_id, added_by_user_id, is_active, created_at)
VALUES ($1, $2, $3, $4, $5, $5, true, $6)`
		if _, err := tx.ExecContext(ctx, insMember, email, w.ID, string(RoleViewer), perms, userID, w.CreatedAt); err != nil {
			return fmt.Errorf("inserting workspace membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return Workspace{}, err
	}
	return w, nil
}

func (r *PostgresRepository) LinkPendingInvitations(ctx context.Context, userID, email string) (int64, error) {
	const q = `UPDATE pype_voice_email_project_mapping SET user_id = $1 WHERE lower(email) = $2 AND user_id IS NULL`
	res, err := r.db.ExecContext(ctx, q, userID, normalizeEmail(email))
	if err != nil {
		return 0, fmt.Errorf("linking invitations: %w", err)
	}
	return res.RowsAffected()
}

const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// isInvalidText catches non-uuid workspace ids hitting a uuid column.
func isInvalidText(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation
}

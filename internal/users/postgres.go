package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// NOTE: PostgresStore assumes the pype_voice_users table with
// UNIQUE (email) and UNIQUE (user_id).

const userColumns = `user_id, email, password_hash, first_name, last_name,
       COALESCE(global_role, 'user'), COALESCE(status, 'active'), created_at, updated_at`

const uniqueViolation = "23505"

// PostgresStore implements Store over database/sql with the pgx stdlib driver.
type PostgresStore struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, clock: time.Now}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var (
		u         User
		hash      sql.NullString
		first     sql.NullString
		last      sql.NullString
		status    string
		updatedAt sql.NullTime
	)
	if err := row.Scan(&u.UserID, &u.Email, &hash, &first, &last, &u.GlobalRole, &status, &u.CreatedAt, &updatedAt); err != nil {
		return User{}, err
	}
	u.PasswordHash = hash.String
	u.FirstName = first.String
	u.LastName = last.String
	u.Status = Status(status)
	if updatedAt.Valid {
		t := updatedAt.Time
		u.UpdatedAt = &t
	}
	return u, nil
}

func (s *PostgresStore) findOne(ctx context.Context, q string, arg any) (User, bool, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, q, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, false, nil
		}
		return User{}, false, fmt.Errorf("querying user: %w", err)
	}
	return u, true, nil
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (User, bool, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return User{}, false, nil
	}
	return s.findOne(ctx, `SELECT `+userColumns+` FROM pype_voice_users WHERE lower(email) = $1`, email)
}

func (s *PostgresStore) FindByID(ctx context.Context, userID string) (User, bool, error) {
	if userID == "" {
		return User{}, false, nil
	}
	return s.findOne(ctx, `SELECT `+userColumns+` FROM pype_voice_users WHERE user_id = $1`, userID)
}

func (s *PostgresStore) CreateUser(ctx context.Context, email, passwordHash, firstName, lastName string) (User, error) {
	email = NormalizeEmail(email)
	if email == "" || passwordHash == "" {
		return User{}, ErrInvalidInput
	}

	if _, ok, err := s.FindByEmail(ctx, email); err != nil {
		return User{}, err
	} else if ok {
		return User{}, ErrDuplicateEmail
	}

	const q = `
INSERT INTO pype_voice_users (user_id, email, password_hash, first_name, last_name, global_role, status, created_at)
VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8)
RETURNING ` + userColumns

	u, err := scanUser(s.db.QueryRowContext(ctx, q,
		uuid.NewString(),
		email,
		passwordHash,
		firstName,
		lastName,
		DefaultGlobalRole,
		string(StatusActive),
		s.clock().UTC(),
	))
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrDuplicateEmail
		}
		return User{}, fmt.Errorf("inserting user: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) UpdateProfile(ctx context.Context, userID string, p ProfileUpdate) (User, error) {
	email := NormalizeEmail(p.Email)
	if email != "" {
		const q = `SELECT EXISTS(SELECT 1 FROM pype_voice_users WHERE lower(email) = $1 AND user_id <> $2)`
		var taken bool
		if err := s.db.QueryRowContext(ctx, q, email, userID).Scan(&taken); err != nil {
			return User{}, fmt.Errorf("checking email: %w", err)
		}
		if taken {
			return User{}, ErrDuplicateEmail
		}
	}

	const q = `
UPDATE pype_voice_users
SET first_name = NULLIF($1, ''), last_name = NULLIF($2, ''),
    email = COALESCE(NULLIF($3, ''), email), updated_at = $4
WHERE user_id = $5
RETURNING ` + userColumns
	return s.updateReturning(ctx, q, p.FirstName, p.LastName, email, s.clock().UTC(), userID)
}

func (s *PostgresStore) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	const q = `UPDATE pype_voice_users SET password_hash = $1, updated_at = $2 WHERE user_id = $3`
	res, err := s.db.ExecContext(ctx, q, passwordHash, s.clock().UTC(), userID)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetStatus(ctx context.Context, userID string, status Status) (User, error) {
	const q = `
UPDATE pype_voice_users SET status = $1, updated_at = $2
WHERE user_id = $3
RETURNING ` + userColumns
	return s.updateReturning(ctx, q, string(status), s.clock().UTC(), userID)
}

func (s *PostgresStore) SetGlobalRole(ctx context.Context, userID, role string) (User, error) {
	const q = `
UPDATE pype_voice_users SET global_role = $1, updated_at = $2
WHERE user_id = $3
RETURNING ` + userColumns
	return s.updateReturning(ctx, q, role, s.clock().UTC(), userID)
}

func (s *PostgresStore) List(ctx context.Context) ([]User, error) {
	const q = `
SELECT ` + userColumns + `
FROM pype_voice_users
ORDER BY CASE WHEN COALESCE(status, 'active') = 'pending' THEN 1 ELSE 2 END, created_at DESC`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) updateReturning(ctx context.Context, q string, args ...any) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		if isUniqueViolation(err) {
			return User{}, ErrDuplicateEmail
		}
		return User{}, fmt.Errorf("updating user: %w", err)
	}
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

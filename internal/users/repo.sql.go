package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/odyssey-erp/steward/internal/rbac"
	"github.com/odyssey-erp/steward/internal/shared"
)

// Schema creates the identities table used by PGRepository.
const Schema = `
CREATE TABLE IF NOT EXISTS identities (
	id                    BIGINT PRIMARY KEY,
	username              TEXT NOT NULL UNIQUE,
	email                 TEXT NOT NULL DEFAULT '',
	display_name          TEXT NOT NULL DEFAULT '',
	role                  TEXT NOT NULL,
	status                TEXT NOT NULL DEFAULT 'active',
	permissions           TEXT[],
	last_login            TIMESTAMPTZ,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	temporary_password    TEXT NOT NULL DEFAULT '',
	force_password_change BOOLEAN NOT NULL DEFAULT FALSE,
	password_hash         TEXT NOT NULL DEFAULT '',
	seq                   BIGSERIAL
)`

// SchemaStatements lists the DDL for the identities table in apply order.
var SchemaStatements = []string{
	Schema,
	`CREATE INDEX IF NOT EXISTS identities_seq_idx ON identities (seq)`,
}

const uniqueViolation = "23505"

const selectIdentity = `SELECT id, username, email, display_name, role, status, permissions,
	permissions IS NOT NULL, last_login, created_at, temporary_password, force_password_change, password_hash
FROM identities`

// DBTX is the subset of pgxpool.Pool used by PGRepository.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	db DBTX
}

// NewPGRepository constructs a repository.
func NewPGRepository(db DBTX) *PGRepository {
	return &PGRepository{db: db}
}

// ListIdentities returns all identities in insertion order.
func (r *PGRepository) ListIdentities(ctx context.Context) ([]Identity, error) {
	rows, err := r.db.Query(ctx, selectIdentity+` ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	defer rows.Close()
	var out []Identity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("users: list scan: %w", err)
		}
		out = append(out, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("users: list rows: %w", err)
	}
	return out, nil
}

// GetIdentity fetches an identity by ID.
func (r *PGRepository) GetIdentity(ctx context.Context, id int64) (Identity, error) {
	return r.one(ctx, selectIdentity+` WHERE id = $1`, id)
}

// FindByUsername fetches an identity by exact username.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (Identity, error) {
	return r.one(ctx, selectIdentity+` WHERE username = $1`, username)
}

// MaxID returns the highest stored ID, or 0 when empty.
func (r *PGRepository) MaxID(ctx context.Context) (int64, error) {
	var max int64
	if err := r.db.QueryRow(ctx, `SELECT COALESCE(MAX(id), 0) FROM identities`).Scan(&max); err != nil {
		return 0, fmt.Errorf("users: max id: %w", err)
	}
	return max, nil
}

// InsertIdentity stores a new identity. A username collision maps to a validation error.
func (r *PGRepository) InsertIdentity(ctx context.Context, identity Identity) error {
	_, err := r.db.Exec(ctx, `INSERT INTO identities
		(id, username, email, display_name, role, status, permissions, last_login, created_at,
		 temporary_password, force_password_change, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		identity.ID, identity.Username, identity.Email, identity.DisplayName, identity.Role,
		string(identity.Status), permissionColumn(identity.Permissions), identity.LastLogin,
		identity.CreatedAt, identity.TemporaryPassword, identity.ForcePasswordChange, identity.PasswordHash)
	if err != nil {
		return mapWriteError("insert", err)
	}
	return nil
}

// UpdateIdentity replaces the stored record with the same ID.
func (r *PGRepository) UpdateIdentity(ctx context.Context, identity Identity) error {
	tag, err := r.db.Exec(ctx, `UPDATE identities SET
		username = $2, email = $3, display_name = $4, role = $5, status = $6, permissions = $7,
		last_login = $8, temporary_password = $9, force_password_change = $10, password_hash = $11
		WHERE id = $1`,
		identity.ID, identity.Username, identity.Email, identity.DisplayName, identity.Role,
		string(identity.Status), permissionColumn(identity.Permissions), identity.LastLogin,
		identity.TemporaryPassword, identity.ForcePasswordChange, identity.PasswordHash)
	if err != nil {
		return mapWriteError("update", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteIdentity removes an identity.
func (r *PGRepository) DeleteIdentity(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM identities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("users: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) one(ctx context.Context, query string, arg any) (Identity, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return Identity{}, fmt.Errorf("users: query: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Identity{}, fmt.Errorf("users: query rows: %w", err)
		}
		return Identity{}, shared.ErrNotFound
	}
	identity, err := scanIdentity(rows)
	if err != nil {
		return Identity{}, fmt.Errorf("users: scan: %w", err)
	}
	return identity, nil
}

func scanIdentity(row pgx.Row) (Identity, error) {
	var (
		identity    Identity
		status      string
		perms       []string
		hasOverride bool
		lastLogin   *time.Time
	)
	err := row.Scan(&identity.ID, &identity.Username, &identity.Email, &identity.DisplayName,
		&identity.Role, &status, &perms, &hasOverride, &lastLogin, &identity.CreatedAt,
		&identity.TemporaryPassword, &identity.ForcePasswordChange, &identity.PasswordHash)
	if err != nil {
		return Identity{}, err
	}
	identity.Status = Status(status)
	identity.LastLogin = lastLogin
	if hasOverride {
		set := rbac.ParsePermissions(perms)
		identity.Permissions = &set
	}
	return identity, nil
}

func permissionColumn(set *rbac.PermissionSet) []string {
	if set == nil {
		return nil
	}
	return set.Strings()
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return shared.NewValidationError("username", "already taken")
	}
	return fmt.Errorf("users: %s: %w", op, err)
}

var _ RepositoryPort = (*PGRepository)(nil)

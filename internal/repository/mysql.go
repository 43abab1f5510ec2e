package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/iliyamo/auth-service/internal/model"
)

// MySQLUserRepo persists users in the `users` table. Roles and attributes
// are stored as JSON columns; uniqueness of email and username is enforced
// by unique indexes, so concurrent Save calls for the same identifier are
// decided by the database.
//
// Expected schema:
//
//	CREATE TABLE users (
//	  id                  CHAR(36) PRIMARY KEY,
//	  email               VARCHAR(255) NOT NULL UNIQUE,
//	  username            VARCHAR(255) NOT NULL UNIQUE,
//	  password_hash       VARCHAR(255) NOT NULL,
//	  roles               JSON NOT NULL,
//	  enabled             BOOLEAN NOT NULL DEFAULT TRUE,
//	  locked              BOOLEAN NOT NULL DEFAULT FALSE,
//	  account_expired     BOOLEAN NOT NULL DEFAULT FALSE,
//	  credentials_expired BOOLEAN NOT NULL DEFAULT FALSE,
//	  created_at          DATETIME(6) NOT NULL,
//	  updated_at          DATETIME(6) NOT NULL,
//	  attributes          JSON NOT NULL,
//	  display_name        VARCHAR(255) NOT NULL DEFAULT ''
//	);
type MySQLUserRepo struct{ DB *sql.DB }

// NewMySQLUserRepo wraps an open database handle.
func NewMySQLUserRepo(db *sql.DB) *MySQLUserRepo { return &MySQLUserRepo{DB: db} }

const userColumns = "id,email,username,password_hash,roles,enabled,locked,account_expired,credentials_expired,created_at,updated_at,attributes,display_name"

func (r *MySQLUserRepo) Save(ctx context.Context, u model.User) (model.User, error) {
	roles, attrs, err := encodeJSONColumns(u)
	if err != nil {
		return model.User{}, err
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)",
		u.ID, u.Email, u.Username, u.PasswordHash, roles,
		u.Enabled, u.Locked, u.AccountExpired, u.CredentialsExpired,
		u.CreatedAt, u.UpdatedAt, attrs, u.DisplayName)
	if err != nil {
		if isDuplicateKey(err) {
			return model.User{}, ErrUserAlreadyExists
		}
		return model.User{}, err
	}
	return u, nil
}

func (r *MySQLUserRepo) Update(ctx context.Context, u model.User) (model.User, error) {
	roles, attrs, err := encodeJSONColumns(u)
	if err != nil {
		return model.User{}, err
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET email=?, username=?, password_hash=?, roles=?, enabled=?, locked=?,
		 account_expired=?, credentials_expired=?, updated_at=?, attributes=?, display_name=?
		 WHERE id=?`,
		u.Email, u.Username, u.PasswordHash, roles, u.Enabled, u.Locked,
		u.AccountExpired, u.CredentialsExpired, u.UpdatedAt, attrs, u.DisplayName, u.ID)
	if err != nil {
		if isDuplicateKey(err) {
			return model.User{}, ErrUserAlreadyExists
		}
		return model.User{}, err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		// Distinguish "no such row" from "row unchanged".
		exists, exErr := r.ExistsByID(ctx, u.ID)
		if exErr == nil && !exists {
			return model.User{}, ErrUserNotFound
		}
	}
	return u, nil
}

func (r *MySQLUserRepo) FindByID(ctx context.Context, id string) (model.User, bool, error) {
	return r.queryOne(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

func (r *MySQLUserRepo) FindByEmail(ctx context.Context, email string) (model.User, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.queryOne(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
}

func (r *MySQLUserRepo) FindByUsername(ctx context.Context, username string) (model.User, bool, error) {
	return r.queryOne(ctx, "SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", strings.TrimSpace(username))
}

func (r *MySQLUserRepo) FindByRole(ctx context.Context, role string) ([]model.User, error) {
	return r.queryMany(ctx,
		"SELECT "+userColumns+" FROM users WHERE JSON_CONTAINS(roles, JSON_QUOTE(?)) ORDER BY created_at", role)
}

func (r *MySQLUserRepo) FindByRoles(ctx context.Context, roles []string) ([]model.User, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	conds := make([]string, len(roles))
	args := make([]any, len(roles))
	for i, role := range roles {
		conds[i] = "JSON_CONTAINS(roles, JSON_QUOTE(?))"
		args[i] = role
	}
	return r.queryMany(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+strings.Join(conds, " OR ")+" ORDER BY created_at", args...)
}

func (r *MySQLUserRepo) FindAllEnabled(ctx context.Context) ([]model.User, error) {
	return r.queryMany(ctx, "SELECT "+userColumns+" FROM users WHERE enabled ORDER BY created_at")
}

func (r *MySQLUserRepo) FindAllDisabled(ctx context.Context) ([]model.User, error) {
	return r.queryMany(ctx, "SELECT "+userColumns+" FROM users WHERE NOT enabled ORDER BY created_at")
}

func (r *MySQLUserRepo) FindAllLocked(ctx context.Context) ([]model.User, error) {
	return r.queryMany(ctx, "SELECT "+userColumns+" FROM users WHERE locked ORDER BY created_at")
}

func (r *MySQLUserRepo) FindUsersCreatedAfter(ctx context.Context, t time.Time) ([]model.User, error) {
	return r.queryMany(ctx, "SELECT "+userColumns+" FROM users WHERE created_at > ? ORDER BY created_at", t)
}

func (r *MySQLUserRepo) FindByAttribute(ctx context.Context, key, value string) ([]model.User, error) {
	return r.queryMany(ctx,
		"SELECT "+userColumns+" FROM users WHERE JSON_UNQUOTE(JSON_EXTRACT(attributes, CONCAT('$.', ?))) = ? ORDER BY created_at",
		key, value)
}

func (r *MySQLUserRepo) FindByAttributes(ctx context.Context, key string, values []string) ([]model.User, error) {
	if len(values) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(values)), ",")
	args := make([]any, 0, len(values)+1)
	args = append(args, key)
	for _, v := range values {
		args = append(args, v)
	}
	return r.queryMany(ctx,
		"SELECT "+userColumns+" FROM users WHERE JSON_UNQUOTE(JSON_EXTRACT(attributes, CONCAT('$.', ?))) IN ("+placeholders+") ORDER BY created_at",
		args...)
}

func (r *MySQLUserRepo) Count(ctx context.Context) (int64, error) {
	return r.countWhere(ctx, "SELECT COUNT(*) FROM users")
}

func (r *MySQLUserRepo) CountByRole(ctx context.Context, role string) (int64, error) {
	return r.countWhere(ctx, "SELECT COUNT(*) FROM users WHERE JSON_CONTAINS(roles, JSON_QUOTE(?))", role)
}

func (r *MySQLUserRepo) CountEnabled(ctx context.Context) (int64, error) {
	return r.countWhere(ctx, "SELECT COUNT(*) FROM users WHERE enabled")
}

func (r *MySQLUserRepo) CountDisabled(ctx context.Context) (int64, error) {
	return r.countWhere(ctx, "SELECT COUNT(*) FROM users WHERE NOT enabled")
}

func (r *MySQLUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	n, err := r.countWhere(ctx, "SELECT COUNT(*) FROM users WHERE email=?", email)
	return n > 0, err
}

func (r *MySQLUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	n, err := r.countWhere(ctx, "SELECT COUNT(*) FROM users WHERE username=?", strings.TrimSpace(username))
	return n > 0, err
}

func (r *MySQLUserRepo) ExistsByID(ctx context.Context, id string) (bool, error) {
	n, err := r.countWhere(ctx, "SELECT COUNT(*) FROM users WHERE id=?", id)
	return n > 0, err
}

func (r *MySQLUserRepo) DeleteByID(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *MySQLUserRepo) Delete(ctx context.Context, u model.User) error {
	return r.DeleteByID(ctx, u.ID)
}

func (r *MySQLUserRepo) FindAll(ctx context.Context, page, size int) ([]model.User, error) {
	if page < 0 || size <= 0 {
		return nil, nil
	}
	return r.queryMany(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at LIMIT ? OFFSET ?", size, page*size)
}

func (r *MySQLUserRepo) FindByUsernameContaining(ctx context.Context, pattern string, page, size int) ([]model.User, error) {
	if page < 0 || size <= 0 {
		return nil, nil
	}
	return r.queryMany(ctx,
		"SELECT "+userColumns+" FROM users WHERE username LIKE ? ORDER BY created_at LIMIT ? OFFSET ?",
		"%"+pattern+"%", size, page*size)
}

// ----- helpers -----

func (r *MySQLUserRepo) queryOne(ctx context.Context, query string, args ...any) (model.User, bool, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return model.User{}, false, nil
	}
	if err != nil {
		return model.User{}, false, err
	}
	return u, true, nil
}

func (r *MySQLUserRepo) queryMany(ctx context.Context, query string, args ...any) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *MySQLUserRepo) countWhere(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

type rowScanner interface{ Scan(dest ...any) error }

func scanUser(row rowScanner) (model.User, error) {
	var (
		u           model.User
		rolesJSON   []byte
		attrsJSON   []byte
		displayName sql.NullString
	)
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &rolesJSON,
		&u.Enabled, &u.Locked, &u.AccountExpired, &u.CredentialsExpired,
		&u.CreatedAt, &u.UpdatedAt, &attrsJSON, &displayName)
	if err != nil {
		return model.User{}, err
	}
	if len(rolesJSON) > 0 {
		if err := json.Unmarshal(rolesJSON, &u.Roles); err != nil {
			return model.User{}, err
		}
	}
	if len(attrsJSON) > 0 {
		if err := json.Unmarshal(attrsJSON, &u.Attributes); err != nil {
			return model.User{}, err
		}
	}
	u.DisplayName = displayName.String
	return u, nil
}

func encodeJSONColumns(u model.User) (roles, attrs []byte, err error) {
	if u.Roles == nil {
		u.Roles = []string{}
	}
	if u.Attributes == nil {
		u.Attributes = map[string]string{}
	}
	roles, err = json.Marshal(u.Roles)
	if err != nil {
		return nil, nil, err
	}
	attrs, err = json.Marshal(u.Attributes)
	if err != nil {
		return nil, nil, err
	}
	return roles, attrs, nil
}

// isDuplicateKey detects MySQL error 1062 (duplicate entry).
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}

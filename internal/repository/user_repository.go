package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/stagedoor/boxoffice/internal/tenant"
)

// User represents an application account.  Ordinary staff accounts belong
// to a tenant; platform administrators have a NULL tenant_id and the
// PLATFORM_ADMIN role.  Users are auth plumbing rather than part of the
// scoped entity surface, so the repository stamps the tenant directly
// instead of going through the scope registry.
type User struct {
	ID           uint64  // users.id
	TenantID     *uint64 // users.tenant_id (nil for platform admins)
	Email        string  // users.email (unique)
	PasswordHash string  // users.password_hash (bcrypt)
	Role         string  // users.role (STAFF, MANAGER, PLATFORM_ADMIN)
	IsActive     bool    // users.is_active
	CreatedAt    string  // users.created_at
	UpdatedAt    string  // users.updated_at
}

// ErrUserNotFound is returned when no user matches a lookup.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailTaken is returned when registration collides with an existing
// email.  Detected by the unique index on users.email.
var ErrEmailTaken = errors.New("email already registered")

// UserRepo provides access to the users table.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create inserts a new staff user bound to the tenant in the current
// context.  The caller supplies a pre-hashed password.
func (r *UserRepo) Create(ctx context.Context, email, passwordHash, role string) (uint64, error) {
	tid, ok := tenant.ID(ctx)
	if !ok {
		return 0, tenant.ErrTenantRequired
	}
	const q = "INSERT INTO users (tenant_id, email, password_hash, role) VALUES (?, ?, ?, ?)"
	res, err := r.db.ExecContext(ctx, q, tid, email, passwordHash, role)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return 0, ErrEmailTaken
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmailForLogin fetches an active user by email WITHOUT tenant
// filtering.  This is the one legitimate pre-tenant lookup in the system:
// sign-in has no tenant context yet because the user's row is what
// determines the tenant that goes into the issued token.  The explicit
// name marks it as an escape from the usual scoped access.
func (r *UserRepo) GetByEmailForLogin(ctx context.Context, email string) (*User, error) {
	const q = "SELECT id, tenant_id, email, password_hash, role, is_active, created_at, updated_at FROM users WHERE email = ? AND is_active = 1"
	var u User
	var tid sql.NullInt64
	if err := r.db.QueryRowContext(ctx, q, email).Scan(&u.ID, &tid, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if tid.Valid {
		v := uint64(tid.Int64)
		u.TenantID = &v
	}
	return &u, nil
}

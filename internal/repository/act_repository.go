package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/stagedoor/boxoffice/internal/scope"
	"github.com/stagedoor/boxoffice/internal/tenant"
)

// Act represents a performer or production that can be booked into shows.
// Acts are directly tenant-scoped, like venues.
type Act struct {
	ID        uint64 // acts.id
	TenantID  uint64 // acts.tenant_id (set at creation, immutable)
	Name      string // acts.name
	Genre     string // acts.genre
	CreatedAt string // acts.created_at
	UpdatedAt string // acts.updated_at
}

// ErrActNotFound is returned when an act does not exist or belongs to a
// different tenant.
var ErrActNotFound = errors.New("act not found")

// ActRepo encapsulates database access for acts.
type ActRepo struct {
	db     *sql.DB
	scopes *scope.Registry
}

// NewActRepo constructs an ActRepo.
func NewActRepo(db *sql.DB, scopes *scope.Registry) *ActRepo {
	return &ActRepo{db: db, scopes: scopes}
}

// Create inserts a new act with the tenant stamped from the context.
func (r *ActRepo) Create(ctx context.Context, a *Act) error {
	tid, err := stampTenant(ctx, a.TenantID)
	if err != nil {
		return err
	}
	a.TenantID = tid
	res, err := r.db.ExecContext(ctx, "INSERT INTO acts (tenant_id, name, genre) VALUES (?, ?, ?)", a.TenantID, a.Name, a.Genre)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	const sel = "SELECT tenant_id, name, genre, created_at, updated_at FROM acts WHERE id = ?"
	return r.db.QueryRowContext(ctx, sel, a.ID).Scan(&a.TenantID, &a.Name, &a.Genre, &a.CreatedAt, &a.UpdatedAt)
}

// GetByID fetches an act visible to the current tenant context.
func (r *ActRepo) GetByID(ctx context.Context, id uint64) (*Act, error) {
	cl, err := r.scopes.Clause(ctx, scope.KindAct)
	if err != nil {
		return nil, err
	}
	q := "SELECT a.id, a.tenant_id, a.name, a.genre, a.created_at, a.updated_at FROM acts a WHERE a.id = ?" + cl.And()
	args := append([]interface{}{id}, cl.Args...)
	var a Act
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&a.ID, &a.TenantID, &a.Name, &a.Genre, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrActNotFound
		}
		return nil, err
	}
	return &a, nil
}

// List returns all acts visible to the current tenant context.
func (r *ActRepo) List(ctx context.Context) ([]*Act, error) {
	cl, err := r.scopes.Clause(ctx, scope.KindAct)
	if err != nil {
		return nil, err
	}
	q := "SELECT a.id, a.tenant_id, a.name, a.genre, a.created_at, a.updated_at FROM acts a WHERE 1=1" + cl.And() + " ORDER BY a.id"
	rows, err := r.db.QueryContext(ctx, q, cl.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Act
	for rows.Next() {
		a := new(Act)
		if err := rows.Scan(&a.ID, &a.TenantID, &a.Name, &a.Genre, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update changes an act's mutable fields with the same tenant
// re-verification as VenueRepo.Update.  tenant_id is never written.
func (r *ActRepo) Update(ctx context.Context, id uint64, name, genre string) (*Act, error) {
	cl, err := r.scopes.Clause(ctx, scope.KindAct)
	if err != nil {
		return nil, err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	q := "SELECT a.tenant_id FROM acts a WHERE a.id = ?" + cl.And() + " FOR UPDATE"
	args := append([]interface{}{id}, cl.Args...)
	var owner uint64
	if err := tx.QueryRowContext(ctx, q, args...).Scan(&owner); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrActNotFound
		}
		return nil, err
	}
	if tid, ok := tenant.ID(ctx); ok && owner != tid {
		return nil, ErrForbidden
	}
	if _, err := tx.ExecContext(ctx, "UPDATE acts SET name = ?, genre = ? WHERE id = ?", name, genre, id); err != nil {
		return nil, err
	}
	var a Act
	const sel = "SELECT id, tenant_id, name, genre, created_at, updated_at FROM acts WHERE id = ?"
	if err := tx.QueryRowContext(ctx, sel, id).Scan(&a.ID, &a.TenantID, &a.Name, &a.Genre, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return &a, nil
}

// Delete removes an act unless shows still reference it.
func (r *ActRepo) Delete(ctx context.Context, id uint64) error {
	cl, err := r.scopes.Clause(ctx, scope.KindAct)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	q := "SELECT a.tenant_id FROM acts a WHERE a.id = ?" + cl.And() + " FOR UPDATE"
	args := append([]interface{}{id}, cl.Args...)
	var owner uint64
	if err := tx.QueryRowContext(ctx, q, args...).Scan(&owner); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrActNotFound
		}
		return err
	}
	if tid, ok := tenant.ID(ctx); ok && owner != tid {
		return ErrForbidden
	}
	var dependents uint64
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM shows WHERE act_id = ?", id).Scan(&dependents); err != nil {
		return err
	}
	if dependents > 0 {
		return ErrConflict
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM acts WHERE id = ?", id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

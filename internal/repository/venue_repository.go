// This file defines the Venue model and repository.  A Venue is a
// directly-scoped entity: it stores its own tenant_id, assigned exactly
// once at creation from the tenant context and immutable afterwards.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/stagedoor/boxoffice/internal/scope"
	"github.com/stagedoor/boxoffice/internal/tenant"
)

// Venue represents a physical location where shows are scheduled.  Each
// venue belongs to exactly one tenant.
type Venue struct {
	ID        uint64 // venues.id
	TenantID  uint64 // venues.tenant_id (set at creation, immutable)
	Name      string // venues.name
	Address   string // venues.address
	CreatedAt string // venues.created_at
	UpdatedAt string // venues.updated_at
}

// ErrVenueNotFound is returned when a venue does not exist or belongs to a
// different tenant than the current context.
var ErrVenueNotFound = errors.New("venue not found")

// VenueRepo encapsulates database access for venues.  Every read and
// mutation goes through the scope registry so the tenant predicate cannot
// be forgotten at a call site.
type VenueRepo struct {
	db     *sql.DB
	scopes *scope.Registry
}

// NewVenueRepo constructs a VenueRepo.
func NewVenueRepo(db *sql.DB, scopes *scope.Registry) *VenueRepo {
	return &VenueRepo{db: db, scopes: scopes}
}

// stampTenant resolves the tenant id a directly-scoped row must carry on
// insert.  With a bound tenant context the context value wins and a
// pre-set, mismatching id is rejected.  The administrative context must
// supply the target tenant explicitly.  An unresolved context cannot
// create scoped rows at all.
func stampTenant(ctx context.Context, current uint64) (uint64, error) {
	if id, ok := tenant.ID(ctx); ok {
		if current != 0 && current != id {
			return 0, ErrForbidden
		}
		return id, nil
	}
	if tenant.IsAdministrative(ctx) {
		if current == 0 {
			return 0, tenant.ErrTenantRequired
		}
		return current, nil
	}
	return 0, tenant.ErrTenantRequired
}

// Create inserts a new venue.  The tenant id is stamped from the current
// context; a caller-supplied id that differs from the context is rejected
// with ErrForbidden.  On success the generated ID and DB-default fields
// are populated on the given struct.
func (r *VenueRepo) Create(ctx context.Context, v *Venue) error {
	tid, err := stampTenant(ctx, v.TenantID)
	if err != nil {
		return err
	}
	v.TenantID = tid
	const qInsert = "INSERT INTO venues (tenant_id, name, address) VALUES (?, ?, ?)"
	res, err := r.db.ExecContext(ctx, qInsert, v.TenantID, v.Name, v.Address)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = uint64(id)
	const qSelect = "SELECT tenant_id, name, address, created_at, updated_at FROM venues WHERE id = ?"
	return r.db.QueryRowContext(ctx, qSelect, v.ID).Scan(&v.TenantID, &v.Name, &v.Address, &v.CreatedAt, &v.UpdatedAt)
}

// GetByID fetches a venue visible to the current tenant context.  A venue
// owned by another tenant yields ErrVenueNotFound, indistinguishable from
// a venue that does not exist.
func (r *VenueRepo) GetByID(ctx context.Context, id uint64) (*Venue, error) {
	cl, err := r.scopes.Clause(ctx, scope.KindVenue)
	if err != nil {
		return nil, err
	}
	q := "SELECT v.id, v.tenant_id, v.name, v.address, v.created_at, v.updated_at FROM venues v WHERE v.id = ?" + cl.And()
	args := append([]interface{}{id}, cl.Args...)
	var v Venue
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&v.ID, &v.TenantID, &v.Name, &v.Address, &v.CreatedAt, &v.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVenueNotFound
		}
		return nil, err
	}
	return &v, nil
}

// List returns all venues visible to the current tenant context, ordered
// by id.  Under the administrative context this spans every tenant.
func (r *VenueRepo) List(ctx context.Context) ([]*Venue, error) {
	cl, err := r.scopes.Clause(ctx, scope.KindVenue)
	if err != nil {
		return nil, err
	}
	q := "SELECT v.id, v.tenant_id, v.name, v.address, v.created_at, v.updated_at FROM venues v WHERE 1=1" + cl.And() + " ORDER BY v.id"
	rows, err := r.db.QueryContext(ctx, q, cl.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Venue
	for rows.Next() {
		v := new(Venue)
		if err := rows.Scan(&v.ID, &v.TenantID, &v.Name, &v.Address, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update changes a venue's mutable fields.  The row is loaded under the
// scope filter inside a transaction and its persisted tenant is re-checked
// against the context before the write: the re-check can only fail when
// the row was reached through the administrative escape hatch, in which
// case ErrForbidden is returned.  The tenant_id column is never written.
func (r *VenueRepo) Update(ctx context.Context, id uint64, name, address string) (*Venue, error) {
	cl, err := r.scopes.Clause(ctx, scope.KindVenue)
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
	q := "SELECT v.tenant_id FROM venues v WHERE v.id = ?" + cl.And() + " FOR UPDATE"
	args := append([]interface{}{id}, cl.Args...)
	var owner uint64
	if err := tx.QueryRowContext(ctx, q, args...).Scan(&owner); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVenueNotFound
		}
		return nil, err
	}
	if tid, ok := tenant.ID(ctx); ok && owner != tid {
		return nil, ErrForbidden
	}
	if _, err := tx.ExecContext(ctx, "UPDATE venues SET name = ?, address = ? WHERE id = ?", name, address, id); err != nil {
		return nil, err
	}
	var v Venue
	const sel = "SELECT id, tenant_id, name, address, created_at, updated_at FROM venues WHERE id = ?"
	if err := tx.QueryRowContext(ctx, sel, id).Scan(&v.ID, &v.TenantID, &v.Name, &v.Address, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return &v, nil
}

// Delete removes a venue after verifying tenant ownership and that no
// shows still reference it.  Dependent shows cause ErrConflict so that
// capacity records are never destroyed by a cascading delete.
func (r *VenueRepo) Delete(ctx context.Context, id uint64) error {
	cl, err := r.scopes.Clause(ctx, scope.KindVenue)
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
	q := "SELECT v.tenant_id FROM venues v WHERE v.id = ?" + cl.And() + " FOR UPDATE"
	args := append([]interface{}{id}, cl.Args...)
	var owner uint64
	if err := tx.QueryRowContext(ctx, q, args...).Scan(&owner); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrVenueNotFound
		}
		return err
	}
	if tid, ok := tenant.ID(ctx); ok && owner != tid {
		return ErrForbidden
	}
	var dependents uint64
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM shows WHERE venue_id = ?", id).Scan(&dependents); err != nil {
		return err
	}
	if dependents > 0 {
		return ErrConflict
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM venues WHERE id = ?", id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

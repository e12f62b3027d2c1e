// Package repository contains data access logic separated from HTTP
// handlers.  This file defines the Tenant model and its repository.  A
// Tenant is the root isolation boundary; the tenants table is global
// reference data and is the only table never filtered by tenant.
package repository

import (
	"context"
	"database/sql"
	"errors"
)

// Tenant represents one isolated customer organization within the
// deployment.  Slug is the URL-safe identifier used during sign-in to
// locate the tenant before any token exists.
type Tenant struct {
	ID        uint64 // tenants.id
	Name      string // tenants.name
	Slug      string // tenants.slug (unique)
	IsActive  bool   // tenants.is_active
	CreatedAt string // tenants.created_at
	UpdatedAt string // tenants.updated_at
}

// ErrTenantNotFound is returned when a tenant cannot be located.
var ErrTenantNotFound = errors.New("tenant not found")

// TenantRepo encapsulates queries against the tenants table.
type TenantRepo struct {
	db *sql.DB
}

// NewTenantRepo constructs a TenantRepo with the given DB handle.
func NewTenantRepo(db *sql.DB) *TenantRepo {
	return &TenantRepo{db: db}
}

// Create inserts a new tenant and populates the generated ID and the
// DB-default fields on the given struct.
func (r *TenantRepo) Create(ctx context.Context, t *Tenant) error {
	const qInsert = "INSERT INTO tenants (name, slug) VALUES (?, ?)"
	res, err := r.db.ExecContext(ctx, qInsert, t.Name, t.Slug)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	const qSelect = "SELECT name, slug, is_active, created_at, updated_at FROM tenants WHERE id = ?"
	return r.db.QueryRowContext(ctx, qSelect, t.ID).Scan(&t.Name, &t.Slug, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
}

// GetByID fetches a tenant by id.  Returns ErrTenantNotFound when absent.
func (r *TenantRepo) GetByID(ctx context.Context, id uint64) (*Tenant, error) {
	const q = "SELECT id, name, slug, is_active, created_at, updated_at FROM tenants WHERE id = ?"
	var t Tenant
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&t.ID, &t.Name, &t.Slug, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	return &t, nil
}

// GetBySlug fetches an active tenant by its slug.  Used during sign-in to
// resolve the tenant before a token exists.
func (r *TenantRepo) GetBySlug(ctx context.Context, slug string) (*Tenant, error) {
	const q = "SELECT id, name, slug, is_active, created_at, updated_at FROM tenants WHERE slug = ? AND is_active = 1"
	var t Tenant
	if err := r.db.QueryRowContext(ctx, q, slug).Scan(&t.ID, &t.Name, &t.Slug, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	return &t, nil
}

// List returns all tenants ordered by id.  Intended for the administrative
// surface only; tenants are not themselves tenant-scoped.
func (r *TenantRepo) List(ctx context.Context) ([]*Tenant, error) {
	const q = "SELECT id, name, slug, is_active, created_at, updated_at FROM tenants ORDER BY id"
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Tenant
	for rows.Next() {
		t := new(Tenant)
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

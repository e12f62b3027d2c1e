// Package tenant carries the resolved tenant identity for a single unit of
// work.  The identity is attached to the request's context.Context exactly
// once, by the authentication middleware, and is read-only afterwards.  Two
// resolved states exist: bound to a concrete tenant, or administrative.  The
// administrative state disables isolation filtering entirely and must never
// be produced by a tenant-facing request path; only the explicitly gated
// admin routes and internal tooling construct it.
package tenant

import (
	"context"
	"errors"
)

// ErrTenantRequired is returned when a tenant-scoped operation runs without
// a resolved tenant identity.  Handlers should translate this into an HTTP
// 401 response.
var ErrTenantRequired = errors.New("tenant context required")

type ctxKey struct{}

// identity is the value stored in the context.  admin implies no id.
type identity struct {
	id    uint64
	admin bool
}

// WithTenant returns a context bound to the given tenant id.  Called once
// per request by the auth middleware after the tenant_id claim has been
// verified.  A zero id is stored as-is and treated as unresolved by ID.
func WithTenant(ctx context.Context, id uint64) context.Context {
	return context.WithValue(ctx, ctxKey{}, identity{id: id})
}

// WithAdministrative returns a context in privileged cross-tenant mode.
// Every query issued under this context sees rows of all tenants, so the
// caller is responsible for re-applying an equivalent filter before handing
// data back to a tenant-facing consumer.
func WithAdministrative(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, identity{admin: true})
}

// ID reports the bound tenant id.  ok is false when the context is
// unresolved or administrative.
func ID(ctx context.Context) (uint64, bool) {
	v, _ := ctx.Value(ctxKey{}).(identity)
	if v.admin || v.id == 0 {
		return 0, false
	}
	return v.id, true
}

// IsAdministrative reports whether the context is in cross-tenant mode.
func IsAdministrative(ctx context.Context) bool {
	v, _ := ctx.Value(ctxKey{}).(identity)
	return v.admin
}

// Resolved reports whether any identity (tenant-bound or administrative)
// has been attached to the context.
func Resolved(ctx context.Context) bool {
	v, ok := ctx.Value(ctxKey{}).(identity)
	return ok && (v.admin || v.id != 0)
}

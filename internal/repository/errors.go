// Package repository defines error values shared across repositories.
// These sentinels let handlers distinguish failure scenarios without
// inspecting driver errors.  Note that a cross-tenant miss is deliberately
// NOT distinguishable from absence: scoped lookups return the entity's
// not-found sentinel in both cases so that a tenant cannot probe for rows
// belonging to another tenant.
package repository

import "errors"

// ErrForbidden is returned by the defense-in-depth tenant re-verification
// on mutations.  Under normal operation the scoped read already hides
// foreign rows, so this error only fires when a caller reached a row
// through the administrative escape hatch and then attempted a mutation
// under the wrong tenant.  Handlers translate this into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete cannot proceed because dependent
// records still exist, such as removing a venue that still has scheduled
// shows or a show that still has ticket offers.  Owner deletion is
// restricted, never cascading, so capacity records are never silently
// destroyed.  Handlers translate this into HTTP 409.
var ErrConflict = errors.New("conflict")

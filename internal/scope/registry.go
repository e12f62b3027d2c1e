// Package scope implements the isolation filter applied to every query
// against tenant-scoped data.  Each entity kind is classified once, at
// process start, by a statically declared rule: either the entity stores its
// own tenant_id column, or its tenant is reached through a required chain of
// owner joins, or it is global reference data with no tenant at all.  The
// registry turns a rule plus the current tenant context into SQL fragments
// that repositories append to their queries, so no call site repeats the
// filtering logic.
package scope

import (
	"context"
	"fmt"
	"strings"

	"github.com/stagedoor/boxoffice/internal/tenant"
)

// Strategy classifies how an entity kind reaches its tenant.
type Strategy int

const (
	// Unscoped marks global reference data (the tenants table itself).
	Unscoped Strategy = iota
	// Direct marks entities storing their own tenant_id column.
	Direct
	// Derived marks entities whose tenant is the tenant of a required
	// owner, reached through one or more joins.
	Derived
)

// Rule describes the scoping of one entity kind.  Alias is the table alias
// repositories use for the base table in their queries; TenantExpr must
// reference either that alias (Direct) or an alias introduced by Joins
// (Derived).  Derived rules always read the owner's stored column rather
// than a copied value, so the effective tenant can never diverge from the
// owner's.
type Rule struct {
	Kind       string
	Table      string
	Alias      string
	Strategy   Strategy
	Joins      []string
	TenantExpr string
}

// Clause is the fragment pair a repository splices into a query: Join is
// appended after the FROM clause, Where is ANDed into the predicate with
// Args holding its bind values.  Both are empty for unscoped kinds and for
// the administrative context.
type Clause struct {
	Join  string
	Where string
	Args  []interface{}
}

// And renders the Where part prefixed with " AND ", or an empty string when
// there is no predicate.  Queries are written as
// `... WHERE s.id = ?` + cl.And().
func (c Clause) And() string {
	if c.Where == "" {
		return ""
	}
	return " AND " + c.Where
}

// Registry holds the full, immutable kind-to-rule mapping.  It is built
// once in main and shared by every repository; there is no way to add or
// replace rules afterwards.
type Registry struct {
	rules map[string]Rule
}

// Entity kind names used throughout the repositories.
const (
	KindTenant = "tenant"
	KindVenue  = "venue"
	KindAct    = "act"
	KindShow   = "show"
	KindOffer  = "ticket_offer"
)

// NewRegistry declares the scoping rule for every entity kind in the
// system.  Shows reach their tenant through the owning venue; ticket offers
// through the owning show's venue (two hops).
func NewRegistry() *Registry {
	rules := []Rule{
		{
			Kind:     KindTenant,
			Table:    "tenants",
			Alias:    "t",
			Strategy: Unscoped,
		},
		{
			Kind:       KindVenue,
			Table:      "venues",
			Alias:      "v",
			Strategy:   Direct,
			TenantExpr: "v.tenant_id",
		},
		{
			Kind:       KindAct,
			Table:      "acts",
			Alias:      "a",
			Strategy:   Direct,
			TenantExpr: "a.tenant_id",
		},
		{
			Kind:     KindShow,
			Table:    "shows",
			Alias:    "s",
			Strategy: Derived,
			Joins: []string{
				"JOIN venues v ON v.id = s.venue_id",
			},
			TenantExpr: "v.tenant_id",
		},
		{
			Kind:     KindOffer,
			Table:    "ticket_offers",
			Alias:    "o",
			Strategy: Derived,
			Joins: []string{
				"JOIN shows s ON s.id = o.show_id",
				"JOIN venues v ON v.id = s.venue_id",
			},
			TenantExpr: "v.tenant_id",
		},
	}
	m := make(map[string]Rule, len(rules))
	for _, r := range rules {
		m[r.Kind] = r
	}
	return &Registry{rules: m}
}

// Rule returns the declared rule for a kind.  Unknown kinds are a
// programming error and reported as such.
func (r *Registry) Rule(kind string) (Rule, error) {
	rule, ok := r.rules[kind]
	if !ok {
		return Rule{}, fmt.Errorf("scope: unknown entity kind %q", kind)
	}
	return rule, nil
}

// Clause builds the isolation fragment for a kind under the current tenant
// context.  Administrative contexts get an empty clause (filtering
// disabled); unscoped kinds never carry a predicate; everything else
// requires a bound tenant and yields `<owner chain joins> ... AND
// <tenant expr> = ?`.  An unresolved context is rejected outright so that a
// missing identity can never widen a query to all tenants.
func (r *Registry) Clause(ctx context.Context, kind string) (Clause, error) {
	rule, err := r.Rule(kind)
	if err != nil {
		return Clause{}, err
	}
	if rule.Strategy == Unscoped {
		return Clause{}, nil
	}
	if tenant.IsAdministrative(ctx) {
		return Clause{}, nil
	}
	id, ok := tenant.ID(ctx)
	if !ok {
		return Clause{}, tenant.ErrTenantRequired
	}
	return Clause{
		Join:  strings.Join(rule.Joins, " "),
		Where: rule.TenantExpr + " = ?",
		Args:  []interface{}{id},
	}, nil
}

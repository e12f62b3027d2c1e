package scope

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagedoor/boxoffice/internal/tenant"
)

func TestRuleUnknownKind(t *testing.T) {
	r := NewRegistry()
	_, err := r.Rule("booking")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown entity kind")
}

func TestClauseUnscopedKind(t *testing.T) {
	r := NewRegistry()

	// Tenants are global reference data: no predicate even without any
	// resolved identity.
	cl, err := r.Clause(context.Background(), KindTenant)
	require.NoError(t, err)
	assert.Empty(t, cl.Join)
	assert.Empty(t, cl.Where)
	assert.Empty(t, cl.And())
}

func TestClauseDirectScoped(t *testing.T) {
	r := NewRegistry()
	ctx := tenant.WithTenant(context.Background(), 7)

	cl, err := r.Clause(ctx, KindVenue)
	require.NoError(t, err)
	assert.Empty(t, cl.Join, "direct scoping needs no joins")
	assert.Equal(t, "v.tenant_id = ?", cl.Where)
	assert.Equal(t, []interface{}{uint64(7)}, cl.Args)
	assert.Equal(t, " AND v.tenant_id = ?", cl.And())
}

func TestClauseDerivedOneHop(t *testing.T) {
	r := NewRegistry()
	ctx := tenant.WithTenant(context.Background(), 7)

	cl, err := r.Clause(ctx, KindShow)
	require.NoError(t, err)
	assert.Equal(t, "JOIN venues v ON v.id = s.venue_id", cl.Join)
	assert.Equal(t, "v.tenant_id = ?", cl.Where)
	assert.Equal(t, []interface{}{uint64(7)}, cl.Args)
}

func TestClauseDerivedTwoHops(t *testing.T) {
	r := NewRegistry()
	ctx := tenant.WithTenant(context.Background(), 7)

	cl, err := r.Clause(ctx, KindOffer)
	require.NoError(t, err)
	// The offer's tenant is read from the venue reached through the show,
	// never from a value copied onto the offer row.
	assert.Equal(t, "JOIN shows s ON s.id = o.show_id JOIN venues v ON v.id = s.venue_id", cl.Join)
	assert.Equal(t, "v.tenant_id = ?", cl.Where)
}

func TestClauseAdministrativeDisablesFiltering(t *testing.T) {
	r := NewRegistry()
	ctx := tenant.WithAdministrative(context.Background())

	for _, kind := range []string{KindVenue, KindAct, KindShow, KindOffer} {
		cl, err := r.Clause(ctx, kind)
		require.NoError(t, err, kind)
		assert.Empty(t, cl.Join, kind)
		assert.Empty(t, cl.Where, kind)
		assert.Empty(t, cl.Args, kind)
	}
}

func TestClauseUnresolvedRejected(t *testing.T) {
	r := NewRegistry()

	for _, kind := range []string{KindVenue, KindAct, KindShow, KindOffer} {
		_, err := r.Clause(context.Background(), kind)
		assert.ErrorIs(t, err, tenant.ErrTenantRequired, kind)
	}
}

func TestRegistryCoversAllKinds(t *testing.T) {
	r := NewRegistry()
	kinds := map[string]Strategy{
		KindTenant: Unscoped,
		KindVenue:  Direct,
		KindAct:    Direct,
		KindShow:   Derived,
		KindOffer:  Derived,
	}
	for kind, want := range kinds {
		rule, err := r.Rule(kind)
		require.NoError(t, err, kind)
		assert.Equal(t, want, rule.Strategy, kind)
	}
}

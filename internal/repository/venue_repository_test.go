package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagedoor/boxoffice/internal/scope"
	"github.com/stagedoor/boxoffice/internal/tenant"
)

func newVenueRepo(t *testing.T) (*VenueRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewVenueRepo(db, scope.NewRegistry()), mock
}

func venueRow(id, tenantID uint64, name, address string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "tenant_id", "name", "address", "created_at", "updated_at"}).
		AddRow(id, tenantID, name, address, "2026-01-01 12:00:00", "2026-01-01 12:00:00")
}

func TestVenueCreateStampsTenantFromContext(t *testing.T) {
	r, mock := newVenueRepo(t)
	ctx := tenant.WithTenant(context.Background(), 7)

	mock.ExpectExec("INSERT INTO venues").WithArgs(7, "Grand Hall", "1 Main St").
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectQuery("SELECT tenant_id, name, address").WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"tenant_id", "name", "address", "created_at", "updated_at"}).
			AddRow(7, "Grand Hall", "1 Main St", "2026-01-01 12:00:00", "2026-01-01 12:00:00"))

	v := &Venue{Name: "Grand Hall", Address: "1 Main St"}
	require.NoError(t, r.Create(ctx, v))
	assert.Equal(t, uint64(3), v.ID)
	assert.Equal(t, uint64(7), v.TenantID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVenueCreateRejectsForeignTenantID(t *testing.T) {
	r, mock := newVenueRepo(t)
	ctx := tenant.WithTenant(context.Background(), 7)

	// A pre-set tenant id that differs from the context must never reach
	// the database.
	v := &Venue{TenantID: 9, Name: "Grand Hall"}
	err := r.Create(ctx, v)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVenueCreateUnresolvedContext(t *testing.T) {
	r, mock := newVenueRepo(t)

	err := r.Create(context.Background(), &Venue{Name: "Grand Hall"})
	assert.ErrorIs(t, err, tenant.ErrTenantRequired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVenueCreateAdministrativeNeedsExplicitTenant(t *testing.T) {
	r, mock := newVenueRepo(t)
	ctx := tenant.WithAdministrative(context.Background())

	err := r.Create(ctx, &Venue{Name: "Grand Hall"})
	assert.ErrorIs(t, err, tenant.ErrTenantRequired)

	mock.ExpectExec("INSERT INTO venues").WithArgs(4, "Grand Hall", "").
		WillReturnResult(sqlmock.NewResult(8, 1))
	mock.ExpectQuery("SELECT tenant_id, name, address").WithArgs(8).
		WillReturnRows(sqlmock.NewRows([]string{"tenant_id", "name", "address", "created_at", "updated_at"}).
			AddRow(4, "Grand Hall", "", "2026-01-01 12:00:00", "2026-01-01 12:00:00"))

	v := &Venue{TenantID: 4, Name: "Grand Hall"}
	require.NoError(t, r.Create(ctx, v))
	assert.Equal(t, uint64(4), v.TenantID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVenueGetByIDAppliesScopePredicate(t *testing.T) {
	r, mock := newVenueRepo(t)
	ctx := tenant.WithTenant(context.Background(), 7)

	mock.ExpectQuery("SELECT v.id, v.tenant_id, v.name, v.address").WithArgs(3, 7).
		WillReturnRows(venueRow(3, 7, "Grand Hall", "1 Main St"))

	v, err := r.GetByID(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), v.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVenueGetByIDCrossTenantIsNotFound(t *testing.T) {
	r, mock := newVenueRepo(t)
	// Tenant 8 asks for tenant 7's venue: the scoped query matches no
	// rows, so the caller sees the same error as for a nonexistent id.
	ctx := tenant.WithTenant(context.Background(), 8)

	mock.ExpectQuery("SELECT v.id, v.tenant_id, v.name, v.address").WithArgs(3, 8).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name", "address", "created_at", "updated_at"}))

	_, err := r.GetByID(ctx, 3)
	assert.ErrorIs(t, err, ErrVenueNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVenueGetByIDUnresolvedContext(t *testing.T) {
	r, mock := newVenueRepo(t)

	_, err := r.GetByID(context.Background(), 3)
	assert.ErrorIs(t, err, tenant.ErrTenantRequired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVenueListAdministrativeSpansTenants(t *testing.T) {
	r, mock := newVenueRepo(t)
	ctx := tenant.WithAdministrative(context.Background())

	rows := sqlmock.NewRows([]string{"id", "tenant_id", "name", "address", "created_at", "updated_at"}).
		AddRow(1, 7, "Grand Hall", "", "2026-01-01 12:00:00", "2026-01-01 12:00:00").
		AddRow(2, 8, "Opera House", "", "2026-01-01 12:00:00", "2026-01-01 12:00:00")
	mock.ExpectQuery("SELECT v.id, v.tenant_id, v.name, v.address").WillReturnRows(rows)

	venues, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, venues, 2)
	assert.Equal(t, uint64(7), venues[0].TenantID)
	assert.Equal(t, uint64(8), venues[1].TenantID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVenueDeleteBlockedByDependentShows(t *testing.T) {
	r, mock := newVenueRepo(t)
	ctx := tenant.WithTenant(context.Background(), 7)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT v.tenant_id FROM venues").WithArgs(3, 7).
		WillReturnRows(sqlmock.NewRows([]string{"tenant_id"}).AddRow(7))
	mock.ExpectQuery("SELECT COUNT").WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	err := r.Delete(ctx, 3)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVenueDelete(t *testing.T) {
	r, mock := newVenueRepo(t)
	ctx := tenant.WithTenant(context.Background(), 7)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT v.tenant_id FROM venues").WithArgs(3, 7).
		WillReturnRows(sqlmock.NewRows([]string{"tenant_id"}).AddRow(7))
	mock.ExpectQuery("SELECT COUNT").WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("DELETE FROM venues").WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, r.Delete(ctx, 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVenueUpdateNeverTouchesTenantColumn(t *testing.T) {
	r, mock := newVenueRepo(t)
	ctx := tenant.WithTenant(context.Background(), 7)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT v.tenant_id FROM venues").WithArgs(3, 7).
		WillReturnRows(sqlmock.NewRows([]string{"tenant_id"}).AddRow(7))
	mock.ExpectExec("UPDATE venues SET name = \\?, address = \\?").
		WithArgs("Renamed", "2 Side St", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id, tenant_id, name, address").WithArgs(3).
		WillReturnRows(venueRow(3, 7, "Renamed", "2 Side St"))
	mock.ExpectCommit()

	v, err := r.Update(ctx, 3, "Renamed", "2 Side St")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), v.TenantID)
	assert.Equal(t, "Renamed", v.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagedoor/boxoffice/internal/scope"
	"github.com/stagedoor/boxoffice/internal/tenant"
)

func newShowRepo(t *testing.T) (*ShowRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewShowRepo(db, scope.NewRegistry()), mock
}

func TestShowCreateRejectsForeignVenue(t *testing.T) {
	r, mock := newShowRepo(t)
	ctx := tenant.WithTenant(context.Background(), 8)

	// The scoped venue lookup comes up empty for tenant 8, so the show is
	// never inserted and the caller cannot distinguish the foreign venue
	// from a missing one.
	mock.ExpectQuery("SELECT v.id FROM venues").WithArgs(3, 8).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	err := r.Create(ctx, &Show{VenueID: 3, ActID: 1, TicketCount: 100, StartsAt: "2026-12-01 20:00:00"})
	assert.ErrorIs(t, err, ErrVenueNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShowCreate(t *testing.T) {
	r, mock := newShowRepo(t)
	ctx := tenant.WithTenant(context.Background(), 7)

	mock.ExpectQuery("SELECT v.id FROM venues").WithArgs(3, 7).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectQuery("SELECT a.id FROM acts").WithArgs(1, 7).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec("INSERT INTO shows").WithArgs(3, 1, 100, "2026-12-01 20:00:00").
		WillReturnResult(sqlmock.NewResult(6, 1))
	mock.ExpectQuery("SELECT venue_id, act_id, ticket_count").WithArgs(6).
		WillReturnRows(sqlmock.NewRows([]string{"venue_id", "act_id", "ticket_count", "starts_at", "created_at", "updated_at"}).
			AddRow(3, 1, 100, "2026-12-01 20:00:00", "2026-01-01 12:00:00", "2026-01-01 12:00:00"))

	s := &Show{VenueID: 3, ActID: 1, TicketCount: 100, StartsAt: "2026-12-01 20:00:00"}
	require.NoError(t, r.Create(ctx, s))
	assert.Equal(t, uint64(6), s.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShowGetByIDScopedThroughVenue(t *testing.T) {
	r, mock := newShowRepo(t)
	ctx := tenant.WithTenant(context.Background(), 7)

	// The tenant predicate rides on the joined venues alias, not on any
	// column of the shows table itself.
	mock.ExpectQuery("FROM shows s JOIN venues v ON v.id = s.venue_id").WithArgs(6, 7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "venue_id", "act_id", "ticket_count", "starts_at", "created_at", "updated_at"}).
			AddRow(6, 3, 1, 100, "2026-12-01 20:00:00", "2026-01-01 12:00:00", "2026-01-01 12:00:00"))

	s, err := r.GetByID(ctx, 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), s.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShowGetByIDCrossTenantIsNotFound(t *testing.T) {
	r, mock := newShowRepo(t)
	ctx := tenant.WithTenant(context.Background(), 8)

	mock.ExpectQuery("FROM shows s JOIN venues v ON v.id = s.venue_id").WithArgs(6, 8).
		WillReturnRows(sqlmock.NewRows([]string{"id", "venue_id", "act_id", "ticket_count", "starts_at", "created_at", "updated_at"}))

	_, err := r.GetByID(ctx, 6)
	assert.ErrorIs(t, err, ErrShowNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBTime(t *testing.T) {
	ts := time.Date(2026, 12, 1, 19, 30, 0, 0, time.FixedZone("CET", 3600))
	assert.Equal(t, "2026-12-01 18:30:00", DBTime(ts))
}

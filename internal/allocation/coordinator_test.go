package allocation

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagedoor/boxoffice/internal/repository"
	"github.com/stagedoor/boxoffice/internal/scope"
	"github.com/stagedoor/boxoffice/internal/tenant"
)

const (
	lockShowQ    = "SELECT s.id, s.ticket_count, v.tenant_id"
	sumOffersQ   = "SELECT COALESCE"
	lockOfferQ   = "SELECT id, show_id, name, price_cents, ticket_count FROM ticket_offers"
	insertOfferQ = "INSERT INTO ticket_offers"
	updateOfferQ = "UPDATE ticket_offers SET"
	selectBackQ  = "SELECT show_id, name, price_cents, ticket_count, created_at, updated_at FROM ticket_offers"
	capacityQ    = "SELECT s.ticket_count, COALESCE"
)

func newTestCoordinator(t *testing.T) (*Coordinator, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	scopes := scope.NewRegistry()
	shows := repository.NewShowRepo(db, scopes)
	offers := repository.NewOfferRepo(db, scopes)
	return NewCoordinator(db, shows, offers, scopes), mock
}

func lockedShowRow(showID uint64, ticketCount uint32, tenantID uint64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "ticket_count", "tenant_id"}).
		AddRow(showID, ticketCount, tenantID)
}

func offerSelectBack(showID uint64, name string, price, count uint32) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"show_id", "name", "price_cents", "ticket_count", "created_at", "updated_at"}).
		AddRow(showID, name, price, count, "2026-01-01 12:00:00", "2026-01-01 12:00:00")
}

func TestCreateOfferWithinCapacity(t *testing.T) {
	c, mock := newTestCoordinator(t)
	ctx := tenant.WithTenant(context.Background(), 7)

	mock.ExpectBegin()
	mock.ExpectQuery(lockShowQ).WithArgs(1).WillReturnRows(lockedShowRow(1, 100, 7))
	mock.ExpectQuery(sumOffersQ).WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(40))
	mock.ExpectExec(insertOfferQ).WithArgs(1, "Balcony", 2500, 60).
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectQuery(selectBackQ).WithArgs(9).
		WillReturnRows(offerSelectBack(1, "Balcony", 2500, 60))
	mock.ExpectCommit()

	o, err := c.CreateOffer(ctx, 1, "Balcony", 2500, 60)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), o.ID)
	assert.Equal(t, uint32(60), o.TicketCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOfferOverflowRejected(t *testing.T) {
	c, mock := newTestCoordinator(t)
	ctx := tenant.WithTenant(context.Background(), 7)

	mock.ExpectBegin()
	mock.ExpectQuery(lockShowQ).WithArgs(1).WillReturnRows(lockedShowRow(1, 100, 7))
	mock.ExpectQuery(sumOffersQ).WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(40))
	mock.ExpectRollback()

	_, err := c.CreateOffer(ctx, 1, "Balcony", 2500, 61)

	var capErr *CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, uint64(1), capErr.ShowID)
	assert.Equal(t, uint32(100), capErr.Total)
	assert.Equal(t, uint32(40), capErr.Allocated)
	assert.Equal(t, uint32(61), capErr.Requested)
	assert.Equal(t, uint32(60), capErr.Available())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOfferExactFit(t *testing.T) {
	c, mock := newTestCoordinator(t)
	ctx := tenant.WithTenant(context.Background(), 7)

	mock.ExpectBegin()
	mock.ExpectQuery(lockShowQ).WithArgs(1).WillReturnRows(lockedShowRow(1, 100, 7))
	mock.ExpectQuery(sumOffersQ).WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(40))
	mock.ExpectExec(insertOfferQ).WithArgs(1, "Last tickets", 1000, 60).
		WillReturnResult(sqlmock.NewResult(10, 1))
	mock.ExpectQuery(selectBackQ).WithArgs(10).
		WillReturnRows(offerSelectBack(1, "Last tickets", 1000, 60))
	mock.ExpectCommit()

	_, err := c.CreateOffer(ctx, 1, "Last tickets", 1000, 60)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOfferCrossTenantShowHidden(t *testing.T) {
	c, mock := newTestCoordinator(t)
	// Tenant 8 targets a show owned by tenant 7.  The error must be the
	// not-found sentinel, indistinguishable from a nonexistent show.
	ctx := tenant.WithTenant(context.Background(), 8)

	mock.ExpectBegin()
	mock.ExpectQuery(lockShowQ).WithArgs(1).WillReturnRows(lockedShowRow(1, 100, 7))
	mock.ExpectRollback()

	_, err := c.CreateOffer(ctx, 1, "Balcony", 2500, 10)
	assert.ErrorIs(t, err, repository.ErrShowNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOfferUnresolvedContext(t *testing.T) {
	c, _ := newTestCoordinator(t)

	_, err := c.CreateOffer(context.Background(), 1, "Balcony", 2500, 10)
	assert.ErrorIs(t, err, tenant.ErrTenantRequired)
}

func TestCreateOfferShapeValidation(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := tenant.WithTenant(context.Background(), 7)

	_, err := c.CreateOffer(ctx, 1, "  ", 2500, 10)
	assert.ErrorIs(t, err, ErrInvalidOffer)

	_, err = c.CreateOffer(ctx, 1, "Balcony", 0, 10)
	assert.ErrorIs(t, err, ErrInvalidOffer)

	_, err = c.CreateOffer(ctx, 1, "Balcony", 2500, 0)
	assert.ErrorIs(t, err, ErrInvalidOffer)
}

func TestCreateOfferRetriesDeadlock(t *testing.T) {
	c, mock := newTestCoordinator(t)
	ctx := tenant.WithTenant(context.Background(), 7)

	// First attempt dies on a deadlock; the whole read-validate-write
	// sequence runs again and succeeds.
	mock.ExpectBegin()
	mock.ExpectQuery(lockShowQ).WithArgs(1).
		WillReturnError(&mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"})
	mock.ExpectRollback()

	mock.ExpectBegin()
	mock.ExpectQuery(lockShowQ).WithArgs(1).WillReturnRows(lockedShowRow(1, 100, 7))
	mock.ExpectQuery(sumOffersQ).WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(0))
	mock.ExpectExec(insertOfferQ).WithArgs(1, "Balcony", 2500, 10).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectQuery(selectBackQ).WithArgs(11).
		WillReturnRows(offerSelectBack(1, "Balcony", 2500, 10))
	mock.ExpectCommit()

	o, err := c.CreateOffer(ctx, 1, "Balcony", 2500, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), o.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOfferRetryExhaustion(t *testing.T) {
	c, mock := newTestCoordinator(t)
	ctx := tenant.WithTenant(context.Background(), 7)

	for i := 0; i < maxAttempts; i++ {
		mock.ExpectBegin()
		mock.ExpectQuery(lockShowQ).WithArgs(1).
			WillReturnError(&mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"})
		mock.ExpectRollback()
	}

	_, err := c.CreateOffer(ctx, 1, "Balcony", 2500, 10)
	assert.ErrorIs(t, err, ErrTxConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOfferNonRetryableErrorSurfaces(t *testing.T) {
	c, mock := newTestCoordinator(t)
	ctx := tenant.WithTenant(context.Background(), 7)

	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
	mock.ExpectBegin()
	mock.ExpectQuery(lockShowQ).WithArgs(1).WillReturnError(dup)
	mock.ExpectRollback()

	_, err := c.CreateOffer(ctx, 1, "Balcony", 2500, 10)
	assert.ErrorIs(t, err, dup)
	assert.NotErrorIs(t, err, ErrTxConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOfferExcludesOwnAllocation(t *testing.T) {
	c, mock := newTestCoordinator(t)
	ctx := tenant.WithTenant(context.Background(), 7)

	mock.ExpectBegin()
	mock.ExpectQuery(lockOfferQ).WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "show_id", "name", "price_cents", "ticket_count"}).
			AddRow(5, 1, "Balcony", 2500, 30))
	mock.ExpectQuery(lockShowQ).WithArgs(1).WillReturnRows(lockedShowRow(1, 100, 7))
	// Sum excludes offer 5: its 30 tickets are being replaced, not added.
	mock.ExpectQuery(sumOffersQ).WithArgs(1, 5).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(50))
	mock.ExpectExec(updateOfferQ).WithArgs("Balcony", 2500, 50, 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(selectBackQ).WithArgs(5).
		WillReturnRows(offerSelectBack(1, "Balcony", 2500, 50))
	mock.ExpectCommit()

	o, err := c.UpdateOffer(ctx, 5, "Balcony", 2500, 50)
	require.NoError(t, err)
	assert.Equal(t, uint32(50), o.TicketCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOfferDecreaseSkipsCapacityCheck(t *testing.T) {
	c, mock := newTestCoordinator(t)
	ctx := tenant.WithTenant(context.Background(), 7)

	mock.ExpectBegin()
	mock.ExpectQuery(lockOfferQ).WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "show_id", "name", "price_cents", "ticket_count"}).
			AddRow(5, 1, "Balcony", 2500, 30))
	mock.ExpectQuery(lockShowQ).WithArgs(1).WillReturnRows(lockedShowRow(1, 100, 7))
	// No sum query: a decrease can never violate the invariant.
	mock.ExpectExec(updateOfferQ).WithArgs("Balcony", 2000, 10, 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(selectBackQ).WithArgs(5).
		WillReturnRows(offerSelectBack(1, "Balcony", 2000, 10))
	mock.ExpectCommit()

	_, err := c.UpdateOffer(ctx, 5, "Balcony", 2000, 10)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOfferOverflowRejected(t *testing.T) {
	c, mock := newTestCoordinator(t)
	ctx := tenant.WithTenant(context.Background(), 7)

	mock.ExpectBegin()
	mock.ExpectQuery(lockOfferQ).WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "show_id", "name", "price_cents", "ticket_count"}).
			AddRow(5, 1, "Balcony", 2500, 30))
	mock.ExpectQuery(lockShowQ).WithArgs(1).WillReturnRows(lockedShowRow(1, 100, 7))
	mock.ExpectQuery(sumOffersQ).WithArgs(1, 5).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(50))
	mock.ExpectRollback()

	_, err := c.UpdateOffer(ctx, 5, "Balcony", 2500, 51)

	var capErr *CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, uint32(50), capErr.Allocated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOfferCrossTenantHidden(t *testing.T) {
	c, mock := newTestCoordinator(t)
	ctx := tenant.WithTenant(context.Background(), 8)

	mock.ExpectBegin()
	mock.ExpectQuery(lockOfferQ).WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "show_id", "name", "price_cents", "ticket_count"}).
			AddRow(5, 1, "Balcony", 2500, 30))
	mock.ExpectQuery(lockShowQ).WithArgs(1).WillReturnRows(lockedShowRow(1, 100, 7))
	mock.ExpectRollback()

	_, err := c.UpdateOffer(ctx, 5, "Balcony", 2500, 40)
	assert.ErrorIs(t, err, repository.ErrOfferNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCapacitySnapshot(t *testing.T) {
	c, mock := newTestCoordinator(t)
	ctx := tenant.WithTenant(context.Background(), 7)

	mock.ExpectQuery(capacityQ).WithArgs(1, 7).
		WillReturnRows(sqlmock.NewRows([]string{"ticket_count", "sum"}).AddRow(100, 65))

	cap, err := c.GetCapacity(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(100), cap.Total)
	assert.Equal(t, uint32(65), cap.Allocated)
	assert.Equal(t, uint32(35), cap.Available)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCapacityCrossTenantNotFound(t *testing.T) {
	c, mock := newTestCoordinator(t)
	ctx := tenant.WithTenant(context.Background(), 8)

	mock.ExpectQuery(capacityQ).WithArgs(1, 8).
		WillReturnRows(sqlmock.NewRows([]string{"ticket_count", "sum"}))

	_, err := c.GetCapacity(ctx, 1)
	assert.ErrorIs(t, err, repository.ErrShowNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRetryableClassification(t *testing.T) {
	assert.True(t, retryable(&mysql.MySQLError{Number: 1213}))
	assert.True(t, retryable(&mysql.MySQLError{Number: 1205}))
	assert.False(t, retryable(&mysql.MySQLError{Number: 1062}))
	assert.False(t, retryable(context.DeadlineExceeded))
	assert.False(t, retryable(nil))
}

// This file defines the Show model and repository.  A Show is a
// derived-scope entity: it carries no tenant_id of its own; its effective
// tenant is the tenant of the owning venue, reached through a required
// join.  No tenant value is ever copied onto the shows table, so the
// effective tenant cannot diverge from the owner's.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/stagedoor/boxoffice/internal/scope"
)

// Show represents a scheduled performance of an act at a venue.
// TicketCount is the printed capacity, fixed at creation; ticket offers
// carve allocations out of it.
// NOTE: time columns are stored in DB format "2006-01-02 15:04:05" (UTC).
type Show struct {
	ID          uint64 // shows.id
	VenueID     uint64 // shows.venue_id (required owner)
	ActID       uint64 // shows.act_id (required)
	TicketCount uint32 // shows.ticket_count (positive, immutable)
	StartsAt    string // shows.starts_at ("YYYY-MM-DD HH:MM:SS" UTC)
	CreatedAt   string // shows.created_at
	UpdatedAt   string // shows.updated_at
}

// ShowCapacityRow is the locked projection the allocation coordinator
// works against: the show's printed capacity plus the owning venue's
// tenant for verification inside the same transaction.
type ShowCapacityRow struct {
	ShowID      uint64
	TicketCount uint32
	TenantID    uint64
}

// ErrShowNotFound is returned when a show does not exist or its owning
// venue belongs to a different tenant.
var ErrShowNotFound = errors.New("show not found")

// ShowRepo manages persistence for shows.
type ShowRepo struct {
	db     *sql.DB
	scopes *scope.Registry
}

// NewShowRepo constructs a ShowRepo.
func NewShowRepo(db *sql.DB, scopes *scope.Registry) *ShowRepo {
	return &ShowRepo{db: db, scopes: scopes}
}

// DB exposes the underlying sql.DB so the allocation coordinator can begin
// transactions spanning shows and ticket offers.
func (r *ShowRepo) DB() *sql.DB {
	return r.db
}

// DBTime renders a time in the DATETIME format the schema uses.
func DBTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

// Create inserts a new show.  The owning venue and the act must both be
// visible to the current tenant context; the scoped lookups return their
// not-found sentinels otherwise, so a caller can never attach a show to
// another tenant's venue.  No tenant assignment happens here: isolation of
// a show is entirely a property of its venue reference.
func (r *ShowRepo) Create(ctx context.Context, s *Show) error {
	venueCl, err := r.scopes.Clause(ctx, scope.KindVenue)
	if err != nil {
		return err
	}
	var venueID uint64
	vq := "SELECT v.id FROM venues v WHERE v.id = ?" + venueCl.And()
	if err := r.db.QueryRowContext(ctx, vq, append([]interface{}{s.VenueID}, venueCl.Args...)...).Scan(&venueID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrVenueNotFound
		}
		return err
	}
	actCl, err := r.scopes.Clause(ctx, scope.KindAct)
	if err != nil {
		return err
	}
	var actID uint64
	aq := "SELECT a.id FROM acts a WHERE a.id = ?" + actCl.And()
	if err := r.db.QueryRowContext(ctx, aq, append([]interface{}{s.ActID}, actCl.Args...)...).Scan(&actID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrActNotFound
		}
		return err
	}
	const qInsert = "INSERT INTO shows (venue_id, act_id, ticket_count, starts_at) VALUES (?, ?, ?, ?)"
	res, err := r.db.ExecContext(ctx, qInsert, s.VenueID, s.ActID, s.TicketCount, s.StartsAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	const sel = "SELECT venue_id, act_id, ticket_count, starts_at, created_at, updated_at FROM shows WHERE id = ?"
	return r.db.QueryRowContext(ctx, sel, s.ID).Scan(&s.VenueID, &s.ActID, &s.TicketCount, &s.StartsAt, &s.CreatedAt, &s.UpdatedAt)
}

// GetByID fetches a show visible to the current tenant context.  The
// tenant predicate traverses shows -> venues, so a show is hidden exactly
// when its owning venue is.
func (r *ShowRepo) GetByID(ctx context.Context, id uint64) (*Show, error) {
	cl, err := r.scopes.Clause(ctx, scope.KindShow)
	if err != nil {
		return nil, err
	}
	q := "SELECT s.id, s.venue_id, s.act_id, s.ticket_count, s.starts_at, s.created_at, s.updated_at FROM shows s " +
		cl.Join + " WHERE s.id = ?" + cl.And()
	args := append([]interface{}{id}, cl.Args...)
	var s Show
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&s.ID, &s.VenueID, &s.ActID, &s.TicketCount, &s.StartsAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ListByVenue returns all shows of a venue visible to the current tenant
// context, ordered by start time ascending.
func (r *ShowRepo) ListByVenue(ctx context.Context, venueID uint64) ([]Show, error) {
	cl, err := r.scopes.Clause(ctx, scope.KindShow)
	if err != nil {
		return nil, err
	}
	q := "SELECT s.id, s.venue_id, s.act_id, s.ticket_count, s.starts_at, s.created_at, s.updated_at FROM shows s " +
		cl.Join + " WHERE s.venue_id = ?" + cl.And() + " ORDER BY s.starts_at ASC"
	args := append([]interface{}{venueID}, cl.Args...)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Show
	for rows.Next() {
		var s Show
		if err := rows.Scan(&s.ID, &s.VenueID, &s.ActID, &s.TicketCount, &s.StartsAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// LockForAllocationTx loads a show's capacity row inside the given
// transaction with FOR UPDATE.  The row lock on the show serializes all
// allocation attempts against it until the transaction ends; attempts
// against other shows proceed independently.  Tenant verification against
// the returned TenantID is the caller's responsibility because the
// decision (not-found vs proceed) belongs to the coordinator.
func (r *ShowRepo) LockForAllocationTx(ctx context.Context, tx *sql.Tx, showID uint64) (*ShowCapacityRow, error) {
	const q = `SELECT s.id, s.ticket_count, v.tenant_id
               FROM shows s
               JOIN venues v ON v.id = s.venue_id
               WHERE s.id = ?
               FOR UPDATE`
	var row ShowCapacityRow
	if err := tx.QueryRowContext(ctx, q, showID).Scan(&row.ShowID, &row.TicketCount, &row.TenantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowNotFound
		}
		return nil, err
	}
	return &row, nil
}

// Delete removes a show after verifying visibility and that no ticket
// offers still reference it.
func (r *ShowRepo) Delete(ctx context.Context, id uint64) error {
	cl, err := r.scopes.Clause(ctx, scope.KindShow)
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
	q := "SELECT s.id FROM shows s " + cl.Join + " WHERE s.id = ?" + cl.And() + " FOR UPDATE"
	args := append([]interface{}{id}, cl.Args...)
	var found uint64
	if err := tx.QueryRowContext(ctx, q, args...).Scan(&found); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrShowNotFound
		}
		return err
	}
	var dependents uint64
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM ticket_offers WHERE show_id = ?", id).Scan(&dependents); err != nil {
		return err
	}
	if dependents > 0 {
		return ErrConflict
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM shows WHERE id = ?", id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// This file defines the TicketOffer model and repository.  Offers are
// derived-scope entities two hops from their tenant: offer -> show ->
// venue.tenant_id.  All capacity-relevant writes go through the Tx methods
// so they participate in the allocation coordinator's transaction.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/stagedoor/boxoffice/internal/scope"
)

// Offer represents a priced allocation of tickets carved out of a show's
// printed capacity.  The owning show is set at creation and an offer is
// never reassigned to a different show.
type Offer struct {
	ID          uint64 // ticket_offers.id
	ShowID      uint64 // ticket_offers.show_id (required owner, immutable)
	Name        string // ticket_offers.name
	PriceCents  uint32 // ticket_offers.price_cents (positive)
	TicketCount uint32 // ticket_offers.ticket_count (positive)
	CreatedAt   string // ticket_offers.created_at
	UpdatedAt   string // ticket_offers.updated_at
}

// ErrOfferNotFound is returned when an offer does not exist or its show's
// venue belongs to a different tenant.
var ErrOfferNotFound = errors.New("ticket offer not found")

// OfferRepo manages persistence for ticket offers.
type OfferRepo struct {
	db     *sql.DB
	scopes *scope.Registry
}

// NewOfferRepo constructs an OfferRepo.
func NewOfferRepo(db *sql.DB, scopes *scope.Registry) *OfferRepo {
	return &OfferRepo{db: db, scopes: scopes}
}

// GetByID fetches an offer visible to the current tenant context.  The
// predicate traverses the full ownership chain offer -> show -> venue.
func (r *OfferRepo) GetByID(ctx context.Context, id uint64) (*Offer, error) {
	cl, err := r.scopes.Clause(ctx, scope.KindOffer)
	if err != nil {
		return nil, err
	}
	q := "SELECT o.id, o.show_id, o.name, o.price_cents, o.ticket_count, o.created_at, o.updated_at FROM ticket_offers o " +
		cl.Join + " WHERE o.id = ?" + cl.And()
	args := append([]interface{}{id}, cl.Args...)
	var o Offer
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&o.ID, &o.ShowID, &o.Name, &o.PriceCents, &o.TicketCount, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOfferNotFound
		}
		return nil, err
	}
	return &o, nil
}

// ListByShow returns all offers of a show visible to the current tenant
// context, ordered by id.
func (r *OfferRepo) ListByShow(ctx context.Context, showID uint64) ([]Offer, error) {
	cl, err := r.scopes.Clause(ctx, scope.KindOffer)
	if err != nil {
		return nil, err
	}
	q := "SELECT o.id, o.show_id, o.name, o.price_cents, o.ticket_count, o.created_at, o.updated_at FROM ticket_offers o " +
		cl.Join + " WHERE o.show_id = ?" + cl.And() + " ORDER BY o.id"
	args := append([]interface{}{showID}, cl.Args...)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Offer
	for rows.Next() {
		var o Offer
		if err := rows.Scan(&o.ID, &o.ShowID, &o.Name, &o.PriceCents, &o.TicketCount, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetForAllocationTx reads and locks an offer inside the coordinator's
// transaction.  Updates always lock the offer row first and the owning
// show row second; creates only lock the show row.  The ordering is
// consistent across all writers, so allocation transactions cannot
// deadlock among themselves.
func (r *OfferRepo) GetForAllocationTx(ctx context.Context, tx *sql.Tx, id uint64) (*Offer, error) {
	const q = "SELECT id, show_id, name, price_cents, ticket_count FROM ticket_offers WHERE id = ? FOR UPDATE"
	var o Offer
	if err := tx.QueryRowContext(ctx, q, id).Scan(&o.ID, &o.ShowID, &o.Name, &o.PriceCents, &o.TicketCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOfferNotFound
		}
		return nil, err
	}
	return &o, nil
}

// SumForShowTx returns the total ticket count currently allocated to a
// show's offers, excluding excludeID when non-zero (used on update so an
// offer's own allocation is not double-counted).  Must run inside the
// coordinator's transaction, after the show row has been locked.
func (r *OfferRepo) SumForShowTx(ctx context.Context, tx *sql.Tx, showID, excludeID uint64) (uint32, error) {
	q := "SELECT COALESCE(SUM(ticket_count), 0) FROM ticket_offers WHERE show_id = ?"
	args := []interface{}{showID}
	if excludeID != 0 {
		q += " AND id <> ?"
		args = append(args, excludeID)
	}
	var sum uint32
	if err := tx.QueryRowContext(ctx, q, args...).Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}

// CreateTx inserts a new offer within the coordinator's transaction and
// populates the generated ID and DB-default fields on the given struct.
func (r *OfferRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *Offer) error {
	const qInsert = "INSERT INTO ticket_offers (show_id, name, price_cents, ticket_count) VALUES (?, ?, ?, ?)"
	res, err := tx.ExecContext(ctx, qInsert, o.ShowID, o.Name, o.PriceCents, o.TicketCount)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	const sel = "SELECT show_id, name, price_cents, ticket_count, created_at, updated_at FROM ticket_offers WHERE id = ?"
	return tx.QueryRowContext(ctx, sel, o.ID).Scan(&o.ShowID, &o.Name, &o.PriceCents, &o.TicketCount, &o.CreatedAt, &o.UpdatedAt)
}

// UpdateTx rewrites an offer's mutable fields within the coordinator's
// transaction.  show_id is deliberately not part of the statement: an
// offer can never move to a different show.
func (r *OfferRepo) UpdateTx(ctx context.Context, tx *sql.Tx, o *Offer) error {
	const qUpdate = "UPDATE ticket_offers SET name = ?, price_cents = ?, ticket_count = ? WHERE id = ?"
	if _, err := tx.ExecContext(ctx, qUpdate, o.Name, o.PriceCents, o.TicketCount, o.ID); err != nil {
		return err
	}
	const sel = "SELECT show_id, name, price_cents, ticket_count, created_at, updated_at FROM ticket_offers WHERE id = ?"
	return tx.QueryRowContext(ctx, sel, o.ID).Scan(&o.ShowID, &o.Name, &o.PriceCents, &o.TicketCount, &o.CreatedAt, &o.UpdatedAt)
}

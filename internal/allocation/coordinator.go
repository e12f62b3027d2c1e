// Package allocation enforces the capacity invariant: the sum of ticket
// counts across a show's offers never exceeds the show's printed ticket
// count, including under concurrent offer creation and updates.  Every
// allocation attempt is one transaction: lock the show row, sum the
// sibling offers, validate, write, commit.  The row lock serializes
// attempts per show; storage-level conflicts are retried a bounded number
// of times with the whole read-validate-write sequence repeated.
package allocation

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/stagedoor/boxoffice/internal/repository"
	"github.com/stagedoor/boxoffice/internal/scope"
	"github.com/stagedoor/boxoffice/internal/tenant"
)

// maxAttempts bounds the internal retry loop for deadlock and lock-wait
// conflicts.  The first attempt counts, so at most two retries follow.
const maxAttempts = 3

// Capacity is the read-only snapshot returned by GetCapacity.  It is a
// display value: the transactional check inside CreateOffer/UpdateOffer is
// the only authority on whether an allocation fits.
type Capacity struct {
	ShowID    uint64 `json:"show_id"`
	Total     uint32 `json:"total"`
	Allocated uint32 `json:"allocated"`
	Available uint32 `json:"available"`
}

// Coordinator runs capacity-checked offer writes.  It deliberately reaches
// the shows table through an explicit join rather than the scope registry:
// the lock query must name the venue row to verify tenancy inside the same
// transaction, and the coordinator re-applies the tenant check manually on
// the locked row (the escape-hatch discipline).
type Coordinator struct {
	db     *sql.DB
	shows  *repository.ShowRepo
	offers *repository.OfferRepo
	scopes *scope.Registry
}

// NewCoordinator constructs a Coordinator.  All dependencies must share
// the same underlying database.
func NewCoordinator(db *sql.DB, shows *repository.ShowRepo, offers *repository.OfferRepo, scopes *scope.Registry) *Coordinator {
	return &Coordinator{db: db, shows: shows, offers: offers, scopes: scopes}
}

// CreateOffer carves a new offer out of a show's capacity.  Returns
// repository.ErrShowNotFound when the show is absent or invisible to the
// current tenant, *CapacityError when the request does not fit, and
// ErrTxConflict after retry exhaustion.
func (c *Coordinator) CreateOffer(ctx context.Context, showID uint64, name string, priceCents, ticketCount uint32) (*repository.Offer, error) {
	if strings.TrimSpace(name) == "" || priceCents == 0 || ticketCount == 0 {
		return nil, ErrInvalidOffer
	}
	if !tenant.Resolved(ctx) {
		return nil, tenant.ErrTenantRequired
	}
	var out *repository.Offer
	err := c.run(ctx, func(tx *sql.Tx) error {
		show, err := c.shows.LockForAllocationTx(ctx, tx, showID)
		if err != nil {
			return err
		}
		if !visible(ctx, show.TenantID) {
			return repository.ErrShowNotFound
		}
		allocated, err := c.offers.SumForShowTx(ctx, tx, showID, 0)
		if err != nil {
			return err
		}
		if ticketCount > show.TicketCount-allocated {
			return &CapacityError{ShowID: showID, Total: show.TicketCount, Allocated: allocated, Requested: ticketCount}
		}
		o := &repository.Offer{ShowID: showID, Name: name, PriceCents: priceCents, TicketCount: ticketCount}
		if err := c.offers.CreateTx(ctx, tx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateOffer rewrites an offer's name, price and ticket count.  The
// offer's own prior allocation is excluded from the capacity sum, so an
// update succeeds whenever newCount <= available + oldCount.  A decrease
// can never violate the invariant and skips the capacity check.  The
// offer's show assignment is immutable.
func (c *Coordinator) UpdateOffer(ctx context.Context, offerID uint64, name string, priceCents, ticketCount uint32) (*repository.Offer, error) {
	if strings.TrimSpace(name) == "" || priceCents == 0 || ticketCount == 0 {
		return nil, ErrInvalidOffer
	}
	if !tenant.Resolved(ctx) {
		return nil, tenant.ErrTenantRequired
	}
	var out *repository.Offer
	err := c.run(ctx, func(tx *sql.Tx) error {
		current, err := c.offers.GetForAllocationTx(ctx, tx, offerID)
		if err != nil {
			return err
		}
		show, err := c.shows.LockForAllocationTx(ctx, tx, current.ShowID)
		if err != nil {
			return err
		}
		if !visible(ctx, show.TenantID) {
			// Same sentinel as a missing offer: a foreign tenant must
			// not learn that the id exists.
			return repository.ErrOfferNotFound
		}
		if ticketCount > current.TicketCount {
			allocated, err := c.offers.SumForShowTx(ctx, tx, current.ShowID, offerID)
			if err != nil {
				return err
			}
			if ticketCount > show.TicketCount-allocated {
				return &CapacityError{ShowID: current.ShowID, Total: show.TicketCount, Allocated: allocated, Requested: ticketCount}
			}
		}
		current.Name = name
		current.PriceCents = priceCents
		current.TicketCount = ticketCount
		if err := c.offers.UpdateTx(ctx, tx, current); err != nil {
			return err
		}
		out = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetCapacity returns a non-transactional capacity snapshot for display.
// The read goes through the scope registry like any other scoped query.
func (c *Coordinator) GetCapacity(ctx context.Context, showID uint64) (*Capacity, error) {
	cl, err := c.scopes.Clause(ctx, scope.KindShow)
	if err != nil {
		return nil, err
	}
	q := "SELECT s.ticket_count, COALESCE(SUM(o.ticket_count), 0) FROM shows s " + cl.Join +
		" LEFT JOIN ticket_offers o ON o.show_id = s.id WHERE s.id = ?" + cl.And() +
		" GROUP BY s.ticket_count"
	args := append([]interface{}{showID}, cl.Args...)
	var total, allocated uint32
	if err := c.db.QueryRowContext(ctx, q, args...).Scan(&total, &allocated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrShowNotFound
		}
		return nil, err
	}
	return &Capacity{ShowID: showID, Total: total, Allocated: allocated, Available: total - allocated}, nil
}

// run executes fn inside a transaction, retrying the whole sequence on
// storage-level serialization conflicts.  Any error from fn rolls the
// transaction back, so a cancelled unit of work leaves no partial write.
// Failure to begin a transaction is infrastructure trouble and is never
// retried here.
func (c *Coordinator) run(ctx context.Context, fn func(tx *sql.Tx) error) error {
	var last error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			if retryable(err) {
				last = err
				continue
			}
			return err
		}
		if err := tx.Commit(); err != nil {
			if retryable(err) {
				last = err
				continue
			}
			return err
		}
		return nil
	}
	return errors.Join(ErrTxConflict, last)
}

// visible reports whether a row owned by the given tenant may be acted on
// under the current context: the administrative mode sees everything, a
// bound tenant only its own rows.
func visible(ctx context.Context, owner uint64) bool {
	if tenant.IsAdministrative(ctx) {
		return true
	}
	id, ok := tenant.ID(ctx)
	return ok && id == owner
}

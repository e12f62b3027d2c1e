package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/stagedoor/boxoffice/internal/allocation"
	q "github.com/stagedoor/boxoffice/internal/queue"
	"github.com/stagedoor/boxoffice/internal/repository"
	queue_publisher "github.com/stagedoor/boxoffice/internal/service"
	"github.com/stagedoor/boxoffice/internal/tenant"
)

// OfferHandler exposes capacity-checked ticket offer writes plus the
// read-only capacity snapshot.  All writes go through the allocation
// coordinator; this layer never touches capacity arithmetic itself.
type OfferHandler struct {
	Coord  *allocation.Coordinator
	Offers *repository.OfferRepo
}

// NewOfferHandler constructs an OfferHandler.
func NewOfferHandler(coord *allocation.Coordinator, offers *repository.OfferRepo) *OfferHandler {
	if coord == nil || offers == nil {
		panic("nil dependency passed to NewOfferHandler")
	}
	return &OfferHandler{Coord: coord, Offers: offers}
}

type offerReq struct {
	Name        string `json:"name"`
	PriceCents  uint32 `json:"price_cents"`
	TicketCount uint32 `json:"ticket_count"`
}

type offerResp struct {
	ID          uint64 `json:"id"`
	ShowID      uint64 `json:"show_id"`
	Name        string `json:"name"`
	PriceCents  uint32 `json:"price_cents"`
	TicketCount uint32 `json:"ticket_count"`
}

func toOfferResp(o *repository.Offer) offerResp {
	return offerResp{ID: o.ID, ShowID: o.ShowID, Name: o.Name, PriceCents: o.PriceCents, TicketCount: o.TicketCount}
}

// Create handles POST /v1/shows/:id/offers.
func (h *OfferHandler) Create(c echo.Context) error {
	showID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var req offerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx := c.Request().Context()
	o, err := h.Coord.CreateOffer(ctx, showID, req.Name, req.PriceCents, req.TicketCount)
	if err != nil {
		return respondError(c, err)
	}
	h.publishAllocated(ctx, o, "create")
	return c.JSON(http.StatusCreated, toOfferResp(o))
}

// Update handles PATCH /v1/offers/:id.  The offer's show assignment is
// immutable; only name, price and ticket count change.
func (h *OfferHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var req offerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx := c.Request().Context()
	o, err := h.Coord.UpdateOffer(ctx, id, req.Name, req.PriceCents, req.TicketCount)
	if err != nil {
		return respondError(c, err)
	}
	h.publishAllocated(ctx, o, "update")
	return c.JSON(http.StatusOK, toOfferResp(o))
}

// Get handles GET /v1/offers/:id.
func (h *OfferHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	o, err := h.Offers.GetByID(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toOfferResp(o))
}

// ListByShow handles GET /v1/shows/:id/offers.
func (h *OfferHandler) ListByShow(c echo.Context) error {
	showID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	offers, err := h.Offers.ListByShow(c.Request().Context(), showID)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]offerResp, 0, len(offers))
	for i := range offers {
		out = append(out, toOfferResp(&offers[i]))
	}
	return c.JSON(http.StatusOK, out)
}

// Capacity handles GET /v1/shows/:id/capacity.
func (h *OfferHandler) Capacity(c echo.Context) error {
	showID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	cap, err := h.Coord.GetCapacity(c.Request().Context(), showID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cap)
}

// publishAllocated emits an offer.allocated event in the background.  The
// allocation is already committed, so a publish failure only costs the
// downstream notification and is logged inside the publisher.
func (h *OfferHandler) publishAllocated(reqCtx context.Context, o *repository.Offer, op string) {
	tid, _ := tenant.ID(reqCtx)
	// Detach from the request context but keep the tenant scope so the
	// capacity snapshot query stays scoped.
	bg := tenant.WithTenant(context.Background(), tid)
	if tenant.IsAdministrative(reqCtx) {
		bg = tenant.WithAdministrative(context.Background())
	}
	offer := *o
	go func() {
		ctx, cancel := context.WithTimeout(bg, 10*time.Second)
		defer cancel()
		ev := q.OfferAllocatedEvent{
			EventID:     uuid.NewString(),
			TenantID:    tid,
			ShowID:      offer.ShowID,
			OfferID:     offer.ID,
			OfferName:   offer.Name,
			PriceCents:  offer.PriceCents,
			TicketCount: offer.TicketCount,
			Operation:   op,
			AllocatedAt: time.Now().UTC().Format(time.RFC3339),
		}
		if cap, err := h.Coord.GetCapacity(ctx, offer.ShowID); err == nil {
			ev.Total = cap.Total
			ev.Allocated = cap.Allocated
			ev.Available = cap.Available
		}
		_ = queue_publisher.PublishOfferAllocated(ctx, ev)
	}()
}

package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/stagedoor/boxoffice/internal/repository"
)

// ShowHandler exposes show scheduling.  Shows are derived-scope: creating
// one only works against a venue and act the caller's tenant can see, and
// reads traverse the venue join for the tenant predicate.
type ShowHandler struct {
	Shows *repository.ShowRepo
}

// NewShowHandler constructs a ShowHandler.
func NewShowHandler(shows *repository.ShowRepo) *ShowHandler {
	if shows == nil {
		panic("nil repository passed to NewShowHandler")
	}
	return &ShowHandler{Shows: shows}
}

type showReq struct {
	VenueID     uint64 `json:"venue_id"`
	ActID       uint64 `json:"act_id"`
	TicketCount uint32 `json:"ticket_count"`
	StartsAt    string `json:"starts_at"` // RFC3339
}

type showResp struct {
	ID          uint64 `json:"id"`
	VenueID     uint64 `json:"venue_id"`
	ActID       uint64 `json:"act_id"`
	TicketCount uint32 `json:"ticket_count"`
	StartsAt    string `json:"starts_at"`
}

func toShowResp(s *repository.Show) showResp {
	return showResp{ID: s.ID, VenueID: s.VenueID, ActID: s.ActID, TicketCount: s.TicketCount, StartsAt: s.StartsAt}
}

// Create handles POST /v1/shows.  ticket_count is the printed capacity and
// is immutable after creation.
func (h *ShowHandler) Create(c echo.Context) error {
	var req showReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.VenueID == 0 || req.ActID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "venue_id and act_id are required"})
	}
	if req.TicketCount == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ticket_count must be positive"})
	}
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC3339"})
	}
	if !startsAt.After(time.Now()) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be in the future"})
	}
	s := &repository.Show{
		VenueID:     req.VenueID,
		ActID:       req.ActID,
		TicketCount: req.TicketCount,
		StartsAt:    repository.DBTime(startsAt),
	}
	if err := h.Shows.Create(c.Request().Context(), s); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toShowResp(s))
}

// Get handles GET /v1/shows/:id.
func (h *ShowHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	s, err := h.Shows.GetByID(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toShowResp(s))
}

// ListByVenue handles GET /v1/venues/:id/shows.
func (h *ShowHandler) ListByVenue(c echo.Context) error {
	venueID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	shows, err := h.Shows.ListByVenue(c.Request().Context(), venueID)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]showResp, 0, len(shows))
	for i := range shows {
		out = append(out, toShowResp(&shows[i]))
	}
	return c.JSON(http.StatusOK, out)
}

// Delete handles DELETE /v1/shows/:id.  Shows with live offers are
// protected by ErrConflict.
func (h *ShowHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Shows.Delete(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

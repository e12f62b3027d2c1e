package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/stagedoor/boxoffice/internal/repository"
)

// VenueHandler exposes tenant-scoped CRUD for venues.  No handler here
// touches a tenant id: scoping is applied inside the repository from the
// request context.
type VenueHandler struct {
	Venues *repository.VenueRepo
}

// NewVenueHandler constructs a VenueHandler.
func NewVenueHandler(venues *repository.VenueRepo) *VenueHandler {
	if venues == nil {
		panic("nil repository passed to NewVenueHandler")
	}
	return &VenueHandler{Venues: venues}
}

type venueReq struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type venueResp struct {
	ID      uint64 `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

func toVenueResp(v *repository.Venue) venueResp {
	return venueResp{ID: v.ID, Name: v.Name, Address: v.Address}
}

// Create handles POST /v1/venues.
func (h *VenueHandler) Create(c echo.Context) error {
	var req venueReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	v := &repository.Venue{Name: req.Name, Address: strings.TrimSpace(req.Address)}
	if err := h.Venues.Create(c.Request().Context(), v); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toVenueResp(v))
}

// Get handles GET /v1/venues/:id.
func (h *VenueHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	v, err := h.Venues.GetByID(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toVenueResp(v))
}

// List handles GET /v1/venues.
func (h *VenueHandler) List(c echo.Context) error {
	venues, err := h.Venues.List(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	out := make([]venueResp, 0, len(venues))
	for _, v := range venues {
		out = append(out, toVenueResp(v))
	}
	return c.JSON(http.StatusOK, out)
}

// Update handles PUT /v1/venues/:id.
func (h *VenueHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var req venueReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	v, err := h.Venues.Update(c.Request().Context(), id, req.Name, strings.TrimSpace(req.Address))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toVenueResp(v))
}

// Delete handles DELETE /v1/venues/:id.  Venues with scheduled shows are
// protected by ErrConflict.
func (h *VenueHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Venues.Delete(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

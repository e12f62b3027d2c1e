package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/stagedoor/boxoffice/internal/repository"
)

// AdminHandler serves the platform-operator surface.  Its routes are the
// only ones mounted behind the administrative context, so repository calls
// made here see rows across all tenants.
type AdminHandler struct {
	Tenants *repository.TenantRepo
	Venues  *repository.VenueRepo
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(tenants *repository.TenantRepo, venues *repository.VenueRepo) *AdminHandler {
	return &AdminHandler{Tenants: tenants, Venues: venues}
}

type tenantReq struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type tenantResp struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	IsActive bool   `json:"is_active"`
}

func toTenantResp(t *repository.Tenant) tenantResp {
	return tenantResp{ID: t.ID, Name: t.Name, Slug: t.Slug, IsActive: t.IsActive}
}

// CreateTenant handles POST /v1/admin/tenants.
func (h *AdminHandler) CreateTenant(c echo.Context) error {
	var req tenantReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Slug = strings.ToLower(strings.TrimSpace(req.Slug))
	if req.Name == "" || req.Slug == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and slug are required"})
	}
	t := &repository.Tenant{Name: req.Name, Slug: req.Slug}
	if err := h.Tenants.Create(c.Request().Context(), t); err != nil {
		if strings.Contains(err.Error(), "Duplicate entry") {
			return c.JSON(http.StatusConflict, echo.Map{"error": "slug already taken"})
		}
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toTenantResp(t))
}

// GetTenant handles GET /v1/admin/tenants/:id.
func (h *AdminHandler) GetTenant(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	t, err := h.Tenants.GetByID(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toTenantResp(t))
}

// ListTenants handles GET /v1/admin/tenants.
func (h *AdminHandler) ListTenants(c echo.Context) error {
	tenants, err := h.Tenants.List(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	out := make([]tenantResp, 0, len(tenants))
	for _, t := range tenants {
		out = append(out, toTenantResp(t))
	}
	return c.JSON(http.StatusOK, out)
}

type adminVenueResp struct {
	ID       uint64 `json:"id"`
	TenantID uint64 `json:"tenant_id"`
	Name     string `json:"name"`
	Address  string `json:"address"`
}

// ListVenues handles GET /v1/admin/venues.  Under the administrative
// context the scope clause is empty, so the same repository call that a
// tenant uses returns rows across every tenant here.  The tenant id is
// exposed in the response because an operator needs it.
func (h *AdminHandler) ListVenues(c echo.Context) error {
	venues, err := h.Venues.List(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	out := make([]adminVenueResp, 0, len(venues))
	for _, v := range venues {
		out = append(out, adminVenueResp{ID: v.ID, TenantID: v.TenantID, Name: v.Name, Address: v.Address})
	}
	return c.JSON(http.StatusOK, out)
}

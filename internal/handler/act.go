package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/stagedoor/boxoffice/internal/repository"
)

// ActHandler exposes tenant-scoped CRUD for acts.
type ActHandler struct {
	Acts *repository.ActRepo
}

// NewActHandler constructs an ActHandler.
func NewActHandler(acts *repository.ActRepo) *ActHandler {
	if acts == nil {
		panic("nil repository passed to NewActHandler")
	}
	return &ActHandler{Acts: acts}
}

type actReq struct {
	Name  string `json:"name"`
	Genre string `json:"genre"`
}

type actResp struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Genre string `json:"genre"`
}

func toActResp(a *repository.Act) actResp {
	return actResp{ID: a.ID, Name: a.Name, Genre: a.Genre}
}

// Create handles POST /v1/acts.
func (h *ActHandler) Create(c echo.Context) error {
	var req actReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	a := &repository.Act{Name: req.Name, Genre: strings.TrimSpace(req.Genre)}
	if err := h.Acts.Create(c.Request().Context(), a); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toActResp(a))
}

// Get handles GET /v1/acts/:id.
func (h *ActHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	a, err := h.Acts.GetByID(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toActResp(a))
}

// List handles GET /v1/acts.
func (h *ActHandler) List(c echo.Context) error {
	acts, err := h.Acts.List(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	out := make([]actResp, 0, len(acts))
	for _, a := range acts {
		out = append(out, toActResp(a))
	}
	return c.JSON(http.StatusOK, out)
}

// Update handles PUT /v1/acts/:id.
func (h *ActHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var req actReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	a, err := h.Acts.Update(c.Request().Context(), id, req.Name, strings.TrimSpace(req.Genre))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toActResp(a))
}

// Delete handles DELETE /v1/acts/:id.
func (h *ActHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Acts.Delete(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

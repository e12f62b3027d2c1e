package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/stagedoor/boxoffice/internal/allocation"
	"github.com/stagedoor/boxoffice/internal/repository"
	"github.com/stagedoor/boxoffice/internal/tenant"
)

// pathID parses the named path parameter as a positive id.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

// respondError maps the domain error taxonomy onto HTTP responses.  The
// ordering matters: a capacity rejection carries its decision inputs in
// the body so clients can display total/allocated/requested.
func respondError(c echo.Context, err error) error {
	var capErr *allocation.CapacityError
	switch {
	case errors.As(err, &capErr):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     "capacity exceeded",
			"show_id":   capErr.ShowID,
			"total":     capErr.Total,
			"allocated": capErr.Allocated,
			"requested": capErr.Requested,
			"available": capErr.Available(),
		})
	case errors.Is(err, allocation.ErrTxConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "allocation conflict, please retry"})
	case errors.Is(err, allocation.ErrInvalidOffer):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, tenant.ErrTenantRequired):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "tenant context required"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "dependent records exist"})
	case errors.Is(err, repository.ErrTenantNotFound),
		errors.Is(err, repository.ErrVenueNotFound),
		errors.Is(err, repository.ErrActNotFound),
		errors.Is(err, repository.ErrShowNotFound),
		errors.Is(err, repository.ErrOfferNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
}

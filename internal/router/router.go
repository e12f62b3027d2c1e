// Package router wires HTTP routes to handlers and middleware.  Route
// grouping is where the tenancy model is enforced: every protected route
// passes JWTAuth (which resolves the tenant context once), and only the
// /v1/admin group layers the administrative escape hatch on top.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/stagedoor/boxoffice/internal/config"
	"github.com/stagedoor/boxoffice/internal/handler"
	"github.com/stagedoor/boxoffice/internal/middleware"
)

// Handlers bundles the handler set the router mounts.
type Handlers struct {
	Auth   *handler.AuthHandler
	Venues *handler.VenueHandler
	Acts   *handler.ActHandler
	Shows  *handler.ShowHandler
	Offers *handler.OfferHandler
	Admin  *handler.AdminHandler
}

// New builds the Echo instance with all routes registered.
func New(cfg config.Config, h Handlers, rdb *redis.Client) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	rl := middleware.NewRateLimit(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb)

	e.GET("/health", handler.Health)

	auth := e.Group("/v1/auth", rl)
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)

	// Tenant-facing routes.  JWTAuth binds the tenant context from the
	// token; scoped repositories do the rest.
	v1 := e.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	staff := middleware.RequireRole("STAFF", "MANAGER")
	manager := middleware.RequireRole("MANAGER")

	v1.POST("/venues", h.Venues.Create, staff)
	v1.GET("/venues", h.Venues.List, staff)
	v1.GET("/venues/:id", h.Venues.Get, staff)
	v1.PUT("/venues/:id", h.Venues.Update, staff)
	v1.DELETE("/venues/:id", h.Venues.Delete, manager)
	v1.GET("/venues/:id/shows", h.Shows.ListByVenue, staff)

	v1.POST("/acts", h.Acts.Create, staff)
	v1.GET("/acts", h.Acts.List, staff)
	v1.GET("/acts/:id", h.Acts.Get, staff)
	v1.PUT("/acts/:id", h.Acts.Update, staff)
	v1.DELETE("/acts/:id", h.Acts.Delete, manager)

	v1.POST("/shows", h.Shows.Create, staff)
	v1.GET("/shows/:id", h.Shows.Get, staff)
	v1.DELETE("/shows/:id", h.Shows.Delete, manager)
	v1.GET("/shows/:id/capacity", h.Offers.Capacity, staff, rl, cache)
	v1.GET("/shows/:id/offers", h.Offers.ListByShow, staff)
	v1.POST("/shows/:id/offers", h.Offers.Create, staff)

	v1.GET("/offers/:id", h.Offers.Get, staff)
	v1.PATCH("/offers/:id", h.Offers.Update, staff)

	// Platform-operator routes.  Administrative() is registered nowhere
	// else, so the cross-tenant mode is unreachable from tenant routes.
	admin := e.Group("/v1/admin",
		middleware.JWTAuth(cfg.JWTSecret),
		middleware.RequireRole("PLATFORM_ADMIN"),
		middleware.Administrative(),
	)
	admin.POST("/tenants", h.Admin.CreateTenant)
	admin.GET("/tenants", h.Admin.ListTenants)
	admin.GET("/tenants/:id", h.Admin.GetTenant)
	admin.GET("/venues", h.Admin.ListVenues)

	return e
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/stagedoor/boxoffice/internal/config"
	"github.com/stagedoor/boxoffice/internal/repository"
	"github.com/stagedoor/boxoffice/internal/tenant"
	"github.com/stagedoor/boxoffice/internal/utils"
)

// AuthHandler implements the thin authentication surface whose only job,
// from the core's perspective, is producing access tokens that carry the
// tenant_id claim the middleware resolves the tenant context from.
type AuthHandler struct {
	Cfg     config.Config
	Users   *repository.UserRepo
	Tenants *repository.TenantRepo
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TenantRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tenants: t}
}

type registerReq struct {
	TenantSlug string `json:"tenant_slug"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResp struct {
	UserID   uint64    `json:"user_id"`
	TenantID uint64    `json:"tenant_id,omitempty"`
	Role     string    `json:"role"`
	Token    string    `json:"token"`
	Expires  time.Time `json:"expires"`
}

// Register creates a staff account under the tenant named by slug and
// returns a token immediately.  The tenant context for the insert comes
// from the resolved tenant row, not from any caller-supplied id.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.TenantSlug == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant_slug/email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Tenants.GetBySlug(ctx, req.TenantSlug)
	if err != nil {
		if errors.Is(err, repository.ErrTenantNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hashing failed"})
	}

	uid, err := h.Users.Create(tenant.WithTenant(ctx, t.ID), req.Email, hash, "STAFF")
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	tok, err := utils.NewAccessToken(h.Cfg.JWTSecret, uid, t.ID, "STAFF", h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token issue failed"})
	}
	return c.JSON(http.StatusCreated, authResp{UserID: uid, TenantID: t.ID, Role: "STAFF", Token: tok.Token, Expires: tok.Exp})
}

// Login verifies credentials and issues a token.  The tenant_id claim is
// copied from the user's row; platform admins have none and therefore get
// a token that resolves to no tenant context.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmailForLogin(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	var tid uint64
	if u.TenantID != nil {
		tid = *u.TenantID
	}
	tok, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, tid, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token issue failed"})
	}
	return c.JSON(http.StatusOK, authResp{UserID: u.ID, TenantID: tid, Role: u.Role, Token: tok.Token, Expires: tok.Exp})
}

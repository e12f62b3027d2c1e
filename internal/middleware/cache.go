package middleware

import (
	"bytes"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/stagedoor/boxoffice/internal/config"
	"github.com/stagedoor/boxoffice/internal/tenant"
)

// cachedResponse is the value stored in Redis for a cache entry.
type cachedResponse struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

// bodyCapture buffers the response body while forwarding it to the client.
type bodyCapture struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (w *bodyCapture) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *bodyCapture) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// cacheKey hashes route + query into a namespaced key.  The resolved
// tenant id is part of the key: two tenants asking the same route must
// never share a cache entry, and the administrative context gets its own
// namespace.
func cacheKey(cfg config.CacheConfig, c echo.Context) string {
	scopePart := "anon"
	ctx := c.Request().Context()
	if id, ok := tenant.ID(ctx); ok {
		scopePart = fmt.Sprintf("t%d", id)
	} else if tenant.IsAdministrative(ctx) {
		scopePart = "admin"
	}
	sum := sha1.Sum([]byte(c.Path() + "?" + c.Request().URL.RawQuery))
	return fmt.Sprintf("%s:%s:%x", cfg.Prefix, scopePart, sum[:])
}

// NewResponseCache caches successful GET responses in Redis for cfg.TTL.
// Only 200 responses are stored.  The cache is advisory: any Redis error
// falls through to the live handler.
func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}
			key := cacheKey(cfg, c)
			ctx := c.Request().Context()
			if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
				var cr cachedResponse
				if json.Unmarshal(raw, &cr) == nil {
					return c.JSONBlob(cr.Status, cr.Body)
				}
			}

			w := &bodyCapture{ResponseWriter: c.Response().Writer, status: http.StatusOK}
			c.Response().Writer = w
			if err := next(c); err != nil {
				return err
			}
			if w.status == http.StatusOK {
				if raw, err := json.Marshal(cachedResponse{Status: w.status, Body: w.buf.Bytes()}); err == nil {
					_ = rdb.Set(ctx, key, raw, ttl).Err()
				}
			}
			return nil
		}
	}
}

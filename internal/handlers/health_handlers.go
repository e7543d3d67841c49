package handlers

import (
	"context"
	"net/http"
	"time"

	"provdesk/internal/caching"

	"github.com/labstack/echo/v4"
)

// HealthHandlers reports liveness and readiness. The backend probe is
// optional: the local adapter has nothing to ping.
type HealthHandlers struct {
	cacheSvc    caching.CacheService
	backendName string
	backendPing func(context.Context) error
}

func NewHealthHandlers(cacheSvc caching.CacheService, backendName string, backendPing func(context.Context) error) *HealthHandlers {
	return &HealthHandlers{
		cacheSvc:    cacheSvc,
		backendName: backendName,
		backendPing: backendPing,
	}
}

func (h *HealthHandlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "backend": h.backendName})
}

func (h *HealthHandlers) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	checks := echo.Map{"backend": "ok", "cache": "ok"}
	healthy := true

	if h.backendPing != nil {
		if err := h.backendPing(ctx); err != nil {
			checks["backend"] = err.Error()
			healthy = false
		}
	}
	if err := h.cacheSvc.Ping(ctx); err != nil {
		checks["cache"] = err.Error()
		healthy = false
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, echo.Map{"checks": checks, "backend": h.backendName})
}

package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthHandler reports liveness for load balancers and monitoring.
type HealthHandler struct {
	Version string
	Started time.Time
}

func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{Version: version, Started: time.Now()}
}

func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.Started).Round(time.Second).Seconds(),
		"version":   h.Version,
	})
}

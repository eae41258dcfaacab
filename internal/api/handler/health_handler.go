package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/parcelpoint/parcel-tracking/internal/api/metrics"
	"github.com/parcelpoint/parcel-tracking/internal/core/domain"
	"github.com/parcelpoint/parcel-tracking/internal/core/ports"
)

// HealthHandler serves the liveness probe and the dependency report.
type HealthHandler struct {
	health ports.HealthService
}

func NewHealthHandler(health ports.HealthService) *HealthHandler {
	return &HealthHandler{health: health}
}

// Liveness returns 200 as long as the process serves requests.
func (h *HealthHandler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Health reports each dependency. It always answers 200; the body carries
// the verdict.
//
// @Summary      Dependency health
// @Tags         health
// @Produce      json
// @Success      200  {object}  domain.HealthReport
// @Router       /health [get]
func (h *HealthHandler) Health(c echo.Context) error {
	report := h.health.CheckHealth(c.Request().Context())
	recordProbeFailures(report)
	return c.JSON(http.StatusOK, report)
}

func recordProbeFailures(r domain.HealthReport) {
	for dep, ok := range map[string]bool{
		"database": r.Database,
		"cache":    r.Cache,
		"rabbitmq": r.RabbitMQ,
	} {
		if !ok {
			metrics.HealthProbeFailuresTotal.WithLabelValues(dep).Inc()
		}
	}
}

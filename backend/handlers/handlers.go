package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"cwatch-dashboard/backend/errors"
	"cwatch-dashboard/backend/models"
	"cwatch-dashboard/backend/services"
	"cwatch-dashboard/backend/system"
)

// Upstream is the on-demand part of the CWatch API that the gateway passes
// through without going via the aggregator.
type Upstream interface {
	RecentLogs(ctx context.Context, limit int) ([]models.RecentLog, error)
	VerifiedIPs(ctx context.Context, page int) (models.IPPage, error)
	AllIPs(ctx context.Context, status string, page int) (models.IPPage, error)
}

type Handler struct {
	Aggregator *services.Aggregator
	Upstream   Upstream
	Settings   *services.SettingsService
	History    *services.RefreshHistory
	Events     *services.EventLog
	Clock      system.Clock
	SysInfo    *services.SysInfoService
}

func NewHandler(agg *services.Aggregator, upstream Upstream, settings *services.SettingsService,
	history *services.RefreshHistory, events *services.EventLog, clock system.Clock) *Handler {
	if clock == nil {
		clock = system.NewRealClock()
	}
	return &Handler{
		Aggregator: agg,
		Upstream:   upstream,
		Settings:   settings,
		History:    history,
		Events:     events,
		Clock:      clock,
		SysInfo:    services.NewSysInfoService(clock),
	}
}

// errorJSON answers {"error": ...} with the status matching err's kind.
func errorJSON(c *fiber.Ctx, err error) error {
	status := errors.GetKind(err).HTTPStatus()
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// Healthz reports liveness of the gateway itself, not of the CWatch API.
func (h *Handler) Healthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

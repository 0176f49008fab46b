package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cwatch-dashboard/backend/services"
)

// NewApp builds the Fiber app with every gateway route. metrics may be nil.
// Request logs go to logOutput when it is non-nil.
func NewApp(h *Handler, metrics *services.Metrics, logOutput io.Writer) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "CWatch Dashboard",
		DisableStartupMessage: true,
		UnescapePath:          true,
		ReadTimeout:           30 * time.Second,
		// SSE responses stay open; no write timeout.
	})

	if logOutput != nil {
		app.Use(logger.New(logger.Config{
			Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} ${path}\n",
			TimeFormat: "2006-01-02 15:04:05",
			Output:     logOutput,
		}))
	}
	app.Use(cors.New())

	app.Get("/healthz", h.Healthz)
	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")

	view := api.Group("/view")
	view.Get("/state", h.GetViewState)
	view.Get("/traffic", h.GetTrafficSeries)
	view.Get("/stream", h.StreamViewState)
	view.Post("/refresh", h.Refresh)
	view.Post("/block/:ip", h.BlockIP)
	view.Post("/unblock/:ip", h.UnblockIP)
	view.Delete("/ip/:ip", h.MarkSafe)
	view.Get("/history", h.GetRefreshHistory)
	view.Get("/history/summary", h.GetRefreshSummary)
	view.Get("/logs", h.GetRecentLogs)
	view.Get("/ips", h.GetIPs)

	api.Get("/status", h.GetStatus)
	api.Get("/events", h.GetEvents)

	api.Get("/settings", h.GetSettings)
	api.Put("/settings", h.UpdateSettings)
	api.Post("/settings/reset", h.ResetSettings)

	app.Get("/", h.Dashboard)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	})

	return app
}

package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// GetRefreshHistory returns recorded refresh cycles
// GET /api/view/history?limit=50&outcome=stale
func (h *Handler) GetRefreshHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	outcome := c.Query("outcome", "")

	if limit < 1 {
		limit = 1
	}
	if limit > 500 {
		limit = 500
	}

	records, err := h.History.Recent(limit, outcome)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"limit":   limit,
		"count":   len(records),
		"records": records,
	})
}

// GetRefreshSummary aggregates refresh outcomes over a range
// GET /api/view/history/summary?range=1h|6h|24h|7d
func (h *Handler) GetRefreshSummary(c *fiber.Ctx) error {
	rangeParam := c.Query("range", "24h")

	now := h.Clock.Now()
	var since time.Time
	switch rangeParam {
	case "1h":
		since = now.Add(-1 * time.Hour)
	case "6h":
		since = now.Add(-6 * time.Hour)
	case "7d":
		since = now.Add(-7 * 24 * time.Hour)
	default:
		rangeParam = "24h"
		since = now.Add(-24 * time.Hour)
	}

	summary, err := h.History.Summary(since)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"range":   rangeParam,
		"summary": summary,
	})
}

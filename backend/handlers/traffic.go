package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"cwatch-dashboard/backend/models"
)

// GetRecentLogs passes the API's raw traffic log through
// GET /api/view/logs?limit=50
func (h *Handler) GetRecentLogs(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 500 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "limit must be between 1 and 500"})
	}

	logs, err := h.Upstream.RecentLogs(c.UserContext(), limit)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{
		"count": len(logs),
		"logs":  logs,
	})
}

// GetIPs lists tracked IPs by status, read straight from the API
// GET /api/view/ips?status=verified&page=1
func (h *Handler) GetIPs(c *fiber.Ctx) error {
	status := c.Query("status", "")
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	var (
		result models.IPPage
		err    error
	)
	switch status {
	case models.StatusVerified:
		result, err = h.Upstream.VerifiedIPs(c.UserContext(), page)
	case "", models.StatusSuspicious, models.StatusBlocked:
		result, err = h.Upstream.AllIPs(c.UserContext(), status, page)
	default:
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "status must be suspicious, blocked or verified"})
	}
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(result)
}

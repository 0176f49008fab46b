package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"cwatch-dashboard/backend/services"
)

// GetSettings - Get the detection settings form
// GET /api/settings
func (h *Handler) GetSettings(c *fiber.Ctx) error {
	settings, err := h.Settings.Get()
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(settings)
}

// UpdateSettings - Validate and store the settings form
// PUT /api/settings
func (h *Handler) UpdateSettings(c *fiber.Ctx) error {
	current, err := h.Settings.Get()
	if err != nil {
		return errorJSON(c, err)
	}

	// Fields missing from the body keep their current values.
	var input struct {
		RequestThreshold      *int    `json:"request_threshold"`
		TimeWindow            *int    `json:"time_window"`
		BlockDuration         *int    `json:"block_duration"`
		RateLimitPerIP        *int    `json:"rate_limit_per_ip"`
		SuspiciousIPThreshold *int    `json:"suspicious_ip_threshold"`
		DDoSProtectionLevel   *string `json:"ddos_protection_level"`
		AutoBlock             *bool   `json:"auto_block"`
		EmailAlerts           *bool   `json:"email_alerts"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input"})
	}

	next := current
	setInt(&next.RequestThreshold, input.RequestThreshold)
	setInt(&next.TimeWindow, input.TimeWindow)
	setInt(&next.BlockDuration, input.BlockDuration)
	setInt(&next.RateLimitPerIP, input.RateLimitPerIP)
	setInt(&next.SuspiciousIPThreshold, input.SuspiciousIPThreshold)
	if input.DDoSProtectionLevel != nil {
		next.DDoSProtectionLevel = *input.DDoSProtectionLevel
	}
	if input.AutoBlock != nil {
		next.AutoBlock = *input.AutoBlock
	}
	if input.EmailAlerts != nil {
		next.EmailAlerts = *input.EmailAlerts
	}

	saved, err := h.Settings.Update(next)
	if err != nil {
		return errorJSON(c, err)
	}
	h.Events.Add(services.EventInfo, "Dashboard settings updated")
	return c.JSON(saved)
}

// ResetSettings - Restore the factory settings
// POST /api/settings/reset
func (h *Handler) ResetSettings(c *fiber.Ctx) error {
	settings, err := h.Settings.Reset()
	if err != nil {
		return errorJSON(c, err)
	}
	h.Events.Add(services.EventInfo, "Dashboard settings reset to defaults")
	return c.JSON(settings)
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

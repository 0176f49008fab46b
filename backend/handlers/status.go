package handlers

import (
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"

	"cwatch-dashboard/backend/models"
	"cwatch-dashboard/backend/services"
)

// GatewayStatus represents the current gateway state
type GatewayStatus struct {
	OS           string                 `json:"os"`
	GoVersion    string                 `json:"go_version"`
	Uptime       string                 `json:"uptime"`
	Phase        models.Phase           `json:"phase"`
	Polling      bool                   `json:"polling"`
	Generation   uint64                 `json:"generation"`
	PollInterval string                 `json:"poll_interval"`
	LastUpdated  string                 `json:"last_updated"`
	Stale        bool                   `json:"stale"`
	LastError    string                 `json:"last_error,omitempty"`
	Process      services.ProcessInfo   `json:"process"`
	Events       []services.SystemEvent `json:"events"`
}

// GetStatus returns the gateway status
// GET /api/status
func (h *Handler) GetStatus(c *fiber.Ctx) error {
	state := h.Aggregator.State()

	lastUpdated := "never"
	if !state.LastUpdated.IsZero() {
		lastUpdated = humanize.RelTime(state.LastUpdated, h.Clock.Now(), "ago", "from now")
	}

	return c.JSON(GatewayStatus{
		OS:           runtime.GOOS,
		GoVersion:    runtime.Version(),
		Uptime:       h.SysInfo.GetUptime(),
		Phase:        state.Phase,
		Polling:      !h.Aggregator.Stopped(),
		Generation:   state.Generation,
		PollInterval: h.Aggregator.Interval().String(),
		LastUpdated:  lastUpdated,
		Stale:        state.Stale,
		LastError:    state.LastError,
		Process:      h.SysInfo.GetProcessInfo(),
		Events:       h.Events.Events(),
	})
}

// GetEvents returns recent events
// GET /api/events
func (h *Handler) GetEvents(c *fiber.Ctx) error {
	return c.JSON(h.Events.Events())
}

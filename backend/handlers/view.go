package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"cwatch-dashboard/backend/errors"
	"cwatch-dashboard/backend/models"
	"cwatch-dashboard/backend/services"
	"cwatch-dashboard/backend/system"
)

// streamHeartbeat keeps idle SSE connections open through proxies.
const streamHeartbeat = 15 * time.Second

// GetViewState returns the committed dashboard state
// GET /api/view/state
func (h *Handler) GetViewState(c *fiber.Ctx) error {
	return c.JSON(h.Aggregator.State())
}

// GetTrafficSeries returns the 24 hourly buckets only
// GET /api/view/traffic
func (h *Handler) GetTrafficSeries(c *fiber.Ctx) error {
	state := h.Aggregator.State()
	peak, _ := services.PeakHour(state.Traffic)
	return c.JSON(fiber.Map{
		"series":       state.Traffic,
		"total":        services.SeriesTotal(state.Traffic),
		"peak":         peak,
		"last_updated": state.LastUpdated,
		"stale":        state.Stale,
	})
}

// Refresh runs one refresh cycle now
// POST /api/view/refresh
func (h *Handler) Refresh(c *fiber.Ctx) error {
	res := h.Aggregator.Refresh(c.UserContext(), services.TriggerManual)
	return c.JSON(fiber.Map{
		"result": res,
		"state":  h.Aggregator.State(),
	})
}

// BlockIP blocks an IP through the CWatch API
// POST /api/view/block/:ip
func (h *Handler) BlockIP(c *fiber.Ctx) error {
	return h.mutation(c, h.Aggregator.Block)
}

// UnblockIP moves an IP back to the suspicious list
// POST /api/view/unblock/:ip
func (h *Handler) UnblockIP(c *fiber.Ctx) error {
	return h.mutation(c, h.Aggregator.Unblock)
}

// MarkSafe marks an IP verified
// DELETE /api/view/ip/:ip
func (h *Handler) MarkSafe(c *fiber.Ctx) error {
	return h.mutation(c, h.Aggregator.MarkSafe)
}

func (h *Handler) mutation(c *fiber.Ctx, run func(ctx context.Context, ip string) services.MutationResult) error {
	// Params aliases the pooled request buffer; the IP outlives the request
	// in mutation hooks and queued alerts.
	ip := utils.CopyString(c.Params("ip"))
	if net.ParseIP(ip) == nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": fmt.Sprintf("invalid ip address %q", ip)})
	}

	res := run(c.UserContext(), ip)
	body := fiber.Map{
		"result": res,
		"state":  h.Aggregator.State(),
	}
	if res.Err != nil {
		body["error"] = res.Error
		return c.Status(errors.GetKind(res.Err).HTTPStatus()).JSON(body)
	}
	return c.JSON(body)
}

// StreamViewState pushes the state as Server-Sent Events after every change
// GET /api/view/stream
func (h *Handler) StreamViewState(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	updates, cancel := h.Aggregator.Subscribe()
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		heartbeat := time.NewTicker(streamHeartbeat)
		defer heartbeat.Stop()

		for {
			select {
			case state, ok := <-updates:
				if !ok {
					return
				}
				if err := writeStateEvent(w, state); err != nil {
					system.Debug("SSE client gone: %v", err)
					return
				}
			case <-heartbeat.C:
				if _, err := w.WriteString(": keepalive\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})
	return nil
}

func writeStateEvent(w *bufio.Writer, state models.ViewState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: state\nid: %d\ndata: %s\n\n", state.Generation, data); err != nil {
		return err
	}
	return w.Flush()
}

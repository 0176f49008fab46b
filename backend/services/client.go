package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"cwatch-dashboard/backend/errors"
	"cwatch-dashboard/backend/models"
	"cwatch-dashboard/backend/system"
)

// CWatch dashboard endpoint paths, relative to the API base.
const (
	PathStats          = "/stats"
	PathTrafficChart   = "/traffic-chart"
	PathSuspiciousIPs  = "/suspicious-ips"
	PathBlockedIPs     = "/blocked-ips"
	PathVerifiedIPs    = "/verified-ips"
	PathRecentActivity = "/recent-activity"
	PathAllIPs         = "/all-ips"
	PathRecentLogs     = "/recent-logs"
	PathBlockIP        = "/block-ip/"
	PathUnblockIP      = "/unblock-ip/"
	PathDeleteIP       = "/delete-ip/"
)

// maxErrorBody bounds how much of an error response is read for its message.
const maxErrorBody = 4 << 10

// Client talks to the CWatch dashboard API.
type Client struct {
	BaseURL   string
	UserAgent string
	HTTP      *http.Client
}

// NewClient creates a client for the API rooted at baseURL
// (e.g. http://localhost:5000/api/dashboard). timeout bounds every request.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		UserAgent: "cwatch-dashboard/1.0",
		HTTP: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values) (*http.Response, error) {
	target := c.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, errors.Attr(errors.Wrap(err, errors.KindInternal, "build request"), "endpoint", path)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		system.Debug("ERR %s %s (%s) [%s]: %v", method, target, time.Since(start), requestID, err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		wrapped := errors.WrapContext(err, errors.KindUnavailable, method+" "+path)
		return nil, errors.Attr(wrapped, "endpoint", path)
	}
	system.Debug("RES %s %s %d (%s) [%s]", method, target, resp.StatusCode, time.Since(start), requestID)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, statusError(method, path, resp)
	}
	return resp, nil
}

// statusError converts a non-2xx response into a typed error carrying the
// upstream message when the body has one.
func statusError(method, path string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := resp.Status
	if json.Unmarshal(body, &payload) == nil {
		switch {
		case payload.Error != "":
			msg = fmt.Sprintf("%s: %s", resp.Status, payload.Error)
		case payload.Message != "":
			msg = fmt.Sprintf("%s: %s", resp.Status, payload.Message)
		}
	}

	kind := errors.KindUnavailable
	switch {
	case resp.StatusCode == http.StatusNotFound:
		kind = errors.KindNotFound
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		kind = errors.KindValidation
	}

	err := errors.Errorf(kind, "%s %s: %s", method, path, msg)
	err = errors.Attr(err, "endpoint", path)
	return errors.Attr(err, "status", resp.StatusCode)
}

// getJSON fetches path and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Attr(errors.WrapContext(ctxErr, errors.KindUnavailable, "read "+path), "endpoint", path)
		}
		return errors.Attr(errors.Wrap(err, errors.KindValidation, "malformed json from "+path), "endpoint", path)
	}
	return nil
}

// mutate issues a body-less action request. The response body is ignored.
func (c *Client) mutate(ctx context.Context, method, prefix, ip string) error {
	if strings.TrimSpace(ip) == "" {
		return errors.New(errors.KindValidation, "ip address is required")
	}
	resp, err := c.do(ctx, method, prefix+url.PathEscape(ip), nil)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	return resp.Body.Close()
}

// Stats fetches GET /stats.
func (c *Client) Stats(ctx context.Context) (models.StatsSnapshot, error) {
	var stats models.StatsSnapshot
	err := c.getJSON(ctx, PathStats, nil, &stats)
	return stats, err
}

// TrafficChart fetches the raw, sparse hourly counts.
func (c *Client) TrafficChart(ctx context.Context) ([]models.TrafficPoint, error) {
	var points []models.TrafficPoint
	if err := c.getJSON(ctx, PathTrafficChart, nil, &points); err != nil {
		return nil, err
	}
	return points, nil
}

func pageQuery(page int) url.Values {
	if page <= 1 {
		return nil
	}
	return url.Values{"page": []string{strconv.Itoa(page)}}
}

func (c *Client) ipPage(ctx context.Context, path string, query url.Values) (models.IPPage, error) {
	var page models.IPPage
	if err := c.getJSON(ctx, path, query, &page); err != nil {
		return models.IPPage{}, err
	}
	if page.Data == nil {
		page.Data = []models.IPRecord{}
	}
	return page, nil
}

// SuspiciousIPs fetches the first page of suspicious IPs.
func (c *Client) SuspiciousIPs(ctx context.Context) (models.IPPage, error) {
	return c.ipPage(ctx, PathSuspiciousIPs, nil)
}

// BlockedIPs fetches the first page of blocked IPs.
func (c *Client) BlockedIPs(ctx context.Context) (models.IPPage, error) {
	return c.ipPage(ctx, PathBlockedIPs, nil)
}

// VerifiedIPs fetches one page of IPs that were marked safe.
func (c *Client) VerifiedIPs(ctx context.Context, page int) (models.IPPage, error) {
	return c.ipPage(ctx, PathVerifiedIPs, pageQuery(page))
}

// AllIPs lists tracked IPs, optionally filtered by status.
func (c *Client) AllIPs(ctx context.Context, status string, page int) (models.IPPage, error) {
	query := pageQuery(page)
	if status != "" {
		if query == nil {
			query = url.Values{}
		}
		query.Set("status", status)
	}
	return c.ipPage(ctx, PathAllIPs, query)
}

// RecentActivity fetches the activity feed in server order.
func (c *Client) RecentActivity(ctx context.Context) ([]models.ActivityRecord, error) {
	var activity []models.ActivityRecord
	if err := c.getJSON(ctx, PathRecentActivity, nil, &activity); err != nil {
		return nil, err
	}
	return activity, nil
}

// RecentLogs fetches up to limit raw traffic log rows, newest first.
func (c *Client) RecentLogs(ctx context.Context, limit int) ([]models.RecentLog, error) {
	var query url.Values
	if limit > 0 {
		query = url.Values{"limit": []string{strconv.Itoa(limit)}}
	}
	var logs []models.RecentLog
	if err := c.getJSON(ctx, PathRecentLogs, query, &logs); err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []models.RecentLog{}
	}
	return logs, nil
}

// BlockIP issues POST /block-ip/{ip}.
func (c *Client) BlockIP(ctx context.Context, ip string) error {
	return c.mutate(ctx, http.MethodPost, PathBlockIP, ip)
}

// UnblockIP issues POST /unblock-ip/{ip}.
func (c *Client) UnblockIP(ctx context.Context, ip string) error {
	return c.mutate(ctx, http.MethodPost, PathUnblockIP, ip)
}

// MarkSafe issues DELETE /delete-ip/{ip}; the API marks the IP verified.
func (c *Client) MarkSafe(ctx context.Context, ip string) error {
	return c.mutate(ctx, http.MethodDelete, PathDeleteIP, ip)
}

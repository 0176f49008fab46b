package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"cwatch-dashboard/backend/models"
	"cwatch-dashboard/backend/system"
)

// WebhookService handles Discord webhook notifications
type WebhookService struct {
	mu         sync.RWMutex
	webhookURL string
	client     *http.Client
	clock      system.Clock
}

// DiscordEmbed represents a Discord embed object
type DiscordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Fields      []DiscordEmbedField `json:"fields,omitempty"`
	Footer      *DiscordEmbedFooter `json:"footer,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

// DiscordEmbedField represents a field in a Discord embed
type DiscordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// DiscordEmbedFooter represents a footer in a Discord embed
type DiscordEmbedFooter struct {
	Text string `json:"text"`
}

// DiscordWebhookPayload represents a Discord webhook message
type DiscordWebhookPayload struct {
	Username string         `json:"username,omitempty"`
	Content  string         `json:"content,omitempty"`
	Embeds   []DiscordEmbed `json:"embeds,omitempty"`
}

// NewWebhookService creates a new WebhookService
func NewWebhookService(clock system.Clock) *WebhookService {
	if clock == nil {
		clock = system.NewRealClock()
	}
	return &WebhookService{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		clock: clock,
	}
}

// SetWebhookURL sets the Discord webhook URL. An empty URL disables alerts.
func (w *WebhookService) SetWebhookURL(url string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.webhookURL = url
}

// IsEnabled returns whether the webhook is enabled
func (w *WebhookService) IsEnabled() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.webhookURL != ""
}

// Discord color constants
const (
	ColorRed    = 0xFF0000 // Stale/Error
	ColorOrange = 0xFFAA00 // Block
	ColorGreen  = 0x00FF00 // Recovery/Success
	ColorBlue   = 0x00AAFF // Info
)

const footerText = "CWatch Dashboard"

func (w *WebhookService) embed(title, description string, color int, fields ...DiscordEmbedField) DiscordEmbed {
	return DiscordEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Fields:      fields,
		Footer:      &DiscordEmbedFooter{Text: footerText},
		Timestamp:   w.clock.Now().UTC().Format(time.RFC3339),
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// SendBlockAlert reports an IP blocked from the dashboard
func (w *WebhookService) SendBlockAlert(ip, country string) error {
	if !w.IsEnabled() {
		return nil
	}
	return w.sendEmbed(w.embed(
		"🛡️ IP Blocked",
		fmt.Sprintf("IP address **%s** was blocked from the dashboard", ip),
		ColorOrange,
		DiscordEmbedField{Name: "IP", Value: fmt.Sprintf("`%s`", ip), Inline: true},
		DiscordEmbedField{Name: "Country", Value: orDash(country), Inline: true},
	))
}

// SendUnblockAlert reports an IP unblocked from the dashboard
func (w *WebhookService) SendUnblockAlert(ip string) error {
	if !w.IsEnabled() {
		return nil
	}
	return w.sendEmbed(w.embed(
		"🔓 IP Unblocked",
		fmt.Sprintf("IP address **%s** was unblocked and is back under observation", ip),
		ColorBlue,
		DiscordEmbedField{Name: "IP", Value: fmt.Sprintf("`%s`", ip), Inline: true},
	))
}

// SendStaleAlert reports that consecutive refreshes failed
func (w *WebhookService) SendStaleAlert(failures int, lastErr string, lastUpdated time.Time) error {
	if !w.IsEnabled() {
		return nil
	}
	updated := "never"
	if !lastUpdated.IsZero() {
		updated = humanize.RelTime(lastUpdated, w.clock.Now(), "ago", "from now")
	}
	return w.sendEmbed(w.embed(
		"🚨 Dashboard Data Stale",
		"The CWatch API could not be reached; the dashboard is showing old data.",
		ColorRed,
		DiscordEmbedField{Name: "Failed Refreshes", Value: fmt.Sprintf("%d", failures), Inline: true},
		DiscordEmbedField{Name: "Last Updated", Value: updated, Inline: true},
		DiscordEmbedField{Name: "Last Error", Value: orDash(lastErr), Inline: false},
	))
}

// SendRecoveryAlert reports that data is fresh again
func (w *WebhookService) SendRecoveryAlert(downFor time.Duration) error {
	if !w.IsEnabled() {
		return nil
	}
	return w.sendEmbed(w.embed(
		"✅ Dashboard Data Recovered",
		"The CWatch API is reachable again.",
		ColorGreen,
		DiscordEmbedField{Name: "Stale For", Value: downFor.Truncate(time.Second).String(), Inline: true},
	))
}

// DailyReport is the content of the midnight summary embed.
type DailyReport struct {
	Day          string
	Summary      models.RefreshSummary
	TrafficTotal int64
	Peak         models.TrafficPoint
	Suspicious   int
	Blocked      int
}

// SendDailyReport posts the daily refresh and traffic summary
func (w *WebhookService) SendDailyReport(r DailyReport) error {
	if !w.IsEnabled() {
		return nil
	}

	peak := "-"
	if r.Peak.Requests > 0 {
		peak = fmt.Sprintf("%s (%s)", r.Peak.Time, humanize.Comma(r.Peak.Requests))
	}
	desc := fmt.Sprintf("**Traffic (last 24 hours)**\n"+
		"• Requests: `%s`\n"+
		"• Peak Hour: `%s`\n\n"+
		"**Watch Lists**\n"+
		"• Suspicious IPs: `%d`\n"+
		"• Blocked IPs: `%d`",
		humanize.Comma(r.TrafficTotal), peak, r.Suspicious, r.Blocked)

	return w.sendEmbed(w.embed(
		fmt.Sprintf("📊 Daily Dashboard Report (%s)", r.Day),
		desc,
		ColorBlue,
		DiscordEmbedField{Name: "Refreshes", Value: humanize.Comma(r.Summary.Total), Inline: true},
		DiscordEmbedField{Name: "Fresh / Stale", Value: fmt.Sprintf("%d / %d", r.Summary.Fresh, r.Summary.Stale), Inline: true},
		DiscordEmbedField{Name: "Success", Value: fmt.Sprintf("%.1f%%", r.Summary.SuccessRatio*100), Inline: true},
		DiscordEmbedField{Name: "Avg Duration", Value: fmt.Sprintf("%.0f ms", r.Summary.AvgDuration), Inline: true},
	))
}

// SendTestAlert sends a test notification to verify webhook connectivity
func (w *WebhookService) SendTestAlert() error {
	if !w.IsEnabled() {
		return fmt.Errorf("webhook not configured")
	}
	return w.sendEmbed(w.embed(
		"✅ Webhook Test",
		"Discord webhook is configured correctly!",
		ColorGreen,
		DiscordEmbedField{Name: "Status", Value: "Connected", Inline: true},
		DiscordEmbedField{Name: "Server Time", Value: w.clock.Now().Format("2006-01-02 15:04:05"), Inline: true},
	))
}

// sendEmbed sends a Discord embed message
func (w *WebhookService) sendEmbed(embed DiscordEmbed) error {
	w.mu.RLock()
	url := w.webhookURL
	w.mu.RUnlock()

	payload := DiscordWebhookPayload{
		Username: "CWatch",
		Embeds:   []DiscordEmbed{embed},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned error status: %d", resp.StatusCode)
	}

	system.Info("Discord webhook sent: %s", embed.Title)
	return nil
}

package models

import (
	"time"
)

// RefreshRecord stores the outcome of one poll cycle for the history view
type RefreshRecord struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Timestamp     time.Time `gorm:"index" json:"timestamp"`      // When the cycle started
	Generation    uint64    `json:"generation"`                  // Cycle sequence number
	Trigger       string    `json:"trigger"`                     // "poll", "manual", "block", "unblock", "safe"
	Outcome       string    `gorm:"index" json:"outcome"`        // fresh, stale, superseded, canceled
	DurationMs    int64     `json:"duration_ms"`                 // Wall time until all requests settled
	Error         string    `json:"error,omitempty"`             // First failure of a stale cycle
	TotalRequests int64     `json:"total_requests"`              // Stats at commit time (fresh only)
	SuspiciousIPs int       `json:"suspicious_ips"`              // Rows in the suspicious list
	BlockedIPs    int       `json:"blocked_ips"`                 // Rows in the blocked list
	PeakHour      string    `json:"peak_hour,omitempty"`         // Busiest "HH:00" bucket of the series
	PeakRequests  int64     `json:"peak_requests"`               // Requests in the busiest bucket
}

// RefreshSummary aggregates recent history
type RefreshSummary struct {
	Total        int64     `json:"total"`
	Fresh        int64     `json:"fresh"`
	Stale        int64     `json:"stale"`
	Superseded   int64     `json:"superseded"`
	AvgDuration  float64   `json:"avg_duration_ms"`
	LastFreshAt  time.Time `json:"last_fresh_at"`
	SuccessRatio float64   `json:"success_ratio"`
}

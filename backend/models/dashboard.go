package models

import (
	"strings"
	"time"
)

// StatsSnapshot is the headline counter set returned by GET /stats.
// Fields the API omits decode to zero.
type StatsSnapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	RequestsToday     int64   `json:"requests_today"`
	RequestsHour      int64   `json:"requests_hour"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	SuspiciousIPs     int64   `json:"suspicious_ips"`
	BlockedIPs        int64   `json:"blocked_ips"`
	VerifiedIPs       int64   `json:"verified_ips"`
}

// TrafficPoint is one hourly bucket. Time is an "HH:00" label.
type TrafficPoint struct {
	Time     string `json:"time"`
	Requests int64  `json:"requests"`
}

// IP statuses as reported by the CWatch API.
const (
	StatusSuspicious = "suspicious"
	StatusBlocked    = "blocked"
	StatusVerified   = "verified"
)

// IPRecord is one row of the suspicious, blocked or verified lists.
type IPRecord struct {
	ID         int64  `json:"id"`
	IP         string `json:"ip"`
	Reason     string `json:"reason"`
	Status     string `json:"status,omitempty"`
	DetectedAt string `json:"detected_at,omitempty"`
	BlockedAt  string `json:"blocked_at,omitempty"`
	VerifiedAt string `json:"verified_at,omitempty"`
	Country    string `json:"country,omitempty"`
}

// Timestamp returns detected_at when present, else blocked_at, else verified_at.
func (r IPRecord) Timestamp() string {
	switch {
	case r.DetectedAt != "":
		return r.DetectedAt
	case r.BlockedAt != "":
		return r.BlockedAt
	default:
		return r.VerifiedAt
	}
}

// Time parses Timestamp. The second result is false when the record carries
// no parseable time.
func (r IPRecord) Time() (time.Time, bool) {
	return ParseAPITime(r.Timestamp())
}

// IPPage is the paginated envelope of the list endpoints.
type IPPage struct {
	Data        []IPRecord `json:"data"`
	Total       int64      `json:"total"`
	Pages       int        `json:"pages"`
	CurrentPage int        `json:"current_page"`
}

// ActivityRecord is one row of the recent-activity feed.
type ActivityRecord struct {
	IP     string `json:"ip"`
	Reason string `json:"reason"`
	Time   string `json:"time"`
	Status string `json:"status"`
}

// NormalizedStatus folds the API status into blocked, verified or suspicious.
func (a ActivityRecord) NormalizedStatus() string {
	switch strings.ToLower(strings.TrimSpace(a.Status)) {
	case StatusBlocked:
		return StatusBlocked
	case StatusVerified:
		return StatusVerified
	default:
		return StatusSuspicious
	}
}

// RecentLog is one raw traffic log row from GET /recent-logs.
type RecentLog struct {
	ID        int64  `json:"id"`
	IP        string `json:"ip"`
	Method    string `json:"method"`
	Endpoint  string `json:"endpoint"`
	Timestamp string `json:"timestamp"`
}

// The API emits naive ISO-8601 timestamps in UTC, with or without
// fractional seconds.
var apiTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseAPITime parses a CWatch timestamp. Zone-less values are read as UTC.
func ParseAPITime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range apiTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

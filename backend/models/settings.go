package models

import (
	"fmt"
	"time"
)

// DDoS protection levels accepted by the settings form.
const (
	ProtectionLow    = "low"
	ProtectionMedium = "medium"
	ProtectionHigh   = "high"
)

// DashboardSettings holds the detection/mitigation settings form. There is a
// single row (ID=1). Values are kept locally; the CWatch API has no endpoint
// that accepts them.
type DashboardSettings struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	RequestThreshold      int       `gorm:"not null" json:"request_threshold"`       // requests per time window
	TimeWindow            int       `gorm:"not null" json:"time_window"`             // seconds
	BlockDuration         int       `gorm:"not null" json:"block_duration"`          // seconds
	RateLimitPerIP        int       `gorm:"not null" json:"rate_limit_per_ip"`       // requests per minute
	SuspiciousIPThreshold int       `gorm:"not null" json:"suspicious_ip_threshold"` // suspicion score
	DDoSProtectionLevel   string    `gorm:"not null" json:"ddos_protection_level"`
	AutoBlock             bool      `gorm:"not null" json:"auto_block"`
	EmailAlerts           bool      `gorm:"not null" json:"email_alerts"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// DefaultDashboardSettings returns the factory settings.
func DefaultDashboardSettings() DashboardSettings {
	return DashboardSettings{
		ID:                    1,
		RequestThreshold:      100,
		TimeWindow:            60,
		BlockDuration:         3600,
		RateLimitPerIP:        100,
		SuspiciousIPThreshold: 50,
		DDoSProtectionLevel:   ProtectionMedium,
		AutoBlock:             true,
		EmailAlerts:           true,
	}
}

type settingRange struct {
	name     string
	value    int
	min, max int
}

// Validate checks every numeric field against its slider range.
func (s DashboardSettings) Validate() error {
	ranges := []settingRange{
		{"request_threshold", s.RequestThreshold, 10, 500},
		{"time_window", s.TimeWindow, 10, 300},
		{"block_duration", s.BlockDuration, 60, 86400},
		{"rate_limit_per_ip", s.RateLimitPerIP, 10, 1000},
		{"suspicious_ip_threshold", s.SuspiciousIPThreshold, 10, 200},
	}
	for _, r := range ranges {
		if r.value < r.min || r.value > r.max {
			return fmt.Errorf("%s must be between %d and %d, got %d", r.name, r.min, r.max, r.value)
		}
	}
	switch s.DDoSProtectionLevel {
	case ProtectionLow, ProtectionMedium, ProtectionHigh:
	default:
		return fmt.Errorf("ddos_protection_level must be low, medium or high, got %q", s.DDoSProtectionLevel)
	}
	return nil
}

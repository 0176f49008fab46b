package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDashboardSettings_Validate(t *testing.T) {
	assert.NoError(t, DefaultDashboardSettings().Validate())

	cases := []struct {
		name   string
		mutate func(*DashboardSettings)
		field  string
	}{
		{"threshold low", func(s *DashboardSettings) { s.RequestThreshold = 9 }, "request_threshold"},
		{"window high", func(s *DashboardSettings) { s.TimeWindow = 301 }, "time_window"},
		{"block short", func(s *DashboardSettings) { s.BlockDuration = 59 }, "block_duration"},
		{"rate high", func(s *DashboardSettings) { s.RateLimitPerIP = 1001 }, "rate_limit_per_ip"},
		{"score low", func(s *DashboardSettings) { s.SuspiciousIPThreshold = 0 }, "suspicious_ip_threshold"},
		{"level", func(s *DashboardSettings) { s.DDoSProtectionLevel = "extreme" }, "ddos_protection_level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := DefaultDashboardSettings()
			tc.mutate(&s)
			err := s.Validate()
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tc.field)
			}
		})
	}

	edge := DefaultDashboardSettings()
	edge.RequestThreshold = 500
	edge.BlockDuration = 86400
	edge.DDoSProtectionLevel = ProtectionHigh
	assert.NoError(t, edge.Validate())
}

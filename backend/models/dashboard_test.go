package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPRecord_Timestamp(t *testing.T) {
	assert.Equal(t, "d", IPRecord{DetectedAt: "d", BlockedAt: "b", VerifiedAt: "v"}.Timestamp())
	assert.Equal(t, "b", IPRecord{BlockedAt: "b", VerifiedAt: "v"}.Timestamp())
	assert.Equal(t, "v", IPRecord{VerifiedAt: "v"}.Timestamp())
	assert.Equal(t, "", IPRecord{}.Timestamp())
}

func TestIPRecord_Time(t *testing.T) {
	at, ok := IPRecord{BlockedAt: "2025-03-10T09:15:00.123456"}.Time()
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 15, 0, 123456000, time.UTC), at)

	_, ok = IPRecord{DetectedAt: "yesterday"}.Time()
	assert.False(t, ok)
}

func TestParseAPITime(t *testing.T) {
	want := time.Date(2025, 3, 10, 9, 15, 30, 0, time.UTC)
	for _, in := range []string{
		"2025-03-10T09:15:30",
		"2025-03-10 09:15:30",
		" 2025-03-10T09:15:30Z ",
		"2025-03-10T10:15:30+01:00",
	} {
		got, ok := ParseAPITime(in)
		require.True(t, ok, in)
		assert.True(t, want.Equal(got), in)
	}

	_, ok := ParseAPITime("")
	assert.False(t, ok)
}

func TestActivityRecord_NormalizedStatus(t *testing.T) {
	assert.Equal(t, StatusBlocked, ActivityRecord{Status: "Blocked"}.NormalizedStatus())
	assert.Equal(t, StatusVerified, ActivityRecord{Status: " verified"}.NormalizedStatus())
	assert.Equal(t, StatusSuspicious, ActivityRecord{Status: "suspicious"}.NormalizedStatus())
	assert.Equal(t, StatusSuspicious, ActivityRecord{Status: "flagged"}.NormalizedStatus())
	assert.Equal(t, StatusSuspicious, ActivityRecord{}.NormalizedStatus())
}

func TestViewState_Clone(t *testing.T) {
	v := NewViewState()
	assert.Equal(t, PhaseUninitialized, v.Phase)
	assert.NotNil(t, v.Traffic)
	assert.NotNil(t, v.Activity)

	v.Suspicious = append(v.Suspicious, IPRecord{IP: "203.0.113.5"})
	clone := v.Clone()
	clone.Suspicious[0].IP = "changed"
	clone.Blocked = append(clone.Blocked, IPRecord{IP: "198.51.100.7"})

	assert.Equal(t, "203.0.113.5", v.Suspicious[0].IP)
	assert.Empty(t, v.Blocked)
	assert.True(t, PhaseLoading.Loading())
	assert.False(t, PhaseReady.Loading())
}

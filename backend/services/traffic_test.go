package services

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cwatch-dashboard/backend/models"
	"cwatch-dashboard/backend/system"
)

func labels(series []models.TrafficPoint) []string {
	out := make([]string, len(series))
	for i, p := range series {
		out[i] = p.Time
	}
	return out
}

func TestBuildTrafficSeries_Shape(t *testing.T) {
	clock := system.NewVirtualClock(time.Date(2025, 3, 10, 14, 37, 0, 0, time.UTC))

	for step := 0; step < 30; step++ {
		now := clock.Now()
		series := BuildTrafficSeries(nil, now)

		require.Len(t, series, SeriesHours)
		assert.Equal(t, HourLabel(now), series[SeriesHours-1].Time, "last bucket is the current hour")
		assert.Equal(t, HourLabel(now.Add(-23*time.Hour)), series[0].Time)

		seen := make(map[string]bool)
		for _, p := range series {
			assert.False(t, seen[p.Time], "duplicate label %s", p.Time)
			seen[p.Time] = true
			assert.Zero(t, p.Requests)
		}

		clock.Advance(47 * time.Minute)
	}
}

func TestBuildTrafficSeries_CrossesMidnight(t *testing.T) {
	now := time.Date(2025, 3, 10, 2, 5, 0, 0, time.UTC)
	raw := []models.TrafficPoint{
		{Time: "23:00", Requests: 5},
		{Time: "01:00", Requests: 9},
	}

	series := BuildTrafficSeries(raw, now)

	got := labels(series)
	assert.Equal(t, "03:00", got[0])
	assert.Equal(t, []string{"23:00", "00:00", "01:00", "02:00"}, got[20:])
	assert.Equal(t, int64(5), series[20].Requests)
	assert.Equal(t, int64(0), series[21].Requests)
	assert.Equal(t, int64(9), series[22].Requests)
	assert.Equal(t, int64(0), series[23].Requests)
}

func TestBuildTrafficSeries_LastDuplicateWins(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	raw := []models.TrafficPoint{
		{Time: "10:00", Requests: 1},
		{Time: "10:00", Requests: 42},
	}

	series := BuildTrafficSeries(raw, now)
	assert.Equal(t, "10:00", series[21].Time)
	assert.Equal(t, int64(42), series[21].Requests)
	assert.Equal(t, int64(42), SeriesTotal(series))
}

func TestBuildTrafficSeries_NilEqualsEmpty(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, BuildTrafficSeries(nil, now), BuildTrafficSeries([]models.TrafficPoint{}, now))
}

func TestBuildTrafficSeries_IgnoresLabelsOutsideWindowAndJunk(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	raw := []models.TrafficPoint{
		{Time: "garbage", Requests: 100},
		{Time: "25:00", Requests: 100},
		{Time: "", Requests: 100},
		{Time: "7:00", Requests: 3},
		{Time: "08:00", Requests: -4},
		{Time: "-1:00", Requests: 100},
		{Time: "+9:00", Requests: 100},
		{Time: "9:0", Requests: 100},
	}

	series := BuildTrafficSeries(raw, now)
	require.Len(t, series, SeriesHours)
	assert.Equal(t, int64(3), SeriesTotal(series))

	for _, p := range series {
		switch p.Time {
		case "07:00":
			assert.Equal(t, int64(3), p.Requests)
		case "08:00":
			assert.Zero(t, p.Requests)
		}
	}
}

func TestBuildTrafficSeries_PartialHourLabelsDoNotOverwrite(t *testing.T) {
	now := time.Date(2025, 3, 10, 13, 5, 0, 0, time.UTC)
	raw := []models.TrafficPoint{
		{Time: "13:00", Requests: 42},
		{Time: "13:30", Requests: 5},
		{Time: "7:30", Requests: 3},
	}

	series := BuildTrafficSeries(raw, now)
	last := series[SeriesHours-1]
	assert.Equal(t, "13:00", last.Time)
	assert.Equal(t, int64(42), last.Requests)
	assert.Equal(t, int64(42), SeriesTotal(series))
}

func TestBuildTrafficSeries_Location(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	raw := []models.TrafficPoint{{Time: "15:00", Requests: 8}}

	utc := BuildTrafficSeries(raw, now)
	local := BuildTrafficSeries(raw, now.In(loc))

	assert.Equal(t, "10:00", utc[SeriesHours-1].Time)
	assert.Equal(t, "15:00", local[SeriesHours-1].Time)
	assert.Equal(t, int64(8), local[SeriesHours-1].Requests)
}

func TestBuildTrafficSeries_DaylightSavingFallBack(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	// 01:00-02:00 happens twice on 2025-11-02 in New York.
	now := time.Date(2025, 11, 2, 12, 30, 0, 0, loc)

	raw := []models.TrafficPoint{{Time: "01:00", Requests: 7}, {Time: "12:00", Requests: 2}}
	series := BuildTrafficSeries(raw, now)
	require.Len(t, series, SeriesHours)

	seen := make(map[string]int)
	for _, p := range series {
		seen[p.Time]++
	}
	assert.Len(t, seen, SeriesHours, "no repeated labels")
	assert.Equal(t, "12:00", series[SeriesHours-1].Time)
	assert.Equal(t, "13:00", series[0].Time, "window reaches one hour further back")
	assert.Equal(t, HourLabel(now.Add(-24*time.Hour)), series[0].Time)
	assert.Equal(t, int64(9), SeriesTotal(series))
}

func TestBuildTrafficSeries_DaylightSavingSpringForward(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	// 02:00 does not exist on 2025-03-09 in New York.
	now := time.Date(2025, 3, 9, 12, 30, 0, 0, loc)

	series := BuildTrafficSeries(nil, now)
	require.Len(t, series, SeriesHours)
	assert.NotContains(t, labels(series), "02:00")
	assert.Equal(t, "12:00", series[SeriesHours-1].Time)
}

func TestHourLabel(t *testing.T) {
	assert.Equal(t, "00:00", HourLabel(time.Date(2025, 1, 1, 0, 59, 0, 0, time.UTC)))
	assert.Equal(t, "09:00", HourLabel(time.Date(2025, 1, 1, 9, 1, 0, 0, time.UTC)))
	assert.Equal(t, "23:00", HourLabel(time.Date(2025, 1, 1, 23, 0, 0, 0, time.UTC)))
}

func TestPeakHour(t *testing.T) {
	_, ok := PeakHour(BuildTrafficSeries(nil, time.Now()))
	assert.False(t, ok)

	series := []models.TrafficPoint{
		{Time: "10:00", Requests: 5},
		{Time: "11:00", Requests: 9},
		{Time: "12:00", Requests: 9},
		{Time: "13:00", Requests: 2},
	}
	peak, ok := PeakHour(series)
	require.True(t, ok)
	assert.Equal(t, "12:00", peak.Time)
	assert.Equal(t, int64(25), SeriesTotal(series))
}

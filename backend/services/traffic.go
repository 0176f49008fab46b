package services

import (
	"strconv"
	"strings"
	"time"

	"cwatch-dashboard/backend/models"
)

// SeriesHours is the width of the traffic chart window.
const SeriesHours = 24

// HourLabel formats t as a zero-padded 24-hour "HH:00" bucket label.
func HourLabel(t time.Time) string {
	return t.Format("15") + ":00"
}

// BuildTrafficSeries turns the sparse traffic-chart response into exactly 24
// hourly points ending at now's hour, oldest first. Hours missing from raw
// are zero. When raw repeats a label the last entry wins. Labels are computed
// in now's location, so callers pick the chart timezone by passing now.In(loc).
// Where a daylight-saving fall-back repeats an hour label, the older hour is
// skipped and the window reaches one hour further back, so labels stay unique.
func BuildTrafficSeries(raw []models.TrafficPoint, now time.Time) []models.TrafficPoint {
	lookup := make(map[string]int64, len(raw))
	for _, p := range raw {
		label, ok := parseHourLabel(p.Time)
		if !ok {
			continue
		}
		lookup[label] = max(p.Requests, 0)
	}

	// Walk back from the current hour, newest first.
	newest := make([]string, 0, SeriesHours)
	seen := make(map[string]bool, SeriesHours)
	for i := 0; len(newest) < SeriesHours && i < 2*SeriesHours; i++ {
		label := HourLabel(now.Add(-time.Duration(i) * time.Hour))
		if seen[label] {
			continue
		}
		seen[label] = true
		newest = append(newest, label)
	}

	series := make([]models.TrafficPoint, len(newest))
	for i, label := range newest {
		series[len(newest)-1-i] = models.TrafficPoint{
			Time:     label,
			Requests: lookup[label],
		}
	}
	return series
}

// parseHourLabel accepts "HH:00" and "H:00". Labels with non-zero minutes
// name no bucket and are rejected.
func parseHourLabel(s string) (string, bool) {
	hour, minutes, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found || minutes != "00" || len(hour) == 0 || len(hour) > 2 {
		return "", false
	}
	h, err := strconv.Atoi(hour)
	if err != nil || h < 0 || h > 23 {
		return "", false
	}
	return pad2(h) + ":00", true
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// PeakHour returns the busiest bucket of a series. Ties go to the most
// recent hour. ok is false when every bucket is zero.
func PeakHour(series []models.TrafficPoint) (models.TrafficPoint, bool) {
	var peak models.TrafficPoint
	found := false
	for _, p := range series {
		if p.Requests > 0 && p.Requests >= peak.Requests {
			peak = p
			found = true
		}
	}
	return peak, found
}

// SeriesTotal sums the requests of a series.
func SeriesTotal(series []models.TrafficPoint) int64 {
	var total int64
	for _, p := range series {
		total += p.Requests
	}
	return total
}

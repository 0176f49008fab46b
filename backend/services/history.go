package services

import (
	"time"

	"gorm.io/gorm"

	"cwatch-dashboard/backend/models"
	"cwatch-dashboard/backend/system"
)

// RefreshHistory persists the outcome of every refresh cycle and prunes old rows.
type RefreshHistory struct {
	db        *gorm.DB
	clock     system.Clock
	retention time.Duration
	stopChan  chan struct{}
}

func NewRefreshHistory(db *gorm.DB, clock system.Clock, retentionDays int) *RefreshHistory {
	if clock == nil {
		clock = system.NewRealClock()
	}
	return &RefreshHistory{
		db:        db,
		clock:     clock,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		stopChan:  make(chan struct{}),
	}
}

// Attach records every settled cycle of agg.
func (h *RefreshHistory) Attach(agg *Aggregator) {
	agg.OnRefresh(func(res RefreshResult, state models.ViewState) {
		if err := h.Record(res, state); err != nil {
			system.Warn("Failed to record refresh %d: %v", res.Generation, err)
		}
	})
}

// Record stores one cycle. Counters are only filled for fresh cycles.
func (h *RefreshHistory) Record(res RefreshResult, state models.ViewState) error {
	rec := models.RefreshRecord{
		Timestamp:  res.StartedAt,
		Generation: res.Generation,
		Trigger:    string(res.Trigger),
		Outcome:    string(res.Outcome),
		DurationMs: res.Duration().Milliseconds(),
		Error:      res.Error,
	}
	if res.Outcome == models.OutcomeFresh {
		rec.TotalRequests = state.Stats.TotalRequests
		rec.SuspiciousIPs = len(state.Suspicious)
		rec.BlockedIPs = len(state.Blocked)
		if peak, ok := PeakHour(state.Traffic); ok {
			rec.PeakHour = peak.Time
			rec.PeakRequests = peak.Requests
		}
	}
	return h.db.Create(&rec).Error
}

// Recent returns up to limit records, newest first. outcome filters when non-empty.
func (h *RefreshHistory) Recent(limit int, outcome string) ([]models.RefreshRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	query := h.db.Model(&models.RefreshRecord{})
	if outcome != "" {
		query = query.Where("outcome = ?", outcome)
	}

	var records []models.RefreshRecord
	err := query.Order("timestamp DESC").Order("id DESC").Limit(limit).Find(&records).Error
	return records, err
}

// Summary aggregates the records newer than since.
func (h *RefreshHistory) Summary(since time.Time) (models.RefreshSummary, error) {
	var summary models.RefreshSummary

	var rows []struct {
		Outcome string
		Count   int64
		AvgMs   float64
	}
	err := h.db.Model(&models.RefreshRecord{}).
		Select("outcome, COUNT(*) as count, AVG(duration_ms) as avg_ms").
		Where("timestamp >= ?", since).
		Group("outcome").
		Scan(&rows).Error
	if err != nil {
		return summary, err
	}

	var weighted float64
	for _, r := range rows {
		summary.Total += r.Count
		weighted += r.AvgMs * float64(r.Count)
		switch models.Outcome(r.Outcome) {
		case models.OutcomeFresh:
			summary.Fresh = r.Count
		case models.OutcomeStale:
			summary.Stale = r.Count
		case models.OutcomeSuperseded:
			summary.Superseded = r.Count
		}
	}
	if summary.Total > 0 {
		summary.AvgDuration = weighted / float64(summary.Total)
	}
	if settled := summary.Fresh + summary.Stale; settled > 0 {
		summary.SuccessRatio = float64(summary.Fresh) / float64(settled)
	}

	var last models.RefreshRecord
	res := h.db.Where("outcome = ?", string(models.OutcomeFresh)).Order("timestamp DESC").Limit(1).Find(&last)
	if res.Error != nil {
		return summary, res.Error
	}
	if res.RowsAffected > 0 {
		summary.LastFreshAt = last.Timestamp
	}
	return summary, nil
}

// Prune deletes records older than before and returns how many were removed.
func (h *RefreshHistory) Prune(before time.Time) (int64, error) {
	res := h.db.Where("timestamp < ?", before).Delete(&models.RefreshRecord{})
	return res.RowsAffected, res.Error
}

// Start prunes once and then hourly. A zero retention keeps everything.
func (h *RefreshHistory) Start() {
	if h.retention <= 0 {
		return
	}
	go func() {
		system.Info("Refresh history retention: %s", h.retention)
		for {
			if n, err := h.Prune(h.clock.Now().Add(-h.retention)); err != nil {
				system.Warn("Failed to prune refresh history: %v", err)
			} else if n > 0 {
				system.Info("Pruned %d refresh history records", n)
			}

			select {
			case <-h.clock.After(time.Hour):
			case <-h.stopChan:
				return
			}
		}
	}()
}

// Stop stops the pruning loop
func (h *RefreshHistory) Stop() {
	select {
	case <-h.stopChan:
	default:
		close(h.stopChan)
	}
}

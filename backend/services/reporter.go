package services

import (
	"sync"
	"time"

	"cwatch-dashboard/backend/system"
)

// DailyReporter sends a summary of the previous day to the webhook at
// midnight in the chart timezone.
type DailyReporter struct {
	history  *RefreshHistory
	agg      *Aggregator
	webhook  *WebhookService
	clock    system.Clock
	location *time.Location

	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewDailyReporter(history *RefreshHistory, agg *Aggregator, webhook *WebhookService, clock system.Clock, loc *time.Location) *DailyReporter {
	if clock == nil {
		clock = system.NewRealClock()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &DailyReporter{
		history:  history,
		agg:      agg,
		webhook:  webhook,
		clock:    clock,
		location: loc,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// nextMidnight returns the first midnight strictly after now.
func (r *DailyReporter) nextMidnight(now time.Time) time.Time {
	local := now.In(r.location)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, r.location)
}

// Start schedules the report at every midnight until Stop.
func (r *DailyReporter) Start() {
	go func() {
		defer close(r.done)
		for {
			now := r.clock.Now()
			wait := r.nextMidnight(now).Sub(now)
			system.Debug("Next daily report in %v", wait)

			select {
			case <-r.stopChan:
				return
			case <-r.clock.After(wait):
				if err := r.SendReport(); err != nil {
					system.Warn("Failed to send daily report: %v", err)
				}
			}
		}
	}()
	system.Info("Daily reporter started")
}

// Stop ends the scheduling loop. Safe to call more than once.
func (r *DailyReporter) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopChan)
		<-r.done
	})
}

// SendReport builds the report for the 24 hours before now and posts it.
func (r *DailyReporter) SendReport() error {
	if !r.webhook.IsEnabled() {
		return nil
	}

	now := r.clock.Now()
	yesterday := now.Add(-24 * time.Hour)
	summary, err := r.history.Summary(yesterday)
	if err != nil {
		return err
	}

	state := r.agg.State()
	peak, _ := PeakHour(state.Traffic)
	system.Info("Sending daily dashboard report (%d refreshes)", summary.Total)
	return r.webhook.SendDailyReport(DailyReport{
		Day:          yesterday.In(r.location).Format("2006-01-02"),
		Summary:      summary,
		TrafficTotal: SeriesTotal(state.Traffic),
		Peak:         peak,
		Suspicious:   len(state.Suspicious),
		Blocked:      len(state.Blocked),
	})
}

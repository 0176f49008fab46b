package services

import (
	"sync"
	"time"

	"cwatch-dashboard/backend/models"
	"cwatch-dashboard/backend/system"
)

// StaleMonitor watches refresh results and mutations and sends Discord
// alerts: once after a run of failed refreshes, once on recovery, and for
// every successful block or unblock.
type StaleMonitor struct {
	webhook   *WebhookService
	clock     system.Clock
	threshold int // consecutive failed refreshes before alerting
	alerts    chan func() error
	stopChan  chan struct{}
	done      chan struct{}

	mu           sync.Mutex
	blocked      []models.IPRecord // blocked list of the last fresh state
	failures     int
	firstFailure time.Time
	alerted      bool
}

// NewStaleMonitor creates a StaleMonitor
func NewStaleMonitor(webhook *WebhookService, clock system.Clock, threshold int) *StaleMonitor {
	if threshold < 1 {
		threshold = 1
	}
	if clock == nil {
		clock = system.NewRealClock()
	}
	return &StaleMonitor{
		webhook:   webhook,
		clock:     clock,
		threshold: threshold,
		alerts:    make(chan func() error, 32),
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Attach subscribes the monitor to agg.
func (m *StaleMonitor) Attach(agg *Aggregator) {
	agg.OnRefresh(m.observe)
	agg.OnMutation(m.observeMutation)
}

// Start begins the delivery loop
func (m *StaleMonitor) Start() {
	go func() {
		defer close(m.done)
		system.Info("Stale monitor started (threshold: %d failed refreshes)", m.threshold)
		for {
			select {
			case send := <-m.alerts:
				if err := send(); err != nil {
					system.Warn("Failed to deliver dashboard alert: %v", err)
				}
			case <-m.stopChan:
				system.Info("Stale monitor stopped")
				return
			}
		}
	}()
}

// Stop stops the delivery loop. Queued alerts are dropped.
func (m *StaleMonitor) Stop() {
	close(m.stopChan)
	<-m.done
}

// enqueue never blocks the refresh path; alerts are dropped when the queue is full.
func (m *StaleMonitor) enqueue(send func() error) {
	if !m.webhook.IsEnabled() {
		return
	}
	select {
	case m.alerts <- send:
	default:
		system.Warn("Alert queue full, dropping dashboard alert")
	}
}

func (m *StaleMonitor) observe(res RefreshResult, state models.ViewState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch res.Outcome {
	case models.OutcomeStale:
		if m.failures == 0 {
			m.firstFailure = res.StartedAt
		}
		m.failures++
		if m.failures >= m.threshold && !m.alerted {
			m.alerted = true
			failures, lastErr, lastUpdated := m.failures, res.Error, state.LastUpdated
			m.enqueue(func() error {
				return m.webhook.SendStaleAlert(failures, lastErr, lastUpdated)
			})
		}
	case models.OutcomeFresh:
		if m.alerted {
			downFor := since(m.clock, m.firstFailure)
			m.enqueue(func() error {
				return m.webhook.SendRecoveryAlert(downFor)
			})
		}
		m.blocked = state.Blocked
		m.failures = 0
		m.alerted = false
		m.firstFailure = time.Time{}
	}
}

// observeMutation runs after the follow-up refresh, so a blocked IP is
// already in m.blocked with its country when the refresh succeeded.
func (m *StaleMonitor) observeMutation(res MutationResult) {
	if res.Err != nil {
		return
	}
	ip := res.IP
	switch res.Action {
	case TriggerBlock:
		m.mu.Lock()
		country := countryOf(ip, m.blocked)
		m.mu.Unlock()
		m.enqueue(func() error { return m.webhook.SendBlockAlert(ip, country) })
	case TriggerUnblock:
		m.enqueue(func() error { return m.webhook.SendUnblockAlert(ip) })
	}
}

func countryOf(ip string, records []models.IPRecord) string {
	for _, r := range records {
		if r.IP == ip {
			return r.Country
		}
	}
	return ""
}

// Failures returns the current run of failed refreshes.
func (m *StaleMonitor) Failures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures
}

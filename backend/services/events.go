package services

import (
	"fmt"
	"sync"
	"time"

	"cwatch-dashboard/backend/models"
	"cwatch-dashboard/backend/system"
)

// Event types
const (
	EventInfo    = "info"
	EventWarning = "warning"
	EventError   = "error"
	EventSuccess = "success"
)

// maxEvents is how many events the log keeps.
const maxEvents = 100

type SystemEvent struct {
	Time    string `json:"time"`
	Type    string `json:"type"` // info, warning, error, success
	Message string `json:"message"`
}

// EventLog is a bounded, newest-first list of gateway events.
type EventLog struct {
	mu     sync.RWMutex
	clock  system.Clock
	events []SystemEvent
}

func NewEventLog(clock system.Clock) *EventLog {
	if clock == nil {
		clock = system.NewRealClock()
	}
	return &EventLog{clock: clock, events: []SystemEvent{}}
}

// Add records an event and mirrors it to the file log.
func (l *EventLog) Add(eventType, message string) {
	l.mu.Lock()
	event := SystemEvent{
		Time:    l.clock.Now().Format("15:04:05"),
		Type:    eventType,
		Message: message,
	}
	l.events = append([]SystemEvent{event}, l.events...)
	if len(l.events) > maxEvents {
		l.events = l.events[:maxEvents]
	}
	l.mu.Unlock()

	switch eventType {
	case EventError:
		system.Error("%s", message)
	case EventWarning:
		system.Warn("%s", message)
	default:
		system.Info("%s", message)
	}
}

// Events returns a copy of the log, newest first.
func (l *EventLog) Events() []SystemEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]SystemEvent, len(l.events))
	copy(result, l.events)
	return result
}

// Attach records mutations and stale/recovered transitions of agg.
func (l *EventLog) Attach(agg *Aggregator) {
	var mu sync.Mutex
	stale := false

	agg.OnRefresh(func(res RefreshResult, state models.ViewState) {
		mu.Lock()
		defer mu.Unlock()
		switch res.Outcome {
		case models.OutcomeStale:
			if !stale {
				l.Add(EventWarning, fmt.Sprintf("Dashboard data is stale: %s", res.Error))
			}
			stale = true
		case models.OutcomeFresh:
			if stale {
				l.Add(EventSuccess, fmt.Sprintf("Dashboard data recovered (generation %d)", res.Generation))
			}
			stale = false
		}
	})

	agg.OnMutation(func(m MutationResult) {
		if m.Err != nil {
			l.Add(EventError, fmt.Sprintf("Dashboard %s %s failed: %s", m.Action, m.IP, m.Error))
			return
		}
		l.Add(EventSuccess, fmt.Sprintf("%s %s", actionVerb(m.Action), m.IP))
	})
}

func actionVerb(action Trigger) string {
	switch action {
	case TriggerBlock:
		return "Blocked"
	case TriggerUnblock:
		return "Unblocked"
	case TriggerSafe:
		return "Marked safe"
	default:
		return string(action)
	}
}

// since returns how long ago t was, rounded to seconds. Zero t yields 0.
func since(clock system.Clock, t time.Time) time.Duration {
	if t.IsZero() {
		return 0
	}
	return clock.Since(t).Truncate(time.Second)
}

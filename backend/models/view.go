package models

import "time"

// Phase is the aggregator lifecycle state shown to renderers.
type Phase string

const (
	PhaseUninitialized Phase = "uninitialized"
	PhaseLoading       Phase = "loading"
	PhaseReady         Phase = "ready"
	// PhaseFailed means the first load failed and no data has been committed yet.
	PhaseFailed Phase = "failed"
)

// Loading reports whether the first-load indicator should be shown.
func (p Phase) Loading() bool {
	return p == PhaseLoading
}

// ViewState is the committed dashboard state. Collections are never nil so
// renderers can range over them without checks.
type ViewState struct {
	Phase       Phase            `json:"phase"`
	Generation  uint64           `json:"generation"`
	Stats       StatsSnapshot    `json:"stats"`
	Traffic     []TrafficPoint   `json:"traffic"`
	Suspicious  []IPRecord       `json:"suspicious"`
	Blocked     []IPRecord       `json:"blocked"`
	Activity    []ActivityRecord `json:"activity"`
	LastUpdated time.Time        `json:"last_updated"`
	LastAttempt time.Time        `json:"last_attempt"`
	Stale       bool             `json:"stale"`
	LastError   string           `json:"last_error,omitempty"`
}

// NewViewState returns the empty state held before the first commit.
func NewViewState() ViewState {
	return ViewState{
		Phase:      PhaseUninitialized,
		Traffic:    []TrafficPoint{},
		Suspicious: []IPRecord{},
		Blocked:    []IPRecord{},
		Activity:   []ActivityRecord{},
	}
}

// Clone returns a deep copy so callers cannot mutate the aggregator's state.
func (v ViewState) Clone() ViewState {
	out := v
	out.Traffic = append([]TrafficPoint{}, v.Traffic...)
	out.Suspicious = append([]IPRecord{}, v.Suspicious...)
	out.Blocked = append([]IPRecord{}, v.Blocked...)
	out.Activity = append([]ActivityRecord{}, v.Activity...)
	return out
}

// Outcome classifies how a refresh cycle settled.
type Outcome string

const (
	// OutcomeFresh: all five responses arrived and were committed.
	OutcomeFresh Outcome = "fresh"
	// OutcomeStale: a request failed; prior state retained.
	OutcomeStale Outcome = "stale"
	// OutcomeSuperseded: a newer cycle started before this one finished.
	OutcomeSuperseded Outcome = "superseded"
	// OutcomeCanceled: the aggregator stopped or the caller gave up.
	OutcomeCanceled Outcome = "canceled"
)

package services

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"cwatch-dashboard/backend/errors"
	"cwatch-dashboard/backend/models"
	"cwatch-dashboard/backend/system"
)

// Source is the subset of the CWatch API the aggregator polls and mutates.
// *Client implements it.
type Source interface {
	Stats(ctx context.Context) (models.StatsSnapshot, error)
	TrafficChart(ctx context.Context) ([]models.TrafficPoint, error)
	SuspiciousIPs(ctx context.Context) (models.IPPage, error)
	BlockedIPs(ctx context.Context) (models.IPPage, error)
	RecentActivity(ctx context.Context) ([]models.ActivityRecord, error)
	BlockIP(ctx context.Context, ip string) error
	UnblockIP(ctx context.Context, ip string) error
	MarkSafe(ctx context.Context, ip string) error
}

// Enricher annotates IP records before they are committed.
type Enricher interface {
	Enrich(records []models.IPRecord)
}

// Trigger names what started a refresh.
type Trigger string

const (
	TriggerPoll    Trigger = "poll"
	TriggerManual  Trigger = "manual"
	TriggerBlock   Trigger = "block"
	TriggerUnblock Trigger = "unblock"
	TriggerSafe    Trigger = "safe"
)

// RefreshResult reports how one refresh cycle settled.
type RefreshResult struct {
	Generation uint64         `json:"generation"`
	Trigger    Trigger        `json:"trigger"`
	Outcome    models.Outcome `json:"outcome"`
	Err        error          `json:"-"`
	Error      string         `json:"error,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// Duration is the wall time the cycle took.
func (r RefreshResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// MutationResult reports a block, unblock or mark-safe action and the
// refresh that followed it.
type MutationResult struct {
	Action  Trigger       `json:"action"`
	IP      string        `json:"ip"`
	Err     error         `json:"-"`
	Error   string        `json:"error,omitempty"`
	Refresh RefreshResult `json:"refresh"`
}

// RefreshHook observes every settled refresh together with the state after it.
type RefreshHook func(RefreshResult, models.ViewState)

// MutationHook observes every mutation once its follow-up refresh settled.
type MutationHook func(MutationResult)

// AggregatorOptions configures an Aggregator. Zero values take defaults.
type AggregatorOptions struct {
	Interval time.Duration  // poll cadence, default 30s
	Location *time.Location // chart timezone, default UTC
	Clock    system.Clock   // default RealClock
	Enricher Enricher       // optional
}

// DefaultPollInterval is the dashboard refresh cadence.
const DefaultPollInterval = 30 * time.Second

// Aggregator owns the dashboard view-state. It polls the five dashboard
// endpoints concurrently, commits all five results together, and discards
// cycles that were superseded by a newer one or finished after Stop.
type Aggregator struct {
	source   Source
	clock    system.Clock
	interval time.Duration
	location *time.Location
	enricher Enricher

	generation atomic.Uint64

	mu            sync.RWMutex
	state         models.ViewState
	subs          map[int]chan models.ViewState
	nextSub       int
	refreshHooks  []RefreshHook
	mutationHooks []MutationHook

	rootCtx context.Context
	cancel  context.CancelFunc
	stopped atomic.Bool

	lifeMu  sync.Mutex
	started bool
	done    chan struct{}
}

// NewAggregator creates an aggregator in the Uninitialized phase.
func NewAggregator(source Source, opts AggregatorOptions) *Aggregator {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Clock == nil {
		opts.Clock = system.NewRealClock()
	}

	rootCtx, cancel := context.WithCancel(context.Background())
	return &Aggregator{
		source:   source,
		clock:    opts.Clock,
		interval: opts.Interval,
		location: opts.Location,
		enricher: opts.Enricher,
		state:    models.NewViewState(),
		subs:     make(map[int]chan models.ViewState),
		rootCtx:  rootCtx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Interval returns the poll cadence.
func (a *Aggregator) Interval() time.Duration { return a.interval }

// Generation returns the number of refresh cycles started so far.
func (a *Aggregator) Generation() uint64 { return a.generation.Load() }

// OnRefresh registers a hook. Hooks run synchronously after each cycle settles.
func (a *Aggregator) OnRefresh(h RefreshHook) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.refreshHooks = append(a.refreshHooks, h)
}

// OnMutation registers a hook run after each block, unblock or mark-safe.
func (a *Aggregator) OnMutation(h MutationHook) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mutationHooks = append(a.mutationHooks, h)
}

// State returns a copy of the current view-state.
func (a *Aggregator) State() models.ViewState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.Clone()
}

// Subscribe returns a channel receiving the view-state after every change,
// starting with the current one. Slow readers only see the latest value.
// The channel is closed by cancel or Stop.
func (a *Aggregator) Subscribe() (<-chan models.ViewState, func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ch := make(chan models.ViewState, 1)
	if a.stopped.Load() {
		close(ch)
		return ch, func() {}
	}
	id := a.nextSub
	a.nextSub++
	a.subs[id] = ch
	ch <- a.state.Clone()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.mu.Lock()
			defer a.mu.Unlock()
			if sub, ok := a.subs[id]; ok {
				delete(a.subs, id)
				close(sub)
			}
		})
	}
}

// publish must be called with a.mu held.
func (a *Aggregator) publish() {
	for _, ch := range a.subs {
		snapshot := a.state.Clone()
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}

// Start moves the aggregator to Loading and begins polling: one refresh
// immediately, then one per interval. The loop ends on Stop or when ctx is done.
func (a *Aggregator) Start(ctx context.Context) error {
	a.lifeMu.Lock()
	defer a.lifeMu.Unlock()

	if a.stopped.Load() {
		return errors.New(errors.KindCanceled, "aggregator already stopped")
	}
	if a.started {
		return errors.New(errors.KindValidation, "aggregator already started")
	}
	a.started = true

	a.mu.Lock()
	if a.state.Phase == models.PhaseUninitialized {
		a.state.Phase = models.PhaseLoading
		a.publish()
	}
	a.mu.Unlock()

	context.AfterFunc(ctx, a.Stop)

	go a.loop()
	system.Info("Dashboard aggregator started (interval: %s)", a.interval)
	return nil
}

func (a *Aggregator) loop() {
	defer close(a.done)
	for {
		started := a.clock.Now()
		a.Refresh(a.rootCtx, TriggerPoll)

		wait := a.interval - a.clock.Since(started)
		select {
		case <-a.rootCtx.Done():
			return
		case <-a.clock.After(wait):
		}
	}
}

// Stop cancels the poll loop and every in-flight request. Results that
// settle afterwards are discarded. Subscriber channels are closed.
func (a *Aggregator) Stop() {
	if !a.stopped.CompareAndSwap(false, true) {
		return
	}
	a.cancel()

	a.lifeMu.Lock()
	started := a.started
	a.lifeMu.Unlock()
	if started {
		<-a.done
	}

	a.mu.Lock()
	for id, ch := range a.subs {
		delete(a.subs, id)
		close(ch)
	}
	a.mu.Unlock()
	system.Info("Dashboard aggregator stopped")
}

// Stopped reports whether Stop has been called.
func (a *Aggregator) Stopped() bool { return a.stopped.Load() }

// cycleContext derives a context that ends with ctx or with the aggregator.
func (a *Aggregator) cycleContext(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(ctx)
	stopLink := context.AfterFunc(a.rootCtx, cancel)
	return runCtx, func() {
		stopLink()
		cancel()
	}
}

type cycleData struct {
	stats      models.StatsSnapshot
	traffic    []models.TrafficPoint
	suspicious models.IPPage
	blocked    models.IPPage
	activity   []models.ActivityRecord
}

// fetchAll issues the five requests concurrently. The first failure cancels
// the others and is returned.
func (a *Aggregator) fetchAll(ctx context.Context) (cycleData, error) {
	var d cycleData
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		d.stats, err = a.source.Stats(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.traffic, err = a.source.TrafficChart(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.suspicious, err = a.source.SuspiciousIPs(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.blocked, err = a.source.BlockedIPs(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.activity, err = a.source.RecentActivity(gctx)
		return err
	})

	return d, g.Wait()
}

// Refresh runs one poll cycle and returns how it settled. Either all five
// collections are replaced or none is.
func (a *Aggregator) Refresh(ctx context.Context, trigger Trigger) RefreshResult {
	gen := a.generation.Add(1)
	res := RefreshResult{
		Generation: gen,
		Trigger:    trigger,
		StartedAt:  a.clock.Now(),
	}

	if a.stopped.Load() {
		res.Outcome = models.OutcomeCanceled
		res.Err = errors.New(errors.KindCanceled, "aggregator stopped")
		res.Error = res.Err.Error()
		res.FinishedAt = res.StartedAt
		return a.settle(res, false)
	}

	runCtx, cancel := a.cycleContext(ctx)
	defer cancel()

	data, err := a.fetchAll(runCtx)

	if err == nil && a.enricher != nil && gen == a.generation.Load() {
		a.enricher.Enrich(data.suspicious.Data)
		a.enricher.Enrich(data.blocked.Data)
	}
	res.FinishedAt = a.clock.Now()

	a.mu.Lock()
	changed := false
	switch {
	case a.stopped.Load():
		res.Outcome = models.OutcomeCanceled
	case gen != a.generation.Load():
		res.Outcome = models.OutcomeSuperseded
	case err != nil && stderrors.Is(runCtx.Err(), context.Canceled):
		res.Outcome = models.OutcomeCanceled
	case err != nil:
		res.Outcome = models.OutcomeStale
		a.markStale(res.StartedAt, err)
		changed = true
	default:
		res.Outcome = models.OutcomeFresh
		a.commit(gen, res, data)
		changed = true
	}
	if changed {
		a.publish()
	}
	a.mu.Unlock()

	if err != nil {
		res.Err = err
		res.Error = err.Error()
	}
	return a.settle(res, true)
}

// commit must be called with a.mu held.
func (a *Aggregator) commit(gen uint64, res RefreshResult, d cycleData) {
	a.state = models.ViewState{
		Phase:       models.PhaseReady,
		Generation:  gen,
		Stats:       d.stats,
		Traffic:     BuildTrafficSeries(d.traffic, res.FinishedAt.In(a.location)),
		Suspicious:  nonNilRecords(d.suspicious.Data),
		Blocked:     nonNilRecords(d.blocked.Data),
		Activity:    nonNilActivity(d.activity),
		LastUpdated: res.FinishedAt,
		LastAttempt: res.StartedAt,
	}
}

// markStale keeps the committed collections and records the failure.
// Must be called with a.mu held.
func (a *Aggregator) markStale(attempt time.Time, err error) {
	if a.state.Phase != models.PhaseReady {
		a.state.Phase = models.PhaseFailed
	}
	a.state.Stale = true
	a.state.LastError = err.Error()
	a.state.LastAttempt = attempt
}

func (a *Aggregator) settle(res RefreshResult, log bool) RefreshResult {
	if log {
		switch res.Outcome {
		case models.OutcomeStale:
			system.WithFields(map[string]interface{}{
				"generation": res.Generation,
				"trigger":    res.Trigger,
				"kind":       errors.GetKind(res.Err).String(),
			}).Warnf("Dashboard refresh failed, keeping previous data: %v", res.Err)
		case models.OutcomeSuperseded:
			system.Debug("Dashboard refresh %d superseded, result discarded", res.Generation)
		case models.OutcomeCanceled:
			system.Debug("Dashboard refresh %d canceled", res.Generation)
		}
	}

	a.mu.RLock()
	hooks := append([]RefreshHook(nil), a.refreshHooks...)
	state := a.state.Clone()
	a.mu.RUnlock()

	for _, h := range hooks {
		h(res, state)
	}
	return res
}

// Block asks the API to block ip, then refreshes exactly once whatever the
// mutation returned.
func (a *Aggregator) Block(ctx context.Context, ip string) MutationResult {
	return a.mutate(ctx, TriggerBlock, ip, a.source.BlockIP)
}

// Unblock asks the API to unblock ip, then refreshes exactly once.
func (a *Aggregator) Unblock(ctx context.Context, ip string) MutationResult {
	return a.mutate(ctx, TriggerUnblock, ip, a.source.UnblockIP)
}

// MarkSafe asks the API to mark ip verified, then refreshes exactly once.
func (a *Aggregator) MarkSafe(ctx context.Context, ip string) MutationResult {
	return a.mutate(ctx, TriggerSafe, ip, a.source.MarkSafe)
}

func (a *Aggregator) mutate(ctx context.Context, action Trigger, ip string, call func(context.Context, string) error) MutationResult {
	result := MutationResult{Action: action, IP: ip}

	runCtx, cancel := a.cycleContext(ctx)
	err := call(runCtx, ip)
	cancel()

	if err != nil {
		err = errors.Attr(err, "ip", ip)
		result.Err = err
		result.Error = err.Error()
		system.Warn("Dashboard %s %s failed: %v", action, ip, err)
	} else {
		system.Info("Dashboard %s %s accepted", action, ip)
	}

	result.Refresh = a.Refresh(ctx, action)

	a.mu.RLock()
	hooks := append([]MutationHook(nil), a.mutationHooks...)
	a.mu.RUnlock()
	for _, h := range hooks {
		h(result)
	}
	return result
}

func nonNilRecords(in []models.IPRecord) []models.IPRecord {
	if in == nil {
		return []models.IPRecord{}
	}
	return in
}

func nonNilActivity(in []models.ActivityRecord) []models.ActivityRecord {
	if in == nil {
		return []models.ActivityRecord{}
	}
	return in
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	hclog "github.com/hashicorp/go-hclog"

	"recall/internal/modules/stats/domain"
	statsdto "recall/internal/modules/stats/dto"
	statsin "recall/internal/modules/stats/port/in"
	statsout "recall/internal/modules/stats/port/out"
	"recall/internal/modules/stats/service"
	"recall/internal/platform/clock"
	apperrors "recall/internal/platform/errors"
	"recall/internal/platform/id"
	"recall/internal/platform/logging"
)

const DefaultRefreshInterval = 30 * time.Second

type CoordinatorOptions struct {
	UserID string
	// RefreshInterval is both the fallback timer period and the staleness
	// threshold that makes a tick force a fetch.
	RefreshInterval time.Duration
	// Debounce coalesces bursts of pushes. Zero applies every push.
	Debounce  time.Duration
	Period    statsdto.PeriodInput
	NewTicker clock.TickerFactory
	Log       hclog.Logger
}

type (
	fetchDone struct {
		gen  uint64
		snap domain.Snapshot
		err  error
	}
	subscribed struct {
		gen         uint64
		sub         *subscription
		unsubscribe func()
		err         error
	}
	pushed struct {
		gen  uint64
		snap domain.Snapshot
	}
	periodChange struct {
		period domain.Period
		custom *domain.DateRange
		reply  chan struct{}
	}
	recordNew struct {
		sample domain.Sample
		reply  chan struct{}
	}
)

// subscription pairs a remote unsubscribe with a channel that releases any
// push still waiting to be delivered to the loop.
type subscription struct {
	released    chan struct{}
	unsubscribe func()
	once        sync.Once
}

func (s *subscription) release() {
	s.once.Do(func() {
		close(s.released)
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
	})
}

// SyncCoordinator keeps one user's view live. All mutable state below the
// loop marker is owned by the run goroutine.
type SyncCoordinator struct {
	source    statsout.SessionSource
	sink      statsout.StatsSink
	svc       *service.StatsService
	clock     clock.Clock
	ids       id.Generator
	newTicker clock.TickerFactory
	userID    string
	interval  time.Duration
	debounce  time.Duration
	log       hclog.Logger

	events  chan any
	closing chan struct{}
	stopped chan struct{}
	latest  atomic.Pointer[statsdto.StatsOutput]

	mu      sync.Mutex
	started bool
	closed  bool
	cancel  context.CancelFunc

	// loop
	period        domain.Period
	custom        *domain.DateRange
	snap          domain.Snapshot
	gen           uint64
	lastPublish   time.Time
	sub           *subscription
	subscribing   bool
	subscribeFail int
	ticker        clock.Ticker
	pending       *domain.Snapshot
	debounceTimer *time.Timer
	debounceC     <-chan time.Time
}

func NewSyncCoordinator(source statsout.SessionSource, sink statsout.StatsSink, svc *service.StatsService, clk clock.Clock, ids id.Generator, opts CoordinatorOptions) (statsin.Coordinator, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: session source is required", apperrors.ErrInvalidInput)
	}
	period, custom, err := parsePeriod(opts.Period)
	if err != nil {
		return nil, err
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	if opts.NewTicker == nil {
		opts.NewTicker = clock.NewSystemTicker
	}
	if svc == nil {
		svc = service.NewStatsService(opts.Log)
	}
	return &SyncCoordinator{
		source:    source,
		sink:      sink,
		svc:       svc,
		clock:     clk,
		ids:       ids,
		newTicker: opts.NewTicker,
		userID:    opts.UserID,
		interval:  opts.RefreshInterval,
		debounce:  opts.Debounce,
		log:       logging.OrNull(opts.Log).Named("coordinator"),
		events:    make(chan any),
		closing:   make(chan struct{}),
		stopped:   make(chan struct{}),
		period:    period,
		custom:    custom,
		snap:      emptyFallback(),
	}, nil
}

// Start runs the initial fetch and publish, then opens the live
// subscription. It returns without waiting for either.
func (c *SyncCoordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return apperrors.ErrCoordinatorClosed
	}
	if c.started {
		return fmt.Errorf("%w: coordinator already started", apperrors.ErrInvalidInput)
	}
	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.started = true
	go c.run(loopCtx)
	return nil
}

// SetPeriod recomputes from the held records right away, then tears down and
// re-establishes the fetch, subscription and timer for the new period.
func (c *SyncCoordinator) SetPeriod(ctx context.Context, input statsdto.PeriodInput) error {
	period, custom, err := parsePeriod(input)
	if err != nil {
		return err
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return apperrors.ErrCoordinatorClosed
	}
	if !c.started {
		c.period, c.custom = period, custom
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	reply := make(chan struct{})
	if err := c.deliver(ctx, periodChange{period: period, custom: custom, reply: reply}); err != nil {
		return err
	}
	return c.await(reply)
}

// RecordNewSession shows the record in the published view before it is
// persisted. The returned error reports only the durable write.
func (c *SyncCoordinator) RecordNewSession(ctx context.Context, input statsdto.RecordInput) (statsdto.RecordOutput, error) {
	if err := validateRecord(input); err != nil {
		return statsdto.RecordOutput{}, err
	}
	c.mu.Lock()
	closed, started := c.closed, c.started
	c.mu.Unlock()
	if closed {
		return statsdto.RecordOutput{}, apperrors.ErrCoordinatorClosed
	}
	if !started {
		return statsdto.RecordOutput{}, fmt.Errorf("%w: coordinator not started", apperrors.ErrInvalidInput)
	}

	ts := input.Timestamp
	if ts.IsZero() {
		ts = c.clock.Now()
	}
	sample := domain.Sample{
		ID:        c.ids.New(),
		Category:  input.Category,
		Total:     input.TotalQuestions,
		Correct:   input.CorrectAnswers,
		Skipped:   input.Skipped,
		TotalTime: input.TotalTime,
		Timestamp: truncateMillis(ts),
	}

	reply := make(chan struct{})
	if err := c.deliver(ctx, recordNew{sample: sample, reply: reply}); err != nil {
		return statsdto.RecordOutput{}, err
	}
	if err := c.await(reply); err != nil {
		return statsdto.RecordOutput{}, err
	}

	out := statsdto.RecordOutput{ID: sample.ID, Timestamp: sample.Timestamp}
	remoteOK, err := c.source.Record(ctx, sample)
	out.RemoteAccepted = remoteOK
	if err != nil {
		c.log.Warn("persist new session failed", "user", c.userID, "record", sample.ID, "error", err)
		return out, fmt.Errorf("persist session: %w", err)
	}
	return out, nil
}

func (c *SyncCoordinator) Current() (statsdto.StatsOutput, bool) {
	out := c.latest.Load()
	if out == nil {
		return statsdto.StatsOutput{}, false
	}
	return *out, true
}

// Dispose stops the loop and waits for it. No publish happens after Dispose
// returns. Safe to call more than once.
func (c *SyncCoordinator) Dispose() {
	c.mu.Lock()
	first := !c.closed
	c.closed = true
	started := c.started
	c.mu.Unlock()
	if first {
		close(c.closing)
	}
	if started {
		<-c.stopped
	}
}

func (c *SyncCoordinator) deliver(ctx context.Context, ev any) error {
	select {
	case c.events <- ev:
		return nil
	case <-c.closing:
		return apperrors.ErrCoordinatorClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *SyncCoordinator) await(reply <-chan struct{}) error {
	select {
	case <-reply:
		return nil
	case <-c.stopped:
		return apperrors.ErrCoordinatorClosed
	}
}

// send is used by background goroutines; it gives up once the coordinator
// closes or the optional release channel fires.
func (c *SyncCoordinator) send(ev any, release <-chan struct{}) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.closing:
		return false
	case <-release:
		return false
	}
}

func (c *SyncCoordinator) run(ctx context.Context) {
	defer close(c.stopped)
	c.restart(ctx)
	for {
		var tick <-chan time.Time
		if c.ticker != nil {
			tick = c.ticker.C()
		}
		select {
		case <-c.closing:
			c.teardown()
			return
		case ev := <-c.events:
			if c.isClosing() {
				if ev, ok := ev.(subscribed); ok {
					ev.sub.unsubscribe = ev.unsubscribe
					ev.sub.release()
				}
				c.teardown()
				return
			}
			c.handle(ctx, ev)
		case <-tick:
			c.onTick(ctx)
		case <-c.debounceC:
			c.flushPending(ctx)
		}
	}
}

func (c *SyncCoordinator) isClosing() bool {
	select {
	case <-c.closing:
		return true
	default:
		return false
	}
}

func (c *SyncCoordinator) handle(ctx context.Context, ev any) {
	switch ev := ev.(type) {
	case fetchDone:
		c.onFetch(ctx, ev)
	case subscribed:
		c.onSubscribed(ev)
	case pushed:
		c.onPush(ctx, ev)
	case periodChange:
		c.period, c.custom = ev.period, ev.custom
		c.publish(ctx)
		c.restart(ctx)
		close(ev.reply)
	case recordNew:
		samples := make([]domain.Sample, 0, len(c.snap.Samples)+1)
		samples = append(samples, ev.sample)
		samples = append(samples, c.snap.Samples...)
		c.snap.Samples = samples
		c.publish(ctx)
		close(ev.reply)
	}
}

// restart invalidates in-flight work and begins a fresh fetch with a new
// timer. The subscription is reopened once that fetch lands.
func (c *SyncCoordinator) restart(ctx context.Context) {
	c.gen++
	c.cancelSubscription()
	c.subscribing = false
	c.clearPending()
	if c.ticker != nil {
		c.ticker.Stop()
	}
	c.ticker = c.newTicker(c.interval)
	c.startFetch(ctx)
}

func (c *SyncCoordinator) teardown() {
	c.cancelSubscription()
	c.clearPending()
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	c.log.Debug("coordinator stopped", "user", c.userID)
}

func (c *SyncCoordinator) startFetch(ctx context.Context) {
	gen := c.gen
	period := string(c.period)
	go func() {
		snap, err := c.source.Fetch(ctx, period)
		c.send(fetchDone{gen: gen, snap: snap, err: err}, nil)
	}()
}

func (c *SyncCoordinator) onFetch(ctx context.Context, ev fetchDone) {
	if ev.gen != c.gen {
		c.log.Debug("discarding stale fetch", "gen", ev.gen, "current", c.gen)
		return
	}
	if ev.err != nil {
		if errors.Is(ev.err, context.Canceled) {
			return
		}
		c.log.Warn("fetch failed, publishing empty fallback", "user", c.userID, "error", ev.err)
		c.snap = emptyFallback()
	} else {
		c.snap = ev.snap
	}
	c.publish(ctx)
	if c.sub == nil && !c.subscribing {
		c.startSubscribe(ctx)
	}
}

func (c *SyncCoordinator) startSubscribe(ctx context.Context) {
	c.subscribing = true
	gen := c.gen
	sub := &subscription{released: make(chan struct{})}
	go func() {
		unsubscribe, err := c.source.Subscribe(ctx, func(snap domain.Snapshot) {
			c.send(pushed{gen: gen, snap: snap}, sub.released)
		})
		if !c.send(subscribed{gen: gen, sub: sub, unsubscribe: unsubscribe, err: err}, nil) {
			sub.unsubscribe = unsubscribe
			sub.release()
		}
	}()
}

func (c *SyncCoordinator) onSubscribed(ev subscribed) {
	ev.sub.unsubscribe = ev.unsubscribe
	if ev.gen != c.gen {
		ev.sub.release()
		return
	}
	c.subscribing = false
	if ev.err != nil {
		c.subscribeFail++
		if c.subscribeFail == 1 {
			c.log.Warn("live subscription unavailable, relying on refresh timer", "user", c.userID, "error", ev.err)
		} else {
			c.log.Debug("live subscription still unavailable", "user", c.userID, "attempts", c.subscribeFail)
		}
		ev.sub.release()
		return
	}
	c.subscribeFail = 0
	c.sub = ev.sub
	c.log.Debug("live subscription open", "user", c.userID)
}

func (c *SyncCoordinator) cancelSubscription() {
	if c.sub == nil {
		return
	}
	c.sub.release()
	c.sub = nil
}

func (c *SyncCoordinator) onPush(ctx context.Context, ev pushed) {
	if ev.gen != c.gen {
		return
	}
	snap := liveSnapshot(ev.snap)
	if c.debounce <= 0 {
		c.snap = snap
		c.publish(ctx)
		return
	}
	c.pending = &snap
	if c.debounceTimer == nil {
		c.debounceTimer = time.NewTimer(c.debounce)
		c.debounceC = c.debounceTimer.C
	}
}

func (c *SyncCoordinator) flushPending(ctx context.Context) {
	c.debounceTimer = nil
	c.debounceC = nil
	if c.pending == nil {
		return
	}
	c.snap = *c.pending
	c.pending = nil
	c.publish(ctx)
}

func (c *SyncCoordinator) clearPending() {
	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
	}
	c.debounceTimer = nil
	c.debounceC = nil
	c.pending = nil
}

func (c *SyncCoordinator) onTick(ctx context.Context) {
	since := c.clock.Now().Sub(c.lastPublish)
	if since < c.interval {
		return
	}
	c.log.Debug("no publish within refresh interval, forcing fetch", "user", c.userID, "since", since)
	c.startFetch(ctx)
}

func (c *SyncCoordinator) publish(ctx context.Context) {
	now := c.clock.Now()
	view := c.svc.Build(c.snap, c.period, c.custom, now)
	out := toOutput(view, c.userID)
	c.lastPublish = now
	c.latest.Store(&out)
	c.log.Debug("published stats", "user", c.userID, "period", out.Period, "source", out.DataSource, "records", out.RecordCount)
	if c.sink == nil {
		return
	}
	if err := c.sink.OnStatsUpdated(ctx, out); err != nil {
		c.log.Warn("stats sink failed", "user", c.userID, "error", err)
	}
}

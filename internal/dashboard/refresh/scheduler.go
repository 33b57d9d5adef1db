// Package refresh runs the consult/fetch/normalize cycle and keeps the
// last-known-good trip list. After the first successful consult a ticker
// repeats the cycle on the configured interval.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tripdesk/internal/common/config"
	"github.com/tripdesk/internal/common/logger"
	"github.com/tripdesk/internal/common/publisher"
	"github.com/tripdesk/internal/dashboard/query"
	"github.com/tripdesk/internal/dashboard/table"
	"github.com/tripdesk/internal/dashboard/trip"
	"github.com/tripdesk/internal/dashboard/viewstate"
	"github.com/tripdesk/internal/planning/catalog"
	"github.com/tripdesk/pkg/planning/models"
)

const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultInvalid = "invalid"
	ResultStale   = "stale"

	alertTimeout = 10 * time.Second
)

var (
	// ErrSuperseded is returned when a view-state change invalidated the cycle
	ErrSuperseded = errors.New("refresh superseded by a newer view state")
	// ErrCycleInFlight is returned by Tick when the previous cycle is still running
	ErrCycleInFlight = errors.New("refresh cycle already in flight")
)

type Fetcher interface {
	QueryTrips(ctx context.Context, req models.QueryRequest) (models.QueryResponse, error)
}

type RequestBuilder interface {
	Build(f viewstate.Filters, cat catalog.Catalog) (query.Request, error)
}

type CatalogSource interface {
	Current() catalog.Catalog
}

// ViewState is the part of viewstate.Store the scheduler reads and watches
type ViewState interface {
	Filters() viewstate.Filters
	Subscribe(fn viewstate.Listener) func()
}

type Publisher interface {
	PublishRefresh(ev publisher.RefreshEvent) error
}

type Alerter interface {
	Enabled() bool
	SendAlert(ctx context.Context, level, title, message string, fields map[string]interface{}) error
}

type Metrics interface {
	RefreshObserve(result string, d time.Duration)
	TickDroppedInc()
	TripsSet(n int, degraded bool)
}

type nopMetrics struct{}

func (nopMetrics) RefreshObserve(string, time.Duration) {}
func (nopMetrics) TickDroppedInc()                      {}
func (nopMetrics) TripsSet(int, bool)                   {}

// State is a copy of what the table shows
type State struct {
	Trips       []trip.Trip  `json:"trips"`
	Loading     bool         `json:"loading"`
	Error       string       `json:"error,omitempty"`
	Degraded    bool         `json:"degraded"`
	LastUpdate  time.Time    `json:"lastUpdate"`
	HasSearched bool         `json:"hasSearched"`
	Scope       string       `json:"scope,omitempty"`
	Window      query.Window `json:"window"`
	RealTime    bool         `json:"realTime"`
}

type Scheduler struct {
	config     config.RefreshConfig
	fetcher    Fetcher
	builder    RequestBuilder
	catalog    CatalogSource
	view       ViewState
	normalizer *trip.Normalizer
	logger     logger.Logger
	metrics    Metrics
	publisher  Publisher
	alerter    Alerter
	now        func() time.Time

	mu             sync.RWMutex
	state          State
	generation     uint64
	cancelInFlight context.CancelFunc
	succeeded      bool
	failures       int
	alerted        bool

	isRunning     bool
	tickerStarted bool
	runCtx        context.Context
	cancelFn      context.CancelFunc
	unsubscribe   func()
}

type Option func(*Scheduler)

func WithMetrics(m Metrics) Option {
	return func(s *Scheduler) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithPublisher(p Publisher) Option {
	return func(s *Scheduler) { s.publisher = p }
}

func WithAlerter(a Alerter) Option {
	return func(s *Scheduler) { s.alerter = a }
}

func WithNow(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func NewScheduler(
	cfg config.RefreshConfig,
	fetcher Fetcher,
	builder RequestBuilder,
	cat CatalogSource,
	view ViewState,
	normalizer *trip.Normalizer,
	log logger.Logger,
	opts ...Option,
) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	s := &Scheduler{
		config:     cfg,
		fetcher:    fetcher,
		builder:    builder,
		catalog:    cat,
		view:       view,
		normalizer: normalizer,
		logger:     log,
		metrics:    nopMetrics{},
		now:        time.Now,
		state:      State{Trips: []trip.Trip{}},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.unsubscribe = view.Subscribe(func(c viewstate.Change, _ viewstate.Snapshot) {
		if c == viewstate.ChangeFilters {
			s.invalidate()
		}
	})
	return s
}

// Start arms the ticker. It begins firing once a consult has succeeded.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("refresh scheduler is already running")
	}

	s.runCtx, s.cancelFn = context.WithCancel(ctx)
	s.isRunning = true
	s.logger.Info("Starting refresh scheduler", "interval", s.config.Interval)

	if s.succeeded {
		s.startTickerLocked()
	}
	return nil
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	s.logger.Info("Stopping refresh scheduler")
	if s.cancelFn != nil {
		s.cancelFn()
	}
	s.generation++
	if s.cancelInFlight != nil {
		s.cancelInFlight()
		s.cancelInFlight = nil
	}
	s.state.Loading = false
	s.isRunning = false
	s.tickerStarted = false
}

// Close stops the scheduler and detaches it from the view state
func (s *Scheduler) Close() {
	s.Stop()
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning && s.tickerStarted
}

// startTickerLocked must be called with mu held
func (s *Scheduler) startTickerLocked() {
	if !s.isRunning || s.tickerStarted {
		return
	}
	s.tickerStarted = true
	go s.loop(s.runCtx)
}

func (s *Scheduler) loop(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Refresh loop stopping")
			return
		case <-ticker.C:
			go func() {
				if err := s.Tick(ctx); err != nil && !errors.Is(err, ErrCycleInFlight) {
					s.logger.Warn("Scheduled refresh failed", "error", err)
				}
			}()
		}
	}
}

// Consult runs one cycle on demand. Validation errors leave the state as it
// was and do not start the ticker.
func (s *Scheduler) Consult(ctx context.Context) error {
	req, err := s.build()
	if err != nil {
		s.metrics.RefreshObserve(ResultInvalid, 0)
		return err
	}

	if err := s.run(ctx, req, false); err != nil {
		return err
	}

	s.mu.Lock()
	s.startTickerLocked()
	s.mu.Unlock()
	return nil
}

// Tick runs one timer cycle. A tick that finds a cycle in flight is dropped.
func (s *Scheduler) Tick(ctx context.Context) error {
	s.mu.RLock()
	busy := s.state.Loading
	s.mu.RUnlock()
	if busy {
		s.metrics.TickDroppedInc()
		s.logger.Debug("Dropping refresh tick, cycle in flight")
		return ErrCycleInFlight
	}

	req, err := s.build()
	if err != nil {
		s.metrics.RefreshObserve(ResultInvalid, 0)
		s.mu.Lock()
		s.state.Error = err.Error()
		s.state.Loading = false
		s.mu.Unlock()
		return err
	}

	return s.run(ctx, req, true)
}

func (s *Scheduler) build() (query.Request, error) {
	return s.builder.Build(s.view.Filters(), s.catalog.Current())
}

func (s *Scheduler) run(ctx context.Context, req query.Request, tick bool) error {
	s.mu.Lock()
	if tick && s.state.Loading {
		s.mu.Unlock()
		s.metrics.TickDroppedInc()
		return ErrCycleInFlight
	}
	if s.cancelInFlight != nil {
		s.cancelInFlight()
	}
	s.generation++
	gen := s.generation
	fetchCtx, cancel := context.WithCancel(ctx)
	s.cancelInFlight = cancel
	s.state.Loading = true
	s.mu.Unlock()
	defer cancel()

	start := time.Now()
	resp, err := s.fetcher.QueryTrips(fetchCtx, req.Payload)
	duration := time.Since(start)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.metrics.RefreshObserve(ResultStale, duration)
		s.logger.Debug("Discarding stale refresh result", "scope", req.Scope)
		return ErrSuperseded
	}
	s.cancelInFlight = nil

	if err != nil {
		s.failLocked(err)
		alert := s.shouldAlertLocked()
		failures := s.failures
		s.mu.Unlock()

		s.metrics.RefreshObserve(ResultError, duration)
		s.logger.Error("Refresh failed", "error", err, "scope", req.Scope, "tick", tick, "consecutive_failures", failures)
		if alert {
			s.sendAlert("ERROR", "Trip refresh failing",
				fmt.Sprintf("%d consecutive refresh failures", failures),
				map[string]interface{}{"scope": req.Scope, "error": err.Error()})
		}
		return fmt.Errorf("fetching trips: %w", err)
	}

	trips := s.normalizer.Normalize(resp.Viagens, s.view.Filters().Consortium)
	recovered := s.alerted
	s.state = State{
		Trips:       trips,
		LastUpdate:  s.now(),
		HasSearched: true,
		Scope:       req.Scope,
		Window:      req.Window,
		RealTime:    req.RealTime,
	}
	s.succeeded = true
	s.failures = 0
	s.alerted = false
	s.mu.Unlock()

	s.metrics.RefreshObserve(ResultSuccess, duration)
	s.metrics.TripsSet(len(trips), false)
	s.logger.Info("Refreshed trips", "scope", req.Scope, "trips", len(trips), "tick", tick, "duration", duration)

	s.publish(req, trips)
	if recovered {
		s.sendAlert("RECOVERED", "Trip refresh recovered", "Refresh succeeded again",
			map[string]interface{}{"scope": req.Scope, "trips": len(trips)})
	}
	return nil
}

// failLocked keeps the previous list. Demo trips stand in only when no cycle
// ever succeeded.
func (s *Scheduler) failLocked(err error) {
	s.state.Loading = false
	s.state.HasSearched = true
	s.state.Error = err.Error()
	s.failures++

	if !s.succeeded && s.config.FallbackDemo {
		s.state.Trips = trip.DemoTrips()
		s.state.Degraded = true
		s.metrics.TripsSet(len(s.state.Trips), true)
	}
}

func (s *Scheduler) shouldAlertLocked() bool {
	if s.alerter == nil || !s.alerter.Enabled() || s.alerted {
		return false
	}
	if s.config.AlertAfterFailures <= 0 || s.failures < s.config.AlertAfterFailures {
		return false
	}
	s.alerted = true
	return true
}

func (s *Scheduler) sendAlert(level, title, message string, fields map[string]interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), alertTimeout)
	defer cancel()
	if err := s.alerter.SendAlert(ctx, level, title, message, fields); err != nil {
		s.logger.Warn("Failed to send alert", "error", err, "title", title)
	}
}

func (s *Scheduler) publish(req query.Request, trips []trip.Trip) {
	if s.publisher == nil {
		return
	}
	counts := table.Counts(trips)
	ev := publisher.RefreshEvent{
		Scope:       req.Scope,
		Trips:       len(trips),
		InProgress:  counts[table.StatusTab(trip.StatusInProgress)],
		Completed:   counts[table.StatusTab(trip.StatusPlannedAndCompleted)],
		NotStarted:  counts[table.StatusTab(trip.StatusNotStarted)],
		RealTime:    req.RealTime,
		WindowStart: req.Window.Start,
		WindowEnd:   req.Window.End,
		Timestamp:   s.now(),
	}
	if err := s.publisher.PublishRefresh(ev); err != nil {
		s.logger.Warn("Failed to publish refresh event", "error", err, "scope", req.Scope)
	}
}

// invalidate abandons the cycle in flight, if any
func (s *Scheduler) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	if s.cancelInFlight != nil {
		s.cancelInFlight()
		s.cancelInFlight = nil
	}
	s.state.Loading = false
}

// State returns a copy of the current table data
func (s *Scheduler) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.state
	st.Trips = make([]trip.Trip, len(s.state.Trips))
	copy(st.Trips, s.state.Trips)
	return st
}

func (s *Scheduler) GetStatus() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"is_running":           s.isRunning,
		"ticker_started":       s.tickerStarted,
		"interval":             s.config.Interval.String(),
		"generation":           s.generation,
		"has_succeeded":        s.succeeded,
		"consecutive_failures": s.failures,
		"loading":              s.state.Loading,
		"last_update":          s.state.LastUpdate,
	}
}

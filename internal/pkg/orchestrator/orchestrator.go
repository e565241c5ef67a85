// Package orchestrator drives the questions asked to the analysis service.
//
// It routes each question to the backend entry point matching the active view, normalizes the answer,
// infers the chart series and keeps the resulting [State]. Only the most recent submission may settle
// the visible state.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/fredbi/insightviz/internal/pkg/binding"
	"github.com/fredbi/insightviz/internal/pkg/history"
	"github.com/fredbi/insightviz/internal/pkg/insight"
	"github.com/fredbi/insightviz/internal/pkg/settings"
)

// SentinelQuery is the question re-submitted when the default time range changes on the KPI overview.
const SentinelQuery = "revenue"

var (
	// ErrEmptyQuery is returned when submitting a blank question.
	ErrEmptyQuery = errors.New("empty query")

	// ErrViewNotQueryable is returned when submitting from a view that does not accept questions.
	ErrViewNotQueryable = errors.New("view does not accept queries")

	// ErrUnknownView is returned for an unknown view name.
	ErrUnknownView = errors.New("unknown view")

	// ErrSuperseded is returned when a newer submission started before this one settled.
	// Its answer has been discarded.
	ErrSuperseded = errors.New("query superseded by a newer submission")

	// ErrClosed is returned after [Orchestrator.Close].
	ErrClosed = errors.New("orchestrator closed")
)

// Analyzer is the analysis service.
type Analyzer interface {
	Analyze(ctx context.Context, query string) (insight.Response, error)
	AnalyzeView(ctx context.Context, view, query, timeRange string) (insight.Response, error)
}

// SettingsSource provides the current settings and their changes.
type SettingsSource interface {
	Get() settings.Settings
	Subscribe(fn settings.Listener) (unsubscribe func())
}

// Recorder keeps track of settled questions.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

type request struct {
	generation uint64
	view       View
	query      string
	timeRange  settings.TimeRange
	record     bool
}

// Orchestrator owns the query [State].
type Orchestrator struct {
	options

	analyzer    Analyzer
	settings    SettingsSource
	unsubscribe func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	state      State
	generation uint64
	closed     bool
}

// New builds an [Orchestrator] and subscribes it to settings changes.
func New(analyzer Analyzer, source SettingsSource, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		options:  optionsWithDefaults(opts),
		analyzer: analyzer,
		settings: source,
	}

	o.ctx, o.cancel = context.WithCancel(context.Background())
	o.state = State{
		View:   o.view,
		Phase:  PhaseIdle,
		Series: o.series,
	}
	o.unsubscribe = source.Subscribe(o.onSettingsChange)

	return o
}

// State returns a snapshot of the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.state.clone()
}

// SetView changes the active view. The current results are kept.
func (o *Orchestrator) SetView(v View) error {
	if !v.IsValid() {
		return ErrUnknownView
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state.View != v {
		o.l.Debug("view changed", slog.String("from", o.state.View.String()), slog.String("to", v.String()))
	}
	o.state.View = v

	return nil
}

// Submit asks a question from the active view and waits for the answer.
//
// Failures of the analysis service are not returned as errors: they settle the state with
// [PhaseError]. An error is returned when the question cannot be submitted, or with
// [ErrSuperseded] when a newer submission started in the meantime.
func (o *Orchestrator) Submit(ctx context.Context, query string) (State, error) {
	return o.submit(ctx, "", query)
}

// SubmitIn switches to view and asks a question from it, as one step.
//
// A concurrent view change cannot reroute the question. The view is left unchanged when the
// question cannot be submitted.
func (o *Orchestrator) SubmitIn(ctx context.Context, v View, query string) (State, error) {
	if !v.IsValid() {
		return o.State(), ErrUnknownView
	}

	return o.submit(ctx, v, query)
}

func (o *Orchestrator) submit(ctx context.Context, v View, query string) (State, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return o.State(), ErrEmptyQuery
	}

	current := o.settings.Get()

	o.mu.Lock()
	if v == "" {
		v = o.state.View
	}
	req, err := o.beginLocked(v, query, current)
	o.mu.Unlock()
	if err != nil {
		return o.State(), err
	}

	return o.run(ctx, req)
}

// Close stops listening to settings changes and waits for background submissions.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()

		return
	}
	o.closed = true
	o.mu.Unlock()

	o.unsubscribe()
	o.cancel()
	o.wg.Wait()
}

// beginLocked makes v the active view and enters the loading phase.
// Error, outcome and query are reset, the chart series is kept.
func (o *Orchestrator) beginLocked(v View, query string, current settings.Settings) (request, error) {
	if o.closed {
		return request{}, ErrClosed
	}

	if !v.Queryable() {
		return request{}, ErrViewNotQueryable
	}

	if o.state.View != v {
		o.l.Debug("view changed", slog.String("from", o.state.View.String()), slog.String("to", v.String()))
	}
	o.state.View = v
	o.generation++
	o.state.Generation = o.generation
	o.state.Phase = PhaseLoading
	o.state.Query = query
	o.state.Outcome = nil
	o.state.Error = ""

	return request{
		generation: o.generation,
		view:       v,
		query:      query,
		timeRange:  current.DefaultTimeRange,
		record:     current.SaveQueryHistory,
	}, nil
}

func (o *Orchestrator) run(ctx context.Context, req request) (State, error) {
	outcome := o.call(ctx, req)

	o.mu.Lock()
	if req.generation != o.generation {
		latest := o.generation
		snapshot := o.state.clone()
		o.mu.Unlock()

		o.l.Info("discarding stale answer",
			slog.Uint64("generation", req.generation),
			slog.Uint64("latest", latest),
			slog.String("query", req.query),
		)

		return snapshot, ErrSuperseded
	}

	o.state.Phase = phaseOf(outcome.Kind)
	o.state.Outcome = &outcome
	if outcome.Kind == insight.KindError {
		o.state.Error = outcome.Message
	}

	if outcome.Kind == insight.KindSuccess && outcome.Insight != nil {
		series, b := binding.Infer(outcome.Insight.Data, o.state.Series)
		o.state.Series = series
		if b != nil {
			o.state.Binding = b
		}
	}
	snapshot := o.state.clone()
	o.mu.Unlock()

	o.l.Debug("query settled",
		slog.Uint64("generation", req.generation),
		slog.String("view", req.view.String()),
		slog.String("phase", snapshot.Phase.String()),
	)

	if req.record {
		o.record(ctx, req, outcome)
	}

	return snapshot, nil
}

// call routes the question: the KPI overview uses the single-query entry point,
// every other view the view-scoped one with the default time range.
func (o *Orchestrator) call(ctx context.Context, req request) insight.Outcome {
	var (
		resp insight.Response
		err  error
	)

	if req.view == ViewKPIOverview {
		resp, err = o.analyzer.Analyze(ctx, req.query)
	} else {
		resp, err = o.analyzer.AnalyzeView(ctx, req.view.String(), req.query, req.timeRange.String())
	}

	if err != nil {
		o.l.Warn("analysis failed",
			slog.String("view", req.view.String()),
			slog.String("error", err.Error()),
		)

		return insight.Failure(err)
	}

	return insight.Normalize(resp)
}

func (o *Orchestrator) record(ctx context.Context, req request, outcome insight.Outcome) {
	if o.recorder == nil || outcome.Kind == insight.KindError {
		return
	}

	entry := history.Entry{
		Query:      req.query,
		View:       req.view.String(),
		Kind:       string(outcome.Kind),
		Confidence: float64(outcome.Confidence),
	}
	if outcome.Insight != nil {
		entry.Summary = outcome.Insight.Summary
		entry.Rows = outcome.Insight.Rows
	}

	if err := o.recorder.Record(context.WithoutCancel(ctx), entry); err != nil {
		o.l.Warn("could not record query", slog.String("error", err.Error()))
	}
}

// onSettingsChange re-submits the sentinel question when the default time range changes
// on the KPI overview, unless a submission is already loading.
func (o *Orchestrator) onSettingsChange(c settings.Change) {
	if c.Previous.DefaultTimeRange == c.Current.DefaultTimeRange {
		return
	}

	o.mu.Lock()
	if o.closed || o.state.View != ViewKPIOverview || o.state.Loading() {
		o.mu.Unlock()

		return
	}

	req, err := o.beginLocked(ViewKPIOverview, SentinelQuery, c.Current)
	if err != nil {
		o.mu.Unlock()

		return
	}
	o.wg.Add(1)
	o.mu.Unlock()

	o.l.Debug("time range changed: refreshing overview", slog.String("time_range", c.Current.DefaultTimeRange.String()))

	go func() {
		defer o.wg.Done()

		ctx, cancel := context.WithTimeout(o.ctx, o.resubmitTimeout)
		defer cancel()

		_, _ = o.run(ctx, req)
	}()
}

package orchestrator

import (
	"log/slog"
	"time"

	"github.com/fredbi/insightviz/internal/pkg/binding"
)

// Option configures an [Orchestrator].
type Option func(*options)

type options struct {
	view            View
	series          []binding.Point
	recorder        Recorder
	resubmitTimeout time.Duration
	l               *slog.Logger
}

const defaultResubmitTimeout = time.Minute

func optionsWithDefaults(opts []Option) options {
	o := options{
		view:            ViewKPIOverview,
		resubmitTimeout: defaultResubmitTimeout,
		l:               slog.Default().With(slog.String("module", "orchestrator")),
	}

	for _, apply := range opts {
		apply(&o)
	}

	return o
}

// WithView sets the initially active view. Defaults to [ViewKPIOverview].
func WithView(v View) Option {
	return func(o *options) {
		if !v.IsValid() {
			return
		}

		o.view = v
	}
}

// WithInitialSeries sets the chart series shown before any successful answer.
func WithInitialSeries(points []binding.Point) Option {
	return func(o *options) {
		o.series = append([]binding.Point(nil), points...)
	}
}

// WithRecorder records settled questions, when the user enabled the query history.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// WithResubmitTimeout bounds the automatic re-submission triggered by a settings change.
//
// Defaults to 1m.
func WithResubmitTimeout(d time.Duration) Option {
	return func(o *options) {
		if d <= 0 {
			return
		}

		o.resubmitTimeout = d
	}
}

// WithLogger injects a logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l == nil {
			return
		}

		o.l = l
	}
}

package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/fredbi/insightviz/internal/pkg/backend"
	"github.com/fredbi/insightviz/internal/pkg/history"
)

// SavedSource lists the insights saved on the backend.
type SavedSource interface {
	SavedInsights(ctx context.Context) ([]backend.SavedInsight, error)
}

// HistorySource lists the local query history.
type HistorySource interface {
	List(ctx context.Context, limit int) ([]history.Entry, error)
}

// Option configures the web [Server].
type Option func(*options)

type options struct {
	saved          SavedSource
	history        HistorySource
	requestTimeout time.Duration
	l              *slog.Logger
}

const defaultRequestTimeout = 2 * time.Minute

func optionsWithDefaults(opts []Option) options {
	o := options{
		requestTimeout: defaultRequestTimeout,
	}

	for _, apply := range opts {
		apply(&o)
	}

	if o.l == nil {
		o.l = slog.Default().With(slog.String("module", "server"))
	}

	return o
}

// WithSavedInsights exposes the saved insights of the backend.
func WithSavedInsights(source SavedSource) Option {
	return func(o *options) {
		o.saved = source
	}
}

// WithHistory exposes the local query history.
func WithHistory(source HistorySource) Option {
	return func(o *options) {
		o.history = source
	}
}

// WithRequestTimeout bounds the handling of a request, including the backend analysis.
//
// Defaults to 2m.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout <= 0 {
			return
		}

		o.requestTimeout = timeout
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l == nil {
			return
		}

		o.l = l
	}
}

package settings

import (
	"log/slog"
	"time"
)

// Option tunes a [Store].
type Option func(*options)

type options struct {
	debounce       time.Duration
	persistTimeout time.Duration
	onSaveError    func(error)
	l              *slog.Logger
}

const (
	defaultDebounce       = 500 * time.Millisecond
	defaultPersistTimeout = 10 * time.Second
)

func optionsWithDefaults(opts []Option) options {
	o := options{
		debounce:       defaultDebounce,
		persistTimeout: defaultPersistTimeout,
		l:              slog.Default().With(slog.String("module", "settings")),
	}

	for _, apply := range opts {
		apply(&o)
	}

	return o
}

// WithDebounce sets the quiet window after the last mutation before settings are saved.
//
// Defaults to 500ms.
func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		if d <= 0 {
			return
		}

		o.debounce = d
	}
}

// WithPersistTimeout bounds the duration of a debounced save.
//
// Defaults to 10s.
func WithPersistTimeout(d time.Duration) Option {
	return func(o *options) {
		if d <= 0 {
			return
		}

		o.persistTimeout = d
	}
}

// WithSaveErrorHandler registers a callback invoked when a debounced save fails.
func WithSaveErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.onSaveError = fn
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

package console

import (
	"io"
	"os"
	"time"
)

// Option configures the terminal rendering.
type Option func(*options)

type options struct {
	noColor  bool
	maxRows  int
	writer   io.Writer
	interval time.Duration
}

const (
	defaultMaxRows  = 50
	defaultInterval = 100 * time.Millisecond
)

func optionsWithDefaults(opts []Option) options {
	o := options{
		maxRows:  defaultMaxRows,
		writer:   os.Stderr,
		interval: defaultInterval,
	}

	for _, apply := range opts {
		apply(&o)
	}

	return o
}

// WithNoColor disables colored output.
func WithNoColor(disabled bool) Option {
	return func(o *options) {
		o.noColor = disabled
	}
}

// WithMaxRows limits the number of table rows printed. Zero or less prints all rows.
//
// Defaults to 50.
func WithMaxRows(n int) Option {
	return func(o *options) {
		o.maxRows = n
	}
}

// WithSpinnerWriter sets where the spinner is drawn.
//
// Defaults to [os.Stderr].
func WithSpinnerWriter(w io.Writer) Option {
	return func(o *options) {
		if w == nil {
			return
		}

		o.writer = w
	}
}

package backend

import (
	"log/slog"
	"net/http"
	"time"
)

// Option configures a [Client].
type Option func(*options)

type options struct {
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
	l          *slog.Logger
}

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "insightviz"
)

func optionsWithDefaults(opts []Option) options {
	o := options{
		timeout:   defaultTimeout,
		userAgent: defaultUserAgent,
		l:         slog.Default().With(slog.String("module", "backend")),
	}

	for _, apply := range opts {
		apply(&o)
	}

	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: o.timeout}
	}

	return o
}

// WithHTTPClient injects the HTTP client used to reach the backend.
//
// When set, the timeout configured by [WithTimeout] is ignored.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithTimeout sets the timeout of every request.
//
// Defaults to 30s.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout <= 0 {
			return
		}

		o.timeout = timeout
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(agent string) Option {
	return func(o *options) {
		if agent == "" {
			return
		}

		o.userAgent = agent
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

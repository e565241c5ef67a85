// Package server serves the insight dashboard over HTTP.
package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/fredbi/insightviz/internal/pkg/config"
	"github.com/fredbi/insightviz/internal/pkg/model"
	"github.com/fredbi/insightviz/internal/pkg/orchestrator"
	"github.com/fredbi/insightviz/internal/pkg/settings"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

//go:embed templates/*.html.tmpl
var templatesFS embed.FS

// Orchestrator runs the questions asked from the dashboard.
type Orchestrator interface {
	State() orchestrator.State
	SetView(v orchestrator.View) error
	Submit(ctx context.Context, query string) (orchestrator.State, error)
	SubmitIn(ctx context.Context, v orchestrator.View, query string) (orchestrator.State, error)
}

// SettingsStore holds the user preferences.
type SettingsStore interface {
	Get() settings.Settings
	SetAll(raw map[string]any) error
}

// Server is the web dashboard.
type Server struct {
	options

	cfg      *config.Config
	orch     Orchestrator
	settings SettingsStore
	tmpl     *template.Template
}

// New builds a web dashboard [Server].
func New(cfg *config.Config, orch Orchestrator, store SettingsStore, opts ...Option) (*Server, error) {
	tmpl, err := template.New("dashboard").
		Funcs(template.FuncMap{
			"markdown": renderMarkdown,
		}).
		ParseFS(templatesFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	return &Server{
		options:  optionsWithDefaults(opts),
		cfg:      cfg,
		orch:     orch,
		settings: store,
		tmpl:     tmpl,
	}, nil
}

// Handler returns the HTTP routes of the dashboard.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.logRequests)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(s.requestTimeout))

	r.Get("/healthz", s.health)

	// HTML dashboard
	r.Get("/", s.dashboard)
	r.Post("/query", s.submitForm)
	r.Post("/view/{view}", s.switchView)
	r.Get("/chart", s.chart)

	// JSON API
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.state)
		r.Post("/query", s.query)
		r.Get("/settings", s.getSettings)
		r.Post("/settings", s.setSettings)
		r.Get("/saved-insights", s.savedInsights)
		r.Get("/history", s.queryHistory)
	})

	return r
}

// Dashboard builds the view model of the current state.
func (s *Server) Dashboard() model.Dashboard {
	return model.Build(s.cfg, s.orch.State(), s.settings.Get())
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.l.Debug("request served",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("request_id", chimiddleware.GetReqID(r.Context())),
		)
	})
}

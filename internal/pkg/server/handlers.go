package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fredbi/insightviz/internal/pkg/chart"
	"github.com/fredbi/insightviz/internal/pkg/history"
	"github.com/fredbi/insightviz/internal/pkg/kpi"
	"github.com/fredbi/insightviz/internal/pkg/model"
	"github.com/fredbi/insightviz/internal/pkg/orchestrator"
	"github.com/fredbi/insightviz/internal/pkg/settings"
	"github.com/go-chi/chi/v5"
)

const maxRequestBody = 1 << 20

type queryRequest struct {
	Query string `json:"query"`
	View  string `json:"view,omitempty"`
}

type stateResponse struct {
	orchestrator.State

	Cards []kpi.Card `json:"cards"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type viewLink struct {
	Name   string
	Title  string
	Active bool
}

type page struct {
	model.Dashboard

	SummaryHTML template.HTML
	Views       []viewLink
	Queryable   bool
	HasChart    bool
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) dashboard(w http.ResponseWriter, _ *http.Request) {
	d := s.Dashboard()
	p := page{
		Dashboard:   d,
		SummaryHTML: renderMarkdown(d.Summary),
		Queryable:   d.View.Queryable(),
		HasChart:    len(d.Chart.Points) > 0,
	}

	for _, v := range orchestrator.AllViews() {
		p.Views = append(p.Views, viewLink{Name: v.String(), Title: v.Title(), Active: v == d.View})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "dashboard.html.tmpl", p); err != nil {
		s.l.Error("rendering dashboard", slog.String("error", err.Error()))
	}
}

func (s *Server) chart(w http.ResponseWriter, _ *http.Request) {
	page := chart.New(s.cfg, s.Dashboard()).BuildPage()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Render(w); err != nil {
		s.l.Error("rendering chart", slog.String("error", err.Error()))
	}
}

func (s *Server) submitForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)

		return
	}

	_, err := s.orch.Submit(r.Context(), r.PostFormValue("query"))
	if err != nil && !errors.Is(err, orchestrator.ErrSuperseded) {
		http.Error(w, err.Error(), statusOf(err))

		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) switchView(w http.ResponseWriter, r *http.Request) {
	v, err := orchestrator.ParseView(chi.URLParam(r, "view"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)

		return
	}

	if err := s.orch.SetView(v); err != nil {
		http.Error(w, err.Error(), statusOf(err))

		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) state(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.stateResponse(s.orch.State()))
}

func (s *Server) query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decoding query: %w", err))

		return
	}

	var (
		st  orchestrator.State
		err error
	)

	if req.View != "" {
		v, perr := orchestrator.ParseView(req.View)
		if perr != nil {
			s.writeError(w, http.StatusBadRequest, perr)

			return
		}

		st, err = s.orch.SubmitIn(r.Context(), v, req.Query)
	} else {
		st, err = s.orch.Submit(r.Context(), req.Query)
	}
	if err != nil {
		s.writeError(w, statusOf(err), err)

		return
	}

	s.writeJSON(w, http.StatusOK, s.stateResponse(st))
}

func (s *Server) getSettings(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.settings.Get())
}

// setSettings applies a partial update. Nothing is applied when one key or value is invalid.
func (s *Server) setSettings(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&raw); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decoding settings: %w", err))

		return
	}

	if err := s.settings.SetAll(raw); err != nil {
		s.writeError(w, statusOf(err), err)

		return
	}

	s.writeJSON(w, http.StatusOK, s.settings.Get())
}

func (s *Server) savedInsights(w http.ResponseWriter, r *http.Request) {
	if s.saved == nil {
		s.writeError(w, http.StatusNotFound, errors.New("saved insights are not available"))

		return
	}

	saved, err := s.saved.SavedInsights(r.Context())
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)

		return
	}

	s.writeJSON(w, http.StatusOK, saved)
}

func (s *Server) queryHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, http.StatusNotFound, errors.New("query history is disabled"))

		return
	}

	limit := history.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit: %q", raw))

			return
		}
		limit = n
	}

	entries, err := s.history.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)

		return
	}

	s.writeJSON(w, http.StatusOK, entries)
}

func (s *Server) stateResponse(st orchestrator.State) stateResponse {
	d := model.Build(s.cfg, st, s.settings.Get())

	return stateResponse{State: st, Cards: d.Cards}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.l.Warn("writing response", slog.String("error", err.Error()))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.l.Debug("request failed", slog.Int("status", status), slog.String("error", err.Error()))
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, orchestrator.ErrEmptyQuery),
		errors.Is(err, orchestrator.ErrUnknownView),
		errors.Is(err, settings.ErrUnknownSetting),
		errors.Is(err, settings.ErrInvalidValue):
		return http.StatusBadRequest
	case errors.Is(err, orchestrator.ErrViewNotQueryable),
		errors.Is(err, orchestrator.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, orchestrator.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

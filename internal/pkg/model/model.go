// Package model builds the dashboard view model rendered by the console, the web page, the charts and the exports.
package model

import (
	"strings"

	"github.com/fredbi/insightviz/internal/pkg/binding"
	"github.com/fredbi/insightviz/internal/pkg/config"
	"github.com/fredbi/insightviz/internal/pkg/insight"
	"github.com/fredbi/insightviz/internal/pkg/kpi"
	"github.com/fredbi/insightviz/internal/pkg/orchestrator"
	"github.com/fredbi/insightviz/internal/pkg/settings"
)

// Dashboard is everything a renderer shows for the current state.
//
// A [Dashboard] is a pure projection: building it has no side effect.
type Dashboard struct {
	Title     string
	View      orchestrator.View
	ViewTitle string
	Phase     orchestrator.Phase
	Query     string
	Compact   bool
	TimeRange settings.TimeRange

	Cards     []kpi.Card
	Badge     *Badge
	Summary   string
	Rows      int
	Rejection *Rejection
	Error     string
	Table     Table
	Chart     Chart

	// Insight is the canonical insight of a successful answer, or nil.
	Insight *insight.Canonical
}

// Loading reports whether a question is being answered.
func (d Dashboard) Loading() bool {
	return d.Phase == orchestrator.PhaseLoading
}

// Badge is the confidence badge.
type Badge struct {
	Percent int
	Label   string
	Level   insight.Level
}

// Rejection is shown when the backend declined the question.
type Rejection struct {
	Reason     string
	Suggestion string
}

// Chart is the chart series, with its presentation.
type Chart struct {
	Title  string
	Type   settings.ChartType
	XTitle string
	YTitle string
	Points []binding.Point
}

// Labels returns the X-axis labels of the chart.
func (c Chart) Labels() []string {
	labels := make([]string, 0, len(c.Points))
	for _, p := range c.Points {
		labels = append(labels, p.Name)
	}

	return labels
}

// Values returns the data values of the chart.
func (c Chart) Values() []float64 {
	values := make([]float64, 0, len(c.Points))
	for _, p := range c.Points {
		values = append(values, p.Value)
	}

	return values
}

const (
	defaultXTitle = "Period"
	defaultYTitle = "Value"
)

// Build projects the query state and the user settings onto a [Dashboard].
func Build(cfg *config.Config, st orchestrator.State, s settings.Settings) Dashboard {
	d := Dashboard{
		Title:     cfg.Render.Title,
		View:      st.View,
		ViewTitle: st.View.Title(),
		Phase:     st.Phase,
		Query:     st.Query,
		Compact:   s.CompactView,
		TimeRange: s.DefaultTimeRange,
		Error:     st.Error,
	}

	if c, ok := st.Confidence(); ok {
		d.Badge = &Badge{
			Percent: c.Percent(),
			Label:   c.Label(),
			Level:   c.Level(),
		}
	}

	if st.Outcome != nil && st.Outcome.Kind == insight.KindRejected {
		d.Rejection = &Rejection{
			Reason:     st.Outcome.Reason,
			Suggestion: st.Outcome.Suggestion,
		}
	}

	if canonical := st.Insight(); canonical != nil {
		d.Insight = canonical
		d.Summary = canonical.Summary
		d.Rows = canonical.Rows
		d.Table = BuildTable(cfg, canonical.Data)
	}

	d.Chart = buildChart(cfg, st, s.ChartType)
	d.Cards = kpi.Cards(d.Chart.Points, metricOf(cfg, st.Binding), s.DefaultTimeRange)

	return d
}

func buildChart(cfg *config.Config, st orchestrator.State, chartType settings.ChartType) Chart {
	c := Chart{
		Type:   chartType,
		XTitle: defaultXTitle,
		YTitle: defaultYTitle,
		Points: st.Series,
	}

	if st.Binding != nil {
		c.XTitle = cfg.ColumnTitle(st.Binding.Label)
		c.YTitle = cfg.ColumnTitle(st.Binding.Value)
	}
	c.Title = c.YTitle + " by " + c.XTitle

	return c
}

func metricOf(cfg *config.Config, b *binding.Binding) string {
	if b == nil {
		return ""
	}

	return strings.TrimPrefix(cfg.ColumnTitle(b.Value), "Total ")
}

package chart

import (
	"log/slog"

	"github.com/fredbi/insightviz/internal/pkg/config"
	"github.com/fredbi/insightviz/internal/pkg/model"
)

// Builder constructs the insight chart of a dashboard.
type Builder struct {
	cfg       *config.Config
	dashboard model.Dashboard
	l         *slog.Logger
}

// New creates a new chart [Builder], given a [config.Config] and a pre-calculated [model.Dashboard].
//
// The builder embeds a [slog.Logger] to croak about warnings and issues.
func New(cfg *config.Config, dashboard model.Dashboard) *Builder {
	return &Builder{
		cfg:       cfg,
		dashboard: dashboard,
		l:         slog.Default().With(slog.String("module", "chart")),
	}
}

// BuildPage creates a page with the chart of the dashboard.
//
// The page is empty when there is no data point to plot.
func (b *Builder) BuildPage() *Page {
	page := NewPage(b.dashboard.Title, b.dashboard.ViewTitle)

	chart := b.BuildChart()
	if chart == nil {
		b.l.Warn("empty chart skipped", slog.String("view", b.dashboard.View.String()))

		return page
	}

	page.SetChart(chart)
	b.l.Info("added chart",
		slog.String("view", b.dashboard.View.String()),
		slog.String("chart_type", b.dashboard.Chart.Type.String()),
		slog.Int("points", len(b.dashboard.Chart.Points)),
	)

	return page
}

// BuildChart creates the chart for the dashboard series, or nil when the series is empty.
func (b *Builder) BuildChart() *Chart {
	c := b.dashboard.Chart
	if len(c.Points) == 0 {
		return nil
	}

	render := b.cfg.Render
	chart := NewChart(
		WithTitle(c.Title),
		WithSubtitle(b.subtitle()),
		WithKind(c.Type),
		WithTheme(render.Theme),
		WithLegend(render.Legend),
		WithXAxisName(c.XTitle),
		WithXAxisLabels(c.Labels()),
		WithYAxisLabel(c.YTitle),
		WithHorizontal(render.Orientation == config.OrientationHorizontal),
		WithLogScale(render.Scale == config.ScaleLog),
	)
	chart.AddSeries(c.YTitle, c.Points)

	return chart
}

func (b *Builder) subtitle() string {
	label := b.dashboard.TimeRange.Label()
	if b.dashboard.Query == "" {
		return label
	}

	if label == "" {
		return b.dashboard.Query
	}

	return b.dashboard.Query + " (" + label + ")"
}

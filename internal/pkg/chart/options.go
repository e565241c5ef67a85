package chart

import (
	"github.com/fredbi/insightviz/internal/pkg/config"
	"github.com/fredbi/insightviz/internal/pkg/settings"
)

// Theme constants from go-echarts.
const (
	ThemeRoma     = "roma"
	ThemeWesteros = "westeros"
)

// Option configures a [Chart].
type Option func(*options)

type options struct {
	Title       string
	Subtitle    string
	Kind        settings.ChartType
	XAxisLabels []string
	XAxisName   string
	YAxisLabel  string
	Theme       string
	ShowLegend  bool
	Legend      config.LegendPosition
	Horizontal  bool
	LogScale    bool
}

// WithTitle sets the chart title.
func WithTitle(title string) Option {
	return func(c *options) {
		c.Title = title
	}
}

// WithSubtitle sets the chart subtitle (typically the question asked).
func WithSubtitle(subtitle string) Option {
	return func(c *options) {
		c.Subtitle = subtitle
	}
}

// WithKind sets the kind of chart: line, bar or area. Unsupported kinds fall back to line.
func WithKind(kind settings.ChartType) Option {
	return func(c *options) {
		if !kind.IsValid() {
			return
		}

		c.Kind = kind
	}
}

// WithTheme sets the color theme.
func WithTheme(theme string) Option {
	return func(c *options) {
		if theme == "" {
			return
		}

		c.Theme = theme
	}
}

// WithLegend sets the legend position. [config.LegendPositionNone] hides the legend.
func WithLegend(position config.LegendPosition) Option {
	return func(c *options) {
		c.ShowLegend = position != config.LegendPositionNone
		if position != "" {
			c.Legend = position
		}
	}
}

// WithYAxisLabel sets the Y-axis label text.
func WithYAxisLabel(ylabel string) Option {
	return func(c *options) {
		c.YAxisLabel = ylabel
	}
}

// WithXAxisName sets the name of the category axis.
func WithXAxisName(name string) Option {
	return func(c *options) {
		c.XAxisName = name
	}
}

// WithXAxisLabels sets the X-axis data point labels.
func WithXAxisLabels(xlabels []string) Option {
	return func(c *options) {
		c.XAxisLabels = xlabels
	}
}

// WithHorizontal enables or disables horizontal bar orientation. Only bar charts are affected.
func WithHorizontal(enabled bool) Option {
	return func(c *options) {
		c.Horizontal = enabled
	}
}

// WithLogScale uses a logarithmic value axis.
func WithLogScale(enabled bool) Option {
	return func(c *options) {
		c.LogScale = enabled
	}
}

func optionsWithDefaults(opts []Option) options {
	o := options{
		Kind:       settings.ChartLine,
		Theme:      ThemeRoma,
		ShowLegend: true,
		Legend:     config.LegendPositionBottom,
		XAxisName:  "Period",
	}

	for _, apply := range opts {
		apply(&o)
	}

	return o
}

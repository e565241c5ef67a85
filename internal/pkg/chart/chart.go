package chart

import (
	"github.com/fredbi/insightviz/internal/pkg/binding"
	"github.com/fredbi/insightviz/internal/pkg/config"
	"github.com/fredbi/insightviz/internal/pkg/settings"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	echartsopts "github.com/go-echarts/go-echarts/v2/opts"
)

const (
	defaultFontSize = 12
	xAxisLabelAngle = 30
	axisNameGap     = 32
)

// Series represents a named data series in a chart.
type Series struct {
	Name   string
	Points []binding.Point
}

// Chart represents an insight chart: line, bar or area.
type Chart struct {
	options

	Series []Series
}

// NewChart creates a new chart.
func NewChart(opts ...Option) *Chart {
	return &Chart{
		options: optionsWithDefaults(opts),
	}
}

// AddSeries adds a named data series to the chart.
func (c *Chart) AddSeries(name string, points []binding.Point) {
	c.Series = append(c.Series, Series{Name: name, Points: points})
}

// Build creates the ECharts chart from the accumulated configuration.
func (c *Chart) Build() components.Charter {
	global := c.globalOptions()

	switch c.Kind {
	case settings.ChartBar:
		bar := charts.NewBar()
		bar.SetGlobalOptions(global...)
		bar.SetXAxis(c.XAxisLabels)

		for _, s := range c.Series {
			data := make([]echartsopts.BarData, 0, len(s.Points))
			for _, point := range s.Points {
				data = append(data, echartsopts.BarData{Name: point.Name, Value: point.Value})
			}
			bar.AddSeries(s.Name, data)
		}

		if c.Horizontal {
			return bar.XYReversal()
		}

		return bar
	default:
		line := charts.NewLine()
		line.SetGlobalOptions(global...)
		line.SetXAxis(c.XAxisLabels)

		for _, s := range c.Series {
			data := make([]echartsopts.LineData, 0, len(s.Points))
			for _, point := range s.Points {
				data = append(data, echartsopts.LineData{Name: point.Name, Value: point.Value})
			}

			seriesOpts := []charts.SeriesOpts{
				charts.WithLineChartOpts(echartsopts.LineChart{Smooth: echartsopts.Bool(true)}),
			}
			if c.Kind == settings.ChartArea {
				seriesOpts = append(seriesOpts, charts.WithAreaStyleOpts(echartsopts.AreaStyle{}))
			}

			line.AddSeries(s.Name, data, seriesOpts...)
		}

		return line
	}
}

func (c *Chart) globalOptions() []charts.GlobalOpts {
	// Title options
	titleOpts := echartsopts.Title{
		Title: c.Title,
	}
	if c.Subtitle != "" {
		titleOpts.Subtitle = c.Subtitle
		titleOpts.SubtitleStyle = &echartsopts.TextStyle{
			FontStyle: "italic",
			FontSize:  defaultFontSize,
		}
	}

	xAxisOpts, yAxisOpts := c.setAxes()

	// Grid options
	gridOpts := echartsopts.Grid{
		Bottom: "100",
		Top:    "100",
	}

	// Toolbox options
	toolboxOpts := echartsopts.Toolbox{
		Left: "right",
		Feature: &echartsopts.ToolBoxFeature{
			SaveAsImage: &echartsopts.ToolBoxFeatureSaveAsImage{
				Title: "Save as image",
			},
		},
	}

	return []charts.GlobalOpts{
		charts.WithInitializationOpts(echartsopts.Initialization{Theme: c.Theme}),
		charts.WithToolboxOpts(toolboxOpts),
		charts.WithTitleOpts(titleOpts),
		charts.WithLegendOpts(c.legendOptions()),
		charts.WithGridOpts(gridOpts),
		charts.WithXAxisOpts(xAxisOpts),
		charts.WithYAxisOpts(yAxisOpts),
		charts.WithTooltipOpts(echartsopts.Tooltip{
			Show:    echartsopts.Bool(true),
			Trigger: "axis",
			AxisPointer: &echartsopts.AxisPointer{
				Type: c.pointerType(),
			},
		}),
	}
}

func (c *Chart) legendOptions() echartsopts.Legend {
	legendOpts := echartsopts.Legend{
		Show: echartsopts.Bool(c.ShowLegend),
	}
	if !c.ShowLegend {
		return legendOpts
	}

	switch c.Legend {
	case config.LegendPositionTop:
		legendOpts.X = "center"
		legendOpts.Y = "top"
	case config.LegendPositionLeft:
		legendOpts.X = "left"
		legendOpts.Y = "middle"
	case config.LegendPositionRight:
		legendOpts.X = "right"
		legendOpts.Y = "middle"
	default:
		legendOpts.X = "right"
		legendOpts.Y = "bottom"
	}

	return legendOpts
}

func (c *Chart) pointerType() string {
	if c.Kind == settings.ChartBar {
		return "shadow"
	}

	return "line"
}

func (c *Chart) valueAxisType() string {
	if c.LogScale {
		return "log"
	}

	return "value"
}

func (c *Chart) setAxes() (echartsopts.XAxis, echartsopts.YAxis) {
	const (
		xType        = "category"
		axisPosition = "bottom"
	)
	valueFormatter := echartsopts.FuncOpts("function (value,index) { return value.toLocaleString();}")
	yType := c.valueAxisType()

	if !c.Horizontal || c.Kind != settings.ChartBar {
		// X-axis options
		xAxisOpts := echartsopts.XAxis{
			Name:         c.XAxisName,
			Type:         xType,
			Position:     axisPosition,
			NameLocation: "end",
			BoundaryGap:  echartsopts.Bool(c.Kind == settings.ChartBar),
			AxisTick: &echartsopts.AxisTick{
				AlignWithLabel: echartsopts.Bool(true),
			},
			AxisLabel: &echartsopts.AxisLabel{
				Rotate:       xAxisLabelAngle,
				Interval:     "0",
				ShowMinLabel: echartsopts.Bool(true),
				ShowMaxLabel: echartsopts.Bool(true),
				HideOverlap:  echartsopts.Bool(false),
			},
		}

		// Y-axis options
		yAxisOpts := echartsopts.YAxis{
			Name:  c.YAxisLabel,
			Type:  yType,
			Scale: echartsopts.Bool(true),
			AxisLabel: &echartsopts.AxisLabel{
				Formatter: valueFormatter,
			},
		}

		return xAxisOpts, yAxisOpts
	}

	// horizontal bar layout
	yAxisOpts := echartsopts.YAxis{
		Name:         c.XAxisName,
		Type:         xType,
		Position:     axisPosition,
		NameLocation: "end",
		AxisLabel: &echartsopts.AxisLabel{
			Rotate:       xAxisLabelAngle,
			Interval:     "0",
			ShowMinLabel: echartsopts.Bool(true),
			ShowMaxLabel: echartsopts.Bool(true),
			HideOverlap:  echartsopts.Bool(false),
		},
	}

	xAxisOpts := echartsopts.XAxis{
		Name:         c.YAxisLabel,
		NameLocation: "center",
		NameGap:      axisNameGap,
		Type:         yType,
		Scale:        echartsopts.Bool(true),
		AxisTick: &echartsopts.AxisTick{
			AlignWithLabel: echartsopts.Bool(true),
		},
		AxisLabel: &echartsopts.AxisLabel{
			Formatter: valueFormatter,
		},
	}

	return xAxisOpts, yAxisOpts
}

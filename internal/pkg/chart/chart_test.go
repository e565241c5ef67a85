package chart

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fredbi/insightviz/internal/pkg/binding"
	"github.com/fredbi/insightviz/internal/pkg/config"
	"github.com/fredbi/insightviz/internal/pkg/model"
	"github.com/fredbi/insightviz/internal/pkg/orchestrator"
	"github.com/fredbi/insightviz/internal/pkg/settings"
	"github.com/go-echarts/go-echarts/v2/charts"

	"github.com/go-openapi/testify/v2/assert"
	"github.com/go-openapi/testify/v2/require"
)

// TestSmokeRender is an end-to-end smoke test that builds the chart of a dashboard
// for every chart type, and renders HTML output.
func TestSmokeRender(t *testing.T) {
	cfg := mustLoadConfig(t, smokeConfig())

	for _, chartType := range settings.AllChartTypes() {
		t.Run(chartType.String(), func(t *testing.T) {
			builder := New(cfg, sampleDashboard(chartType))
			page := builder.BuildPage()
			require.False(t, page.Empty())

			var buf bytes.Buffer
			require.NoError(t, page.Render(&buf))

			html := buf.String()
			require.NotEmpty(t, html)

			assert.True(t,
				strings.Contains(html, "<html>") || strings.Contains(html, "<!DOCTYPE html>") || strings.Contains(html, "<script"),
				"output doesn't look like HTML",
			)
			assert.Contains(t, html, "echarts")
			assert.Contains(t, html, "Revenue Dashboard")

			// Write output for manual inspection
			outFile := filepath.Join(t.TempDir(), "smoke_test_output.html")
			require.NoError(t, os.WriteFile(outFile, buf.Bytes(), 0o600))
			t.Logf("HTML output written to: %s (%d bytes)", outFile, buf.Len())
		})
	}
}

func TestBuildChart(t *testing.T) {
	cfg := mustLoadConfig(t, smokeConfig())

	t.Run("should build a smooth line", func(t *testing.T) {
		c := New(cfg, sampleDashboard(settings.ChartLine)).BuildChart()
		require.NotNil(t, c)

		assert.Equal(t, "Revenue by Month", c.Title)
		assert.Equal(t, "revenue by month (6 Months)", c.Subtitle)
		assert.Equal(t, []string{"Jan", "Feb", "Mar"}, c.XAxisLabels)
		assert.Equal(t, "Month", c.XAxisName)
		assert.Equal(t, "Revenue", c.YAxisLabel)
		assert.Equal(t, ThemeWesteros, c.Theme)
		assert.Equal(t, config.LegendPositionTop, c.Legend)
		assert.True(t, c.LogScale)
		require.Len(t, c.Series, 1)
		assert.Equal(t, "Revenue", c.Series[0].Name)

		line, ok := c.Build().(*charts.Line)
		require.True(t, ok)
		require.Len(t, line.MultiSeries, 1)
		assert.Nil(t, line.MultiSeries[0].AreaStyle)
		require.NotEmpty(t, line.YAxisList)
		assert.Equal(t, "log", line.YAxisList[0].Type)
	})

	t.Run("should fill the area", func(t *testing.T) {
		c := New(cfg, sampleDashboard(settings.ChartArea)).BuildChart()
		require.NotNil(t, c)

		line, ok := c.Build().(*charts.Line)
		require.True(t, ok)
		require.Len(t, line.MultiSeries, 1)
		assert.NotNil(t, line.MultiSeries[0].AreaStyle)
	})

	t.Run("should build bars", func(t *testing.T) {
		c := New(cfg, sampleDashboard(settings.ChartBar)).BuildChart()
		require.NotNil(t, c)
		assert.True(t, c.Horizontal)

		_, ok := c.Build().(*charts.Bar)
		assert.True(t, ok)
	})

	t.Run("should skip an empty series", func(t *testing.T) {
		d := sampleDashboard(settings.ChartLine)
		d.Chart.Points = nil

		b := New(cfg, d)
		assert.Nil(t, b.BuildChart())
		assert.True(t, b.BuildPage().Empty())
	})
}

func TestSubtitle(t *testing.T) {
	cfg := mustLoadConfig(t, smokeConfig())
	d := sampleDashboard(settings.ChartLine)
	d.Query = ""

	assert.Equal(t, "6 Months", New(cfg, d).subtitle())

	d.TimeRange = ""
	d.Query = "orders"
	assert.Equal(t, "orders", New(cfg, d).subtitle())
}

func TestWithTitleAndSubtitle(t *testing.T) {
	c := NewChart(WithTitle("My Title"), WithSubtitle("My Subtitle"))

	assert.Equal(t, "My Title", c.Title)
	assert.Equal(t, "My Subtitle", c.Subtitle)
}

func TestChartDefaults(t *testing.T) {
	c := NewChart(WithKind("pie"), WithTheme(""), WithLegend(config.LegendPositionNone))

	assert.Equal(t, settings.ChartLine, c.Kind)
	assert.Equal(t, ThemeRoma, c.Theme)
	assert.False(t, c.ShowLegend)

	legend := c.legendOptions()
	require.NotNil(t, legend.Show)
	assert.False(t, *legend.Show)
}

func TestRenderEmptyPage(t *testing.T) {
	page := NewPage("Insight Dashboard", "Breakdown")
	require.True(t, page.Empty())

	var buf bytes.Buffer
	require.NoError(t, page.Render(&buf))

	assert.Contains(t, buf.String(), "Insight Dashboard | Breakdown")
}

func TestPageTitle(t *testing.T) {
	assert.Equal(t, "Insight Dashboard | KPI Overview", NewPage("Insight Dashboard", "KPI Overview").PageTitle())
	assert.Equal(t, "Insight Dashboard", NewPage("Insight Dashboard", "").PageTitle())
	assert.Equal(t, "Trends", NewPage("", "Trends").PageTitle())
}

// helpers

func sampleDashboard(chartType settings.ChartType) model.Dashboard {
	return model.Dashboard{
		Title:     "Revenue Dashboard",
		View:      orchestrator.ViewKPIOverview,
		Phase:     orchestrator.PhaseSuccess,
		Query:     "revenue by month",
		TimeRange: settings.Range6Months,
		Chart: model.Chart{
			Title:  "Revenue by Month",
			Type:   chartType,
			XTitle: "Month",
			YTitle: "Revenue",
			Points: []binding.Point{
				{Name: "Jan", Value: 1200},
				{Name: "Feb", Value: 1850.5},
				{Name: "Mar", Value: 1640},
			},
		},
	}
}

func mustLoadConfig(t *testing.T, yamlContent string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(yamlContent), 0o600))
	cfg, err := config.Load(file)
	require.NoError(t, err)
	return cfg
}

func smokeConfig() string {
	return `
name: Smoke Test
render:
  title: Revenue Dashboard
  theme: westeros
  legend: top
  scale: log
  orientation: horizontal
`
}

package model

import (
	"encoding/json"
	"testing"

	"github.com/fredbi/insightviz/internal/pkg/binding"
	"github.com/fredbi/insightviz/internal/pkg/config"
	"github.com/fredbi/insightviz/internal/pkg/insight"
	"github.com/fredbi/insightviz/internal/pkg/orchestrator"
	"github.com/fredbi/insightviz/internal/pkg/settings"

	"github.com/go-openapi/testify/v2/assert"
	"github.com/go-openapi/testify/v2/require"
)

func TestBuildSuccess(t *testing.T) {
	cfg := mustConfig(t)
	rows := mustRows(t, `[
		{"month":"Jan","total_revenue":1234.5,"orders":12,"region":null,"meta":{"k":1}},
		{"month":"Feb","total_revenue":2000,"orders":15,"region":"West","meta":[1,2]}
	]`)

	st := orchestrator.State{
		View:  orchestrator.ViewKPIOverview,
		Phase: orchestrator.PhaseSuccess,
		Query: "revenue by month",
		Outcome: &insight.Outcome{
			Kind:       insight.KindSuccess,
			Confidence: 0.82,
			Insight:    &insight.Canonical{Summary: "Revenue **grew**", Rows: 2, Data: rows},
		},
		Series:  []binding.Point{{Name: "Jan", Value: 1234.5}, {Name: "Feb", Value: 2000}},
		Binding: &binding.Binding{Label: "month", Value: "total_revenue"},
	}

	s := settings.Defaults()
	s.ChartType = settings.ChartBar
	s.CompactView = true

	d := Build(cfg, st, s)

	t.Run("should carry the header", func(t *testing.T) {
		assert.Equal(t, "Insight Dashboard", d.Title)
		assert.Equal(t, "KPI Overview", d.ViewTitle)
		assert.Equal(t, "revenue by month", d.Query)
		assert.True(t, d.Compact)
		assert.False(t, d.Loading())
		assert.Equal(t, "Revenue **grew**", d.Summary)
		assert.Equal(t, 2, d.Rows)
		assert.Nil(t, d.Rejection)
		assert.Empty(t, d.Error)
	})

	t.Run("should build the confidence badge", func(t *testing.T) {
		require.NotNil(t, d.Badge)
		assert.Equal(t, Badge{Percent: 82, Label: "High Confidence", Level: insight.LevelHigh}, *d.Badge)
	})

	t.Run("should build the chart", func(t *testing.T) {
		assert.Equal(t, settings.ChartBar, d.Chart.Type)
		assert.Equal(t, "Month", d.Chart.XTitle)
		assert.Equal(t, "Total Revenue", d.Chart.YTitle)
		assert.Equal(t, "Total Revenue by Month", d.Chart.Title)
		assert.Equal(t, []string{"Jan", "Feb"}, d.Chart.Labels())
		assert.Equal(t, []float64{1234.5, 2000}, d.Chart.Values())
	})

	t.Run("should build the KPI cards", func(t *testing.T) {
		require.Len(t, d.Cards, 4)
		assert.Equal(t, "Total Revenue", d.Cards[0].Title)
		assert.Equal(t, "Peak Revenue", d.Cards[2].Title)
		assert.Equal(t, "Feb", d.Cards[2].Subtitle)
		assert.Equal(t, "Time Range", d.Cards[3].Title)
		assert.Equal(t, "6 Months", d.Cards[3].Value)
	})

	t.Run("should build the table in row order", func(t *testing.T) {
		require.Len(t, d.Table.Columns, 5)
		titles := make([]string, 0, len(d.Table.Columns))
		for _, c := range d.Table.Columns {
			titles = append(titles, c.Title)
		}
		assert.Equal(t, []string{"Month", "Total Revenue", "Orders", "Region", "Meta"}, titles)
		assert.Equal(t, config.FormatCurrency, d.Table.Columns[1].Format)

		require.Len(t, d.Table.Rows, 2)
		first := d.Table.Rows[0]
		assert.Equal(t, "Jan", first[0].Text)
		assert.Equal(t, "$1,234.5", first[1].Text)
		assert.True(t, first[1].Numeric)
		assert.InDelta(t, 1234.5, first[1].Value, 1e-9)
		assert.Equal(t, "12", first[2].Text)
		assert.Equal(t, NullText, first[3].Text)
		assert.Nil(t, first[3].Value)
		assert.Equal(t, `{"k":1}`, first[4].Text)

		assert.Equal(t, "West", d.Table.Rows[1][3].Text)
		assert.Equal(t, "[1,2]", d.Table.Rows[1][4].Text)
	})
}

func TestBuildRejected(t *testing.T) {
	cfg := mustConfig(t)
	previous := []binding.Point{{Name: "Jan", Value: 10}}

	st := orchestrator.State{
		View:  orchestrator.ViewBreakdown,
		Phase: orchestrator.PhaseRejected,
		Outcome: &insight.Outcome{
			Kind:       insight.KindRejected,
			Confidence: 0.49999,
			Reason:     "not enough data",
			Suggestion: "widen the time range",
		},
		Series: previous,
	}

	d := Build(cfg, st, settings.Defaults())

	require.NotNil(t, d.Rejection)
	assert.Equal(t, Rejection{Reason: "not enough data", Suggestion: "widen the time range"}, *d.Rejection)
	require.NotNil(t, d.Badge)
	assert.Equal(t, "Low Confidence", d.Badge.Label)
	assert.Nil(t, d.Insight)
	assert.True(t, d.Table.Empty())
	assert.Equal(t, "Value by Period", d.Chart.Title)
	assert.Equal(t, previous, d.Chart.Points)
	assert.Equal(t, settings.ChartLine, d.Chart.Type)
}

func TestBuildError(t *testing.T) {
	cfg := mustConfig(t)
	st := orchestrator.State{
		View:    orchestrator.ViewTrendAnalysis,
		Phase:   orchestrator.PhaseError,
		Outcome: &insight.Outcome{Kind: insight.KindError, Message: "API error: analyze view: 500 Internal Server Error"},
		Error:   "API error: analyze view: 500 Internal Server Error",
	}

	d := Build(cfg, st, settings.Defaults())

	assert.Equal(t, "API error: analyze view: 500 Internal Server Error", d.Error)
	assert.Nil(t, d.Badge)
	assert.Nil(t, d.Rejection)
	assert.Equal(t, []string{"Time Range"}, cardTitles(d))
}

func TestFormatCell(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		format config.Format
		want   string
	}{
		{name: "null", value: nil, want: NullText},
		{name: "string", value: "West", want: "West"},
		{name: "bool", value: true, want: "true"},
		{name: "grouped number", value: json.Number("1234567.891"), format: config.FormatNumber, want: "1,234,567.891"},
		{name: "rounded fraction", value: 0.123456, format: config.FormatNumber, want: "0.123"},
		{name: "integer", value: 42, format: config.FormatNumber, want: "42"},
		{name: "currency", value: json.Number("27600"), format: config.FormatCurrency, want: "$27,600"},
		{name: "negative currency", value: -12.5, format: config.FormatCurrency, want: "-$12.5"},
		{name: "percent", value: json.Number("12.5"), format: config.FormatPercent, want: "12.5%"},
		{name: "nested", value: map[string]any{"a": "b"}, want: `{"a":"b"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCell(tt.value, tt.format).Text)
		})
	}
}

func cardTitles(d Dashboard) []string {
	titles := make([]string, 0, len(d.Cards))
	for _, c := range d.Cards {
		titles = append(titles, c.Title)
	}

	return titles
}

func mustConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.LoadDefaults()
	require.NoError(t, err)

	return cfg
}

func mustRows(t *testing.T, body string) []insight.Row {
	t.Helper()

	var rows []insight.Row
	require.NoError(t, json.Unmarshal([]byte(body), &rows))

	return rows
}

package binding

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/fredbi/insightviz/internal/pkg/insight"

	"github.com/go-openapi/testify/v2/assert"
	"github.com/go-openapi/testify/v2/require"
)

func TestInfer(t *testing.T) {
	previous := []Point{{Name: "Jan", Value: 4200}, {Name: "Feb", Value: 4800}}

	t.Run("should keep the previous series on empty rows", func(t *testing.T) {
		got, b := Infer(nil, previous)

		assert.Equal(t, previous, got)
		assert.Nil(t, b)

		got, _ = Infer([]insight.Row{}, previous)
		assert.Equal(t, previous, got)
	})

	t.Run("should project month and revenue", func(t *testing.T) {
		rows := mustRows(t, `[{"month":"Jan","revenue":100},{"month":"Feb","revenue":200}]`)

		got, b := Infer(rows, previous)

		assert.Equal(t, []Point{{Name: "Jan", Value: 100}, {Name: "Feb", Value: 200}}, got)
		require.NotNil(t, b)
		assert.Equal(t, Binding{Label: "month", Value: "revenue"}, *b)
	})

	t.Run("should keep the previous series without a label or value column", func(t *testing.T) {
		rows := mustRows(t, `[{"id":1,"label":"x","score":"abc"}]`)

		got, b := Infer(rows, previous)

		assert.Equal(t, previous, got)
		assert.Nil(t, b)
	})

	t.Run("should keep the previous series with a label but no value column", func(t *testing.T) {
		rows := mustRows(t, `[{"region":"West","status":"high"}]`)

		got, _ := Infer(rows, previous)

		assert.Equal(t, previous, got)
	})

	t.Run("should project a numeric label column on both axes", func(t *testing.T) {
		rows := mustRows(t, `[{"month":1,"revenue":100},{"month":2,"revenue":200}]`)

		got, b := Infer(rows, previous)

		require.NotNil(t, b)
		assert.Equal(t, Binding{Label: "month", Value: "month"}, *b)
		assert.Equal(t, []Point{{Name: "1", Value: 1}, {Name: "2", Value: 2}}, got)
	})

	t.Run("should coerce dirty values to zero", func(t *testing.T) {
		rows := mustRows(t, `[
			{"period":"Q1","total_amount":"12.5"},
			{"period":"Q2","total_amount":"n/a"},
			{"period":"Q3","total_amount":null},
			{"period":null,"total_amount":{"nested":true}}
		]`)

		got, b := Infer(rows, nil)

		require.NotNil(t, b)
		assert.Equal(t, Binding{Label: "period", Value: "total_amount"}, *b)
		assert.Equal(t, []Point{
			{Name: "Q1", Value: 12.5},
			{Name: "Q2", Value: 0},
			{Name: "Q3", Value: 0},
			{Name: "", Value: 0},
		}, got)
		for _, p := range got {
			assert.False(t, math.IsNaN(p.Value))
		}
	})
}

func TestBind(t *testing.T) {
	tests := []struct {
		name  string
		row   string
		want  Binding
		found bool
	}{
		{
			name:  "numeric column wins over a value-named column",
			row:   `{"month":"Jan","value":"12","sales":5}`,
			want:  Binding{Label: "month", Value: "sales"},
			found: true,
		},
		{
			name:  "value-named column when nothing is numeric",
			row:   `{"date":"2024-01-01","amount":"12"}`,
			want:  Binding{Label: "date", Value: "amount"},
			found: true,
		},
		{
			name:  "ambiguous label resolves to the first key",
			row:   `{"region":"West","date":"2024-01","revenue":3}`,
			want:  Binding{Label: "region", Value: "revenue"},
			found: true,
		},
		{
			name:  "numeric label column is also the first numeric column",
			row:   `{"month":1,"revenue":100}`,
			want:  Binding{Label: "month", Value: "month"},
			found: true,
		},
		{
			name:  "case insensitive names",
			row:   `{"ProductName":"Widget","TotalRevenue":"9"}`,
			want:  Binding{Label: "ProductName", Value: "TotalRevenue"},
			found: true,
		},
		{
			name: "no label",
			row:  `{"id":1,"revenue":2}`,
		},
		{
			name: "no value",
			row:  `{"name":"x","comment":"y"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var row insight.Row
			require.NoError(t, json.Unmarshal([]byte(tt.row), &row))

			got, ok := Bind(row)

			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectRuleOrder(t *testing.T) {
	row := insight.NewRow(
		insight.Cell{Key: "revenue_label", Value: "high"},
		insight.Cell{Key: "count", Value: 3},
	)

	key, ok := Select(ValueRules, row)

	require.True(t, ok)
	assert.Equal(t, "count", key, "numeric rule is evaluated before the name rule")
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "Jan", Stringify("Jan"))
	assert.Equal(t, "2024", Stringify(json.Number("2024")))
	assert.Equal(t, "1.5", Stringify(1.5))
	assert.Equal(t, "7", Stringify(7))
	assert.Equal(t, "true", Stringify(true))
	assert.Empty(t, Stringify(nil))
	assert.Equal(t, `{"a":1}`, Stringify(map[string]any{"a": 1}))
}

func TestCoerce(t *testing.T) {
	assert.InDelta(t, 12.0, Coerce(json.Number("12")), 1e-9)
	assert.InDelta(t, 3.5, Coerce(" 3.5 "), 1e-9)
	assert.InDelta(t, 1.0, Coerce(true), 1e-9)
	assert.Zero(t, Coerce("abc"))
	assert.Zero(t, Coerce(""))
	assert.Zero(t, Coerce(nil))
	assert.Zero(t, Coerce("NaN"))
	assert.Zero(t, Coerce(math.Inf(1)))
	assert.Zero(t, Coerce([]any{1}))
}

func mustRows(t *testing.T, body string) []insight.Row {
	t.Helper()

	var rows []insight.Row
	require.NoError(t, json.Unmarshal([]byte(body), &rows))

	return rows
}

package binding

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/fredbi/insightviz/internal/pkg/insight"
)

// Point is a single chart data point.
type Point struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Binding names the columns projected onto a chart.
type Binding struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Bind selects the label and value columns from the first row of a result set.
//
// Both tables are evaluated independently: a numeric label column may also be the value column.
func Bind(row insight.Row) (Binding, bool) {
	label, ok := Select(LabelRules, row)
	if !ok {
		return Binding{}, false
	}

	value, ok := Select(ValueRules, row)
	if !ok {
		return Binding{}, false
	}

	return Binding{Label: label, Value: value}, true
}

// Select returns the first column of row matched by rules.
func Select(rules []Rule, row insight.Row) (string, bool) {
	keys := row.Keys()

	for _, rule := range rules {
		for _, key := range keys {
			value, _ := row.Get(key)
			if rule.Match(key, value) {
				return key, true
			}
		}
	}

	return "", false
}

// Infer projects rows onto a chart series.
//
// When rows are empty or no binding can be inferred, previous is returned unchanged:
// the last valid chart stays visible.
func Infer(rows []insight.Row, previous []Point) ([]Point, *Binding) {
	if len(rows) == 0 {
		return previous, nil
	}

	b, ok := Bind(rows[0])
	if !ok {
		return previous, nil
	}

	return Project(rows, b), &b
}

// Project maps every row to a [Point] according to a [Binding].
func Project(rows []insight.Row, b Binding) []Point {
	points := make([]Point, 0, len(rows))
	for _, row := range rows {
		label, _ := row.Get(b.Label)
		value, _ := row.Get(b.Value)

		points = append(points, Point{
			Name:  Stringify(label),
			Value: Coerce(value),
		})
	}

	return points
}

// Stringify renders a cell value as a label. Nested values are rendered as JSON.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(x)
	default:
		buf, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}

		return string(buf)
	}
}

// Coerce converts a cell value to a number. Anything that is not a finite number yields 0.
func Coerce(v any) float64 {
	var f float64

	switch x := v.(type) {
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int8:
		f = float64(x)
	case int16:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint8:
		f = float64(x)
	case uint16:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case bool:
		if x {
			f = 1
		}
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}

	return f
}

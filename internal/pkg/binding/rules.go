// Package binding infers which columns of an arbitrary result set drive a chart.
//
// Column selection is a heuristic expressed as ordered rule tables: for each table, rules are
// tried in order and, for each rule, the columns of the first row are tried in their original order.
// The first match wins.
package binding

import (
	"encoding/json"
	"strings"
)

// Rule selects a column from its name and its value in the first row.
type Rule struct {
	Name  string
	Match func(key string, value any) bool
}

// LabelRules select the categorical column used as the chart X axis.
var LabelRules = []Rule{
	{Name: "label-name", Match: NameContains("month", "date", "period", "region", "name")},
}

// ValueRules select the numeric column used as the chart Y axis.
//
// A column holding a number is preferred over a column merely named like a value.
var ValueRules = []Rule{
	{Name: "numeric-value", Match: IsNumeric},
	{Name: "value-name", Match: NameContains("revenue", "amount", "value")},
}

// NameContains builds a matcher on the lower-cased column name.
func NameContains(fragments ...string) func(string, any) bool {
	return func(key string, _ any) bool {
		lower := strings.ToLower(key)
		for _, fragment := range fragments {
			if strings.Contains(lower, fragment) {
				return true
			}
		}

		return false
	}
}

// IsNumeric matches columns holding a native number.
func IsNumeric(_ string, value any) bool {
	switch value.(type) {
	case json.Number, float64, float32,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return true
	default:
		return false
	}
}

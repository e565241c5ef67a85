package model

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/fredbi/insightviz/internal/pkg/binding"
	"github.com/fredbi/insightviz/internal/pkg/config"
	"github.com/fredbi/insightviz/internal/pkg/insight"
	"github.com/fredbi/insightviz/internal/pkg/kpi"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// NullText is displayed for missing values.
const NullText = "-"

// Column is a column of the data table.
type Column struct {
	Key    string
	Title  string
	Format config.Format
}

// Cell is a formatted value of the data table.
//
// Value holds the typed value: float64 for numbers, bool, string, or nil.
type Cell struct {
	Text    string
	Value   any
	Numeric bool
}

// Table is the data table of a successful answer.
//
// Columns are the keys of the first row, in order.
type Table struct {
	Columns []Column
	Rows    [][]Cell
}

// Empty reports whether the table has no row to show.
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// BuildTable formats result rows for display.
func BuildTable(cfg *config.Config, rows []insight.Row) Table {
	if len(rows) == 0 {
		return Table{}
	}

	keys := rows[0].Keys()
	t := Table{
		Columns: make([]Column, 0, len(keys)),
		Rows:    make([][]Cell, 0, len(rows)),
	}

	for _, key := range keys {
		t.Columns = append(t.Columns, Column{
			Key:    key,
			Title:  cfg.ColumnTitle(key),
			Format: cfg.ColumnFormat(key),
		})
	}

	for _, row := range rows {
		cells := make([]Cell, 0, len(t.Columns))
		for _, col := range t.Columns {
			value, _ := row.Get(col.Key)
			cells = append(cells, FormatCell(value, col.Format))
		}

		t.Rows = append(t.Rows, cells)
	}

	return t
}

// FormatCell formats a raw cell value.
//
// Missing values are shown as [NullText], nested values as JSON, and numbers with grouped digits.
func FormatCell(value any, format config.Format) Cell {
	switch v := value.(type) {
	case nil:
		return Cell{Text: NullText}
	case string:
		return Cell{Text: v, Value: v}
	case bool:
		return Cell{Text: strconv.FormatBool(v), Value: v}
	case json.Number:
		f, err := v.Float64()
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return Cell{Text: v.String(), Value: v.String()}
		}

		return Cell{Text: formatNumber(f, format), Value: f, Numeric: true}
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		f := binding.Coerce(v)

		return Cell{Text: formatNumber(f, format), Value: f, Numeric: true}
	default:
		text := binding.Stringify(v)

		return Cell{Text: text, Value: text}
	}
}

func formatNumber(f float64, format config.Format) string {
	switch format {
	case config.FormatCurrency:
		p := message.NewPrinter(language.English)
		text := p.Sprint(number.Decimal(math.Abs(f), number.MaxFractionDigits(2)))
		if f < 0 {
			return "-$" + text
		}

		return "$" + text
	case config.FormatPercent:
		return kpi.Decimal(f) + "%"
	default:
		return kpi.Decimal(f)
	}
}

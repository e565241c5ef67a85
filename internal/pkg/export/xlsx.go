// Package export writes the dashboard to a spreadsheet.
package export

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/fredbi/insightviz/internal/pkg/config"
	"github.com/fredbi/insightviz/internal/pkg/model"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the workbook.
const (
	SheetResults = "Results"
	SheetSummary = "Summary"
	SheetChart   = "Chart"
)

const (
	defaultSheet = "Sheet1"
	columnWidth  = 18
	summaryWidth = 60
)

// ErrNothingToExport is returned when the dashboard carries no insight.
var ErrNothingToExport = errors.New("no insight to export")

var numberFormats = map[config.Format]string{
	config.FormatNumber:   "#,##0.###",
	config.FormatCurrency: `"$"#,##0.00`,
	config.FormatPercent:  `0.0"%"`,
}

// Exporter writes a [model.Dashboard] as an Excel workbook.
type Exporter struct {
	l *slog.Logger
}

// New builds an [Exporter].
func New() *Exporter {
	return &Exporter{
		l: slog.Default().With(slog.String("module", "export")),
	}
}

// WriteXLSX writes the workbook: the data table, a summary of the insight and the chart series.
//
// Numeric cells are written as numbers, so the spreadsheet can compute with them.
func (e *Exporter) WriteXLSX(w io.Writer, d model.Dashboard) (err error) {
	if d.Insight == nil && d.Rejection == nil {
		return ErrNothingToExport
	}

	f := excelize.NewFile()
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing workbook: %w", closeErr)
		}
	}()

	if err = f.SetSheetName(defaultSheet, SheetResults); err != nil {
		return fmt.Errorf("naming sheet %q: %w", SheetResults, err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	if err = e.writeResults(f, header, d.Table); err != nil {
		return err
	}

	if err = e.writeSummary(f, header, d); err != nil {
		return err
	}

	if err = e.writeChart(f, header, d.Chart); err != nil {
		return err
	}

	if err = f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}

	e.l.Info("workbook exported",
		slog.Int("rows", len(d.Table.Rows)),
		slog.Int("columns", len(d.Table.Columns)),
	)

	return nil
}

func (e *Exporter) writeResults(f *excelize.File, header int, t model.Table) error {
	for i, col := range t.Columns {
		if err := setCell(f, SheetResults, i+1, 1, col.Title); err != nil {
			return err
		}
	}

	if len(t.Columns) > 0 {
		if err := styleRow(f, SheetResults, header, len(t.Columns)); err != nil {
			return err
		}

		last, _ := excelize.ColumnNumberToName(len(t.Columns))
		if err := f.SetColWidth(SheetResults, "A", last, columnWidth); err != nil {
			return fmt.Errorf("sizing columns: %w", err)
		}
	}

	styles := make(map[config.Format]int, len(numberFormats))
	for r, row := range t.Rows {
		for c, cell := range row {
			if cell.Value == nil {
				continue
			}

			if err := setCell(f, SheetResults, c+1, r+2, cell.Value); err != nil {
				return err
			}

			if !cell.Numeric {
				continue
			}

			style, err := numberStyle(f, styles, t.Columns[c].Format)
			if err != nil {
				return err
			}

			name, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellStyle(SheetResults, name, name, style); err != nil {
				return fmt.Errorf("styling cell %s: %w", name, err)
			}
		}
	}

	return nil
}

func (e *Exporter) writeSummary(f *excelize.File, header int, d model.Dashboard) error {
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return fmt.Errorf("creating sheet %q: %w", SheetSummary, err)
	}

	lines := [][2]string{
		{"Field", "Value"},
		{"Title", d.Title},
		{"View", d.ViewTitle},
		{"Query", d.Query},
		{"Time Range", d.TimeRange.Label()},
	}

	if d.Badge != nil {
		lines = append(lines, [2]string{"Confidence", strconv.Itoa(d.Badge.Percent) + "% (" + d.Badge.Label + ")"})
	}

	if d.Insight != nil {
		lines = append(lines,
			[2]string{"Summary", d.Summary},
			[2]string{"Rows", strconv.Itoa(d.Rows)},
		)
	}

	if d.Rejection != nil {
		lines = append(lines,
			[2]string{"Rejected", d.Rejection.Reason},
			[2]string{"Suggestion", d.Rejection.Suggestion},
		)
	}

	for _, card := range d.Cards {
		lines = append(lines, [2]string{card.Title, card.Value})
	}

	for i, line := range lines {
		for j, value := range line {
			if err := setCell(f, SheetSummary, j+1, i+1, value); err != nil {
				return err
			}
		}
	}

	if err := styleRow(f, SheetSummary, header, 2); err != nil {
		return err
	}

	if err := f.SetColWidth(SheetSummary, "A", "A", columnWidth); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}

	if err := f.SetColWidth(SheetSummary, "B", "B", summaryWidth); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}

	return nil
}

func (e *Exporter) writeChart(f *excelize.File, header int, c model.Chart) error {
	if len(c.Points) == 0 {
		return nil
	}

	if _, err := f.NewSheet(SheetChart); err != nil {
		return fmt.Errorf("creating sheet %q: %w", SheetChart, err)
	}

	if err := setCell(f, SheetChart, 1, 1, c.XTitle); err != nil {
		return err
	}

	if err := setCell(f, SheetChart, 2, 1, c.YTitle); err != nil {
		return err
	}

	if err := styleRow(f, SheetChart, header, 2); err != nil {
		return err
	}

	for i, p := range c.Points {
		if err := setCell(f, SheetChart, 1, i+2, p.Name); err != nil {
			return err
		}

		if err := setCell(f, SheetChart, 2, i+2, p.Value); err != nil {
			return err
		}
	}

	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, value any) error {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("locating cell (%d,%d): %w", col, row, err)
	}

	if err := f.SetCellValue(sheet, name, value); err != nil {
		return fmt.Errorf("setting cell %s!%s: %w", sheet, name, err)
	}

	return nil
}

func styleRow(f *excelize.File, sheet string, style, columns int) error {
	last, err := excelize.CoordinatesToCellName(columns, 1)
	if err != nil {
		return fmt.Errorf("locating header: %w", err)
	}

	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("styling header of %s: %w", sheet, err)
	}

	return nil
}

func numberStyle(f *excelize.File, cache map[config.Format]int, format config.Format) (int, error) {
	if style, ok := cache[format]; ok {
		return style, nil
	}

	numFmt, ok := numberFormats[format]
	if !ok {
		numFmt = numberFormats[config.FormatNumber]
	}

	style, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return 0, fmt.Errorf("creating %s style: %w", format, err)
	}
	cache[format] = style

	return style, nil
}

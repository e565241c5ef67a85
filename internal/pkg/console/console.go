// Package console renders the dashboard in a terminal.
package console

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/fredbi/insightviz/internal/pkg/insight"
	"github.com/fredbi/insightviz/internal/pkg/kpi"
	"github.com/fredbi/insightviz/internal/pkg/model"
)

// Printer writes a [model.Dashboard] as text.
type Printer struct {
	options

	title    *color.Color
	label    *color.Color
	high     *color.Color
	medium   *color.Color
	low      *color.Color
	failure  *color.Color
	rejected *color.Color
	positive *color.Color
	negative *color.Color
}

// New builds a terminal [Printer].
func New(opts ...Option) *Printer {
	p := &Printer{
		options:  optionsWithDefaults(opts),
		title:    color.New(color.Bold, color.FgCyan),
		label:    color.New(color.Faint),
		high:     color.New(color.FgGreen, color.Bold),
		medium:   color.New(color.FgYellow, color.Bold),
		low:      color.New(color.FgRed, color.Bold),
		failure:  color.New(color.FgRed),
		rejected: color.New(color.FgYellow),
		positive: color.New(color.FgGreen),
		negative: color.New(color.FgRed),
	}

	if p.noColor {
		for _, c := range p.palette() {
			c.DisableColor()
		}
	}

	return p
}

func (p *Printer) palette() []*color.Color {
	return []*color.Color{p.title, p.label, p.high, p.medium, p.low, p.failure, p.rejected, p.positive, p.negative}
}

// Render writes the dashboard.
func (p *Printer) Render(w io.Writer, d model.Dashboard) error {
	var buf bytes.Buffer

	p.header(&buf, d)

	switch {
	case d.Loading():
		p.label.Fprintln(&buf, "Analyzing...")
	case d.Error != "":
		p.failure.Fprintln(&buf, "Error: "+d.Error)
	case d.Rejection != nil:
		p.rejection(&buf, d)
	}

	p.cards(&buf, d)

	if d.Insight != nil {
		p.insight(&buf, d)
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing dashboard: %w", err)
	}

	return nil
}

func (p *Printer) header(buf *bytes.Buffer, d model.Dashboard) {
	heading := d.Title
	if d.ViewTitle != "" {
		heading += " | " + d.ViewTitle
	}
	p.title.Fprintln(buf, heading)

	if d.Query != "" {
		p.label.Fprint(buf, "Query: ")
		fmt.Fprintln(buf, d.Query)
	}

	if d.Badge != nil {
		p.badge(d.Badge.Level).Fprintf(buf, "[%d%% %s]\n", d.Badge.Percent, d.Badge.Label)
	}

	buf.WriteByte('\n')
}

func (p *Printer) badge(level insight.Level) *color.Color {
	switch level {
	case insight.LevelHigh:
		return p.high
	case insight.LevelMedium:
		return p.medium
	default:
		return p.low
	}
}

func (p *Printer) rejection(buf *bytes.Buffer, d model.Dashboard) {
	p.rejected.Fprintln(buf, "Unable to answer: "+d.Rejection.Reason)
	if d.Rejection.Suggestion != "" {
		p.label.Fprint(buf, "Suggestion: ")
		fmt.Fprintln(buf, d.Rejection.Suggestion)
	}

	buf.WriteByte('\n')
}

func (p *Printer) cards(buf *bytes.Buffer, d model.Dashboard) {
	if len(d.Cards) == 0 {
		return
	}

	if d.Compact {
		parts := make([]string, 0, len(d.Cards))
		for _, card := range d.Cards {
			parts = append(parts, card.Title+": "+card.Value)
		}
		fmt.Fprintln(buf, strings.Join(parts, " | "))
		buf.WriteByte('\n')

		return
	}

	tw := tabwriter.NewWriter(buf, 0, 0, 2, ' ', 0)
	for _, card := range d.Cards {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", card.Title, card.Value, card.Subtitle, p.trend(card.Trend))
	}
	_ = tw.Flush() // writes to a buffer

	buf.WriteByte('\n')
}

func (p *Printer) trend(t *kpi.Trend) string {
	if t == nil {
		return ""
	}

	if t.Positive {
		return p.positive.Sprint(t.Value)
	}

	return p.negative.Sprint(t.Value)
}

func (p *Printer) insight(buf *bytes.Buffer, d model.Dashboard) {
	if d.Summary != "" {
		p.label.Fprintln(buf, "Summary")
		fmt.Fprintln(buf, d.Summary)
		buf.WriteByte('\n')
	}

	p.label.Fprint(buf, "Rows: ")
	fmt.Fprintln(buf, strconv.Itoa(d.Rows))

	if d.Table.Empty() {
		return
	}

	buf.WriteByte('\n')
	p.table(buf, d.Table)
}

func (p *Printer) table(buf *bytes.Buffer, t model.Table) {
	tw := tabwriter.NewWriter(buf, 0, 0, 2, ' ', 0)

	titles := make([]string, 0, len(t.Columns))
	for _, col := range t.Columns {
		titles = append(titles, col.Title)
	}
	fmt.Fprintln(tw, strings.Join(titles, "\t"))

	rows := t.Rows
	if p.maxRows > 0 && len(rows) > p.maxRows {
		rows = rows[:p.maxRows]
	}

	for _, row := range rows {
		cells := make([]string, 0, len(row))
		for _, cell := range row {
			cells = append(cells, strings.ReplaceAll(cell.Text, "\t", " "))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	_ = tw.Flush() // writes to a buffer

	if hidden := len(t.Rows) - len(rows); hidden > 0 {
		p.label.Fprintf(buf, "... %d more rows\n", hidden)
	}
}

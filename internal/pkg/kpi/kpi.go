// Package kpi computes the key metric cards shown above the chart.
package kpi

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/fredbi/insightviz/internal/pkg/binding"
	"github.com/fredbi/insightviz/internal/pkg/settings"
	"github.com/montanaflynn/stats"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Trend is the change of a metric over the series.
type Trend struct {
	Value    string `json:"value"`
	Positive bool   `json:"positive"`
}

// Card is a key metric.
type Card struct {
	Title    string `json:"title"`
	Value    string `json:"value"`
	Subtitle string `json:"subtitle,omitempty"`
	Trend    *Trend `json:"trend,omitempty"`
}

const defaultMetric = "Value"

// Cards computes the metric cards of a series.
//
// metric names the measured quantity, e.g. "Revenue". An empty series only yields the time range card.
func Cards(series []binding.Point, metric string, timeRange settings.TimeRange) []Card {
	if metric == "" {
		metric = defaultMetric
	}

	cards := make([]Card, 0, 4)

	if len(series) > 0 {
		data := make(stats.Float64Data, 0, len(series))
		for _, p := range series {
			data = append(data, p.Value)
		}

		total, _ := stats.Sum(data)
		mean, _ := stats.Mean(data)
		peak, _ := stats.Max(data)

		cards = append(cards,
			Card{
				Title:    "Total " + metric,
				Value:    Compact(total),
				Subtitle: timeRange.Label(),
				Trend:    trendOf(series),
			},
			Card{
				Title:    "Average " + metric,
				Value:    Compact(mean),
				Subtitle: fmt.Sprintf("over %d data points", len(series)),
			},
			Card{
				Title:    "Peak " + metric,
				Value:    Compact(peak),
				Subtitle: peakLabel(series, peak),
			},
		)
	}

	rangeCard := Card{
		Title: "Time Range",
		Value: timeRange.Label(),
	}
	if len(series) > 0 {
		first, last := series[0].Name, series[len(series)-1].Name
		if first != "" && last != "" {
			rangeCard.Subtitle = first + " - " + last
		}
	}

	return append(cards, rangeCard)
}

// trendOf is the relative change between the first and the last point.
func trendOf(series []binding.Point) *Trend {
	if len(series) < 2 {
		return nil
	}

	first, last := series[0].Value, series[len(series)-1].Value
	if first == 0 {
		return nil
	}

	change, err := stats.Round((last-first)/math.Abs(first)*100, 1)
	if err != nil {
		return nil
	}

	sign := ""
	if change >= 0 {
		sign = "+"
	}

	return &Trend{
		Value:    sign + strconv.FormatFloat(change, 'f', 1, 64) + "%",
		Positive: change >= 0,
	}
}

func peakLabel(series []binding.Point, peak float64) string {
	for _, p := range series {
		if p.Value == peak {
			return p.Name
		}
	}

	return ""
}

// Decimal formats a number with grouped thousands and at most 3 fraction digits.
func Decimal(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}

	p := message.NewPrinter(language.English)

	return p.Sprint(number.Decimal(v, number.MaxFractionDigits(3)))
}

// compactUnits are ordered from the largest.
var compactUnits = []struct {
	size   float64
	suffix string
}{
	{size: 1e9, suffix: "B"},
	{size: 1e6, suffix: "M"},
	{size: 1e3, suffix: "K"},
}

// Compact formats a number in compact notation: 27.6K, 1.2M, 3B.
//
// The value is rounded to one decimal before the unit is chosen, so 999,950 is 1M, not 1000K.
func Compact(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}

	abs := math.Abs(v)
	for i, unit := range compactUnits {
		if abs < unit.size {
			continue
		}

		tenths := math.Round(abs / (unit.size / 10))
		if tenths >= 10000 && i > 0 {
			unit = compactUnits[i-1]
			tenths = math.Round(abs / (unit.size / 10))
		}

		return sign(v) + scaled(tenths/10) + unit.suffix
	}

	return Decimal(v)
}

func sign(v float64) string {
	if v < 0 {
		return "-"
	}

	return ""
}

func scaled(v float64) string {
	s := strconv.FormatFloat(v, 'f', 1, 64)

	return strings.TrimSuffix(s, ".0")
}

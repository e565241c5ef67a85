// Package settings holds the user preferences of the dashboard.
//
// A [Store] keeps the current [Settings] in memory, loads them from a remote store and
// saves them back after a quiet window following the last mutation.
package settings

// ChartType is the preferred kind of chart.
type ChartType string

// Supported chart types.
const (
	ChartLine ChartType = "line"
	ChartBar  ChartType = "bar"
	ChartArea ChartType = "area"
)

// String returns the chart type as a plain string.
func (c ChartType) String() string {
	return string(c)
}

// IsValid reports whether the chart type is one of the supported chart types.
func (c ChartType) IsValid() bool {
	switch c {
	case ChartLine, ChartBar, ChartArea:
		return true
	default:
		return false
	}
}

// AllChartTypes returns all supported chart types.
func AllChartTypes() []ChartType {
	return []ChartType{ChartLine, ChartBar, ChartArea}
}

// TimeRange is the default time window applied to view-scoped analyses.
type TimeRange string

// Supported time ranges.
const (
	Range1Month  TimeRange = "1m"
	Range3Months TimeRange = "3m"
	Range6Months TimeRange = "6m"
	Range1Year   TimeRange = "1y"
	Range2Years  TimeRange = "2y"
	RangeAll     TimeRange = "all"
)

// String returns the time range as a plain string.
func (r TimeRange) String() string {
	return string(r)
}

// IsValid reports whether the time range is one of the supported time ranges.
func (r TimeRange) IsValid() bool {
	switch r {
	case Range1Month, Range3Months, Range6Months, Range1Year, Range2Years, RangeAll:
		return true
	default:
		return false
	}
}

// Label returns a human-readable label, e.g. "6 Months".
func (r TimeRange) Label() string {
	switch r {
	case Range1Month:
		return "1 Month"
	case Range3Months:
		return "3 Months"
	case Range6Months:
		return "6 Months"
	case Range1Year:
		return "1 Year"
	case Range2Years:
		return "2 Years"
	case RangeAll:
		return "All Time"
	default:
		return string(r)
	}
}

// AllTimeRanges returns all supported time ranges.
func AllTimeRanges() []TimeRange {
	return []TimeRange{Range1Month, Range3Months, Range6Months, Range1Year, Range2Years, RangeAll}
}

// Settings is the full set of user preferences.
//
// A [Settings] value is always fully populated: see [Defaults].
type Settings struct {
	CompactView          bool      `json:"compactView" mapstructure:"compactView"`
	ChartType            ChartType `json:"chartType" mapstructure:"chartType"`
	DefaultTimeRange     TimeRange `json:"defaultTimeRange" mapstructure:"defaultTimeRange"`
	EmailAlerts          bool      `json:"emailAlerts" mapstructure:"emailAlerts"`
	InsightNotifications bool      `json:"insightNotifications" mapstructure:"insightNotifications"`
	ShareUsageAnalytics  bool      `json:"shareUsageAnalytics" mapstructure:"shareUsageAnalytics"`
	SaveQueryHistory     bool      `json:"saveQueryHistory" mapstructure:"saveQueryHistory"`
}

// Defaults returns the settings used before anything is loaded from the remote store.
func Defaults() Settings {
	return Settings{
		CompactView:          false,
		ChartType:            ChartLine,
		DefaultTimeRange:     Range6Months,
		EmailAlerts:          false,
		InsightNotifications: true,
		ShareUsageAnalytics:  false,
		SaveQueryHistory:     true,
	}
}

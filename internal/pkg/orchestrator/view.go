package orchestrator

import "fmt"

// View is a dashboard view.
type View string

// Dashboard views.
const (
	ViewKPIOverview   View = "kpi-overview"
	ViewTrendAnalysis View = "trend-analysis"
	ViewBreakdown     View = "breakdown"
	ViewSavedInsights View = "saved-insights"
	ViewSettings      View = "settings"
)

func (v View) String() string {
	return string(v)
}

// IsValid reports whether v is a known view.
func (v View) IsValid() bool {
	switch v {
	case ViewKPIOverview, ViewTrendAnalysis, ViewBreakdown, ViewSavedInsights, ViewSettings:
		return true
	default:
		return false
	}
}

// Queryable reports whether questions may be asked from this view.
func (v View) Queryable() bool {
	switch v {
	case ViewKPIOverview, ViewTrendAnalysis, ViewBreakdown:
		return true
	default:
		return false
	}
}

// Title is the heading of the view.
func (v View) Title() string {
	switch v {
	case ViewKPIOverview:
		return "KPI Overview"
	case ViewTrendAnalysis:
		return "Trend Analysis"
	case ViewBreakdown:
		return "Breakdown"
	case ViewSavedInsights:
		return "Saved Insights"
	case ViewSettings:
		return "Settings"
	default:
		return string(v)
	}
}

// AllViews returns all views, in navigation order.
func AllViews() []View {
	return []View{ViewKPIOverview, ViewTrendAnalysis, ViewBreakdown, ViewSavedInsights, ViewSettings}
}

// ParseView parses a view name.
func ParseView(name string) (View, error) {
	v := View(name)
	if !v.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownView, name)
	}

	return v, nil
}

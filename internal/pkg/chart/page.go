package chart

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/components"
)

// Page is the chart page of a dashboard: the insight chart of the active view, if any.
//
// It is served by the web dashboard, written by `ask --output` and screenshot as PNG.
type Page struct {
	Title     string
	ViewTitle string
	Chart     *Chart
}

// NewPage creates an empty chart page for a dashboard view.
func NewPage(title, viewTitle string) *Page {
	return &Page{
		Title:     title,
		ViewTitle: viewTitle,
	}
}

// SetChart sets the chart shown on the page. A nil chart empties the page.
func (p *Page) SetChart(c *Chart) {
	p.Chart = c
}

// Empty reports whether the page has no chart.
func (p *Page) Empty() bool {
	return p.Chart == nil
}

// PageTitle is the HTML title of the page: "dashboard | view".
func (p *Page) PageTitle() string {
	if p.ViewTitle == "" {
		return p.Title
	}

	if p.Title == "" {
		return p.ViewTitle
	}

	return p.Title + " | " + p.ViewTitle
}

// Render writes the page HTML to the given writer.
//
// An empty page is still a valid HTML page, so that an embedding frame never breaks.
func (p *Page) Render(w io.Writer) error {
	page := components.NewPage()
	page.SetLayout(components.PageCenterLayout)
	page.SetPageTitle(p.PageTitle())

	if p.Chart != nil {
		page.AddCharts(p.Chart.Build())
	}

	return page.Render(w)
}

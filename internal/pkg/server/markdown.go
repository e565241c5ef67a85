package server

import (
	"html/template"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// renderMarkdown converts an insight summary to HTML. Raw HTML in the source is dropped.
func renderMarkdown(source string) template.HTML {
	if source == "" {
		return ""
	}

	p := parser.NewWithExtensions(parser.CommonExtensions | parser.NoEmptyLineBeforeBlock)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.SkipHTML | mdhtml.Safelink,
	})

	return template.HTML(markdown.ToHTML([]byte(source), p, renderer)) //nolint:gosec // raw HTML is skipped by the renderer
}

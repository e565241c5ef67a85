// Package image converts a HTML chart page into a PNG screenshot.
package image

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/device"
)

// Renderer knows how to take a screenshot from a HTML input and writes it as PNG.
type Renderer struct {
	options
}

// New builds an image [Renderer] from HTML.
func New(opts ...Option) *Renderer {
	return &Renderer{
		options: optionsWithDefaults(opts),
	}
}

// Render a PNG image as a screenshot from a HTML input [io.Reader].
//
// Rendering requires a Chrome or Chromium browser to be installed.
func (r *Renderer) Render(ctx context.Context, dest io.Writer, source io.Reader) error {
	screenshot, err := r.screenshot(ctx, source)
	if err != nil {
		return fmt.Errorf("taking screenshot: %w", err)
	}

	_, err = dest.Write(screenshot)
	if err != nil {
		return fmt.Errorf("writing screenshot: %w", err)
	}

	r.l.Debug("screenshot taken", slog.Int("bytes", len(screenshot)))

	return nil
}

func (r *Renderer) screenshot(parent context.Context, reader io.Reader) ([]byte, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}

	timeoutCtx, cancelTimeout := context.WithTimeout(parent, r.Timeout)
	defer cancelTimeout()

	ctx, cancel := chromedp.NewContext(timeoutCtx)
	defer cancel()

	const qualityPNG = 100 // 100 to force PNG
	var screenshot []byte

	r.l.Debug("rendering chart page",
		slog.Int64("width", r.Width),
		slog.Int64("height", r.Height),
		slog.Int("html_bytes", len(content)),
	)

	err = chromedp.Run(ctx,
		chromedp.Emulate(device.Info{
			Height:    r.Height,
			Width:     r.Width,
			Landscape: r.Width > r.Height,
		}),
		chromedp.Navigate("data:text/html,"+url.PathEscape(string(content))),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(r.SleepDuration), // charts are animated: wait for the rendering to settle
		chromedp.FullScreenshot(&screenshot, qualityPNG),
	)
	if err != nil {
		return nil, fmt.Errorf("running headless browser: %w", err)
	}

	return screenshot, nil
}

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fredbi/insightviz/internal/pkg/chart"
	"github.com/fredbi/insightviz/internal/pkg/config"
	"github.com/fredbi/insightviz/internal/pkg/console"
	"github.com/fredbi/insightviz/internal/pkg/export"
	"github.com/fredbi/insightviz/internal/pkg/image"
	"github.com/fredbi/insightviz/internal/pkg/kpi"
	"github.com/fredbi/insightviz/internal/pkg/model"
	"github.com/fredbi/insightviz/internal/pkg/orchestrator"
	"github.com/spf13/cobra"
)

const defaultPngFile = "insightviz.png"

// ErrAnalysisFailed is returned when the analysis service could not answer.
var ErrAnalysisFailed = errors.New("analysis failed")

type answer struct {
	orchestrator.State

	Cards []kpi.Card `json:"cards"`
}

func (c *Command) askCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [flags] question...",
		Short: "Ask a question and render the answer",
		Example: `  insightviz ask revenue by month
  insightviz ask --view trend-analysis -o trend.html --png orders per week
  insightviz ask --xlsx results.xlsx top products by revenue`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.ask(cmd, strings.Join(args, " "))
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&c.View, "view", "v", orchestrator.ViewKPIOverview.String(),
		"view to ask from: kpi-overview, trend-analysis or breakdown")
	flags.BoolVar(&c.IsJSON, "json", false, "print the answer as JSON")
	flags.StringVarP(&c.OutputFile, "output", "o", "", "HTML chart output file")
	flags.BoolVar(&c.Png, "png", false, "enable PNG screenshot output")
	flags.StringVar(&c.XLSXFile, "xlsx", "", "XLSX export file")

	return cmd
}

func (c *Command) ask(cmd *cobra.Command, query string) error {
	ctx := cmd.Context()

	view, err := orchestrator.ParseView(c.View)
	if err != nil {
		return err
	}

	cfg, err := c.configFor(cmd)
	if err != nil {
		return err
	}

	if err = c.setConfig(cfg); err != nil {
		return fmt.Errorf("preparing config: %w", err)
	}
	if cfg.Outputs.IsTemp {
		defer func() {
			_ = os.Remove(cfg.Outputs.HTMLFile)
		}()
	}

	s, err := c.openSession(ctx, cfg, view)
	if err != nil {
		return err
	}
	defer c.closeSession(ctx, cfg, s)

	spin := console.NewSpinner("Analyzing...", console.WithSpinnerWriter(c.Err))
	spin.Start()
	st, err := s.orch.Submit(ctx, query)
	spin.Stop()
	if err != nil {
		return fmt.Errorf("submitting query: %w", err)
	}

	d := model.Build(cfg, st, s.store.Get())

	if err = c.printAnswer(st, d); err != nil {
		return err
	}

	if err = c.renderOutputs(ctx, cfg, d); err != nil {
		return err
	}

	if st.Phase == orchestrator.PhaseError {
		return fmt.Errorf("%w: %s", ErrAnalysisFailed, st.Error)
	}

	return nil
}

func (c *Command) closeSession(ctx context.Context, cfg *config.Config, s *session) {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Settings.PersistTimeout)
	defer cancel()

	if err := s.shutdown(shutdownCtx); err != nil {
		c.L.Warn("settings not saved", slog.String("error", err.Error()))
	}
}

func (c *Command) printAnswer(st orchestrator.State, d model.Dashboard) error {
	if c.IsJSON {
		enc := json.NewEncoder(c.Out)
		enc.SetIndent("", " ")

		return enc.Encode(answer{State: st, Cards: d.Cards})
	}

	return console.New(console.WithNoColor(c.NoColor)).Render(c.Out, d)
}

// setConfig applies CLI flags overrides to the outputs.
func (c *Command) setConfig(cfg *config.Config) error {
	if c.OutputFile != "" && c.OutputFile != "-" {
		// an outfile is defined: infer the PNG file from the HTML file provided
		cfg.Outputs.HTMLFile = inferHTMLFile(c.OutputFile)
		if cfg.Outputs.PngFile == "" && c.Png {
			cfg.Outputs.PngFile = inferImageFile(cfg.Outputs.HTMLFile)
		}
	}

	if c.XLSXFile != "" {
		cfg.Outputs.XLSXFile = c.XLSXFile
	}

	if c.Png && cfg.Outputs.PngFile == "" {
		c.L.Info("no output file: PNG image rendered to default file", slog.String("file", defaultPngFile))
		cfg.Outputs.PngFile = defaultPngFile
	}

	if cfg.Outputs.HTMLFile == "" && cfg.Outputs.PngFile != "" {
		c.L.Info("HTML generated as a temporary file to produce PNG")
		tmp, err := os.CreateTemp("", "insightviz.*.html")
		if err != nil {
			return err
		}
		cfg.Outputs.HTMLFile = tmp.Name()
		cfg.Outputs.IsTemp = true
		_ = tmp.Close()
	}

	return nil
}

// renderOutputs writes the chart page as HTML, possibly as a PNG image, and the XLSX export.
func (c *Command) renderOutputs(ctx context.Context, cfg *config.Config, d model.Dashboard) error {
	if cfg.Outputs.XLSXFile != "" {
		if err := c.writeXLSX(cfg.Outputs.XLSXFile, d); err != nil {
			return err
		}
	}

	if cfg.Outputs.HTMLFile == "" {
		return nil
	}

	// 1. build the chart page
	page := chart.New(cfg, d).BuildPage()
	if page.Empty() {
		c.L.Warn("no data to chart: no HTML or PNG output")

		return nil
	}

	// 2. render the page as HTML
	htmlWriter, htmlCloser, err := getWriter(cfg.Outputs.HTMLFile, "HTML")
	if err != nil {
		return err
	}

	if err := page.Render(htmlWriter); err != nil {
		htmlCloser()

		return fmt.Errorf("rendering page: %w", err)
	}

	htmlCloser()

	if cfg.Outputs.PngFile == "" {
		// html only: we're done
		return nil
	}

	// 3. convert the HTML page to a PNG image
	htmlReader, htmlCloser, err := getReader(cfg.Outputs.HTMLFile, "HTML")
	if err != nil {
		return err
	}
	defer htmlCloser()

	pngWriter, pngCloser, err := getWriter(cfg.Outputs.PngFile, "PNG")
	if err != nil {
		return err
	}
	defer pngCloser()

	r := image.New(image.WithScreenshot(cfg.Render.Screenshot))
	if err = r.Render(ctx, pngWriter, htmlReader); err != nil {
		return fmt.Errorf("rendering image: %w", err)
	}

	return nil
}

func (c *Command) writeXLSX(file string, d model.Dashboard) error {
	xlsxWriter, xlsxCloser, err := getWriter(file, "XLSX")
	if err != nil {
		return err
	}
	defer xlsxCloser()

	err = export.New().WriteXLSX(xlsxWriter, d)
	switch {
	case errors.Is(err, export.ErrNothingToExport):
		c.L.Warn("nothing to export", slog.String("file", file))

		return nil
	case err != nil:
		return fmt.Errorf("exporting results: %w", err)
	default:
		return nil
	}
}

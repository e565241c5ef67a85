package testintegration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fredbi/insightviz/internal/pkg/backend"
	"github.com/fredbi/insightviz/internal/pkg/chart"
	"github.com/fredbi/insightviz/internal/pkg/config"
	"github.com/fredbi/insightviz/internal/pkg/console"
	"github.com/fredbi/insightviz/internal/pkg/export"
	"github.com/fredbi/insightviz/internal/pkg/history"
	"github.com/fredbi/insightviz/internal/pkg/model"
	"github.com/fredbi/insightviz/internal/pkg/orchestrator"
	"github.com/fredbi/insightviz/internal/pkg/settings"

	"github.com/go-openapi/testify/v2/assert"
	"github.com/go-openapi/testify/v2/require"
)

func TestInsightviz(t *testing.T) {
	fixtureDir := filepath.Join("..", "..", "..", "examples")
	outDir := t.TempDir()
	api := serveFixtures(t, filepath.Join(fixtureDir, "responses"))
	ctx := context.Background()

	t.Run("with sales example", func(t *testing.T) {
		t.Run("should load config", func(t *testing.T) {
			cfg, err := config.Load(filepath.Join(fixtureDir, "insightviz.yaml"))
			require.NoError(t, err)
			require.NotNil(t, cfg)
			cfg.API.BaseURL = api.URL

			writeData(t, outDir, "test_config.json", cfg)

			client, err := backend.New(cfg.API.BaseURL, backend.WithTimeout(cfg.API.Timeout))
			require.NoError(t, err)

			t.Run("should load settings", func(t *testing.T) {
				store := settings.New(client, settings.WithDebounce(cfg.Settings.Debounce))
				current := store.Load(ctx)
				assert.Equal(t, settings.ChartArea, current.ChartType)
				assert.True(t, current.SaveQueryHistory)

				writeData(t, outDir, "test_settings.json", current)

				hist, err := history.Open(filepath.Join(outDir, "history.db"))
				require.NoError(t, err)
				t.Cleanup(func() { _ = hist.Close() })

				orch := orchestrator.New(client, store, orchestrator.WithRecorder(hist))
				t.Cleanup(orch.Close)

				t.Run("should answer a question", func(t *testing.T) {
					st, err := orch.Submit(ctx, "revenue by month")
					require.NoError(t, err)
					require.Equal(t, orchestrator.PhaseSuccess, st.Phase)
					require.Len(t, st.Series, 6)
					require.NotNil(t, st.Binding)
					assert.Equal(t, "month", st.Binding.Label)
					assert.Equal(t, "revenue", st.Binding.Value)

					writeData(t, outDir, "test_state.json", st)

					t.Run("should build dashboard", func(t *testing.T) {
						d := model.Build(cfg, st, store.Get())
						assert.Equal(t, "Sales Insights", d.Title)
						assert.Equal(t, "Revenue (USD) by Month", d.Chart.Title)
						assert.Equal(t, settings.ChartArea, d.Chart.Type)
						require.Len(t, d.Table.Columns, 4)
						assert.Equal(t, "MoM Growth", d.Table.Columns[3].Title)
						assert.Equal(t, "$120,500.5", d.Table.Rows[0][2].Text)
						assert.Equal(t, model.NullText, d.Table.Rows[0][3].Text)
						assert.Equal(t, "-1.8%", d.Table.Rows[2][3].Text)

						t.Run("should render console", func(t *testing.T) {
							var buf bytes.Buffer
							require.NoError(t, console.New(console.WithNoColor(true)).Render(&buf, d))
							assert.Contains(t, buf.String(), "[92% High Confidence]")

							writeResult(t, outDir, "test_console.txt", &buf)
						})

						t.Run("should render page", func(t *testing.T) {
							page := chart.New(cfg, d).BuildPage()
							require.False(t, page.Empty())

							var buf bytes.Buffer
							require.NoError(t, page.Render(&buf))
							assert.Contains(t, buf.String(), "echarts")

							writeResult(t, outDir, "test_html.html", &buf)
						})

						t.Run("should export workbook", func(t *testing.T) {
							var buf bytes.Buffer
							require.NoError(t, export.New().WriteXLSX(&buf, d))
							require.NotZero(t, buf.Len())

							writeResult(t, outDir, "test_results.xlsx", &buf)
						})
					})
				})

				t.Run("should be rejected from another view", func(t *testing.T) {
					require.NoError(t, orch.SetView(orchestrator.ViewBreakdown))

					st, err := orch.Submit(ctx, "what is the weather")
					require.NoError(t, err)
					assert.Equal(t, orchestrator.PhaseRejected, st.Phase)
					assert.Len(t, st.Series, 6, "the last chart survives a rejection")

					d := model.Build(cfg, st, store.Get())
					require.NotNil(t, d.Rejection)
					assert.True(t, strings.HasPrefix(d.Rejection.Suggestion, "Try asking"))
				})

				t.Run("should keep history", func(t *testing.T) {
					entries, err := hist.List(ctx, 0)
					require.NoError(t, err)
					require.Len(t, entries, 2)
					assert.Equal(t, "rejected", entries[0].Kind)
					assert.Equal(t, "success", entries[1].Kind)

					writeData(t, outDir, "test_history.json", entries)
				})
			})

			t.Run("should list saved insights", func(t *testing.T) {
				saved, err := client.SavedInsights(ctx)
				require.NoError(t, err)
				require.Len(t, saved, 2)
				assert.JSONEq(t, `{"summary":"Revenue grew"}`, saved[0].Insight)
				assert.Equal(t, "West leads", saved[1].Insight)
			})
		})
	})
}

// serveFixtures serves the JSON files in dir, named after the request path.
func serveFixtures(t *testing.T, dir string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.ReplaceAll(strings.Trim(r.URL.Path, "/"), "/", "-")
		if name == "settings-set" {
			w.WriteHeader(http.StatusNoContent)

			return
		}

		content, err := os.ReadFile(filepath.Join(dir, name+".json"))
		if err != nil {
			http.NotFound(w, r)

			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(content)
	}))
	t.Cleanup(srv.Close)

	return srv
}

func writeData(t *testing.T, dir, name string, data any) {
	t.Helper()

	buf, err := json.MarshalIndent(data, "", "  ")
	require.NoError(t, err)

	rdr := bytes.NewReader(buf)
	writeResult(t, dir, name, rdr)
}

func writeResult(t *testing.T, dir, name string, rdr io.Reader) {
	t.Helper()

	file, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	defer file.Close()

	_, err = io.Copy(file, rdr)
	require.NoError(t, err)
}

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fredbi/insightviz/internal/pkg/config"
	"github.com/fredbi/insightviz/internal/pkg/settings"
	"github.com/xuri/excelize/v2"

	"github.com/go-openapi/testify/v2/assert"
	"github.com/go-openapi/testify/v2/require"
)

const (
	successBody = `{"status":"success","confidence":0.87,"insight":{"summary":"Revenue grew steadily",
		"data":[{"month":"Jan","total_revenue":1200},{"month":"Feb","total_revenue":1850.5},{"month":"Mar","total_revenue":1640}]}}`
	savedBody = `{"status":"success","data":[{"id":7,"query":"revenue by region","view":"breakdown","insight":"West leads","confidence":0.75,"created_at":"2026-03-01 10:00:00"}]}`
)

func TestNewCommand(t *testing.T) {
	cli := NewCommand()
	require.NotNil(t, cli)
	assert.NotNil(t, cli.L)
	require.NotNil(t, cli.root)

	// Verify defaults from the registered flags
	assert.Equal(t, defaultConfigFile, cli.Config)
	assert.Equal(t, defaultEnvFile, cli.EnvFile)
	assert.Equal(t, "warn", cli.LogLevel)

	names := make([]string, 0, len(cli.root.Commands()))
	for _, sub := range cli.root.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"ask", "settings", "saved", "history", "serve"} {
		assert.Contains(t, names, want)
	}
}

func TestInferHTMLFile(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"output.png", "output.html"},
		{"output.html", "output.html"},
		{"output", "output.html"},
		{"path/to/output.png", "path/to/output.html"},
		{"output.svg", "output.html"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, inferHTMLFile(tt.input))
		})
	}
}

func TestInferImageFile(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"output.html", "output.png"},
		{"output.png", "output.png"},
		{"output", "output.png"},
		{"path/to/output.html", "path/to/output.png"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, inferImageFile(tt.input))
		})
	}
}

func TestSetConfigNoOutput(t *testing.T) {
	cfg := &config.Config{}
	cli := &Command{L: newTestLogger()}

	require.NoError(t, cli.setConfig(cfg))

	// the answer is only printed on the terminal
	assert.Empty(t, cfg.Outputs.HTMLFile)
	assert.Empty(t, cfg.Outputs.PngFile)
	assert.Empty(t, cfg.Outputs.XLSXFile)
}

func TestSetConfigOutputFile(t *testing.T) {
	cfg := &config.Config{}
	cli := &Command{
		OutputFile: "results.png",
		XLSXFile:   "results.xlsx",
		L:          newTestLogger(),
	}

	require.NoError(t, cli.setConfig(cfg))

	assert.Equal(t, "results.html", cfg.Outputs.HTMLFile)
	assert.Empty(t, cfg.Outputs.PngFile)
	assert.Equal(t, "results.xlsx", cfg.Outputs.XLSXFile)
}

func TestSetConfigOutputFileWithPng(t *testing.T) {
	cfg := &config.Config{}
	cli := &Command{
		OutputFile: "results.html",
		Png:        true,
		L:          newTestLogger(),
	}

	require.NoError(t, cli.setConfig(cfg))

	assert.Equal(t, "results.html", cfg.Outputs.HTMLFile)
	assert.Equal(t, "results.png", cfg.Outputs.PngFile)
	assert.False(t, cfg.Outputs.IsTemp)
}

func TestSetConfigTempHTML(t *testing.T) {
	cfg := &config.Config{}
	cli := &Command{
		Png: true,
		L:   newTestLogger(),
	}

	require.NoError(t, cli.setConfig(cfg))
	t.Cleanup(func() { _ = os.Remove(cfg.Outputs.HTMLFile) })

	assert.Equal(t, defaultPngFile, cfg.Outputs.PngFile)
	assert.True(t, cfg.Outputs.IsTemp)
	assert.NotEmpty(t, cfg.Outputs.HTMLFile)
	assert.True(t, strings.Contains(cfg.Outputs.HTMLFile, "insightviz"),
		"expected temp file name to contain 'insightviz', got %q", cfg.Outputs.HTMLFile)
}

func TestPrepareConfig(t *testing.T) {
	t.Run("should load a config file", func(t *testing.T) {
		cli := &Command{
			Config: writeTestConfig(t, "name: Test\napi:\n  baseURL: http://analytics.local:9000\n"),
			L:      newTestLogger(),
		}

		cfg, err := cli.prepareConfig(true)
		require.NoError(t, err)
		assert.Equal(t, "Test", cfg.Name)
		assert.Equal(t, "http://analytics.local:9000", cfg.API.BaseURL)
	})

	t.Run("should fall back to defaults when the default file is missing", func(t *testing.T) {
		cli := &Command{
			Config: filepath.Join(t.TempDir(), defaultConfigFile),
			L:      newTestLogger(),
		}

		cfg, err := cli.prepareConfig(false)
		require.NoError(t, err)
		assert.Equal(t, "insightviz", cfg.Name)
	})

	t.Run("should fail when an explicit file is missing", func(t *testing.T) {
		cli := &Command{
			Config: "/nonexistent/config.yaml",
			L:      newTestLogger(),
		}

		_, err := cli.prepareConfig(true)
		require.Error(t, err)
	})

	t.Run("should let the flag override the environment", func(t *testing.T) {
		t.Setenv(config.EnvAPIURL, "http://from-env:8000")

		cli := &Command{
			Config: filepath.Join(t.TempDir(), defaultConfigFile),
			APIURL: "http://from-flag:8000",
			L:      newTestLogger(),
		}

		cfg, err := cli.prepareConfig(false)
		require.NoError(t, err)
		assert.Equal(t, "http://from-flag:8000", cfg.API.BaseURL)
	})
}

func TestAsk(t *testing.T) {
	api := newFakeAPI(t)
	dir := t.TempDir()
	cfgFile := api.config(t, dir)
	htmlFile := filepath.Join(dir, "answer.html")
	xlsxFile := filepath.Join(dir, "answer.xlsx")

	cli, out := newTestCommand()
	require.NoError(t, cli.Execute(
		"ask", "--config", cfgFile, "--no-color",
		"-o", htmlFile, "--xlsx", xlsxFile,
		"revenue", "by", "month",
	))

	t.Run("should print the dashboard", func(t *testing.T) {
		text := out.String()
		assert.Contains(t, text, "Query: revenue by month")
		assert.Contains(t, text, "[87% High Confidence]")
		assert.Contains(t, text, "Revenue grew steadily")
		assert.Contains(t, text, "$1,850.5")
	})

	t.Run("should call the single-query endpoint", func(t *testing.T) {
		assert.Equal(t, []string{"revenue by month"}, api.queries())
	})

	t.Run("should write the chart page", func(t *testing.T) {
		content, err := os.ReadFile(htmlFile)
		require.NoError(t, err)
		assert.Contains(t, string(content), "echarts")
	})

	t.Run("should write the workbook", func(t *testing.T) {
		f, err := excelize.OpenFile(xlsxFile)
		require.NoError(t, err)
		t.Cleanup(func() { _ = f.Close() })

		rows, err := f.GetRows("Results")
		require.NoError(t, err)
		require.Len(t, rows, 4)
		assert.Equal(t, []string{"Month", "Total Revenue"}, rows[0])
	})

	t.Run("should record the question in the history", func(t *testing.T) {
		cli, out := newTestCommand()
		require.NoError(t, cli.Execute("history", "--config", cfgFile, "--json"))

		var entries []map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &entries))
		require.Len(t, entries, 1)
		assert.Equal(t, "revenue by month", entries[0]["query"])
		assert.Equal(t, "success", entries[0]["kind"])
	})

	t.Run("should clear the history", func(t *testing.T) {
		cli, out := newTestCommand()
		require.NoError(t, cli.Execute("history", "--config", cfgFile, "--clear"))
		assert.Contains(t, out.String(), "History cleared")

		cli, out = newTestCommand()
		require.NoError(t, cli.Execute("history", "--config", cfgFile))
		assert.Contains(t, out.String(), "No history")
	})
}

func TestAskFromView(t *testing.T) {
	api := newFakeAPI(t)
	cfgFile := api.config(t, t.TempDir())

	cli, out := newTestCommand()
	require.NoError(t, cli.Execute("ask", "--config", cfgFile, "--view", "trend-analysis", "--json", "orders"))

	var answer struct {
		View  string `json:"view"`
		Phase string `json:"phase"`
		Cards []any  `json:"cards"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &answer))
	assert.Equal(t, "trend-analysis", answer.View)
	assert.Equal(t, "success", answer.Phase)
	assert.Len(t, answer.Cards, 4)

	assert.Equal(t, []string{"view:trend-analysis:orders:1y"}, api.queries())
}

func TestAskFailures(t *testing.T) {
	api := newFakeAPI(t)
	cfgFile := api.config(t, t.TempDir())

	t.Run("should fail on an unknown view", func(t *testing.T) {
		cli, _ := newTestCommand()
		require.Error(t, cli.Execute("ask", "--config", cfgFile, "--view", "nowhere", "revenue"))
	})

	t.Run("should fail from a view without questions", func(t *testing.T) {
		cli, _ := newTestCommand()
		require.Error(t, cli.Execute("ask", "--config", cfgFile, "--view", "settings", "revenue"))
	})

	t.Run("should fail when the service fails", func(t *testing.T) {
		api.fail(true)
		t.Cleanup(func() { api.fail(false) })

		cli, out := newTestCommand()
		err := cli.Execute("ask", "--config", cfgFile, "--no-color", "revenue")
		require.ErrorIs(t, err, ErrAnalysisFailed)
		assert.Contains(t, out.String(), "Error: API error")
	})

	t.Run("should require a question", func(t *testing.T) {
		cli, _ := newTestCommand()
		require.Error(t, cli.Execute("ask", "--config", cfgFile))
	})
}

func TestSettingsCommands(t *testing.T) {
	api := newFakeAPI(t)
	cfgFile := api.config(t, t.TempDir())

	t.Run("should show the settings", func(t *testing.T) {
		cli, out := newTestCommand()
		require.NoError(t, cli.Execute("settings", "get", "--config", cfgFile))

		text := out.String()
		assert.Contains(t, text, "chartType")
		assert.Contains(t, text, "defaultTimeRange")
		assert.Contains(t, text, "1y") // from the remote store
	})

	t.Run("should save the settings", func(t *testing.T) {
		cli, out := newTestCommand()
		require.NoError(t, cli.Execute("settings", "set", "--config", cfgFile, "--json", "chartType", "bar", "compactView", "true"))

		saved := api.lastSaved()
		require.NotNil(t, saved)
		assert.Equal(t, "bar", saved["chartType"])
		assert.Equal(t, true, saved["compactView"])
		assert.Equal(t, "1y", saved["defaultTimeRange"])
		assert.Contains(t, out.String(), `"chartType": "bar"`)
	})

	t.Run("should refuse odd arguments", func(t *testing.T) {
		cli, _ := newTestCommand()
		err := cli.Execute("settings", "set", "--config", cfgFile, "chartType", "bar", "compactView")
		require.ErrorIs(t, err, ErrSettingPairs)
	})

	t.Run("should refuse invalid values without saving", func(t *testing.T) {
		before := api.saveCount()

		cli, _ := newTestCommand()
		require.Error(t, cli.Execute("settings", "set", "--config", cfgFile, "chartType", "pie"))
		assert.Equal(t, before, api.saveCount())
	})

	t.Run("should apply no change when one value is invalid", func(t *testing.T) {
		before := api.saveCount()

		cli, out := newTestCommand()
		err := cli.Execute("settings", "set", "--config", cfgFile, "chartType", "area", "defaultTimeRange", "5y")
		require.ErrorIs(t, err, settings.ErrInvalidValue)
		assert.Equal(t, before, api.saveCount())
		assert.Empty(t, out.String())
	})
}

func TestConfigCommand(t *testing.T) {
	api := newFakeAPI(t)
	cfgFile := api.config(t, t.TempDir())

	cli, out := newTestCommand()
	require.NoError(t, cli.Execute("config", "--config", cfgFile, "--api-url", "https://override.example.com"))

	dumped := filepath.Join(t.TempDir(), "dumped.yaml")
	require.NoError(t, os.WriteFile(dumped, out.Bytes(), 0o600))

	cfg, err := config.Load(dumped)
	require.NoError(t, err)
	assert.Equal(t, "Test", cfg.Name)
	assert.Equal(t, "https://override.example.com", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Millisecond, cfg.Settings.Debounce)
}

func TestSavedCommand(t *testing.T) {
	api := newFakeAPI(t)
	cfgFile := api.config(t, t.TempDir())

	cli, out := newTestCommand()
	require.NoError(t, cli.Execute("saved", "--config", cfgFile))

	text := out.String()
	assert.Contains(t, text, "revenue by region")
	assert.Contains(t, text, "75%")
}

func TestServe(t *testing.T) {
	api := newFakeAPI(t)
	cfgFile := api.config(t, t.TempDir())

	cli := &Command{Config: cfgFile, EnvFile: defaultEnvFile, L: newTestLogger()}
	cfg, err := cli.prepareConfig(true)
	require.NoError(t, err)
	cfg.Server.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	done := make(chan error, 1)

	go func() {
		done <- cli.serve(ctx, cfg, ready)
	}()

	var addr string
	select {
	case addr = <-ready:
	case <-time.After(10 * time.Second):
		cancel()
		t.Fatal("server did not start")
	}

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post("http://"+addr+"/api/query", "application/json", strings.NewReader(`{"query":"revenue"}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}

// helpers

type fakeAPI struct {
	*httptest.Server

	mu      sync.Mutex
	failing bool
	asked   []string
	saved   []map[string]any
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()

	api := &fakeAPI{}
	api.Server = httptest.NewServer(http.HandlerFunc(api.serveHTTP))
	t.Cleanup(api.Close)

	return api
}

func (a *fakeAPI) serveHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch r.URL.Path {
	case "/analyze":
		a.asked = append(a.asked, r.URL.Query().Get("query"))
	case "/analyze-view":
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		a.asked = append(a.asked, "view:"+req["view"]+":"+req["query"]+":"+req["timeRange"])
	case "/settings":
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"defaultTimeRange":"1y","unknown":"dropped"}`)

		return
	case "/settings/set":
		var s map[string]any
		_ = json.NewDecoder(r.Body).Decode(&s)
		a.saved = append(a.saved, s)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status":"ok"}`)

		return
	case "/saved-insights":
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, savedBody)

		return
	default:
		http.NotFound(w, r)

		return
	}

	if a.failing {
		http.Error(w, "boom", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, successBody)
}

func (a *fakeAPI) config(t *testing.T, dir string) string {
	t.Helper()

	return writeTestConfig(t, `
name: Test
api:
  baseURL: `+a.URL+`
  timeout: 5s
settings:
  debounce: 10ms
  persistTimeout: 5s
history:
  enabled: true
  path: `+filepath.Join(dir, "history.db")+`
server:
  readTimeout: 5s
  shutdownTimeout: 5s
`)
}

func (a *fakeAPI) queries() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	return append([]string(nil), a.asked...)
}

func (a *fakeAPI) fail(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.failing = enabled
}

func (a *fakeAPI) lastSaved() map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.saved) == 0 {
		return nil
	}

	return a.saved[len(a.saved)-1]
}

func (a *fakeAPI) saveCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.saved)
}

func newTestCommand() (*Command, *bytes.Buffer) {
	var out, errOut bytes.Buffer

	cli := NewCommand()
	cli.Out = &out
	cli.Err = &errOut

	return cli, &out
}

func newTestLogger() *slog.Logger {
	return slog.Default().With(slog.String("module", "test"))
}

func writeTestConfig(t *testing.T, yamlContent string) string {
	t.Helper()
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(yamlContent), 0o600))
	return file
}

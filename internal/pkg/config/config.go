package config

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed default_config.yaml
var efs embed.FS

// EnvAPIURL is the environment variable overriding the base URL of the analysis service.
const EnvAPIURL = "INSIGHTVIZ_API_URL"

// Config holds the configuration for insightviz.
type Config struct {
	Name     string
	IsJSON   bool `mapstructure:"-"`
	API      API
	Settings SettingsStore
	History  History
	Server   Server
	Render   Rendering
	Outputs  Output `mapstructure:"-"`
	Columns  []Column // Columns override how result columns are titled and formatted

	columnIndex map[string]Column
}

// API locates the analysis service.
type API struct {
	BaseURL string
	Timeout time.Duration
}

// SettingsStore tunes the persistence of user settings.
type SettingsStore struct {
	Debounce       time.Duration
	PersistTimeout time.Duration
}

// History configures the local query history.
type History struct {
	Enabled bool
	Path    string
}

// DatabasePath returns the location of the history database.
//
// When no path is configured, the database lives in the user cache folder.
func (h History) DatabasePath() string {
	if h.Path != "" {
		return h.Path
	}

	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}

	return filepath.Join(dir, "insightviz", "history.db")
}

// Server configures the web dashboard.
type Server struct {
	Addr            string
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// EncodeYAML serializes a [Config] to YAML into the provided writer.
//
// Runtime-only fields (IsJSON, Outputs) are excluded from the output.
func (c *Config) EncodeYAML(w io.Writer) error {
	var raw map[string]any

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Squash: true,
		Deep:   true,
		Result: &raw,
	})
	if err != nil {
		return fmt.Errorf("creating mapstructure decoder: %w", err)
	}

	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("decoding config to map: %w", err)
	}

	return yaml.NewEncoder(w).Encode(raw)
}

// Rendering holds chart rendering settings (theme, legend, scale).
type Rendering struct {
	Title       string
	Theme       string
	Legend      LegendPosition
	Scale       Scale
	Orientation Orientation
	Screenshot  Screenshot
}

// Orientation controls the chart bar direction.
type Orientation string

// Supported chart orientations.
const (
	OrientationVertical   Orientation = "vertical"
	OrientationHorizontal Orientation = "horizontal"
)

// Screenshot configures the headless Chrome screenshot used for PNG rendering.
type Screenshot struct {
	Height int64
	Width  int64
	Sleep  string
}

// SleepDuration parses the Sleep field as a [time.Duration].
func (s Screenshot) SleepDuration() time.Duration {
	d, err := time.ParseDuration(s.Sleep)
	if d == 0 || err != nil {
		return 0
	}

	return d
}

// Scale controls the Y-axis scaling strategy.
type Scale string

// Supported Y-axis scale modes.
const (
	ScaleAuto Scale = "auto"
	ScaleLog  Scale = "log"
)

// LegendPosition controls where the chart legend is displayed.
type LegendPosition string

// Supported legend positions.
const (
	LegendPositionNone   LegendPosition = "none"
	LegendPositionBottom LegendPosition = "bottom"
	LegendPositionTop    LegendPosition = "top"
	LegendPositionLeft   LegendPosition = "left"
	LegendPositionRight  LegendPosition = "right"
)

// Output holds the resolved output file paths for HTML, PNG and XLSX rendering.
type Output struct {
	HTMLFile string
	PngFile  string
	XLSXFile string
	IsTemp   bool
}

// Format tells how the values of a column are displayed.
type Format string

// Supported column formats.
const (
	FormatNumber   Format = "number"
	FormatCurrency Format = "currency"
	FormatPercent  Format = "percent"
)

// Column overrides the display of the result columns whose name matches.
//
// A column matches a result column by ID (case insensitive) or by regexp on the column name.
type Column struct {
	ID       string
	Title    string
	Match    string
	NotMatch string
	Format   Format

	match    *regexp.Regexp
	notMatch *regexp.Regexp
}

// Matchers returns the compiled positive and negative match regexps.
func (o Column) Matchers() (match, notMatch *regexp.Regexp) {
	return o.match, o.notMatch
}

// MatchString reports whether name designates this column: by ID, or by matching the positive
// regexp and not the negative one.
func (o Column) MatchString(name string) (id string, ok bool) {
	if strings.EqualFold(o.ID, name) {
		return o.ID, true
	}

	var matchOk, notMatchOk bool
	matcher, notMatcher := o.Matchers()

	if matcher == nil && notMatcher == nil {
		return "", false
	}

	if matcher != nil {
		matchOk = matcher.MatchString(name)
	}

	if notMatcher != nil {
		notMatchOk = notMatcher.MatchString(name)
	}

	if matchOk && !notMatchOk {
		return o.ID, true
	}

	if matcher == nil && !notMatchOk {
		return o.ID, true
	}

	return "", false
}

// GetColumn retrieves a column definition by its ID.
func (c Config) GetColumn(id string) (Column, bool) {
	v, ok := c.columnIndex[id]

	return v, ok
}

// FindColumn returns the column definition of a result column name.
//
// A definition with this exact ID wins. Otherwise the first definition matching the name is returned.
func (c Config) FindColumn(name string) (Column, bool) {
	if def, ok := c.GetColumn(name); ok {
		return def, true
	}

	for _, def := range c.Columns {
		if _, ok := def.MatchString(name); ok {
			return def, true
		}
	}

	return Column{}, false
}

// ColumnTitle returns the display title of a result column.
//
// Columns without an explicit title are titleized from their name.
func (c Config) ColumnTitle(name string) string {
	if def, ok := c.FindColumn(name); ok && def.Title != "" {
		return def.Title
	}

	return Titleize(name)
}

// ColumnFormat returns the display format of a result column.
func (c Config) ColumnFormat(name string) Format {
	if def, ok := c.FindColumn(name); ok && def.Format != "" {
		return def.Format
	}

	return FormatNumber
}

// Load a configuration file from the local file system, on top of the defaults.
func Load(file string) (*Config, error) {
	cfg, err := loadDefaults()
	if err != nil {
		return nil, fmt.Errorf("loading default config: %w", err)
	}

	fsys := os.DirFS(filepath.Dir(file))
	pth := filepath.Join(".", filepath.Base(file))

	return load(fsys, pth, cfg)
}

// LoadOrDefaults loads a configuration file like [Load], but falls back to the defaults
// when the file does not exist.
func LoadOrDefaults(file string) (*Config, error) {
	if file == "" {
		return loadDefaults()
	}

	cfg, err := Load(file)
	if errors.Is(err, fs.ErrNotExist) {
		return loadDefaults()
	}

	return cfg, err
}

// LoadDefaults loads the default configuration from the embedded default_config.yaml.
func LoadDefaults() (*Config, error) {
	return loadDefaults()
}

// loadDefaults loads the default configuration from embedded FS.
func loadDefaults() (*Config, error) {
	return load(efs, "default_config.yaml", &Config{})
}

func load(fsys fs.FS, file string, cfg *Config) (*Config, error) {
	content, err := fs.ReadFile(fsys, file)
	if err != nil {
		return nil, err
	}

	var raw any
	err = yaml.Unmarshal(content, &raw)
	if err != nil {
		return nil, err
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		ZeroFields: true, // lists replace the defaults rather than merge with them
		Result:     cfg,
	})
	if err != nil {
		return nil, err
	}

	if err = dec.Decode(raw); err != nil {
		return nil, err
	}

	if err = cfg.validateAPI(); err != nil {
		return nil, err
	}

	if err = cfg.validateRendering(); err != nil {
		return nil, err
	}

	if err = cfg.validateColumns(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnvironment loads the given .env files, if they exist, then applies the environment overrides.
//
// Variables already set in the environment take precedence over the .env files.
func (c *Config) ApplyEnvironment(envFiles ...string) error {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}

	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return fmt.Errorf("loading environment files: %w", err)
		}
	}

	if apiURL := os.Getenv(EnvAPIURL); apiURL != "" {
		c.API.BaseURL = apiURL
	}

	return c.validateAPI()
}

func (c *Config) validateAPI() error {
	if c.API.BaseURL == "" {
		return errors.New("invalid api: empty baseURL")
	}

	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid api: baseURL: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid api: baseURL must be an http(s) URL: %q", c.API.BaseURL)
	}

	return nil
}

func (c *Config) validateRendering() error {
	switch c.Render.Legend {
	case "", LegendPositionNone, LegendPositionBottom, LegendPositionTop, LegendPositionLeft, LegendPositionRight:
	default:
		return fmt.Errorf("invalid render: unknown legend position %q", c.Render.Legend)
	}

	switch c.Render.Orientation {
	case "", OrientationVertical, OrientationHorizontal:
	default:
		return fmt.Errorf("invalid render: unknown orientation %q", c.Render.Orientation)
	}

	switch c.Render.Scale {
	case "", ScaleAuto, ScaleLog:
	default:
		return fmt.Errorf("invalid render: unknown scale %q", c.Render.Scale)
	}

	return nil
}

func (c *Config) validateColumns() error {
	c.columnIndex = make(map[string]Column, len(c.Columns))

	for i, v := range c.Columns {
		if v.ID == "" {
			return fmt.Errorf("invalid columns: empty ID found: columns[%d]", i)
		}
		if _, ok := c.columnIndex[v.ID]; ok {
			return fmt.Errorf("invalid columns: duplicate ID key found: %s", v.ID)
		}
		switch v.Format {
		case "", FormatNumber, FormatCurrency, FormatPercent:
		default:
			return fmt.Errorf("invalid columns: unknown format columns[%d].format=%q", i, v.Format)
		}

		match, notMatch, err := compileRex(v)
		if err != nil {
			return fmt.Errorf("invalid regexp[column %d - %s]: %w", i, v.ID, err)
		}
		v.match = match
		v.notMatch = notMatch

		c.Columns[i] = v
		c.columnIndex[v.ID] = v
	}

	return nil
}

func compileRex(o Column) (match, notMatch *regexp.Regexp, err error) {
	if o.Match != "" {
		match, err = regexp.Compile(o.Match)
		if err != nil {
			return nil, nil, err
		}
	}
	if o.NotMatch != "" {
		notMatch, err = regexp.Compile(o.NotMatch)
		if err != nil {
			return nil, nil, err
		}
	}

	return match, notMatch, nil
}

// Titleize turns a column name into a title: "total_revenue" and "totalRevenue" both become "Total Revenue".
func Titleize(in string) string {
	caser := cases.Title(language.English, cases.NoLower) // the case is stateful: cannot declare it globally

	return caser.String(strings.Join(strings.Fields(splitWords(in)), " "))
}

func splitWords(in string) string {
	var b strings.Builder
	b.Grow(len(in) + 4)

	runes := []rune(in)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-':
			b.WriteRune(' ')

			continue
		case i > 0 && unicode.IsUpper(r) && unicode.IsLower(runes[i-1]):
			b.WriteRune(' ')
		case i > 0 && unicode.IsUpper(r) && unicode.IsUpper(runes[i-1]) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			b.WriteRune(' ')
		}

		b.WriteRune(r)
	}

	return b.String()
}

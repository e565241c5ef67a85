// Package cmd owns the implementation details of the CLI command.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"

	"github.com/fredbi/insightviz/internal/pkg/backend"
	"github.com/fredbi/insightviz/internal/pkg/config"
	"github.com/fredbi/insightviz/internal/pkg/history"
	"github.com/fredbi/insightviz/internal/pkg/orchestrator"
	"github.com/fredbi/insightviz/internal/pkg/settings"
	"github.com/spf13/cobra"
)

const (
	defaultConfigFile = "insightviz.yaml"
	defaultEnvFile    = ".env"
)

// Command holds command line flags and executes the insightviz commands.
//
// It knows how to load a configuration file in a [config.Config] and manage CLI flag configuration overrides.
//
// The main purpose of this package is to deal with io's: opening and closing files, wiring the
// analysis client, the settings store and the local history.
type Command struct {
	Config   string
	EnvFile  string
	APIURL   string
	LogLevel string
	NoColor  bool

	// ask
	View       string
	IsJSON     bool
	OutputFile string
	Png        bool
	XLSXFile   string

	// history
	Limit int
	Clear bool

	// serve
	Addr string

	Out io.Writer
	Err io.Writer
	L   *slog.Logger

	root *cobra.Command
}

// NewCommand builds a CLI command with registered flags and an injected logger.
func NewCommand() *Command {
	// inject a structured logger
	cli := &Command{
		Out: os.Stdout,
		Err: os.Stderr,
		L:   slog.Default().With(slog.String("module", "main")),
	}

	cli.root = cli.rootCommand()

	return cli
}

// Fatalf logs an error message then exits. The output is spewed on both stderr and the structured logger output.
func (c *Command) Fatalf(err error) {
	c.L.Error(err.Error())
	log.Fatalf("%v", err)
}

// Execute the CLI with extra arguments.
//
// If no argument is passed, command line arguments (i.e. [os.Args]) are used.
// The command is interrupted by SIGINT or SIGTERM.
func (c *Command) Execute(args ...string) error {
	if args == nil { // passing explicit args allows for testing Execute without altering [os.Args]
		args = os.Args[1:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c.root.SetArgs(args)
	c.root.SetOut(c.Out)
	c.root.SetErr(c.Err)

	return c.root.ExecuteContext(ctx)
}

func (c *Command) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "insightviz",
		Short: "Ask questions about your business data and visualize the answers",
		Long: `insightviz asks natural language questions to an analytics service,
and renders the answers as KPI cards, data tables and charts,
in the terminal, as HTML, PNG or XLSX files, or as a web dashboard.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return c.setLogger()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&c.Config, "config", "c", defaultConfigFile, "config file")
	flags.StringVar(&c.EnvFile, "env-file", defaultEnvFile, "environment file, loaded if it exists")
	flags.StringVar(&c.APIURL, "api-url", "", "base URL of the analytics service (overrides config and environment)")
	flags.StringVar(&c.LogLevel, "log-level", "warn", "log level: debug, info, warn, error")
	flags.BoolVar(&c.NoColor, "no-color", false, "disable colored output")

	root.AddCommand(
		c.askCommand(),
		c.settingsCommand(),
		c.savedCommand(),
		c.historyCommand(),
		c.serveCommand(),
		c.configCommand(),
	)

	return root
}

func (c *Command) setLogger() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(c.Err, &slog.HandlerOptions{Level: level})))
	c.L = slog.Default().With(slog.String("module", "main"))

	return nil
}

// prepareConfig loads the configuration file then applies the environment and flag overrides.
//
// A missing default configuration file is not an error: embedded defaults apply.
// An explicit configuration file that cannot be read is.
func (c *Command) prepareConfig(explicit bool) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)

	if explicit {
		cfg, err = config.Load(c.Config)
	} else {
		cfg, err = config.LoadOrDefaults(c.Config)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err = cfg.ApplyEnvironment(c.EnvFile); err != nil {
		return nil, fmt.Errorf("preparing config: %w", err)
	}

	if c.APIURL != "" {
		cfg.API.BaseURL = c.APIURL
	}

	cfg.IsJSON = c.IsJSON

	return cfg, nil
}

func (c *Command) configFor(cmd *cobra.Command) (*config.Config, error) {
	return c.prepareConfig(cmd.Flags().Changed("config"))
}

// session wires the analysis client, the settings store, the local history and the orchestrator.
type session struct {
	client   *backend.Client
	store    *settings.Store
	history  *history.Store
	orch     *orchestrator.Orchestrator
	shutdown func(ctx context.Context) error
}

func (c *Command) openSession(ctx context.Context, cfg *config.Config, view orchestrator.View) (*session, error) {
	client, err := backend.New(cfg.API.BaseURL, backend.WithTimeout(cfg.API.Timeout))
	if err != nil {
		return nil, fmt.Errorf("preparing API client: %w", err)
	}

	store := settings.New(client,
		settings.WithDebounce(cfg.Settings.Debounce),
		settings.WithPersistTimeout(cfg.Settings.PersistTimeout),
	)
	// settings are loaded before the orchestrator subscribes: the initial load does not trigger a refresh
	store.Load(ctx)

	s := &session{
		client: client,
		store:  store,
	}

	opts := []orchestrator.Option{orchestrator.WithView(view)}
	if cfg.History.Enabled {
		hist, err := history.Open(cfg.History.DatabasePath())
		if err != nil {
			c.L.Warn("query history disabled", slog.String("error", err.Error()))
		} else {
			s.history = hist
			opts = append(opts, orchestrator.WithRecorder(hist))
		}
	}

	s.orch = orchestrator.New(client, store, opts...)
	s.shutdown = func(ctx context.Context) error {
		s.orch.Close()

		err := store.Close(ctx)
		if s.history != nil {
			if closeErr := s.history.Close(); closeErr != nil {
				c.L.Warn("closing history", slog.String("error", closeErr.Error()))
			}
		}

		return err
	}

	return s, nil
}

func getWriter(file, kind string) (wrt *os.File, cleanup func(), err error) {
	wrt, err = os.Create(file)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s file for writing: %q: %w", kind, file, err)
	}

	cleanup = func() {
		_ = wrt.Close()
	}

	return wrt, cleanup, nil
}

func getReader(file, kind string) (rdr *os.File, cleanup func(), err error) {
	rdr, err = os.Open(file)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s file: %q: %w", kind, file, err)
	}

	cleanup = func() {
		_ = rdr.Close()
	}

	return rdr, cleanup, nil
}

func inferHTMLFile(base string) string {
	ext := path.Ext(base)
	image, _ := strings.CutSuffix(base, ext)

	return image + ".html"
}

func inferImageFile(base string) string {
	ext := path.Ext(base)
	image, _ := strings.CutSuffix(base, ext)

	return image + ".png"
}

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/fredbi/insightviz/internal/pkg/backend"
	"github.com/fredbi/insightviz/internal/pkg/settings"
	"github.com/spf13/cobra"
)

// ErrSettingPairs is returned when settings are not given as key/value pairs.
var ErrSettingPairs = errors.New("settings must be given as key value pairs")

func (c *Command) settingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the user settings",
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "Show the user settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := c.settingsStore(cmd)
			if err != nil {
				return err
			}

			return c.printSettings(store.Load(cmd.Context()))
		},
	}
	get.Flags().BoolVar(&c.IsJSON, "json", false, "print the settings as JSON")

	set := &cobra.Command{
		Use:     "set key value [key value...]",
		Short:   "Change user settings",
		Example: "  insightviz settings set chartType bar defaultTimeRange 1y",
		Args:    cobra.MinimumNArgs(2), //nolint:mnd // one key/value pair
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.setSettings(cmd, args)
		},
	}
	set.Flags().BoolVar(&c.IsJSON, "json", false, "print the settings as JSON")

	cmd.AddCommand(get, set)

	return cmd
}

func (c *Command) settingsStore(cmd *cobra.Command) (*settings.Store, error) {
	cfg, err := c.configFor(cmd)
	if err != nil {
		return nil, err
	}

	client, err := backend.New(cfg.API.BaseURL, backend.WithTimeout(cfg.API.Timeout))
	if err != nil {
		return nil, fmt.Errorf("preparing API client: %w", err)
	}

	return settings.New(client, settings.WithPersistTimeout(cfg.Settings.PersistTimeout)), nil
}

// setSettings applies all changes, then saves them at once. Nothing is saved if a change is invalid.
func (c *Command) setSettings(cmd *cobra.Command, args []string) error {
	if len(args)%2 != 0 {
		return fmt.Errorf("%w: got %d arguments", ErrSettingPairs, len(args))
	}

	store, err := c.settingsStore(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store.Load(ctx)

	pairs := make(map[string]any, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		pairs[args[i]] = args[i+1]
	}

	if err := store.SetAll(pairs); err != nil {
		return err
	}

	if err := store.Persist(ctx); err != nil {
		return err
	}

	return c.printSettings(store.Get())
}

func (c *Command) printSettings(s settings.Settings) error {
	if c.IsJSON {
		enc := json.NewEncoder(c.Out)
		enc.SetIndent("", " ")

		return enc.Encode(s)
	}

	buf, err := json.Marshal(s)
	if err != nil {
		return err
	}

	var values map[string]any
	if err = json.Unmarshal(buf, &values); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.Out, 0, 0, 2, ' ', 0) //nolint:mnd // column padding
	for _, name := range settings.Names() {
		fmt.Fprintf(tw, "%s\t%v\n", name, values[name])
	}

	return tw.Flush()
}

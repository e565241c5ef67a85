package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/fredbi/insightviz/internal/pkg/backend"
	"github.com/fredbi/insightviz/internal/pkg/history"
	"github.com/fredbi/insightviz/internal/pkg/insight"
	"github.com/spf13/cobra"
)

func (c *Command) savedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saved",
		Short: "List the insights saved on the analytics service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.configFor(cmd)
			if err != nil {
				return err
			}

			client, err := backend.New(cfg.API.BaseURL, backend.WithTimeout(cfg.API.Timeout))
			if err != nil {
				return fmt.Errorf("preparing API client: %w", err)
			}

			saved, err := client.SavedInsights(cmd.Context())
			if err != nil {
				return err
			}

			return c.printSaved(saved)
		},
	}
	cmd.Flags().BoolVar(&c.IsJSON, "json", false, "print the saved insights as JSON")

	return cmd
}

func (c *Command) printSaved(saved []backend.SavedInsight) error {
	if c.IsJSON {
		return c.encodeJSON(saved)
	}

	if len(saved) == 0 {
		fmt.Fprintln(c.Out, "No saved insights")

		return nil
	}

	tw := tabwriter.NewWriter(c.Out, 0, 0, 2, ' ', 0) //nolint:mnd // column padding
	fmt.Fprintln(tw, "ID\tCREATED\tVIEW\tCONFIDENCE\tQUERY")
	for _, s := range saved {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d%%\t%s\n",
			s.ID, s.CreatedAt, s.View, insight.Confidence(s.Confidence).Percent(), s.Query,
		)
	}

	return tw.Flush()
}

func (c *Command) historyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List or clear the local query history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.configFor(cmd)
			if err != nil {
				return err
			}

			store, err := history.Open(cfg.History.DatabasePath())
			if err != nil {
				return err
			}
			defer func() {
				_ = store.Close()
			}()

			if c.Clear {
				if err := store.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(c.Out, "History cleared")

				return nil
			}

			entries, err := store.List(cmd.Context(), c.Limit)
			if err != nil {
				return err
			}

			return c.printHistory(entries)
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&c.Limit, "limit", "n", history.DefaultLimit, "maximum number of entries")
	flags.BoolVar(&c.Clear, "clear", false, "clear the history")
	flags.BoolVar(&c.IsJSON, "json", false, "print the history as JSON")

	return cmd
}

func (c *Command) printHistory(entries []history.Entry) error {
	if c.IsJSON {
		return c.encodeJSON(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(c.Out, "No history")

		return nil
	}

	tw := tabwriter.NewWriter(c.Out, 0, 0, 2, ' ', 0) //nolint:mnd // column padding
	fmt.Fprintln(tw, "WHEN\tVIEW\tOUTCOME\tCONFIDENCE\tROWS\tQUERY")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d%%\t%s\t%s\n",
			e.CreatedAt.Local().Format(time.DateTime), e.View, e.Kind,
			insight.Confidence(e.Confidence).Percent(), strconv.Itoa(e.Rows), e.Query,
		)
	}

	return tw.Flush()
}

func (c *Command) encodeJSON(v any) error {
	enc := json.NewEncoder(c.Out)
	enc.SetIndent("", " ")

	return enc.Encode(v)
}

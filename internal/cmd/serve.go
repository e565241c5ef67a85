package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/fredbi/insightviz/internal/pkg/config"
	"github.com/fredbi/insightviz/internal/pkg/orchestrator"
	"github.com/fredbi/insightviz/internal/pkg/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func (c *Command) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the insight dashboard over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.configFor(cmd)
			if err != nil {
				return err
			}

			if c.Addr != "" {
				cfg.Server.Addr = c.Addr
			}

			return c.serve(cmd.Context(), cfg, nil)
		},
	}
	cmd.Flags().StringVar(&c.Addr, "addr", "", "listen address (overrides config)")

	return cmd
}

// serve runs the web dashboard until ctx is done, then shuts down gracefully and flushes pending settings.
//
// When ready is not nil, it receives the listen address once the server accepts connections.
func (c *Command) serve(ctx context.Context, cfg *config.Config, ready chan<- string) error {
	s, err := c.openSession(ctx, cfg, orchestrator.ViewKPIOverview)
	if err != nil {
		return err
	}

	opts := []server.Option{server.WithSavedInsights(s.client)}
	if s.history != nil {
		opts = append(opts, server.WithHistory(s.history))
	}

	srv, err := server.New(cfg, s.orch, s.store, opts...)
	if err != nil {
		c.closeSession(ctx, cfg, s)

		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
	}

	listener, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		c.closeSession(ctx, cfg, s)

		return fmt.Errorf("listening on %s: %w", cfg.Server.Addr, err)
	}

	addr := listener.Addr().String()
	c.L.Info("serving dashboard", slog.String("addr", addr), slog.String("api", cfg.API.BaseURL))
	if ready != nil {
		ready <- addr
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		c.L.Info("shutting down dashboard")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()

		err := httpServer.Shutdown(shutdownCtx)
		c.closeSession(shutdownCtx, cfg, s)

		return err
	})

	return g.Wait()
}

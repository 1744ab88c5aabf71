package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/hypograph/hypograph/internal/config"
	"github.com/hypograph/hypograph/internal/server"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	dbPath     string
	logLevel   string
}

func rootCmd() *cobra.Command {
	var g globalFlags

	cmd := &cobra.Command{
		Use:   "hypograph",
		Short: "Hypothesis graph with evidence-driven confidence",
		Long: `hypograph keeps a graph of business hypotheses. Evidence attached to a
hypothesis moves its confidence, and the change cascades to every hypothesis
that depends on it.

Add it to your AI tool's MCP config:

  {
    "mcpServers": {
      "hypograph": {
        "command": "hypograph",
        "args": ["serve"]
      }
    }
  }`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file (YAML, default ~/.hypograph/config.yaml)")
	cmd.PersistentFlags().StringVar(&g.dbPath, "db", "", "SQLite database path (overrides config)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(serveCmd(&g), recalcCmd(&g), ancestorsCmd(&g), versionCmd())
	return cmd
}

// load resolves configuration and installs the stderr logger. stdout
// belongs to the MCP stdio transport.
func (g *globalFlags) load(stderr io.Writer) (*config.Config, *slog.Logger, error) {
	path := g.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if g.dbPath != "" {
		cfg.DBPath = g.dbPath
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}

	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func serveCmd(g *globalFlags) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server (stdio transport)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if metricsAddr != "" {
				cfg.MetricsAddr = metricsAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, cleanup, err := server.New(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			defer cleanup()

			if cfg.MetricsAddr != "" {
				shutdown := serveMetrics(cfg.MetricsAddr, app.Metrics.Handler(), logger)
				defer shutdown()
			}

			logger.Info("hypograph serving on stdio", "version", server.Version)
			return mcpserver.ServeStdio(app.MCP)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9464)")
	return cmd
}

// serveMetrics exposes /metrics in the background and returns a function
// that shuts the listener down.
func serveMetrics(addr string, h http.Handler, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	logger.Info("metrics listening", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func recalcCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "recalc",
		Short: "Recompute every automatic confidence from evidence, leaves first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			app, cleanup, err := server.Open(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			r := app.Service.RecalculateAllConfidences(cmd.Context())
			if !r.OK {
				return errors.New(r.Error)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Recalculated %d hypotheses, %d changed\n", r.Data.Total, r.Data.Updated)
			for _, c := range r.Data.Changes {
				fmt.Fprintf(out, "  %s: %d -> %d\n", c.ID, c.Old, c.New)
			}
			if r.Data.Cycle {
				fmt.Fprintln(out, "Warning: the graph contains a cycle; some hypotheses were skipped")
			}
			return nil
		},
	}
}

func ancestorsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ancestors <id>",
		Short: "Print every ancestor of a hypothesis, nearest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			app, cleanup, err := server.Open(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			r := app.Service.GetAncestorIDs(cmd.Context(), args[0])
			if !r.OK {
				return errors.New(r.Error)
			}
			for _, id := range r.Data {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hypograph v%s\n", server.Version)
		},
	}
}

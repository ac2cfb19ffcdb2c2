package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rebuildscope/rebuildscope/internal/hub"
	"github.com/rebuildscope/rebuildscope/internal/mcpserver"
	"github.com/rebuildscope/rebuildscope/internal/version"
)

var (
	cfgFile  string
	logLevel string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rebuildscope",
		Short: "Rebuild telemetry hub for UI component trees",
		Long: `rebuildscope collects render events reported by instrumented
UI hosts, classifies why components rebuild, and serves stats,
suggestions, and heatmap snapshots to dashboards.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(
		&cfgFile, "config", "",
		"path to config file",
	)
	cmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "",
		"override log level (debug, info, warn, error)",
	)

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(mcpCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the telemetry hub",
		RunE:  runServe,
	}
}

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the hub and serve its query tools over MCP on stdio",
		RunE:  runMCP,
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.FullWithPlatform())
		},
	}
}

func loadConfig() (*hub.Config, *logrus.Logger, error) {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg := hub.DefaultConfig()

	if cfgFile != "" {
		loaded, err := hub.LoadConfig(cfgFile)
		if err != nil {
			return nil, nil, fmt.Errorf("loading config: %w", err)
		}

		cfg = loaded
	}

	// CLI flag overrides config file.
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing log level %q: %w", cfg.LogLevel, err)
	}

	log.SetLevel(level)

	return cfg, log, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer cancel()

	h, err := hub.New(log, cfg)
	if err != nil {
		return fmt.Errorf("creating hub: %w", err)
	}

	log.Info("Starting rebuildscope hub")

	if err := h.Start(ctx); err != nil {
		return fmt.Errorf("starting hub: %w", err)
	}

	<-ctx.Done()

	log.Info("Shutting down rebuildscope hub")

	if err := h.Stop(); err != nil {
		log.WithError(err).Error("Error during shutdown")
		return fmt.Errorf("stopping hub: %w", err)
	}

	log.Info("Shutdown complete")

	return nil
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	// MCP speaks JSON-RPC on stdout; keep log output on stderr only.
	log.SetOutput(os.Stderr)

	// The subcommand serves stdio itself in the foreground, so the hub
	// must not attach a second stdio server.
	cfg.MCP.Enabled = false

	ctx, cancel := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer cancel()

	h, err := hub.New(log, cfg)
	if err != nil {
		return fmt.Errorf("creating hub: %w", err)
	}

	if err := h.Start(ctx); err != nil {
		return fmt.Errorf("starting hub: %w", err)
	}

	// Tools answer from the hub's own engine, so everything ingested
	// over HTTP is visible to MCP queries.
	serveErr := make(chan error, 1)

	go func() {
		serveErr <- mcpserver.New(log, h.Engine()).ServeStdio()
	}()

	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}

	if stopErr := h.Stop(); stopErr != nil {
		log.WithError(stopErr).Error("Error during shutdown")
	}

	return err
}

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/kbforge/kbmcp/internal/logging"
	"github.com/kbforge/kbmcp/internal/mcp"
	"github.com/kbforge/kbmcp/internal/telemetry"
	"github.com/kbforge/kbmcp/pkg/version"
)

type serveOptions struct {
	transport string
	logLevel  string
}

func newServeCmd() *cobra.Command {
	opts := serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server on stdio for use with MCP clients.

The server connects to the configured knowledge base backend, picks the
latest READY index version (or the pinned one) as active, and serves
search and lifecycle tools over the MCP protocol. Logs go to a file,
never to stdout, so the protocol stream stays clean.`,
		Example: `  # Started by an MCP client (stdio transport)
  kbmcp serve

  # Pin a specific index version for this process
  KBMCP_VERSION_ID=v-20240815-023 kbmcp serve

  # Verbose logging to ~/.kbmcp/logs/
  kbmcp serve --log-level debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", "stdio", "Transport protocol (stdio)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	return cmd
}

// verifyStdinForMCP checks that stdin is a pipe, not a terminal. An MCP
// client always pipes the protocol stream; a terminal means someone ran
// the server interactively and would just see it hang.
func verifyStdinForMCP() error {
	fd := os.Stdin.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return fmt.Errorf("stdin is a terminal, not a pipe.\n" +
			"The MCP server speaks JSON-RPC over stdin/stdout and is meant to be\n" +
			"launched by an MCP client. To try it manually, pipe a request in:\n" +
			"  echo '{...}' | kbmcp serve")
	}
	return nil
}

func runServe(ctx context.Context, opts serveOptions) error {
	if err := verifyStdinForMCP(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// File-only logging before anything else can write. Stdout belongs
	// to the MCP protocol from here on.
	level := opts.logLevel
	if level == "" {
		level = cfg.Server.LogLevel
	}
	cleanup, err := logging.SetupMCPModeWithLevel(level)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanup()

	slog.Info("kbmcp starting",
		slog.String("version", version.Version),
		slog.String("transport", opts.transport),
		slog.String("log_file", logging.DefaultLogPath()))

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	manager := newLifecycleManager(store, cfg)
	if err := manager.Bootstrap(ctx, cfg.Search.VersionID); err != nil {
		return err
	}

	searcher := newSearcher(cfg, manager.Active())

	server, err := mcp.NewServer(searcher, manager, store, cfg)
	if err != nil {
		return err
	}
	server.SetMetrics(telemetry.NewQueryMetrics())

	return server.Serve(ctx, opts.transport)
}

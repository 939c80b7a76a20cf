// Package cmd provides the CLI commands for KBMCP.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kbforge/kbmcp/internal/logging"
	"github.com/kbforge/kbmcp/pkg/version"
)

// Persistent flags shared by every command.
var (
	configPath     string
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the kbmcp CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kbmcp",
		Short: "MCP server and operator CLI for a managed knowledge base",
		Long: `KBMCP fronts a cloud-hosted knowledge base for AI assistants.

It serves search, indexing and version management as MCP tools over
stdio, and doubles as an operator CLI for the same knowledge base:
uploading documents, triggering index builds, and promoting the
version searches run against.

Point an MCP client at 'kbmcp' to get started; index builds happen in
the cloud, so the server is ready as soon as it connects.`,
		Version: version.Version,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Bare invocation is how MCP clients launch the binary.
			// Unknown subcommands never get here; cobra rejects them first.
			return runServe(cmd.Context(), serveOptions{transport: "stdio"})
		},
	}

	// Set version template
	cmd.SetVersionTemplate("kbmcp version {{.Version}}\n")

	// Persistent flags
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (overrides discovery)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.kbmcp/logs/")

	// Setup logging hooks
	cmd.PersistentPreRunE = startDebugLogging
	cmd.PersistentPostRunE = stopDebugLogging

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newVersionsCmd())
	cmd.AddCommand(newPromoteCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startDebugLogging enables file logging when --debug is set.
func startDebugLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}

	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("Debug logging enabled",
		slog.String("log_file", logging.DefaultLogPath()),
		slog.String("version", version.Version))
	return nil
}

// stopDebugLogging flushes and closes the debug log.
func stopDebugLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		slog.Info("Debug logging stopped")
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

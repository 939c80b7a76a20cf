package cmd

import (
	"context"

	"github.com/spf13/cobra"

	kberrors "github.com/kbforge/kbmcp/internal/errors"
	"github.com/kbforge/kbmcp/internal/output"
)

func newPromoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "promote [version-id]",
		Short: "Verify a version is READY to serve",
		Long: `Verify that an index version is READY and would be served.

Without an argument the latest READY version is selected, the same rule
'kbmcp serve' applies at startup. With an explicit version id the
command confirms the version exists in the catalog and is READY.

The active pointer lives inside each serving process: a new 'kbmcp
serve' picks the promoted version up on startup, and a running server
switches through its update_active_version tool.`,
		Example: `  # Confirm the latest READY version
  kbmcp promote

  # Confirm a specific version
  kbmcp promote v-20260815-042`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			versionID := ""
			if len(args) > 0 {
				versionID = args[0]
			}
			return runPromote(cmd.Context(), cmd, versionID)
		},
	}

	return cmd
}

func runPromote(ctx context.Context, cmd *cobra.Command, versionID string) error {
	cleanup := setupCommandLogging()
	defer cleanup()

	out := output.New(cmd.OutOrStdout())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	manager := newLifecycleManager(store, cfg)

	promotion, err := manager.Promote(ctx, versionID)
	if err != nil {
		if kberrors.IsNoReadyVersion(err) {
			out.Error("No READY version in the catalog")
			out.Status("", "Run `kbmcp index --wait` and promote once the build finishes.")
		}
		return err
	}

	out.Successf("Version %s is READY to serve", promotion.Applied)
	if pinned := cfg.Search.VersionID; pinned != "" && pinned != promotion.Applied {
		out.Warningf("Config pins search.version_id=%s; servers will serve the pin, not %s", pinned, promotion.Applied)
		return nil
	}
	out.Status("", "New `kbmcp serve` processes pick it up automatically; a running server")
	out.Status("", "switches via its update_active_version tool.")
	return nil
}

package cmd

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/kbforge/kbmcp/internal/catalog"
	"github.com/kbforge/kbmcp/internal/ui"
)

type versionsOptions struct {
	jsonOut bool
}

func newVersionsCmd() *cobra.Command {
	var opts versionsOptions

	cmd := &cobra.Command{
		Use:   "versions",
		Short: "List index versions from the catalog",
		Long: `List every index version the catalog knows about, oldest first.

The active marker shows the version this configuration would serve:
the pinned version when search.version_id is set, otherwise the latest
READY one.`,
		Example: `  kbmcp versions
  kbmcp versions --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersions(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Output as JSON")

	return cmd
}

func runVersions(ctx context.Context, cmd *cobra.Command, opts versionsOptions) error {
	cleanup := setupCommandLogging()
	defer cleanup()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	manager := newLifecycleManager(store, cfg)
	// Seed the pointer the way serve would, so the active column shows
	// what this configuration serves. Fine if nothing is READY yet.
	_ = manager.Bootstrap(ctx, cfg.Search.VersionID)

	list, err := manager.Versions(ctx)
	if err != nil {
		return err
	}

	if opts.jsonOut {
		payload := struct {
			Versions []catalog.IndexVersion `json:"versions"`
			Skipped  int                    `json:"skipped,omitempty"`
			Active   string                 `json:"active,omitempty"`
		}{Versions: list.Versions, Skipped: list.Skipped, Active: list.ActiveID}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}

	rows := make([]ui.VersionRow, 0, len(list.Versions))
	for _, v := range list.Versions {
		rows = append(rows, ui.VersionRow{
			ID:      v.VersionID,
			Status:  string(v.Status),
			Created: v.CreatedAt,
			Files:   v.FileCount,
			Active:  v.VersionID == list.ActiveID,
		})
	}
	ui.RenderVersionTable(cmd.OutOrStdout(), rows, ui.DetectNoColor())
	return nil
}

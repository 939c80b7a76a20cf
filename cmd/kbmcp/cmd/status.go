package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kbforge/kbmcp/internal/blobstore"
	"github.com/kbforge/kbmcp/internal/catalog"
	"github.com/kbforge/kbmcp/internal/config"
	"github.com/kbforge/kbmcp/internal/lifecycle"
	"github.com/kbforge/kbmcp/internal/ui"
)

type statusOptions struct {
	jsonOut bool
}

func newStatusCmd() *cobra.Command {
	var opts statusOptions

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show knowledge base health",
		Long: `Show a health summary: storage connectivity, document counts,
catalog state and which index version this configuration serves.`,
		Example: `  kbmcp status
  kbmcp status --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Output as JSON")

	return cmd
}

func runStatus(ctx context.Context, cmd *cobra.Command, opts statusOptions) error {
	cleanup := setupCommandLogging()
	defer cleanup()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var info ui.StatusInfo
	store, err := openStore(ctx, cfg)
	if err != nil {
		info = ui.StatusInfo{
			Provider:      cfg.Storage.Provider,
			Bucket:        cfg.Storage.Bucket,
			Endpoint:      cfg.Storage.Endpoint,
			CatalogStatus: "error",
			CatalogError:  err.Error(),
		}
	} else {
		info = collectStatus(ctx, cfg, store)
	}
	info.ConfigPath = configPath

	renderer := ui.NewStatusRenderer(cmd.OutOrStdout(), ui.DetectNoColor())
	if opts.jsonOut {
		return renderer.RenderJSON(info)
	}
	return renderer.Render(info)
}

// collectStatus gathers the health summary from an open store. Catalog
// trouble lands in the summary instead of failing the command, so
// status stays useful exactly when things are broken.
func collectStatus(ctx context.Context, cfg *config.Config, store blobstore.Store) ui.StatusInfo {
	info := ui.StatusInfo{
		Provider: cfg.Storage.Provider,
		Bucket:   cfg.Storage.Bucket,
		Endpoint: cfg.Storage.Endpoint,
	}

	if docs, err := store.List(ctx, cfg.Storage.DocumentsPrefix); err == nil {
		info.DocumentCount = len(docs)
		for _, d := range docs {
			info.DocumentBytes += d.Size
		}
	}

	manager := newLifecycleManager(store, cfg)
	// Seed the pointer the way serve would, so "active" reflects what
	// this configuration serves.
	_ = manager.Bootstrap(ctx, cfg.Search.VersionID)

	list, err := manager.Versions(ctx)
	if err != nil {
		info.CatalogStatus = "error"
		info.CatalogError = err.Error()
		return info
	}

	info.CatalogStatus = "ok"
	info.VersionCount = len(list.Versions)
	info.SkippedMalformed = list.Skipped
	info.ActiveVersion = list.ActiveID

	for _, v := range list.Versions {
		switch v.Status {
		case catalog.StatusReady:
			info.ReadyCount++
		case catalog.StatusFailed:
			info.FailedCount++
		default:
			info.BuildingCount++
		}
		if v.CreatedAt.After(info.LatestCreated) {
			info.LatestCreated = v.CreatedAt
		}
	}

	if latest, err := lifecycle.SelectLatestReady(list.Versions); err == nil {
		info.LatestReady = latest.VersionID
	}

	return info
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbforge/kbmcp/internal/docsync"
	"github.com/kbforge/kbmcp/internal/output"
	"github.com/kbforge/kbmcp/internal/ui"
)

// syncOptions holds CLI flags for sync.
type syncOptions struct {
	prefix   string
	del      bool
	watch    bool
	debounce time.Duration
}

func newSyncCmd() *cobra.Command {
	var opts syncOptions

	cmd := &cobra.Command{
		Use:   "sync [dir]",
		Short: "Upload local documents to the knowledge base bucket",
		Long: `Mirror a local documents directory into the configured bucket.

Only files matching the configured extensions are uploaded, and files
already current in the bucket are skipped. Uploading does not start an
indexing run; run 'kbmcp index' once the documents are in place.

With --watch the command keeps running and re-syncs after every quiet
period following local changes.`,
		Example: `  # Mirror ./docs into the bucket
  kbmcp sync ./docs

  # Mirror and prune remote files deleted locally
  kbmcp sync ./docs --delete

  # Keep mirroring while editing
  kbmcp sync ./docs --watch`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runSync(cmd.Context(), cmd, dir, opts)
		},
	}

	cmd.Flags().StringVar(&opts.prefix, "prefix", "", "Object key prefix in the bucket (default from config)")
	cmd.Flags().BoolVar(&opts.del, "delete", false, "Delete remote objects with no local counterpart")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Keep running and sync after local changes")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", docsync.DefaultDebounce, "Quiet period before a watch-triggered sync")

	return cmd
}

func runSync(ctx context.Context, cmd *cobra.Command, dir string, opts syncOptions) error {
	cleanup := setupCommandLogging()
	defer cleanup()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := output.New(cmd.OutOrStdout())

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return fmt.Errorf("failed to access path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", absDir)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	prefix := opts.prefix
	if prefix == "" {
		prefix = cfg.Storage.DocumentsPrefix
	}

	syncer := docsync.NewSyncer(store, docsync.Options{
		Root:       absDir,
		Prefix:     prefix,
		Extensions: cfg.Indexing.Extensions,
		Delete:     opts.del,
	})

	result, err := syncer.Sync(ctx)
	if err != nil {
		return err
	}
	reportSync(out, cfg.Storage.Bucket, result)

	if !opts.watch {
		if result.Uploaded > 0 || result.Deleted > 0 {
			out.Status("", "Run `kbmcp index` to build a version from the updated documents.")
		}
		return nil
	}

	out.Statusf("👀", "Watching %s for changes (Ctrl-C to stop)", absDir)
	return syncer.Watch(ctx, opts.debounce, func(result docsync.Result, err error) {
		if err != nil {
			out.Errorf("Sync failed: %v", err)
			return
		}
		reportSync(out, cfg.Storage.Bucket, result)
	})
}

// reportSync prints the outcome of one sync pass.
func reportSync(out *output.Writer, bucket string, result docsync.Result) {
	if result.Uploaded == 0 && result.Deleted == 0 {
		out.Successf("Everything up to date (%d unchanged)", result.Unchanged)
		return
	}

	out.Successf("Uploaded %d documents to %s (%s in %s)",
		result.Uploaded, bucket, ui.FormatBytes(result.Bytes), result.Duration.Round(time.Millisecond))
	if result.Deleted > 0 {
		out.Statusf("", "Pruned %d remote documents with no local counterpart", result.Deleted)
	}
	if result.Unchanged > 0 {
		out.Statusf("", "%d unchanged", result.Unchanged)
	}
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbforge/kbmcp/internal/backend"
	"github.com/kbforge/kbmcp/internal/catalog"
	kberrors "github.com/kbforge/kbmcp/internal/errors"
	"github.com/kbforge/kbmcp/internal/lifecycle"
	"github.com/kbforge/kbmcp/internal/output"
	"github.com/kbforge/kbmcp/internal/ui"
)

// indexOptions holds CLI flags for index.
type indexOptions struct {
	description  string
	prefix       string
	wait         bool
	promote      bool
	pollInterval time.Duration
	timeout      time.Duration
	noTUI        bool
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Submit an indexing run for the knowledge base",
		Long: `Submit an indexing run over the documents in the configured bucket.

The build itself happens in the cloud. By default the command returns as
soon as the backend accepts the job; progress shows up in the version
catalog (see 'kbmcp versions'). With --wait the command polls the
catalog until the new version reaches READY or FAILED, and with
--promote it activates the version once it is READY.`,
		Example: `  # Fire and forget
  kbmcp index

  # Wait for the build and activate the result
  kbmcp index --wait --promote

  # Index a different prefix of the bucket
  kbmcp index --prefix imports/2026-08/ --description "august import"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.description, "description", "", "Free-form description attached to the run")
	cmd.Flags().StringVar(&opts.prefix, "prefix", "", "Source prefix in the bucket (default from config)")
	cmd.Flags().BoolVarP(&opts.wait, "wait", "w", false, "Poll the catalog until the build finishes")
	cmd.Flags().BoolVar(&opts.promote, "promote", false, "Activate the version once READY (implies --wait)")
	cmd.Flags().DurationVar(&opts.pollInterval, "poll-interval", 0, "Catalog poll interval (default from config)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Give up waiting after this long (default from config)")
	cmd.Flags().BoolVar(&opts.noTUI, "no-tui", false, "Plain text progress output")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, opts indexOptions) error {
	cleanup := setupCommandLogging()
	defer cleanup()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	prefix := strings.TrimSpace(opts.prefix)
	if prefix == "" {
		prefix = cfg.Storage.DocumentsPrefix
	}
	if strings.TrimSpace(prefix) == "" {
		return kberrors.New(kberrors.ErrCodeInvalidPrefix, "source prefix must not be empty", nil).
			WithSuggestion("Pass --prefix or set storage.documents_prefix in the config.")
	}

	waiting := opts.wait || opts.promote

	// The catalog state before submission is the baseline for spotting
	// the new version. Taken first so a fast build cannot slip past.
	var known lifecycle.StatusSnapshot
	if waiting {
		list, err := manager.Versions(ctx)
		if err != nil {
			out.Warning("Catalog is unreachable; submitting without waiting")
			slog.Warn("wait_disabled_catalog_unreachable", slog.String("error", err.Error()))
			waiting = false
		} else {
			known = lifecycle.Snapshot(list.Versions)
		}
	}

	jobID, err := manager.StartIndexing(ctx, backend.JobRequest{
		SourceBucket: cfg.Storage.Bucket,
		SourcePrefix: prefix,
		Extensions:   cfg.Indexing.Extensions,
		Description:  opts.description,
	})
	if err != nil {
		return err
	}
	if jobID != "" {
		out.Successf("Indexing job %s submitted", jobID)
	} else {
		out.Success("Indexing job submitted")
	}

	if !waiting {
		out.Status("", "The build runs in the cloud; follow it with `kbmcp versions`.")
		return nil
	}

	interval := opts.pollInterval
	if interval <= 0 {
		interval = cfg.Indexing.PollIntervalDuration()
	}
	timeout := opts.timeout
	if timeout <= 0 {
		timeout = cfg.Indexing.PollTimeoutDuration()
	}

	uiCfg := ui.NewConfig(cmd.OutOrStdout(),
		ui.WithForcePlain(opts.noTUI),
		ui.WithNoColor(ui.DetectNoColor()))
	renderer := ui.NewRenderer(uiCfg)
	if err := renderer.Start(ctx); err != nil {
		slog.Warn("failed to start progress renderer", slog.String("error", err.Error()))
	}
	defer func() { _ = renderer.Stop() }()

	start := time.Now()
	version, err := manager.AwaitNewVersion(ctx, known, interval, timeout, func(p lifecycle.WaitProgress) {
		renderer.Update(ui.WaitEvent{
			Versions: p.Versions,
			Building: p.Building,
			Message:  p.Message,
		})
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			// The job was already accepted; only the watching stops.
			out.Warning("Wait cancelled; the build continues in the cloud. Check `kbmcp versions`.")
			return nil
		}
		if kberrors.GetCode(err) == kberrors.ErrCodeVersionNotReady {
			renderer.Complete(ui.WaitOutcome{TimedOut: true, Duration: time.Since(start)})
		}
		return err
	}

	outcome := ui.WaitOutcome{
		VersionID: version.VersionID,
		Status:    string(version.Status),
		FileCount: version.FileCount,
		Duration:  time.Since(start),
	}

	if version.Status == catalog.StatusFailed {
		renderer.Complete(outcome)
		return fmt.Errorf("index build %s failed", version.VersionID)
	}

	if opts.promote {
		if _, err := manager.Promote(ctx, version.VersionID); err != nil {
			renderer.Complete(outcome)
			return fmt.Errorf("build succeeded but promotion failed: %w", err)
		}
		outcome.Promoted = true
	}

	renderer.Complete(outcome)
	return nil
}

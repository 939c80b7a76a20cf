package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	kberrors "github.com/kbforge/kbmcp/internal/errors"
	"github.com/kbforge/kbmcp/internal/output"
	"github.com/kbforge/kbmcp/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	topK       int
	rerank     bool
	rerankTopK int
	format     string // "text", "json"
	versionID  string // pin a version for this query only
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the knowledge base",
		Long: `Search the knowledge base through the backend retrieval API.

Queries run against the active index version, which is the latest READY
version unless one is pinned in config. With --rerank the backend runs
a two-stage search: retrieve a wider candidate window, rerank it, keep
the best results. If reranking fails the command still answers with
single-stage results.`,
		Example: `  kbmcp search "refund policy for enterprise plans"
  kbmcp search "onboarding checklist" --top-k 10
  kbmcp search "pricing tiers" --rerank
  kbmcp search "api rate limits" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.topK, "top-k", "n", 0, "Number of results (default from config)")
	cmd.Flags().BoolVar(&opts.rerank, "rerank", false, "Use two-stage search with reranking")
	cmd.Flags().IntVar(&opts.rerankTopK, "rerank-top-k", 0, "Candidate window for reranking (default from config)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().StringVar(&opts.versionID, "version", "", "Query a specific READY version instead of the active one")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	cleanup := setupCommandLogging()
	defer cleanup()

	slog.Info("search_started", slog.Int("top_k", opts.topK), slog.Bool("rerank", opts.rerank))
	out := output.New(cmd.OutOrStdout())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if opts.versionID != "" {
		cfg.Search.VersionID = opts.versionID
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	manager := newLifecycleManager(store, cfg)
	if err := manager.Bootstrap(ctx, cfg.Search.VersionID); err != nil {
		return err
	}
	searcher := newSearcher(cfg, manager.Active())

	var resp *search.Response
	if opts.rerank {
		resp, err = searcher.SearchAdvanced(ctx, query, opts.topK, opts.rerankTopK)
	} else {
		resp, err = searcher.Search(ctx, query, opts.topK)
	}
	if err != nil {
		if kberrors.IsNoActiveVersion(err) {
			out.Error("No index version is active")
			out.Status("", "Run `kbmcp index` to build one, or `kbmcp promote` if a READY version exists.")
		}
		return err
	}
	slog.Info("search_complete",
		slog.String("version_id", resp.VersionID),
		slog.Int("results", len(resp.Results)),
		slog.Bool("reranked", resp.Reranked))

	switch opts.format {
	case "json":
		return formatSearchJSON(cmd, resp)
	default:
		return formatSearchText(out, resp)
	}
}

// formatSearchText outputs results in human-readable format.
func formatSearchText(out *output.Writer, resp *search.Response) error {
	if len(resp.Results) == 0 {
		out.Status("", fmt.Sprintf("No results found for %q (version %s)", resp.Query, resp.VersionID))
		return nil
	}

	mode := "retrieval"
	if resp.Reranked {
		mode = "reranked"
	}
	out.Statusf("🔍", "Found %d results for %q (%s, version %s):", len(resp.Results), resp.Query, mode, resp.VersionID)
	out.Newline()

	for i, r := range resp.Results {
		location := r.ID
		if source, ok := r.Metadata["source"].(string); ok && source != "" {
			location = source
		}
		out.Statusf("", "%d. %s (score: %.3f)", i+1, location, r.Score)

		for _, line := range snippetLines(r.Content, 3) {
			out.Status("", "   "+line)
		}
		out.Newline()
	}

	return nil
}

// formatSearchJSON outputs the full response in JSON format.
func formatSearchJSON(cmd *cobra.Command, resp *search.Response) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// snippetLines returns the first n lines of content.
func snippetLines(content string, n int) []string {
	lines := strings.Split(content, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	// Trim trailing empty lines
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

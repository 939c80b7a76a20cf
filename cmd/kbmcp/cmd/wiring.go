package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/kbforge/kbmcp/internal/backend"
	"github.com/kbforge/kbmcp/internal/blobstore"
	"github.com/kbforge/kbmcp/internal/catalog"
	"github.com/kbforge/kbmcp/internal/config"
	kberrors "github.com/kbforge/kbmcp/internal/errors"
	"github.com/kbforge/kbmcp/internal/iam"
	"github.com/kbforge/kbmcp/internal/lifecycle"
	"github.com/kbforge/kbmcp/internal/logging"
	"github.com/kbforge/kbmcp/internal/search"
)

// setupCommandLogging routes slog output to the log file so CLI output
// stays clean. Returns a cleanup to defer. No-op when --debug already
// configured logging at the root.
func setupCommandLogging() func() {
	if debugMode {
		return func() {}
	}
	logCfg := logging.DefaultConfig()
	logCfg.WriteToStderr = false
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		// Not critical for a CLI run.
		return func() {}
	}
	slog.SetDefault(logger)
	return cleanup
}

// loadConfig resolves configuration for one command run: the explicit
// --config file when given, otherwise discovery from the working
// directory (user config, then project config, then environment).
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, kberrors.ConfigError("cannot determine working directory", err)
	}
	return config.Load(cwd)
}

// openStore connects the configured object store.
func openStore(ctx context.Context, cfg *config.Config) (blobstore.Store, error) {
	return blobstore.New(ctx, cfg.Storage)
}

// queryTokens builds the query-scope token source. The query and
// indexing scopes authenticate separately and never share a cache.
func queryTokens(cfg *config.Config) iam.TokenSource {
	creds := iam.Credentials{
		KeyID:  cfg.Credentials.KeyID,
		Secret: cfg.Credentials.Secret,
	}
	return iam.NewCachedTokenSource("query", iam.NewClient(cfg.Backend.IAMURL, creds))
}

// indexingTokens builds the indexing-scope token source.
func indexingTokens(cfg *config.Config) iam.TokenSource {
	creds := iam.Credentials{
		KeyID:  cfg.IndexingCredentials.KeyID,
		Secret: cfg.IndexingCredentials.Secret,
	}
	return iam.NewCachedTokenSource("indexing", iam.NewClient(cfg.Backend.IAMURL, creds))
}

// newLifecycleManager wires the catalog reader and the indexing client
// around a fresh active-version pointer. Commands that only read the
// catalog get a working manager even without indexing credentials; the
// submission path reports the missing credentials when actually used.
func newLifecycleManager(store blobstore.Store, cfg *config.Config) *lifecycle.Manager {
	reader := catalog.NewReader(store, cfg.Storage.CatalogPrefix)
	submitter := backend.NewIndexingClient(cfg.Backend, indexingTokens(cfg))
	return lifecycle.NewManager(reader, submitter, lifecycle.NewActiveVersion())
}

// newSearcher builds the query router over the given pointer, wrapped
// in the result cache when one is configured.
func newSearcher(cfg *config.Config, active *lifecycle.ActiveVersion) search.Searcher {
	retriever := backend.NewQueryClient(cfg.Backend, cfg.Search, queryTokens(cfg))
	router := search.NewRouter(retriever, active, cfg.Search)
	if cfg.Search.CacheSize > 0 {
		return search.NewCachedSearcher(router, active, router.Limits(), cfg.Search.CacheSize)
	}
	return router
}

// Package docsync mirrors a local documents directory into the
// knowledge base's source bucket. It uploads new and changed files,
// optionally prunes remote objects whose local counterpart is gone,
// and can watch the directory to keep the mirror current.
package docsync

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"github.com/kbforge/kbmcp/internal/blobstore"
	kberrors "github.com/kbforge/kbmcp/internal/errors"
)

const (
	// uploadParallelism bounds concurrent uploads.
	uploadParallelism = 4

	// lockFileName guards against two syncs over the same directory.
	lockFileName = ".kbmcp-sync.lock"
)

// Options configures a Syncer.
type Options struct {
	// Root is the local documents directory.
	Root string
	// Prefix is the object key prefix the mirror lives under.
	Prefix string
	// Extensions limits which files are mirrored (lowercase, with dot).
	Extensions []string
	// Delete prunes remote objects with no local counterpart.
	Delete bool
}

// Result summarizes one sync pass.
type Result struct {
	Uploaded int
	Deleted  int
	// Unchanged counts local files already current in the bucket.
	Unchanged int
	// Bytes is the total size uploaded.
	Bytes int64
	// Duration is how long the pass took.
	Duration time.Duration
}

// Syncer mirrors one local directory into one bucket prefix.
type Syncer struct {
	store      blobstore.Store
	opts       Options
	extensions map[string]bool
}

// NewSyncer creates a syncer. Extensions are matched case-insensitively.
func NewSyncer(store blobstore.Store, opts Options) *Syncer {
	exts := make(map[string]bool, len(opts.Extensions))
	for _, e := range opts.Extensions {
		exts[strings.ToLower(e)] = true
	}
	if !strings.HasSuffix(opts.Prefix, "/") && opts.Prefix != "" {
		opts.Prefix += "/"
	}
	return &Syncer{store: store, opts: opts, extensions: exts}
}

// localFile is one candidate for mirroring.
type localFile struct {
	relPath string
	absPath string
	size    int64
	modTime time.Time
}

// Sync runs one full mirror pass. A directory-level lock keeps two
// passes (watch mode plus a manual run, say) from racing each other.
func (s *Syncer) Sync(ctx context.Context) (Result, error) {
	lock := flock.New(filepath.Join(s.opts.Root, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return Result{}, kberrors.StorageError("failed to acquire sync lock", err)
	}
	if !locked {
		return Result{}, kberrors.StorageError("another sync is already running for "+s.opts.Root, nil).
			WithSuggestion("Wait for the running sync to finish, or remove a stale " + lockFileName)
	}
	defer func() { _ = lock.Unlock() }()

	return s.syncLocked(ctx)
}

func (s *Syncer) syncLocked(ctx context.Context) (Result, error) {
	start := time.Now()

	files, err := s.scanLocal()
	if err != nil {
		return Result{}, err
	}

	remote, err := s.store.List(ctx, s.opts.Prefix)
	if err != nil {
		return Result{}, kberrors.StorageError("failed to list remote documents", err)
	}
	remoteByKey := make(map[string]blobstore.ObjectInfo, len(remote))
	for _, obj := range remote {
		remoteByKey[obj.Key] = obj
	}

	var result Result
	var toUpload []localFile
	localKeys := make(map[string]bool, len(files))
	for _, f := range files {
		key := s.opts.Prefix + filepath.ToSlash(f.relPath)
		localKeys[key] = true
		if cur, ok := remoteByKey[key]; ok && cur.Size == f.size && !f.modTime.After(cur.LastModified) {
			result.Unchanged++
			continue
		}
		toUpload = append(toUpload, f)
	}

	uploaded, bytes, err := s.uploadAll(ctx, toUpload)
	result.Uploaded = uploaded
	result.Bytes = bytes
	if err != nil {
		return result, err
	}

	if s.opts.Delete {
		for key := range remoteByKey {
			if localKeys[key] {
				continue
			}
			if err := s.store.Delete(ctx, key); err != nil {
				return result, kberrors.StorageError("failed to delete remote object "+key, err)
			}
			result.Deleted++
			slog.Debug("docsync_deleted", slog.String("key", key))
		}
	}

	result.Duration = time.Since(start)
	slog.Info("docsync_completed",
		slog.Int("uploaded", result.Uploaded),
		slog.Int("deleted", result.Deleted),
		slog.Int("unchanged", result.Unchanged),
		slog.Int64("bytes", result.Bytes),
		slog.Duration("duration", result.Duration))
	return result, nil
}

// scanLocal walks the root collecting files with a mirrored extension.
// Hidden directories and files are skipped.
func (s *Syncer) scanLocal() ([]localFile, error) {
	var files []localFile
	err := filepath.WalkDir(s.opts.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != s.opts.Root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if !s.extensions[strings.ToLower(filepath.Ext(name))] {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.opts.Root, path)
		if err != nil {
			return err
		}
		files = append(files, localFile{
			relPath: rel,
			absPath: path,
			size:    info.Size(),
			modTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, kberrors.ConfigError("documents directory does not exist: "+s.opts.Root, err)
		}
		return nil, kberrors.StorageError("failed to scan documents directory", err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].relPath < files[j].relPath })
	return files, nil
}

// uploadAll pushes the given files with bounded parallelism.
func (s *Syncer) uploadAll(ctx context.Context, files []localFile) (int, int64, error) {
	if len(files) == 0 {
		return 0, 0, nil
	}

	var (
		mu       sync.Mutex
		uploaded int
		bytes    int64
	)

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, uploadParallelism)

	for _, f := range files {
		f := f
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				return gctx.Err()
			}

			data, err := os.ReadFile(f.absPath)
			if err != nil {
				return kberrors.StorageError("failed to read "+f.relPath, err)
			}
			key := s.opts.Prefix + filepath.ToSlash(f.relPath)
			if err := s.store.Put(gctx, key, data, ContentTypeFor(f.relPath)); err != nil {
				return kberrors.StorageError("failed to upload "+key, err)
			}

			mu.Lock()
			uploaded++
			bytes += int64(len(data))
			mu.Unlock()

			slog.Debug("docsync_uploaded",
				slog.String("key", key),
				slog.Int("size", len(data)))
			return nil
		})
	}

	err := g.Wait()
	return uploaded, bytes, err
}

// ContentTypeFor maps a file name to the content type stored with it.
func ContentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return "text/plain"
	case ".md":
		return "text/markdown"
	case ".pdf":
		return "application/pdf"
	case ".json":
		return "application/json"
	case ".html", ".htm":
		return "text/html"
	default:
		return "application/octet-stream"
	}
}

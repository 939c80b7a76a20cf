package docsync

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	kberrors "github.com/kbforge/kbmcp/internal/errors"
)

// DefaultDebounce is how long the watcher waits after the last change
// before running a sync pass. Editors fire bursts of events per save;
// one pass per burst is enough because each pass rescans everything.
const DefaultDebounce = 2 * time.Second

// Watch mirrors the directory continuously until ctx ends. After every
// quiet period following relevant changes it runs one sync pass and
// reports it through onSync. Watch itself only returns on setup
// failure or context end; per-pass errors go to the callback so a
// transient storage blip does not kill watch mode.
func (s *Syncer) Watch(ctx context.Context, debounce time.Duration, onSync func(Result, error)) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return kberrors.InternalError("failed to create file watcher", err)
	}
	defer func() { _ = fw.Close() }()

	if err := addRecursive(fw, s.opts.Root); err != nil {
		return err
	}

	slog.Info("docsync_watching",
		slog.String("root", s.opts.Root),
		slog.Duration("debounce", debounce))

	// The timer is armed only while changes are pending.
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	dirty := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			// New directories must be watched before files land in them.
			if event.Op.Has(fsnotify.Create) {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					_ = addIfDir(fw, event.Name)
				}
			}
			if !s.relevant(event.Name) {
				continue
			}
			dirty = true
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("docsync_watch_error", slog.String("error", err.Error()))

		case <-timer.C:
			if !dirty {
				continue
			}
			dirty = false
			result, err := s.Sync(ctx)
			if onSync != nil {
				onSync(result, err)
			}
		}
	}
}

// relevant reports whether a change to path should trigger a sync.
func (s *Syncer) relevant(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || name == lockFileName {
		return false
	}
	return s.extensions[strings.ToLower(filepath.Ext(name))]
}

// addRecursive watches root and every non-hidden subdirectory.
// fsnotify watches are per-directory, not recursive.
func addRecursive(fw *fsnotify.Watcher, root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
	if err != nil {
		return kberrors.ConfigError("failed to watch "+root, err)
	}
	return nil
}

// addIfDir adds a watch when the created path is a directory.
func addIfDir(fw *fsnotify.Watcher, path string) error {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return nil
	}
	return addRecursive(fw, path)
}

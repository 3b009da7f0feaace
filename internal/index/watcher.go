package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/sitedesk/internal/content"
)

// Event kinds passed to EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

const reconcileDelay = 200 * time.Millisecond

// EventCallback is called after a watcher-driven index change with the
// slash-separated path relative to the content root.
type EventCallback func(kind string, path string)

// Watch starts an fsnotify watcher on the content root and processes file
// change events until ctx is cancelled. It calls cb (if non-nil) after
// each index mutation.
//
// New directories created at runtime are automatically added to the watch
// list. Rename events trigger a debounced reconciliation pass that removes
// stale index entries and indexes files that appeared under new names.
func Watch(ctx context.Context, db EntryIndex, scanner *content.Scanner, logger *slog.Logger, cb EventCallback) error {
	root := scanner.Root()
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			if _, err := reconcile(db, scanner, logger, cb); err != nil {
				logger.Warn("reconcile: failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if !strings.HasPrefix(info.Name(), ".") {
						if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
							logger.Warn("watcher: add new dir failed",
								slog.String("path", ev.Name),
								slog.String("error", addErr.Error()))
						}
						// Files may have landed before the watch was added.
						scheduleReconcile()
					}
					continue
				}
			}

			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			if !scanner.IsContentPath(rel) {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				applyChange(db, scanner, rel, logger, cb)

			case ev.Op&fsnotify.Remove != 0:
				removeEntry(db, rel, logger, cb)

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the OLD path only; the new
				// name arrives as a Create inside a watched dir, or not
				// at all when moved out of the tree.
				removeEntry(db, rel, logger, cb)
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// applyChange re-indexes rel when its bytes changed. A file that no longer
// decodes is dropped from the index.
func applyChange(db EntryIndex, scanner *content.Scanner, rel string, logger *slog.Logger, cb EventCallback) {
	prev, err := db.GetChecksum(rel)
	if err != nil {
		logger.Warn("watcher: checksum lookup failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	r := scanner.Load(rel)
	if r.Skipped != nil {
		logger.Debug("watcher: skipped", slog.String("path", rel), slog.String("reason", r.Skipped.Reason))
		if prev != "" {
			removeEntry(db, rel, logger, cb)
		}
		return
	}
	if prev == checksum(r.Raw) {
		return
	}
	if err := IndexResult(db, r); err != nil {
		logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	kind := EventUpdated
	if prev == "" {
		kind = EventCreated
	}
	logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
	if cb != nil {
		cb(kind, rel)
	}
}

func removeEntry(db EntryIndex, rel string, logger *slog.Logger, cb EventCallback) {
	prev, _ := db.GetChecksum(rel)
	if prev == "" {
		return
	}
	if err := db.DeleteEntry(rel); err != nil {
		logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	logger.Debug("watcher: deleted", slog.String("path", rel))
	if cb != nil {
		cb(EventDeleted, rel)
	}
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

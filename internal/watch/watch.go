// Package watch re-converts LeanDoc sources when they change on disk.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceDelay = 200 * time.Millisecond

// OnChange is called with the absolute path of a changed source file after
// the debounce window closes.
type OnChange func(path string)

// Watch starts an fsnotify watcher on root and invokes cb for every
// created or written .adoc file until ctx is cancelled. Rapid event bursts
// (editors typically write several times per save) are debounced. New
// directories created at runtime are added to the watch list.
func Watch(ctx context.Context, root string, cb OnChange) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	slog.Info("watcher: started", "root", root)

	pending := make(map[string]struct{})
	var flushTimer *time.Timer
	var flushCh <-chan time.Time

	scheduleFlush := func() {
		if flushTimer == nil {
			flushTimer = time.NewTimer(debounceDelay)
			flushCh = flushTimer.C
		} else {
			flushTimer.Reset(debounceDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if flushTimer != nil {
				flushTimer.Stop()
			}
			slog.Info("watcher: stopped")
			return nil

		case <-flushCh:
			for path := range pending {
				slog.Debug("watcher: changed", "path", path)
				cb(path)
			}
			pending = make(map[string]struct{})

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						slog.Warn("watcher: add new dir failed", "path", absPath, "error", addErr)
					} else {
						slog.Debug("watcher: watching new dir", "path", absPath)
					}
					continue
				}
			}

			if !strings.HasSuffix(absPath, ".adoc") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}

			pending[absPath] = struct{}{}
			scheduleFlush()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Error("watcher: error", "error", watchErr)
		}
	}
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == ".git" {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

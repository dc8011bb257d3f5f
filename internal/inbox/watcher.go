// Package inbox imports course files dropped into a watched directory.
package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/skillpath/internal/checksum"
	"github.com/starford/skillpath/internal/gateway"
	"github.com/starford/skillpath/internal/models"
)

const fileExt = ".json"

// settle is how long a file must stay quiet before it is imported, so that
// editors writing in several chunks are read once.
const settle = 200 * time.Millisecond

// Importer validates and stores raw course JSON.
type Importer interface {
	ImportCourse(ctx context.Context, raw []byte) (*models.Course, int64, gateway.Mode, error)
}

// Watch imports every *.json file already in dir, then keeps importing files
// created or rewritten there until ctx is cancelled. Files whose content has
// not changed since the last import are skipped; invalid files are logged and
// left in place.
func Watch(ctx context.Context, dir string, imp Importer, logger *slog.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("inbox: mkdir: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("inbox: watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("inbox: watch %s: %w", dir, err)
	}

	seen := make(map[string]string)
	scan(ctx, dir, imp, seen, logger)
	logger.Info("inbox: started", slog.String("dir", dir))

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func(path string) {
		pending[path] = struct{}{}
		if timer == nil {
			timer = time.NewTimer(settle)
			timerCh = timer.C
		} else {
			timer.Reset(settle)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("inbox: stopped")
			return nil

		case <-timerCh:
			for path := range pending {
				importFile(ctx, path, imp, seen, logger)
			}
			clear(pending)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !isCourseFile(ev.Name) {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				schedule(ev.Name)
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				delete(seen, ev.Name)
				delete(pending, ev.Name)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("inbox: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// scan imports the course files present in dir.
func scan(ctx context.Context, dir string, imp Importer, seen map[string]string, logger *slog.Logger) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn("inbox: scan failed", slog.String("dir", dir), slog.String("error", err.Error()))
		return
	}
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if e.IsDir() || !isCourseFile(path) {
			continue
		}
		importFile(ctx, path, imp, seen, logger)
	}
}

func importFile(ctx context.Context, path string, imp Importer, seen map[string]string, logger *slog.Logger) {
	data, err := os.ReadFile(path)
	if err != nil {
		// removed before it settled
		if !os.IsNotExist(err) {
			logger.Warn("inbox: read failed", slog.String("path", path), slog.String("error", err.Error()))
		}
		return
	}
	sum := checksum.Sum(data)
	if seen[path] == sum {
		return
	}

	course, id, mode, err := imp.ImportCourse(ctx, data)
	if err != nil {
		logger.Warn("inbox: import failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	seen[path] = sum
	logger.Info("inbox: imported",
		slog.String("path", path),
		slog.String("topic", course.Topic),
		slog.Int64("id", id),
		slog.String("mode", string(mode)),
	)
}

func isCourseFile(path string) bool {
	base := filepath.Base(path)
	return strings.EqualFold(filepath.Ext(base), fileExt) && !strings.HasPrefix(base, ".")
}

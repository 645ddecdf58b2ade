package walker

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the delay between a filesystem event and the listing
// rebuild it triggers, so bursts of events produce a single rebuild.
const DefaultDebounce = 500 * time.Millisecond

// WatchOptions configures WatchList.
type WatchOptions struct {
	// Debounce is the quiet period required after an event before the
	// listing is rebuilt. Zero means DefaultDebounce.
	Debounce time.Duration

	// Timeout stops watching after the given duration. Zero means no
	// timeout.
	Timeout time.Duration
}

// ListHandler receives each regenerated listing.
type ListHandler func(ctx context.Context, paths []string) error

// defaultListHandler prints each listing to stdout, one path per line.
func defaultListHandler() ListHandler {
	return func(ctx context.Context, paths []string) error {
		for _, p := range paths {
			fmt.Println(p)
		}
		return nil
	}
}

// WatchList monitors the tree rooted at root and keeps the backup listing up
// to date: it hands the initial listing to handler, then rebuilds and
// re-delivers it whenever the tree changes (debounced). It blocks until the
// context is canceled, the timeout fires, or a walk or handler error occurs.
//
// Watcher errors are logged and watching continues; walk errors are
// terminal, matching the walker's no-partial-result contract.
func WatchList(ctx context.Context, root string, cfg *Config, opts WatchOptions, handler ListHandler) error {
	if handler == nil {
		handler = defaultListHandler()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the root and every subdirectory. Directories created later are
	// added as their create events arrive.
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := watcher.Add(path); err != nil {
				logger.Warn("failed to watch directory", zap.String("path", path), zap.Error(err))
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set up watches under %s: %w", root, err)
	}

	paths, err := Walk(root, cfg)
	if err != nil {
		return err
	}
	if err := handler(ctx, paths); err != nil {
		return err
	}

	timer := time.NewTimer(debounce)
	defer timer.Stop()
	stopTimer := func() {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
	}
	stopTimer()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			logger.Debug("filesystem event", zap.String("op", event.Op.String()), zap.String("path", event.Name))
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watcher.Add(event.Name); err != nil {
						logger.Warn("failed to watch new directory", zap.String("path", event.Name), zap.Error(err))
					}
				}
			}
			stopTimer()
			timer.Reset(debounce)

		case <-timer.C:
			paths, err := Walk(root, cfg)
			if err != nil {
				return err
			}
			if err := handler(ctx, paths); err != nil {
				return err
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", zap.Error(err))

		case <-ctx.Done():
			return nil
		}
	}
}

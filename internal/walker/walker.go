package walker

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/karrick/godirwalk"
	"go.uber.org/zap"
)

// Walk traverses the tree rooted at root and returns the ordered list of
// paths that would enter a backup, as decided by the configured rule chain.
//
// Traversal is single-threaded, depth-first and deterministic: directory
// entries are processed in sorted order and the final list is sorted
// lexicographically. Rules apply to every item strictly below the root; a
// directory root is a container and never goes through the rule chain. A
// non-directory root is the walk's single candidate item and does.
//
// Any filesystem error or rule failure aborts the whole walk: Walk returns
// either a complete listing or a single error, never a partial result.
func Walk(root string, cfg *Config) ([]string, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source path %s: %w", root, err)
	}
	root = abs

	info, err := os.Lstat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect source %s: %w", root, err)
	}

	w := &walker{
		cfg:     cfg,
		ctx:     &Context{Config: cfg, Source: root},
		logger:  logger,
		visited: make(visitTracker),
	}

	var entries []string
	switch {
	case info.Mode()&os.ModeSymlink != 0:
		if !cfg.FollowSymlinks {
			logger.Debug("source is a symlink, recording as leaf", zap.String("path", root))
			entries, err = w.leafRoot(Item{Path: root, Type: Symlink})
			if err != nil {
				return nil, err
			}
			break
		}
		canonical, err := filepath.EvalSymlinks(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve symlink %s: %w", root, err)
		}
		w.visited.markAndCheck(canonical)
		target, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect symlink target %s: %w", root, err)
		}
		if !target.IsDir() {
			entries, err = w.leafRoot(Item{Path: root, Type: Symlink, Target: canonical})
			if err != nil {
				return nil, err
			}
			break
		}
		entries, err = w.walkDir(root, root, true)
		if err != nil {
			return nil, err
		}
	case info.IsDir():
		if cfg.FollowSymlinks {
			canonical, err := filepath.EvalSymlinks(root)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve source %s: %w", root, err)
			}
			w.visited.markAndCheck(canonical)
		}
		entries, err = w.walkDir(root, root, true)
		if err != nil {
			return nil, err
		}
	default:
		entries, err = w.leafRoot(Item{Path: root, Type: File})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(entries)
	return entries, nil
}

// walker holds the state of one Walk invocation. It is never shared between
// walks.
type walker struct {
	cfg     *Config
	ctx     *Context
	logger  *zap.Logger
	visited visitTracker
}

// leafRoot applies the rule chain to a non-directory root, the walk's single
// candidate item.
func (w *walker) leafRoot(item Item) ([]string, error) {
	res, err := resolveRules(item, w.cfg.Rules, w.ctx, w.logger)
	if err != nil {
		return nil, err
	}

	switch res.kind {
	case resultExclude:
		return nil, nil
	case resultMap:
		return []string{res.mapped}, nil
	}
	return []string{item.Path}, nil
}

// walkDir enumerates dir's children and accumulates their entries, reporting
// them under the out prefix (which differs from dir below a mapped
// directory).
//
// A directory contributes its own entry only when its subtree produced
// nothing, so a downstream archiver can still recreate empty directories.
// That entry is dropped when DropEmptyDirs is set, unless the directory is
// the walk root.
func (w *walker) walkDir(dir, out string, isRoot bool) ([]string, error) {
	w.logger.Debug("walking directory", zap.String("path", dir))

	names, err := godirwalk.ReadDirnames(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	sort.Strings(names)

	var entries []string
	for _, name := range names {
		children, err := w.walkItem(filepath.Join(dir, name), filepath.Join(out, name))
		if err != nil {
			return nil, err
		}
		entries = append(entries, children...)
	}

	if len(entries) == 0 && (isRoot || !w.cfg.DropEmptyDirs) {
		entries = append(entries, out)
	}
	return entries, nil
}

// walkItem runs the walker on a single item below the root. out is the path
// the item is reported under; it tracks the real path except under a mapped
// directory.
func (w *walker) walkItem(path, out string) ([]string, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect item %s: %w", path, err)
	}

	item := Item{Path: path, Type: classify(info.Mode())}
	isDir := item.Type == Directory

	w.logger.Debug("treating item", zap.String("path", path), zap.Stringer("type", item.Type))

	if w.cfg.FollowSymlinks {
		// Every item is tracked by canonical path, so a link and its
		// target yield a single entry and cycles terminate the branch,
		// not the walk.
		canonical, err := filepath.EvalSymlinks(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
		}
		if w.visited.markAndCheck(canonical) {
			w.logger.Debug("canonical path already visited, skipping",
				zap.String("path", path), zap.String("canonical", canonical))
			return nil, nil
		}

		if item.Type == Symlink {
			item.Target = canonical

			target, err := os.Stat(path)
			if err != nil {
				return nil, fmt.Errorf("failed to inspect symlink target %s: %w", path, err)
			}
			isDir = target.IsDir()
		}
	}
	// An unfollowed symlink is a leaf; its target is never resolved, so
	// dangling links cannot fail the walk.

	res, err := resolveRules(item, w.cfg.Rules, w.ctx, w.logger)
	if err != nil {
		return nil, err
	}

	switch res.kind {
	case resultExclude:
		return nil, nil
	case resultMap:
		out = res.mapped
	}

	if isDir {
		return w.walkDir(path, out, false)
	}
	return []string{out}, nil
}

// classify maps an Lstat mode to an item type. Irregular entries (sockets,
// devices, pipes) are treated as files.
func classify(mode os.FileMode) ItemType {
	switch {
	case mode&os.ModeSymlink != 0:
		return Symlink
	case mode.IsDir():
		return Directory
	default:
		return File
	}
}

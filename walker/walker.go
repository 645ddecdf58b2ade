// Package walker exposes the rule-driven backup walker.
//
// Walk builds the ordered list of paths beneath a source directory that
// would enter a backup, as decided by an ordered chain of rules. The package
// re-exports the supported surface of the internal implementation.
package walker

import (
	"context"

	"go.uber.org/zap"

	internal "github.com/ClementNerma/rebackup/internal/walker"
)

type (
	// Config is the immutable input to a single Walk invocation.
	Config = internal.Config

	// Rule is a named predicate+action pair evaluated against one item.
	Rule = internal.Rule

	// Item is a single filesystem entry handed to rule callbacks.
	Item = internal.Item

	// ItemType identifies the kind of a filesystem item.
	ItemType = internal.ItemType

	// Context carries per-walk data into rule callbacks.
	Context = internal.Context

	// RuleResult is the outcome of a rule's action.
	RuleResult = internal.RuleResult

	// RuleError reports a rule action that failed during a walk.
	RuleError = internal.RuleError

	// LogLevel defines the verbosity of walker logging.
	LogLevel = internal.LogLevel

	// WatchOptions configures WatchList.
	WatchOptions = internal.WatchOptions

	// ListHandler receives each regenerated listing in watch mode.
	ListHandler = internal.ListHandler
)

const (
	// Item types
	AnyItem   = internal.AnyItem
	File      = internal.File
	Directory = internal.Directory
	Symlink   = internal.Symlink

	// Log levels
	LogLevelError = internal.LogLevelError
	LogLevelWarn  = internal.LogLevelWarn
	LogLevelInfo  = internal.LogLevelInfo
	LogLevelDebug = internal.LogLevelDebug
)

// Walk traverses the tree rooted at root and returns the sorted list of
// paths that would enter a backup.
func Walk(root string, cfg *Config) ([]string, error) {
	return internal.Walk(root, cfg)
}

// WatchList monitors the tree rooted at root and re-delivers the backup
// listing whenever the tree changes.
func WatchList(ctx context.Context, root string, cfg *Config, opts WatchOptions, handler ListHandler) error {
	return internal.WatchList(ctx, root, cfg, opts, handler)
}

// NewConfig returns a configuration with the given rules and default
// traversal flags.
func NewConfig(rules []Rule) *Config {
	return internal.NewConfig(rules)
}

// NewLogger creates a zap logger with the specified log level.
func NewLogger(level LogLevel) *zap.Logger {
	return internal.NewLogger(level)
}

// IncludeItem keeps the item as-is.
func IncludeItem() RuleResult { return internal.IncludeItem() }

// ExcludeItem drops the item and, for a directory, its entire subtree.
func ExcludeItem() RuleResult { return internal.ExcludeItem() }

// MapItem keeps the item but reports it under path instead of its real
// location.
func MapItem(path string) RuleResult { return internal.MapItem(path) }

// SkipRule continues evaluation with the next rule.
func SkipRule() RuleResult { return internal.SkipRule() }

// Package walker implements a rule-driven filesystem walker that builds an
// ordered list of paths to back up.
package walker

import (
	"go.uber.org/zap"
)

// ItemType identifies the kind of a filesystem item encountered during
// traversal. The zero value AnyItem is only meaningful in Rule.OnlyFor,
// where it means "apply to every item type".
type ItemType int

const (
	AnyItem ItemType = iota
	File
	Directory
	Symlink
)

// String returns a human-readable name for the item type.
func (t ItemType) String() string {
	switch t {
	case File:
		return "file"
	case Directory:
		return "directory"
	case Symlink:
		return "symlink"
	default:
		return "any"
	}
}

// Item is a single filesystem entry handed to rule callbacks.
type Item struct {
	// Path is the item's absolute path.
	Path string

	// Type is the item's type as seen by Lstat. A symlink keeps the
	// Symlink type even when symlink following is enabled.
	Type ItemType

	// Target is the canonical target of a symlink, populated only when
	// the walker follows symlinks. Empty otherwise.
	Target string
}

// Context carries per-walk data into rule callbacks. It is read-only for
// rules; the walker owns it for the duration of one Walk call.
type Context struct {
	// Config is the configuration of the running walk.
	Config *Config

	// Source is the absolute path of the walk root.
	Source string
}

// Rule is a named predicate+action pair evaluated against one item.
//
// A rule is immutable once constructed and holds no mutable internal state.
// It may close over external resources, such as a subprocess invocation; a
// rule that temporarily mutates process-wide state (working directory,
// environment) must restore it before returning.
type Rule struct {
	// Name identifies the rule in logs and errors. Uniqueness is not
	// enforced but makes diagnostics usable.
	Name string

	// Description optionally documents the rule.
	Description string

	// OnlyFor restricts the rule to one item type. The zero value
	// (AnyItem) applies the rule to every type.
	OnlyFor ItemType

	// Matches reports whether the rule should run on an item. It should
	// be cheap; expensive work belongs in Action. A nil Matches always
	// matches.
	Matches func(item Item, ctx *Context) bool

	// Action decides what to do with a matched item. A nil Action is
	// treated as IncludeItem.
	Action func(item Item, ctx *Context) (RuleResult, error)
}

// Config is the immutable input to a single Walk invocation. The walker
// borrows it read-only; it is never mutated and may be reused across calls.
type Config struct {
	// Rules are evaluated in order; the first rule yielding a definitive
	// result wins.
	Rules []Rule

	// FollowSymlinks makes the walker resolve and descend into symbolic
	// links. When false, symlinks are recorded as leaf entries and their
	// targets are never resolved.
	FollowSymlinks bool

	// DropEmptyDirs omits directories whose subtree contributed no
	// entries. The walk root is never dropped.
	DropEmptyDirs bool

	// Logger receives traversal debug output. Nil disables logging.
	Logger *zap.Logger
}

// NewConfig returns a configuration with the given rules and both traversal
// flags disabled.
func NewConfig(rules []Rule) *Config {
	return &Config{Rules: rules}
}

// resultKind discriminates the RuleResult variants.
type resultKind int

const (
	resultSkipRule resultKind = iota
	resultInclude
	resultExclude
	resultMap
)

// RuleResult is the outcome of a rule's action: include, exclude, map to
// another output path, or skip the rule entirely. Construct values with
// IncludeItem, ExcludeItem, MapItem and SkipRule.
type RuleResult struct {
	kind   resultKind
	mapped string
}

// IncludeItem keeps the item as-is. This is a definitive decision: no
// further rules run for the item.
func IncludeItem() RuleResult {
	return RuleResult{kind: resultInclude}
}

// ExcludeItem drops the item and, for a directory, its entire subtree.
func ExcludeItem() RuleResult {
	return RuleResult{kind: resultExclude}
}

// MapItem keeps the item but reports it under path instead of its real
// location. For a directory, descendants are rebased under the mapped path.
func MapItem(path string) RuleResult {
	return RuleResult{kind: resultMap, mapped: path}
}

// SkipRule signals that the action realized it does not apply to the item;
// evaluation continues with the next rule. In the general case the rule's
// Matches callback should be used instead.
func SkipRule() RuleResult {
	return RuleResult{kind: resultSkipRule}
}

// MappedPath returns the output path carried by a MapItem result, and
// whether the result is a mapping at all.
func (r RuleResult) MappedPath() (string, bool) {
	return r.mapped, r.kind == resultMap
}

func (r RuleResult) String() string {
	switch r.kind {
	case resultInclude:
		return "include"
	case resultExclude:
		return "exclude"
	case resultMap:
		return "map:" + r.mapped
	default:
		return "skip-rule"
	}
}

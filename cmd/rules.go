package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
	"github.com/woozymasta/pathrules"

	"github.com/ClementNerma/rebackup/walker"
)

// makeRules builds the ordered rule chain from CLI flags. Evaluation order:
// shell command filters, ignore file, include patterns, include-only
// whitelist, exclude patterns.
func makeRules() ([]walker.Rule, error) {
	var rules []walker.Rule

	rules = append(rules, makeShellFilterRules()...)

	if path := viper.GetString("ignore-file"); path != "" {
		rule, err := makeIgnoreFileRule(path)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	for _, pattern := range viper.GetStringSlice("include") {
		rule, err := makePatternRule("include-pattern", pattern, walker.IncludeItem())
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	if patterns := viper.GetStringSlice("include-only"); len(patterns) > 0 {
		rule, err := makeIncludeOnlyRule(patterns)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	for _, pattern := range viper.GetStringSlice("exclude") {
		rule, err := makePatternRule("exclude-pattern", pattern, walker.ExcludeItem())
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	return rules, nil
}

// makeShellFilterRules builds one rule per --filter-with command. The
// command runs through the configured shell with the item's path exposed in
// REBACKUP_ITEM and the source root in REBACKUP_SOURCE. A non-zero exit
// excludes the item; success leaves the decision to later rules.
func makeShellFilterRules() []walker.Rule {
	shell := viper.GetString("shell")
	headArgs := viper.GetStringSlice("shell-head-args")
	tailArgs := viper.GetStringSlice("shell-tail-args")
	if shell == "" {
		if runtime.GOOS == "windows" {
			shell, headArgs = "cmd.exe", []string{"/C"}
		} else {
			shell, headArgs = "sh", []string{"-c"}
		}
	}
	display := viper.GetBool("display-shell-output")

	var rules []walker.Rule
	for _, filter := range viper.GetStringSlice("filter-with") {
		filter := filter
		rules = append(rules, walker.Rule{
			Name:        "shell-filter",
			Description: "command: " + filter,
			Action: func(item walker.Item, ctx *walker.Context) (walker.RuleResult, error) {
				args := append(append([]string{}, headArgs...), filter)
				args = append(args, tailArgs...)

				cmd := exec.Command(shell, args...)
				cmd.Env = append(os.Environ(),
					"REBACKUP_ITEM="+item.Path,
					"REBACKUP_SOURCE="+ctx.Source,
				)
				if display {
					cmd.Stdout = os.Stdout
					cmd.Stderr = os.Stderr
				}

				if err := cmd.Run(); err != nil {
					var exitErr *exec.ExitError
					if errors.As(err, &exitErr) {
						return walker.ExcludeItem(), nil
					}
					return walker.RuleResult{}, err
				}
				return walker.SkipRule(), nil
			},
		})
	}
	return rules
}

// makePatternRule builds a rule that yields result when a single
// gitignore-style pattern matches the item's source-relative path.
func makePatternRule(name, pattern string, result walker.RuleResult) (walker.Rule, error) {
	matcher, err := pathrules.NewMatcher(
		[]pathrules.Rule{{Pattern: pattern, Action: pathrules.ActionExclude}},
		pathrules.MatcherOptions{},
	)
	if err != nil {
		return walker.Rule{}, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	return walker.Rule{
		Name:        name,
		Description: "pattern: " + pattern,
		Matches: func(item walker.Item, ctx *walker.Context) bool {
			return matcher.Decide(sourceRel(ctx.Source, item), item.Type == walker.Directory).Matched
		},
		Action: func(item walker.Item, ctx *walker.Context) (walker.RuleResult, error) {
			return result, nil
		},
	}, nil
}

// makeIncludeOnlyRule builds a whitelist rule from --include-only patterns:
// items matching none of them are excluded. Matching items fall through, so a
// later exclude pattern can still drop them.
func makeIncludeOnlyRule(patterns []string) (walker.Rule, error) {
	whitelist := make([]pathrules.Rule, 0, len(patterns))
	for _, pattern := range patterns {
		whitelist = append(whitelist, pathrules.Rule{Pattern: pattern, Action: pathrules.ActionInclude})
	}
	matcher, err := pathrules.NewMatcher(whitelist, pathrules.MatcherOptions{
		DefaultAction: pathrules.ActionExclude,
	})
	if err != nil {
		return walker.Rule{}, fmt.Errorf("invalid include-only patterns %v: %w", patterns, err)
	}

	return walker.Rule{
		Name:        "include-only-pattern",
		Description: "whitelist: " + strings.Join(patterns, ", "),
		Action: func(item walker.Item, ctx *walker.Context) (walker.RuleResult, error) {
			if matcher.Included(sourceRel(ctx.Source, item), item.Type == walker.Directory) {
				return walker.SkipRule(), nil
			}
			return walker.ExcludeItem(), nil
		},
	}, nil
}

// makeIgnoreFileRule builds a rule from a gitignore-style rules file.
// Matching items are excluded unless a negated pattern re-includes them.
func makeIgnoreFileRule(path string) (walker.Rule, error) {
	fileRules, err := pathrules.LoadRulesFile(path)
	if err != nil {
		return walker.Rule{}, fmt.Errorf("failed to load ignore file %s: %w", path, err)
	}
	matcher, err := pathrules.NewMatcher(fileRules, pathrules.MatcherOptions{
		DefaultAction: pathrules.ActionInclude,
	})
	if err != nil {
		return walker.Rule{}, fmt.Errorf("invalid ignore file %s: %w", path, err)
	}

	return walker.Rule{
		Name:        "ignore-file",
		Description: "rules from " + path,
		Matches: func(item walker.Item, ctx *walker.Context) bool {
			return matcher.Decide(sourceRel(ctx.Source, item), item.Type == walker.Directory).Matched
		},
		Action: func(item walker.Item, ctx *walker.Context) (walker.RuleResult, error) {
			if matcher.Included(sourceRel(ctx.Source, item), item.Type == walker.Directory) {
				return walker.IncludeItem(), nil
			}
			return walker.ExcludeItem(), nil
		},
	}, nil
}

// sourceRel returns the item's path relative to the walk source, in slash
// form, for pattern matching.
func sourceRel(source string, item walker.Item) string {
	rel, err := filepath.Rel(source, item.Path)
	if err != nil {
		return filepath.ToSlash(item.Path)
	}
	return filepath.ToSlash(rel)
}

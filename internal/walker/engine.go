package walker

import (
	"go.uber.org/zap"
)

// resolveRules runs the ordered rule chain on one item and returns the final
// decision.
//
// Rules whose OnlyFor does not match the item's type, or whose Matches
// predicate declines, are skipped. The first action that returns anything
// other than SkipRule is definitive: later rules are never consulted for the
// item. When no rule decides, the default is IncludeItem.
//
// An action error aborts the walk, wrapped in a *RuleError carrying the rule
// name and the item path.
func resolveRules(item Item, rules []Rule, ctx *Context, logger *zap.Logger) (RuleResult, error) {
	for i := range rules {
		rule := &rules[i]

		if rule.OnlyFor != AnyItem && rule.OnlyFor != item.Type {
			continue
		}
		if rule.Matches != nil && !rule.Matches(item, ctx) {
			continue
		}

		res := IncludeItem()
		if rule.Action != nil {
			var err error
			res, err = rule.Action(item, ctx)
			if err != nil {
				return RuleResult{}, &RuleError{Rule: rule.Name, Path: item.Path, Err: err}
			}
		}

		logger.Debug("rule matched",
			zap.String("rule", rule.Name),
			zap.String("path", item.Path),
			zap.Stringer("result", res),
		)

		if res.kind == resultSkipRule {
			continue
		}
		return res, nil
	}

	return IncludeItem(), nil
}

package walker

import (
	"fmt"
)

// RuleError reports a rule action that failed during a walk. The whole walk
// aborts; no partial listing is returned.
type RuleError struct {
	// Rule is the name of the failed rule.
	Rule string

	// Path is the item the rule was running on.
	Path string

	// Err is the underlying failure.
	Err error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("rule %q failed on %s: %v", e.Rule, e.Path, e.Err)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}

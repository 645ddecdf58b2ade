package walker

// visitTracker records canonical paths already processed by one walk
// invocation. It bounds traversal to the number of distinct filesystem
// objects reachable, even through symlink cycles.
//
// Trackers are scoped to a single Walk call and never shared, so repeated
// walks stay independent.
type visitTracker map[string]struct{}

// markAndCheck reports whether the canonical path was already visited, and
// marks it otherwise.
func (t visitTracker) markAndCheck(canonical string) bool {
	if _, seen := t[canonical]; seen {
		return true
	}
	t[canonical] = struct{}{}
	return false
}

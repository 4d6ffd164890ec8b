package rule

import (
	"fmt"
	"strings"
)

// satisfies applies any-of / all-of semantics over the extracted call set.
// Duplicates in calls are harmless; only membership matters.
func satisfies(calls, enforced []string, requireAll bool) bool {
	if requireAll {
		for _, want := range enforced {
			if !anyMatch(calls, want) {
				return false
			}
		}
		return true
	}
	for _, want := range enforced {
		if anyMatch(calls, want) {
			return true
		}
	}
	return false
}

func anyMatch(calls []string, enforced string) bool {
	for _, call := range calls {
		if nameMatches(call, enforced) {
			return true
		}
	}
	return false
}

// violationMessage renders the report text for a failed site. The full
// enforced list is always interpolated so the reader sees what was expected.
func violationMessage(enforced []string, requireAll bool) string {
	names := strings.Join(enforced, ", ")
	if requireAll {
		return fmt.Sprintf("missing required calls: expected direct calls to all of: %s", names)
	}
	return fmt.Sprintf("missing required call: expected a direct call to one of: %s", names)
}

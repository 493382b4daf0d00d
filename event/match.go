package event

import "strings"

// Match checks if an event name matches a subscription pattern.
//
// Supported patterns:
//
//	"lead.created"  → exact match
//	"lead.*"        → matches lead.created, lead.assigned, etc. (single segment wildcard)
//	"*"             → matches everything
func Match(pattern string, name Name) bool {
	if pattern == Wildcard {
		return true
	}

	if pattern == string(name) {
		return true
	}

	patternParts := strings.Split(pattern, ".")
	nameParts := strings.Split(string(name), ".")

	if len(patternParts) != len(nameParts) {
		return false
	}

	for i, pp := range patternParts {
		if pp == Wildcard {
			continue
		}
		if pp != nameParts[i] {
			return false
		}
	}

	return true
}

// MatchAny reports whether any of the given patterns matches the event name.
func MatchAny(patterns []string, name Name) bool {
	for _, p := range patterns {
		if Match(p, name) {
			return true
		}
	}
	return false
}

// ValidPattern reports whether a subscription pattern is acceptable for a
// webhook: the wildcard, a vocabulary event name, or a segment glob that
// matches at least one vocabulary event.
func ValidPattern(pattern string) bool {
	if pattern == Wildcard {
		return true
	}
	for _, n := range All() {
		if Match(pattern, n) {
			return true
		}
	}
	return false
}

package matching

import "strings"

// MatchHeaderPattern checks a header value against a pattern.
// Supports exact values plus simple prefix (value*), suffix (*value) and
// contains (*value*) wildcards.
func MatchHeaderPattern(pattern, actual string) bool {
	if actual == "" {
		return false
	}

	if !strings.Contains(pattern, "*") {
		return actual == pattern
	}

	switch {
	case strings.HasPrefix(pattern, "*") && strings.HasSuffix(pattern, "*"):
		return strings.Contains(actual, strings.Trim(pattern, "*"))
	case strings.HasSuffix(pattern, "*"):
		return strings.HasPrefix(actual, strings.TrimSuffix(pattern, "*"))
	case strings.HasPrefix(pattern, "*"):
		return strings.HasSuffix(actual, strings.TrimPrefix(pattern, "*"))
	}

	return false
}

// Package match holds the fuzzy name and plan resolution engines shared by
// every attribution report. Resolution is a pure function of its inputs;
// the only internal state is an optional memoization cache.
package match

import "strings"

// NormalizeName canonicalizes a free-text person name for comparison:
// internal whitespace collapses to single spaces, a "Last, First" form is
// rewritten to "first last", and the result is lower-cased. Empty input
// normalizes to "" and must never be treated as a match by callers.
func NormalizeName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return ""
	}
	if i := strings.Index(name, ","); i >= 0 {
		last := strings.TrimSpace(name[:i])
		first := strings.TrimSpace(name[i+1:])
		name = strings.TrimSpace(first + " " + last)
	}
	return strings.ToLower(name)
}

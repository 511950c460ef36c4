// Package orchestrate implements the multi-database orchestrator:
// enumerate, glob-filter, bounded-concurrency fan-out, per-database
// failure isolation and aggregation (spec.md §4.8).
package orchestrate

// GlobMatch reports whether s matches glob pattern p, where `*` matches
// zero or more characters, `?` matches exactly one character, and any
// other character matches itself literally. Implemented as a two-pointer
// matcher with a backtrack record for the most recent `*`, coalescing
// consecutive stars implicitly (a run of stars behaves as one).
//
// Equivalent, for all ASCII p and s, to matching the regex formed by
// replacing `*` with `.*` and `?` with `.`, anchored at both ends.
func GlobMatch(pattern, s string) bool {
	var pi, si int
	starIdx, matchIdx := -1, 0

	for si < len(s) {
		switch {
		case pi < len(pattern) && (pattern[pi] == '?' || pattern[pi] == s[si]):
			pi++
			si++
		case pi < len(pattern) && pattern[pi] == '*':
			starIdx = pi
			matchIdx = si
			pi++
		case starIdx != -1:
			pi = starIdx + 1
			matchIdx++
			si = matchIdx
		default:
			return false
		}
	}

	for pi < len(pattern) && pattern[pi] == '*' {
		pi++
	}
	return pi == len(pattern)
}

// Package analyzer contains the heuristic scorers that inspect the parsed
// document. Analyzers are stateless and must not fail: DOM absence is a
// normal page condition, so the worst outcome of any analyzer is an empty
// result.
package analyzer

// clampScore bounds a percentage score to [0, 100].
func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

package taxonomy

import "strings"

// ratio implements the same longest-common-substring-based
// similarity measure the original matcher used (Python's
// difflib.SequenceMatcher.ratio): 2*M / T where M is the length of
// matching blocks found by recursively taking the longest common
// substring (see matchingBlockLength) and T is the combined
// length of both strings. No third-party fuzzy-matching library
// exists anywhere in the reference corpus, so this is hand-rolled
// standard-library code rather than an adapted dependency.
func ratio(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" && b == "" {
		return 1
	}
	total := len(a) + len(b)
	if total == 0 {
		return 0
	}
	matches := matchingBlockLength(a, b)
	return 2 * float64(matches) / float64(total)
}

// matchingBlockLength greedily finds the longest common substring,
// then recurses on the left and right remainders, summing lengths —
// the same divide-and-conquer approach SequenceMatcher uses internally.
func matchingBlockLength(a, b string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	start1, start2, length := longestCommonSubstring(a, b)
	if length == 0 {
		return 0
	}
	left := matchingBlockLength(a[:start1], b[:start2])
	right := matchingBlockLength(a[start1+length:], b[start2+length:])
	return left + length + right
}

func longestCommonSubstring(a, b string) (startA, startB, length int) {
	dp := make([]int, len(b)+1)
	prev := make([]int, len(b)+1)
	best, bestA, bestB := 0, 0, 0

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				dp[j] = prev[j-1] + 1
				if dp[j] > best {
					best = dp[j]
					bestA = i - best
					bestB = j - best
				}
			} else {
				dp[j] = 0
			}
		}
		prev, dp = dp, prev
	}
	return bestA, bestB, best
}

// BestMatch returns the candidate with the highest ratio against
// query, provided it meets cutoff. ok is false when no candidate
// reaches cutoff.
func BestMatch(query string, candidates []string, cutoff float64) (match string, ok bool) {
	bestScore := 0.0
	for _, candidate := range candidates {
		score := ratio(query, candidate)
		if score > bestScore {
			bestScore = score
			match = candidate
		}
	}
	if bestScore < cutoff {
		return "", false
	}
	return match, true
}

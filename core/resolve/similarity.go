package resolve

import "strings"

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// levenshteinDistance computes edit distance with a single-row DP.
// Inputs are normalized queries, so byte positions are character positions.
func levenshteinDistance(a, b string) int {
	if a == b {
		return 0
	}
	if a == "" {
		return len(b)
	}
	if b == "" {
		return len(a)
	}

	dp := make([]int, len(b)+1)
	for j := range dp {
		dp[j] = j
	}

	for i := 1; i <= len(a); i++ {
		prev := dp[0]
		dp[0] = i
		for j := 1; j <= len(b); j++ {
			temp := dp[j]
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			dp[j] = min(dp[j]+1, dp[j-1]+1, prev+cost)
			prev = temp
		}
	}
	return dp[len(b)]
}

// stringSimilarity is normalized edit-distance similarity in [0,1].
func stringSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	maxLen := max(len(a), len(b))
	return clamp01(1 - float64(levenshteinDistance(a, b))/float64(maxLen))
}

// tokenJaccard is intersection-over-union of two token sets.
func tokenJaccard(left, right []string) float64 {
	a := make(map[string]bool, len(left))
	for _, t := range left {
		a[t] = true
	}
	b := make(map[string]bool, len(right))
	for _, t := range right {
		b[t] = true
	}
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	intersection := 0
	for t := range a {
		if b[t] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// scoreNormalized blends edit-distance similarity (0.65) with token-set
// Jaccard similarity (0.35), plus a small bonus for strong prefix matches
// when the strings aren't tiny. Both arguments must already be normalized.
func scoreNormalized(query, candidate string) float64 {
	if query == "" || candidate == "" {
		return 0
	}
	if query == candidate {
		return 1
	}

	score := 0.65*stringSimilarity(query, candidate) +
		0.35*tokenJaccard(strings.Fields(query), strings.Fields(candidate))

	if len(query) >= 4 && strings.HasPrefix(candidate, query) {
		score += 0.08
	} else if len(candidate) >= 4 && strings.HasPrefix(query, candidate) {
		score += 0.04
	}

	return clamp01(score)
}

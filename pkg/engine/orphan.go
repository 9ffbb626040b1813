package engine

import (
	"sort"

	"sapauth/pkg/schema"
)

// Fuzzy match thresholds
const (
	fuzzyMatchThreshold = 0.85
	fuzzyAmbiguityGap   = 0.10
	suggestionThreshold = 0.6
)

// levenshteinDistance computes the Levenshtein edit distance between two strings.
func levenshteinDistance(a, b string) int {
	aRunes := []rune(a)
	bRunes := []rune(b)
	aLen := len(aRunes)
	bLen := len(bRunes)

	if aLen == 0 {
		return bLen
	}
	if bLen == 0 {
		return aLen
	}

	// Two rows instead of a full matrix; iterate the shorter string in the inner loop.
	if aLen > bLen {
		aRunes, bRunes = bRunes, aRunes
		aLen, bLen = bLen, aLen
	}

	prevRow := make([]int, aLen+1)
	currRow := make([]int, aLen+1)
	for i := 0; i <= aLen; i++ {
		prevRow[i] = i
	}

	for j := 1; j <= bLen; j++ {
		currRow[0] = j
		for i := 1; i <= aLen; i++ {
			cost := 1
			if aRunes[i-1] == bRunes[j-1] {
				cost = 0
			}
			currRow[i] = min(prevRow[i]+1, currRow[i-1]+1, prevRow[i-1]+cost)
		}
		prevRow, currRow = currRow, prevRow
	}

	return prevRow[aLen]
}

// similarity returns 1 - distance/maxLen over case- and accent-folded input,
// between 0.0 (completely different) and 1.0 (identical).
func similarity(a, b string) float64 {
	a, b = schema.FoldKey(a), schema.FoldKey(b)
	if a == b {
		return 1.0
	}
	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshteinDistance(a, b))/float64(maxLen)
}

type scoredCandidate struct {
	value string
	score float64
}

func rank(target string, candidates []string, threshold float64) []scoredCandidate {
	var scored []scoredCandidate
	for _, c := range candidates {
		if score := similarity(target, c); score >= threshold {
			scored = append(scored, scoredCandidate{value: c, score: score})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	return scored
}

// closestMatches returns up to limit candidates scoring at least threshold.
func closestMatches(target string, candidates []string, threshold float64, limit int) []string {
	scored := rank(target, candidates, threshold)
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	out := make([]string, 0, len(scored))
	for _, s := range scored {
		out = append(out, s.value)
	}
	return out
}

// bestMatch returns the single clear winner among candidates, or false when
// nothing scores fuzzyMatchThreshold or the top two are within fuzzyAmbiguityGap.
func bestMatch(target string, candidates []string) (string, bool) {
	scored := rank(target, candidates, fuzzyMatchThreshold)
	switch {
	case len(scored) == 0:
		return "", false
	case len(scored) == 1:
		return scored[0].value, true
	case scored[0].score-scored[1].score >= fuzzyAmbiguityGap:
		return scored[0].value, true
	}
	return "", false
}

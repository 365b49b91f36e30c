package retrieval

import "strings"

// Jaccard computes the Jaccard index of two token sets treated as unordered
// unique-token sets. An empty union scores 0; the denominator is floored at
// 1 so the division is always defined. Symmetric by construction.
func Jaccard(a, b TokenSet) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[t] = struct{}{}
	}

	intersection := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union < 1 {
		union = 1
	}
	return float64(intersection) / float64(union)
}

// scoreCanonical runs the exact/substring/Jaccard cascade on precomputed
// canonical strings and token sets. Exact canonical equality wins outright;
// one string containing the other as a contiguous substring scores a flat
// 0.9 regardless of the token overlap.
func scoreCanonical(canonA string, tokensA TokenSet, canonB string, tokensB TokenSet) float64 {
	if canonA == "" || canonB == "" {
		return 0
	}
	if canonA == canonB {
		return 1.0
	}
	if strings.Contains(canonA, canonB) || strings.Contains(canonB, canonA) {
		return 0.9
	}
	return Jaccard(tokensA, tokensB)
}

// ScoreStrings scores two raw strings with the full cascade.
func ScoreStrings(a, b string) float64 {
	return scoreCanonical(Normalize(a), Tokenize(a), Normalize(b), Tokenize(b))
}

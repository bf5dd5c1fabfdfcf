package metadata

import "github.com/osamaafana/BookScaner/internal/fingerprint"

// Similarity scores how close two strings are after normalization,
// from 0 (no match) to 1 (equivalent). Used to rank catalog search
// candidates against the OCR'd title and author.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	na := fingerprint.NormalizeText(a)
	nb := fingerprint.NormalizeText(b)
	if na == nb {
		return 1
	}

	ra := []rune(na)
	rb := []rune(nb)
	maxLen := max(len(ra), len(rb))
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshteinDistance(ra, rb))/float64(maxLen)
}

func levenshteinDistance(s1, s2 []rune) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	matrix := make([][]int, len(s1)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(s2)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}

	for i := 1; i <= len(s1); i++ {
		for j := 1; j <= len(s2); j++ {
			cost := 0
			if s1[i-1] != s2[j-1] {
				cost = 1
			}

			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(s1)][len(s2)]
}

package cache

// Similarity scores two normalized URLs in [0, 1] from their edit distance:
// (maxLen - distance) / maxLen, with 1.0 for two empty strings. Lengths are
// counted in runes.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}

	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 1.0
	}

	dist := levenshtein(ra, rb)
	return float64(maxLen-dist) / float64(maxLen)
}

// EditDistance returns the Levenshtein distance between a and b in runes.
func EditDistance(a, b string) int {
	return levenshtein([]rune(a), []rune(b))
}

// levenshtein computes unit-cost insert/delete/substitute distance with a
// single DP row sized on the shorter input.
func levenshtein(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	if len(b) == 0 {
		return len(a)
	}

	row := make([]int, len(b)+1)
	for j := range row {
		row[j] = j
	}

	for i := 1; i <= len(a); i++ {
		diag := row[0]
		row[0] = i
		for j := 1; j <= len(b); j++ {
			above := row[j]
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			row[j] = min(row[j]+1, row[j-1]+1, diag+cost)
			diag = above
		}
	}

	return row[len(b)]
}

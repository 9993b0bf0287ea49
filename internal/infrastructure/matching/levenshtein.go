package matching

// Levenshtein computes the edit distance between two strings, counting
// insertions, deletions and substitutions at cost 1 each. Comparison is
// rune-based so a single umlaut counts as one edit.
func Levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	// Keep the shorter string on the row axis.
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}

	prev := make([]int, len(ra)+1)
	curr := make([]int, len(ra)+1)
	for i := range prev {
		prev[i] = i
	}
	for j := 1; j <= len(rb); j++ {
		curr[0] = j
		for i := 1; i <= len(ra); i++ {
			cost := 0
			if ra[i-1] != rb[j-1] {
				cost = 1
			}
			curr[i] = min(prev[i]+1, curr[i-1]+1, prev[i-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(ra)]
}

// Similarity is the normalized score 1 - distance/longerLength. Two empty
// strings are defined as maximally similar.
func Similarity(a, b string) float64 {
	la := len([]rune(a))
	lb := len([]rune(b))
	if la == 0 && lb == 0 {
		return 1.0
	}
	return 1.0 - float64(Levenshtein(a, b))/float64(max(la, lb))
}

package cache

import (
	"runtime"
	"sync"
)

// DefaultParallelThreshold is the index size from which fuzzy scoring is
// spread over goroutines.
const DefaultParallelThreshold = 512

// scoreEntries computes Similarity(normalizedURL, e.NormalizedURL) for every
// entry. Large indexes are scored in parallel chunks; each worker writes
// only its own slots, so the result is identical to the sequential scan.
func scoreEntries(entries []Entry, normalizedURL string, parallelThreshold int) []float64 {
	scores := make([]float64, len(entries))
	if parallelThreshold <= 0 || len(entries) < parallelThreshold {
		for i, e := range entries {
			scores[i] = Similarity(normalizedURL, e.NormalizedURL)
		}
		return scores
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > len(entries) {
		workers = len(entries)
	}
	chunk := (len(entries) + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < len(entries); start += chunk {
		end := start + chunk
		if end > len(entries) {
			end = len(entries)
		}

		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				scores[i] = Similarity(normalizedURL, entries[i].NormalizedURL)
			}
		}(start, end)
	}
	wg.Wait()

	return scores
}

// bestMatch returns the index of the highest-scoring entry at or above
// threshold, or -1. Ties keep the first entry in index order.
func bestMatch(entries []Entry, normalizedURL string, threshold float64, parallelThreshold int) (int, float64) {
	scores := scoreEntries(entries, normalizedURL, parallelThreshold)

	best, bestScore := -1, -1.0
	for i, score := range scores {
		if score >= threshold && score > bestScore {
			best, bestScore = i, score
		}
	}

	if best < 0 {
		return -1, 0
	}
	return best, bestScore
}

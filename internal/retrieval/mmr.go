package retrieval

import (
	"math"

	"github.com/nelfi/navigator/internal/corpus"
)

// selectMMR greedily picks k candidates maximizing
//
//	lambda * sim(query, c) - (1 - lambda) * max sim(c, selected)
//
// Candidates arrive ordered by query similarity, so the first pick is
// always the nearest neighbor; later picks trade relevance for distance
// from what was already chosen.
func selectMMR(candidates []corpus.Candidate, k int, lambda float64) []corpus.Candidate {
	if k >= len(candidates) {
		return candidates
	}

	selected := make([]corpus.Candidate, 0, k)
	remaining := make([]corpus.Candidate, len(candidates))
	copy(remaining, candidates)

	for len(selected) < k && len(remaining) > 0 {
		bestIdx := 0
		bestScore := math.Inf(-1)

		for i, c := range remaining {
			redundancy := 0.0
			for _, s := range selected {
				if sim := cosineSimilarity(c.Embedding, s.Embedding); sim > redundancy {
					redundancy = sim
				}
			}
			score := lambda*c.Similarity - (1-lambda)*redundancy
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}

		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return selected
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched or zero-length vectors score 0, which makes them maximally
// "diverse" and harmless to the selection.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

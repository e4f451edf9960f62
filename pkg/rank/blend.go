package rank

import "sort"

// Final blend weights. When the semantic stage degrades, the metadata weights
// are re-normalized to sum to 1.
const (
	finalSemanticWeight  = 0.45
	finalAuthorityWeight = 0.20
	finalRecencyWeight   = 0.15
	finalTrustWeight     = 0.10
	finalPositionWeight  = 0.10

	metadataWeightSum = finalAuthorityWeight + finalRecencyWeight +
		finalTrustWeight + finalPositionWeight
)

// Ranked is a scored hit with its semantic and final scores.
type Ranked struct {
	Scored
	Semantic float64
	Final    float64
}

// Finalize blends the semantic scores into the final ranking and keeps the top
// limit hits. semantic must be parallel to hits; pass degraded=true when the
// re-rank stage failed, which zeroes semantic and re-normalizes the metadata
// weights. Ties sort by semantic desc, then by the earlier hit.
func Finalize(hits []Scored, semantic []float64, degraded bool, limit int) []Ranked {
	ranked := make([]Ranked, len(hits))
	for i, h := range hits {
		r := Ranked{Scored: h}
		if !degraded {
			r.Semantic = semantic[i]
		}
		r.Final = finalScore(r.Meta, r.Semantic, degraded)
		ranked[i] = r
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Final != b.Final {
			return a.Final > b.Final
		}
		if a.Semantic != b.Semantic {
			return a.Semantic > b.Semantic
		}
		return a.Hit.Arrival < b.Hit.Arrival
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func finalScore(m MetaScores, semantic float64, degraded bool) float64 {
	metadata := finalAuthorityWeight*m.Authority +
		finalRecencyWeight*m.Recency +
		finalTrustWeight*m.EngineTrust +
		finalPositionWeight*m.Position

	if degraded {
		return metadata / metadataWeightSum
	}
	return finalSemanticWeight*semantic + metadata
}

package rank

import (
	"math"
	"sort"
	"time"

	"github.com/kadirpekel/sift/pkg/normalize"
)

// CoarseK is how many hits survive the metadata pass into semantic re-ranking.
const CoarseK = 12

const recencyHalfLifeDays = 365.0

// recencyAbsent is the score for hits without a published date. Undated pages
// are usually evergreen rather than fresh.
const recencyAbsent = 0.30

// Coarse-pass blend weights, selection only.
const (
	coarseAuthorityWeight = 0.35
	coarseRecencyWeight   = 0.20
	coarseTrustWeight     = 0.25
	coarsePositionWeight  = 0.20
)

// MetaScores are the four metadata sub-scores, each in [0,1].
type MetaScores struct {
	Authority   float64
	Recency     float64
	EngineTrust float64
	Position    float64
}

// Scored pairs a canonical hit with its metadata scores.
type Scored struct {
	Hit    normalize.CanonicalHit
	Meta   MetaScores
	Coarse float64
}

// Score computes the metadata sub-scores for one hit. Engine trust takes the
// maximum across merged engines: a hit found by several engines is at least as
// trustworthy as its best source.
func (t *Table) Score(hit normalize.CanonicalHit, now time.Time) MetaScores {
	trust := t.EngineTrust(hit.Engine)
	for _, engine := range hit.MergedEngines {
		if s := t.EngineTrust(engine); s > trust {
			trust = s
		}
	}

	return MetaScores{
		Authority:   t.Authority(hit.Domain),
		Recency:     recencyScore(hit.PublishedDate, now),
		EngineTrust: trust,
		Position:    positionScore(hit.Position),
	}
}

// recencyScore applies a 365-day half-life decay. Missing dates score a flat
// default; future dates clamp to age zero.
func recencyScore(published *time.Time, now time.Time) float64 {
	if published == nil {
		return recencyAbsent
	}
	ageDays := now.Sub(*published).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return clamp01(math.Pow(0.5, ageDays/recencyHalfLifeDays))
}

// positionScore decays with the 1-based rank within the hit's engine.
func positionScore(position int) float64 {
	if position < 1 {
		position = 1
	}
	return clamp01(1 / (1 + math.Log(float64(position))))
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

func coarseScore(m MetaScores) float64 {
	return coarseAuthorityWeight*m.Authority +
		coarseRecencyWeight*m.Recency +
		coarseTrustWeight*m.EngineTrust +
		coarsePositionWeight*m.Position
}

// CoarseSelect scores every hit and keeps the top CoarseK by coarse score.
// Ties go to the earlier hit in the merged backend order, then to the
// lexicographically smaller canonical URL.
func (t *Table) CoarseSelect(hits []normalize.CanonicalHit, now time.Time) []Scored {
	scored := make([]Scored, len(hits))
	for i, h := range hits {
		meta := t.Score(h, now)
		scored[i] = Scored{Hit: h, Meta: meta, Coarse: coarseScore(meta)}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Coarse != b.Coarse {
			return a.Coarse > b.Coarse
		}
		if a.Hit.Arrival != b.Hit.Arrival {
			return a.Hit.Arrival < b.Hit.Arrival
		}
		return a.Hit.URL < b.Hit.URL
	})

	if len(scored) > CoarseK {
		scored = scored[:CoarseK]
	}
	return scored
}

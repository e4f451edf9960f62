// Package search orchestrates the ranking pipeline: cache lookup, intent
// classification, engine routing, backend fetch, normalization, scoring and
// response assembly.
package search

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	maxQueryLength = 512
	maxLimit       = 20
)

// Request is a validated search request.
type Request struct {
	Query      string
	Limit      int
	DomainHint string
}

// Validate trims the query, checks its length and clamps the limit. A zero
// limit takes defaultLimit. Violations return an InvalidRequest error with
// field-level detail.
func (r *Request) Validate(defaultLimit int) error {
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return NewError(KindInvalidRequest, "q: must not be empty")
	}
	if utf8.RuneCountInString(r.Query) > maxQueryLength {
		return NewError(KindInvalidRequest, fmt.Sprintf("q: must be at most %d characters", maxQueryLength))
	}

	if r.Limit == 0 {
		r.Limit = defaultLimit
	}
	if r.Limit < 1 {
		r.Limit = 1
	}
	if r.Limit > maxLimit {
		r.Limit = maxLimit
	}
	return nil
}

// ScoreBreakdown exposes the per-result sub-scores, each in [0,1].
type ScoreBreakdown struct {
	Semantic    float64 `json:"semantic"`
	Authority   float64 `json:"authority"`
	Recency     float64 `json:"recency"`
	EngineTrust float64 `json:"engine_trust"`
	Position    float64 `json:"position"`
}

// Result is a single ranked search result.
type Result struct {
	Title          string         `json:"title"`
	URL            string         `json:"url"`
	Snippet        string         `json:"snippet"`
	Domain         string         `json:"domain"`
	SourceEngine   string         `json:"source_engine"`
	PublishedDate  *string        `json:"published_date,omitempty"`
	FinalScore     float64        `json:"final_score"`
	ScoreBreakdown ScoreBreakdown `json:"score_breakdown"`
}

// Response is the /search response body. Cached entries store it with
// CacheHit=false; the hit path overwrites CacheHit and QueryTimeMS.
type Response struct {
	Query         string   `json:"query"`
	ExpandedQuery string   `json:"expanded_query"`
	Intent        string   `json:"intent"`
	CacheHit      bool     `json:"cache_hit"`
	QueryTimeMS   float64  `json:"query_time_ms"`
	Results       []Result `json:"results"`
}

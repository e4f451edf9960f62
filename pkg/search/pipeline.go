package search

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kadirpekel/sift/pkg/intent"
	"github.com/kadirpekel/sift/pkg/normalize"
	"github.com/kadirpekel/sift/pkg/observability"
	"github.com/kadirpekel/sift/pkg/rank"
	"github.com/kadirpekel/sift/pkg/searxng"
)

// Classifier labels and expands a raw query.
type Classifier interface {
	Classify(ctx context.Context, query string) (intent.ExpandedQuery, error)
}

// Fetcher retrieves raw hits from the meta-search backend.
type Fetcher interface {
	Search(ctx context.Context, query string, plan intent.EnginePlan) ([]searxng.RawHit, error)
}

// Cache stores serialized responses and usage counters.
type Cache interface {
	Get(ctx context.Context, fingerprint string) ([]byte, bool)
	Put(ctx context.Context, fingerprint string, payload []byte)
	RecordQuery(ctx context.Context, intent string, cacheHit bool, latency time.Duration)
}

// Pipeline runs a request through every stage. Concurrent requests with the
// same fingerprint share one execution.
type Pipeline struct {
	classifier Classifier
	fetcher    Fetcher
	reranker   rank.Reranker
	cache      Cache
	tables     *rank.Source
	metrics    *observability.Metrics

	group singleflight.Group
}

func NewPipeline(classifier Classifier, fetcher Fetcher, reranker rank.Reranker, cache Cache, tables *rank.Source, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		classifier: classifier,
		fetcher:    fetcher,
		reranker:   reranker,
		cache:      cache,
		tables:     tables,
		metrics:    metrics,
	}
}

// Search serves one validated request: cache hit, or a (possibly shared)
// full pipeline run. Usage counters are bumped once per request either way.
func (p *Pipeline) Search(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	fingerprint := Fingerprint(req.Query, req.Limit, req.DomainHint)

	if cached, ok := p.lookupCached(ctx, fingerprint); ok {
		cached.CacheHit = true
		cached.QueryTimeMS = msSince(start)
		p.record(ctx, cached.Intent, true, start)
		return cached, nil
	}

	shared, err, _ := p.group.Do(fingerprint, func() (interface{}, error) {
		return p.run(ctx, req, fingerprint)
	})
	if err != nil {
		p.metrics.RecordError(context.WithoutCancel(ctx))
		return nil, err
	}

	// The run result is shared across coalesced requests; copy before
	// stamping per-request fields.
	resp := *(shared.(*Response))
	resp.QueryTimeMS = msSince(start)
	p.record(ctx, resp.Intent, false, start)
	return &resp, nil
}

// lookupCached returns the deserialized cached response for the fingerprint.
// Corrupt entries count as a miss; the next write overwrites them.
func (p *Pipeline) lookupCached(ctx context.Context, fingerprint string) (*Response, bool) {
	payload, ok := p.cache.Get(ctx, fingerprint)
	if !ok {
		return nil, false
	}

	var resp Response
	if err := json.Unmarshal(payload, &resp); err != nil {
		slog.Warn("Discarding corrupt cache entry", "fingerprint", fingerprint, "error", err)
		p.metrics.RecordDegradation(ctx, "cache")
		return nil, false
	}
	return &resp, true
}

// run executes the full pipeline once per fingerprint and writes the result
// to the cache.
func (p *Pipeline) run(ctx context.Context, req Request, fingerprint string) (*Response, error) {
	expanded, err := p.classifier.Classify(ctx, req.Query)
	if err != nil {
		slog.Warn("classifier_degraded", "query", req.Query, "error", err)
		p.metrics.RecordDegradation(ctx, "classifier")
	}

	plan := intent.Route(expanded.Intent)
	hits, err := p.fetcher.Search(ctx, expanded.Text, plan)
	if err != nil {
		return nil, WrapError(KindBackendUnavailable, "backend fetch failed", err)
	}

	table := p.tables.Table()
	canonical := normalize.New(table.TrackingParams()).Normalize(hits)
	scored := table.CoarseSelect(canonical, time.Now())

	var semantic []float64
	degraded := false
	if len(scored) > 0 {
		semantic, err = p.reranker.Score(ctx, req.Query, rerankDocuments(scored))
		if err != nil {
			slog.Warn("reranker_degraded", "query", req.Query, "error", err)
			p.metrics.RecordDegradation(ctx, "reranker")
			degraded = true
		}
	}

	resp := buildResponse(req, expanded, rank.Finalize(scored, semantic, degraded, req.Limit))

	if payload, err := json.Marshal(resp); err == nil {
		// A disconnecting client must not abort a write that already started.
		p.cache.Put(context.WithoutCancel(ctx), fingerprint, payload)
	}

	return resp, nil
}

func (p *Pipeline) record(ctx context.Context, intentLabel string, cacheHit bool, start time.Time) {
	ctx = context.WithoutCancel(ctx)
	elapsed := time.Since(start)
	p.cache.RecordQuery(ctx, intentLabel, cacheHit, elapsed)
	p.metrics.RecordSearch(ctx, intentLabel, cacheHit, elapsed)
}

// rerankDocuments builds the text the cross-encoder sees for each candidate:
// title plus snippet, or the title alone when the snippet is empty.
func rerankDocuments(scored []rank.Scored) []string {
	docs := make([]string, len(scored))
	for i, s := range scored {
		docs[i] = s.Hit.Title
		if s.Hit.Snippet != "" {
			docs[i] += " " + s.Hit.Snippet
		}
	}
	return docs
}

func buildResponse(req Request, expanded intent.ExpandedQuery, ranked []rank.Ranked) *Response {
	results := make([]Result, len(ranked))
	for i, r := range ranked {
		var published *string
		if r.Hit.PublishedDate != nil {
			d := r.Hit.PublishedDate.Format("2006-01-02")
			published = &d
		}

		results[i] = Result{
			Title:         r.Hit.Title,
			URL:           r.Hit.URL,
			Snippet:       r.Hit.Snippet,
			Domain:        r.Hit.Domain,
			SourceEngine:  r.Hit.Engine,
			PublishedDate: published,
			FinalScore:    r.Final,
			ScoreBreakdown: ScoreBreakdown{
				Semantic:    r.Semantic,
				Authority:   r.Meta.Authority,
				Recency:     r.Meta.Recency,
				EngineTrust: r.Meta.EngineTrust,
				Position:    r.Meta.Position,
			},
		}
	}

	return &Response{
		Query:         req.Query,
		ExpandedQuery: expanded.Text,
		Intent:        string(expanded.Intent),
		Results:       results,
	}
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

package rank

import (
	"context"
	"errors"
)

// NoopReranker always fails to score, forcing the degraded metadata-only
// blend. Used when no cross-encoder sidecar is configured.
type NoopReranker struct{}

func (NoopReranker) Score(ctx context.Context, query string, documents []string) ([]float64, error) {
	return nil, errors.New("reranker not configured")
}

func (NoopReranker) Ready(ctx context.Context) bool {
	return false
}

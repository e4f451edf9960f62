package rank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"golang.org/x/sync/semaphore"

	"github.com/kadirpekel/sift/pkg/httpclient"
)

const (
	rerankTimeout      = 5 * time.Second
	rerankPingTimeout  = 2 * time.Second
	rerankDocMaxTokens = 512
)

// Reranker scores query/document pairs for semantic relevance.
type Reranker interface {
	// Score returns one relevance score in [0,1] per document, in order.
	Score(ctx context.Context, query string, documents []string) ([]float64, error)

	// Ready reports whether the model is loaded and reachable.
	Ready(ctx context.Context) bool
}

// HTTPReranker calls a cross-encoder inference sidecar over HTTP. Calls are
// bounded by a worker semaphore so inference cannot starve the request
// dispatcher.
type HTTPReranker struct {
	baseURL    string
	httpClient *httpclient.Client
	workers    *semaphore.Weighted
	encoding   *tiktoken.Tiktoken
}

// NewHTTPReranker builds a reranker against baseURL allowing at most workers
// concurrent inference calls.
func NewHTTPReranker(baseURL string, workers int) (*HTTPReranker, error) {
	if workers < 1 {
		return nil, fmt.Errorf("reranker workers must be >= 1, got %d", workers)
	}

	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}

	return &HTTPReranker{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: httpclient.New(
			httpclient.WithTimeout(rerankTimeout),
		),
		workers:  semaphore.NewWeighted(int64(workers)),
		encoding: encoding,
	}, nil
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type rerankResponse struct {
	Scores []float64 `json:"scores"`
}

// Score sends the pairs to the sidecar and maps the returned logits to [0,1]
// with a logistic transform. Documents are truncated to the model's token
// limit before sending.
func (r *HTTPReranker) Score(ctx context.Context, query string, documents []string) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, rerankTimeout)
	defer cancel()

	if err := r.workers.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("reranker queue wait: %w", err)
	}
	defer r.workers.Release(1)

	truncated := make([]string, len(documents))
	for i, doc := range documents {
		truncated[i] = r.truncate(doc)
	}

	payload, err := json.Marshal(rerankRequest{Query: query, Documents: truncated})
	if err != nil {
		return nil, fmt.Errorf("failed to encode rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/rerank", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read rerank response: %w", err)
	}

	var parsed rerankResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("malformed rerank response: %w", err)
	}
	if len(parsed.Scores) != len(documents) {
		return nil, fmt.Errorf("rerank returned %d scores for %d documents", len(parsed.Scores), len(documents))
	}

	scores := make([]float64, len(parsed.Scores))
	for i, logit := range parsed.Scores {
		scores[i] = logistic(logit)
	}
	return scores, nil
}

// Ready checks the sidecar's health endpoint.
func (r *HTTPReranker) Ready(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, rerankPingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := r.httpClient.Do(req)
	if resp != nil {
		resp.Body.Close()
	}
	return err == nil
}

func (r *HTTPReranker) truncate(doc string) string {
	tokens := r.encoding.Encode(doc, nil, nil)
	if len(tokens) <= rerankDocMaxTokens {
		return doc
	}
	return r.encoding.Decode(tokens[:rerankDocMaxTokens])
}

func logistic(logit float64) float64 {
	return 1 / (1 + math.Exp(-logit))
}

package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/sift/pkg/searxng"
)

func TestNormalizeExactDedupMergesEngines(t *testing.T) {
	n := New(defaultTrackingParams)

	hits := n.Normalize([]searxng.RawHit{
		{Title: "Attention Is All You Need", URL: "https://arxiv.org/abs/1706.03762?utm_source=feed", Engine: "arxiv", Position: 1, Arrival: 0},
		{Title: "Attention paper", URL: "https://ARXIV.org/abs/1706.03762", Engine: "semantic_scholar", Position: 1, Arrival: 1},
		{Title: "Something else entirely", URL: "https://example.com/post", Engine: "duckduckgo", Position: 1, Arrival: 2},
	})

	require.Len(t, hits, 2)
	assert.Equal(t, "https://arxiv.org/abs/1706.03762", hits[0].URL)
	assert.Equal(t, "arxiv", hits[0].Engine)
	assert.Equal(t, []string{"arxiv", "semantic_scholar"}, hits[0].MergedEngines)
	assert.Equal(t, 1, hits[0].Position)
	assert.Equal(t, 0, hits[0].Arrival)
	assert.Equal(t, "arxiv.org", hits[0].Domain)
}

func TestNormalizeDropsNearDuplicateTitles(t *testing.T) {
	n := New(defaultTrackingParams)

	hits := n.Normalize([]searxng.RawHit{
		{Title: "Attention Is All You Need", URL: "https://arxiv.org/abs/1706.03762", Engine: "arxiv", Arrival: 0},
		{Title: "Attention is all you need!", URL: "https://papers.example.com/attention", Engine: "duckduckgo", Arrival: 1},
		{Title: "A survey of convolutional networks", URL: "https://example.com/cnn", Engine: "duckduckgo", Arrival: 2},
	})

	require.Len(t, hits, 2)
	assert.Equal(t, "https://arxiv.org/abs/1706.03762", hits[0].URL)
	assert.Equal(t, "https://example.com/cnn", hits[1].URL)
}

func TestNormalizeKeepsDistinctTitles(t *testing.T) {
	n := New(defaultTrackingParams)

	hits := n.Normalize([]searxng.RawHit{
		{Title: "Go memory model", URL: "https://go.dev/ref/mem", Engine: "duckduckgo", Arrival: 0},
		{Title: "Rust ownership explained", URL: "https://example.com/rust", Engine: "duckduckgo", Arrival: 1},
	})

	assert.Len(t, hits, 2)
}

func TestNormalizeDropsUnparseableURL(t *testing.T) {
	n := New(defaultTrackingParams)

	hits := n.Normalize([]searxng.RawHit{
		{Title: "Bad", URL: "https://example.com/a%zz", Engine: "bing", Arrival: 0},
		{Title: "Good", URL: "https://example.com/b", Engine: "bing", Arrival: 1},
	})

	require.Len(t, hits, 1)
	assert.Equal(t, "Good", hits[0].Title)
}

func TestTitleSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"Attention Is All You Need", "attention is all you need", 1.0},
		{"Attention Is All You Need", "Attention is all we need", 0.8},
		{"completely different words here", "nothing shared at all", 0.0},
	}
	for _, tt := range tests {
		got := titleSimilarity(titleTokens(tt.a), titleTokens(tt.b))
		assert.InDelta(t, tt.want, got, 1e-9, "a=%q b=%q", tt.a, tt.b)
	}
}

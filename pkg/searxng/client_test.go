package searxng

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/sift/pkg/intent"
)

func TestSearchParsesHits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "transformer attention", r.URL.Query().Get("q"))
		assert.Equal(t, "arxiv,semantic_scholar,duckduckgo", r.URL.Query().Get("engines"))
		assert.Equal(t, "science", r.URL.Query().Get("categories"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[
			{"title":"Attention Is All You Need","url":"https://arxiv.org/abs/1706.03762","content":"We propose the Transformer","engine":"arxiv","publishedDate":"2017-06-12"},
			{"title":"Attention survey","url":"https://arxiv.org/abs/2021.00001","content":"","engine":"arxiv"},
			{"title":"Transformers explained","url":"https://example.com/post","content":"blog","engine":"duckduckgo","publishedDate":"2023-05"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	hits, err := c.Search(context.Background(), "transformer attention", intent.Route(intent.Research))
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, "Attention Is All You Need", hits[0].Title)
	assert.Equal(t, "arxiv", hits[0].Engine)
	require.NotNil(t, hits[0].PublishedDate)
	assert.Equal(t, 2017, hits[0].PublishedDate.Year())

	// Positions are per engine, 1-based.
	assert.Equal(t, 1, hits[0].Position)
	assert.Equal(t, 2, hits[1].Position)
	assert.Equal(t, 1, hits[2].Position)

	// Arrival follows the merged response order.
	assert.Equal(t, []int{0, 1, 2}, []int{hits[0].Arrival, hits[1].Arrival, hits[2].Arrival})
}

func TestSearchDropsInvalidHits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[
			{"title":"","url":"https://a.example/x","engine":"bing"},
			{"title":"No URL","url":"","engine":"bing"},
			{"title":"Relative","url":"/relative/path","engine":"bing"},
			{"title":"FTP","url":"ftp://files.example/x","engine":"bing"},
			{"title":"Kept","url":"https://a.example/ok","engine":"bing"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	hits, err := c.Search(context.Background(), "q", intent.Route(intent.General))
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Kept", hits[0].Title)
	assert.Equal(t, 1, hits[0].Position)
}

func TestSearchBackendErrorIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Search(context.Background(), "q", intent.Route(intent.General))
	require.Error(t, err)
}

func TestSearchMalformedBodyIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Search(context.Background(), "q", intent.Route(intent.General))
	require.Error(t, err)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		raw  string
		want string // empty means nil
	}{
		{"2023-04-05", "2023-04-05"},
		{"2023-04", "2023-04-01"},
		{"2023", "2023-01-01"},
		{"2023-04-05T10:30:00Z", "2023-04-05"},
		{"2023-04-05T10:30:00+02:00", "2023-04-05"},
		{"2023-04-05T10:30:00", "2023-04-05"},
		{"", ""},
		{"unknown", ""},
	}

	for _, tt := range tests {
		got := parseDate(tt.raw)
		if tt.want == "" {
			assert.Nil(t, got, "raw=%q", tt.raw)
			continue
		}
		require.NotNil(t, got, "raw=%q", tt.raw)
		assert.Equal(t, tt.want, got.Format("2006-01-02"), "raw=%q", tt.raw)
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	assert.NoError(t, c.Ping(context.Background()))

	srv.Close()
	assert.Error(t, c.Ping(context.Background()))
}

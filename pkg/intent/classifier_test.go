package intent

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func anthropicStub(t *testing.T, text string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.NotEmpty(t, r.Header.Get("anthropic-version"))

		w.Header().Set("Content-Type", "application/json")
		resp := `{"content":[{"type":"text","text":` + jsonString(text) + `}]}`
		_, _ = w.Write([]byte(resp))
	}))
}

func jsonString(s string) string {
	out := `"`
	for _, r := range s {
		switch r {
		case '"':
			out += `\"`
		case '\\':
			out += `\\`
		case '\n':
			out += `\n`
		default:
			out += string(r)
		}
	}
	return out + `"`
}

func TestClassifyStrictJSON(t *testing.T) {
	srv := anthropicStub(t, `{"intent":"research","expanded_query":"transformer attention mechanism self-attention"}`)
	defer srv.Close()

	c, err := NewClassifier("test-key", WithHost(srv.URL))
	require.NoError(t, err)

	eq, err := c.Classify(context.Background(), "transformer attention mechanism")
	require.NoError(t, err)
	assert.Equal(t, Research, eq.Intent)
	assert.Equal(t, "transformer attention mechanism self-attention", eq.Text)
}

func TestClassifyStripsSurroundingProse(t *testing.T) {
	srv := anthropicStub(t, "Here is the JSON:\n```json\n{\"intent\":\"code\",\"expanded_query\":\"golang context cancellation\"}\n```")
	defer srv.Close()

	c, err := NewClassifier("test-key", WithHost(srv.URL))
	require.NoError(t, err)

	eq, err := c.Classify(context.Background(), "go context")
	require.NoError(t, err)
	assert.Equal(t, Code, eq.Intent)
	assert.Equal(t, "golang context cancellation", eq.Text)
}

func TestClassifyUnknownIntentMapsToGeneral(t *testing.T) {
	srv := anthropicStub(t, `{"intent":"xyz","expanded_query":"anything"}`)
	defer srv.Close()

	c, err := NewClassifier("test-key", WithHost(srv.URL))
	require.NoError(t, err)

	eq, err := c.Classify(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, General, eq.Intent)
}

func TestClassifyBlankExpansionFallsBackToQuery(t *testing.T) {
	srv := anthropicStub(t, `{"intent":"news","expanded_query":"   "}`)
	defer srv.Close()

	c, err := NewClassifier("test-key", WithHost(srv.URL))
	require.NoError(t, err)

	eq, err := c.Classify(context.Background(), "election results")
	require.NoError(t, err)
	assert.Equal(t, News, eq.Intent)
	assert.Equal(t, "election results", eq.Text)
}

func TestClassifyServerErrorDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewClassifier("test-key", WithHost(srv.URL))
	require.NoError(t, err)

	eq, err := c.Classify(context.Background(), "my query")
	require.Error(t, err)
	assert.Equal(t, General, eq.Intent)
	assert.Equal(t, "my query", eq.Text)
}

func TestClassifyUnparseableBodyDegrades(t *testing.T) {
	srv := anthropicStub(t, "I could not produce JSON, sorry.")
	defer srv.Close()

	c, err := NewClassifier("test-key", WithHost(srv.URL))
	require.NoError(t, err)

	eq, err := c.Classify(context.Background(), "my query")
	require.Error(t, err)
	assert.Equal(t, General, eq.Intent)
	assert.Equal(t, "my query", eq.Text)
}

func TestClassifyTimeoutDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	c, err := NewClassifier("test-key", WithHost(srv.URL))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	eq, err := c.Classify(ctx, "slow query")
	require.Error(t, err)
	assert.Equal(t, General, eq.Intent)
	assert.Equal(t, "slow query", eq.Text)
}

func TestNewClassifierRequiresKey(t *testing.T) {
	_, err := NewClassifier("")
	require.Error(t, err)
}

package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteIsTotal(t *testing.T) {
	for _, it := range All() {
		plan := Route(it)
		assert.NotEmpty(t, plan.Engines, "intent %s has no engines", it)
		assert.NotEmpty(t, plan.Categories, "intent %s has no categories", it)
	}
}

func TestRouteFixedMapping(t *testing.T) {
	tests := []struct {
		intent     Intent
		engines    []string
		categories []string
	}{
		{Research, []string{"arxiv", "semantic_scholar", "duckduckgo"}, []string{"science"}},
		{Biomedical, []string{"pubmed", "arxiv", "duckduckgo"}, []string{"science"}},
		{Code, []string{"github", "stackoverflow", "duckduckgo"}, []string{"it"}},
		{News, []string{"bing_news", "duckduckgo_news", "duckduckgo"}, []string{"news"}},
		{General, []string{"duckduckgo", "bing", "brave"}, []string{"general"}},
	}

	for _, tt := range tests {
		plan := Route(tt.intent)
		assert.Equal(t, tt.engines, plan.Engines)
		assert.Equal(t, tt.categories, plan.Categories)
	}
}

func TestRouteUnknownIntentFallsBack(t *testing.T) {
	plan := Route(Intent("xyz"))
	assert.Equal(t, Route(General), plan)
}

func TestRouteReturnsCopies(t *testing.T) {
	plan := Route(Research)
	plan.Engines[0] = "mutated"
	assert.Equal(t, "arxiv", Route(Research).Engines[0])
}

func TestParseIntent(t *testing.T) {
	assert.Equal(t, Research, Parse("research"))
	assert.Equal(t, Research, Parse(" Research "))
	assert.Equal(t, Biomedical, Parse("BIOMEDICAL"))
	assert.Equal(t, General, Parse("xyz"))
	assert.Equal(t, General, Parse(""))
}

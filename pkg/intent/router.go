package intent

// The engine registry is closed: adding an engine means recompiling, not
// editing runtime config. Slices are copied on the way out so callers cannot
// mutate the registry.
var enginePlans = map[Intent]EnginePlan{
	Research: {
		Engines:    []string{"arxiv", "semantic_scholar", "duckduckgo"},
		Categories: []string{"science"},
	},
	Biomedical: {
		Engines:    []string{"pubmed", "arxiv", "duckduckgo"},
		Categories: []string{"science"},
	},
	Code: {
		Engines:    []string{"github", "stackoverflow", "duckduckgo"},
		Categories: []string{"it"},
	},
	News: {
		Engines:    []string{"bing_news", "duckduckgo_news", "duckduckgo"},
		Categories: []string{"news"},
	},
	General: {
		Engines:    []string{"duckduckgo", "bing", "brave"},
		Categories: []string{"general"},
	},
}

// Route returns the engine plan for an intent. It is total over the intent
// enum; anything outside the enum routes as General.
func Route(it Intent) EnginePlan {
	plan, ok := enginePlans[it]
	if !ok {
		plan = enginePlans[General]
	}
	return EnginePlan{
		Engines:    append([]string(nil), plan.Engines...),
		Categories: append([]string(nil), plan.Categories...),
	}
}

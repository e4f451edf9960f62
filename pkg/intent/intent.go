// Package intent classifies queries into coarse topical intents and maps each
// intent to the set of upstream engines worth asking.
package intent

import "strings"

// Intent is a coarse topical label driving engine selection.
type Intent string

const (
	Research   Intent = "research"
	Biomedical Intent = "biomedical"
	Code       Intent = "code"
	News       Intent = "news"
	General    Intent = "general"
)

// All returns every known intent.
func All() []Intent {
	return []Intent{Research, Biomedical, Code, News, General}
}

// Parse normalizes a raw intent label. Unknown or empty values map to
// General: the classifier output is model-generated and must never steer
// control flow with a label outside the closed set.
func Parse(s string) Intent {
	switch Intent(strings.ToLower(strings.TrimSpace(s))) {
	case Research:
		return Research
	case Biomedical:
		return Biomedical
	case Code:
		return Code
	case News:
		return News
	default:
		return General
	}
}

// ExpandedQuery is the classifier's output: the detected intent and an
// expanded form of the query to send downstream.
type ExpandedQuery struct {
	Intent Intent
	Text   string
}

// EnginePlan names the backend engines and categories to query for an intent.
type EnginePlan struct {
	Engines    []string
	Categories []string
}

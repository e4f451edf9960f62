// Package normalize canonicalizes backend hit URLs and removes duplicate hits
// before scoring.
package normalize

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// CanonicalHit is a backend hit after URL canonicalization, carrying the
// fields the scoring stages need.
type CanonicalHit struct {
	Title   string
	URL     string // canonical form
	RawURL  string // as reported by the backend
	Snippet string

	// Engine is the engine of the earliest occurrence; MergedEngines holds it
	// plus every engine folded in by exact dedup.
	Engine        string
	MergedEngines []string

	PublishedDate *time.Time

	// Position and Arrival are inherited from the earliest occurrence.
	Position int
	Arrival  int

	// Domain is the lowercased host with any "www." prefix stripped.
	Domain string
}

// Normalizer applies a configured tracking-parameter set during URL
// canonicalization. Entries ending in "*" match by prefix.
type Normalizer struct {
	exactParams  map[string]struct{}
	prefixParams []string
}

func New(trackingParams []string) *Normalizer {
	n := &Normalizer{exactParams: make(map[string]struct{})}
	for _, p := range trackingParams {
		if prefix, ok := strings.CutSuffix(p, "*"); ok {
			n.prefixParams = append(n.prefixParams, prefix)
			continue
		}
		n.exactParams[p] = struct{}{}
	}
	return n
}

func (n *Normalizer) isTrackingParam(name string) bool {
	if _, ok := n.exactParams[name]; ok {
		return true
	}
	for _, prefix := range n.prefixParams {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// CanonicalURL rewrites raw into its canonical form: scheme and host
// lowercased, default port removed, fragment removed, tracking parameters
// stripped, remaining query parameters sorted by name, duplicate path slashes
// collapsed and a single trailing slash removed except at root. The function
// is idempotent.
func (n *Normalizer) CanonicalURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("unparseable URL %q: %w", raw, err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if (u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) ||
		(u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) {
		u.Host = u.Host[:strings.LastIndex(u.Host, ":")]
	}

	u.Fragment = ""

	if u.RawQuery != "" {
		kept := url.Values{}
		for name, values := range u.Query() {
			if n.isTrackingParam(name) {
				continue
			}
			kept[name] = values
		}
		// Encode sorts by key.
		u.RawQuery = kept.Encode()
	}

	path := u.Path
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	u.Path = path
	u.RawPath = ""

	return u.String(), nil
}

// Domain extracts the lowercased registrable host from a canonical URL,
// dropping any port and a leading "www.".
func Domain(canonical string) string {
	u, err := url.Parse(canonical)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

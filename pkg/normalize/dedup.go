package normalize

import (
	"log/slog"
	"strings"
	"unicode"

	"github.com/kadirpekel/sift/pkg/searxng"
)

// titleSimilarityThreshold is the normalized-title similarity above which two
// hits are considered the same document.
const titleSimilarityThreshold = 0.85

// Normalize canonicalizes every raw hit and collapses duplicates. Hits with
// unparseable URLs are dropped. Exact duplicates (same canonical URL) keep the
// earliest occurrence and fold later engines into MergedEngines; hits whose
// normalized titles are near-identical keep the earlier one.
func (n *Normalizer) Normalize(raw []searxng.RawHit) []CanonicalHit {
	hits := make([]CanonicalHit, 0, len(raw))
	byURL := make(map[string]int)

	for _, r := range raw {
		canonical, err := n.CanonicalURL(r.URL)
		if err != nil {
			slog.Debug("Dropping hit with unparseable URL", "url", r.URL)
			continue
		}

		if i, seen := byURL[canonical]; seen {
			hits[i].MergedEngines = appendEngine(hits[i].MergedEngines, r.Engine)
			continue
		}

		byURL[canonical] = len(hits)
		hits = append(hits, CanonicalHit{
			Title:         r.Title,
			URL:           canonical,
			RawURL:        r.URL,
			Snippet:       r.Snippet,
			Engine:        r.Engine,
			MergedEngines: []string{r.Engine},
			PublishedDate: r.PublishedDate,
			Position:      r.Position,
			Arrival:       r.Arrival,
			Domain:        Domain(canonical),
		})
	}

	return dedupByTitle(hits)
}

func appendEngine(engines []string, engine string) []string {
	for _, e := range engines {
		if e == engine {
			return engines
		}
	}
	return append(engines, engine)
}

// dedupByTitle drops the later of any two hits whose normalized-title
// similarity meets the threshold. Hits arrive in merged backend order, so
// "later" is simply the higher index.
func dedupByTitle(hits []CanonicalHit) []CanonicalHit {
	tokens := make([][]string, len(hits))
	for i, h := range hits {
		tokens[i] = titleTokens(h.Title)
	}

	kept := make([]CanonicalHit, 0, len(hits))
	keptTokens := make([][]string, 0, len(hits))

	for i, h := range hits {
		dup := false
		for j := range kept {
			if titleSimilarity(keptTokens[j], tokens[i]) >= titleSimilarityThreshold {
				slog.Debug("Dropping near-duplicate title",
					"kept", kept[j].URL, "dropped", h.URL)
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, h)
			keptTokens = append(keptTokens, tokens[i])
		}
	}

	return kept
}

// titleTokens lowercases the title, strips punctuation and splits on
// whitespace.
func titleTokens(title string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Fields(b.String())
}

// titleSimilarity is the length of the longest common subsequence of tokens
// over the length of the longer sequence.
func titleSimilarity(a, b []string) float64 {
	longer := max(len(a), len(b))
	if longer == 0 {
		return 1.0
	}
	return float64(lcsLen(a, b)) / float64(longer)
}

func lcsLen(a, b []string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else {
				cur[j] = max(prev[j], cur[j-1])
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

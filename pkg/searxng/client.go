// Package searxng fetches raw hits from a locally running SearXNG instance.
package searxng

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kadirpekel/sift/pkg/httpclient"
	"github.com/kadirpekel/sift/pkg/intent"
)

// The backend is local and performs the engine fan-out itself; one request,
// one deadline, no retries. A hard failure here is fatal to the pipeline.
const fetchTimeout = 8 * time.Second

const pingTimeout = 2 * time.Second

// RawHit is a single backend result before any scoring.
type RawHit struct {
	Title   string
	URL     string
	Snippet string
	Engine  string

	// PublishedDate is nil when the backend reported none or an unparseable
	// value.
	PublishedDate *time.Time

	// Position is the 1-based rank of the hit within its engine's subset of
	// the response.
	Position int

	// Arrival is the 0-based index of the hit in the merged backend response;
	// downstream tie-breaks use it as "earlier position".
	Arrival int
}

// Client talks to one SearXNG instance.
type Client struct {
	baseURL    string
	httpClient *httpclient.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: httpclient.New(
			httpclient.WithTimeout(fetchTimeout),
		),
	}
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Content       string `json:"content"`
	Engine        string `json:"engine"`
	PublishedDate string `json:"publishedDate"`
}

// Search issues one GET /search against the backend with the expanded query
// and the routed engine plan, and parses the merged hit list. Any transport
// error, non-2xx status, or malformed body is returned as-is; the caller
// treats it as fatal.
func (c *Client) Search(ctx context.Context, query string, plan intent.EnginePlan) ([]RawHit, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	params := url.Values{}
	params.Set("q", query)
	params.Set("engines", strings.Join(plan.Engines, ","))
	params.Set("categories", strings.Join(plan.Categories, ","))
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build backend request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read backend response: %w", err)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("malformed backend response: %w", err)
	}

	return parseHits(parsed.Results), nil
}

// Ping performs a lightweight GET / to verify the backend is reachable.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if resp != nil {
		resp.Body.Close()
	}
	return err
}

// parseHits converts backend results to RawHits, dropping entries without a
// title or without a syntactically valid absolute HTTP(S) URL. Positions are
// assigned per engine by order of appearance.
func parseHits(results []searchResult) []RawHit {
	hits := make([]RawHit, 0, len(results))
	perEngine := make(map[string]int)

	for i, r := range results {
		title := strings.TrimSpace(r.Title)
		if title == "" {
			slog.Debug("Dropping hit without title", "index", i)
			continue
		}
		if !isValidHTTPURL(r.URL) {
			slog.Debug("Dropping hit with invalid URL", "index", i, "url", r.URL)
			continue
		}

		perEngine[r.Engine]++
		hits = append(hits, RawHit{
			Title:         title,
			URL:           r.URL,
			Snippet:       r.Content,
			Engine:        r.Engine,
			PublishedDate: parseDate(r.PublishedDate),
			Position:      perEngine[r.Engine],
			Arrival:       len(hits),
		})
	}

	return hits
}

func isValidHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// dateFormats covers the shapes SearXNG engines actually emit, most precise
// first.
var dateFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
}

func parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	for _, format := range dateFormats {
		if t, err := time.Parse(format, raw); err == nil {
			return &t
		}
		// Engines sometimes append fractional seconds or zone suffixes the
		// shorter layouts do not expect; retry on the matching prefix.
		if len(raw) > len(format) {
			if t, err := time.Parse(format, raw[:len(format)]); err == nil {
				return &t
			}
		}
	}
	return nil
}

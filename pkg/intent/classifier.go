package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kadirpekel/sift/pkg/httpclient"
)

const (
	defaultAnthropicHost = "https://api.anthropic.com"
	anthropicVersion     = "2023-06-01"
	classifierModel      = "claude-haiku-4-5"
	classifierMaxTokens  = 256

	// One call, one deadline, no retries: the classifier sits on the request
	// latency budget and a degraded answer is always available.
	classifierTimeout = 3 * time.Second
)

const classifierSystemPrompt = "You are a search query optimizer. Given a user query, return ONLY valid JSON with these fields:\n" +
	"- intent: one of [research, biomedical, code, news, general]\n" +
	"- expanded_query: improved version with synonyms, related terms, year range if relevant"

// Classifier asks Claude Haiku to label the intent of a query and expand it.
type Classifier struct {
	apiKey     string
	host       string
	model      string
	httpClient *httpclient.Client
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
	Error   *anthropicError    `json:"error,omitempty"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// classifierOutput is the strict JSON object the prompt demands.
type classifierOutput struct {
	Intent        string `json:"intent"`
	ExpandedQuery string `json:"expanded_query"`
}

type ClassifierOption func(*Classifier)

// WithHost overrides the Anthropic API host (tests point this at a stub).
func WithHost(host string) ClassifierOption {
	return func(c *Classifier) {
		c.host = strings.TrimRight(host, "/")
	}
}

func WithModel(model string) ClassifierOption {
	return func(c *Classifier) {
		c.model = model
	}
}

// NewClassifier builds a classifier for the given API key.
func NewClassifier(apiKey string, opts ...ClassifierOption) (*Classifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required for the classifier")
	}

	c := &Classifier{
		apiKey: apiKey,
		host:   defaultAnthropicHost,
		model:  classifierModel,
		httpClient: httpclient.New(
			httpclient.WithTimeout(classifierTimeout),
		),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Classify labels and expands a raw query. On any failure (timeout, transport
// error, non-2xx, unparseable body) it returns the General/no-op fallback
// alongside the error so the caller can log the degradation; the fallback is
// always safe to use.
func (c *Classifier) Classify(ctx context.Context, query string) (ExpandedQuery, error) {
	fallback := ExpandedQuery{Intent: General, Text: query}

	ctx, cancel := context.WithTimeout(ctx, classifierTimeout)
	defer cancel()

	payload, err := json.Marshal(anthropicRequest{
		Model:     c.model,
		MaxTokens: classifierMaxTokens,
		System:    classifierSystemPrompt,
		Messages:  []anthropicMessage{{Role: "user", Content: query}},
	})
	if err != nil {
		return fallback, fmt.Errorf("failed to encode classifier request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return fallback, fmt.Errorf("failed to build classifier request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return fallback, fmt.Errorf("classifier request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fallback, fmt.Errorf("failed to read classifier response: %w", err)
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return fallback, fmt.Errorf("failed to decode classifier response: %w", err)
	}
	if apiResp.Error != nil {
		return fallback, fmt.Errorf("anthropic API error: %s", apiResp.Error.Message)
	}

	var text string
	for _, content := range apiResp.Content {
		if content.Type == "text" {
			text += content.Text
		}
	}

	out, err := parseClassifierOutput(text)
	if err != nil {
		return fallback, err
	}

	expanded := strings.TrimSpace(out.ExpandedQuery)
	if expanded == "" {
		expanded = query
	}

	return ExpandedQuery{Intent: Parse(out.Intent), Text: expanded}, nil
}

// parseClassifierOutput extracts the first JSON object from model output.
// Models wrap JSON in markdown fences or prose often enough that a strict
// json.Unmarshal of the whole body would degrade far too many requests.
func parseClassifierOutput(text string) (classifierOutput, error) {
	var out classifierOutput

	start := strings.Index(text, "{")
	if start == -1 {
		return out, fmt.Errorf("no JSON object in classifier output")
	}

	depth := 0
	inString := false
	escape := false
	end := -1
	for i := start; i < len(text); i++ {
		ch := text[i]
		if escape {
			escape = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escape = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					end = i + 1
				}
			}
		}
		if end != -1 {
			break
		}
	}
	if end == -1 {
		return out, fmt.Errorf("unterminated JSON object in classifier output")
	}

	if err := json.Unmarshal([]byte(text[start:end]), &out); err != nil {
		return out, fmt.Errorf("failed to parse classifier output: %w", err)
	}

	return out, nil
}

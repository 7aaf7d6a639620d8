// Package classifier assigns categories to tabs with one call to a remote
// generative-language model.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"tabsort/internal/domain"
	"tabsort/internal/naming"
)

// Config configures the remote classifier.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// Remote classifies tabs through the Gemini generateContent API.
type Remote struct {
	cfg    Config
	client *http.Client
}

// NewRemote creates a classifier. An empty API key is reported per call.
func NewRemote(cfg Config) *Remote {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 60 * time.Second
	}
	return &Remote{cfg: cfg, client: &http.Client{Timeout: t}}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content `json:"contents"`
	GenerationConfig struct {
		Temperature float64 `json:"temperature"`
	} `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Classify sends tabs and the known categories in one request and pairs the
// i-th response line with the i-th tab. Missing lines become Uncategorized.
// titles must be index-aligned with tabs.
func (r *Remote) Classify(ctx context.Context, tabs []domain.Tab, titles []string, categories []string) ([]domain.Assignment, error) {
	if r.cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: remote API key missing", domain.ErrConfiguration)
	}
	if len(tabs) == 0 {
		return nil, nil
	}

	var body generateRequest
	body.Contents = []content{{Parts: []part{{Text: BuildPrompt(tabs, titles, categories)}}}}
	body.GenerationConfig.Temperature = r.cfg.Temperature
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(r.cfg.BaseURL, "/"), url.PathEscape(r.cfg.Model), url.QueryEscape(r.cfg.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		// the URL carries the key; keep it out of the error
		return nil, &domain.RemoteClassifierError{Reason: "request failed: " + redact(err.Error(), r.cfg.APIKey)}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.RemoteClassifierError{StatusCode: resp.StatusCode, Reason: "read body: " + err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.RemoteClassifierError{StatusCode: resp.StatusCode, Reason: http.StatusText(resp.StatusCode)}
	}

	var out generateResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, &domain.RemoteClassifierError{StatusCode: resp.StatusCode, Reason: "decode body: " + err.Error()}
	}
	var text string
	if len(out.Candidates) > 0 && len(out.Candidates[0].Content.Parts) > 0 {
		text = strings.TrimSpace(out.Candidates[0].Content.Parts[0].Text)
	}
	if text == "" {
		return nil, &domain.RemoteClassifierError{StatusCode: resp.StatusCode, Reason: "empty response"}
	}
	return ParseCategories(text, tabs), nil
}

// BuildPrompt renders the classification instructions for tabs.
func BuildPrompt(tabs []domain.Tab, titles []string, categories []string) string {
	existing := "None"
	if len(categories) > 0 {
		existing = strings.Join(categories, ", ")
	}
	var list strings.Builder
	for i, t := range tabs {
		if i > 0 {
			list.WriteString("\n")
		}
		fmt.Fprintf(&list, "%d. Title: %q, URL: %q", i+1, titles[i], t.URL)
	}
	return fmt.Sprintf(`Analyze the following tabs and assign a concise category (1-2 words, Title Case) for EACH.

Existing Categories: %s

Rules:
1. If a tab fits an Existing Category, use that EXACT name.
2. Otherwise, create a new concise category.
3. Output ONLY the list of categories, one per line, matching the input order. No numbering.

Tabs:
%s
`, existing, list.String())
}

var nonWordRe = regexp.MustCompile(`[^\w\s]`)

// ParseCategories pairs non-empty response lines with tabs in order.
func ParseCategories(text string, tabs []domain.Tab) []domain.Assignment {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	out := make([]domain.Assignment, len(tabs))
	for i, t := range tabs {
		topic := domain.TopicUncategorized
		if i < len(lines) {
			topic = naming.TitleCase(nonWordRe.ReplaceAllString(lines[i], ""))
		}
		out[i] = domain.Assignment{Tab: t, Topic: topic}
	}
	return out
}

func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	s = strings.ReplaceAll(s, url.QueryEscape(secret), "REDACTED")
	return strings.ReplaceAll(s, secret, "REDACTED")
}

package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabsort/internal/domain"
)

var testTabs = []domain.Tab{
	{ID: "1", Title: "Go Blog", URL: "https://go.dev/blog"},
	{ID: "2", Title: "Hacker News", URL: "https://news.ycombinator.com"},
	{ID: "3", Title: "Amazon Cart", URL: "https://amazon.com/cart"},
}

func titles(tabs []domain.Tab) []string {
	out := make([]string, len(tabs))
	for i, t := range tabs {
		out[i] = t.Title
	}
	return out
}

func geminiServer(t *testing.T, status int, text string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("key"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		prompt := req.Contents[0].Parts[0].Text
		assert.Contains(t, prompt, `1. Title: "Go Blog", URL: "https://go.dev/blog"`)
		assert.Contains(t, prompt, "Existing Categories: Programming, News")
		assert.InDelta(t, 0.1, req.GenerationConfig.Temperature, 1e-9)

		w.WriteHeader(status)
		resp := map[string]any{"candidates": []any{map[string]any{
			"content": map[string]any{"parts": []any{map[string]any{"text": text}}},
		}}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func newRemote(url string) *Remote {
	return NewRemote(Config{BaseURL: url, APIKey: "secret", Model: "gemini-test", Temperature: 0.1, Timeout: time.Second})
}

func TestClassifyPairsLinesWithTabs(t *testing.T) {
	srv := geminiServer(t, http.StatusOK, "programming\n\n**news**\nonline shopping!\n")
	defer srv.Close()

	got, err := newRemote(srv.URL).Classify(context.Background(), testTabs, titles(testTabs), []string{"Programming", "News"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Programming", got[0].Topic)
	assert.Equal(t, "News", got[1].Topic)
	assert.Equal(t, "Online Shopping", got[2].Topic)
	assert.Equal(t, "3", got[2].Tab.ID)
}

func TestClassifyShortResponseLeavesTrailingTabsUncategorized(t *testing.T) {
	srv := geminiServer(t, http.StatusOK, "Programming")
	defer srv.Close()

	got, err := newRemote(srv.URL).Classify(context.Background(), testTabs, titles(testTabs), []string{"Programming", "News"})
	require.NoError(t, err)
	assert.Equal(t, "Programming", got[0].Topic)
	assert.Equal(t, domain.TopicUncategorized, got[1].Topic)
	assert.Equal(t, domain.TopicUncategorized, got[2].Topic)
}

func TestClassifyNon2xxIsRemoteError(t *testing.T) {
	srv := geminiServer(t, http.StatusForbidden, "Programming")
	defer srv.Close()

	_, err := newRemote(srv.URL).Classify(context.Background(), testTabs, titles(testTabs), []string{"Programming", "News"})
	var rerr *domain.RemoteClassifierError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, http.StatusForbidden, rerr.StatusCode)
}

func TestClassifyEmptyTextIsRemoteError(t *testing.T) {
	srv := geminiServer(t, http.StatusOK, "   ")
	defer srv.Close()

	_, err := newRemote(srv.URL).Classify(context.Background(), testTabs, titles(testTabs), []string{"Programming", "News"})
	var rerr *domain.RemoteClassifierError
	require.True(t, errors.As(err, &rerr))
	assert.Contains(t, rerr.Error(), "empty response")
}

func TestClassifyMissingKeyShortCircuits(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer srv.Close()

	_, err := NewRemote(Config{BaseURL: srv.URL}).Classify(context.Background(), testTabs, titles(testTabs), nil)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
	assert.False(t, called)
}

func TestClassifyTransportErrorHidesKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := newRemote(srv.URL).Classify(context.Background(), testTabs, titles(testTabs), nil)
	require.Error(t, err)
	assert.False(t, strings.Contains(err.Error(), "secret"))
}

func TestBuildPromptWithoutCategories(t *testing.T) {
	p := BuildPrompt(testTabs[:1], []string{"Go Blog"}, nil)
	assert.Contains(t, p, "Existing Categories: None")
	assert.Contains(t, p, "No numbering.")
}

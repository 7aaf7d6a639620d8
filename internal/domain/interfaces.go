package domain

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel topics. NoTopic means the tab was considered but left ungrouped.
const (
	NoTopic            = ""
	TopicUncategorized = "Uncategorized"
	TopicMissingAPIKey = "Missing API Key"
	TopicClassifyError = "Classification Failed"
)

// IsSentinel reports whether topic is one of the labels that never becomes a group.
func IsSentinel(topic string) bool {
	switch topic {
	case NoTopic, TopicUncategorized, TopicMissingAPIKey, TopicClassifyError:
		return true
	}
	return false
}

var (
	ErrEmbeddingFailure = errors.New("embedding failure")
	ErrNamingFailure    = errors.New("naming failure")
	ErrConfiguration    = errors.New("configuration error")
)

// RemoteClassifierError is a run-wide failure of the remote classification call.
type RemoteClassifierError struct {
	StatusCode int
	Reason     string
}

func (e *RemoteClassifierError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote classifier: status %d: %s", e.StatusCode, e.Reason)
	}
	return "remote classifier: " + e.Reason
}

// Tab is a read-only view of a host browser tab.
type Tab struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	WorkspaceID string `json:"workspace_id"`
	Group       string `json:"group,omitempty"`
	Pinned      bool   `json:"pinned,omitempty"`
	Selected    bool   `json:"selected,omitempty"`
	Empty       bool   `json:"empty,omitempty"`
	Glance      bool   `json:"glance,omitempty"`
}

// Grouped reports whether the tab already belongs to a named group.
func (t Tab) Grouped() bool { return t.Group != "" }

// ExistingGroup is a named group already present in the active workspace.
// Titles holds the resolved title of each member, index-aligned with Members.
type ExistingGroup struct {
	Label   string
	Members []Tab
	Titles  []string
}

// Assignment pairs a tab with its topic label.
type Assignment struct {
	Tab   Tab
	Topic string
}

// Embedding is an L2-normalized vector. A nil Embedding means generation failed.
type Embedding []float64

// EmbeddingBackend runs a feature-extraction model over one text. It may return
// a single vector or one vector per token; callers pool the output.
type EmbeddingBackend interface {
	Name() string
	Embed(ctx context.Context, text string) ([][]float64, error)
}

// Preparer is implemented by backends that need to see the whole corpus of a
// run before embedding.
type Preparer interface {
	Prepare(corpus []string) error
}

// Generator is a text-generation backend.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

// Classifier assigns one category per tab in a single remote call.
type Classifier interface {
	Classify(ctx context.Context, tabs []Tab, titles []string, categories []string) ([]Assignment, error)
}

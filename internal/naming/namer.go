// Package naming derives short labels for freshly formed clusters.
package naming

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"tabsort/internal/domain"
)

// KeywordCount is the number of keywords passed to the generator.
const KeywordCount = 5

// Namer labels clusters from keyword frequency, refined by an optional
// text-generation model.
type Namer struct {
	generator   domain.Generator
	maxTokens   int
	temperature float64
	log         *zap.Logger
}

// NewNamer creates a Namer. generator may be nil, in which case every cluster
// gets the keyword fallback label.
func NewNamer(generator domain.Generator, maxTokens int, temperature float64, log *zap.Logger) *Namer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Namer{generator: generator, maxTokens: maxTokens, temperature: temperature, log: log}
}

// Name returns a label for a cluster with the given titles. It never fails:
// generation errors fall back to the first word of the first title.
func (n *Namer) Name(ctx context.Context, titles []string) string {
	if len(titles) == 0 {
		return ""
	}
	label, err := n.generate(ctx, titles)
	if err != nil {
		n.log.Warn("cluster naming fell back to keywords", zap.Strings("titles", titles), zap.Error(err))
		return Fallback(titles)
	}
	return label
}

func (n *Namer) generate(ctx context.Context, titles []string) (string, error) {
	if n.generator == nil {
		return "", fmt.Errorf("%w: no generator configured", domain.ErrNamingFailure)
	}
	out, err := n.generator.Generate(ctx, Prompt(titles), n.maxTokens, n.temperature)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrNamingFailure, err)
	}
	label := TitleCase(stripQuotes(firstLine(out)))
	if strings.TrimSpace(label) == "" {
		return "", fmt.Errorf("%w: empty generation", domain.ErrNamingFailure)
	}
	return label, nil
}

// Prompt builds the generation input for a cluster.
func Prompt(titles []string) string {
	return fmt.Sprintf("Topic from keywords: %s. titles:\n%s",
		strings.Join(Keywords(titles, KeywordCount), ", "), strings.Join(titles, "\n"))
}

// Fallback title-cases the first word of the first title.
func Fallback(titles []string) string {
	if len(titles) == 0 {
		return ""
	}
	first, _, _ := strings.Cut(strings.TrimSpace(titles[0]), " ")
	return TitleCase(first)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}

func stripQuotes(s string) string {
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimPrefix(s, `'`)
	s = strings.TrimSuffix(s, `"`)
	return strings.TrimSuffix(s, `'`)
}

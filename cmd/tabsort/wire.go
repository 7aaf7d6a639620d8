package main

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"tabsort/internal/classifier"
	"tabsort/internal/config"
	"tabsort/internal/domain"
	"tabsort/internal/embedding"
	"tabsort/internal/embedding/hugot"
	"tabsort/internal/embedding/ollama"
	"tabsort/internal/embedding/openai"
	"tabsort/internal/embedding/tfidf"
	"tabsort/internal/generation"
	"tabsort/internal/naming"
	"tabsort/internal/service"
)

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// newBackend builds the embedding backend named by cfg. The returned closer
// releases model resources.
func newBackend(cfg config.EmbedderConfig) (domain.EmbeddingBackend, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Type {
	case "hugot", "":
		if cfg.Hugot == nil {
			return nil, nil, fmt.Errorf("%w: hugot embedder config missing", domain.ErrConfiguration)
		}
		e, err := hugot.NewEmbedder(hugot.Config{
			ModelPath:    cfg.Hugot.ModelPath,
			ModelName:    cfg.Hugot.ModelName,
			OnnxFilename: cfg.Hugot.OnnxFilename,
			CacheDir:     cfg.Hugot.CacheDir,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("hugot embedder init failed: %w", err)
		}
		return e, e.Close, nil
	case "ollama":
		if cfg.Ollama == nil {
			return nil, nil, fmt.Errorf("%w: ollama embedder config missing", domain.ErrConfiguration)
		}
		return ollama.NewEmbedder(cfg.Ollama.BaseURL, cfg.Ollama.Model, seconds(cfg.Ollama.TimeoutSecs)), noop, nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, nil, fmt.Errorf("%w: openai embedder config missing", domain.ErrConfiguration)
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
			Timeout:   seconds(cfg.OpenAI.TimeoutSecs),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return client, noop, nil
	case "tfidf":
		return tfidf.NewEmbedder(), noop, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown embedder: %s", domain.ErrConfiguration, cfg.Type)
	}
}

// newSorter assembles the sorter for cfg. The local pipeline is built when it
// is the provider or the remote fallback.
func newSorter(cfg *config.AppConfig, log *zap.Logger) (*service.Sorter, func() error, error) {
	closer := func() error { return nil }
	var (
		provider *embedding.Provider
		namer    *naming.Namer
		remote   domain.Classifier
	)

	if cfg.Provider == config.ProviderLocal || cfg.Remote.FallbackLocal {
		backend, closeBackend, err := newBackend(cfg.Embedder)
		if err != nil {
			return nil, nil, err
		}
		closer = closeBackend
		provider = embedding.NewProvider(backend,
			embedding.WithBatchSize(cfg.Embedder.BatchSize),
			embedding.WithMemo(seconds(cfg.Embedder.CacheTTLSecs)),
			embedding.WithLogger(log.Named("embedding")))

		var gen domain.Generator
		if cfg.Generator.Model != "" {
			g, err := generation.NewClient(generation.Config{
				BaseURL:   cfg.Generator.BaseURL,
				APIKeyEnv: cfg.Generator.APIKeyEnv,
				Model:     cfg.Generator.Model,
				Timeout:   seconds(cfg.Generator.TimeoutSecs),
			})
			if err != nil {
				_ = closer()
				return nil, nil, err
			}
			gen = g
		}
		namer = naming.NewNamer(gen, cfg.Generator.MaxTokens, cfg.Generator.Temperature, log.Named("naming"))
	}

	if cfg.Provider == config.ProviderRemote {
		remote = classifier.NewRemote(classifier.Config{
			BaseURL:     cfg.Remote.BaseURL,
			APIKey:      cfg.RemoteAPIKey(),
			Model:       cfg.Remote.Model,
			Temperature: cfg.Remote.Temperature,
			Timeout:     seconds(cfg.Remote.TimeoutSecs),
		})
	}

	opts := service.Options{
		Provider:      cfg.Provider,
		Thresholds:    cfg.Thresholds,
		FallbackLocal: cfg.Remote.FallbackLocal,
	}
	// typed nils must not reach the sorter's interface fields
	var (
		emb service.Embedder
		nm  service.Namer
	)
	if provider != nil {
		emb = provider
	}
	if namer != nil {
		nm = namer
	}
	return service.NewSorter(opts, emb, nm, remote, log.Named("sorter")), closer, nil
}

// Package hugot runs a sentence-embedding model on-device through the hugot
// pure-Go ONNX session.
package hugot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
)

// Config locates the feature-extraction model. When ModelPath is empty the
// model named by ModelName is downloaded into CacheDir on first use.
type Config struct {
	ModelPath    string
	ModelName    string
	OnnxFilename string
	CacheDir     string
}

// Embedder is an on-device feature-extraction pipeline.
type Embedder struct {
	mu       sync.Mutex
	session  *hugot.Session
	pipeline *pipelines.FeatureExtractionPipeline
	model    string
}

// NewEmbedder loads the model and builds the pipeline.
func NewEmbedder(cfg Config) (*Embedder, error) {
	modelPath, err := resolveModel(cfg)
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("create hugot session: %w", err)
	}

	pipeline, err := hugot.NewPipeline(session, hugot.FeatureExtractionConfig{
		ModelPath:    modelPath,
		Name:         "tab-embedding",
		OnnxFilename: cfg.OnnxFilename,
	})
	if err != nil {
		_ = session.Destroy()
		return nil, fmt.Errorf("create feature-extraction pipeline: %w", err)
	}

	return &Embedder{session: session, pipeline: pipeline, model: modelPath}, nil
}

func resolveModel(cfg Config) (string, error) {
	if cfg.ModelPath != "" {
		return cfg.ModelPath, nil
	}
	if cfg.ModelName == "" {
		return "", fmt.Errorf("hugot: model_path or model_name is required")
	}
	local := filepath.Join(cfg.CacheDir, strings.ReplaceAll(cfg.ModelName, "/", "_"))
	if _, err := os.Stat(local); err == nil {
		return local, nil
	}
	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create model cache: %w", err)
	}
	path, err := hugot.DownloadModel(cfg.ModelName, cfg.CacheDir, hugot.NewDownloadOptions())
	if err != nil {
		return "", fmt.Errorf("download %s: %w", cfg.ModelName, err)
	}
	return path, nil
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "hugot" }

// Model returns the path of the loaded model.
func (e *Embedder) Model() string { return e.model }

// Embed runs the pipeline over one text. The session is not shared across
// goroutines, so calls are serialized.
func (e *Embedder) Embed(ctx context.Context, text string) ([][]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	out, err := e.pipeline.RunPipeline([]string{text})
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if out == nil || len(out.Embeddings) == 0 {
		return nil, fmt.Errorf("hugot returned no embeddings")
	}
	vec := make([]float64, len(out.Embeddings[0]))
	for i, v := range out.Embeddings[0] {
		vec[i] = float64(v)
	}
	return [][]float64{vec}, nil
}

// Close releases the ONNX session.
func (e *Embedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	err := e.session.Destroy()
	e.session = nil
	return err
}

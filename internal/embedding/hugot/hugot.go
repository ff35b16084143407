// Package hugot embeds text in-process with a sentence-transformers model
// executed by the hugot pure Go backend.
package hugot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/knights-analytics/hugot"

	"shoprag/internal/domain"
)

// DefaultModel produces 384-dimensional embeddings.
const DefaultModel = "sentence-transformers/all-MiniLM-L6-v2"

// Embedder runs a feature extraction pipeline. The session is opened on the
// first Prepare call and shared by every snapshot it returns.
type Embedder struct {
	modelName string
	modelDir  string

	mu        sync.Mutex
	session   interface{ Destroy() error }
	run       func([]string) ([][]float32, error)
	dimension int
}

var _ domain.Embedder = (*Embedder)(nil)

// NewEmbedder creates an embedder for modelName, caching downloads under modelDir.
func NewEmbedder(modelName, modelDir string) *Embedder {
	if modelName == "" {
		modelName = DefaultModel
	}
	if modelDir == "" {
		modelDir = "./models"
	}
	return &Embedder{modelName: modelName, modelDir: modelDir}
}

func (e *Embedder) Name() string { return "hugot" }

// Prepare downloads the model if needed and opens the session.
func (e *Embedder) Prepare(context.Context, []string) (domain.Embedder, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.run != nil {
		return e, nil
	}

	modelPath, err := PrepareModel(e.modelName, e.modelDir)
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "shoprag-embedder",
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create embedding pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create embedding pipeline: %w", err)
	}

	e.session = session
	e.run = func(texts []string) ([][]float32, error) {
		result, err := pipeline.RunPipeline(texts)
		if err != nil {
			return nil, err
		}
		return result.Embeddings, nil
	}
	return e, nil
}

func (e *Embedder) Dimension() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dimension
}

// Embed returns one vector per text in input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.run == nil {
		return nil, domain.ErrNotPrepared
	}
	vectors, err := e.run(texts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("pipeline returned %d embeddings for %d inputs", len(vectors), len(texts))
	}
	if e.dimension == 0 && len(vectors[0]) > 0 {
		e.dimension = len(vectors[0])
	}
	return vectors, nil
}

// Close releases the hugot session.
func (e *Embedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	err := e.session.Destroy()
	e.session = nil
	e.run = nil
	return err
}

// PrepareModel downloads the model into modelDir if it is not there yet and
// returns its path.
func PrepareModel(modelName, modelDir string) (string, error) {
	modelPath := filepath.Join(modelDir, strings.ReplaceAll(modelName, "/", "_"))

	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		if err := os.MkdirAll(modelDir, 0755); err != nil {
			return "", fmt.Errorf("failed to create model directory: %w", err)
		}
		downloadOptions := hugot.NewDownloadOptions()
		downloadOptions.OnnxFilePath = "onnx/model.onnx"
		downloadedPath, err := hugot.DownloadModel(modelName, modelDir, downloadOptions)
		if err != nil {
			return "", fmt.Errorf("failed to download model: %w", err)
		}
		modelPath = downloadedPath
	}

	return modelPath, nil
}

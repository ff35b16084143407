package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"shoprag/internal/catalog"
	"shoprag/internal/chunker"
	"shoprag/internal/config"
	"shoprag/internal/domain"
	"shoprag/internal/embedding/hugot"
	"shoprag/internal/embedding/ollama"
	"shoprag/internal/embedding/openai"
	"shoprag/internal/embedding/tfidf"
	"shoprag/internal/generator/huggingface"
	"shoprag/internal/narrator"
	"shoprag/internal/sentiment"
	"shoprag/internal/service"
	"shoprag/internal/summarizer"
	"shoprag/internal/vectorstore/memory"
	"shoprag/internal/vectorstore/pgvector"
	"shoprag/internal/vectorstore/qdrant"
	"shoprag/internal/vectorstore/sqlite"
)

// app bundles the loaded catalog with the components built from config.
type app struct {
	cfg         *config.AppConfig
	logger      *slog.Logger
	items       []domain.Item
	recommender *service.Recommender
	narrator    *narrator.Narrator
	storeName   string
	closers     []func() error
}

func newApp(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*app, error) {
	items, err := catalog.Load(cfg.Catalog.Dir)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no items found in %s: %w", cfg.Catalog.Dir, domain.ErrEmptyCatalog)
	}

	a := &app{cfg: cfg, logger: logger, items: items, storeName: cfg.VectorStore.Type}

	emb, err := a.buildEmbedder(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	store, err := a.buildStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	classifier := sentiment.NewAnalyzer()
	a.recommender = service.NewRecommender(
		chunker.NewItemChunker(cfg.Chunker.TargetSize, classifier),
		emb, store, classifier, logger)
	a.recommender.SetOverFetch(cfg.Retrieval.OverFetch)

	a.narrator = narrator.New(a.buildGenerator(), a.buildSummarizer(), logger)
	a.narrator.SetSummarySentences(cfg.Summarizer.MaxSentences)
	if h := cfg.Generator.HuggingFace; h != nil {
		a.narrator.SetTimeout(time.Duration(h.TimeoutSecs) * time.Second)
	}

	logger.Debug("components ready",
		"items", len(items),
		"embedder", emb.Name(),
		"store", a.storeName,
		"generator", cfg.Generator.Type)
	return a, nil
}

func (a *app) buildEmbedder(ctx context.Context) (domain.Embedder, error) {
	cfg := a.cfg.Embedder
	switch cfg.Type {
	case "tfidf", "":
		return tfidf.NewEmbedder(), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, errors.New("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:    cfg.OpenAI.BaseURL,
			APIKeyEnv:  cfg.OpenAI.APIKeyEnv,
			Model:      cfg.OpenAI.Model,
			Timeout:    time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			MaxRetries: cfg.OpenAI.MaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return client, nil
	case "ollama":
		if cfg.Ollama == nil {
			return nil, errors.New("ollama embedder config missing")
		}
		client := ollama.NewClient(cfg.Ollama.Host, cfg.Ollama.Model, time.Duration(cfg.Ollama.TimeoutSecs)*time.Second)
		if !client.IsHealthy(ctx) {
			a.logger.Warn("ollama server not reachable, indexing will fail until it is", "host", cfg.Ollama.Host)
		}
		return client, nil
	case "hugot":
		if cfg.Hugot == nil {
			return nil, errors.New("hugot embedder config missing")
		}
		emb := hugot.NewEmbedder(cfg.Hugot.Model, cfg.Hugot.ModelDir)
		a.closers = append(a.closers, emb.Close)
		return emb, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}

func (a *app) buildStore(ctx context.Context) (domain.VectorStore, error) {
	cfg := a.cfg.VectorStore
	switch cfg.Type {
	case "memory":
		return memory.NewStorage(), nil
	case "sqlite", "":
		dataDir := ""
		if cfg.SQLite != nil {
			dataDir = cfg.SQLite.DataDir
		}
		st, err := sqlite.NewStorage(dataDir)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, st.Close)
		a.storeName = "sqlite (" + st.Path() + ")"
		return st, nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, errors.New("qdrant config missing")
		}
		apiKey := ""
		if cfg.Qdrant.APIKeyEnv != "" {
			apiKey = os.Getenv(cfg.Qdrant.APIKeyEnv)
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     apiKey,
			Collection: cfg.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	case "pgvector":
		if cfg.PGVector == nil {
			return nil, errors.New("pgvector config missing")
		}
		dsn := os.Getenv(cfg.PGVector.DSNEnv)
		if dsn == "" {
			return nil, fmt.Errorf("missing Postgres DSN in env %s", cfg.PGVector.DSNEnv)
		}
		st, err := pgvector.Connect(ctx, pgvector.Config{URL: dsn, Table: cfg.PGVector.Table})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, st.Close)
		return st, nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}

// buildGenerator returns nil when generation is disabled, so the narrator
// always uses its templates.
func (a *app) buildGenerator() domain.Generator {
	cfg := a.cfg.Generator
	switch cfg.Type {
	case "huggingface":
		h := cfg.HuggingFace
		if h == nil {
			h = &config.HuggingFaceConfig{}
		}
		return huggingface.NewClient(huggingface.Config{
			URL:          h.URL,
			APIKeyEnv:    h.APIKeyEnv,
			MaxNewTokens: h.MaxNewTokens,
			Temperature:  h.Temperature,
			TopP:         h.TopP,
			Timeout:      time.Duration(h.TimeoutSecs) * time.Second,
		})
	case "none", "":
		return nil
	default:
		a.logger.Warn("unknown generator, using templates", "type", cfg.Type)
		return nil
	}
}

func (a *app) buildSummarizer() domain.Summarizer {
	switch a.cfg.Summarizer.Type {
	case "frequency", "":
		return summarizer.NewFrequencySummarizer()
	case "none":
		return nil
	default:
		a.logger.Warn("unknown summarizer, truncating descriptions", "type", a.cfg.Summarizer.Type)
		return nil
	}
}

// Close releases stores and model sessions.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Recommend ranks the whole catalog for query.
func (a *app) Recommend(ctx context.Context, query, preferences string, maxResults int) []domain.Recommendation {
	return a.recommender.Recommend(ctx, query, a.items, preferences, maxResults)
}

// Explain narrates recs.
func (a *app) Explain(ctx context.Context, query string, recs []domain.Recommendation, preferences string) string {
	return a.narrator.Explain(ctx, query, recs, preferences)
}

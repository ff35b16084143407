package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"shoprag/internal/domain"
)

const (
	// DefaultMaxResults is used when a caller asks for a non-positive count.
	DefaultMaxResults = 10

	// DefaultOverFetch multiplies maxResults to get the number of chunk hits
	// requested from the index before per-item aggregation.
	DefaultOverFetch = 3
)

// indexState is what a successful rebuild publishes. The embedder is the
// snapshot the records were encoded with.
type indexState struct {
	embedder  domain.Embedder
	rebuiltAt time.Time
}

// Status describes the live index.
type Status struct {
	Ready     bool      `json:"ready"`
	Records   int       `json:"records"`
	Embedder  string    `json:"embedder"`
	RebuiltAt time.Time `json:"rebuilt_at"`
}

// Recommender ranks catalog items for free-text queries.
type Recommender struct {
	chunker    domain.Chunker
	embedder   domain.Embedder
	store      domain.VectorStore
	classifier domain.SentimentClassifier
	logger     *slog.Logger
	overFetch  int

	// rebuildMu serialises rebuilds
	rebuildMu sync.Mutex

	// mu guards state; queries hold it for reading across encode and search
	mu    sync.RWMutex
	state *indexState
}

func NewRecommender(chunker domain.Chunker, embedder domain.Embedder, store domain.VectorStore, classifier domain.SentimentClassifier, logger *slog.Logger) *Recommender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recommender{
		chunker:    chunker,
		embedder:   embedder,
		store:      store,
		classifier: classifier,
		logger:     logger,
		overFetch:  DefaultOverFetch,
	}
}

// SetOverFetch changes the hit multiplier. Values below 1 are ignored.
func (r *Recommender) SetOverFetch(n int) {
	if n >= 1 {
		r.overFetch = n
	}
}

// Rebuild re-indexes the whole catalog. On error the live index and its
// embedder keep serving queries.
func (r *Recommender) Rebuild(ctx context.Context, catalog []domain.Item) error {
	r.rebuildMu.Lock()
	defer r.rebuildMu.Unlock()
	return r.rebuild(ctx, catalog)
}

func (r *Recommender) rebuild(ctx context.Context, catalog []domain.Item) error {
	if len(catalog) == 0 {
		return domain.ErrEmptyCatalog
	}
	start := time.Now()

	var records []domain.Record
	var texts []string
	for i := range catalog {
		item := &catalog[i]
		for n, ch := range r.chunker.Chunk(item) {
			records = append(records, domain.Record{
				ID:   domain.RecordID(item.ID, n),
				Text: ch.Text,
				Metadata: domain.Metadata{
					ItemID:    item.ID,
					ChunkType: ch.Type,
					Title:     item.Title,
					Category:  item.Category,
					Price:     item.Price,
					Rating:    item.Rating,
				},
			})
			texts = append(texts, ch.Text)
		}
	}

	prepared, err := r.embedder.Prepare(ctx, texts)
	if err != nil {
		return fmt.Errorf("prepare embedder: %w", err)
	}
	vectors, err := prepared.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(records) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(records))
	}
	for i := range records {
		records[i].Vector = vectors[i]
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.store.Rebuild(ctx, records); err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}
	r.state = &indexState{embedder: prepared, rebuiltAt: time.Now()}

	r.logger.Info("index rebuilt",
		"items", len(catalog),
		"records", len(records),
		"embedder", prepared.Name(),
		"duration", time.Since(start).String())
	return nil
}

// ensureIndexed builds the index from catalog the first time it is needed.
func (r *Recommender) ensureIndexed(ctx context.Context, catalog []domain.Item) error {
	if r.ready() {
		return nil
	}
	r.rebuildMu.Lock()
	defer r.rebuildMu.Unlock()
	if r.ready() {
		return nil
	}
	return r.rebuild(ctx, catalog)
}

func (r *Recommender) ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state != nil
}

// Recommend returns up to maxResults catalog items ranked by their best
// matching chunk. Failures are logged and produce an empty result.
func (r *Recommender) Recommend(ctx context.Context, query string, catalog []domain.Item, preferences string, maxResults int) []domain.Recommendation {
	out := []domain.Recommendation{}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if len(catalog) == 0 {
		r.logger.Warn("recommend called with an empty catalog")
		return out
	}

	search := query
	if preferences != "" {
		search = query + " " + preferences
	}
	if strings.TrimSpace(search) == "" {
		r.logger.Debug("recommend called with an empty query")
		return out
	}

	if err := r.ensureIndexed(ctx, catalog); err != nil {
		r.logger.Error("indexing failed", "error", err)
		return out
	}

	hits, err := r.search(ctx, search, maxResults*r.overFetch)
	if err != nil {
		r.logger.Error("search failed", "query", search, "error", err)
		return out
	}

	ranked := aggregate(hits)
	if len(ranked) > maxResults {
		ranked = ranked[:maxResults]
	}

	byID := make(map[string]int, len(catalog))
	for i := range catalog {
		if _, seen := byID[catalog[i].ID]; !seen {
			byID[catalog[i].ID] = i
		}
	}
	for _, s := range ranked {
		idx, ok := byID[s.itemID]
		if !ok {
			continue
		}
		out = append(out, domain.Recommendation{Item: catalog[idx], Score: s.score})
	}

	r.logger.Debug("recommend", "query", search, "hits", len(hits), "results", len(out))
	return out
}

// search encodes text with the embedder the live index was built with and
// queries the store while holding the read lock.
func (r *Recommender) search(ctx context.Context, text string, topK int) ([]domain.Hit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.state == nil {
		return nil, domain.ErrNotPrepared
	}
	vectors, err := r.state.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vectors))
	}
	return r.store.Query(ctx, vectors[0], topK)
}

type itemScore struct {
	itemID string
	score  float64
}

// aggregate keeps each item's best chunk score. Items are listed in order of
// first appearance and then stably sorted by score, so ties keep hit order.
func aggregate(hits []domain.Hit) []itemScore {
	index := make(map[string]int)
	var scores []itemScore
	for _, h := range hits {
		id := h.Record.Metadata.ItemID
		score := 1 - h.Distance
		if i, ok := index[id]; ok {
			if score > scores[i].score {
				scores[i].score = score
			}
			continue
		}
		index[id] = len(scores)
		scores = append(scores, itemScore{itemID: id, score: score})
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})
	return scores
}

// Status reports readiness and the size of the live index.
func (r *Recommender) Status(ctx context.Context) (Status, error) {
	r.mu.RLock()
	state := r.state
	r.mu.RUnlock()

	st := Status{Embedder: r.embedder.Name()}
	if state != nil {
		st.Ready = true
		st.Embedder = state.embedder.Name()
		st.RebuiltAt = state.rebuiltAt
	}
	n, err := r.store.Count(ctx)
	if err != nil {
		return st, fmt.Errorf("count records: %w", err)
	}
	st.Records = n
	return st, nil
}

// SentimentDistribution counts review labels across the catalog, computing
// and caching any that are missing.
func (r *Recommender) SentimentDistribution(catalog []domain.Item) map[domain.Sentiment]int {
	dist := make(map[domain.Sentiment]int, len(domain.Sentiments))
	for _, s := range domain.Sentiments {
		dist[s] = 0
	}
	for i := range catalog {
		for j := range catalog[i].Reviews {
			rev := &catalog[i].Reviews[j]
			if rev.Sentiment == "" {
				rev.Sentiment = r.classifier.Classify(rev.Text)
			}
			dist[rev.Sentiment]++
		}
	}
	return dist
}

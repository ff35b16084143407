package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoprag/internal/chunker"
	"shoprag/internal/domain"
	"shoprag/internal/embedding/tfidf"
	"shoprag/internal/sentiment"
	"shoprag/internal/vectorstore/memory"
	"shoprag/internal/vectorstore/sqlite"
)

func testCatalog() []domain.Item {
	return []domain.Item{
		{
			ID: "laptop_001", Title: "TechPro UltraBook X1", Category: "Laptops", Price: 1299.99, Rating: 4.5,
			Description: "High-performance laptop with 16GB RAM and a fast processor. Perfect for professionals and programming.",
			Specs:       []domain.Spec{{Key: "RAM", Value: "16GB"}, {Key: "Storage", Value: "512GB SSD"}},
			Reviews: []domain.Review{
				{Rating: 5, Text: "Excellent laptop! Fast and reliable."},
				{Rating: 2, Text: "The battery is terrible."},
			},
		},
		{
			ID: "headphones_001", Title: "SoundWave Wireless Headphones", Category: "Audio", Price: 199.99, Rating: 4.3,
			Description: "Wireless headphones with active noise cancelling. Long battery life for travel and music.",
			Specs:       []domain.Spec{{Key: "Battery", Value: "30 hours"}},
			Reviews: []domain.Review{
				{Rating: 5, Text: "Amazing sound and great noise cancelling."},
				{Rating: 3, Text: "Arrived in a box."},
			},
		},
		{
			ID: "coffee_001", Title: "BrewMaster Coffee Maker", Category: "Kitchen", Price: 89.99, Rating: 4.1,
			Description: "Programmable coffee maker that brews twelve cups. Keeps coffee hot for hours.",
		},
		{
			ID: "shoes_001", Title: "StrideRunner Running Shoes", Category: "Sports", Price: 129.99, Rating: 4.6,
			Description: "Lightweight running shoes with responsive cushioning for marathon training.",
		},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRecommender(embedder domain.Embedder) (*Recommender, *memory.Storage) {
	store := memory.NewStorage()
	analyzer := sentiment.NewAnalyzer()
	r := NewRecommender(chunker.NewItemChunker(chunker.DefaultTargetSize, analyzer), embedder, store, analyzer, quietLogger())
	return r, store
}

// countingEmbedder counts Prepare calls and can be told to fail them.
type countingEmbedder struct {
	domain.Embedder
	prepares atomic.Int32
	fail     atomic.Bool
}

func (c *countingEmbedder) Prepare(ctx context.Context, corpus []string) (domain.Embedder, error) {
	c.prepares.Add(1)
	if c.fail.Load() {
		return nil, errors.New("prepare failed")
	}
	return c.Embedder.Prepare(ctx, corpus)
}

// failingStore accepts the first rebuild and rejects the rest.
type failingStore struct {
	*memory.Storage
	rebuilds int
}

func (f *failingStore) Rebuild(ctx context.Context, records []domain.Record) error {
	f.rebuilds++
	if f.rebuilds > 1 {
		return errors.New("disk full")
	}
	return f.Storage.Rebuild(ctx, records)
}

func ids(recs []domain.Recommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Item.ID
	}
	return out
}

func TestRecommend(t *testing.T) {
	ctx := context.Background()

	t.Run("Empty catalog yields nothing", func(t *testing.T) {
		r, _ := newTestRecommender(tfidf.NewEmbedder())

		recs := r.Recommend(ctx, "laptop", nil, "", 5)

		assert.NotNil(t, recs)
		assert.Empty(t, recs)
	})

	t.Run("Empty query yields nothing", func(t *testing.T) {
		r, _ := newTestRecommender(tfidf.NewEmbedder())

		assert.Empty(t, r.Recommend(ctx, "   ", testCatalog(), "", 5))
	})

	t.Run("Best match comes first", func(t *testing.T) {
		r, _ := newTestRecommender(tfidf.NewEmbedder())

		recs := r.Recommend(ctx, "wireless noise cancelling headphones", testCatalog(), "", 3)

		require.NotEmpty(t, recs)
		assert.Equal(t, "headphones_001", recs[0].Item.ID)
	})

	t.Run("Results are unique, sorted and bounded", func(t *testing.T) {
		r, _ := newTestRecommender(tfidf.NewEmbedder())

		recs := r.Recommend(ctx, "battery fast coffee running laptop", testCatalog(), "", 3)

		assert.LessOrEqual(t, len(recs), 3)
		seen := map[string]bool{}
		for i, rec := range recs {
			assert.False(t, seen[rec.Item.ID], "duplicate %s", rec.Item.ID)
			seen[rec.Item.ID] = true
			if i > 0 {
				assert.GreaterOrEqual(t, recs[i-1].Score, rec.Score)
			}
		}
	})

	t.Run("Preferences are part of the search", func(t *testing.T) {
		r, _ := newTestRecommender(tfidf.NewEmbedder())

		recs := r.Recommend(ctx, "something for", testCatalog(), "marathon training", 1)

		require.Len(t, recs, 1)
		assert.Equal(t, "shoes_001", recs[0].Item.ID)
	})

	t.Run("Non-positive maxResults uses the default", func(t *testing.T) {
		r, _ := newTestRecommender(tfidf.NewEmbedder())

		recs := r.Recommend(ctx, "coffee laptop headphones shoes", testCatalog(), "", 0)

		assert.LessOrEqual(t, len(recs), DefaultMaxResults)
		assert.NotEmpty(t, recs)
	})

	t.Run("Index is built lazily once", func(t *testing.T) {
		emb := &countingEmbedder{Embedder: tfidf.NewEmbedder()}
		r, store := newTestRecommender(emb)
		catalog := testCatalog()

		r.Recommend(ctx, "laptop", catalog, "", 2)
		r.Recommend(ctx, "coffee", catalog, "", 2)

		assert.Equal(t, int32(1), emb.prepares.Load())
		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Greater(t, n, len(catalog))
	})

	t.Run("Repeated queries are deterministic", func(t *testing.T) {
		r, _ := newTestRecommender(tfidf.NewEmbedder())
		catalog := testCatalog()

		first := r.Recommend(ctx, "fast laptop for programming", catalog, "lightweight", 4)
		second := r.Recommend(ctx, "fast laptop for programming", catalog, "lightweight", 4)

		assert.Equal(t, first, second)
	})

	t.Run("Items missing from the supplied catalog are dropped", func(t *testing.T) {
		r, _ := newTestRecommender(tfidf.NewEmbedder())
		full := testCatalog()
		require.NoError(t, r.Rebuild(ctx, full))

		subset := []domain.Item{full[2], full[3]}
		recs := r.Recommend(ctx, "wireless noise cancelling headphones", subset, "", 4)

		assert.NotContains(t, ids(recs), "headphones_001")
		assert.NotContains(t, ids(recs), "laptop_001")
	})
}

func TestRebuild(t *testing.T) {
	ctx := context.Background()

	t.Run("Empty catalog is an error", func(t *testing.T) {
		r, _ := newTestRecommender(tfidf.NewEmbedder())

		assert.ErrorIs(t, r.Rebuild(ctx, nil), domain.ErrEmptyCatalog)
		st, err := r.Status(ctx)
		require.NoError(t, err)
		assert.False(t, st.Ready)
	})

	t.Run("Record ids follow chunk order", func(t *testing.T) {
		r, store := newTestRecommender(tfidf.NewEmbedder())
		catalog := testCatalog()[2:3]
		require.NoError(t, r.Rebuild(ctx, catalog))

		hits, err := store.Query(ctx, make([]float32, 1), 10)
		require.NoError(t, err)
		var got []string
		for _, h := range hits {
			got = append(got, h.Record.ID)
		}
		assert.ElementsMatch(t, []string{"coffee_001_chunk_0", "coffee_001_chunk_1"}, got)
	})

	t.Run("Rebuilding the same catalog twice keeps recommendations", func(t *testing.T) {
		stores := map[string]func(t *testing.T) domain.VectorStore{
			"memory": func(t *testing.T) domain.VectorStore { return memory.NewStorage() },
			"sqlite": func(t *testing.T) domain.VectorStore {
				s, err := sqlite.NewStorage(t.TempDir())
				require.NoError(t, err)
				t.Cleanup(func() { _ = s.Close() })
				return s
			},
		}
		for name, newStore := range stores {
			t.Run(name, func(t *testing.T) {
				analyzer := sentiment.NewAnalyzer()
				r := NewRecommender(chunker.NewItemChunker(chunker.DefaultTargetSize, analyzer), tfidf.NewEmbedder(), newStore(t), analyzer, quietLogger())
				catalog := testCatalog()

				require.NoError(t, r.Rebuild(ctx, catalog))
				first := r.Recommend(ctx, "wireless noise cancelling headphones", catalog, "travel", 4)
				require.NoError(t, r.Rebuild(ctx, catalog))
				second := r.Recommend(ctx, "wireless noise cancelling headphones", catalog, "travel", 4)

				require.NotEmpty(t, first)
				assert.Equal(t, ids(first), ids(second))
				for i := range first {
					assert.InDelta(t, first[i].Score, second[i].Score, 1e-6)
				}
			})
		}
	})

	t.Run("Failed prepare keeps the previous index", func(t *testing.T) {
		emb := &countingEmbedder{Embedder: tfidf.NewEmbedder()}
		r, _ := newTestRecommender(emb)
		catalog := testCatalog()
		require.NoError(t, r.Rebuild(ctx, catalog))
		before := r.Recommend(ctx, "running shoes", catalog, "", 2)
		statusBefore, err := r.Status(ctx)
		require.NoError(t, err)

		emb.fail.Store(true)
		err = r.Rebuild(ctx, catalog[:1])

		assert.Error(t, err)
		assert.Equal(t, before, r.Recommend(ctx, "running shoes", catalog, "", 2))
		statusAfter, err := r.Status(ctx)
		require.NoError(t, err)
		assert.Equal(t, statusBefore, statusAfter)
	})

	t.Run("Failed store rebuild keeps the previous encoder", func(t *testing.T) {
		store := &failingStore{Storage: memory.NewStorage()}
		analyzer := sentiment.NewAnalyzer()
		r := NewRecommender(chunker.NewItemChunker(0, analyzer), tfidf.NewEmbedder(), store, analyzer, quietLogger())
		catalog := testCatalog()
		require.NoError(t, r.Rebuild(ctx, catalog))
		before := r.Recommend(ctx, "coffee maker", catalog, "", 2)

		// a different corpus would change the tf-idf vocabulary
		err := r.Rebuild(ctx, catalog[3:])

		assert.Error(t, err)
		assert.Equal(t, before, r.Recommend(ctx, "coffee maker", catalog, "", 2))
		assert.Equal(t, "coffee_001", before[0].Item.ID)
	})
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRecommender(tfidf.NewEmbedder())

	st, err := r.Status(ctx)
	require.NoError(t, err)
	assert.False(t, st.Ready)
	assert.Equal(t, "tfidf", st.Embedder)
	assert.Zero(t, st.Records)

	require.NoError(t, r.Rebuild(ctx, testCatalog()))
	st, err = r.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Ready)
	assert.Greater(t, st.Records, 4)
	assert.False(t, st.RebuiltAt.IsZero())
}

func TestSentimentDistribution(t *testing.T) {
	r, _ := newTestRecommender(tfidf.NewEmbedder())
	catalog := testCatalog()

	dist := r.SentimentDistribution(catalog)

	assert.Equal(t, map[domain.Sentiment]int{
		domain.SentimentPositive: 2,
		domain.SentimentNegative: 1,
		domain.SentimentNeutral:  1,
	}, dist)
	assert.Equal(t, domain.SentimentNegative, catalog[0].Reviews[1].Sentiment)
}

func TestAggregate(t *testing.T) {
	hit := func(item string, dist float64) domain.Hit {
		return domain.Hit{Record: domain.Record{Metadata: domain.Metadata{ItemID: item}}, Distance: dist}
	}

	t.Run("Max over chunks", func(t *testing.T) {
		got := aggregate([]domain.Hit{hit("a", 0.5), hit("b", 0.3), hit("a", 0.1)})

		require.Len(t, got, 2)
		assert.Equal(t, "a", got[0].itemID)
		assert.InDelta(t, 0.9, got[0].score, 1e-9)
		assert.Equal(t, "b", got[1].itemID)
	})

	t.Run("Ties keep first-seen order", func(t *testing.T) {
		got := aggregate([]domain.Hit{hit("x", 0.2), hit("y", 0.2), hit("z", 0.2)})

		assert.Equal(t, []string{"x", "y", "z"}, []string{got[0].itemID, got[1].itemID, got[2].itemID})
	})

	t.Run("No hits", func(t *testing.T) {
		assert.Empty(t, aggregate(nil))
	})
}

package tfidf

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoprag/internal/domain"
)

func TestEmbedder(t *testing.T) {
	ctx := context.Background()
	corpus := []string{
		"wireless headphones with noise cancellation",
		"gaming laptop with 16GB RAM",
		"espresso coffee machine",
	}

	t.Run("Unprepared embedder refuses to embed", func(t *testing.T) {
		_, err := NewEmbedder().Embed(ctx, []string{"anything"})
		assert.ErrorIs(t, err, domain.ErrNotPrepared)
	})

	t.Run("Empty corpus", func(t *testing.T) {
		_, err := NewEmbedder().Prepare(ctx, nil)
		assert.Error(t, err)
	})

	t.Run("Prepare leaves the receiver untouched", func(t *testing.T) {
		base := NewEmbedder()
		prepared, err := base.Prepare(ctx, corpus)
		require.NoError(t, err)

		assert.Equal(t, 0, base.Dimension())
		assert.Greater(t, prepared.Dimension(), 0)
	})

	t.Run("Vectors are normalised and ordered", func(t *testing.T) {
		prepared, err := NewEmbedder().Prepare(ctx, corpus)
		require.NoError(t, err)

		vecs, err := prepared.Embed(ctx, corpus)
		require.NoError(t, err)
		require.Len(t, vecs, len(corpus))
		for _, v := range vecs {
			assert.Len(t, v, prepared.Dimension())
			norm := 0.0
			for _, x := range v {
				norm += float64(x) * float64(x)
			}
			assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
		}
	})

	t.Run("Batch equals single encoding and is deterministic", func(t *testing.T) {
		prepared, err := NewEmbedder().Prepare(ctx, corpus)
		require.NoError(t, err)

		batch, err := prepared.Embed(ctx, corpus)
		require.NoError(t, err)
		for i, text := range corpus {
			single, err := prepared.Embed(ctx, []string{text})
			require.NoError(t, err)
			assert.Equal(t, batch[i], single[0])
		}
	})

	t.Run("Unknown words give a zero vector", func(t *testing.T) {
		prepared, err := NewEmbedder().Prepare(ctx, corpus)
		require.NoError(t, err)

		vecs, err := prepared.Embed(ctx, []string{"zzz qqq"})
		require.NoError(t, err)
		for _, x := range vecs[0] {
			assert.Zero(t, x)
		}
	})

	t.Run("Stopwords and repetition", func(t *testing.T) {
		prepared, err := NewEmbedder().Prepare(ctx, corpus)
		require.NoError(t, err)

		vecs, err := prepared.Embed(ctx, []string{"the laptop", "laptop laptop laptop"})
		require.NoError(t, err)
		assert.Equal(t, vecs[0], vecs[1])
	})
}

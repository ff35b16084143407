package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoprag/internal/domain"
)

func records() []domain.Record {
	return []domain.Record{
		{ID: "a_chunk_0", Vector: []float32{1, 0, 0}, Text: "a", Metadata: domain.Metadata{ItemID: "a"}},
		{ID: "b_chunk_0", Vector: []float32{0, 1, 0}, Text: "b", Metadata: domain.Metadata{ItemID: "b"}},
		{ID: "c_chunk_0", Vector: []float32{0.9, 0.1, 0}, Text: "c", Metadata: domain.Metadata{ItemID: "c"}},
	}
}

func TestStorage(t *testing.T) {
	ctx := context.Background()

	t.Run("Rebuild and query", func(t *testing.T) {
		s := NewStorage()
		require.NoError(t, s.Rebuild(ctx, records()))

		hits, err := s.Query(ctx, []float32{1, 0, 0}, 2)

		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "a_chunk_0", hits[0].Record.ID)
		assert.Equal(t, "c_chunk_0", hits[1].Record.ID)
		assert.InDelta(t, 0, hits[0].Distance, 1e-6)
		assert.LessOrEqual(t, hits[0].Distance, hits[1].Distance)
		assert.Equal(t, "a", hits[0].Record.Metadata.ItemID)
	})

	t.Run("Fewer records than k", func(t *testing.T) {
		s := NewStorage()
		require.NoError(t, s.Rebuild(ctx, records()))

		hits, err := s.Query(ctx, []float32{0, 0, 1}, 50)

		require.NoError(t, err)
		assert.Len(t, hits, 3)
	})

	t.Run("Empty store", func(t *testing.T) {
		hits, err := NewStorage().Query(ctx, []float32{1}, 3)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("Rebuild replaces contents", func(t *testing.T) {
		s := NewStorage()
		require.NoError(t, s.Rebuild(ctx, records()))
		require.NoError(t, s.Rebuild(ctx, records()[:1]))

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("Failed rebuild keeps previous contents", func(t *testing.T) {
		s := NewStorage()
		require.NoError(t, s.Rebuild(ctx, records()))

		bad := []domain.Record{
			{ID: "x", Vector: []float32{1, 0}},
			{ID: "y", Vector: []float32{1, 0, 0}},
		}
		err := s.Rebuild(ctx, bad)

		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
		n, _ := s.Count(ctx)
		assert.Equal(t, 3, n)
		hits, err := s.Query(ctx, []float32{0, 1, 0}, 1)
		require.NoError(t, err)
		assert.Equal(t, "b_chunk_0", hits[0].Record.ID)
	})

	t.Run("Stored vectors are copies", func(t *testing.T) {
		s := NewStorage()
		in := records()
		require.NoError(t, s.Rebuild(ctx, in))
		in[0].Vector[0] = 0

		hits, err := s.Query(ctx, []float32{1, 0, 0}, 1)
		require.NoError(t, err)
		assert.Equal(t, "a_chunk_0", hits[0].Record.ID)
	})
}

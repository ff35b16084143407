package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrequencySummarizer(t *testing.T) {
	s := NewFrequencySummarizer()

	t.Run("Short text is returned whole", func(t *testing.T) {
		out, err := s.Summarize("Great laptop. Very fast!", 2)
		require.NoError(t, err)
		assert.Equal(t, "Great laptop. Very fast!", out)
	})

	t.Run("Trailing sentence without punctuation is kept", func(t *testing.T) {
		out, err := s.Summarize("Compact design. Fits in a pocket", 5)
		require.NoError(t, err)
		assert.Equal(t, "Compact design. Fits in a pocket", out)
	})

	t.Run("Picks the most representative sentences in order", func(t *testing.T) {
		text := "The camera takes sharp photos. The box is blue. Camera photos stay sharp in low light. Shipping was quick."

		out, err := s.Summarize(text, 2)

		require.NoError(t, err)
		assert.Equal(t, "The camera takes sharp photos. Camera photos stay sharp in low light.", out)
	})

	t.Run("Empty text", func(t *testing.T) {
		out, err := s.Summarize("   ", 3)
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("Deterministic", func(t *testing.T) {
		text := "One thing. Two things. Three things. Four things."
		a, _ := s.Summarize(text, 2)
		b, _ := s.Summarize(text, 2)
		assert.Equal(t, a, b)
	})
}

package narrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoprag/internal/domain"
	"shoprag/internal/summarizer"
)

// stubGenerator answers with a fixed function.
type stubGenerator struct {
	fn    func(ctx context.Context, prompt string) (string, error)
	calls atomic.Int32
}

func (s *stubGenerator) Name() string { return "stub" }

func (s *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	s.calls.Add(1)
	return s.fn(ctx, prompt)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleRecs() []domain.Recommendation {
	return []domain.Recommendation{
		{Item: domain.Item{ID: "l1", Title: "TechPro UltraBook X1", Category: "Laptops", Price: 1299.99, Rating: 4.5,
			Description: "Lightweight laptop with a long battery life."}, Score: 0.87},
		{Item: domain.Item{ID: "l2", Title: "Budget Book", Category: "Laptops", Price: 399, Rating: 4.0,
			Description: "Affordable everyday machine."}, Score: 0.42},
		{Item: domain.Item{ID: "h1", Title: "SoundWave", Category: "Audio", Price: 199.99, Rating: 4.7,
			Description: "Wireless headphones."}, Score: 0.31},
		{Item: domain.Item{ID: "c1", Title: "BrewMaster", Category: "Kitchen", Price: 89.99, Rating: 4.1}, Score: 0.1},
	}
}

func TestFallbackExplanation(t *testing.T) {
	t.Run("Exact rendering", func(t *testing.T) {
		out := FallbackExplanation("laptop", sampleRecs()[:2], "lightweight")

		want := "Based on your search for 'laptop', here are the top recommendations:\n\n" +
			"**1. TechPro UltraBook X1** (Relevance: 0.87)\n" +
			"- Price: $1,299.99\n" +
			"- Rating: 4.5/5\n" +
			"- Category: Laptops\n" +
			"- Recommended because: highly relevant to your search, excellent customer ratings, matches your stated preferences\n" +
			"\n" +
			"**2. Budget Book** (Relevance: 0.42)\n" +
			"- Price: $399.00\n" +
			"- Rating: 4/5\n" +
			"- Category: Laptops\n" +
			"\n"
		assert.Equal(t, want, out)
	})

	t.Run("Only the top three are listed", func(t *testing.T) {
		out := FallbackExplanation("anything", sampleRecs(), "")

		assert.Contains(t, out, "**3. SoundWave**")
		assert.NotContains(t, out, "BrewMaster")
	})

	t.Run("Preference matching is case insensitive", func(t *testing.T) {
		out := FallbackExplanation("q", sampleRecs()[1:2], "cheap AFFORDABLE")
		assert.Contains(t, out, "matches your stated preferences")
	})

	t.Run("Deterministic", func(t *testing.T) {
		assert.Equal(t,
			FallbackExplanation("laptop", sampleRecs(), "battery"),
			FallbackExplanation("laptop", sampleRecs(), "battery"))
	})
}

func TestFallbackComparison(t *testing.T) {
	t.Run("Cheaper and better rated item wins", func(t *testing.T) {
		a := domain.Item{Title: "A", Category: "Audio", Price: 100, Rating: 4.5}
		b := domain.Item{Title: "B", Category: "Audio", Price: 150, Rating: 4.0}

		out := FallbackComparison(a, b)

		want := "**Comparison: A vs B**\n\n" +
			"**Price**: A is $50.00 cheaper\n" +
			"**Rating**: A has higher customer satisfaction (4.5 vs 4)\n" +
			"\n**Recommendation:**\n" +
			"A offers better value with higher rating and equal/lower price"
		assert.Equal(t, want, out)
	})

	t.Run("Second item can win", func(t *testing.T) {
		a := domain.Item{Title: "A", Category: "Audio", Price: 150, Rating: 4.0}
		b := domain.Item{Title: "B", Category: "Laptops", Price: 100, Rating: 4.5}

		out := FallbackComparison(a, b)

		assert.Contains(t, out, "**Price**: B is $50.00 cheaper\n")
		assert.Contains(t, out, "(4.5 vs 4)")
		assert.Contains(t, out, "**Category**: Different categories - Audio vs Laptops\n")
		assert.True(t, strings.HasSuffix(out, "B offers better value with higher rating and equal/lower price"))
	})

	t.Run("Equal price and rating", func(t *testing.T) {
		a := domain.Item{Title: "A", Category: "X", Price: 1200, Rating: 4}
		b := domain.Item{Title: "B", Category: "X", Price: 1200, Rating: 4}

		out := FallbackComparison(a, b)

		assert.Contains(t, out, "Both products are priced equally at $1,200.00")
		assert.Contains(t, out, "Both products have equal ratings of 4/5")
		assert.True(t, strings.HasSuffix(out, "Both products have their merits. Consider your budget and specific feature needs."))
	})

	t.Run("Trade-off has no winner", func(t *testing.T) {
		a := domain.Item{Title: "A", Price: 200, Rating: 4.8}
		b := domain.Item{Title: "B", Price: 100, Rating: 4.2}

		assert.Contains(t, FallbackComparison(a, b), "Both products have their merits.")
	})
}

func TestExplain(t *testing.T) {
	ctx := context.Background()

	t.Run("Empty recommendations", func(t *testing.T) {
		gen := &stubGenerator{fn: func(context.Context, string) (string, error) { return "x", nil }}
		n := New(gen, nil, quietLogger())

		assert.Empty(t, n.Explain(ctx, "q", nil, ""))
		assert.Zero(t, gen.calls.Load())
	})

	t.Run("Backend output with echoed prompt", func(t *testing.T) {
		gen := &stubGenerator{fn: func(_ context.Context, prompt string) (string, error) {
			return prompt + "  These laptops suit travel.  ", nil
		}}
		n := New(gen, summarizer.NewFrequencySummarizer(), quietLogger())

		out := n.Explain(ctx, "travel laptop", sampleRecs()[:1], "light")

		assert.Equal(t, "These laptops suit travel.", out)
	})

	t.Run("Prompt carries query, preferences and items", func(t *testing.T) {
		var seen string
		gen := &stubGenerator{fn: func(_ context.Context, prompt string) (string, error) {
			seen = prompt
			return "ok", nil
		}}
		n := New(gen, summarizer.NewFrequencySummarizer(), quietLogger())

		n.Explain(ctx, "travel laptop", sampleRecs()[:2], "light")

		assert.Contains(t, seen, "User Query: travel laptop\n")
		assert.Contains(t, seen, "User Preferences: light\n")
		assert.Contains(t, seen, "1. TechPro UltraBook X1 - $1,299.99 (Relevance: 0.87)")
		assert.Contains(t, seen, "Summary: Lightweight laptop with a long battery life.")
		assert.True(t, strings.HasSuffix(seen, "Explanation:"))
	})

	t.Run("Backend failure uses fallback", func(t *testing.T) {
		gen := &stubGenerator{fn: func(context.Context, string) (string, error) {
			return "", domain.ErrBackendUnavailable
		}}
		n := New(gen, nil, quietLogger())

		out := n.Explain(ctx, "laptop", sampleRecs(), "")

		assert.Equal(t, FallbackExplanation("laptop", sampleRecs(), ""), out)
	})

	t.Run("Blank backend output uses fallback", func(t *testing.T) {
		gen := &stubGenerator{fn: func(_ context.Context, prompt string) (string, error) { return prompt + "   ", nil }}
		n := New(gen, nil, quietLogger())

		assert.Equal(t, FallbackExplanation("laptop", sampleRecs(), ""), n.Explain(ctx, "laptop", sampleRecs(), ""))
	})

	t.Run("Slow backend times out", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		gen := &stubGenerator{fn: func(context.Context, string) (string, error) {
			<-release
			return "too late", nil
		}}
		n := New(gen, nil, quietLogger())
		n.SetTimeout(20 * time.Millisecond)

		start := time.Now()
		out := n.Explain(ctx, "laptop", sampleRecs(), "")

		assert.Less(t, time.Since(start), 2*time.Second)
		assert.Equal(t, FallbackExplanation("laptop", sampleRecs(), ""), out)
	})

	t.Run("No generator", func(t *testing.T) {
		n := New(nil, nil, nil)
		assert.Equal(t, FallbackExplanation("q", sampleRecs(), "x"), n.Explain(ctx, "q", sampleRecs(), "x"))
	})
}

func TestCompare(t *testing.T) {
	ctx := context.Background()
	a := domain.Item{Title: "A", Category: "Audio", Price: 100, Rating: 4.5, Description: strings.Repeat("word ", 60)}
	b := domain.Item{Title: "B", Category: "Audio", Price: 150, Rating: 4.0}

	t.Run("Backend answer", func(t *testing.T) {
		var seen string
		gen := &stubGenerator{fn: func(_ context.Context, prompt string) (string, error) {
			seen = prompt
			return "A is better.", nil
		}}
		n := New(gen, nil, quietLogger())

		out := n.Compare(ctx, a, b)

		require.Equal(t, "A is better.", out)
		assert.Contains(t, seen, "Product 1: A\n")
		assert.Contains(t, seen, "Product 2: B\n")
		assert.Contains(t, seen, "...")
		assert.True(t, strings.HasSuffix(seen, "Comparison Analysis:"))
	})

	t.Run("Backend error", func(t *testing.T) {
		gen := &stubGenerator{fn: func(context.Context, string) (string, error) { return "", errors.New("boom") }}
		n := New(gen, nil, quietLogger())

		assert.Equal(t, FallbackComparison(a, b), n.Compare(ctx, a, b))
	})
}

package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoprag/internal/domain"
	"shoprag/internal/sentiment"
)

// countingClassifier records how often it was asked to classify.
type countingClassifier struct {
	calls int
	inner domain.SentimentClassifier
}

func (c *countingClassifier) Classify(text string) domain.Sentiment {
	c.calls++
	return c.inner.Classify(text)
}

func sampleItem() domain.Item {
	return domain.Item{
		ID:          "laptop_001",
		Title:       "TechPro UltraBook X1",
		Category:    "Laptops",
		Price:       1299.99,
		Rating:      4.5,
		Description: "High-performance laptop with 16GB RAM. Perfect for professionals who need reliable performance. Features a stunning 15-inch 4K display with excellent color accuracy.",
		Specs: []domain.Spec{
			{Key: "Processor", Value: "Intel Core i7"},
			{Key: "RAM", Value: "16GB DDR4"},
		},
		Reviews: []domain.Review{
			{Rating: 5, Text: "Excellent laptop! Fast, reliable, and great build quality."},
			{Rating: 1, Text: "This product is terrible and broke immediately"},
			{Rating: 3, Text: "The box arrived on Tuesday."},
			{Rating: 5, Text: "Amazing display quality. Highly recommend."},
			{Rating: 4, Text: "Really good keyboard."},
			{Rating: 5, Text: "Love it, perfect for work."},
		},
	}
}

func TestItemChunker(t *testing.T) {
	t.Run("Minimal item yields only basic info", func(t *testing.T) {
		c := NewItemChunker(DefaultTargetSize, sentiment.NewAnalyzer())
		item := domain.Item{ID: "a", Title: "Thing", Category: "Misc", Price: 100, Rating: 4}

		chunks := c.Chunk(&item)

		require.Len(t, chunks, 1)
		assert.Equal(t, domain.ChunkTypeBasicInfo, chunks[0].Type)
		assert.Equal(t, "a", chunks[0].ItemID)
		assert.Equal(t, "Product: Thing\nCategory: Misc\nPrice: $100\nRating: 4/5", chunks[0].Text)
	})

	t.Run("Chunk order is fixed", func(t *testing.T) {
		c := NewItemChunker(80, sentiment.NewAnalyzer())
		item := sampleItem()

		chunks := c.Chunk(&item)

		var types []string
		for _, ch := range chunks {
			types = append(types, ch.Type)
		}
		assert.Equal(t, []string{
			"basic_info",
			"description_0", "description_1", "description_2",
			"specifications",
			"reviews_positive", "reviews_negative", "reviews_neutral",
		}, types)
	})

	t.Run("Specifications keep their order", func(t *testing.T) {
		c := NewItemChunker(DefaultTargetSize, sentiment.NewAnalyzer())
		item := sampleItem()

		chunks := c.Chunk(&item)

		var specs string
		for _, ch := range chunks {
			if ch.Type == domain.ChunkTypeSpecifications {
				specs = ch.Text
			}
		}
		assert.Equal(t, "Product Specifications:\n- Processor: Intel Core i7\n- RAM: 16GB DDR4\n", specs)
	})

	t.Run("Review groups carry at most three reviews", func(t *testing.T) {
		c := NewItemChunker(DefaultTargetSize, sentiment.NewAnalyzer())
		item := sampleItem()

		chunks := c.Chunk(&item)

		var positive string
		for _, ch := range chunks {
			if ch.Type == "reviews_positive" {
				positive = ch.Text
			}
		}
		require.NotEmpty(t, positive)
		assert.True(t, strings.HasPrefix(positive, "Positive Customer Reviews:\n"))
		assert.Equal(t, 3, strings.Count(positive, "Rating: "))
		assert.Contains(t, positive, "Rating: 5/5 - Excellent laptop!")
		assert.NotContains(t, positive, "Love it")
	})

	t.Run("Sentiment is cached and idempotent", func(t *testing.T) {
		cls := &countingClassifier{inner: sentiment.NewAnalyzer()}
		c := NewItemChunker(DefaultTargetSize, cls)
		item := sampleItem()

		first := c.Chunk(&item)
		calls := cls.calls
		labels := make([]domain.Sentiment, len(item.Reviews))
		for i, r := range item.Reviews {
			labels[i] = r.Sentiment
			assert.NotEmpty(t, r.Sentiment)
		}

		second := c.Chunk(&item)

		assert.Equal(t, len(item.Reviews), calls)
		assert.Equal(t, calls, cls.calls, "second chunking must not reclassify")
		for i, r := range item.Reviews {
			assert.Equal(t, labels[i], r.Sentiment)
		}
		assert.Equal(t, first, second)
		assert.Equal(t, domain.SentimentNegative, item.Reviews[1].Sentiment)
	})

	t.Run("Precomputed sentiment is respected", func(t *testing.T) {
		c := NewItemChunker(DefaultTargetSize, sentiment.NewAnalyzer())
		item := domain.Item{ID: "b", Title: "B", Reviews: []domain.Review{
			{Rating: 5, Text: "Great!", Sentiment: domain.SentimentNeutral},
		}}

		chunks := c.Chunk(&item)

		require.Len(t, chunks, 2)
		assert.Equal(t, "reviews_neutral", chunks[1].Type)
	})

	t.Run("Empty description and reviews yield no extra chunks", func(t *testing.T) {
		c := NewItemChunker(DefaultTargetSize, sentiment.NewAnalyzer())
		item := domain.Item{ID: "c", Title: "C", Description: "   ", Specs: []domain.Spec{}}

		assert.Len(t, c.Chunk(&item), 1)
	})
}

func TestSentencePacker(t *testing.T) {
	t.Run("One sentence per chunk with a tiny target", func(t *testing.T) {
		p := NewSentencePacker(10)

		pieces := p.Pack("Great product. Works well. Highly recommended.")

		assert.Equal(t, []string{"Great product", "Works well", "Highly recommended"}, pieces)
		for _, piece := range pieces {
			assert.NotEmpty(t, piece)
		}
	})

	t.Run("Short text stays whole", func(t *testing.T) {
		p := NewSentencePacker(200)

		assert.Equal(t, []string{"Great product. Works well."}, p.Pack("Great product. Works well."))
	})

	t.Run("Pieces respect the target unless a sentence is longer", func(t *testing.T) {
		target := 40
		p := NewSentencePacker(target)
		long := "This single sentence is deliberately much longer than the configured target size"
		text := "Short one. Another short one! " + long + ". Tail? End."

		pieces := p.Pack(text)

		require.NotEmpty(t, pieces)
		for _, piece := range pieces {
			if piece == long {
				continue
			}
			assert.LessOrEqual(t, utf8.RuneCountInString(piece), target, piece)
		}
		assert.Contains(t, pieces, long)
	})

	t.Run("Empty text", func(t *testing.T) {
		assert.Nil(t, NewSentencePacker(10).Pack(""))
	})

	t.Run("Non-positive target falls back to default", func(t *testing.T) {
		assert.Equal(t, DefaultTargetSize, NewSentencePacker(0).targetSize)
	})
}

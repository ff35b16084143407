package chunker

import (
	"fmt"
	"strconv"
	"strings"

	"shoprag/internal/domain"
)

// DefaultTargetSize is the default description chunk length in characters.
const DefaultTargetSize = 200

// maxReviewsPerGroup caps how many reviews one sentiment chunk carries.
const maxReviewsPerGroup = 3

// ItemChunker decomposes catalog items into basic info, description,
// specification and per-sentiment review chunks.
type ItemChunker struct {
	packer     *SentencePacker
	classifier domain.SentimentClassifier
}

func NewItemChunker(targetSize int, classifier domain.SentimentClassifier) *ItemChunker {
	return &ItemChunker{
		packer:     NewSentencePacker(targetSize),
		classifier: classifier,
	}
}

var _ domain.Chunker = (*ItemChunker)(nil)

// Chunk returns the chunks of item, always starting with basic_info.
// Missing review sentiments are computed and cached on the item.
func (c *ItemChunker) Chunk(item *domain.Item) []domain.Chunk {
	chunks := []domain.Chunk{{
		ItemID: item.ID,
		Type:   domain.ChunkTypeBasicInfo,
		Text:   basicInfo(item),
	}}

	for i, piece := range c.packer.Pack(item.Description) {
		chunks = append(chunks, domain.Chunk{
			ItemID: item.ID,
			Type:   domain.DescriptionChunkType(i),
			Text:   "Product Description: " + piece,
		})
	}

	if len(item.Specs) > 0 {
		var b strings.Builder
		b.WriteString("Product Specifications:\n")
		for _, s := range item.Specs {
			fmt.Fprintf(&b, "- %s: %s\n", s.Key, s.Value)
		}
		chunks = append(chunks, domain.Chunk{
			ItemID: item.ID,
			Type:   domain.ChunkTypeSpecifications,
			Text:   b.String(),
		})
	}

	if len(item.Reviews) == 0 {
		return chunks
	}
	c.annotate(item.Reviews)
	groups := make(map[domain.Sentiment][]domain.Review, len(domain.Sentiments))
	for _, r := range item.Reviews {
		groups[r.Sentiment] = append(groups[r.Sentiment], r)
	}
	for _, s := range domain.Sentiments {
		reviews := groups[s]
		if len(reviews) == 0 {
			continue
		}
		if len(reviews) > maxReviewsPerGroup {
			reviews = reviews[:maxReviewsPerGroup]
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%s Customer Reviews:\n", s)
		for _, r := range reviews {
			fmt.Fprintf(&b, "Rating: %d/5 - %s\n", r.Rating, r.Text)
		}
		chunks = append(chunks, domain.Chunk{
			ItemID: item.ID,
			Type:   domain.ReviewsChunkType(s),
			Text:   b.String(),
		})
	}
	return chunks
}

// annotate fills in missing sentiment labels. Unknown labels are reclassified.
func (c *ItemChunker) annotate(reviews []domain.Review) {
	for i := range reviews {
		switch reviews[i].Sentiment {
		case domain.SentimentPositive, domain.SentimentNegative, domain.SentimentNeutral:
			continue
		}
		reviews[i].Sentiment = c.classifier.Classify(reviews[i].Text)
	}
}

func basicInfo(item *domain.Item) string {
	return fmt.Sprintf("Product: %s\nCategory: %s\nPrice: $%s\nRating: %s/5",
		item.Title, item.Category, formatNumber(item.Price), formatNumber(item.Rating))
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

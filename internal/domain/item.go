package domain

import (
	"strconv"
	"strings"
)

// Sentiment is the polarity label attached to a review.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNegative Sentiment = "Negative"
	SentimentNeutral  Sentiment = "Neutral"
)

// Sentiments lists every label in the order review chunks are emitted.
var Sentiments = []Sentiment{SentimentPositive, SentimentNegative, SentimentNeutral}

// Spec is one key/value line of an item's specification sheet.
type Spec struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Review is a single customer review. Sentiment is empty until computed.
type Review struct {
	Rating    int       `json:"rating" yaml:"rating"`
	Text      string    `json:"text" yaml:"text"`
	Sentiment Sentiment `json:"sentiment,omitempty" yaml:"sentiment,omitempty"`
}

// Item is a catalog entry. ID is unique within a catalog snapshot.
type Item struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Category    string   `json:"category" yaml:"category"`
	Price       float64  `json:"price" yaml:"price"`
	Rating      float64  `json:"rating" yaml:"rating"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Specs       []Spec   `json:"specs,omitempty" yaml:"specs,omitempty"`
	Reviews     []Review `json:"reviews,omitempty" yaml:"reviews,omitempty"`
}

// Chunk types emitted by the item chunker.
const (
	ChunkTypeBasicInfo      = "basic_info"
	ChunkTypeSpecifications = "specifications"
	chunkTypeDescription    = "description_"
	chunkTypeReviews        = "reviews_"
)

// DescriptionChunkType returns the chunk type of the n-th description chunk.
func DescriptionChunkType(n int) string {
	return chunkTypeDescription + strconv.Itoa(n)
}

// ReviewsChunkType returns the chunk type for a sentiment group.
func ReviewsChunkType(s Sentiment) string {
	return chunkTypeReviews + strings.ToLower(string(s))
}

// Chunk is a bounded text fragment derived from one item.
type Chunk struct {
	ItemID string
	Type   string
	Text   string
}

// Metadata is stored next to every indexed vector.
type Metadata struct {
	ItemID    string  `json:"item_id"`
	ChunkType string  `json:"chunk_type"`
	Title     string  `json:"title"`
	Category  string  `json:"category"`
	Price     float64 `json:"price"`
	Rating    float64 `json:"rating"`
}

// Record is one entry of the vector index.
type Record struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata Metadata
}

// RecordID returns the index key of the n-th chunk of an item.
func RecordID(itemID string, n int) string {
	return itemID + "_chunk_" + strconv.Itoa(n)
}

// Hit is a record returned by a nearest-neighbour query.
// Distance is the cosine distance (1 - cosine similarity).
type Hit struct {
	Record   Record
	Distance float64
}

// Recommendation pairs an item with its aggregated relevance score.
type Recommendation struct {
	Item  Item    `json:"item"`
	Score float64 `json:"score"`
}

package domain

import "context"

// SentimentClassifier labels free text with a polarity.
type SentimentClassifier interface {
	Classify(text string) Sentiment
}

// Chunker splits catalog items into chunks suitable for retrieval indexing.
// Implementations may annotate the item's reviews with a cached sentiment.
type Chunker interface {
	Chunk(item *Item) []Chunk
}

// Embedder converts free text into dense vectors.
// Prepare returns an embedder ready to encode texts drawn from the corpus;
// corpus-fitted implementations return a new instance and leave the receiver
// untouched, remote or model-backed implementations may return themselves.
type Embedder interface {
	Name() string
	Prepare(ctx context.Context, corpus []string) (Embedder, error)
	Dimension() int
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore holds indexed records and answers nearest-neighbour queries.
// Rebuild replaces the whole record set atomically: on failure the previous
// contents stay searchable.
type VectorStore interface {
	Rebuild(ctx context.Context, records []Record) error
	Query(ctx context.Context, vector []float32, topK int) ([]Hit, error)
	Count(ctx context.Context) (int, error)
}

// Generator produces free text from a prompt using an external backend.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}

// Package tfidf is an in-process embedder fitted to the indexed chunks.
// It needs no model files or network access, which makes it the default.
package tfidf

import (
	"context"
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"

	"shoprag/internal/domain"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`)

// Embedder implements a TF-IDF vectorizer with sublinear term frequency.
// A fitted Embedder is immutable; Prepare always returns a fresh instance.
type Embedder struct {
	vocabulary map[string]int
	idf        []float64
	stopwords  map[string]struct{}
}

var _ domain.Embedder = (*Embedder)(nil)

// NewEmbedder creates an unfitted TF-IDF embedder.
func NewEmbedder() *Embedder {
	return &Embedder{stopwords: defaultStopwords()}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "tfidf" }

// Prepare fits vocabulary and smoothed IDF weights to corpus.
func (e *Embedder) Prepare(_ context.Context, corpus []string) (domain.Embedder, error) {
	if len(corpus) == 0 {
		return nil, errors.New("empty corpus for TF-IDF prepare")
	}
	df := make(map[string]int)
	for _, text := range corpus {
		for term := range e.termCounts(text) {
			df[term]++
		}
	}
	if len(df) == 0 {
		return nil, errors.New("no tokens found in corpus; ensure tokenizer supports your language")
	}

	// sorted so the same corpus always yields the same layout
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	fitted := &Embedder{
		vocabulary: make(map[string]int, len(terms)),
		idf:        make([]float64, len(terms)),
		stopwords:  e.stopwords,
	}
	n := float64(len(corpus))
	for i, term := range terms {
		fitted.vocabulary[term] = i
		fitted.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return fitted, nil
}

// Dimension is the vocabulary size, or 0 before Prepare.
func (e *Embedder) Dimension() int { return len(e.idf) }

// Embed encodes every text, in order. Texts sharing no term with the
// vocabulary encode to the zero vector.
func (e *Embedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.idf == nil {
		return nil, domain.ErrNotPrepared
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.vector(text)
	}
	return out, nil
}

func (e *Embedder) vector(text string) []float32 {
	weights := make([]float64, len(e.idf))
	for term, count := range e.termCounts(text) {
		if idx, ok := e.vocabulary[term]; ok {
			weights[idx] = (1 + math.Log(float64(count))) * e.idf[idx]
		}
	}
	norm := 0.0
	for _, w := range weights {
		norm += w * w
	}
	vec := make([]float32, len(weights))
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i, w := range weights {
		vec[i] = float32(w / norm)
	}
	return vec
}

// termCounts tokenizes text and counts the non-stopword terms.
func (e *Embedder) termCounts(text string) map[string]int {
	counts := make(map[string]int)
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if _, stop := e.stopwords[tok]; stop {
			continue
		}
		counts[tok]++
	}
	return counts
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		"i", "my", "me", "we", "you", "your", "its", "has", "have", "had", "do", "does", "did",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

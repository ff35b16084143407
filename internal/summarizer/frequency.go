// Package summarizer condenses item descriptions for generation prompts.
package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"shoprag/internal/domain"
)

// DefaultMaxSentences is used when a caller asks for a non-positive count.
const DefaultMaxSentences = 2

// leadBonus favours the opening sentence, which usually carries the pitch.
const leadBonus = 0.1

var (
	sentencePattern = regexp.MustCompile(`[^.!?]+(?:[.!?]+|$)`)
	tokenPattern    = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`)
)

// FrequencySummarizer is an extractive summarizer: sentences are scored by
// the normalised frequency of their content words.
type FrequencySummarizer struct {
	stopwords map[string]struct{}
}

var _ domain.Summarizer = (*FrequencySummarizer)(nil)

func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{stopwords: defaultStopwords()}
}

// Summarize returns the maxSentences best sentences of text in their
// original order. Text with no more sentences than that is returned whole.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	sentences := splitSentences(text)
	if len(sentences) <= maxSentences {
		return strings.Join(sentences, " "), nil
	}

	terms := make([][]string, len(sentences))
	for i, sent := range sentences {
		terms[i] = s.contentTerms(sent)
	}
	weights := termWeights(terms)

	order := make([]int, len(sentences))
	scores := make([]float64, len(sentences))
	for i := range sentences {
		order[i] = i
		scores[i] = sentenceScore(terms[i], weights)
	}
	scores[0] += leadBonus
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	picked := order[:maxSentences]
	sort.Ints(picked)
	out := make([]string, len(picked))
	for i, idx := range picked {
		out[i] = sentences[idx]
	}
	return strings.Join(out, " "), nil
}

func splitSentences(text string) []string {
	var out []string
	for _, sent := range sentencePattern.FindAllString(text, -1) {
		if sent = strings.TrimSpace(sent); sent != "" {
			out = append(out, sent)
		}
	}
	return out
}

func (s *FrequencySummarizer) contentTerms(sentence string) []string {
	var out []string
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(sentence), -1) {
		if _, stop := s.stopwords[tok]; !stop {
			out = append(out, tok)
		}
	}
	return out
}

// termWeights counts terms across all sentences, scaled so the most
// frequent term weighs 1.
func termWeights(terms [][]string) map[string]float64 {
	weights := make(map[string]float64)
	top := 0.0
	for _, sent := range terms {
		for _, t := range sent {
			weights[t]++
			top = math.Max(top, weights[t])
		}
	}
	for t, w := range weights {
		weights[t] = w / top
	}
	return weights
}

// sentenceScore damps long sentences by the square root of their length.
func sentenceScore(terms []string, weights map[string]float64) float64 {
	if len(terms) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range terms {
		sum += weights[t]
	}
	return sum / math.Sqrt(float64(len(terms)))
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		"i", "my", "you", "your", "its", "has", "have",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

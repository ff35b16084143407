// Package narrator writes the prose that accompanies recommendations and
// item comparisons. It asks a generative backend first and falls back to
// deterministic templates when the backend is missing, slow or failing.
package narrator

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"shoprag/internal/catalog"
	"shoprag/internal/domain"
)

const (
	// DefaultTimeout bounds a single backend call.
	DefaultTimeout = 30 * time.Second

	// DefaultSummarySentences is the summary length used in prompts.
	DefaultSummarySentences = 2

	descriptionLimit = 200
	fallbackTopN     = 3
)

// Narrator produces explanations and comparisons.
type Narrator struct {
	generator  domain.Generator
	summarizer domain.Summarizer
	logger     *slog.Logger
	timeout    time.Duration
	sentences  int
}

// New creates a narrator. generator and summarizer may be nil; without a
// generator every call uses the fallback templates.
func New(generator domain.Generator, summarizer domain.Summarizer, logger *slog.Logger) *Narrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Narrator{
		generator:  generator,
		summarizer: summarizer,
		logger:     logger,
		timeout:    DefaultTimeout,
		sentences:  DefaultSummarySentences,
	}
}

// SetTimeout changes the backend call bound. Non-positive values are ignored.
func (n *Narrator) SetTimeout(d time.Duration) {
	if d > 0 {
		n.timeout = d
	}
}

// SetSummarySentences changes how many sentences item summaries keep.
func (n *Narrator) SetSummarySentences(count int) {
	if count > 0 {
		n.sentences = count
	}
}

// Explain describes why recs match query. It returns "" when recs is empty.
func (n *Narrator) Explain(ctx context.Context, query string, recs []domain.Recommendation, preferences string) string {
	if len(recs) == 0 {
		return ""
	}
	if out, ok := n.generate(ctx, n.explanationPrompt(query, recs, preferences)); ok {
		return out
	}
	return FallbackExplanation(query, recs, preferences)
}

// Compare contrasts two items.
func (n *Narrator) Compare(ctx context.Context, a, b domain.Item) string {
	if out, ok := n.generate(ctx, n.comparisonPrompt(a, b)); ok {
		return out
	}
	return FallbackComparison(a, b)
}

type generation struct {
	text string
	err  error
}

// generate runs the backend in its own goroutine so a stuck call only costs
// the timeout. The echoed prompt is removed from the output.
func (n *Narrator) generate(ctx context.Context, prompt string) (string, bool) {
	if n.generator == nil {
		return "", false
	}
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	done := make(chan generation, 1)
	go func() {
		text, err := n.generator.Generate(ctx, prompt)
		done <- generation{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		n.logger.Warn("generation timed out, using fallback", "backend", n.generator.Name(), "error", ctx.Err())
		return "", false
	case res := <-done:
		if res.err != nil {
			n.logger.Debug("generation failed, using fallback", "backend", n.generator.Name(), "error", res.err)
			return "", false
		}
		text := strings.TrimSpace(strings.ReplaceAll(res.text, prompt, ""))
		if text == "" {
			n.logger.Debug("generation returned no text, using fallback", "backend", n.generator.Name())
			return "", false
		}
		return text, true
	}
}

func (n *Narrator) explanationPrompt(query string, recs []domain.Recommendation, preferences string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User Query: %s\n", query)
	if preferences != "" {
		fmt.Fprintf(&b, "User Preferences: %s\n", preferences)
	}
	b.WriteString("Top Recommended Products:\n")
	for i, rec := range recs {
		it := rec.Item
		fmt.Fprintf(&b, "%d. %s - %s (Relevance: %.2f)\n", i+1, it.Title, catalog.FormatPrice(it.Price), rec.Score)
		fmt.Fprintf(&b, "   Category: %s, Rating: %s/5\n", it.Category, formatRating(it.Rating))
		if s := n.summary(it); s != "" {
			fmt.Fprintf(&b, "   Summary: %s\n", s)
		}
	}
	return "Based on the user's query and the recommended products, provide a helpful explanation of why these products were recommended. " +
		"Keep it concise and focus on how they match the user's needs.\n\n" +
		b.String() + "\nExplanation:"
}

func (n *Narrator) comparisonPrompt(a, b domain.Item) string {
	var sb strings.Builder
	for i, it := range []domain.Item{a, b} {
		fmt.Fprintf(&sb, "\nProduct %d: %s\n", i+1, it.Title)
		fmt.Fprintf(&sb, "Price: %s\n", catalog.FormatPrice(it.Price))
		fmt.Fprintf(&sb, "Rating: %s/5\n", formatRating(it.Rating))
		fmt.Fprintf(&sb, "Category: %s\n", it.Category)
		fmt.Fprintf(&sb, "Description: %s\n", n.summary(it))
	}
	return "Compare these two products and highlight their key differences, pros and cons. " +
		"Focus on helping a customer decide between them.\n" +
		sb.String() + "\nComparison Analysis:"
}

// summary condenses the description, or truncates it when no summarizer is set.
func (n *Narrator) summary(it domain.Item) string {
	if strings.TrimSpace(it.Description) == "" {
		return ""
	}
	if n.summarizer != nil {
		s, err := n.summarizer.Summarize(it.Description, n.sentences)
		if err == nil && s != "" {
			return s
		}
		n.logger.Debug("summarizer failed, truncating description", "item", it.ID, "error", err)
	}
	return truncate(it.Description, descriptionLimit)
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}

func formatRating(r float64) string {
	return strconv.FormatFloat(r, 'f', -1, 64)
}

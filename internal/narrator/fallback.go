package narrator

import (
	"fmt"
	"math"
	"strings"

	"shoprag/internal/catalog"
	"shoprag/internal/domain"
)

const (
	highRelevance   = 0.8
	excellentRating = 4.5
)

// FallbackExplanation renders the template explanation for the first three
// recommendations. Output depends only on the arguments.
func FallbackExplanation(query string, recs []domain.Recommendation, preferences string) string {
	if len(recs) == 0 {
		return "No recommendations found for your query."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Based on your search for '%s', here are the top recommendations:\n\n", query)

	prefs := strings.Fields(strings.ToLower(preferences))
	for i, rec := range recs {
		if i == fallbackTopN {
			break
		}
		it := rec.Item
		fmt.Fprintf(&b, "**%d. %s** (Relevance: %.2f)\n", i+1, it.Title, rec.Score)
		fmt.Fprintf(&b, "- Price: %s\n", catalog.FormatPrice(it.Price))
		fmt.Fprintf(&b, "- Rating: %s/5\n", formatRating(it.Rating))
		fmt.Fprintf(&b, "- Category: %s\n", it.Category)

		var reasons []string
		if rec.Score > highRelevance {
			reasons = append(reasons, "highly relevant to your search")
		}
		if it.Rating >= excellentRating {
			reasons = append(reasons, "excellent customer ratings")
		}
		if matchesPreferences(it.Description, prefs) {
			reasons = append(reasons, "matches your stated preferences")
		}
		if len(reasons) > 0 {
			fmt.Fprintf(&b, "- Recommended because: %s\n", strings.Join(reasons, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func matchesPreferences(description string, prefs []string) bool {
	desc := strings.ToLower(description)
	for _, p := range prefs {
		if strings.Contains(desc, p) {
			return true
		}
	}
	return false
}

// FallbackComparison renders the template comparison of two items.
func FallbackComparison(a, b domain.Item) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**Comparison: %s vs %s**\n\n", a.Title, b.Title)

	switch {
	case a.Price < b.Price:
		fmt.Fprintf(&sb, "**Price**: %s is %s cheaper\n", a.Title, catalog.FormatPrice(priceDiff(a.Price, b.Price)))
	case a.Price > b.Price:
		fmt.Fprintf(&sb, "**Price**: %s is %s cheaper\n", b.Title, catalog.FormatPrice(priceDiff(a.Price, b.Price)))
	default:
		fmt.Fprintf(&sb, "**Price**: Both products are priced equally at %s\n", catalog.FormatPrice(a.Price))
	}

	switch {
	case a.Rating > b.Rating:
		fmt.Fprintf(&sb, "**Rating**: %s has higher customer satisfaction (%s vs %s)\n", a.Title, formatRating(a.Rating), formatRating(b.Rating))
	case a.Rating < b.Rating:
		fmt.Fprintf(&sb, "**Rating**: %s has higher customer satisfaction (%s vs %s)\n", b.Title, formatRating(b.Rating), formatRating(a.Rating))
	default:
		fmt.Fprintf(&sb, "**Rating**: Both products have equal ratings of %s/5\n", formatRating(a.Rating))
	}

	if a.Category != b.Category {
		fmt.Fprintf(&sb, "**Category**: Different categories - %s vs %s\n", a.Category, b.Category)
	}

	sb.WriteString("\n**Recommendation:**\n")
	switch {
	case a.Rating > b.Rating && a.Price <= b.Price:
		fmt.Fprintf(&sb, "%s offers better value with higher rating and equal/lower price", a.Title)
	case b.Rating > a.Rating && b.Price <= a.Price:
		fmt.Fprintf(&sb, "%s offers better value with higher rating and equal/lower price", b.Title)
	default:
		sb.WriteString("Both products have their merits. Consider your budget and specific feature needs.")
	}
	return sb.String()
}

// priceDiff is the absolute difference rounded to cents.
func priceDiff(x, y float64) float64 {
	return math.Round(math.Abs(x-y)*100) / 100
}

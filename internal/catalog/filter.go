package catalog

import (
	"fmt"
	"sort"
	"strings"

	"shoprag/internal/domain"
)

// Filter narrows a catalog. Zero values disable a bound; an empty
// Categories list accepts every category.
type Filter struct {
	Categories []string
	MinPrice   float64
	MaxPrice   float64
	MinRating  float64
}

// Match reports whether item passes every bound.
func (f Filter) Match(item domain.Item) bool {
	if len(f.Categories) > 0 {
		ok := false
		for _, c := range f.Categories {
			if strings.EqualFold(c, item.Category) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.MinPrice > 0 && item.Price < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && item.Price > f.MaxPrice {
		return false
	}
	return item.Rating >= f.MinRating
}

// Apply returns the matching items in their original order.
func (f Filter) Apply(items []domain.Item) []domain.Item {
	out := make([]domain.Item, 0, len(items))
	for _, it := range items {
		if f.Match(it) {
			out = append(out, it)
		}
	}
	return out
}

// SortKey names an ordering for catalog listings.
type SortKey string

const (
	SortByRating    SortKey = "rating"
	SortByPriceAsc  SortKey = "price"
	SortByPriceDesc SortKey = "price-desc"
	SortByTitle     SortKey = "title"
)

// Sort returns a sorted copy of items.
func Sort(items []domain.Item, key SortKey) ([]domain.Item, error) {
	out := append([]domain.Item(nil), items...)
	var less func(a, b domain.Item) bool
	switch key {
	case SortByRating, "":
		less = func(a, b domain.Item) bool { return a.Rating > b.Rating }
	case SortByPriceAsc:
		less = func(a, b domain.Item) bool { return a.Price < b.Price }
	case SortByPriceDesc:
		less = func(a, b domain.Item) bool { return a.Price > b.Price }
	case SortByTitle:
		less = func(a, b domain.Item) bool { return a.Title < b.Title }
	default:
		return nil, fmt.Errorf("unknown sort key %q", key)
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out, nil
}

// CategoryCount is one row of Stats.Categories.
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Stats summarises a catalog.
type Stats struct {
	Items      int             `json:"items"`
	Reviews    int             `json:"reviews"`
	Categories []CategoryCount `json:"categories"`
	MinPrice   float64         `json:"min_price"`
	MaxPrice   float64         `json:"max_price"`
	MeanRating float64         `json:"mean_rating"`
}

// Summarize computes catalog statistics. Categories are sorted by name.
func Summarize(items []domain.Item) Stats {
	st := Stats{Items: len(items)}
	if len(items) == 0 {
		return st
	}
	counts := map[string]int{}
	st.MinPrice = items[0].Price
	st.MaxPrice = items[0].Price
	total := 0.0
	for _, it := range items {
		counts[it.Category]++
		st.Reviews += len(it.Reviews)
		if it.Price < st.MinPrice {
			st.MinPrice = it.Price
		}
		if it.Price > st.MaxPrice {
			st.MaxPrice = it.Price
		}
		total += it.Rating
	}
	st.MeanRating = total / float64(len(items))
	for _, name := range Categories(items) {
		st.Categories = append(st.Categories, CategoryCount{Name: name, Count: counts[name]})
	}
	return st
}

// Package catalog loads item files, applies defaults and offers the
// filtering and summary helpers used by the command line and the TUI.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"shoprag/internal/domain"
)

// DefaultRating is assigned to items that carry no rating.
const DefaultRating = 4.0

var printer = message.NewPrinter(language.English)

// FormatPrice renders a price with a dollar sign and thousands separators.
func FormatPrice(price float64) string {
	return printer.Sprintf("$%.2f", price)
}

// rawItem mirrors the file format. Specs may be a mapping (order is kept)
// or a list of key/value pairs.
type rawItem struct {
	ID          string          `yaml:"id"`
	Title       string          `yaml:"title"`
	Category    string          `yaml:"category"`
	Price       float64         `yaml:"price"`
	Rating      *float64        `yaml:"rating"`
	Description string          `yaml:"description"`
	Specs       yaml.Node       `yaml:"specs"`
	Reviews     []domain.Review `yaml:"reviews"`
}

func (r *rawItem) toItem() (domain.Item, error) {
	item := domain.Item{
		ID:          r.ID,
		Title:       r.Title,
		Category:    r.Category,
		Price:       r.Price,
		Rating:      -1,
		Description: r.Description,
		Reviews:     r.Reviews,
	}
	if r.Rating != nil {
		item.Rating = *r.Rating
	}
	specs, err := decodeSpecs(&r.Specs)
	if err != nil {
		return item, fmt.Errorf("item %q specs: %w", r.Title, err)
	}
	item.Specs = specs
	return item, nil
}

func decodeSpecs(n *yaml.Node) ([]domain.Spec, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.MappingNode:
		specs := make([]domain.Spec, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			specs = append(specs, domain.Spec{Key: n.Content[i].Value, Value: n.Content[i+1].Value})
		}
		return specs, nil
	case yaml.SequenceNode:
		var specs []domain.Spec
		if err := n.Decode(&specs); err != nil {
			return nil, err
		}
		return specs, nil
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return nil, nil
		}
	}
	return nil, errors.New("expected a mapping or a list")
}

// Load reads every .json, .yaml and .yml file in dir. A file holds either a
// single item or a list of items. The result is normalized.
func Load(dir string) ([]domain.Item, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading catalog directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".yaml", ".yml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var items []domain.Item
	for _, name := range names {
		path := filepath.Join(dir, name)
		fileItems, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		items = append(items, fileItems...)
	}
	return Normalize(items), nil
}

// LoadFile reads the items of one file without normalizing them.
func LoadFile(path string) ([]domain.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]

	var raws []rawItem
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&raws); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
	case yaml.MappingNode:
		var raw rawItem
		if err := root.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
		raws = append(raws, raw)
	default:
		return nil, fmt.Errorf("decoding %s: expected an item or a list of items", path)
	}

	items := make([]domain.Item, 0, len(raws))
	for i := range raws {
		item, err := raws[i].toItem()
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// Normalize fills defaults: a missing ID is derived from the title, a
// missing rating (negative) becomes DefaultRating and reviews are never nil.
// Repeated IDs get a numeric suffix so IDs stay unique.
func Normalize(items []domain.Item) []domain.Item {
	out := make([]domain.Item, len(items))
	used := make(map[string]bool, len(items))
	next := make(map[string]int)
	for i, item := range items {
		if item.ID == "" {
			item.ID = Slug(item.Title)
		}
		if item.ID == "" {
			item.ID = fmt.Sprintf("item_%d", i+1)
		}
		if used[item.ID] {
			base := item.ID
			n := max(next[base], 2)
			for used[fmt.Sprintf("%s_%d", base, n)] {
				n++
			}
			item.ID = fmt.Sprintf("%s_%d", base, n)
			next[base] = n + 1
		}
		used[item.ID] = true
		if item.Rating < 0 {
			item.Rating = DefaultRating
		}
		if item.Rating > 5 {
			item.Rating = 5
		}
		if item.Price < 0 {
			item.Price = 0
		}
		if item.Reviews == nil {
			item.Reviews = []domain.Review{}
		}
		out[i] = item
	}
	return out
}

// Slug lowercases s and joins its letter and digit runs with underscores.
func Slug(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}

// Categories returns the distinct categories in sorted order.
func Categories(items []domain.Item) []string {
	set := map[string]struct{}{}
	for _, it := range items {
		set[it.Category] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Find returns the item with the given ID.
func Find(items []domain.Item, id string) (domain.Item, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return domain.Item{}, false
}

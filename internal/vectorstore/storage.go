// Package vectorstore holds helpers shared by the vector index backends.
package vectorstore

import (
	"fmt"
	"math"
	"sort"

	"shoprag/internal/domain"
)

// DefaultTopK is used when a query asks for a non-positive number of hits.
const DefaultTopK = 5

// Validate checks that every record carries a non-empty vector and that all
// vectors share one dimension. It returns that dimension.
func Validate(records []domain.Record) (int, error) {
	dimension := 0
	for i, r := range records {
		if r.ID == "" {
			return 0, fmt.Errorf("record %d has no id", i)
		}
		if len(r.Vector) == 0 {
			return 0, fmt.Errorf("record %s has an empty vector", r.ID)
		}
		if dimension == 0 {
			dimension = len(r.Vector)
			continue
		}
		if len(r.Vector) != dimension {
			return 0, fmt.Errorf("record %s: %w (%d != %d)", r.ID, domain.ErrDimensionMismatch, len(r.Vector), dimension)
		}
	}
	return dimension, nil
}

// CosineDistance returns 1 - cos(a, b). A zero vector has similarity 0.
func CosineDistance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	for i := n; i < len(a); i++ {
		na += float64(a[i]) * float64(a[i])
	}
	for i := n; i < len(b); i++ {
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// TopK scores every record against vector and returns the k nearest hits in
// ascending distance. Ties keep record order.
func TopK(records []domain.Record, vector []float32, k int) []domain.Hit {
	if k <= 0 {
		k = DefaultTopK
	}
	hits := make([]domain.Hit, len(records))
	for i, r := range records {
		hits[i] = domain.Hit{Record: r, Distance: CosineDistance(r.Vector, vector)}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k]
}

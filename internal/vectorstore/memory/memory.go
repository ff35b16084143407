package memory

import (
	"context"
	"sync"

	"shoprag/internal/domain"
	"shoprag/internal/vectorstore"
)

// Storage is a simple in-memory vector store using brute-force cosine similarity.
// Rebuild validates and copies the new records before swapping them in.
type Storage struct {
	mu      sync.RWMutex
	records []domain.Record
}

var _ domain.VectorStore = (*Storage)(nil)

func NewStorage() *Storage { return &Storage{} }

func (s *Storage) Rebuild(ctx context.Context, records []domain.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := vectorstore.Validate(records); err != nil {
		return err
	}
	staged := make([]domain.Record, len(records))
	for i, r := range records {
		r.Vector = append([]float32(nil), r.Vector...)
		staged[i] = r
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = staged
	return nil
}

func (s *Storage) Query(ctx context.Context, vector []float32, topK int) ([]domain.Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	records := s.records
	s.mu.RUnlock()
	return vectorstore.TopK(records, vector, topK), nil
}

func (s *Storage) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

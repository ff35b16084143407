package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"shoprag/internal/domain"
	"shoprag/internal/vectorstore"
)

// pointNamespace derives stable point UUIDs from record IDs.
var pointNamespace = uuid.MustParse("6f1c7c52-3d0e-4c55-9a51-0e4c2b9f7a10")

// Storage is a minimal REST client to Qdrant.
// Queries go through an alias; Rebuild fills a fresh collection and then
// repoints the alias, so searches never see a half-written collection.
type Storage struct {
	url    string
	apiKey string
	alias  string
	client *http.Client
}

var _ domain.VectorStore = (*Storage)(nil)

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	alias := cfg.Collection
	if alias == "" {
		alias = "shoprag"
	}
	return &Storage{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		alias:  alias,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *Storage) Rebuild(ctx context.Context, records []domain.Record) error {
	dimension, err := vectorstore.Validate(records)
	if err != nil {
		return err
	}
	if dimension == 0 {
		// Qdrant rejects zero-sized collections; an empty index is just an alias removal
		previous, err := s.currentCollection(ctx)
		if err != nil {
			return err
		}
		if previous == "" {
			return nil
		}
		if err := s.updateAliases(ctx, []any{deleteAlias(s.alias)}); err != nil {
			return err
		}
		s.dropCollection(ctx, previous)
		return nil
	}

	staging := fmt.Sprintf("%s_%s", s.alias, uuid.NewString())
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if err := s.doJSON(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s", s.url, staging), body, nil); err != nil {
		return err
	}

	if err := s.upsert(ctx, staging, records); err != nil {
		s.dropCollection(ctx, staging)
		return err
	}

	previous, err := s.currentCollection(ctx)
	if err != nil {
		s.dropCollection(ctx, staging)
		return err
	}

	actions := []any{}
	if previous != "" {
		actions = append(actions, deleteAlias(s.alias))
	}
	actions = append(actions, map[string]any{
		"create_alias": map[string]any{
			"collection_name": staging,
			"alias_name":      s.alias,
		},
	})
	if err := s.updateAliases(ctx, actions); err != nil {
		s.dropCollection(ctx, staging)
		return err
	}

	if previous != "" {
		s.dropCollection(ctx, previous)
	}
	return nil
}

func (s *Storage) upsert(ctx context.Context, collection string, records []domain.Record) error {
	points := make([]map[string]any, len(records))
	for i, r := range records {
		points[i] = map[string]any{
			"id":     uuid.NewSHA1(pointNamespace, []byte(r.ID)).String(),
			"vector": r.Vector,
			"payload": map[string]any{
				"record_id":  r.ID,
				"position":   i,
				"text":       r.Text,
				"item_id":    r.Metadata.ItemID,
				"chunk_type": r.Metadata.ChunkType,
				"title":      r.Metadata.Title,
				"category":   r.Metadata.Category,
				"price":      r.Metadata.Price,
				"rating":     r.Metadata.Rating,
			},
		}
	}
	body := map[string]any{"points": points}
	return s.doJSON(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, collection), body, nil)
}

type payload struct {
	RecordID  string  `json:"record_id"`
	Text      string  `json:"text"`
	ItemID    string  `json:"item_id"`
	ChunkType string  `json:"chunk_type"`
	Title     string  `json:"title"`
	Category  string  `json:"category"`
	Price     float64 `json:"price"`
	Rating    float64 `json:"rating"`
}

func (s *Storage) Query(ctx context.Context, vector []float32, topK int) ([]domain.Hit, error) {
	if topK <= 0 {
		topK = vectorstore.DefaultTopK
	}
	active, err := s.currentCollection(ctx)
	if err != nil {
		return nil, err
	}
	if active == "" {
		return nil, nil
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
		"with_vector":  true,
	}
	var resp struct {
		Result []struct {
			Score   float64   `json:"score"`
			Payload payload   `json:"payload"`
			Vector  []float32 `json:"vector"`
		} `json:"result"`
	}
	if err := s.doJSON(ctx, http.MethodPost, fmt.Sprintf("%s/collections/%s/points/search", s.url, s.alias), req, &resp); err != nil {
		return nil, err
	}
	hits := make([]domain.Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		p := r.Payload
		hits = append(hits, domain.Hit{
			Record: domain.Record{
				ID:     p.RecordID,
				Vector: r.Vector,
				Text:   p.Text,
				Metadata: domain.Metadata{
					ItemID:    p.ItemID,
					ChunkType: p.ChunkType,
					Title:     p.Title,
					Category:  p.Category,
					Price:     p.Price,
					Rating:    p.Rating,
				},
			},
			// Qdrant reports cosine similarity for Cosine collections
			Distance: 1 - r.Score,
		})
	}
	return hits, nil
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	active, err := s.currentCollection(ctx)
	if err != nil || active == "" {
		return 0, err
	}
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	body := map[string]any{"exact": true}
	if err := s.doJSON(ctx, http.MethodPost, fmt.Sprintf("%s/collections/%s/points/count", s.url, s.alias), body, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

// currentCollection returns the collection the alias points at, or "".
func (s *Storage) currentCollection(ctx context.Context) (string, error) {
	var resp struct {
		Result struct {
			Aliases []struct {
				AliasName      string `json:"alias_name"`
				CollectionName string `json:"collection_name"`
			} `json:"aliases"`
		} `json:"result"`
	}
	if err := s.doJSON(ctx, http.MethodGet, fmt.Sprintf("%s/aliases", s.url), nil, &resp); err != nil {
		return "", err
	}
	for _, a := range resp.Result.Aliases {
		if a.AliasName == s.alias {
			return a.CollectionName, nil
		}
	}
	return "", nil
}

func (s *Storage) updateAliases(ctx context.Context, actions []any) error {
	body := map[string]any{"actions": actions}
	return s.doJSON(ctx, http.MethodPost, fmt.Sprintf("%s/collections/aliases", s.url), body, nil)
}

func deleteAlias(alias string) map[string]any {
	return map[string]any{"delete_alias": map[string]any{"alias_name": alias}}
}

// dropCollection is best-effort; a leftover collection is harmless.
func (s *Storage) dropCollection(ctx context.Context, name string) {
	_ = s.doJSON(ctx, http.MethodDelete, fmt.Sprintf("%s/collections/%s", s.url, name), nil, nil)
}

func (s *Storage) doJSON(ctx context.Context, method, url string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("qdrant marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		dec := json.NewDecoder(resp.Body)
		return dec.Decode(out)
	}
	return nil
}

package docstore

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store with the same semantics as the Postgres
// implementation. It backs engine tests and local development.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[memKey]Document

	// now is replaceable so tests can pin timestamps.
	now func() time.Time
}

type memKey struct {
	tenantID   uuid.UUID
	collection string
	id         uuid.UUID
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[memKey]Document),
		now:  time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, collection string, tenantID, id uuid.UUID) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[memKey{tenantID: tenantID, collection: collection, id: id}]
	if !ok {
		return Document{}, ErrNotFound
	}
	return cloneDoc(doc), nil
}

func (s *MemoryStore) Query(_ context.Context, collection string, tenantID uuid.UUID, q Query) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type match struct {
		doc     Document
		payload map[string]any
	}

	matches := make([]match, 0)
	for key, doc := range s.docs {
		if key.tenantID != tenantID || key.collection != collection {
			continue
		}

		var payload map[string]any
		if err := json.Unmarshal(doc.Data, &payload); err != nil {
			continue
		}

		if !matchesFilters(payload, q.Filters) {
			continue
		}
		matches = append(matches, match{doc: cloneDoc(doc), payload: payload})
	}

	if len(q.OrderBy) > 0 {
		order := q.OrderBy
		sort.SliceStable(matches, func(i, j int) bool {
			for _, o := range order {
				cmp, ok := compareValues(matches[i].payload[o.Field], matches[j].payload[o.Field])
				if !ok || cmp == 0 {
					continue
				}
				if o.Desc {
					return cmp > 0
				}
				return cmp < 0
			}
			return false
		})
	}

	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}

	docs := make([]Document, 0, len(matches))
	for _, m := range matches {
		docs = append(docs, m.doc)
	}
	return docs, nil
}

// BatchWrite applies all operations under one lock acquisition; partial
// application is impossible because no operation can fail once validated.
func (s *MemoryStore) BatchWrite(_ context.Context, ops []WriteOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, op := range ops {
		key := memKey{tenantID: op.TenantID, collection: op.Collection, id: op.ID}
		switch op.Kind {
		case WritePut:
			existing, ok := s.docs[key]
			createdAt := now
			if ok {
				createdAt = existing.CreatedAt
			}
			data := make(json.RawMessage, len(op.Data))
			copy(data, op.Data)
			s.docs[key] = Document{
				Collection: op.Collection,
				TenantID:   op.TenantID,
				ID:         op.ID,
				Data:       data,
				CreatedAt:  createdAt,
				UpdatedAt:  now,
			}
		case WriteDelete:
			delete(s.docs, key)
		}
	}
	return nil
}

// Tenants lists the distinct tenants with documents in the collection.
func (s *MemoryStore) Tenants(_ context.Context, collection string) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[uuid.UUID]struct{})
	var tenants []uuid.UUID
	for key := range s.docs {
		if key.collection != collection {
			continue
		}
		if _, ok := seen[key.tenantID]; ok {
			continue
		}
		seen[key.tenantID] = struct{}{}
		tenants = append(tenants, key.tenantID)
	}
	return tenants, nil
}

func matchesFilters(payload map[string]any, filters []Filter) bool {
	for _, f := range filters {
		cmp, ok := compareValues(payload[f.Field], f.Value)
		if !ok {
			return false
		}
		switch f.Op {
		case OpEq:
			if cmp != 0 {
				return false
			}
		case OpNeq:
			if cmp == 0 {
				return false
			}
		case OpLt:
			if cmp >= 0 {
				return false
			}
		case OpLte:
			if cmp > 0 {
				return false
			}
		case OpGt:
			if cmp <= 0 {
				return false
			}
		case OpGte:
			if cmp < 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// compareValues compares a decoded JSON value against a filter value.
// Returns ok=false when the types cannot be meaningfully compared.
func compareValues(docVal any, filterVal any) (int, bool) {
	switch fv := filterVal.(type) {
	case string:
		s, ok := docVal.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(s, fv), true
	case bool:
		b, ok := docVal.(bool)
		if !ok {
			return 0, false
		}
		if b == fv {
			return 0, true
		}
		if !b {
			return -1, true
		}
		return 1, true
	case time.Time:
		s, ok := docVal.(string)
		if !ok {
			return 0, false
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return 0, false
		}
		if t.Equal(fv) {
			return 0, true
		}
		if t.Before(fv) {
			return -1, true
		}
		return 1, true
	case uuid.UUID:
		s, ok := docVal.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(s, fv.String()), true
	default:
		df, ok := toFloat(docVal)
		if !ok {
			return 0, false
		}
		ff, ok := toFloat(filterVal)
		if !ok {
			return 0, false
		}
		switch {
		case df < ff:
			return -1, true
		case df > ff:
			return 1, true
		default:
			return 0, true
		}
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func cloneDoc(doc Document) Document {
	data := make(json.RawMessage, len(doc.Data))
	copy(data, doc.Data)
	doc.Data = data
	return doc
}

var _ Store = (*MemoryStore)(nil)

package docstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type widget struct {
	Name      string    `json:"name"`
	Rank      int       `json:"rank"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

func putWidget(t *testing.T, store *MemoryStore, tenantID, id uuid.UUID, w widget) {
	t.Helper()
	op, err := Put("widgets", tenantID, id, w)
	if err != nil {
		t.Fatalf("put op: %v", err)
	}
	if err := store.BatchWrite(context.Background(), []WriteOp{op}); err != nil {
		t.Fatalf("batch write: %v", err)
	}
}

func TestGet_MissingDocumentReturnsNotFound(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "widgets", uuid.New(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGet_IsTenantScoped(t *testing.T) {
	store := NewMemoryStore()
	tenantID, otherTenant := uuid.New(), uuid.New()
	id := uuid.New()

	putWidget(t, store, tenantID, id, widget{Name: "a"})

	if _, err := store.Get(context.Background(), "widgets", tenantID, id); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := store.Get(context.Background(), "widgets", otherTenant, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-tenant read must miss, got %v", err)
	}
}

func TestBatchWrite_UpsertPreservesCreatedAt(t *testing.T) {
	store := NewMemoryStore()
	tenantID, id := uuid.New(), uuid.New()

	putWidget(t, store, tenantID, id, widget{Name: "v1"})
	first, err := store.Get(context.Background(), "widgets", tenantID, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	putWidget(t, store, tenantID, id, widget{Name: "v2"})
	second, err := store.Get(context.Background(), "widgets", tenantID, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatal("upsert must preserve createdAt")
	}
	var w widget
	if err := second.Decode(&w); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if w.Name != "v2" {
		t.Fatalf("expected updated payload, got %q", w.Name)
	}
}

func TestBatchWrite_Delete(t *testing.T) {
	store := NewMemoryStore()
	tenantID, id := uuid.New(), uuid.New()

	putWidget(t, store, tenantID, id, widget{Name: "gone soon"})
	if err := store.BatchWrite(context.Background(), []WriteOp{Delete("widgets", tenantID, id)}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(context.Background(), "widgets", tenantID, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestQuery_FiltersOrderAndLimit(t *testing.T) {
	store := NewMemoryStore()
	tenantID := uuid.New()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	for i, name := range []string{"alpha", "beta", "gamma", "delta"} {
		putWidget(t, store, tenantID, uuid.New(), widget{
			Name:      name,
			Rank:      i,
			Active:    i%2 == 0,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}

	docs, err := store.Query(context.Background(), "widgets", tenantID, Query{
		Filters: []Filter{{Field: "active", Op: OpEq, Value: true}},
		OrderBy: []Ordering{{Field: "createdAt", Desc: true}},
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 active widgets, got %d", len(docs))
	}
	var first widget
	if err := docs[0].Decode(&first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first.Name != "gamma" {
		t.Fatalf("expected newest active first, got %q", first.Name)
	}

	limited, err := store.Query(context.Background(), "widgets", tenantID, Query{
		OrderBy: []Ordering{{Field: "rank", Desc: false}},
		Limit:   2,
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected limit 2, got %d", len(limited))
	}

	ranked, err := store.Query(context.Background(), "widgets", tenantID, Query{
		Filters: []Filter{{Field: "rank", Op: OpGte, Value: 2}},
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("expected 2 widgets with rank >= 2, got %d", len(ranked))
	}
}

func TestTenants_DeduplicatesAcrossDocuments(t *testing.T) {
	store := NewMemoryStore()
	tenantA, tenantB := uuid.New(), uuid.New()

	putWidget(t, store, tenantA, uuid.New(), widget{Name: "one"})
	putWidget(t, store, tenantA, uuid.New(), widget{Name: "two"})
	putWidget(t, store, tenantB, uuid.New(), widget{Name: "three"})

	// another collection must not leak in
	op, err := Put("gadgets", uuid.New(), uuid.New(), widget{Name: "other"})
	if err != nil {
		t.Fatalf("put op: %v", err)
	}
	if err := store.BatchWrite(context.Background(), []WriteOp{op}); err != nil {
		t.Fatalf("batch write: %v", err)
	}

	tenants, err := store.Tenants(context.Background(), "widgets")
	if err != nil {
		t.Fatalf("tenants: %v", err)
	}
	if len(tenants) != 2 {
		t.Fatalf("expected 2 tenants, got %d", len(tenants))
	}
	seen := map[uuid.UUID]bool{}
	for _, id := range tenants {
		seen[id] = true
	}
	if !seen[tenantA] || !seen[tenantB] {
		t.Fatalf("missing tenant in %v", tenants)
	}
}

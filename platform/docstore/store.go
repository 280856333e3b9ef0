// Package docstore provides the document store adapter used by the CRM
// engines. Entities are persisted as JSON documents grouped into named
// collections and scoped to a tenant. The adapter exposes point reads,
// filtered queries and an atomic multi-document batch write; it is injected
// into every engine so tests can substitute the in-memory implementation.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Get when no document matches.
var ErrNotFound = errors.New("document not found")

// Document is a stored record. Data holds the entity's JSON encoding;
// CreatedAt/UpdatedAt are maintained by the store.
type Document struct {
	Collection string
	TenantID   uuid.UUID
	ID         uuid.UUID
	Data       json.RawMessage
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Decode unmarshals the document payload into out.
func (d Document) Decode(out any) error {
	return json.Unmarshal(d.Data, out)
}

// Op is a filter comparison operator.
type Op string

const (
	OpEq  Op = "eq"
	OpNeq Op = "neq"
	OpLt  Op = "lt"
	OpLte Op = "lte"
	OpGt  Op = "gt"
	OpGte Op = "gte"
)

// Filter compares a top-level JSON field of the document against a value.
// Supported value types: string, bool, integers, floats and time.Time.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Ordering sorts results by a top-level JSON field.
type Ordering struct {
	Field string
	Desc  bool
}

// Query describes a filtered, ordered read over one collection.
type Query struct {
	Filters []Filter
	OrderBy []Ordering
	Limit   int
}

// WriteKind discriminates batch write operations.
type WriteKind int

const (
	// WritePut upserts the full document.
	WritePut WriteKind = iota
	// WriteDelete removes the document if present.
	WriteDelete
)

// WriteOp is a single operation inside a batch write.
type WriteOp struct {
	Kind       WriteKind
	Collection string
	TenantID   uuid.UUID
	ID         uuid.UUID
	Data       json.RawMessage
}

// Put builds an upsert operation from any JSON-encodable entity.
func Put(collection string, tenantID, id uuid.UUID, entity any) (WriteOp, error) {
	data, err := json.Marshal(entity)
	if err != nil {
		return WriteOp{}, err
	}
	return WriteOp{
		Kind:       WritePut,
		Collection: collection,
		TenantID:   tenantID,
		ID:         id,
		Data:       data,
	}, nil
}

// Delete builds a delete operation.
func Delete(collection string, tenantID, id uuid.UUID) WriteOp {
	return WriteOp{
		Kind:       WriteDelete,
		Collection: collection,
		TenantID:   tenantID,
		ID:         id,
	}
}

// Store is the document store interface. BatchWrite is all-or-nothing: either
// every operation in the slice is applied or none is. No cross-batch
// transaction is offered; concurrent writers to the same document follow
// last-write-wins semantics.
type Store interface {
	Get(ctx context.Context, collection string, tenantID, id uuid.UUID) (Document, error)
	Query(ctx context.Context, collection string, tenantID uuid.UUID, q Query) ([]Document, error)
	BatchWrite(ctx context.Context, ops []WriteOp) error
	// Tenants lists the tenant IDs holding at least one document in the
	// collection. Used by background sweeps; regular request handling is
	// always tenant-scoped.
	Tenants(ctx context.Context, collection string) ([]uuid.UUID, error)
}

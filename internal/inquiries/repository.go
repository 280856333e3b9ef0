package inquiries

import (
	"context"
	"errors"

	"coachdesk_backend/platform/docstore"

	"github.com/google/uuid"
)

const (
	collectionInquiries = "inquiries"
	collectionClients   = "clients"
)

var ErrNotFound = errors.New("record not found")

// Repository provides typed access to inquiries and clients through the
// document store adapter.
type Repository struct {
	store docstore.Store
}

func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

// Commit applies the given write operations in one atomic batch.
func (r *Repository) Commit(ctx context.Context, ops ...docstore.WriteOp) error {
	return r.store.BatchWrite(ctx, ops)
}

func (r *Repository) GetInquiry(ctx context.Context, tenantID, id uuid.UUID) (Inquiry, error) {
	doc, err := r.store.Get(ctx, collectionInquiries, tenantID, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return Inquiry{}, ErrNotFound
	}
	if err != nil {
		return Inquiry{}, err
	}

	var inquiry Inquiry
	if err := doc.Decode(&inquiry); err != nil {
		return Inquiry{}, err
	}
	return inquiry, nil
}

// ListInquiriesParams filters the inquiry listing.
type ListInquiriesParams struct {
	Status *InquiryStatus
	Limit  int
}

func (r *Repository) ListInquiries(ctx context.Context, tenantID uuid.UUID, params ListInquiriesParams) ([]Inquiry, error) {
	q := docstore.Query{
		OrderBy: []docstore.Ordering{{Field: "createdAt", Desc: true}},
		Limit:   params.Limit,
	}
	if params.Status != nil {
		q.Filters = append(q.Filters, docstore.Filter{Field: "status", Op: docstore.OpEq, Value: string(*params.Status)})
	}

	docs, err := r.store.Query(ctx, collectionInquiries, tenantID, q)
	if err != nil {
		return nil, err
	}

	inquiries := make([]Inquiry, 0, len(docs))
	for _, doc := range docs {
		var inquiry Inquiry
		if err := doc.Decode(&inquiry); err != nil {
			return nil, err
		}
		inquiries = append(inquiries, inquiry)
	}
	return inquiries, nil
}

func (r *Repository) PutInquiryOp(inquiry Inquiry) (docstore.WriteOp, error) {
	return docstore.Put(collectionInquiries, inquiry.TenantID, inquiry.ID, inquiry)
}

func (r *Repository) GetClient(ctx context.Context, tenantID, id uuid.UUID) (Client, error) {
	doc, err := r.store.Get(ctx, collectionClients, tenantID, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return Client{}, ErrNotFound
	}
	if err != nil {
		return Client{}, err
	}

	var client Client
	if err := doc.Decode(&client); err != nil {
		return Client{}, err
	}
	return client, nil
}

func (r *Repository) ListClients(ctx context.Context, tenantID uuid.UUID) ([]Client, error) {
	docs, err := r.store.Query(ctx, collectionClients, tenantID, docstore.Query{
		OrderBy: []docstore.Ordering{{Field: "createdAt", Desc: false}},
	})
	if err != nil {
		return nil, err
	}

	clients := make([]Client, 0, len(docs))
	for _, doc := range docs {
		var client Client
		if err := doc.Decode(&client); err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}
	return clients, nil
}

// ClientTenants lists the tenants holding client records, for background
// health sweeps.
func (r *Repository) ClientTenants(ctx context.Context) ([]uuid.UUID, error) {
	return r.store.Tenants(ctx, collectionClients)
}

func (r *Repository) PutClientOp(client Client) (docstore.WriteOp, error) {
	return docstore.Put(collectionClients, client.TenantID, client.ID, client)
}

package health

import (
	"context"
	"errors"

	"coachdesk_backend/internal/crm/domain"
	"coachdesk_backend/platform/docstore"

	"github.com/google/uuid"
)

const collectionSignals = "engagement_signals"

// DocstoreProvider reads engagement signals from the document store, where
// ingestion jobs land them keyed by client. A client without a signals
// document yields the empty bundle, which the engine scores with neutral
// defaults and partial confidence.
type DocstoreProvider struct {
	store docstore.Store
}

func NewDocstoreProvider(store docstore.Store) *DocstoreProvider {
	return &DocstoreProvider{store: store}
}

func (p *DocstoreProvider) Signals(ctx context.Context, tenantID, clientID uuid.UUID) (domain.EngagementSignals, error) {
	doc, err := p.store.Get(ctx, collectionSignals, tenantID, clientID)
	if errors.Is(err, docstore.ErrNotFound) {
		return domain.EngagementSignals{}, nil
	}
	if err != nil {
		return domain.EngagementSignals{}, err
	}

	var signals domain.EngagementSignals
	if err := doc.Decode(&signals); err != nil {
		return domain.EngagementSignals{}, err
	}
	return signals, nil
}

// PutSignalsOp expresses a signals upsert for batching with other writes.
func PutSignalsOp(tenantID, clientID uuid.UUID, signals domain.EngagementSignals) (docstore.WriteOp, error) {
	return docstore.Put(collectionSignals, tenantID, clientID, signals)
}

var _ SignalsProvider = (*DocstoreProvider)(nil)

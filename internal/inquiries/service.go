package inquiries

import (
	"context"
	"errors"
	"time"

	"coachdesk_backend/internal/crm/domain"
	"coachdesk_backend/internal/crm/pipeline"
	"coachdesk_backend/platform/apperr"
	"coachdesk_backend/platform/logger"
	"coachdesk_backend/platform/phone"

	"github.com/google/uuid"
)

// LeadCreator opens a new lead in the pipeline. Implemented by the pipeline
// service; bound after construction because the pipeline in turn needs this
// package's MarkConverted for its Won side effect.
type LeadCreator interface {
	Create(ctx context.Context, tenantID uuid.UUID, params pipeline.CreateParams, actor domain.Actor) (domain.Lead, error)
}

// Service manages the inquiry lifecycle: intake, conversion to a lead, and
// the final flip to a client record on Won.
type Service struct {
	repo  *Repository
	leads LeadCreator
	log   *logger.Logger

	now func() time.Time
}

func NewService(repo *Repository, log *logger.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

// BindLeadCreator wires the pipeline in after both services exist.
func (s *Service) BindLeadCreator(leads LeadCreator) {
	s.leads = leads
}

// CreateParams carries the intake fields of a new inquiry.
type CreateParams struct {
	Name    string
	Email   string
	Phone   string
	Message string
	Source  string
}

// Create records a new directory inquiry.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, params CreateParams) (Inquiry, error) {
	now := s.now().UTC()
	inquiry := Inquiry{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Name:      params.Name,
		Email:     params.Email,
		Phone:     phone.NormalizeE164(params.Phone),
		Message:   params.Message,
		Source:    params.Source,
		Status:    InquiryNew,
		CreatedAt: now,
		UpdatedAt: now,
	}

	op, err := s.repo.PutInquiryOp(inquiry)
	if err != nil {
		return Inquiry{}, err
	}
	if err := s.repo.Commit(ctx, op); err != nil {
		return Inquiry{}, err
	}
	return inquiry, nil
}

// Get returns a single inquiry.
func (s *Service) Get(ctx context.Context, tenantID, inquiryID uuid.UUID) (Inquiry, error) {
	inquiry, err := s.repo.GetInquiry(ctx, tenantID, inquiryID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Inquiry{}, apperr.NotFound("inquiry not found")
		}
		return Inquiry{}, err
	}
	return inquiry, nil
}

// List returns inquiries for a tenant, newest first.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, params ListInquiriesParams) ([]Inquiry, error) {
	return s.repo.ListInquiries(ctx, tenantID, params)
}

// ConvertToLead opens a pipeline lead from an inquiry and links the two.
// Converting an already-converted or in-pipeline inquiry is rejected.
func (s *Service) ConvertToLead(ctx context.Context, tenantID, inquiryID uuid.UUID, ownerID uuid.UUID, bant domain.BANT, valueCents int64, actor domain.Actor) (domain.Lead, error) {
	if s.leads == nil {
		return domain.Lead{}, apperr.Internal("lead creator not configured")
	}

	inquiry, err := s.Get(ctx, tenantID, inquiryID)
	if err != nil {
		return domain.Lead{}, err
	}
	if inquiry.Status != InquiryNew {
		return domain.Lead{}, apperr.Conflict("inquiry already has a lead")
	}

	lead, err := s.leads.Create(ctx, tenantID, pipeline.CreateParams{
		Name:       inquiry.Name,
		Email:      inquiry.Email,
		Phone:      inquiry.Phone,
		Source:     inquiry.Source,
		BANT:       bant,
		ValueCents: valueCents,
		OwnerID:    ownerID,
		InquiryID:  &inquiry.ID,
	}, actor)
	if err != nil {
		return domain.Lead{}, err
	}

	inquiry.Status = InquiryInPipe
	inquiry.LeadID = &lead.ID
	inquiry.UpdatedAt = s.now().UTC()

	op, err := s.repo.PutInquiryOp(inquiry)
	if err != nil {
		return domain.Lead{}, err
	}
	if err := s.repo.Commit(ctx, op); err != nil {
		return domain.Lead{}, err
	}
	return lead, nil
}

// MarkConverted finalizes an inquiry after its lead closed Won: the client
// record and the inquiry flip are written in one atomic batch. Idempotent
// for already-converted inquiries; the existing client ID is returned.
func (s *Service) MarkConverted(ctx context.Context, tenantID, inquiryID, leadID uuid.UUID) (uuid.UUID, error) {
	inquiry, err := s.repo.GetInquiry(ctx, tenantID, inquiryID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return uuid.Nil, apperr.NotFound("inquiry not found")
		}
		return uuid.Nil, err
	}
	if inquiry.Status == InquiryConverted {
		if inquiry.ClientID != nil {
			return *inquiry.ClientID, nil
		}
		return uuid.Nil, apperr.Conflict("inquiry converted without client record")
	}

	now := s.now().UTC()
	client := Client{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Name:      inquiry.Name,
		Email:     inquiry.Email,
		Phone:     inquiry.Phone,
		InquiryID: &inquiry.ID,
		LeadID:    &leadID,
		CreatedAt: now,
	}

	inquiry.Status = InquiryConverted
	inquiry.LeadID = &leadID
	inquiry.ClientID = &client.ID
	inquiry.UpdatedAt = now

	clientOp, err := s.repo.PutClientOp(client)
	if err != nil {
		return uuid.Nil, err
	}
	inquiryOp, err := s.repo.PutInquiryOp(inquiry)
	if err != nil {
		return uuid.Nil, err
	}

	if err := s.repo.Commit(ctx, clientOp, inquiryOp); err != nil {
		return uuid.Nil, err
	}

	if s.log != nil {
		s.log.Info("inquiry converted",
			"inquiry_id", inquiry.ID, "client_id", client.ID, "lead_id", leadID)
	}
	return client.ID, nil
}

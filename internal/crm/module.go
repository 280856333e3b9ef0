// Package crm provides the lead pipeline and client health domain module.
package crm

import (
	"coachdesk_backend/internal/config"
	"coachdesk_backend/internal/crm/handler"
	"coachdesk_backend/internal/crm/health"
	"coachdesk_backend/internal/crm/ledger"
	"coachdesk_backend/internal/crm/pipeline"
	"coachdesk_backend/internal/crm/repository"
	"coachdesk_backend/internal/crm/scoring"
	"coachdesk_backend/internal/events"
	apphttp "coachdesk_backend/internal/http"
	"coachdesk_backend/platform/docstore"
	"coachdesk_backend/platform/logger"
	"coachdesk_backend/platform/validator"
)

// Module represents the CRM domain module.
type Module struct {
	handler  *handler.Handler
	pipeline *pipeline.Service
	scoring  *scoring.Service
	ledger   *ledger.Service
	health   *health.Service
	repo     *repository.Repository
}

// NewModule creates a new CRM module with all dependencies wired. converter
// and provider are cross-module collaborators and may be nil in deployments
// without an inquiry directory or engagement data source.
func NewModule(cfg config.CRMConfig, store docstore.Store, converter pipeline.InquiryConverter, provider health.SignalsProvider, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(store)
	pipelineSvc := pipeline.New(cfg, repo, converter, bus, log)
	scoringSvc := scoring.New(cfg.Scoring, repo, log)
	ledgerSvc := ledger.New(repo, bus, log)
	healthSvc := health.New(cfg.Health, repo, provider, bus, log)

	return &Module{
		handler:  handler.New(cfg, pipelineSvc, scoringSvc, ledgerSvc, healthSvc, repo, val),
		pipeline: pipelineSvc,
		scoring:  scoringSvc,
		ledger:   ledgerSvc,
		health:   healthSvc,
		repo:     repo,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "crm"
}

// PipelineService returns the pipeline engine for external use.
func (m *Module) PipelineService() *pipeline.Service {
	return m.pipeline
}

// HealthService returns the health engine for external use.
func (m *Module) HealthService() *health.Service {
	return m.health
}

// Repository returns the CRM repository for external readers.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/crm"))
}

var _ apphttp.Module = (*Module)(nil)

package inquiries

import (
	apphttp "coachdesk_backend/internal/http"
	"coachdesk_backend/platform/docstore"
	"coachdesk_backend/platform/logger"
	"coachdesk_backend/platform/validator"
)

// Module represents the inquiries domain module.
type Module struct {
	handler *Handler
	service *Service
}

// NewModule creates a new inquiries module. The lead creator is bound later
// via Service().BindLeadCreator once the pipeline exists.
func NewModule(store docstore.Store, val *validator.Validator, log *logger.Logger) *Module {
	repo := NewRepository(store)
	svc := NewService(repo, log)
	return &Module{
		handler: NewHandler(svc, val),
		service: svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "inquiries"
}

// Service returns the service layer for external use.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/inquiries"))
	m.handler.RegisterPublicRoutes(ctx.V1.Group("/public/inquiries"))
}

var _ apphttp.Module = (*Module)(nil)

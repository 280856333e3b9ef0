package inquiries

import (
	"net/http"
	"strconv"

	"coachdesk_backend/internal/crm/domain"
	"coachdesk_backend/internal/crm/transport"
	"coachdesk_backend/platform/httpkit"
	"coachdesk_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for inquiries.
type Handler struct {
	svc *Service
	val *validator.Validator
}

func NewHandler(svc *Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the authenticated inquiry routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/convert", h.Convert)
}

// RegisterPublicRoutes registers the unauthenticated intake endpoint used by
// the public coach directory.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/:tenantId", h.Create)
}

func (h *Handler) Create(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("tenantId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid tenant id", nil)
		return
	}

	var req transport.CreateInquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	inquiry, err := h.svc.Create(c.Request.Context(), tenantID, CreateParams{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Message: req.Message,
		Source:  req.Source,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, inquiry)
}

func (h *Handler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	params := ListInquiriesParams{}
	if raw := c.Query("status"); raw != "" {
		status := InquiryStatus(raw)
		params.Status = &status
	}
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			params.Limit = v
		}
	}

	inquiries, err := h.svc.List(c.Request.Context(), identity.TenantID(), params)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, inquiries)
}

func (h *Handler) Get(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	inquiryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}

	inquiry, err := h.svc.Get(c.Request.Context(), identity.TenantID(), inquiryID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, inquiry)
}

func (h *Handler) Convert(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	inquiryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}

	var req transport.ConvertInquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	ownerID := identity.UserID()
	if req.OwnerID != nil {
		ownerID = *req.OwnerID
	}

	lead, err := h.svc.ConvertToLead(c.Request.Context(), identity.TenantID(), inquiryID,
		ownerID, req.BANT.Domain(), req.ValueCents, domain.Actor{ID: identity.UserID()})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, lead)
}

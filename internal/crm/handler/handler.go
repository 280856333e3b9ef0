// Package handler exposes the CRM module over HTTP.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"coachdesk_backend/internal/config"
	"coachdesk_backend/internal/crm/domain"
	"coachdesk_backend/internal/crm/health"
	"coachdesk_backend/internal/crm/ledger"
	"coachdesk_backend/internal/crm/metrics"
	"coachdesk_backend/internal/crm/pipeline"
	"coachdesk_backend/internal/crm/repository"
	"coachdesk_backend/internal/crm/scoring"
	"coachdesk_backend/internal/crm/transport"
	"coachdesk_backend/platform/httpkit"
	"coachdesk_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for the CRM module.
type Handler struct {
	cfg      config.CRMConfig
	pipeline *pipeline.Service
	scoring  *scoring.Service
	ledger   *ledger.Service
	health   *health.Service
	leads    repository.LeadReader
	val      *validator.Validator
}

// New creates a new CRM handler.
func New(cfg config.CRMConfig, pipelineSvc *pipeline.Service, scoringSvc *scoring.Service, ledgerSvc *ledger.Service, healthSvc *health.Service, leads repository.LeadReader, val *validator.Validator) *Handler {
	return &Handler{
		cfg:      cfg,
		pipeline: pipelineSvc,
		scoring:  scoringSvc,
		ledger:   ledgerSvc,
		health:   healthSvc,
		leads:    leads,
		val:      val,
	}
}

// RegisterRoutes registers the CRM routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/leads", h.CreateLead)
	rg.GET("/leads", h.ListLeads)
	rg.GET("/leads/:id", h.GetLead)
	rg.PUT("/leads/:id/qualification", h.UpdateQualification)
	rg.POST("/leads/:id/transition", h.Transition)
	rg.GET("/leads/:id/targets", h.ValidTargets)
	rg.POST("/leads/:id/score/recompute", h.RecomputeScore)
	rg.POST("/leads/:id/activities", h.RecordActivity)
	rg.GET("/leads/:id/activities", h.ListActivities)
	rg.POST("/leads/:id/tasks", h.CreateTask)
	rg.GET("/leads/:id/tasks", h.ListTasks)
	rg.POST("/tasks/:id/complete", h.CompleteTask)
	rg.POST("/score/preview", h.PreviewScore)
	rg.GET("/metrics", h.PipelineMetrics)
	rg.POST("/clients/:id/health/recompute", h.RecomputeHealth)
	rg.GET("/clients/:id/health", h.GetHealth)
	rg.GET("/health-alerts", h.ListAlerts)
	rg.POST("/health-alerts/:id/ack", h.AcknowledgeAlert)
}

func (h *Handler) CreateLead(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	tenantID, actor, ok := callerContext(c)
	if !ok {
		return
	}

	ownerID := actor.ID
	if req.OwnerID != nil {
		ownerID = *req.OwnerID
	}

	lead, err := h.pipeline.Create(c.Request.Context(), tenantID, pipeline.CreateParams{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Source:     req.Source,
		BANT:       req.BANT.Domain(),
		ValueCents: req.ValueCents,
		OwnerID:    ownerID,
	}, actor)
	if handleCRMError(c, err) {
		return
	}

	httpkit.Created(c, lead)
}

func (h *Handler) ListLeads(c *gin.Context) {
	tenantID, _, ok := callerContext(c)
	if !ok {
		return
	}

	params := repository.ListLeadsParams{Limit: queryInt(c, "limit", 0)}
	if raw := c.Query("stage"); raw != "" {
		stage := domain.Stage(raw)
		if !domain.IsKnownStage(stage) {
			httpkit.Error(c, http.StatusBadRequest, "unknown stage", nil)
			return
		}
		params.Stage = &stage
	}
	if raw := c.Query("archived"); raw != "" {
		archived, err := strconv.ParseBool(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "archived must be a boolean", nil)
			return
		}
		params.Archived = &archived
	}

	leads, err := h.pipeline.List(c.Request.Context(), tenantID, params)
	if handleCRMError(c, err) {
		return
	}
	httpkit.OK(c, leads)
}

func (h *Handler) GetLead(c *gin.Context) {
	tenantID, _, ok := callerContext(c)
	if !ok {
		return
	}
	leadID, ok := pathID(c, "id")
	if !ok {
		return
	}

	lead, err := h.pipeline.Get(c.Request.Context(), tenantID, leadID)
	if handleCRMError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) UpdateQualification(c *gin.Context) {
	var req transport.UpdateQualificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	tenantID, _, ok := callerContext(c)
	if !ok {
		return
	}
	leadID, ok := pathID(c, "id")
	if !ok {
		return
	}

	lead, err := h.pipeline.UpdateQualification(c.Request.Context(), tenantID, leadID, req.BANT.Domain())
	if handleCRMError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) Transition(c *gin.Context) {
	var req transport.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	tenantID, actor, ok := callerContext(c)
	if !ok {
		return
	}
	leadID, ok := pathID(c, "id")
	if !ok {
		return
	}

	lead, err := h.pipeline.Transition(c.Request.Context(), tenantID, leadID, domain.Stage(req.Target), actor)

	// A post-transition failure means the lead DID move; report success with
	// a warning instead of discarding the committed state.
	var postErr *domain.PostTransitionError
	if errors.As(err, &postErr) {
		httpkit.OK(c, transport.TransitionResponse{
			Lead:    lead,
			Warning: postErr.Error(),
		})
		return
	}
	if handleCRMError(c, err) {
		return
	}

	httpkit.OK(c, transport.TransitionResponse{Lead: lead})
}

func (h *Handler) ValidTargets(c *gin.Context) {
	tenantID, _, ok := callerContext(c)
	if !ok {
		return
	}
	leadID, ok := pathID(c, "id")
	if !ok {
		return
	}

	lead, err := h.pipeline.Get(c.Request.Context(), tenantID, leadID)
	if handleCRMError(c, err) {
		return
	}

	httpkit.OK(c, transport.ValidTargetsResponse{
		From:    lead.Stage,
		Targets: h.pipeline.ValidTargets(lead.Stage),
	})
}

func (h *Handler) PreviewScore(c *gin.Context) {
	var req transport.ScorePreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	httpkit.OK(c, h.scoring.Preview(req.BANT.Domain()))
}

func (h *Handler) RecomputeScore(c *gin.Context) {
	tenantID, actor, ok := callerContext(c)
	if !ok {
		return
	}
	leadID, ok := pathID(c, "id")
	if !ok {
		return
	}

	lead, err := h.scoring.Apply(c.Request.Context(), tenantID, leadID, actor)
	if handleCRMError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) RecordActivity(c *gin.Context) {
	var req transport.RecordActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	tenantID, actor, ok := callerContext(c)
	if !ok {
		return
	}
	leadID, ok := pathID(c, "id")
	if !ok {
		return
	}

	activity, err := h.ledger.Record(c.Request.Context(), tenantID, leadID, req.Payload(), actor)
	if handleCRMError(c, err) {
		return
	}
	httpkit.Created(c, activity)
}

func (h *Handler) ListActivities(c *gin.Context) {
	tenantID, _, ok := callerContext(c)
	if !ok {
		return
	}
	leadID, ok := pathID(c, "id")
	if !ok {
		return
	}

	activities, err := h.ledger.Timeline(c.Request.Context(), tenantID, leadID)
	if handleCRMError(c, err) {
		return
	}
	httpkit.OK(c, activities)
}

func (h *Handler) CreateTask(c *gin.Context) {
	var req transport.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	tenantID, _, ok := callerContext(c)
	if !ok {
		return
	}
	leadID, ok := pathID(c, "id")
	if !ok {
		return
	}

	task, err := h.ledger.CreateTask(c.Request.Context(), tenantID, leadID, req.Description, req.DueAt)
	if handleCRMError(c, err) {
		return
	}
	httpkit.Created(c, task)
}

func (h *Handler) ListTasks(c *gin.Context) {
	tenantID, _, ok := callerContext(c)
	if !ok {
		return
	}
	leadID, ok := pathID(c, "id")
	if !ok {
		return
	}

	tasks, err := h.ledger.ListActive(c.Request.Context(), tenantID, leadID)
	if handleCRMError(c, err) {
		return
	}
	httpkit.OK(c, tasks)
}

func (h *Handler) CompleteTask(c *gin.Context) {
	tenantID, actor, ok := callerContext(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	task, err := h.ledger.Complete(c.Request.Context(), tenantID, taskID, actor)
	if handleCRMError(c, err) {
		return
	}
	httpkit.OK(c, task)
}

func (h *Handler) PipelineMetrics(c *gin.Context) {
	tenantID, _, ok := callerContext(c)
	if !ok {
		return
	}

	window := metrics.Window{}
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "from must be RFC3339", nil)
			return
		}
		window.From = t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "to must be RFC3339", nil)
			return
		}
		window.To = t
	}

	leads, err := h.leads.ListLeads(c.Request.Context(), tenantID, repository.ListLeadsParams{})
	if handleCRMError(c, err) {
		return
	}

	httpkit.OK(c, metrics.Aggregate(h.cfg.Pipeline, leads, window, time.Now().UTC()))
}

func (h *Handler) RecomputeHealth(c *gin.Context) {
	// The body is optional: absent signals mean "pull from the provider".
	var req transport.RecomputeHealthRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		if err := h.val.Struct(req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
			return
		}
	}

	tenantID, _, ok := callerContext(c)
	if !ok {
		return
	}
	clientID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var (
		score domain.ClientHealthScore
		err   error
	)
	if req.Signals != nil {
		score, err = h.health.Recompute(c.Request.Context(), tenantID, clientID, req.Signals.Domain())
	} else {
		score, err = h.health.RecomputeFromProvider(c.Request.Context(), tenantID, clientID)
	}
	if handleCRMError(c, err) {
		return
	}
	httpkit.OK(c, score)
}

func (h *Handler) GetHealth(c *gin.Context) {
	tenantID, _, ok := callerContext(c)
	if !ok {
		return
	}
	clientID, ok := pathID(c, "id")
	if !ok {
		return
	}

	score, err := h.health.GetScore(c.Request.Context(), tenantID, clientID)
	if handleCRMError(c, err) {
		return
	}
	httpkit.OK(c, score)
}

func (h *Handler) ListAlerts(c *gin.Context) {
	tenantID, _, ok := callerContext(c)
	if !ok {
		return
	}

	params := repository.ListAlertsParams{Limit: queryInt(c, "limit", 0)}
	if raw := c.Query("clientId"); raw != "" {
		clientID, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "clientId must be a UUID", nil)
			return
		}
		params.ClientID = &clientID
	}
	if raw := c.Query("acknowledged"); raw != "" {
		acked, err := strconv.ParseBool(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "acknowledged must be a boolean", nil)
			return
		}
		params.Acknowledged = &acked
	}

	alerts, err := h.health.ListAlerts(c.Request.Context(), tenantID, params)
	if handleCRMError(c, err) {
		return
	}
	httpkit.OK(c, alerts)
}

func (h *Handler) AcknowledgeAlert(c *gin.Context) {
	tenantID, actor, ok := callerContext(c)
	if !ok {
		return
	}
	alertID, ok := pathID(c, "id")
	if !ok {
		return
	}

	alert, err := h.health.Acknowledge(c.Request.Context(), tenantID, alertID, actor)
	if handleCRMError(c, err) {
		return
	}
	httpkit.OK(c, alert)
}

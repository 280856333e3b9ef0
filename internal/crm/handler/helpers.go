package handler

import (
	"errors"
	"net/http"
	"strconv"

	"coachdesk_backend/internal/crm/domain"
	"coachdesk_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// callerContext resolves the authenticated tenant and actor, or writes a 401
// and returns ok=false.
func callerContext(c *gin.Context) (uuid.UUID, domain.Actor, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return uuid.Nil, domain.Actor{}, false
	}
	if identity.TenantID() == uuid.Nil {
		httpkit.Error(c, http.StatusForbidden, "no tenant scope", nil)
		return uuid.Nil, domain.Actor{}, false
	}
	return identity.TenantID(), domain.Actor{ID: identity.UserID()}, true
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

// handleCRMError maps pipeline typed errors to HTTP responses with their
// structured details; everything else falls through to the shared mapping.
func handleCRMError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var invalid *domain.InvalidTransitionError
	if errors.As(err, &invalid) {
		httpkit.Error(c, http.StatusUnprocessableEntity, invalid.Error(), gin.H{
			"from":         invalid.From,
			"to":           invalid.To,
			"validTargets": invalid.ValidTargets,
		})
		return true
	}

	var precondition *domain.PreconditionNotMetError
	if errors.As(err, &precondition) {
		httpkit.Error(c, http.StatusUnprocessableEntity, precondition.Error(), gin.H{
			"target":  precondition.Target,
			"missing": precondition.Missing,
		})
		return true
	}

	return httpkit.HandleError(c, err)
}

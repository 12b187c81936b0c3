package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/agency-api/internal/dto"
	apierrors "github.com/yukikurage/agency-api/internal/errors"
	"github.com/yukikurage/agency-api/internal/middleware"
	"github.com/yukikurage/agency-api/internal/services"
)

type BillingHandler struct {
	billing *services.BillingService
}

func NewBillingHandler(billing *services.BillingService) *BillingHandler {
	return &BillingHandler{billing: billing}
}

// GetBilling returns the subscription, available plans and seat usage
func (h *BillingHandler) GetBilling(c *gin.Context) {
	orgID, ok := scopedOrganization(c)
	if !ok {
		return
	}

	overview, err := h.billing.Overview(c.Request.Context(), orgID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToBillingDTO(overview))
}

// ChangePlan switches the organization to another plan
func (h *BillingHandler) ChangePlan(c *gin.Context) {
	actorID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	orgID, ok := scopedOrganization(c)
	if !ok {
		return
	}

	type ChangePlanRequest struct {
		PlanID uint64 `json:"plan_id" binding:"required"`
	}

	var req ChangePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	sub, err := h.billing.ChangePlan(c.Request.Context(), actorID, orgID, req.PlanID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToSubscriptionDTO(*sub))
}

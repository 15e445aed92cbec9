package handlers

import (
	"net/http"

	"trace-crm-sync/pkg/auth"
	"trace-crm-sync/pkg/middleware"
	"trace-crm-sync/pkg/models"
	"trace-crm-sync/pkg/utils"
)

// BillingHandler serves the plan catalog and the account's plan selection.
// There is no payment flow here; checkout happens externally and lands as
// a tier change.
type BillingHandler struct {
	auth *auth.Service
}

func NewBillingHandler(authService *auth.Service) *BillingHandler {
	return &BillingHandler{auth: authService}
}

// GET /api/billing/plans
func (h *BillingHandler) Plans(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccessResponse(w, map[string]interface{}{"plans": models.PlanCatalog})
}

// GET /api/billing/current
func (h *BillingHandler) CurrentPlan(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	account, err := h.auth.GetUser(user.ID)
	if err != nil { utils.WriteNotFoundResponse(w, err.Error()); return }

	for _, plan := range models.PlanCatalog {
		if string(plan.Tier) == account.Tier {
			utils.WriteSuccessResponse(w, plan)
			return
		}
	}
	utils.WriteSuccessResponse(w, models.PlanCatalog[0])
}

// PUT /api/billing/current
func (h *BillingHandler) ChangePlan(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	var req struct {
		Tier models.UserTier `json:"tier"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid request body"); return }

	valid := false
	for _, plan := range models.PlanCatalog {
		if plan.Tier == req.Tier {
			valid = true
			break
		}
	}
	if !valid { utils.WriteBadRequestResponse(w, "Unknown plan tier"); return }

	account, err := h.auth.UpdateTier(user.ID, req.Tier)
	if err != nil { utils.WriteInternalServerErrorResponse(w, err.Error()); return }
	utils.WriteSuccessResponse(w, account.Profile())
}

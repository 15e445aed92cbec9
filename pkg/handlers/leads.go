package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"trace-crm-sync/pkg/crm"
	"trace-crm-sync/pkg/middleware"
	"trace-crm-sync/pkg/models"
	"trace-crm-sync/pkg/utils"

	chiRoute "github.com/go-chi/chi/v5"
)

// LeadsHandler serves the pipeline CRUD plus CSV exchange.
type LeadsHandler struct {
	crm *crm.Service
}

func NewLeadsHandler(crmService *crm.Service) *LeadsHandler {
	return &LeadsHandler{crm: crmService}
}

// GET /api/leads
func (h *LeadsHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	leads, err := h.crm.ListLeads(user.ID)
	if err != nil { utils.WriteInternalServerErrorResponse(w, err.Error()); return }
	utils.WriteSuccessResponse(w, map[string]interface{}{"leads": leads, "total": len(leads)})
}

// POST /api/leads
func (h *LeadsHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	var req models.LeadCreateRequest
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid request body"); return }
	lead, err := h.crm.CreateLead(user.ID, req)
	if err != nil { utils.WriteBadRequestResponse(w, err.Error()); return }
	utils.WriteCreatedResponse(w, lead)
}

// PATCH /api/leads/{id}
func (h *LeadsHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	leadID := chiRoute.URLParam(r, "id")
	var req models.LeadUpdateRequest
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid request body"); return }
	if err := h.crm.UpdateLead(user.ID, leadID, req); err != nil {
		if errors.Is(err, crm.ErrNotFound) { utils.WriteNotFoundResponse(w, err.Error()); return }
		utils.WriteBadRequestResponse(w, err.Error())
		return
	}
	lead, err := h.crm.GetLead(user.ID, leadID)
	if err != nil { utils.WriteInternalServerErrorResponse(w, err.Error()); return }
	utils.WriteSuccessResponse(w, lead)
}

// POST /api/leads/{id}/stage
func (h *LeadsHandler) Move(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	leadID := chiRoute.URLParam(r, "id")
	var req struct {
		Stage string `json:"stage"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid request body"); return }
	if err := h.crm.MoveLead(user.ID, leadID, req.Stage); err != nil {
		if errors.Is(err, crm.ErrNotFound) { utils.WriteNotFoundResponse(w, err.Error()); return }
		utils.WriteBadRequestResponse(w, err.Error())
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"id": leadID, "stage": req.Stage})
}

// DELETE /api/leads/{id}
func (h *LeadsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	leadID := chiRoute.URLParam(r, "id")
	if err := h.crm.DeleteLead(user.ID, leadID); err != nil { utils.WriteInternalServerErrorResponse(w, err.Error()); return }
	utils.WriteSuccessResponse(w, map[string]interface{}{"id": leadID, "deleted": true})
}

// GET /api/leads/export
func (h *LeadsHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="leads.csv"`)
	if err := h.crm.ExportLeadsCSV(user.ID, w); err != nil {
		// Headers are already out; log and cut the stream short.
		fmt.Printf("❌ CSV export failed for %s: %v\n", user.ID, err)
	}
}

// POST /api/leads/import
// Body is raw CSV, not the JSON envelope.
func (h *LeadsHandler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	defer r.Body.Close()

	imported, err := h.crm.ImportLeadsCSV(user.ID, r.Body)
	if err != nil {
		utils.WriteErrorResponseWithCode(w, http.StatusBadRequest, "IMPORT_FAILED",
			err.Error(), fmt.Sprintf("%d leads imported before the failure", imported))
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"imported": imported})
}

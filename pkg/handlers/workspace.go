package handlers

import (
	"net/http"

	"trace-crm-sync/pkg/crm"
	"trace-crm-sync/pkg/middleware"
	"trace-crm-sync/pkg/models"
	"trace-crm-sync/pkg/utils"
)

// WorkspaceHandler serves the stage template selection and the project
// display name singletons.
type WorkspaceHandler struct {
	crm *crm.Service
}

func NewWorkspaceHandler(crmService *crm.Service) *WorkspaceHandler {
	return &WorkspaceHandler{crm: crmService}
}

// GET /api/workspace
// Returns the settings, the resolved template and the project name in one
// shot so the shell can boot with a single request.
func (h *WorkspaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	settings, err := h.crm.Settings(user.ID)
	if err != nil { utils.WriteInternalServerErrorResponse(w, err.Error()); return }
	template, err := h.crm.ActiveTemplate(user.ID)
	if err != nil { utils.WriteInternalServerErrorResponse(w, err.Error()); return }
	projectName, err := h.crm.ProjectName(user.ID)
	if err != nil { utils.WriteInternalServerErrorResponse(w, err.Error()); return }

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"settings":     settings,
		"template":     template,
		"project_name": projectName,
	})
}

// GET /api/workspace/templates
func (h *WorkspaceHandler) Templates(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccessResponse(w, map[string]interface{}{
		"templates": models.StageTemplates,
		"default":   models.DefaultTemplateID,
	})
}

// GET /api/workspace/settings
func (h *WorkspaceHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	settings, err := h.crm.Settings(user.ID)
	if err != nil { utils.WriteInternalServerErrorResponse(w, err.Error()); return }
	utils.WriteSuccessResponse(w, settings)
}

// PUT /api/workspace/settings
func (h *WorkspaceHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	var req struct {
		TemplateID string `json:"template_id"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid request body"); return }
	if err := h.crm.SetTemplate(user.ID, req.TemplateID); err != nil { utils.WriteBadRequestResponse(w, err.Error()); return }

	template, err := h.crm.ActiveTemplate(user.ID)
	if err != nil { utils.WriteInternalServerErrorResponse(w, err.Error()); return }
	utils.WriteSuccessResponse(w, template)
}

// GET /api/workspace/project-name
func (h *WorkspaceHandler) GetProjectName(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	name, err := h.crm.ProjectName(user.ID)
	if err != nil { utils.WriteInternalServerErrorResponse(w, err.Error()); return }
	utils.WriteSuccessResponse(w, map[string]interface{}{"project_name": name})
}

// PUT /api/workspace/project-name
func (h *WorkspaceHandler) RenameProject(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	var req struct {
		Name string `json:"name"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid request body"); return }
	if err := h.crm.RenameProject(user.ID, req.Name); err != nil { utils.WriteBadRequestResponse(w, err.Error()); return }
	utils.WriteSuccessResponse(w, map[string]interface{}{"project_name": req.Name})
}
